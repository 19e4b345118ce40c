package tagindex

import "sort"

// Result is the return value of Query: the child tags to offer as further
// navigation and the files to list directly.
type Result struct {
	ChildTags []string
	Files     []FileRecord
}

// Query is the central listing operation described in §4.3.1. S is
// FilesOfTags(tags); the three modes differ in what they select as
// ChildTags, and Cover additionally returns only the files of S that its
// ChildTags leave uncovered.
func (idx *Index) Query(tags []string, mode Mode) Result {
	s := idx.FilesOfTags(tags)
	n := idx.NeighborTags(tags)

	switch mode {
	case Unrestricted:
		return Result{ChildTags: n, Files: s}

	case Restrictive:
		return Result{ChildTags: idx.restrictiveChildTags(tags, n, s), Files: s}

	case Cover:
		cover, leftover := idx.greedyCover(tags, n, s)
		return Result{ChildTags: cover, Files: leftover}

	default:
		return Result{ChildTags: n, Files: s}
	}
}

// restrictiveChildTags drops every neighbor tag that would not shrink the
// current selection.
func (idx *Index) restrictiveChildTags(tags, neighbors []string, s []FileRecord) []string {
	out := make([]string, 0, len(neighbors))
	for _, t := range neighbors {
		narrowed := idx.FilesOfTags(append(append([]string{}, tags...), t))
		if len(narrowed) != len(s) {
			out = append(out, t)
			continue
		}
		if !sameFileSet(narrowed, s) {
			out = append(out, t)
		}
	}
	return out
}

// greedyCover picks a minimal subset C of neighbors such that every file in
// s carries at least one tag in C: repeatedly pick the tag covering the
// most currently-uncovered files, breaking ties lexicographically. The
// returned leftover files are s minus those covered by C.
func (idx *Index) greedyCover(tags, neighbors []string, s []FileRecord) (cover []string, leftover []FileRecord) {
	if len(s) == 0 {
		// Nothing to cover: expose the full neighbor set directly rather
		// than the vacuous empty cover, so navigation is still possible
		// from a selection with no files yet (e.g. a freshly mkdir'd tag).
		return append([]string(nil), neighbors...), nil
	}

	uncovered := make(map[FileRecord]struct{}, len(s))
	for _, f := range s {
		uncovered[f] = struct{}{}
	}

	remainingTags := append([]string(nil), neighbors...)
	sort.Strings(remainingTags)

	for len(uncovered) > 0 && len(remainingTags) > 0 {
		bestIdx := -1
		bestCoverage := 0
		for i, t := range remainingTags {
			files := idx.tagToFiles[t]
			coverage := 0
			for f := range uncovered {
				if _, ok := files[f]; ok {
					coverage++
				}
			}
			if coverage > bestCoverage {
				bestCoverage = coverage
				bestIdx = i
			}
		}

		if bestIdx == -1 || bestCoverage == 0 {
			break
		}

		chosen := remainingTags[bestIdx]
		cover = append(cover, chosen)
		for f := range idx.tagToFiles[chosen] {
			delete(uncovered, f)
		}
		remainingTags = append(remainingTags[:bestIdx], remainingTags[bestIdx+1:]...)
	}

	for f := range uncovered {
		leftover = append(leftover, f)
	}
	leftover = fileSetToSlice(toFileSet(leftover))

	return cover, leftover
}

func toFileSet(files []FileRecord) map[FileRecord]struct{} {
	set := make(map[FileRecord]struct{}, len(files))
	for _, f := range files {
		set[f] = struct{}{}
	}
	return set
}

func sameFileSet(a, b []FileRecord) bool {
	if len(a) != len(b) {
		return false
	}
	set := toFileSet(a)
	for _, f := range b {
		if _, ok := set[f]; !ok {
			return false
		}
	}
	return true
}
