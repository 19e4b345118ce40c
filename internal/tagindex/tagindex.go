// Package tagindex implements the in-memory bipartite graph of tags and
// file-records, the query algebra over it, and its persistence via
// internal/store.
package tagindex

import (
	"fmt"
	"sort"

	"github.com/santileortiz/dhtfs/internal/store"
)

// FileRecord identifies a file by the pair (backing location, display
// name). Two records are equal iff both fields match.
type FileRecord struct {
	BackingLocation string
	DisplayName     string
}

// Mode selects which child-tag strategy Query uses.
type Mode int

const (
	Unrestricted Mode = iota
	Restrictive
	Cover
)

// state tracks the §4.3.3 state machine.
type state int

const (
	uninitialized state = iota
	initialized
)

// Index is the bipartite relation Tag x FileRecord, held as two side-maps
// kept in lockstep (no back-pointers between owned objects, per the
// re-architecture note against the source's cyclic relation).
type Index struct {
	adapter *store.Adapter
	st      state

	tagToFiles map[string]map[FileRecord]struct{}
	fileToTags map[FileRecord]map[string]struct{}
}

// New wraps adapter, which must be dedicated to the tag index (the
// ".tagindex" backing file). The index starts uninitialized; call Init or
// Load before use.
func New(adapter *store.Adapter) *Index {
	return &Index{
		adapter:    adapter,
		tagToFiles: make(map[string]map[FileRecord]struct{}),
		fileToTags: make(map[FileRecord]map[string]struct{}),
	}
}

// Init transitions the index to initialized, creating an empty relation or,
// if force is true, truncating any existing persisted relation.
func (idx *Index) Init(force bool) error {
	if !force {
		status, raw, err := idx.adapter.LoadRO()
		if err != nil {
			return err
		}
		if status == store.StatusOK {
			if err := idx.loadSnapshot(raw); err != nil {
				return err
			}
			idx.st = initialized
			return nil
		}
	}

	idx.tagToFiles = make(map[string]map[FileRecord]struct{})
	idx.fileToTags = make(map[FileRecord]map[string]struct{})
	idx.st = initialized
	return idx.persist()
}

// Load reads the persisted relation and marks the index initialized, without
// creating or truncating anything; it fails if nothing has been persisted
// yet. It is used by the mount path, which requires setup to have run
// already (see cmd's preflight check).
func (idx *Index) Load() error {
	status, raw, err := idx.adapter.LoadRO()
	if err != nil {
		return err
	}
	if status != store.StatusOK {
		return fmt.Errorf("tagindex: backing store not initialized, run setup first")
	}
	if err := idx.loadSnapshot(raw); err != nil {
		return err
	}
	idx.st = initialized
	return nil
}

func (idx *Index) requireInitialized() error {
	if idx.st != initialized {
		return fmt.Errorf("tagindex: operation requires an initialized index")
	}
	return nil
}

// Attach adds edges (t, f) for every pair in files x tags. Tags not
// previously present become known. If files is empty, tags are registered
// but remain unattached.
func (idx *Index) Attach(files []FileRecord, tags []string) error {
	if err := idx.requireInitialized(); err != nil {
		return err
	}

	for _, t := range tags {
		if _, ok := idx.tagToFiles[t]; !ok {
			idx.tagToFiles[t] = make(map[FileRecord]struct{})
		}
	}

	for _, f := range files {
		if _, ok := idx.fileToTags[f]; !ok {
			idx.fileToTags[f] = make(map[string]struct{})
		}
		for _, t := range tags {
			idx.tagToFiles[t][f] = struct{}{}
			idx.fileToTags[f][t] = struct{}{}
		}
	}

	return idx.persist()
}

// DetachTagsFromFiles removes edges (t, f) for t in tags, f in files. If
// files is empty, edges for all files are removed and the tag is deleted
// entirely.
func (idx *Index) DetachTagsFromFiles(tags []string, files []FileRecord) error {
	if err := idx.requireInitialized(); err != nil {
		return err
	}

	for _, t := range tags {
		if len(files) == 0 {
			for f := range idx.tagToFiles[t] {
				delete(idx.fileToTags[f], t)
			}
			delete(idx.tagToFiles, t)
			continue
		}
		for _, f := range files {
			delete(idx.tagToFiles[t], f)
			delete(idx.fileToTags[f], t)
		}
	}

	return idx.persist()
}

// DetachFiles removes every edge touching any file in files.
func (idx *Index) DetachFiles(files []FileRecord) error {
	if err := idx.requireInitialized(); err != nil {
		return err
	}

	for _, f := range files {
		for t := range idx.fileToTags[f] {
			delete(idx.tagToFiles[t], f)
		}
		delete(idx.fileToTags, f)
	}

	return idx.persist()
}

// RmDir removes tag regardless of how many files carry it. Files losing
// their last tag are not removed here; see §4.3.2.
func (idx *Index) RmDir(tag string) error {
	return idx.DetachTagsFromFiles([]string{tag}, nil)
}

// AllTags returns every known tag, including tags with no files.
func (idx *Index) AllTags() []string {
	out := make([]string, 0, len(idx.tagToFiles))
	for t := range idx.tagToFiles {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TagsOfFiles returns the set of tags common to every file in files.
func (idx *Index) TagsOfFiles(files []FileRecord) []string {
	if len(files) == 0 {
		return nil
	}

	common := cloneTagSet(idx.fileToTags[files[0]])
	for _, f := range files[1:] {
		intersectTagSet(common, idx.fileToTags[f])
	}

	out := make([]string, 0, len(common))
	for t := range common {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// FilesOfTags returns the set of files carrying every tag in tags. An empty
// tags set returns every file in the index.
func (idx *Index) FilesOfTags(tags []string) []FileRecord {
	if len(tags) == 0 {
		seen := make(map[FileRecord]struct{})
		for f := range idx.fileToTags {
			seen[f] = struct{}{}
		}
		return fileSetToSlice(seen)
	}

	first, ok := idx.tagToFiles[tags[0]]
	if !ok {
		return nil
	}
	result := cloneFileSet(first)
	for _, t := range tags[1:] {
		files, ok := idx.tagToFiles[t]
		if !ok {
			return nil
		}
		intersectFileSet(result, files)
		if len(result) == 0 {
			return nil
		}
	}
	return fileSetToSlice(result)
}

// NeighborTags returns the tags carried by any file in FilesOfTags(tags)
// (the candidates that could further narrow the current selection), minus
// tags themselves. An empty tags set returns all tags.
//
// This is a union over the selected files, not an intersection: a tag held
// by every file in the selection narrows nothing if added, but it is still
// a legal, if useless, neighbor in unrestricted mode; restrictive mode is
// what screens those out (see restrictiveChildTags in query.go).
func (idx *Index) NeighborTags(tags []string) []string {
	if len(tags) == 0 {
		return idx.AllTags()
	}

	selected := tagSliceToSet(tags)
	files := idx.FilesOfTags(tags)

	union := make(map[string]struct{})
	for _, f := range files {
		for t := range idx.fileToTags[f] {
			union[t] = struct{}{}
		}
	}

	out := make([]string, 0, len(union))
	for t := range union {
		if _, excluded := selected[t]; !excluded {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// HasBackingLocation reports whether any known file uses the given backing
// location, regardless of display name. Used by the orphan sweep to tell
// a file the index still owns from a leftover backing file.
func (idx *Index) HasBackingLocation(loc string) bool {
	for f := range idx.fileToTags {
		if f.BackingLocation == loc {
			return true
		}
	}
	return false
}

func cloneTagSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}

func intersectTagSet(dst map[string]struct{}, src map[string]struct{}) {
	for k := range dst {
		if _, ok := src[k]; !ok {
			delete(dst, k)
		}
	}
}

func cloneFileSet(src map[FileRecord]struct{}) map[FileRecord]struct{} {
	dst := make(map[FileRecord]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}

func intersectFileSet(dst map[FileRecord]struct{}, src map[FileRecord]struct{}) {
	for k := range dst {
		if _, ok := src[k]; !ok {
			delete(dst, k)
		}
	}
}

func fileSetToSlice(set map[FileRecord]struct{}) []FileRecord {
	out := make([]FileRecord, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BackingLocation != out[j].BackingLocation {
			return out[i].BackingLocation < out[j].BackingLocation
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

func tagSliceToSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}
