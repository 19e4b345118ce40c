// Package resolver implements the path resolver and readdir cache: mapping
// a virtual path to either a tag-directory or a concrete backing file.
package resolver

import (
	"path"
	"strings"

	"github.com/santileortiz/dhtfs/internal/tagindex"
)

const (
	// TagDirPrefix names the physical directory standing in for a tag.
	TagDirPrefix = "t_"
	// MissingFile is the sentinel backing name returned on resolution miss.
	MissingFile = "__MISSING_FILE__"
)

// Kind classifies what a Resolution refers to.
type Kind int

const (
	// KindRoot is the mount root itself.
	KindRoot Kind = iota
	// KindTagDir is a known tag's physical directory.
	KindTagDir
	// KindFile is a concrete backing file.
	KindFile
	// KindMissing is the sentinel: resolution failed.
	KindMissing
)

// Resolution is the outcome of resolving a virtual path.
type Resolution struct {
	Kind Kind
	// BackingPath is the absolute path under the mount root.
	BackingPath string
	// Tag is set when Kind == KindTagDir.
	Tag string
	// ParentTags is set when Kind == KindFile or KindMissing: every
	// non-empty component of the parent path, treated as tags.
	ParentTags []string
	// Record is set when Kind == KindFile.
	Record tagindex.FileRecord
}

// Resolver resolves virtual paths against a tag index and a readdir cache.
type Resolver struct {
	root  string
	index *tagindex.Index
	cache *Cache
}

// New constructs a Resolver rooted at root (the backing directory).
func New(root string, index *tagindex.Index) *Resolver {
	return &Resolver{root: root, index: index, cache: NewCache()}
}

// Cache returns the resolver's readdir cache, exposed so the FS handler can
// populate it after a readdir.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

func splitComponents(virtualPath string) []string {
	clean := path.Clean("/" + virtualPath)
	if clean == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve classifies virtualPath per §4.4, in order: cache hit, root, known
// tag, file-under-tags, sentinel.
func (r *Resolver) Resolve(virtualPath string) Resolution {
	clean := path.Clean("/" + virtualPath)

	if entry, ok := r.cache.Get(clean); ok {
		res := classifyCacheEntry(entry)
		if res.Kind == KindFile {
			components := splitComponents(clean)
			res.ParentTags = components[:len(components)-1]
		}
		return res
	}

	if clean == "/" {
		return Resolution{Kind: KindRoot, BackingPath: r.root}
	}

	components := splitComponents(clean)
	last := components[len(components)-1]

	if isKnownTag(r.index, last) {
		return Resolution{
			Kind:        KindTagDir,
			BackingPath: path.Join(r.root, TagDirPrefix+last),
			Tag:         last,
		}
	}

	parentTags := components[:len(components)-1]
	files := r.index.FilesOfTags(parentTags)
	for _, f := range files {
		if f.DisplayName == last {
			return Resolution{
				Kind:        KindFile,
				BackingPath: path.Join(r.root, f.BackingLocation),
				ParentTags:  parentTags,
				Record:      f,
			}
		}
	}

	return Resolution{
		Kind:        KindMissing,
		BackingPath: path.Join(r.root, MissingFile),
		ParentTags:  parentTags,
	}
}

func isKnownTag(index *tagindex.Index, name string) bool {
	for _, t := range index.AllTags() {
		if t == name {
			return true
		}
	}
	return false
}

// classifyCacheEntry reconstructs a Resolution from a cached entry. Cache
// entries are only ever written by Cache.Populate for tag dirs and files,
// so the classification here never falls through to KindMissing.
func classifyCacheEntry(entry cacheEntry) Resolution {
	if entry.isFile {
		return Resolution{Kind: KindFile, BackingPath: entry.backingPath, Record: entry.record}
	}
	return Resolution{Kind: KindTagDir, BackingPath: entry.backingPath, Tag: entry.tag}
}
