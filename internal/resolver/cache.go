package resolver

import (
	"path"
	"sync"

	"github.com/santileortiz/dhtfs/internal/tagindex"
)

// cacheEntry is a cached resolution for one virtual path: either a tag
// directory (tag set) or a file (isFile set, record populated).
type cacheEntry struct {
	backingPath string
	tag         string
	record      tagindex.FileRecord
	isFile      bool
}

// Cache is the readdir cache: a short-lived mapping from virtual path to
// its resolution, populated by the most recent readdir call. It is
// advisory; resolution must succeed without it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get looks up virtualPath, returning the cached entry if present.
func (c *Cache) Get(virtualPath string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[virtualPath]
	return entry, ok
}

// Clear discards every cached entry. Called at the start of every readdir.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Populate repopulates the cache after a readdir of parentPath against
// root, given the query result.
func (c *Cache) Populate(root, parentPath string, result tagindex.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range result.Files {
		c.entries[path.Join(parentPath, f.DisplayName)] = cacheEntry{
			backingPath: path.Join(root, f.BackingLocation),
			record:      f,
			isFile:      true,
		}
	}
	for _, t := range result.ChildTags {
		c.entries[path.Join(parentPath, t)] = cacheEntry{
			backingPath: path.Join(root, TagDirPrefix+t),
			tag:         t,
		}
	}
}
