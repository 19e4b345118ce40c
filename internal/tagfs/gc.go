package tagfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// runGarbageCollectLoop periodically sweeps for orphaned backing files,
// grounded on the teacher's garbage_collect.go periodic-sweep shape (same
// time.Tick loop, same "run once, log outcome" body).
func (fs *fileSystem) runGarbageCollectLoop(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			removed, err := fs.GarbageCollectOrphans()
			if err != nil {
				fs.log.Warnf("garbage collect: sweep failed after %v: %v", time.Since(start), err)
				continue
			}
			if len(removed) > 0 {
				fs.log.Infof("garbage collect: removed %d orphaned backing files in %v", len(removed), time.Since(start))
			}
		}
	}
}

// GarbageCollectOrphans removes every seqgen-minted backing file at the
// mount root with no corresponding tag-index entry: the state left behind
// by a crash between CreateFile's os.OpenFile and idx.Attach, or between
// Unlink's DetachFiles and os.Remove (spec.md §7's Recovery Policy).
// Files ingested via internal/ingest are never "f_"-prefixed and so are
// never candidates here.
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) GarbageCollectOrphans() ([]string, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "f_") {
			continue
		}
		if fs.idx.HasBackingLocation(name) {
			continue
		}
		if _, held := fs.fileInodesByLocation[name]; held {
			continue
		}

		backing := filepath.Join(fs.root, name)
		if err := os.Remove(backing); err != nil {
			if !os.IsNotExist(err) {
				fs.log.Warnf("garbage collect: failed removing orphan %s: %v", backing, err)
			}
			continue
		}
		removed = append(removed, name)
	}
	return removed, nil
}
