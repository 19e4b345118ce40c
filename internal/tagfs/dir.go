package tagfs

import (
	"os"
	"path"
	"path/filepath"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/santileortiz/dhtfs/cfg"
	"github.com/santileortiz/dhtfs/internal/resolver"
	"github.com/santileortiz/dhtfs/internal/tagindex"
)

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) MkDir(op *fuseops.MkDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, ok := fs.inodes[op.Parent]
	if !ok || parent.kind != kindDir {
		return fuse.ENOENT
	}

	childPath := path.Join(parent.virtualPath, op.Name)
	tags := splitPath(childPath)

	for _, t := range tags {
		if !fs.tagKnown(t) {
			if err := fs.idx.Attach(nil, []string{t}); err != nil {
				return fuse.EIO
			}
		}
		if err := fs.ensureTagDirMode(t, op.Mode); err != nil {
			return fuse.EIO
		}
	}

	rec := fs.getOrMintDirInode(path.Clean(childPath), op.Name)
	attrs, err := fs.attributesForRecord(rec)
	if err != nil {
		return fuse.EIO
	}
	rec.lookupCount++
	op.Entry = fuseops.ChildInodeEntry{Child: rec.id, Generation: 1, Attributes: attrs}
	return nil
}

// RmDir removes the tag unconditionally: spec.md §4.3.2 says files losing
// their last tag are not removed here, and there is no ENOTEMPTY check
// (tag directories are never "non-empty" in the POSIX sense the way a real
// directory tree is — removing a tag just drops edges).
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) RmDir(op *fuseops.RmDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, ok := fs.inodes[op.Parent]
	if !ok || parent.kind != kindDir {
		return fuse.ENOENT
	}

	tag := op.Name
	if !fs.tagKnown(tag) {
		return fuse.ENOENT
	}

	if err := fs.idx.RmDir(tag); err != nil {
		return fuse.EIO
	}

	backing := filepath.Join(fs.root, resolver.TagDirPrefix+tag)
	if err := os.RemoveAll(backing); err != nil {
		fs.log.Warnf("rmdir: failed removing backing directory %s: %v", backing, err)
	}

	delete(fs.dirInodesByPath, path.Join(parent.virtualPath, op.Name))

	return nil
}

// queryForReaddir applies spec.md §4.5's restrictive-then-cover fallback
// policy: restrictive first, falling back to cover when the restrictive
// result has fewer than two files, or has child tags and exceeds
// maxDirEntries in total. --cover-mode overrides the fallback outright.
func (fs *fileSystem) queryForReaddir(tags []string) tagindex.Result {
	result := fs.idx.Query(tags, tagindex.Restrictive)

	total := len(result.Files) + len(result.ChildTags)
	useCover := len(result.Files) < 2 ||
		(len(result.ChildTags) > 0 && total > int(fs.maxDirEntries))

	switch fs.coverMode {
	case cfg.CoverNever:
		useCover = false
	case cfg.CoverAlways:
		useCover = true
	}

	if useCover {
		result = fs.idx.Query(tags, tagindex.Cover)
	}
	return result
}

// OpenDir runs the readdir query once (spec.md §4.5: "populate the cache"),
// buffering the resulting entries for ReadDir to slice by offset — an
// in-memory analog of the teacher's fs/dir_handle.go paginated listing,
// without the continuation-token machinery a remote object listing needs.
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) OpenDir(op *fuseops.OpenDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirRec, ok := fs.inodes[op.Inode]
	if !ok || dirRec.kind != kindDir {
		return fuse.ENOENT
	}

	tags := splitPath(dirRec.virtualPath)
	result := fs.queryForReaddir(tags)

	fs.resolver.Cache().Clear()
	fs.resolver.Cache().Populate(fs.root, dirRec.virtualPath, result)

	entries := make([]fuseutil.Dirent, 0, len(result.Files)+len(result.ChildTags))
	var offset fuseops.DirOffset = 1

	for _, f := range result.Files {
		rec := fs.getOrMintFileInode(f)
		entries = append(entries, fuseutil.Dirent{
			Offset: offset,
			Inode:  rec.id,
			Name:   f.DisplayName,
			Type:   fuseutil.DT_File,
		})
		offset++
	}

	for _, t := range result.ChildTags {
		rec := fs.getOrMintDirInode(path.Clean(path.Join(dirRec.virtualPath, t)), t)
		entries = append(entries, fuseutil.Dirent{
			Offset: offset,
			Inode:  rec.id,
			Name:   t,
			Type:   fuseutil.DT_Directory,
		})
		offset++
	}

	handleID := fs.nextHandleID
	fs.nextHandleID++
	fs.dirHandles[handleID] = &dirHandle{entries: entries}
	op.Handle = handleID
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReadDir(op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	dh, ok := fs.dirHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return fuse.EIO
	}

	if int(op.Offset) > len(dh.entries) {
		return fuse.EINVAL
	}

	op.BytesRead = 0
	for _, e := range dh.entries[op.Offset:] {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], e)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.dirHandles, op.Handle)
	return nil
}
