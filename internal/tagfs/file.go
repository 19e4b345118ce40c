package tagfs

import (
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"

	"github.com/santileortiz/dhtfs/internal/resolver"
	"github.com/santileortiz/dhtfs/internal/seqgen"
	"github.com/santileortiz/dhtfs/internal/tagindex"
)

// CreateFile resolves the sentinel case of spec.md §4.5's open/create
// family: the name is new, so a fresh opaque backing name is minted via
// internal/seqgen, the backing file is created, and a FileRecord is attached
// to the parent path's tags.
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) CreateFile(op *fuseops.CreateFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, ok := fs.inodes[op.Parent]
	if !ok || parent.kind != kindDir {
		return fuse.ENOENT
	}

	childPath := path.Join(parent.virtualPath, op.Name)
	res := fs.resolver.Resolve(childPath)
	if res.Kind != resolver.KindMissing {
		return fuse.EEXIST
	}

	seq, err := fs.seq.Next()
	if err != nil {
		return fuse.EIO
	}
	backingName := seqgen.BackingName(seq)
	backingPath := filepath.Join(fs.root, backingName)

	f, err := os.OpenFile(backingPath, os.O_CREATE|os.O_RDWR|os.O_EXCL, op.Mode.Perm())
	if err != nil {
		return fuse.EIO
	}

	record := tagindex.FileRecord{BackingLocation: backingName, DisplayName: op.Name}
	if err := fs.idx.Attach([]tagindex.FileRecord{record}, res.ParentTags); err != nil {
		f.Close()
		return fuse.EIO
	}

	rec := fs.getOrMintFileInode(record)
	attrs, err := fs.attributesForRecord(rec)
	if err != nil {
		f.Close()
		return fuse.EIO
	}

	handleID := fs.nextHandleID
	fs.nextHandleID++
	fs.fileHandles[handleID] = f

	rec.lookupCount++
	op.Entry = fuseops.ChildInodeEntry{Child: rec.id, Generation: 1, Attributes: attrs}
	op.Handle = handleID
	return nil
}

// Unlink detaches the file from the parent path's tags only; if that leaves
// it with zero tags it is removed from the index and its backing file
// deleted (spec.md §4.5, concrete scenario 6).
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) Unlink(op *fuseops.UnlinkOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, ok := fs.inodes[op.Parent]
	if !ok || parent.kind != kindDir {
		return fuse.ENOENT
	}

	childPath := path.Join(parent.virtualPath, op.Name)
	res := fs.resolver.Resolve(childPath)
	if res.Kind != resolver.KindFile {
		return fuse.ENOENT
	}

	parentTags := splitPath(parent.virtualPath)
	if err := fs.idx.DetachTagsFromFiles(parentTags, []tagindex.FileRecord{res.Record}); err != nil {
		return fuse.EIO
	}

	if len(fs.idx.TagsOfFiles([]tagindex.FileRecord{res.Record})) > 0 {
		return nil
	}

	if err := fs.idx.DetachFiles([]tagindex.FileRecord{res.Record}); err != nil {
		return fuse.EIO
	}

	backing := filepath.Join(fs.root, res.Record.BackingLocation)
	if err := os.Remove(backing); err != nil && !os.IsNotExist(err) {
		fs.log.Warnf("unlink: failed removing backing file %s: %v", backing, err)
	}

	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) OpenFile(op *fuseops.OpenFileOp) error {
	fs.mu.Lock()
	rec, ok := fs.inodes[op.Inode]
	fs.mu.Unlock()
	if !ok || rec.kind != kindFile {
		return fuse.ENOENT
	}

	backing := filepath.Join(fs.root, rec.record.BackingLocation)
	f, err := os.OpenFile(backing, os.O_RDWR, 0)
	if err != nil {
		return fuse.EIO
	}

	fs.mu.Lock()
	handleID := fs.nextHandleID
	fs.nextHandleID++
	fs.fileHandles[handleID] = f
	fs.mu.Unlock()

	op.Handle = handleID
	return nil
}

func (fs *fileSystem) handle(id fuseops.HandleID) (*os.File, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.fileHandles[id]
	return f, ok
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReadFile(op *fuseops.ReadFileOp) error {
	f, ok := fs.handle(op.Handle)
	if !ok {
		return fuse.EIO
	}

	n, err := f.ReadAt(op.Dst, op.Offset)
	op.BytesRead = n
	if err != nil && err != io.EOF {
		return fuse.EIO
	}
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) WriteFile(op *fuseops.WriteFileOp) error {
	f, ok := fs.handle(op.Handle)
	if !ok {
		return fuse.EIO
	}

	if _, err := f.WriteAt(op.Data, op.Offset); err != nil {
		return fuse.EIO
	}
	return nil
}

func (fs *fileSystem) syncHandle(id fuseops.HandleID) error {
	f, ok := fs.handle(id)
	if !ok {
		return fuse.EIO
	}
	if err := f.Sync(); err != nil {
		return fuse.EIO
	}
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) SyncFile(op *fuseops.SyncFileOp) error {
	return fs.syncHandle(op.Handle)
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) FlushFile(op *fuseops.FlushFileOp) error {
	return fs.syncHandle(op.Handle)
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	f, ok := fs.fileHandles[op.Handle]
	delete(fs.fileHandles, op.Handle)
	fs.mu.Unlock()

	if ok {
		f.Close()
	}
	return nil
}
