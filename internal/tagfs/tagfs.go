// Package tagfs implements the FS operation handler (spec.md §4.5): a
// fuseutil.FileSystem that translates create/read/unlink/mkdir/rmdir
// callbacks into internal/tagindex mutations and internal/resolver lookups,
// grounded on the teacher's fs/fs.go inode-bookkeeping pattern
// (mintInode/lookUpOrCreateChildInode, lookup-count-based ForgetInode) but
// with one coarse mutex in place of the teacher's per-inode
// syncutil.InvariantMutex discipline, per spec.md §5.
package tagfs

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/santileortiz/dhtfs/cfg"
	"github.com/santileortiz/dhtfs/internal/logger"
	"github.com/santileortiz/dhtfs/internal/resolver"
	"github.com/santileortiz/dhtfs/internal/seqgen"
	"github.com/santileortiz/dhtfs/internal/tagindex"
)

// defaultGCPeriod mirrors the teacher's fs/garbage_collect.go sweep
// interval.
const defaultGCPeriod = 10 * time.Minute

type inodeKind int

const (
	kindDir inodeKind = iota
	kindFile
)

// inodeRecord is this package's replacement for the teacher's
// inode.Inode/GenerationBackedInode split: one lighter record type covers
// both kinds, distinguishing on kind instead of a Go interface, since there
// is no GCS-generation staleness handling left to dispatch on.
type inodeRecord struct {
	id          fuseops.InodeID
	kind        inodeKind
	virtualPath string // valid for kindDir; canonical path.Clean form
	tag         string // valid for kindDir, empty at the root
	record      tagindex.FileRecord
	lookupCount uint64
}

type dirHandle struct {
	entries []fuseutil.Dirent
}

// fileSystem is the fuseutil.FileSystem implementation. Unimplemented
// operations (rename, symlinks, xattrs) fall through to
// NotImplementedFileSystem's ENOSYS default, matching spec.md §4.5's "rename:
// not supported" and the absence of any symlink/xattr operation in spec.md.
type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	mu sync.Mutex

	root     string
	idx      *tagindex.Index
	seq      *seqgen.Generator
	resolver *resolver.Resolver
	log      *logger.Logger

	coverMode     cfg.CoverMode
	maxDirEntries uint32
	dirPerm       os.FileMode
	uid, gid      uint32

	nextInodeID fuseops.InodeID
	inodes      map[fuseops.InodeID]*inodeRecord

	dirInodesByPath      map[string]fuseops.InodeID
	fileInodesByLocation map[string]fuseops.InodeID

	nextHandleID fuseops.HandleID
	dirHandles   map[fuseops.HandleID]*dirHandle
	fileHandles  map[fuseops.HandleID]*os.File
}

// ServerConfig mirrors the teacher's fs.ServerConfig: the caller wires the
// persisted components (Index, Seq) and hands them, already loaded, to
// NewServer, rather than fileSystem owning their lifecycle.
type ServerConfig struct {
	Root          string
	Index         *tagindex.Index
	Seq           *seqgen.Generator
	Resolver      *resolver.Resolver
	Logger        *logger.Logger
	CoverMode     cfg.CoverMode
	MaxDirEntries uint32
	DirPerm       os.FileMode
	Uid           uint32
	Gid           uint32
	// GCPeriod overrides the orphan-sweep interval; zero means
	// defaultGCPeriod.
	GCPeriod time.Duration
}

// NewServer builds a fuse.Server exporting the tag filesystem rooted at
// cfg.Root, grounded on the teacher's fs.NewServer (basic-struct
// construction, root inode pre-seeded with lookup count 1). It also starts
// the orphan-sweep background goroutine, mirroring the teacher's
// "go garbageCollect(gcCtx, ...)" call; the returned stop func cancels it
// and must be called once the server is torn down.
func NewServer(c *ServerConfig) (fuse.Server, func(), error) {
	log := c.Logger
	if log == nil {
		log = logger.Default()
	}

	fs := &fileSystem{
		root:                 c.Root,
		idx:                  c.Index,
		seq:                  c.Seq,
		resolver:             c.Resolver,
		log:                  log,
		coverMode:            c.CoverMode,
		maxDirEntries:        c.MaxDirEntries,
		dirPerm:              c.DirPerm,
		uid:                  c.Uid,
		gid:                  c.Gid,
		nextInodeID:          fuseops.RootInodeID + 1,
		inodes:               make(map[fuseops.InodeID]*inodeRecord),
		dirInodesByPath:      make(map[string]fuseops.InodeID),
		fileInodesByLocation: make(map[string]fuseops.InodeID),
		nextHandleID:         fuseops.HandleID(1),
		dirHandles:           make(map[fuseops.HandleID]*dirHandle),
		fileHandles:          make(map[fuseops.HandleID]*os.File),
	}

	root := &inodeRecord{
		id:          fuseops.RootInodeID,
		kind:        kindDir,
		virtualPath: "/",
		lookupCount: 1,
	}
	fs.inodes[fuseops.RootInodeID] = root
	fs.dirInodesByPath["/"] = fuseops.RootInodeID

	period := c.GCPeriod
	if period <= 0 {
		period = defaultGCPeriod
	}
	gcCtx, cancel := context.WithCancel(context.Background())
	go fs.runGarbageCollectLoop(gcCtx, period)

	return fuseutil.NewFileSystemServer(fs), cancel, nil
}

func splitPath(virtualPath string) []string {
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

func (fs *fileSystem) tagKnown(tag string) bool {
	for _, t := range fs.idx.AllTags() {
		if t == tag {
			return true
		}
	}
	return false
}

// ensureTagDir lazily creates the backing t_<tag> directory, so that tags
// registered through internal/ingest (which only touches the index, never
// the disk) still resolve to a stat-able inode the first time the FS handler
// reaches them.
func (fs *fileSystem) ensureTagDir(tag string) error {
	return fs.ensureTagDirMode(tag, fs.dirPerm)
}

func (fs *fileSystem) ensureTagDirMode(tag string, mode os.FileMode) error {
	if mode == 0 {
		mode = fs.dirPerm
	}
	backing := filepath.Join(fs.root, resolver.TagDirPrefix+tag)
	if _, err := os.Stat(backing); err == nil {
		return nil
	}
	return os.MkdirAll(backing, mode)
}

func (fs *fileSystem) backingPathForRecord(rec *inodeRecord) string {
	if rec.kind == kindDir {
		if rec.virtualPath == "/" {
			return fs.root
		}
		return filepath.Join(fs.root, resolver.TagDirPrefix+rec.tag)
	}
	return filepath.Join(fs.root, rec.record.BackingLocation)
}

func attrsFromFileInfo(fi os.FileInfo, uid, gid uint32) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  uint64(fi.Size()),
		Nlink: 1,
		Mode:  fi.Mode(),
		Atime: fi.ModTime(),
		Mtime: fi.ModTime(),
		Ctime: fi.ModTime(),
		Uid:   uid,
		Gid:   gid,
	}
}

// EXCLUSIVE_LOCKS_REQUIRED(fs.mu) via backingPathForRecord's use of rec, but
// the stat syscall itself is not guarded: long-running backing I/O need not
// hold the index lock per spec.md §5.
func (fs *fileSystem) attributesForRecord(rec *inodeRecord) (fuseops.InodeAttributes, error) {
	backing := fs.backingPathForRecord(rec)
	fi, err := os.Stat(backing)
	if err != nil {
		return fuseops.InodeAttributes{}, err
	}
	return attrsFromFileInfo(fi, fs.uid, fs.gid), nil
}

// getOrMintDirInode returns the existing inode for virtualPath or mints one.
// LOCKS_REQUIRED(fs.mu)
func (fs *fileSystem) getOrMintDirInode(virtualPath, tag string) *inodeRecord {
	if id, ok := fs.dirInodesByPath[virtualPath]; ok {
		return fs.inodes[id]
	}

	id := fs.nextInodeID
	fs.nextInodeID++

	rec := &inodeRecord{id: id, kind: kindDir, virtualPath: virtualPath, tag: tag}
	fs.inodes[id] = rec
	fs.dirInodesByPath[virtualPath] = id
	return rec
}

// getOrMintFileInode returns the existing inode for record's backing
// location or mints one, matching spec.md §4.5's "file inode keyed by
// backing-location" invariant.
// LOCKS_REQUIRED(fs.mu)
func (fs *fileSystem) getOrMintFileInode(record tagindex.FileRecord) *inodeRecord {
	if id, ok := fs.fileInodesByLocation[record.BackingLocation]; ok {
		return fs.inodes[id]
	}

	id := fs.nextInodeID
	fs.nextInodeID++

	rec := &inodeRecord{id: id, kind: kindFile, record: record}
	fs.inodes[id] = rec
	fs.fileInodesByLocation[record.BackingLocation] = id
	return rec
}

func (fs *fileSystem) Init(op *fuseops.InitOp) error {
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) LookUpInode(op *fuseops.LookUpInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, ok := fs.inodes[op.Parent]
	if !ok || parent.kind != kindDir {
		return fuse.ENOENT
	}

	childPath := path.Join(parent.virtualPath, op.Name)
	res := fs.resolver.Resolve(childPath)

	switch res.Kind {
	case resolver.KindTagDir:
		if err := fs.ensureTagDir(res.Tag); err != nil {
			return fuse.EIO
		}
		rec := fs.getOrMintDirInode(path.Clean(childPath), res.Tag)
		attrs, err := fs.attributesForRecord(rec)
		if err != nil {
			return fuse.EIO
		}
		rec.lookupCount++
		op.Entry = fuseops.ChildInodeEntry{Child: rec.id, Generation: 1, Attributes: attrs}
		return nil

	case resolver.KindFile:
		rec := fs.getOrMintFileInode(res.Record)
		attrs, err := fs.attributesForRecord(rec)
		if err != nil {
			return fuse.EIO
		}
		rec.lookupCount++
		op.Entry = fuseops.ChildInodeEntry{Child: rec.id, Generation: 1, Attributes: attrs}
		return nil

	default:
		return fuse.ENOENT
	}
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	rec, ok := fs.inodes[op.Inode]
	fs.mu.Unlock()
	if !ok {
		return fuse.ENOENT
	}

	attrs, err := fs.attributesForRecord(rec)
	if err != nil {
		return fuse.ENOENT
	}
	op.Attributes = attrs
	return nil
}

// SetInodeAttributes delegates chmod/truncate/utime to the backing
// filesystem per spec.md §4.5. fuseops.SetInodeAttributesOp has no Uid/Gid
// fields in this binding, so chown has no surface to attach to here and is
// not supported.
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) error {
	fs.mu.Lock()
	rec, ok := fs.inodes[op.Inode]
	fs.mu.Unlock()
	if !ok {
		return fuse.ENOENT
	}

	backing := fs.backingPathForRecord(rec)

	if op.Mode != nil {
		if err := os.Chmod(backing, *op.Mode); err != nil {
			return fuse.EIO
		}
	}

	if op.Size != nil {
		if rec.kind != kindFile {
			return fuse.EINVAL
		}
		if err := os.Truncate(backing, int64(*op.Size)); err != nil {
			return fuse.EIO
		}
	}

	if op.Atime != nil || op.Mtime != nil {
		fi, err := os.Stat(backing)
		if err != nil {
			return fuse.EIO
		}
		atime, mtime := fi.ModTime(), fi.ModTime()
		if op.Atime != nil {
			atime = *op.Atime
		}
		if op.Mtime != nil {
			mtime = *op.Mtime
		}
		if err := os.Chtimes(backing, atime, mtime); err != nil {
			return fuse.EIO
		}
	}

	attrs, err := fs.attributesForRecord(rec)
	if err != nil {
		return fuse.EIO
	}
	op.Attributes = attrs
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ForgetInode(op *fuseops.ForgetInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, ok := fs.inodes[op.Inode]
	if !ok {
		return nil
	}

	if uint64(op.N) >= rec.lookupCount {
		delete(fs.inodes, op.Inode)
		if rec.kind == kindDir {
			delete(fs.dirInodesByPath, rec.virtualPath)
		} else {
			delete(fs.fileInodesByLocation, rec.record.BackingLocation)
		}
		return nil
	}

	rec.lookupCount -= uint64(op.N)
	return nil
}
