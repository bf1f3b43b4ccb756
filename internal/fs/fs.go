// Package fs implements the on-disk filesystem: the in-memory inode
// table, directory operations, the per-task open-file table, and the
// fs_* syscalls, layered on internal/fsdisk's on-disk records and
// internal/kernel/blockdev's sector device (spec §4.5).
package fs

import (
	"github.com/eduos/eduos/internal/fsdisk"
	"github.com/eduos/eduos/internal/kernel/blockdev"
	"github.com/eduos/eduos/internal/kernel/ksync"
	"github.com/eduos/eduos/internal/kernel/sched"
)

// Mode bits for fs_open (spec §6): the low two bits select the access
// mode, bit 2 is the create flag.
const (
	ModeUnused = 0
	ModeRDONLY = 1
	ModeWRONLY = 2
	ModeRDWR   = 3
	ModeCREAT  = 4

	accessMask = 0x3
)

// Seek whence values (spec §6).
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

func canRead(mode int) bool  { return mode&ModeRDONLY != 0 }
func canWrite(mode int) bool { return mode&ModeWRONLY != 0 }

// DefaultMaxOpenFiles bounds each task's open-file table (spec §3: "fixed
// MAX_OPEN_FILES entries").
const DefaultMaxOpenFiles = 16

// inode is the in-memory inode record: the on-disk inode plus the
// bookkeeping spec §3 names ({open_count, pos, dirty, inode_num}).
//
// INVARIANT: inode.Num's bit is set in the inode bitmap iff NLinks >= 1
// (spec invariant 6). Nothing in this package checks it at run time.
type inode struct {
	fsdisk.DiskInode
	Num       int32
	OpenCount int
	Pos       int64
	Dirty     bool
}

type openFileEntry struct {
	inUse bool
	mode  int
	inode int32
}

// FileSystem is the mounted filesystem: one per Kernel.
//
// Dependencies: a blockdev.Device for sector I/O, a sched.Scheduler only
// indirectly through the optional concurrency-hardening Lock.
// Constant data: layout, maxInodes, maxFilesize, maxOpenFiles.
// Mutable state: the two bitmaps, the in-memory inode table, and every
// task's open-file table and current-working-directory inode.
type FileSystem struct {
	dev    blockdev.Device
	layout fsdisk.Layout

	maxInodes    int
	maxFilesize  int64
	maxOpenFiles int

	super       fsdisk.Superblock
	inodeBitmap fsdisk.Bitmap
	dataBitmap  fsdisk.Bitmap
	inodes      []inode

	openFiles map[sched.TaskID][]openFileEntry
	cwd       map[sched.TaskID]int32

	// lock is nil by default: spec §5 notes the filesystem has no
	// explicit lock because syscalls never yield between their I/O
	// operations under the single-token scheduler. Option is provided
	// per spec §9's "Concurrency hardening" note for callers who do
	// want it.
	lock *ksync.Lock
}

// Option configures a FileSystem at construction time.
type Option func(*FileSystem)

// WithLock wraps every syscall's critical path in l, for callers running
// under a scheduler where syscalls might yield mid-operation (spec §9's
// concurrency-hardening note; §6's default has no such lock).
func WithLock(l *ksync.Lock) Option {
	return func(fs *FileSystem) { fs.lock = l }
}

// New constructs a FileSystem over dev. Call Init to mount it.
func New(dev blockdev.Device, layout fsdisk.Layout, maxInodes int, maxFilesize int64, opts ...Option) *FileSystem {
	fs := &FileSystem{
		dev:          dev,
		layout:       layout,
		maxInodes:    maxInodes,
		maxFilesize:  maxFilesize,
		maxOpenFiles: DefaultMaxOpenFiles,
		inodes:       make([]inode, maxInodes),
		openFiles:    make(map[sched.TaskID][]openFileEntry),
		cwd:          make(map[sched.TaskID]int32),
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// lockFor and unlockFor bracket every syscall's body. They are no-ops
// unless WithLock was supplied at construction (spec §9's optional
// concurrency-hardening path; spec §5's default has no lock at all).
func (fs *FileSystem) lockFor(owner sched.TaskID) {
	if fs.lock != nil {
		fs.lock.Acquire(owner)
	}
}

func (fs *FileSystem) unlockFor() {
	if fs.lock != nil {
		fs.lock.Release()
	}
}

// openFilesFor ensures owner has an open-file table, lazily sized to
// maxOpenFiles, and returns it.
func (fs *FileSystem) openFilesFor(owner sched.TaskID) []openFileEntry {
	t, ok := fs.openFiles[owner]
	if !ok {
		t = make([]openFileEntry, fs.maxOpenFiles)
		fs.openFiles[owner] = t
	}
	return t
}

// Cwd returns owner's current-working-directory inode, defaulting to the
// root inode the first time a task is seen.
func (fs *FileSystem) Cwd(owner sched.TaskID) int32 {
	if ino, ok := fs.cwd[owner]; ok {
		return ino
	}
	fs.cwd[owner] = fs.super.RootInode
	return fs.super.RootInode
}
