package fs

import (
	"strings"

	"github.com/eduos/eduos/internal/fs/fserrors"
	"github.com/eduos/eduos/internal/fsdisk"
	"github.com/eduos/eduos/internal/kernel/sched"
)

// splitPath divides path into the directory portion to resolve and the
// final path component, the way fs_open needs to when creating a new
// entry: "a/b/c" -> ("a/b/", "c"); "c" -> ("", "c"); "/c" -> ("/", "c").
func splitPath(path string) (dir, base string) {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx+1], path[idx+1:]
	}
	return "", path
}

// Open finds the first unused open-file-table slot, resolves name
// (creating it if MODE_CREAT is set and it doesn't exist), records the
// mode and inode, resets pos, and increments the inode's open count
// (spec §4.5's fs_open).
func (fs *FileSystem) Open(owner sched.TaskID, name string, mode int) (int, error) {
	fs.lockFor(owner)
	defer fs.unlockFor()

	table := fs.openFilesFor(owner)
	fd := -1
	for i, e := range table {
		if !e.inUse {
			fd = i
			break
		}
	}
	if fd < 0 {
		return -1, fserrors.Error
	}
	if mode&accessMask == ModeUnused {
		return -1, fserrors.InvalidMode
	}

	ino, err := fs.name2Inode(owner, name)
	if err != nil {
		if err != fserrors.NotExist || mode&ModeCREAT == 0 {
			return -1, err
		}
		ino, err = fs.createFile(owner, name)
		if err != nil {
			return -1, err
		}
	}

	target := &fs.inodes[ino]
	if target.Type == fsdisk.TypeDir {
		return -1, fserrors.DirIsFile
	}

	target.Pos = 0
	target.OpenCount++
	table[fd] = openFileEntry{inUse: true, mode: mode, inode: ino}
	return fd, nil
}

func (fs *FileSystem) createFile(owner sched.TaskID, name string) (int32, error) {
	dirPath, base := splitPath(name)
	if base == "" || len(base) > fsdisk.MaxFilenameLen {
		return 0, fserrors.InvalidName
	}
	parentIno, err := fs.name2Inode(owner, dirPath)
	if err != nil {
		return 0, err
	}
	parent := &fs.inodes[parentIno]
	if parent.Type != fsdisk.TypeDir {
		return 0, fserrors.DirIsFile
	}

	n, err := fs.allocInode(fsdisk.TypeFile)
	if err != nil {
		return 0, err
	}
	if err := fs.createDirectoryEntry(parent, n.Num, base); err != nil {
		fs.freeInode(n)
		return 0, err
	}
	return n.Num, nil
}

func (fs *FileSystem) lookupFD(owner sched.TaskID, fd int) (*openFileEntry, error) {
	table := fs.openFilesFor(owner)
	if fd < 0 || fd >= len(table) || !table[fd].inUse {
		return nil, fserrors.Error
	}
	return &table[fd], nil
}

// Close decrements the inode's open count and clears the slot (spec
// §4.5's fs_close).
func (fs *FileSystem) Close(owner sched.TaskID, fd int) error {
	fs.lockFor(owner)
	defer fs.unlockFor()

	entry, err := fs.lookupFD(owner, fd)
	if err != nil {
		return err
	}
	fs.inodes[entry.inode].OpenCount--
	*entry = openFileEntry{}
	return nil
}

// Read transfers up to len(buf) bytes from fd's current pos, clamped to
// the file's size, and advances pos by the amount transferred via
// SEEK_CUR (spec §4.5's fs_read).
func (fs *FileSystem) Read(owner sched.TaskID, fd int, buf []byte) (int, error) {
	fs.lockFor(owner)
	defer fs.unlockFor()

	entry, err := fs.lookupFD(owner, fd)
	if err != nil {
		return 0, err
	}
	if !canRead(entry.mode) {
		return 0, fserrors.InvalidMode
	}

	n := &fs.inodes[entry.inode]
	read, err := fs.readAt(n, buf, n.Pos)
	if err != nil {
		return 0, err
	}
	if _, err := fs.seek(n, entry.mode, int64(read), SeekCur); err != nil {
		return 0, err
	}
	return read, nil
}

// Write transfers len(buf) bytes to fd's current pos, growing the file
// (up to max_filesize) as needed, and advances pos by the amount
// transferred via SEEK_CUR (spec §4.5's fs_write).
func (fs *FileSystem) Write(owner sched.TaskID, fd int, buf []byte) (int, error) {
	fs.lockFor(owner)
	defer fs.unlockFor()

	entry, err := fs.lookupFD(owner, fd)
	if err != nil {
		return 0, err
	}
	if !canWrite(entry.mode) {
		return 0, fserrors.InvalidMode
	}

	n := &fs.inodes[entry.inode]
	written, err := fs.writeAt(n, buf, n.Pos)
	if err != nil {
		return 0, err
	}
	if _, err := fs.seek(n, entry.mode, int64(written), SeekCur); err != nil {
		return 0, err
	}
	return written, nil
}

// Lseek repositions fd per whence (spec §4.5's fs_lseek). Growing past
// the file's current size while open for writing triggers a resize (up
// to max_filesize); the *computed* absolute position is what's passed
// to resize in every whence mode, correcting spec §9's flagged
// raw-offset bug (DESIGN.md Open Question decision 2).
func (fs *FileSystem) Lseek(owner sched.TaskID, fd int, offset int64, whence int) (int64, error) {
	fs.lockFor(owner)
	defer fs.unlockFor()

	entry, err := fs.lookupFD(owner, fd)
	if err != nil {
		return 0, err
	}
	return fs.seek(&fs.inodes[entry.inode], entry.mode, offset, whence)
}

func (fs *FileSystem) seek(n *inode, mode int, offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case SeekSet:
		pos = offset
	case SeekCur:
		pos = n.Pos + offset
	case SeekEnd:
		pos = int64(n.Size) + offset
	default:
		return 0, fserrors.Error
	}
	if pos < 0 {
		pos = 0
	}
	if pos > fs.maxFilesize {
		pos = fs.maxFilesize
	}

	if canWrite(mode) && pos > int64(n.Size) {
		if err := fs.resizeInode(n, pos); err != nil {
			return 0, err
		}
	}
	n.Pos = pos
	return pos, nil
}
