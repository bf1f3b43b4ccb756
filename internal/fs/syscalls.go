package fs

import (
	"github.com/eduos/eduos/internal/fs/fserrors"
	"github.com/eduos/eduos/internal/fsdisk"
	"github.com/eduos/eduos/internal/kernel/sched"
)

// Stat mirrors the fields a caller needs out of an inode without
// exposing the in-memory record itself (spec §6's fs_stat syscall).
type Stat struct {
	Type   uint8
	Size   int64
	NLinks uint16
}

// Mkdir resolves the parent of name, creates a new directory inode, and
// inserts it as a directory entry in the parent (spec §4.5's
// create_directory + create_directory_entry, wired to the mkdir
// syscall).
func (fs *FileSystem) Mkdir(owner sched.TaskID, name string) error {
	fs.lockFor(owner)
	defer fs.unlockFor()

	dirPath, base := splitPath(name)
	if base == "" || len(base) > fsdisk.MaxFilenameLen {
		return fserrors.InvalidName
	}
	parentIno, err := fs.name2Inode(owner, dirPath)
	if err != nil {
		return err
	}
	parent := &fs.inodes[parentIno]
	if parent.Type != fsdisk.TypeDir {
		return fserrors.DirIsFile
	}

	child, err := fs.createDirectory(parentIno)
	if err != nil {
		return err
	}
	if err := fs.createDirectoryEntry(parent, child, base); err != nil {
		fs.freeInode(&fs.inodes[child])
		return err
	}
	return nil
}

// Chdir resolves path and, if it names a directory, sets it as owner's
// current-working-directory inode.
func (fs *FileSystem) Chdir(owner sched.TaskID, path string) error {
	fs.lockFor(owner)
	defer fs.unlockFor()

	ino, err := fs.name2Inode(owner, path)
	if err != nil {
		return err
	}
	if fs.inodes[ino].Type != fsdisk.TypeDir {
		return fserrors.DirIsFile
	}
	fs.cwd[owner] = ino
	return nil
}

// Rmdir resolves path, verifies it names an empty-of-real-content
// directory distinct from the mount root, and removes its entry from its
// parent (spec §4.5's remove_directory_entry, via the rmdir syscall).
func (fs *FileSystem) Rmdir(owner sched.TaskID, path string) error {
	fs.lockFor(owner)
	defer fs.unlockFor()

	ino, err := fs.name2Inode(owner, path)
	if err != nil {
		return err
	}
	if ino == fs.super.RootInode {
		return fserrors.Error
	}
	target := &fs.inodes[ino]
	if target.Type != fsdisk.TypeDir {
		return fserrors.DirIsFile
	}

	dirPath, base := splitPath(path)
	parentIno, err := fs.name2Inode(owner, dirPath)
	if err != nil {
		return err
	}
	if base == "." || base == ".." {
		return fserrors.InvalidName
	}
	return fs.removeDirectoryEntry(parentIno, ino)
}

// Link resolves existing, then inserts a new directory entry named new
// pointing at the same inode, bumping its nlinks (spec §6's link
// syscall; directory hardlinks are excluded per spec §1's Non-goals, so
// existing must name a file).
func (fs *FileSystem) Link(owner sched.TaskID, newName, existing string) error {
	fs.lockFor(owner)
	defer fs.unlockFor()

	targetIno, err := fs.name2Inode(owner, existing)
	if err != nil {
		return err
	}
	if fs.inodes[targetIno].Type == fsdisk.TypeDir {
		return fserrors.DirIsFile
	}

	dirPath, base := splitPath(newName)
	if base == "" || len(base) > fsdisk.MaxFilenameLen {
		return fserrors.InvalidName
	}
	parentIno, err := fs.name2Inode(owner, dirPath)
	if err != nil {
		return err
	}
	parent := &fs.inodes[parentIno]
	if parent.Type != fsdisk.TypeDir {
		return fserrors.DirIsFile
	}
	return fs.createDirectoryEntry(parent, targetIno, base)
}

// Unlink removes name's directory entry and reduces its target's link
// count, freeing the inode once nlinks drops to zero (spec §4.5's
// reduce_links, via the unlink syscall).
func (fs *FileSystem) Unlink(owner sched.TaskID, name string) error {
	fs.lockFor(owner)
	defer fs.unlockFor()

	ino, err := fs.name2Inode(owner, name)
	if err != nil {
		return err
	}
	if fs.inodes[ino].Type == fsdisk.TypeDir {
		return fserrors.DirIsFile
	}

	dirPath, base := splitPath(name)
	parentIno, err := fs.name2Inode(owner, dirPath)
	if err != nil {
		return err
	}
	return fs.removeEntryByName(parentIno, base)
}

// StatFD returns the {type, size, nlinks} of the inode behind fd (spec
// §6's stat syscall).
func (fs *FileSystem) StatFD(owner sched.TaskID, fd int) (Stat, error) {
	fs.lockFor(owner)
	defer fs.unlockFor()

	entry, err := fs.lookupFD(owner, fd)
	if err != nil {
		return Stat{}, err
	}
	n := &fs.inodes[entry.inode]
	return Stat{Type: n.Type, Size: int64(n.Size), NLinks: n.NLinks}, nil
}
