package fs

import (
	"strings"

	"github.com/eduos/eduos/internal/fs/fserrors"
	"github.com/eduos/eduos/internal/fsdisk"
	"github.com/eduos/eduos/internal/kernel/sched"
)

// listDirEntries decodes dir's entire contents as a dense array of
// directory-entry records (spec §4.5: "directory contents are a dense
// array of directory entries stored as the file's data").
func (fs *FileSystem) listDirEntries(dir *inode) ([]fsdisk.DirEntry, error) {
	buf := make([]byte, dir.Size)
	if len(buf) == 0 {
		return nil, nil
	}
	if _, err := fs.readAt(dir, buf, 0); err != nil {
		return nil, err
	}
	n := len(buf) / fsdisk.DirEntrySize
	entries := make([]fsdisk.DirEntry, n)
	for i := 0; i < n; i++ {
		entries[i] = fsdisk.DecodeDirEntry(buf[i*fsdisk.DirEntrySize : (i+1)*fsdisk.DirEntrySize])
	}
	return entries, nil
}

// createDirectoryEntry grows dir by one directory-entry record, appends
// {name, targetIno}, and increments the target inode's link count (spec
// §4.5's create_directory_entry).
func (fs *FileSystem) createDirectoryEntry(dir *inode, targetIno int32, name string) error {
	if len(name) > fsdisk.MaxFilenameLen {
		return fserrors.InvalidName
	}
	entry := fsdisk.DirEntry{Name: name, InodeNum: targetIno}
	if _, err := fs.writeAt(dir, entry.Encode(), int64(dir.Size)); err != nil {
		return err
	}
	target := &fs.inodes[targetIno]
	target.NLinks++
	target.Dirty = true
	return fs.writeInode(target)
}

// createDirectory allocates an inode, marks it type=dir, and inserts its
// "." and ".." entries; parent == -1 means root, whose ".." refers to
// itself (spec §4.5's create_directory). On failure the new inode is
// freed rather than left half-initialized.
func (fs *FileSystem) createDirectory(parent int32) (int32, error) {
	n, err := fs.allocInode(fsdisk.TypeDir)
	if err != nil {
		return 0, err
	}
	self := n.Num
	parentIno := parent
	if parentIno < 0 {
		parentIno = self
	}
	if err := fs.createDirectoryEntry(n, self, "."); err != nil {
		fs.freeInode(n)
		return 0, err
	}
	if err := fs.createDirectoryEntry(n, parentIno, ".."); err != nil {
		fs.freeInode(n)
		return 0, err
	}
	return self, nil
}

// reduceLinks decrements id's link count; if it reaches zero, or id
// names a directory (which is never hardlinked per the Non-goals), the
// inode is freed outright (spec §4.5's reduce_links).
func (fs *FileSystem) reduceLinks(id int32) error {
	n := &fs.inodes[id]
	n.NLinks--
	if n.NLinks <= 0 || n.Type == fsdisk.TypeDir {
		return fs.freeInode(n)
	}
	n.Dirty = true
	return fs.writeInode(n)
}

// removalJob is one step of the iterative postorder walk removeDirectoryEntry
// performs: remove id from the directory numbered dirNum. expanded marks
// whether id's own children (if any) have already been pushed onto the
// work-list.
type removalJob struct {
	dirNum   int32
	id       int32
	expanded bool
}

// removeDirectoryEntry removes the entry naming id from the directory
// numbered dirNum. If id is itself a directory, every entry it contains
// other than "." and ".." is removed first. Implemented with an explicit
// work-list rather than function recursion, per DESIGN.md's Open
// Question decision on recursive directory deletion's stack depth
// (spec §9). Every individual removal step shrinks exactly one entry
// from its own containing directory, per the Open Question decision
// correcting remove_directory_entry's parent-array rebuild bug.
func (fs *FileSystem) removeDirectoryEntry(dirNum, id int32) error {
	work := []*removalJob{{dirNum: dirNum, id: id}}
	for len(work) > 0 {
		top := work[len(work)-1]
		if !top.expanded {
			top.expanded = true
			target := &fs.inodes[top.id]
			if target.Type == fsdisk.TypeDir {
				children, err := fs.listDirEntries(target)
				if err != nil {
					return err
				}
				for _, c := range children {
					if c.Name == "." || c.Name == ".." {
						continue
					}
					work = append(work, &removalJob{dirNum: top.id, id: c.InodeNum})
				}
			}
			continue
		}
		if err := fs.removeOneEntry(top.dirNum, top.id); err != nil {
			return err
		}
		work = work[:len(work)-1]
	}
	return nil
}

// removeOneEntry finds the entry naming id inside the directory numbered
// dirNum, compacts it out of the dense entry array, shrinks dir
// accordingly, and reduces id's link count. Used by removeDirectoryEntry's
// work-list walk, where every id it's called with has exactly one entry
// in its parent (directories are never hardlinked per spec §1's
// Non-goals, so no ambiguity arises there).
func (fs *FileSystem) removeOneEntry(dirNum, id int32) error {
	return fs.removeEntryMatching(dirNum, func(e fsdisk.DirEntry) bool {
		return e.InodeNum == id
	}, id)
}

// removeEntryByName finds the entry named name inside the directory
// numbered dirNum and removes it, disambiguating the case Unlink needs
// that removeOneEntry's id-only match cannot: two names hardlinked to
// the same inode in the same directory.
func (fs *FileSystem) removeEntryByName(dirNum int32, name string) error {
	dir := &fs.inodes[dirNum]
	entries, err := fs.listDirEntries(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name == name {
			return fs.removeEntryMatching(dirNum, func(c fsdisk.DirEntry) bool {
				return c.Name == name
			}, e.InodeNum)
		}
	}
	return fserrors.NotExist
}

// removeEntryMatching compacts the first entry satisfying match out of
// dirNum's dense entry array, shrinks it accordingly, and reduces
// targetIno's link count.
func (fs *FileSystem) removeEntryMatching(dirNum int32, match func(fsdisk.DirEntry) bool, targetIno int32) error {
	dir := &fs.inodes[dirNum]
	entries, err := fs.listDirEntries(dir)
	if err != nil {
		return err
	}

	idx := -1
	for i, e := range entries {
		if match(e) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fserrors.NotExist
	}
	remaining := append(entries[:idx], entries[idx+1:]...)

	for i, e := range remaining {
		if err := fs.transfer(dir, e.Encode(), int64(i*fsdisk.DirEntrySize), true); err != nil {
			return err
		}
	}
	if err := fs.resizeInode(dir, int64(len(remaining)*fsdisk.DirEntrySize)); err != nil {
		return err
	}

	return fs.reduceLinks(targetIno)
}

// name2Inode resolves path to an inode number. Paths beginning with "/"
// resolve from the mount root; otherwise from owner's cwd (spec §4.5's
// name2inode, redesigned per DESIGN.md's Open Question decision on the
// absolute-path bug). An empty remaining path segment names the current
// directory itself.
func (fs *FileSystem) name2Inode(owner sched.TaskID, path string) (int32, error) {
	cur := fs.Cwd(owner)
	rest := path
	if strings.HasPrefix(path, "/") {
		cur = fs.super.RootInode
		rest = strings.TrimPrefix(path, "/")
	}

	for rest != "" {
		component, remainder := rest, ""
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			component, remainder = rest[:idx], rest[idx+1:]
		}
		if component == "" {
			rest = remainder
			continue
		}

		dir := &fs.inodes[cur]
		if dir.Type != fsdisk.TypeDir {
			return 0, fserrors.DirIsFile
		}
		entries, err := fs.listDirEntries(dir)
		if err != nil {
			return 0, err
		}
		found := int32(-1)
		for _, e := range entries {
			if e.Name == component {
				found = e.InodeNum
				break
			}
		}
		if found < 0 {
			return 0, fserrors.NotExist
		}
		cur = found
		rest = remainder
	}
	return cur, nil
}
