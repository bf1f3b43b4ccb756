package fs

import (
	"github.com/eduos/eduos/internal/fs/fserrors"
	"github.com/eduos/eduos/internal/fsdisk"
)

// readInode loads inode i's disk record directly from its backing sector
// (used during mount to validate inodes before they're trusted in the
// in-memory table).
func (fs *FileSystem) readInode(i int32) (*inode, error) {
	buf := make([]byte, fsdisk.BlockSize)
	if err := fs.dev.ReadSector(fs.layout.Ino2Blk(int(i)), buf); err != nil {
		return nil, err
	}
	off := fs.layout.Ino2Off(int(i))
	d := fsdisk.DecodeInode(buf[off : off+fsdisk.InodeSize])
	return &inode{DiskInode: d, Num: i}, nil
}

// writeInode persists n's on-disk record to its sector via a partial
// write (only its InodeSize-byte slot in the shared 512-byte block).
func (fs *FileSystem) writeInode(n *inode) error {
	buf := n.DiskInode.Encode()
	off := fs.layout.Ino2Off(int(n.Num))
	if err := fs.dev.Modify(fs.layout.Ino2Blk(int(n.Num)), off, buf, len(buf)); err != nil {
		return err
	}
	n.Dirty = false
	return nil
}

// allocInode finds a free inode slot via get_free_entry and returns it,
// initialized and marked in-use, or fserrors.NoMoreInodes if the table
// is full.
func (fs *FileSystem) allocInode(typ uint8) (*inode, error) {
	num := fs.inodeBitmap.GetFreeEntry()
	if num < 0 {
		return nil, fserrors.NoMoreInodes
	}
	if num >= fs.maxInodes {
		fs.inodeBitmap.Clear(num)
		return nil, fserrors.NoMoreInodes
	}
	n := &fs.inodes[num]
	*n = inode{DiskInode: fsdisk.NewFreeInode(), Num: int32(num)}
	n.Type = typ
	n.Dirty = true
	return n, nil
}

// freeInode releases n's data blocks and inode-table slot, resetting it
// to a free record (spec §4.5's reduce_links: "free the inode (releases
// its direct data blocks and both bitmap bits)").
func (fs *FileSystem) freeInode(n *inode) error {
	for _, blk := range n.Direct {
		if blk != fsdisk.Unallocated {
			fs.dataBitmap.Clear(int(blk))
		}
	}
	fs.inodeBitmap.Clear(int(n.Num))
	*n = inode{DiskInode: fsdisk.NewFreeInode(), Num: n.Num}
	if err := fs.persistBitmaps(); err != nil {
		return err
	}
	return fs.writeInode(n)
}
