package fs

import (
	"github.com/eduos/eduos/internal/fsdisk"
	"github.com/eduos/eduos/internal/kernel/blockdev"
)

// Mkfs formats the filesystem region: zero both bitmaps, persist them,
// create the root directory, then write the superblock (spec §4.5:
// "fs_mkfs: zero both bitmaps, persist; create the root directory; write
// superblock").
func (fs *FileSystem) Mkfs() error {
	fs.inodeBitmap = fsdisk.Bitmap{}
	fs.dataBitmap = fsdisk.Bitmap{}

	for i := range fs.inodes {
		fs.inodes[i] = inode{DiskInode: fsdisk.NewFreeInode(), Num: int32(i)}
	}

	rootNum := int32(fs.inodeBitmap.GetFreeEntry())
	fs.super.RootInode = rootNum
	fs.super.NInodes = int32(fs.maxInodes)
	fs.super.MaxFilesize = int32(fs.maxFilesize)

	root := &fs.inodes[rootNum]
	root.Type = fsdisk.TypeDir
	// Root's ".." refers to itself (spec §4.5: "mark type=dir, insert '.'
	// (self) and '..' (parent, or self when parent is -1 for root)").
	// createDirectoryEntry bumps root's nlinks for each insert, so root
	// ends up with nlinks=2 from its own "." and "..", same as any other
	// directory's self-entry plus its parent's "..".
	if err := fs.createDirectoryEntry(root, rootNum, "."); err != nil {
		return err
	}
	if err := fs.createDirectoryEntry(root, rootNum, ".."); err != nil {
		return err
	}

	if err := fs.persistBitmaps(); err != nil {
		return err
	}
	return fs.writeSuperblock()
}

// Init mounts the filesystem: read the superblock, reformat via Mkfs on
// any mismatch, otherwise load the bitmaps and every live inode,
// validating each against invariants 6/7 (spec §4.5's fs_init).
func (fs *FileSystem) Init(ndataBlocks int) error {
	buf := make([]byte, fsdisk.BlockSize)
	if err := fs.dev.ReadSector(fs.layout.SuperBlockStart, buf); err != nil {
		return err
	}
	sb := fsdisk.DecodeSuperblock(buf)

	if int(sb.NInodes) != fs.maxInodes || int(sb.NDataBlocks) != ndataBlocks || int64(sb.MaxFilesize) != fs.maxFilesize {
		return fs.mkfsWithDataBlocks(ndataBlocks)
	}

	fs.super = sb
	if err := fs.loadBitmaps(); err != nil {
		return err
	}

	for i := 0; i < fs.maxInodes; i++ {
		if !fs.inodeBitmap.Get(i) {
			continue
		}
		d, err := fs.readInode(int32(i))
		if err != nil {
			return err
		}
		if !fs.validInode(d) {
			fs.inodeBitmap.Clear(i)
			continue
		}
		fs.inodes[i] = *d
	}
	return nil
}

func (fs *FileSystem) mkfsWithDataBlocks(ndataBlocks int) error {
	// Mkfs allocates the root directory's first data block, which is
	// bounds-checked against NDataBlocks, so it must be set beforehand.
	fs.super.NDataBlocks = int32(ndataBlocks)
	return fs.Mkfs()
}

// validInode checks invariant 6/7 conditions for a loaded inode: size
// within bound and every referenced direct block marked used.
func (fs *FileSystem) validInode(d *inode) bool {
	if int64(d.Size) > fs.maxFilesize {
		return false
	}
	for _, blk := range d.Direct {
		if blk == fsdisk.Unallocated {
			continue
		}
		if blk < 0 || !fs.dataBitmap.Get(int(blk)) {
			return false
		}
	}
	return true
}

func (fs *FileSystem) persistBitmaps() error {
	ib := fs.inodeBitmap.Encode()
	if err := fs.dev.WriteSector(fs.layout.InodeBitmapSector(), pad(ib)); err != nil {
		return err
	}
	db := fs.dataBitmap.Encode()
	return fs.dev.WriteSector(fs.layout.DataBitmapSector(), pad(db))
}

func (fs *FileSystem) loadBitmaps() error {
	buf := make([]byte, fsdisk.BlockSize)
	if err := fs.dev.ReadSector(fs.layout.InodeBitmapSector(), buf); err != nil {
		return err
	}
	fs.inodeBitmap = fsdisk.DecodeBitmap(buf)

	if err := fs.dev.ReadSector(fs.layout.DataBitmapSector(), buf); err != nil {
		return err
	}
	fs.dataBitmap = fsdisk.DecodeBitmap(buf)
	return nil
}

func (fs *FileSystem) writeSuperblock() error {
	return fs.dev.WriteSector(fs.layout.SuperBlockStart, fs.super.Encode())
}

func pad(b []byte) []byte {
	if len(b) >= blockdev.SectorSize {
		return b
	}
	out := make([]byte, blockdev.SectorSize)
	copy(out, b)
	return out
}
