// Package fsdisk implements the on-disk layout primitives shared by
// internal/fs: the superblock, the two MSB-first bitmaps, and the packed
// disk-inode and directory-entry records, per spec §3/§4.5.
package fsdisk

const (
	// BlockSize is the filesystem's fixed data-block size (one sector).
	BlockSize = 512

	// InodeSize is the on-disk size of one packed DiskInode record.
	// 16 of them fit in one BlockSize block, exactly as spec §4.5 states.
	InodeSize       = 32
	InodesPerBlock  = BlockSize / InodeSize
	InodeNDirect    = 6
	MaxFilenameLen  = 27
	DirEntrySize    = MaxFilenameLen + 1 + 4 // name + NUL + int32 inode number

	// BitmapBytes is the fixed size of each of the two bitmaps (spec §3:
	// "Two 256-byte bitmaps").
	BitmapBytes = 256
	BitmapBits  = BitmapBytes * 8

	// Inode type tags.
	TypeFile = 0
	TypeDir  = 1

	// Unallocated marks an unused direct-block slot or root's parent.
	Unallocated = -1
)

// InodeBlocks is the number of blocks the inode table occupies for a
// given inode count, rounding up.
func InodeBlocks(maxInodes int) int {
	return (maxInodes + InodesPerBlock - 1) / InodesPerBlock
}

// Layout fixes the sector numbers of every fixed-position region,
// derived from the region's start sector and inode count (spec §4.5:
// "[superblock][inode-bitmap][data-bitmap][inode-blocks][data-blocks]").
type Layout struct {
	SuperBlockStart int64
	MaxInodes       int
}

// InodeBitmapSector is the sector immediately after the superblock.
func (l Layout) InodeBitmapSector() int64 { return l.SuperBlockStart + 1 }

// DataBitmapSector follows the inode bitmap.
func (l Layout) DataBitmapSector() int64 { return l.SuperBlockStart + 2 }

// Ino2Blk maps an inode number to its containing disk sector (spec
// §4.5: "ino2blk(i) = SUPER_BLOCK_START + 3 + i/16").
func (l Layout) Ino2Blk(i int) int64 {
	return l.SuperBlockStart + 3 + int64(i/InodesPerBlock)
}

// Ino2Off returns the byte offset of inode i within its block.
func (l Layout) Ino2Off(i int) int {
	return (i % InodesPerBlock) * InodeSize
}

// Idx2Blk maps a data-block index to its disk sector (spec §4.5:
// "idx2blk(k) = SUPER_BLOCK_START + 3 + INODE_BLOCKS + k").
func (l Layout) Idx2Blk(k int) int64 {
	return l.SuperBlockStart + 3 + int64(InodeBlocks(l.MaxInodes)) + int64(k)
}
