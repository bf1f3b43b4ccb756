package fsdisk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmapGetFreeEntryIsMSBFirst(t *testing.T) {
	var b Bitmap
	b.Set(0) // bit 0 is the MSB of byte 0
	assert.Equal(t, byte(0x80), b[0])

	idx := b.GetFreeEntry()
	assert.Equal(t, 1, idx)
	assert.Equal(t, byte(0xC0), b[0])
}

// TestBitmapFreeRestoresOriginal reproduces spec §8's round-trip
// property: free_bitmap_entry(get_free_entry(b), b) restores b.
func TestBitmapFreeRestoresOriginal(t *testing.T) {
	var b Bitmap
	b.Set(3)
	b.Set(10)
	before := b

	idx := b.GetFreeEntry()
	b.Clear(idx)

	assert.Equal(t, before, b)
}

func TestBitmapFullReturnsNegativeOne(t *testing.T) {
	var b Bitmap
	for i := 0; i < BitmapBits; i++ {
		b.Set(i)
	}
	assert.Equal(t, -1, b.GetFreeEntry())
}

func TestDiskInodeEncodeDecodeRoundTrip(t *testing.T) {
	d := NewFreeInode()
	d.Type = TypeFile
	d.NLinks = 1
	d.Size = 1234
	d.Direct[0] = 7
	d.Direct[1] = 9

	buf := d.Encode()
	assert.Len(t, buf, InodeSize)

	got := DecodeInode(buf)
	assert.Equal(t, d, got)
}

func TestDirEntryEncodeDecodeRoundTrip(t *testing.T) {
	e := DirEntry{Name: "hello.txt", InodeNum: 42}
	buf := e.Encode()
	assert.Len(t, buf, DirEntrySize)

	got := DecodeDirEntry(buf)
	assert.Equal(t, e, got)
}

func TestLayoutSixteenInodesPerBlock(t *testing.T) {
	l := Layout{SuperBlockStart: 0, MaxInodes: 64}
	assert.Equal(t, int64(3), l.Ino2Blk(0))
	assert.Equal(t, int64(3), l.Ino2Blk(15))
	assert.Equal(t, int64(4), l.Ino2Blk(16))
	assert.Equal(t, 4, InodeBlocks(64))
	assert.Equal(t, int64(3+4), l.Idx2Blk(0))
}
