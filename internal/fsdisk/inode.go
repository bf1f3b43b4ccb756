package fsdisk

import "encoding/binary"

// DiskInode is the packed 32-byte on-disk inode record (spec §3):
// {type, size, nlinks, direct[INODE_NDIRECT]} with -1 meaning
// unallocated.
type DiskInode struct {
	Type   uint8
	NLinks uint16
	Size   uint32
	Direct [InodeNDirect]int32
}

// Free reports whether this inode record represents an unallocated slot.
// An inode with zero links is free; the direct pointers are not examined.
func (d DiskInode) Free() bool {
	return d.NLinks == 0
}

// Encode marshals d into an InodeSize-byte record:
// type(1) | pad(1) | nlinks(2) | size(4) | direct[6]*4(24) = 32 bytes.
func (d DiskInode) Encode() []byte {
	buf := make([]byte, InodeSize)
	buf[0] = d.Type
	binary.BigEndian.PutUint16(buf[2:4], d.NLinks)
	binary.BigEndian.PutUint32(buf[4:8], d.Size)
	for i, v := range d.Direct {
		off := 8 + i*4
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(v))
	}
	return buf
}

// DecodeInode reconstructs a DiskInode from an InodeSize-byte record.
func DecodeInode(buf []byte) DiskInode {
	var d DiskInode
	d.Type = buf[0]
	d.NLinks = binary.BigEndian.Uint16(buf[2:4])
	d.Size = binary.BigEndian.Uint32(buf[4:8])
	for i := range d.Direct {
		off := 8 + i*4
		d.Direct[i] = int32(binary.BigEndian.Uint32(buf[off : off+4]))
	}
	return d
}

// NewFreeInode returns an all-unallocated DiskInode record.
func NewFreeInode() DiskInode {
	d := DiskInode{}
	for i := range d.Direct {
		d.Direct[i] = Unallocated
	}
	return d
}
