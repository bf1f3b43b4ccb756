package fsdisk

import "encoding/binary"

// Superblock is persisted at sector SuperBlockStart (spec §3).
type Superblock struct {
	NInodes     int32
	NDataBlocks int32
	MaxFilesize int32
	RootInode   int32
}

// Encode marshals sb into a BlockSize-sized sector buffer.
func (sb Superblock) Encode() []byte {
	buf := make([]byte, BlockSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(sb.NInodes))
	binary.BigEndian.PutUint32(buf[4:8], uint32(sb.NDataBlocks))
	binary.BigEndian.PutUint32(buf[8:12], uint32(sb.MaxFilesize))
	binary.BigEndian.PutUint32(buf[12:16], uint32(sb.RootInode))
	return buf
}

// DecodeSuperblock reconstructs a Superblock from a sector buffer.
func DecodeSuperblock(buf []byte) Superblock {
	return Superblock{
		NInodes:     int32(binary.BigEndian.Uint32(buf[0:4])),
		NDataBlocks: int32(binary.BigEndian.Uint32(buf[4:8])),
		MaxFilesize: int32(binary.BigEndian.Uint32(buf[8:12])),
		RootInode:   int32(binary.BigEndian.Uint32(buf[12:16])),
	}
}
