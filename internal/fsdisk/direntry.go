package fsdisk

import (
	"bytes"
	"encoding/binary"
)

// DirEntry pairs a filename with an inode number; directory contents are
// a dense array of these records stored as the directory's file data
// (spec §3).
type DirEntry struct {
	Name      string
	InodeNum  int32
}

// Encode marshals e into a fixed DirEntrySize-byte record: a NUL-padded
// name field followed by a big-endian inode number.
func (e DirEntry) Encode() []byte {
	buf := make([]byte, DirEntrySize)
	n := copy(buf[:MaxFilenameLen+1], e.Name)
	_ = n
	binary.BigEndian.PutUint32(buf[MaxFilenameLen+1:], uint32(e.InodeNum))
	return buf
}

// DecodeDirEntry reconstructs a DirEntry from a DirEntrySize-byte record.
func DecodeDirEntry(buf []byte) DirEntry {
	nameBuf := buf[:MaxFilenameLen+1]
	if i := bytes.IndexByte(nameBuf, 0); i >= 0 {
		nameBuf = nameBuf[:i]
	}
	return DirEntry{
		Name:     string(nameBuf),
		InodeNum: int32(binary.BigEndian.Uint32(buf[MaxFilenameLen+1:])),
	}
}
