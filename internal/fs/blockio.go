package fs

import (
	"github.com/eduos/eduos/internal/fs/fserrors"
	"github.com/eduos/eduos/internal/fsdisk"
)

func ceilBlocks(size int64) int {
	return int((size + fsdisk.BlockSize - 1) / fsdisk.BlockSize)
}

// resizeInode grows or shrinks n to newSize, allocating or freeing direct
// data blocks as needed (spec §4.5's resize_inode). The block count uses
// ceil(size/BLOCK_SIZE), resolving spec §9's flagged "+1" off-by-one —
// see DESIGN.md Open Question decision 4.
func (fs *FileSystem) resizeInode(n *inode, newSize int64) error {
	blocks := ceilBlocks(newSize)
	if blocks > fsdisk.InodeNDirect {
		// No indirect blocks exist (spec glossary): once the direct
		// array is exhausted there is no way to address further bytes,
		// regardless of how much max_filesize headroom remains.
		return fserrors.Full
	}
	for i := 0; i < fsdisk.InodeNDirect; i++ {
		switch {
		case i < blocks && n.Direct[i] == fsdisk.Unallocated:
			idx := fs.dataBitmap.GetFreeEntry()
			if idx < 0 || idx >= int(fs.super.NDataBlocks) {
				if idx >= 0 {
					fs.dataBitmap.Clear(idx)
				}
				return fserrors.Full
			}
			n.Direct[i] = int32(idx)
		case i >= blocks && n.Direct[i] != fsdisk.Unallocated:
			fs.dataBitmap.Clear(int(n.Direct[i]))
			n.Direct[i] = fsdisk.Unallocated
		}
	}
	n.Size = uint32(newSize)
	n.Dirty = true
	if err := fs.persistBitmaps(); err != nil {
		return err
	}
	return fs.writeInode(n)
}

// transfer moves data to or from n's direct blocks starting at byte
// offset pos, using partial-block reads/writes throughout. Using
// ReadPart/Modify uniformly (rather than switching to whole-sector
// ReadSector/WriteSector for interior blocks) is equivalent in effect to
// spec §4.5's "partial-block helpers for the first/last block, full-block
// transfers in between" since a length-512 partial transfer at offset 0
// is a full block transfer.
func (fs *FileSystem) transfer(n *inode, data []byte, pos int64, write bool) error {
	remaining := data
	for len(remaining) > 0 {
		blockIndex := int(pos / fsdisk.BlockSize)
		blockOff := int(pos % fsdisk.BlockSize)
		chunk := fsdisk.BlockSize - blockOff
		if chunk > len(remaining) {
			chunk = len(remaining)
		}

		blk := n.Direct[blockIndex]
		sector := fs.layout.Idx2Blk(int(blk))
		var err error
		if write {
			err = fs.dev.Modify(sector, blockOff, remaining[:chunk], chunk)
		} else {
			err = fs.dev.ReadPart(sector, blockOff, chunk, remaining[:chunk])
		}
		if err != nil {
			return err
		}

		pos += int64(chunk)
		remaining = remaining[chunk:]
	}
	return nil
}

// readAt reads into buf starting at startPos, clamped to n's current
// size (spec: "Read clamps finish_pos to current file size").
func (fs *FileSystem) readAt(n *inode, buf []byte, startPos int64) (int, error) {
	finish := startPos + int64(len(buf))
	if finish > int64(n.Size) {
		finish = int64(n.Size)
	}
	if startPos >= finish {
		return 0, nil
	}
	total := int(finish - startPos)
	return total, fs.transfer(n, buf[:total], startPos, false)
}

// writeAt writes buf starting at startPos, growing n via resizeInode
// first if necessary, clamped to max_filesize (spec: "Write calls
// resize_inode(id, start_pos + size) clamped to max_filesize before
// copying").
func (fs *FileSystem) writeAt(n *inode, buf []byte, startPos int64) (int, error) {
	end := startPos + int64(len(buf))
	if end > fs.maxFilesize {
		end = fs.maxFilesize
	}
	if end <= startPos {
		return 0, nil
	}
	if int64(n.Size) < end {
		if err := fs.resizeInode(n, end); err != nil {
			return 0, err
		}
	}
	total := int(end - startPos)
	if err := fs.transfer(n, buf[:total], startPos, true); err != nil {
		return 0, err
	}
	return total, nil
}
