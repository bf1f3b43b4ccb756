// Package diskimage builds the bootable disk image the kernel's
// blockdev.Device reads from: a fixed 512-byte bootblock, followed by
// the kernel's ELF segments concatenated and zero-padded to a sector
// boundary, followed by the filesystem region (spec §4.6/§6). It is a
// library, not the full host createimage CLI (an explicit Non-goal of
// the CORE per SPEC_FULL.md §1) — cmd/mkimage wraps it with a thin CLI,
// and cmd's disk-layout setup uses it to size the kernel region. The
// internal/fs and internal/kernel/vm tests do not use it; they work on
// in-memory devices.
package diskimage

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eduos/eduos/internal/kernel/blockdev"
)

// OSSizeLoc is the byte offset within the bootblock where the kernel's
// length in sectors is patched in as a little-endian uint16 (spec §4.6:
// "seeks back to OS_SIZE_LOC (byte 2 of the image)").
const OSSizeLoc = 2

// BootSignatureOffset is the offset of the mandatory 0x55AA boot
// signature (spec §6: "bytes 510..511 hold 0xAA 0x55").
const BootSignatureOffset = 510

// BootblockSize is the fixed size of the bootloader stub (spec §4.6:
// "Takes a bootblock (exactly 512 bytes)").
const BootblockSize = blockdev.SectorSize

// Segment is one ELF loadable segment's raw content, already resolved
// to spec §4.6's "p_memsz bytes starting at p_offset" rule: file-backed
// bytes up to Filesz, zero-filled out to Memsz (the .bss tail), read
// directly from *elf.File by ReadSegments so callers never touch
// debug/elf themselves.
type Segment struct {
	Data []byte
}

// ReadSegments walks kernelELF's program headers and extracts every
// PT_LOAD segment's content per spec §4.6. Non-loadable segments
// (PT_NOTE, PT_GNU_STACK, etc.) are skipped.
func ReadSegments(kernelELF *elf.File) ([]Segment, error) {
	var segs []Segment
	for _, prog := range kernelELF.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Memsz == 0 {
			continue
		}
		buf := make([]byte, prog.Memsz)
		n, err := prog.ReadAt(buf[:min64(prog.Filesz, prog.Memsz)], 0)
		if err != nil && uint64(n) < min64(prog.Filesz, prog.Memsz) {
			return nil, fmt.Errorf("diskimage: reading segment at offset %#x: %w", prog.Off, err)
		}
		segs = append(segs, Segment{Data: buf})
	}
	return segs, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Build concatenates every kernel ELF's segments (in the order the
// kernels are given, and within each kernel the order ReadSegments
// returned), pads the result to a sector boundary, and prepends
// bootblock with its size field patched in (spec §4.6). It returns the
// full image: bootblock + kernel region; the caller appends the
// filesystem region afterward (spec §6's layout).
func Build(bootblock []byte, kernels ...*elf.File) ([]byte, error) {
	if len(bootblock) != BootblockSize {
		return nil, fmt.Errorf("diskimage: bootblock must be exactly %d bytes, got %d", BootblockSize, len(bootblock))
	}

	// Each kernel ELF's segments are read concurrently (prog.ReadAt hits the
	// underlying file independently per kernel), but written into the image
	// in the caller's order: errgroup.Group fans the reads out while
	// perKernel keeps slot i reserved for kernels[i] regardless of which
	// goroutine finishes first.
	perKernel := make([][]Segment, len(kernels))
	var g errgroup.Group
	for i, k := range kernels {
		i, k := i, k
		g.Go(func() error {
			segs, err := ReadSegments(k)
			if err != nil {
				return err
			}
			perKernel[i] = segs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var kernelRegion bytes.Buffer
	for _, segs := range perKernel {
		for _, s := range segs {
			kernelRegion.Write(s.Data)
		}
	}

	padded := padToSector(kernelRegion.Bytes())
	numSectors := len(padded) / blockdev.SectorSize
	if numSectors > 0xFFFF {
		return nil, fmt.Errorf("diskimage: kernel region is %d sectors, exceeds the 16-bit size field", numSectors)
	}

	out := make([]byte, BootblockSize+len(padded))
	copy(out, bootblock)
	binary.LittleEndian.PutUint16(out[OSSizeLoc:OSSizeLoc+2], uint16(numSectors))
	// Spec §6: "Bytes 510..511 hold 0xAA 0x55" — in that order.
	out[BootSignatureOffset] = 0xAA
	out[BootSignatureOffset+1] = 0x55
	copy(out[BootblockSize:], padded)
	return out, nil
}

func padToSector(b []byte) []byte {
	rem := len(b) % blockdev.SectorSize
	if rem == 0 {
		return b
	}
	return append(b, make([]byte, blockdev.SectorSize-rem)...)
}

// KernelSectors returns how many sectors Build patched into the image's
// OSSizeLoc field, for tests and callers that need to know where the
// filesystem region begins without re-parsing the bootblock.
func KernelSectors(image []byte) uint16 {
	return binary.LittleEndian.Uint16(image[OSSizeLoc : OSSizeLoc+2])
}
