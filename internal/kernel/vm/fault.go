package vm

import "github.com/eduos/eduos/internal/kernel/blockdev"

// errCodePresent is the x86 page-fault error-code P bit: when set on
// entry to the handler, the page was present and the fault is a
// protection violation rather than a not-present miss (spec §4.4).
const errCodePresent uint32 = 1

// PageFault services a page fault for vaddr in the owner's address
// space, holding the global memory lock for the duration (spec §4.4 and
// §5: "the page-fault handler acquires it for the whole handler").
func (m *Manager) PageFault(id TaskRef, vaddr uintptr, errcode uint32) error {
	if vaddr == 0 {
		return ErrNullDeref{}
	}
	if errcode&errCodePresent != 0 {
		return ErrAccessViolation{VAddr: vaddr}
	}

	m.memLock.Acquire(id)
	defer m.memLock.Release()

	as := m.spaces[id]
	if as == nil {
		return ErrAccessViolation{VAddr: vaddr}
	}

	pageVAddr := vaddr - (vaddr % PageSize)
	pdeIndex, pteIndex, _ := splitAddr(pageVAddr)
	pt := as.pageTableFor(pdeIndex, true)
	e := pt.entry(pteIndex)
	if e.Present {
		// Spurious fault (e.g. raced with a concurrent resolve); nothing
		// to do under the single-token scheduler, but harmless either way.
		return nil
	}

	sector := swapSector(as, pageVAddr)
	sectorCount := SectorsPerPage
	if remaining := as.ImageSectors - (sector - as.SwapLoc); remaining < int64(sectorCount) {
		if remaining < 0 {
			remaining = 0
		}
		sectorCount = int(remaining)
	}

	f, err := m.GetMemory(false, pageVAddr, id)
	if err != nil {
		return err
	}

	buf := m.data[f]
	for i := 0; i < sectorCount; i++ {
		off := i * blockdev.SectorSize
		if err := m.dev.ReadSector(sector+int64(i), buf[off:off+blockdev.SectorSize]); err != nil {
			return err
		}
	}

	e.Present, e.RW, e.US, e.Frame = true, true, true, f
	// Conceptual TLB flush: there is no separate translation cache in
	// this rendering, so nothing further to invalidate.
	return nil
}
