package vm

import "github.com/eduos/eduos/internal/kernel/sched"

// Frame identifies a physical frame by index into the Manager's fixed
// [PageablePages]FrameDescriptor pool (spec §3: "Fixed static array of
// length PAGEABLE_PAGES").
type Frame int

// pte is a page table entry. Present/RW/US mirror the x86 flag bits the
// spec names directly; Dirty tracks whether the frame must be written
// back to swap before eviction.
type pte struct {
	Present bool
	RW      bool
	US      bool
	Dirty   bool
	Frame   Frame
}

// pageTable holds up to 1024 PTEs, sparse: an absent map entry means
// "no page table allocated yet for this range" rather than "not present"
// (spec §4.4: "lazily allocate page tables covering the code/data range").
type pageTable struct {
	entries map[int]*pte
}

func newPageTable() *pageTable {
	return &pageTable{entries: make(map[int]*pte)}
}

func (pt *pageTable) entry(index int) *pte {
	e, ok := pt.entries[index]
	if !ok {
		e = &pte{}
		pt.entries[index] = e
	}
	return e
}

// AddressSpace is one process's page directory plus the swap-region
// bookkeeping the fault handler needs.
type AddressSpace struct {
	Owner TaskRef
	dir   map[int]*pageTable

	// SwapLoc is the starting sector of this process's on-disk image
	// region (spec §4.4: "swap_loc + ((vaddr - PROCESS_ENTRY) / ...)").
	SwapLoc int64
	// ImageSectors is the remaining sector count of the on-disk image,
	// used to clamp the fault handler's read.
	ImageSectors int64
	// ProcessEntry is the vaddr the process's image is mapped at.
	ProcessEntry uintptr
}

// TaskRef identifies the owning task without importing sched into every
// call site that just wants to compare ownership.
type TaskRef = sched.TaskID

func splitAddr(vaddr uintptr) (pdeIndex, pteIndex int, offset uintptr) {
	pdeIndex = int((vaddr >> 22) & 0x3FF)
	pteIndex = int((vaddr >> 12) & 0x3FF)
	offset = vaddr & 0xFFF
	return
}

func (as *AddressSpace) pageTableFor(pdeIndex int, create bool) *pageTable {
	pt, ok := as.dir[pdeIndex]
	if !ok {
		if !create {
			return nil
		}
		pt = newPageTable()
		as.dir[pdeIndex] = pt
	}
	return pt
}
