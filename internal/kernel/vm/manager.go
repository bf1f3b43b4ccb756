package vm

import (
	"context"
	"fmt"

	"github.com/eduos/eduos/internal/kernel/blockdev"
	"github.com/eduos/eduos/internal/kernel/ksync"
	"github.com/eduos/eduos/internal/kernel/sched"
	"github.com/eduos/eduos/internal/metrics"
)

// ErrOutOfMemory is returned when get_memory finds no unpinned frame to
// evict. Per spec §7 this is task-fatal: the caller is expected to exit
// the requesting task.
type ErrOutOfMemory struct{}

func (ErrOutOfMemory) Error() string { return "vm: no unpinned frame available to evict" }

// ErrNullDeref and ErrAccessViolation are the two terminal conditions
// PageFault can raise before it ever reaches frame allocation (spec
// §4.4's "if faulting address is 0" and "if error-code bit P is set").
type ErrNullDeref struct{}

func (ErrNullDeref) Error() string { return "vm: null pointer dereference" }

type ErrAccessViolation struct{ VAddr uintptr }

func (e ErrAccessViolation) Error() string {
	return fmt.Sprintf("vm: access violation at %#x", e.VAddr)
}

// Manager owns the fixed pageable-frame pool and every process's address
// space. One Manager exists per Kernel.
type Manager struct {
	sched *sched.Scheduler
	dev   blockdev.Device
	cfg   Config

	// memLock serializes get_memory/PageFault the way spec §5 describes:
	// "the page-fault handler acquires it for the whole handler."
	memLock *ksync.Lock

	descriptors []FrameDescriptor
	data        [][]byte
	next        int

	spaces map[TaskRef]*AddressSpace
}

// NewManager allocates a Manager with cfg.PageablePages physical frames.
func NewManager(s *sched.Scheduler, dev blockdev.Device, cfg Config) *Manager {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopMetrics()
	}
	m := &Manager{
		sched:       s,
		dev:         dev,
		cfg:         cfg,
		memLock:     ksync.NewLock(s),
		descriptors: make([]FrameDescriptor, cfg.PageablePages),
		data:        make([][]byte, cfg.PageablePages),
		spaces:      make(map[TaskRef]*AddressSpace),
	}
	for i := range m.data {
		m.data[i] = make([]byte, PageSize)
	}
	return m
}

// NewAddressSpace registers a fresh, empty page directory for owner.
// Per spec §4.4, callers still must pin the stack frames and page tables
// they need via GetMemory(pinned=true, ...); this just creates the
// bookkeeping record those calls populate.
func (m *Manager) NewAddressSpace(owner TaskRef, processEntry uintptr, swapLoc, imageSectors int64) *AddressSpace {
	as := &AddressSpace{
		Owner:        owner,
		dir:          make(map[int]*pageTable),
		SwapLoc:      swapLoc,
		ImageSectors: imageSectors,
		ProcessEntry: processEntry,
	}
	m.spaces[owner] = as
	return as
}

// FrameData returns the backing buffer for a frame, for callers who need
// to read or populate raw page content (the fault handler's disk read
// target, or a pinned stack frame's initial zero-fill).
func (m *Manager) FrameData(f Frame) []byte {
	return m.data[f]
}

// GetMemory implements spec §4.4's get_memory(pinned, vaddr, owner): hand
// out the next contiguous frame while the pool isn't exhausted, otherwise
// evict a uniformly-random unpinned victim.
func (m *Manager) GetMemory(pinned bool, vaddr uintptr, owner TaskRef) (Frame, error) {
	if m.next < len(m.descriptors) {
		f := Frame(m.next)
		m.next++
		m.install(f, pinned, vaddr, owner)
		return f, nil
	}

	victim, ok := m.pickVictim()
	if !ok {
		return 0, ErrOutOfMemory{}
	}
	if err := m.evict(victim); err != nil {
		return 0, err
	}
	m.install(victim, pinned, vaddr, owner)
	return victim, nil
}

func (m *Manager) install(f Frame, pinned bool, vaddr uintptr, owner TaskRef) {
	m.descriptors[f] = FrameDescriptor{VAddr: vaddr, Owner: owner, Pinned: pinned, inUse: true}
	for i := range m.data[f] {
		m.data[f][i] = 0
	}
}

// pickVictim chooses uniformly at random among unpinned, in-use
// descriptors (spec §4.4 step 3).
func (m *Manager) pickVictim() (Frame, bool) {
	var candidates []Frame
	for i, d := range m.descriptors {
		if d.inUse && !d.Pinned {
			candidates = append(candidates, Frame(i))
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[m.cfg.RandSource.Intn(len(candidates))], true
}

// evict clears the victim's PTE so the next access faults, writing its
// frame back to swap first if dirty (spec §4.4 step 4).
func (m *Manager) evict(f Frame) error {
	d := &m.descriptors[f]
	as, ok := m.spaces[d.Owner]
	if !ok {
		return fmt.Errorf("vm: evicting frame %d with unknown owner %d", f, d.Owner)
	}

	pdeIndex, pteIndex, _ := splitAddr(d.VAddr)
	pt := as.pageTableFor(pdeIndex, false)
	dirty := false
	if pt != nil {
		if e, ok := pt.entries[pteIndex]; ok {
			dirty = e.Dirty
			if dirty {
				if err := m.writeBack(as, d.VAddr, f); err != nil {
					return err
				}
			}
			e.Present = false
		}
	}
	m.cfg.Metrics.RecordEviction(context.Background(), dirty)
	return nil
}

func (m *Manager) writeBack(as *AddressSpace, vaddr uintptr, f Frame) error {
	sector := swapSector(as, vaddr)
	buf := m.data[f]
	for off := 0; off < PageSize; off += blockdev.SectorSize {
		if err := m.dev.WriteSector(sector+int64(off/blockdev.SectorSize), buf[off:off+blockdev.SectorSize]); err != nil {
			return err
		}
	}
	return nil
}

// swapSector computes the disk sector a page's swap region begins at
// (spec §4.4: "swap_loc + ((vaddr - PROCESS_ENTRY) / SECTOR_SIZE aligned
// down to SECTORS_PER_PAGE)").
func swapSector(as *AddressSpace, vaddr uintptr) int64 {
	pageOffset := (int64(vaddr) - int64(as.ProcessEntry)) / blockdev.SectorSize
	pageOffset -= pageOffset % SectorsPerPage
	return as.SwapLoc + pageOffset
}

// IdentityMap maps a physical range one-to-one for device registers,
// creating page tables as needed and writing P|RW|US entries (spec
// §4.4's identity-map API).
func (m *Manager) IdentityMap(as *AddressSpace, base uintptr, numPages int) {
	for i := 0; i < numPages; i++ {
		vaddr := base + uintptr(i*PageSize)
		pdeIndex, pteIndex, _ := splitAddr(vaddr)
		pt := as.pageTableFor(pdeIndex, true)
		e := pt.entry(pteIndex)
		e.Present, e.RW, e.US = true, true, true
		e.Frame = Frame(vaddr / PageSize)
	}
}
