package vm

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduos/eduos/internal/kernel/blockdev"
	"github.com/eduos/eduos/internal/kernel/sched"
)

const processEntry = uintptr(0x08048000)

func writeSentinelPage(t *testing.T, dev blockdev.Device, sector int64, b byte) {
	t.Helper()
	buf := make([]byte, PageSize)
	for i := range buf {
		buf[i] = b
	}
	for i := 0; i < SectorsPerPage; i++ {
		require.NoError(t, dev.WriteSector(sector+int64(i), buf[i*blockdev.SectorSize:(i+1)*blockdev.SectorSize]))
	}
}

// TestPageFaultDemandPagesAndEvicts reproduces spec §8 scenario 4: a
// 3-page process image with PAGEABLE_PAGES=4 and 3 frames already
// pinned (standing in for dir+table+stack) leaves exactly one free
// frame, so stepping through all 3 code pages forces at least one
// eviction; a dirty victim must be written back to its own swap sector.
func TestPageFaultDemandPagesAndEvicts(t *testing.T) {
	const swapLoc = int64(100)
	dev := blockdev.NewMemory(int(swapLoc) + 3*SectorsPerPage + 16)

	writeSentinelPage(t, dev, swapLoc+0*SectorsPerPage, 0xAA)
	writeSentinelPage(t, dev, swapLoc+1*SectorsPerPage, 0xBB)
	writeSentinelPage(t, dev, swapLoc+2*SectorsPerPage, 0xCC)

	s := sched.New(4)
	m := NewManager(s, dev, Config{PageablePages: 4, RandSource: rand.New(rand.NewSource(1))})

	owner := s.Spawn(sched.KindThread, func() {})
	as := m.NewAddressSpace(owner, processEntry, swapLoc, 3*SectorsPerPage)
	as.SetupCodeData(3)

	// Stand in for the dir/table/stack frames a real x86 rendering would
	// pin before any code page is ever touched.
	for i := 0; i < 3; i++ {
		_, err := m.GetMemory(true, uintptr(i), owner)
		require.NoError(t, err)
	}

	page0 := processEntry
	page1 := processEntry + PageSize
	page2 := processEntry + 2*PageSize

	require.NoError(t, m.PageFault(owner, page0, 0))
	assert.True(t, as.Resident(page0))
	page0Frame := frameFor(t, as, page0)
	assert.Equal(t, byte(0xAA), m.FrameData(page0Frame)[0])

	// Simulate the process writing to its own page, then the dirty-bit
	// trap that would normally follow on real hardware.
	m.FrameData(page0Frame)[0] = 0x42
	as.MarkDirty(page0)

	require.NoError(t, m.PageFault(owner, page1, 0))
	assert.True(t, as.Resident(page1))

	require.NoError(t, m.PageFault(owner, page2, 0))
	assert.True(t, as.Resident(page2))

	// With only one free frame at the start, faulting in a third page
	// must have evicted one of the first two.
	residentCount := 0
	for _, vaddr := range []uintptr{page0, page1, page2} {
		if as.Resident(vaddr) {
			residentCount++
		}
	}
	assert.LessOrEqual(t, residentCount, 2)

	if !as.Resident(page0) {
		// page0 was dirty: its victim write-back must be observable at
		// its own swap sector, reflecting the mutated byte, not the
		// original sentinel.
		buf := make([]byte, blockdev.SectorSize)
		require.NoError(t, dev.ReadSector(swapLoc, buf))
		assert.Equal(t, byte(0x42), buf[0])
	}
}

// TestGetMemoryOutOfMemoryWhenAllPinned checks spec §4.4 step 2: if every
// descriptor is pinned, the requester gets a task-fatal error instead of
// an eviction.
func TestGetMemoryOutOfMemoryWhenAllPinned(t *testing.T) {
	dev := blockdev.NewMemory(16)
	s := sched.New(2)
	m := NewManager(s, dev, Config{PageablePages: 2, RandSource: rand.New(rand.NewSource(1))})
	owner := s.Spawn(sched.KindThread, func() {})

	_, err := m.GetMemory(true, 0x1000, owner)
	require.NoError(t, err)
	_, err = m.GetMemory(true, 0x2000, owner)
	require.NoError(t, err)

	_, err = m.GetMemory(true, 0x3000, owner)
	assert.ErrorIs(t, err, ErrOutOfMemory{})
}

// TestPageFaultNullDeref and access-violation checks (spec §4.4's first
// two handler steps).
func TestPageFaultNullDeref(t *testing.T) {
	dev := blockdev.NewMemory(16)
	s := sched.New(2)
	m := NewManager(s, dev, Config{PageablePages: 2, RandSource: rand.New(rand.NewSource(1))})
	owner := s.Spawn(sched.KindThread, func() {})
	m.NewAddressSpace(owner, processEntry, 0, 8)

	err := m.PageFault(owner, 0, 0)
	assert.ErrorIs(t, err, ErrNullDeref{})
}

func TestPageFaultAccessViolation(t *testing.T) {
	dev := blockdev.NewMemory(16)
	s := sched.New(2)
	m := NewManager(s, dev, Config{PageablePages: 2, RandSource: rand.New(rand.NewSource(1))})
	owner := s.Spawn(sched.KindThread, func() {})
	m.NewAddressSpace(owner, processEntry, 0, 8)

	err := m.PageFault(owner, processEntry, errCodePresent)
	var av ErrAccessViolation
	assert.ErrorAs(t, err, &av)
}

func frameFor(t *testing.T, as *AddressSpace, vaddr uintptr) Frame {
	t.Helper()
	require.True(t, as.Resident(vaddr))
	pdeIndex, pteIndex, _ := splitAddr(vaddr)
	pt := as.pageTableFor(pdeIndex, false)
	require.NotNil(t, pt)
	e, ok := pt.entries[pteIndex]
	require.True(t, ok)
	return e.Frame
}

// recordingMetrics is a minimal MetricHandle fake that only tracks
// RecordEviction calls, for TestEvictionReportsDirtyBit.
type recordingMetrics struct {
	mu        sync.Mutex
	evictions []bool
}

func (r *recordingMetrics) RecordContextSwitch(context.Context, int32, int32) {}
func (r *recordingMetrics) RecordPageFault(context.Context, int32)            {}
func (r *recordingMetrics) RecordFSOp(context.Context, string, error)         {}
func (r *recordingMetrics) RecordMailboxWait(context.Context, int, string)    {}
func (r *recordingMetrics) RecordEviction(_ context.Context, dirty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions = append(r.evictions, dirty)
}

// TestEvictionReportsDirtyBit reproduces the same demand-paging/eviction
// scenario as TestPageFaultDemandPagesAndEvicts but checks that the
// forced eviction is reported through MetricHandle with the victim's
// dirty bit, per DESIGN.md's metrics grounding.
func TestEvictionReportsDirtyBit(t *testing.T) {
	const swapLoc = int64(100)
	dev := blockdev.NewMemory(int(swapLoc) + 3*SectorsPerPage + 16)

	writeSentinelPage(t, dev, swapLoc+0*SectorsPerPage, 0xAA)
	writeSentinelPage(t, dev, swapLoc+1*SectorsPerPage, 0xBB)
	writeSentinelPage(t, dev, swapLoc+2*SectorsPerPage, 0xCC)

	s := sched.New(4)
	rec := &recordingMetrics{}
	m := NewManager(s, dev, Config{
		PageablePages: 4,
		RandSource:    rand.New(rand.NewSource(1)),
		Metrics:       rec,
	})

	owner := s.Spawn(sched.KindThread, func() {})
	as := m.NewAddressSpace(owner, processEntry, swapLoc, 3*SectorsPerPage)
	as.SetupCodeData(3)

	for i := 0; i < 3; i++ {
		_, err := m.GetMemory(true, uintptr(i), owner)
		require.NoError(t, err)
	}

	page0 := processEntry
	page1 := processEntry + PageSize
	page2 := processEntry + 2*PageSize

	require.NoError(t, m.PageFault(owner, page0, 0))
	page0Frame := frameFor(t, as, page0)
	m.FrameData(page0Frame)[0] = 0x42
	as.MarkDirty(page0)

	require.NoError(t, m.PageFault(owner, page1, 0))
	require.NoError(t, m.PageFault(owner, page2, 0))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.evictions)
	assert.True(t, rec.evictions[0], "the evicted page0 frame was marked dirty")
}
