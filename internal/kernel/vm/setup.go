package vm

// SetupCodeData lazily allocates page tables covering [processEntry,
// processEntry+numPages*PageSize) with not-present PTEs carrying RW|US,
// signaling "on demand" (spec §4.4's page directory setup step).
func (as *AddressSpace) SetupCodeData(numPages int) {
	for i := 0; i < numPages; i++ {
		vaddr := as.ProcessEntry + uintptr(i*PageSize)
		pdeIndex, pteIndex, _ := splitAddr(vaddr)
		pt := as.pageTableFor(pdeIndex, true)
		e := pt.entry(pteIndex)
		e.Present, e.RW, e.US = false, true, true
	}
}

// AllocatePinnedStack pins numPages frames at stackBase via GetMemory,
// matching spec §4.4's "allocate a page table for the stack range and
// attach two pinned stack frames."
func (m *Manager) AllocatePinnedStack(as *AddressSpace, stackBase uintptr, numPages int) error {
	for i := 0; i < numPages; i++ {
		vaddr := stackBase + uintptr(i*PageSize)
		f, err := m.GetMemory(true, vaddr, as.Owner)
		if err != nil {
			return err
		}
		pdeIndex, pteIndex, _ := splitAddr(vaddr)
		pt := as.pageTableFor(pdeIndex, true)
		e := pt.entry(pteIndex)
		e.Present, e.RW, e.US, e.Frame = true, true, true, f
	}
	return nil
}

// MarkDirty flags the PTE covering vaddr as dirty, as a write to the
// page would (tests use this to drive the eviction write-back path
// without a real MMU dirty-bit trap).
func (as *AddressSpace) MarkDirty(vaddr uintptr) {
	pdeIndex, pteIndex, _ := splitAddr(vaddr)
	pt := as.pageTableFor(pdeIndex, false)
	if pt == nil {
		return
	}
	if e, ok := pt.entries[pteIndex]; ok {
		e.Dirty = true
	}
}

// Resident reports whether vaddr currently has a present PTE, for tests.
func (as *AddressSpace) Resident(vaddr uintptr) bool {
	pdeIndex, pteIndex, _ := splitAddr(vaddr)
	pt := as.pageTableFor(pdeIndex, false)
	if pt == nil {
		return false
	}
	e, ok := pt.entries[pteIndex]
	return ok && e.Present
}
