// Package sched implements the cooperative round-robin scheduler: the
// task-control-block table, the ready ring, wait queues, and the
// block/unblock/yield/exit primitives every synchronization object in
// internal/kernel/ksync and internal/kernel/mailbox is built on.
//
// Literal register/stack-save-and-restore (the real context-switch
// trampoline) is inexpressible in portable Go and out of scope per the
// spec ("assembly entry trampolines (only their contract is specified)").
// This package reproduces the contract instead: each task runs on its own
// goroutine, but a capacity-1 "wake" channel per task ensures that at any
// instant exactly one task's goroutine is actually executing, so the
// ready-ring and wait-queue invariants hold exactly as they would under a
// real uniprocessor cooperative kernel.
package sched

// TaskID identifies a task control block. Zero is never a valid task.
type TaskID int32

// TaskKind distinguishes a process (private page directory) from a thread
// (page directory aliased to the kernel's).
type TaskKind uint8

const (
	KindProcess TaskKind = iota
	KindThread
)

// TaskState mirrors spec.md's TCB state enumeration exactly.
type TaskState uint8

const (
	StateFirstTimeProcess TaskState = iota
	StateFirstTimeThread
	StateReady
	StateBlocked
	StateExited
)

// TCB is the fixed-size task control block. All TCBs live in the
// Scheduler's static table; Next/Prev index other TCBs by TaskID rather
// than holding pointers, per spec §9's arena-indexed recommendation.
type TCB struct {
	ID    TaskID
	Kind  TaskKind
	State TaskState

	// Next/Prev: ready-ring links when State == StateReady (circular
	// doubly-linked); Next-only wait-queue link when State == StateBlocked
	// (singly-linked FIFO, owned by whichever WaitQueue holds it). Zero on
	// both fields when neither ring nor queue holds this TCB.
	Next, Prev TaskID

	// Entry is the task's code address, represented as a Go closure since
	// an address-of-bytes entry point can't be portably invoked.
	Entry func()

	// SwapSector/SwapSectors: swap origin, for processes only (spec §3).
	SwapSector  int64
	SwapSectors int64

	// FaultAddr/ErrorCode/PageFaults: VM bookkeeping slots.
	FaultAddr  uintptr
	ErrorCode  int32
	PageFaults uint64

	wake chan struct{}
}
