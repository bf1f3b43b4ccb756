package sched

import (
	"fmt"
	"runtime"
)

// DeadlockFunc is invoked if every task blocks with none left runnable.
// The spec has no notion of this (cooperative single-CPU systems built
// correctly never reach it), so the default just panics with a
// diagnostic, matching spec §7's "catastrophic kernel errors... halt with
// a message".
type DeadlockFunc func(msg string)

// Scheduler owns the static TCB table, the ready ring, and the current
// critical-section nesting depth. One Scheduler exists per Kernel.
type Scheduler struct {
	tasks   []TCB
	next    TaskID // next free slot for Spawn
	current TaskID

	readyHead TaskID
	halted    bool
	haltCh    chan struct{}

	depth int // critical-section nesting counter (spec §4.1)

	OnDeadlock DeadlockFunc
}

// New allocates a scheduler with room for maxTasks tasks (index 0 unused,
// matching "identifier is a non-zero small integer").
func New(maxTasks int) *Scheduler {
	return &Scheduler{
		tasks:  make([]TCB, maxTasks+1),
		next:   1,
		haltCh: make(chan struct{}),
		OnDeadlock: func(msg string) {
			panic("sched: " + msg)
		},
	}
}

func (s *Scheduler) task(id TaskID) *TCB {
	if id <= 0 || int(id) >= len(s.tasks) {
		panic(fmt.Sprintf("sched: invalid task id %d", id))
	}
	return &s.tasks[id]
}

// Task returns a copy of the TCB for inspection (tests, VM fault handler
// attribution, metrics). Mutating fields that drive scheduling (State,
// Next, Prev) must go through the Scheduler's own methods.
func (s *Scheduler) Task(id TaskID) TCB {
	return *s.task(id)
}

// Current returns the task presently holding the CPU, or 0 before boot.
func (s *Scheduler) Current() TaskID {
	return s.current
}

// Halted reports whether the ready ring has gone empty after the last
// task exited.
func (s *Scheduler) Halted() bool {
	return s.halted
}

// EnterCritical disables "interrupts" (i.e. the window in which the ready
// ring and wait queues may be mutated) and increments the nesting counter.
// Only re-enables at depth zero (spec §4.1). Safe without an actual mutex:
// the wake-channel handoff in dispatch already guarantees exactly one
// task's goroutine is ever unparked at a time, so depth is never touched
// by two goroutines concurrently.
func (s *Scheduler) EnterCritical() {
	s.depth++
}

// LeaveCritical is EnterCritical's counterpart.
func (s *Scheduler) LeaveCritical() {
	if s.depth == 0 {
		panic("sched: LeaveCritical without matching EnterCritical")
	}
	s.depth--
}

// InCritical reports whether a critical section is currently held. Used by
// Unblock to enforce spec §4.1's "must be called inside a critical
// section" rule.
func (s *Scheduler) InCritical() bool {
	return s.depth > 0
}

// Spawn installs a new task in the FirstTime* state and splices it into
// the ready ring, returning its TaskID. kind selects FirstTimeProcess vs.
// FirstTimeThread (spec §3).
func (s *Scheduler) Spawn(kind TaskKind, entry func()) TaskID {
	id := s.next
	s.next++
	if int(id) >= len(s.tasks) {
		s.OnDeadlock("task table exhausted")
		return 0
	}

	state := StateFirstTimeThread
	if kind == KindProcess {
		state = StateFirstTimeProcess
	}

	s.tasks[id] = TCB{
		ID:    id,
		Kind:  kind,
		State: state,
		Entry: entry,
		wake:  make(chan struct{}, 1),
	}

	s.EnterCritical()
	s.ringAppend(id)
	s.LeaveCritical()

	return id
}

// Run starts the scheduler: it hands the CPU to the first ready task and
// blocks the calling goroutine until the system halts (the ready ring has
// gone empty because the last runnable task exited).
func (s *Scheduler) Run() {
	s.EnterCritical()
	if s.readyHead == 0 {
		s.LeaveCritical()
		return
	}
	s.current = s.readyHead
	s.LeaveCritical()

	go s.runEntry(s.current)
	<-s.haltCh
}

// runEntry is the goroutine body for every task: it runs the task's entry
// point, then exits on its behalf if the entry point returns without
// calling Exit itself (mirroring dispatch()'s "for first-time tasks jumps
// to the entry point" contract).
func (s *Scheduler) runEntry(id TaskID) {
	t := s.task(id)
	t.Entry()
	if t.State != StateExited {
		s.Exit(id)
	}
}

// Yield voluntarily gives up the CPU; the caller remains ready.
func (s *Scheduler) Yield(id TaskID) {
	s.EnterCritical()
	s.advance(id, StateReady)
	s.LeaveCritical()
}

// Block appends the calling task to q and enters the scheduler. The
// caller must already hold the critical section established by whichever
// synchronization primitive is blocking (spec §4.1: "block(**wait_q) sets
// the current task's state to BLOCKED, appends it to *wait_q... and
// enters the scheduler").
func (s *Scheduler) Block(id TaskID, q *WaitQueue) {
	s.enqueue(q, id)
	s.advance(id, StateBlocked)
}

// Unblock removes the head of q, marks it ready, and splices it into the
// ready ring immediately before CurrentRunning, so it runs at the next
// scheduling point (spec §4.1). Must be called inside a critical section;
// returns the unblocked TaskID, or 0 if q was empty.
func (s *Scheduler) Unblock(q *WaitQueue) TaskID {
	if !s.InCritical() {
		s.OnDeadlock("Unblock called outside a critical section")
	}
	id := s.dequeue(q)
	if id == 0 {
		return 0
	}
	t := s.task(id)
	t.State = StateReady
	s.ringInsertBefore(s.current, id)
	return id
}

// Exit marks the calling task exited and enters the scheduler; it never
// returns to the caller.
func (s *Scheduler) Exit(id TaskID) {
	s.EnterCritical()
	s.advance(id, StateExited)
	// advance never returns to an exited caller's goroutine.
}

// advance implements the shared tail of Yield/Block/Exit: capture the
// successor before any ring mutation, splice the caller out if it is no
// longer ready, halt if that was the last ready task and it exited,
// otherwise advance CurrentRunning and dispatch.
func (s *Scheduler) advance(id TaskID, newState TaskState) {
	t := s.task(id)
	next := t.Next
	t.State = newState

	if newState != StateReady {
		s.ringRemove(id)
	}

	if s.readyHead == 0 {
		if newState == StateExited {
			s.halted = true
			close(s.haltCh)
			runtime.Goexit()
		}
		s.OnDeadlock("every task blocked, none left runnable")
		return
	}

	s.current = next
	s.dispatch(id, newState)
}

// dispatch wakes CurrentRunning (starting its goroutine if this is its
// first run) and, unless the caller has exited or is itself the new
// CurrentRunning, parks the caller until it is woken again.
func (s *Scheduler) dispatch(callerID TaskID, callerState TaskState) {
	nextID := s.current

	if nextID == callerID {
		// Sole ready task: no actual handoff, the caller just keeps running.
		return
	}

	nt := s.task(nextID)
	firstTime := nt.State == StateFirstTimeProcess || nt.State == StateFirstTimeThread
	if firstTime {
		nt.State = StateReady
	}

	if callerState == StateExited {
		// LeaveCritical never runs for an exited caller; drop the depth
		// bookkeeping directly so it doesn't leak into the next task's
		// accounting.
		s.depth--
	} else {
		s.LeaveCritical()
	}

	if firstTime {
		go s.runEntry(nextID)
	} else {
		nt.wake <- struct{}{}
	}

	if callerState == StateExited {
		// The exited task's goroutine must never return to its caller
		// (spec §4.1): terminate it here rather than unwinding back
		// through advance/Exit, so a mid-body Exit behaves the same as
		// runEntry's tail-call Exit.
		runtime.Goexit()
	}

	ct := s.task(callerID)
	<-ct.wake
	s.EnterCritical()
}
