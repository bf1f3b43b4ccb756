// Package ksync implements the kernel's own synchronization primitives —
// Lock, Condition, Semaphore, Barrier — directly on top of
// internal/kernel/sched's block/unblock contract. These are the spec's
// subject matter, not an ambient concern, so unlike the rest of the kernel
// they are deliberately never backed by sync.Mutex/sync.Cond: see
// DESIGN.md.
package ksync

import "github.com/eduos/eduos/internal/kernel/sched"

// lockStatus mirrors spec §3's {LOCKED, UNLOCKED}.
type lockStatus int

const (
	unlocked lockStatus = iota
	locked
)

// Lock gives mesa semantics: release() hands the lock directly to one
// waiter rather than waking everyone to race for it (spec §4.2).
type Lock struct {
	sched  *sched.Scheduler
	status lockStatus
	waitQ  sched.WaitQueue
}

// NewLock returns an unlocked Lock bound to s.
func NewLock(s *sched.Scheduler) *Lock {
	return &Lock{sched: s, status: unlocked}
}

// Acquire blocks the calling task until the lock is held exclusively.
func (l *Lock) Acquire(id sched.TaskID) {
	l.sched.EnterCritical()
	l.acquireUnderCritical(id)
	l.sched.LeaveCritical()
}

// acquireUnderCritical implements spec §9's recommended decomposition: the
// part of acquire() that runs already inside a critical section, reused
// by Condition.Wait's release-block-reacquire sequence.
func (l *Lock) acquireUnderCritical(id sched.TaskID) {
	if l.status == unlocked {
		l.status = locked
		return
	}
	l.sched.Block(id, &l.waitQ)
}

// Release hands the lock to the next waiter (status stays locked), or
// marks it unlocked if no one is waiting.
func (l *Lock) Release() {
	l.sched.EnterCritical()
	if l.waitQ.Empty() {
		l.status = unlocked
	} else {
		l.sched.Unblock(&l.waitQ)
	}
	l.sched.LeaveCritical()
}
