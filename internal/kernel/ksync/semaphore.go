package ksync

import "github.com/eduos/eduos/internal/kernel/sched"

// Semaphore counts pending net signals; its counter may go negative and
// always equals up_count - down_count (spec §3).
type Semaphore struct {
	sched   *sched.Scheduler
	counter int
	waitQ   sched.WaitQueue
}

// NewSemaphore returns a Semaphore with the given initial counter value.
func NewSemaphore(s *sched.Scheduler, initial int) *Semaphore {
	return &Semaphore{sched: s, counter: initial}
}

// Up increments the counter and, if a task was waiting for this signal,
// wakes exactly one of them. A waiter exists precisely when the
// pre-increment counter was negative (equivalently, post-increment ≤ 0):
// see DESIGN.md for why this resolves spec §4.2's literal "post-increment
// ≥ 0" wording, which does not satisfy the invariant it documents
// alongside it.
func (sem *Semaphore) Up() {
	sem.sched.EnterCritical()
	hadWaiter := sem.counter < 0
	sem.counter++
	if hadWaiter {
		sem.sched.Unblock(&sem.waitQ)
	}
	sem.sched.LeaveCritical()
}

// Down decrements the counter, blocking the caller if the result went
// negative.
func (sem *Semaphore) Down(id sched.TaskID) {
	sem.sched.EnterCritical()
	sem.counter--
	if sem.counter < 0 {
		sem.sched.Block(id, &sem.waitQ)
	}
	sem.sched.LeaveCritical()
}

// Value returns the current counter, for tests and diagnostics.
func (sem *Semaphore) Value() int {
	return sem.counter
}
