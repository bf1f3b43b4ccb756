package ksync

import "github.com/eduos/eduos/internal/kernel/sched"

// Barrier is a reusable rendezvous point: it releases every waiter once
// `reach` arrivals have accumulated, then resets for the next cycle
// (spec §3, §4.2).
type Barrier struct {
	sched   *sched.Scheduler
	reach   int
	counter int
	waitQ   sched.WaitQueue
}

// NewBarrier returns a Barrier that releases once reach tasks have
// called Wait.
func NewBarrier(s *sched.Scheduler, reach int) *Barrier {
	return &Barrier{sched: s, reach: reach}
}

// Wait blocks the calling task until reach arrivals have accumulated
// across all callers, then returns for every one of them and resets the
// counter to 0 for the next cycle.
func (b *Barrier) Wait(id sched.TaskID) {
	b.sched.EnterCritical()
	b.counter++
	if b.counter == b.reach {
		b.counter = 0
		for b.sched.Unblock(&b.waitQ) != 0 {
		}
	} else {
		b.sched.Block(id, &b.waitQ)
	}
	b.sched.LeaveCritical()
}
