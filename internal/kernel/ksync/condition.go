package ksync

import "github.com/eduos/eduos/internal/kernel/sched"

// Condition is a condition variable with mesa semantics: a woken waiter
// must re-check its predicate in a loop, since signal does not transfer
// the monitor (spec §4.2, Glossary "Mesa semantics").
type Condition struct {
	sched *sched.Scheduler
	waitQ sched.WaitQueue
}

// NewCondition returns a Condition bound to s.
func NewCondition(s *sched.Scheduler) *Condition {
	return &Condition{sched: s}
}

// Wait releases m, blocks on the condition, and re-acquires m before
// returning — all inside a single critical section, so no wakeup between
// release and block can be lost (spec §4.2).
func (c *Condition) Wait(id sched.TaskID, m *Lock) {
	c.sched.EnterCritical()
	m.Release()
	c.sched.Block(id, &c.waitQ)
	m.acquireUnderCritical(id)
	c.sched.LeaveCritical()
}

// Signal unblocks at most one waiter.
func (c *Condition) Signal() {
	c.sched.EnterCritical()
	c.sched.Unblock(&c.waitQ)
	c.sched.LeaveCritical()
}

// Broadcast unblocks every waiter currently queued.
func (c *Condition) Broadcast() {
	c.sched.EnterCritical()
	for c.sched.Unblock(&c.waitQ) != 0 {
	}
	c.sched.LeaveCritical()
}
