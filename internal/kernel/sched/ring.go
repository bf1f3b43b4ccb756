package sched

// ringInsertBefore splices id into the ready ring immediately before pos.
// Used directly by Unblock, which must make a just-woken task run "after
// the current task's next scheduling point" (spec §4.1) by inserting it
// right before CurrentRunning.
func (s *Scheduler) ringInsertBefore(pos, id TaskID) {
	t := s.task(id)
	if pos == 0 {
		// Ring is empty: id becomes a ring of one.
		t.Next, t.Prev = id, id
		s.readyHead = id
		return
	}
	p := s.task(pos)
	prev := p.Prev
	pr := s.task(prev)

	t.Next = pos
	t.Prev = prev
	pr.Next = id
	p.Prev = id
}

// ringRemove splices id out of the ready ring, leaving its Next/Prev
// zeroed per the TCB invariant (spec §3: "next and previous are zeroed on
// leaving the ready ring").
func (s *Scheduler) ringRemove(id TaskID) {
	t := s.task(id)
	next, prev := t.Next, t.Prev

	if next == id {
		// Sole member of the ring.
		s.readyHead = 0
	} else {
		s.task(next).Prev = prev
		s.task(prev).Next = next
		if s.readyHead == id {
			s.readyHead = next
		}
	}

	t.Next, t.Prev = 0, 0
}

// ringAppend adds a brand-new task to the ready ring, immediately before
// the current head (i.e. at the "end" of the round-robin order), so newly
// spawned tasks don't jump the queue ahead of tasks already waiting.
func (s *Scheduler) ringAppend(id TaskID) {
	s.ringInsertBefore(s.readyHead, id)
}
