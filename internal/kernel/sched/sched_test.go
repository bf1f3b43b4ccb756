package sched

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoundRobinAlternates reproduces spec §8 scenario 1: two tasks that
// repeatedly yield must alternate, each making progress, starvation-free.
func TestRoundRobinAlternates(t *testing.T) {
	s := New(4)
	var mu sync.Mutex
	var order []string

	const iterations = 6
	var a, b TaskID
	a = s.Spawn(KindThread, func() {
		for i := 0; i < iterations; i++ {
			mu.Lock()
			order = append(order, "a")
			mu.Unlock()
			s.Yield(a)
		}
	})
	b = s.Spawn(KindThread, func() {
		for i := 0; i < iterations; i++ {
			mu.Lock()
			order = append(order, "b")
			mu.Unlock()
			s.Yield(b)
		}
	})

	s.Run()

	require.Len(t, order, 2*iterations)
	for i, v := range order {
		if i%2 == 0 {
			assert.Equal(t, "a", v)
		} else {
			assert.Equal(t, "b", v)
		}
	}
}

// TestExitRemovesFromRing checks invariant 1: once a task exits it no
// longer appears in the ready ring.
func TestExitRemovesFromRing(t *testing.T) {
	s := New(4)
	var ranB bool
	s.Spawn(KindThread, func() {
		// exits immediately (runEntry calls Exit on our behalf)
	})
	s.Spawn(KindThread, func() {
		ranB = true
	})

	s.Run()

	assert.True(t, ranB)
	assert.True(t, s.Halted())
	assert.Empty(t, s.ReadyTasks())
}

// TestBlockUnblockFIFO checks that wait queues release in FIFO order and
// that Unblock inserts the woken task directly behind CurrentRunning.
func TestBlockUnblockFIFO(t *testing.T) {
	s := New(8)
	var q WaitQueue
	var mu sync.Mutex
	var woke []string

	first := s.Spawn(KindThread, func() {
		id := s.Current()
		s.EnterCritical()
		s.Block(id, &q)
		s.LeaveCritical()
		mu.Lock()
		woke = append(woke, "first")
		mu.Unlock()
	})
	second := s.Spawn(KindThread, func() {
		id := s.Current()
		s.EnterCritical()
		s.Block(id, &q)
		s.LeaveCritical()
		mu.Lock()
		woke = append(woke, "second")
		mu.Unlock()
	})
	_ = first
	_ = second
	s.Spawn(KindThread, func() {
		s.EnterCritical()
		s.Unblock(&q)
		s.Unblock(&q)
		s.LeaveCritical()
	})

	s.Run()

	require.Len(t, woke, 2)
	assert.Equal(t, []string{"first", "second"}, woke)
}

// TestMidBodyExitNeverReturnsToCaller reproduces a reviewer finding:
// calling Exit(id) from inside a task's entry point (rather than letting
// runEntry's tail call do it) must behave identically to a normal
// return — nothing after the Exit call may execute, and the exited
// goroutine must not keep running concurrently with its successor.
func TestMidBodyExitNeverReturnsToCaller(t *testing.T) {
	s := New(4)
	var mu sync.Mutex
	var trace []string

	var a TaskID
	a = s.Spawn(KindThread, func() {
		mu.Lock()
		trace = append(trace, "a-before-exit")
		mu.Unlock()
		s.Exit(a)
		// Must never run: Exit does not return to its caller.
		mu.Lock()
		trace = append(trace, "a-after-exit")
		mu.Unlock()
	})
	s.Spawn(KindThread, func() {
		mu.Lock()
		trace = append(trace, "b")
		mu.Unlock()
	})

	s.Run()

	assert.Equal(t, []string{"a-before-exit", "b"}, trace)
}
