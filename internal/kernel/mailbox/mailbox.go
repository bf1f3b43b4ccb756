// Package mailbox implements the kernel's fixed-key byte-ring mailboxes:
// a classic monitor with two condition variables (moreSpace, moreData)
// built on internal/kernel/ksync, per spec §4.3.
package mailbox

import (
	"context"
	"fmt"

	"github.com/eduos/eduos/internal/kernel/ksync"
	"github.com/eduos/eduos/internal/kernel/sched"
	"github.com/eduos/eduos/internal/metrics"
)

// DefaultBufferSize matches spec §8 scenario 2 (BUFFER_SIZE=256).
const DefaultBufferSize = 256

// ErrInvalidKey is returned when a key falls outside [0, MaxMbox). Per
// spec §7 this is a task-fatal condition; callers are expected to exit
// the offending task on receipt.
type ErrInvalidKey struct{ Key int }

func (e *ErrInvalidKey) Error() string {
	return fmt.Sprintf("mailbox: key %d out of range", e.Key)
}

// ErrNotOpen is returned by Close/Send/Recv/Stat against a key with no
// open handle.
type ErrNotOpen struct{ Key int }

func (e *ErrNotOpen) Error() string {
	return fmt.Sprintf("mailbox: key %d has no open handle", e.Key)
}

type slot struct {
	lock      *ksync.Lock
	moreSpace *ksync.Condition
	moreData  *ksync.Condition

	usedCount    int
	messageCount int
	head, tail   int
	usedBytes    int
	buffer       []byte
}

// Mailboxes is the fixed array of MAX_MBOX slots (spec §3: "Fixed array
// indexed by small integer key").
type Mailboxes struct {
	sched   *sched.Scheduler
	slots   []slot
	metrics metrics.MetricHandle
}

// Option configures a Mailboxes at construction time.
type Option func(*Mailboxes)

// WithMetrics installs a MetricHandle that RecordMailboxWait reports
// through; New defaults to a no-op handle when this is omitted.
func WithMetrics(h metrics.MetricHandle) Option {
	return func(m *Mailboxes) { m.metrics = h }
}

// New allocates maxMbox slots, each with a BufferSize-byte ring.
func New(s *sched.Scheduler, maxMbox, bufferSize int, opts ...Option) *Mailboxes {
	m := &Mailboxes{sched: s, slots: make([]slot, maxMbox), metrics: metrics.NewNoopMetrics()}
	for i := range m.slots {
		m.slots[i] = slot{
			lock:      ksync.NewLock(s),
			moreSpace: ksync.NewCondition(s),
			moreData:  ksync.NewCondition(s),
			buffer:    make([]byte, bufferSize),
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mailboxes) slotFor(key int) (*slot, error) {
	if key < 0 || key >= len(m.slots) {
		return nil, &ErrInvalidKey{Key: key}
	}
	return &m.slots[key], nil
}

// Open increments the slot's handle count, bounds-checking key.
func (m *Mailboxes) Open(key int) error {
	s, err := m.slotFor(key)
	if err != nil {
		return err
	}
	s.usedCount++
	return nil
}

// Close decrements the slot's handle count; when it reaches zero, both
// conditions are broadcast (releasing anyone still waiting with nothing
// left to wait for) and the slot is reinitialized for reuse.
func (m *Mailboxes) Close(id sched.TaskID, key int) error {
	s, err := m.slotFor(key)
	if err != nil {
		return err
	}
	if s.usedCount == 0 {
		return &ErrNotOpen{Key: key}
	}
	s.usedCount--
	if s.usedCount == 0 {
		s.moreSpace.Broadcast()
		s.moreData.Broadcast()
		s.messageCount, s.head, s.tail, s.usedBytes = 0, 0, 0, 0
	}
	return nil
}

// Send blocks while the header-plus-payload message doesn't fit in the
// ring's free bytes, then copies it in and wakes any receiver.
func (m *Mailboxes) Send(id sched.TaskID, key int, payload []byte) error {
	s, err := m.slotFor(key)
	if err != nil {
		return err
	}
	total := headerSize + len(payload)

	s.lock.Acquire(id)
	if s.usedBytes+total > len(s.buffer) {
		m.metrics.RecordMailboxWait(context.Background(), key, "moreSpace")
	}
	for s.usedBytes+total > len(s.buffer) {
		s.moreSpace.Wait(id, s.lock)
	}

	hdr := messageHeader{PayloadLen: uint32(len(payload))}
	hdrBuf := make([]byte, headerSize)
	hdr.encode(hdrBuf)

	pos := s.head
	pos = writeCircular(s.buffer, pos, hdrBuf)
	pos = writeCircular(s.buffer, pos, payload)
	s.head = pos

	s.usedBytes += total
	s.messageCount++
	s.moreData.Broadcast()
	s.lock.Release()
	return nil
}

// Recv blocks while the slot has no complete message, then returns the
// payload of the oldest one.
func (m *Mailboxes) Recv(id sched.TaskID, key int) ([]byte, error) {
	s, err := m.slotFor(key)
	if err != nil {
		return nil, err
	}

	s.lock.Acquire(id)
	if s.messageCount == 0 {
		m.metrics.RecordMailboxWait(context.Background(), key, "moreData")
	}
	for s.messageCount == 0 {
		s.moreData.Wait(id, s.lock)
	}

	hdrBuf := make([]byte, headerSize)
	readCircular(s.buffer, s.tail, hdrBuf)
	hdr := decodeHeader(hdrBuf)

	payload := make([]byte, hdr.PayloadLen)
	payloadStart := (s.tail + headerSize) % len(s.buffer)
	readCircular(s.buffer, payloadStart, payload)

	total := headerSize + int(hdr.PayloadLen)
	s.tail = (s.tail + total) % len(s.buffer)
	s.usedBytes -= total
	s.messageCount--
	s.moreSpace.Broadcast()
	s.lock.Release()
	return payload, nil
}

// Stat reports the pending message count and free byte count, satisfying
// spec invariant 5 (`space + used_bytes == BUFFER_SIZE`).
func (m *Mailboxes) Stat(key int) (count, space int, err error) {
	s, serr := m.slotFor(key)
	if serr != nil {
		return 0, 0, serr
	}
	return s.messageCount, len(s.buffer) - s.usedBytes, nil
}

func writeCircular(ring []byte, pos int, data []byte) int {
	for _, b := range data {
		ring[pos] = b
		pos++
		if pos == len(ring) {
			pos = 0
		}
	}
	return pos
}

func readCircular(ring []byte, pos int, out []byte) {
	for i := range out {
		out[i] = ring[pos]
		pos++
		if pos == len(ring) {
			pos = 0
		}
	}
}
