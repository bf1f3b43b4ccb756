// Package kernel ties the scheduler, synchronization primitives, virtual
// memory manager, mailboxes and filesystem into the single struct spec
// §9's "model global mutable state as a single struct" note calls for:
// cmd/eduosd constructs exactly one Kernel at boot.
package kernel

import (
	"context"
	"math/rand"
	"time"

	"github.com/eduos/eduos/internal/cfg"
	"github.com/eduos/eduos/internal/fs"
	"github.com/eduos/eduos/internal/fsdisk"
	"github.com/eduos/eduos/internal/kernel/blockdev"
	"github.com/eduos/eduos/internal/kernel/mailbox"
	"github.com/eduos/eduos/internal/kernel/sched"
	"github.com/eduos/eduos/internal/kernel/vm"
	"github.com/eduos/eduos/internal/logger"
	"github.com/eduos/eduos/internal/metrics"
)

// DefaultMaxMbox bounds the mailbox key space (spec §3: "Fixed array
// indexed by small integer key in [0, MAX_MBOX)"). Not config-exposed
// because no scenario in spec §8 needs more than a handful of keys.
const DefaultMaxMbox = 16

// Kernel owns every subsystem a task's entry point may reach: the
// scheduler, the mailbox array, the virtual memory manager, and the
// mounted filesystem. Its fields are the Go rendering of spec §3's
// global mutable state; nothing outside this struct is shared between
// tasks.
type Kernel struct {
	Sched   *sched.Scheduler
	Mailbox *mailbox.Mailboxes
	VM      *vm.Manager
	FS      *fs.FileSystem
	Dev     blockdev.Device
	Metrics metrics.MetricHandle
}

// Options gathers the construction-time dependencies a Kernel needs
// beyond cfg.Config: the backing block device and the metric handle
// cmd/eduosd selected (no-op or OTel-backed).
type Options struct {
	Dev         blockdev.Device
	Metrics     metrics.MetricHandle
	Layout      fsdisk.Layout
	NDataBlocks int
}

// New constructs a Kernel from c and opts, mounting the filesystem over
// opts.Dev (formatting it on first boot per fs.Init's fall-through to
// Mkfs). It does not spawn any tasks; callers do that before calling Boot.
func New(c cfg.Config, opts Options) (*Kernel, error) {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopMetrics()
	}

	s := sched.New(c.Kernel.MaxTasks)

	seed := c.VM.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	vmMgr := vm.NewManager(s, opts.Dev, vm.Config{
		PageablePages: c.VM.PageablePages,
		RandSource:    rand.New(rand.NewSource(seed)),
		Metrics:       opts.Metrics,
	})

	mboxes := mailbox.New(s, DefaultMaxMbox, mailbox.DefaultBufferSize, mailbox.WithMetrics(opts.Metrics))

	fileSystem := fs.New(opts.Dev, opts.Layout, c.FileSystem.MaxInodes, c.FileSystem.MaxFilesize)
	if err := fileSystem.Init(opts.NDataBlocks); err != nil {
		return nil, err
	}

	k := &Kernel{
		Sched:   s,
		Mailbox: mboxes,
		VM:      vmMgr,
		FS:      fileSystem,
		Dev:     opts.Dev,
		Metrics: opts.Metrics,
	}
	return k, nil
}

// Spawn installs a new task, delegating directly to the scheduler: the
// token-handoff substrate that would drive per-switch metrics lives
// entirely inside sched and isn't observable from here (see DESIGN.md's
// note on which MetricHandle calls Kernel can and can't wire honestly).
func (k *Kernel) Spawn(kind sched.TaskKind, entry func()) sched.TaskID {
	return k.Sched.Spawn(kind, entry)
}

// Boot hands the CPU to the first spawned task and blocks until every
// task has exited (spec §4.1's Run contract). Logs the halt at INFO,
// mirroring the teacher's boot/shutdown logging pattern.
func (k *Kernel) Boot() {
	logger.Infof("eduos: booting")
	k.Sched.Run()
	logger.Infof("eduos: halted")
}

// PageFault resolves a fault for owner at vaddr, recording it through
// Metrics before delegating to the VM manager (spec §4.4's fault handler
// entry point, the outermost point from which a fault is observable).
func (k *Kernel) PageFault(owner sched.TaskID, vaddr uintptr, errcode uint32) error {
	k.Metrics.RecordPageFault(context.Background(), int32(owner))
	return k.VM.PageFault(owner, vaddr, errcode)
}

// fsOp runs op, reports it through Metrics under name, and returns op's
// error unchanged (spec §4.5's syscalls each complete with exactly one
// FSE_* result; every Kernel-level filesystem wrapper below funnels
// through here).
func (k *Kernel) fsOp(name string, op func() error) error {
	err := op()
	k.Metrics.RecordFSOp(context.Background(), name, err)
	return err
}

// OpenFile, ReadFile, WriteFile, CloseFile, and Lseek mirror
// internal/fs.FileSystem's syscalls one-for-one, adding RecordFSOp
// instrumentation. Only these five are wrapped: Mkdir, Chdir, Rmdir, Link,
// Unlink and StatFD are reached through FS directly and are not recorded.
func (k *Kernel) OpenFile(owner sched.TaskID, name string, mode int) (fd int, err error) {
	err = k.fsOp("open", func() error {
		var e error
		fd, e = k.FS.Open(owner, name, mode)
		return e
	})
	return
}

func (k *Kernel) ReadFile(owner sched.TaskID, fd int, buf []byte) (n int, err error) {
	err = k.fsOp("read", func() error {
		var e error
		n, e = k.FS.Read(owner, fd, buf)
		return e
	})
	return
}

func (k *Kernel) WriteFile(owner sched.TaskID, fd int, buf []byte) (n int, err error) {
	err = k.fsOp("write", func() error {
		var e error
		n, e = k.FS.Write(owner, fd, buf)
		return e
	})
	return
}

func (k *Kernel) CloseFile(owner sched.TaskID, fd int) error {
	return k.fsOp("close", func() error { return k.FS.Close(owner, fd) })
}

func (k *Kernel) Lseek(owner sched.TaskID, fd int, offset int64, whence int) (pos int64, err error) {
	err = k.fsOp("lseek", func() error {
		var e error
		pos, e = k.FS.Lseek(owner, fd, offset, whence)
		return e
	})
	return
}
