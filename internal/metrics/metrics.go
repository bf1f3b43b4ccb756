// Package metrics defines the MetricHandle observability seam used
// throughout the kernel, mirroring gcsfuse's common.MetricHandle: a small
// interface with a no-op default and an OpenTelemetry-backed
// implementation, wired in by cmd/eduosd when requested. Metrics never
// influence kernel control flow; they are purely observational.
package metrics

import "context"

// MetricHandle records kernel events for observability. Implementations
// must be safe for concurrent use even though, under the default
// single-CPU-token scheduler (see internal/kernel/sched), calls are never
// actually concurrent.
type MetricHandle interface {
	// RecordContextSwitch records one dispatch, from->to being the
	// outgoing and incoming task IDs (0 for "none" on the very first switch).
	// The scheduler holds no MetricHandle and never calls it.
	RecordContextSwitch(ctx context.Context, from, to int32)

	// RecordPageFault is called once per page-fault handler invocation.
	RecordPageFault(ctx context.Context, task int32)

	// RecordEviction is called once per frame eviction, recording whether the
	// victim was dirty (and therefore required a write-back).
	RecordEviction(ctx context.Context, dirty bool)

	// RecordFSOp is called once per completed filesystem syscall made
	// through one of internal/kernel.Kernel's file wrappers.
	RecordFSOp(ctx context.Context, op string, err error)

	// RecordMailboxWait is called once per mbox_send/mbox_recv that had to
	// block on moreSpace/moreData.
	RecordMailboxWait(ctx context.Context, key int, reason string)
}
