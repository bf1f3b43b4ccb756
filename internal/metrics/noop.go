package metrics

import "context"

// NewNoopMetrics returns a MetricHandle whose methods are no-ops, the
// default until cmd/eduosd wires an exporter. Mirrors
// gcsfuse's common.NewNoopMetrics.
func NewNoopMetrics() MetricHandle {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordContextSwitch(context.Context, int32, int32) {}
func (noopMetrics) RecordPageFault(context.Context, int32)            {}
func (noopMetrics) RecordEviction(context.Context, bool)              {}
func (noopMetrics) RecordFSOp(context.Context, string, error)         {}
func (noopMetrics) RecordMailboxWait(context.Context, int, string)    {}
