package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	taskFromKey = "task_from"
	taskToKey   = "task_to"
	dirtyKey    = "dirty"
	fsOpKey     = "fs_op"
	fsErrKey    = "fs_error"
	mboxKeyKey  = "mbox_key"
	mboxReason  = "reason"
)

var meter = otel.Meter("eduos/kernel")

// otelMetrics is the OpenTelemetry-backed MetricHandle, grounded on
// gcsfuse's common.otelMetrics: a handful of instruments registered once
// at construction, recorded with attribute.Set built per call.
type otelMetrics struct {
	contextSwitches metric.Int64Counter
	pageFaults      metric.Int64Counter
	evictions       metric.Int64Counter
	fsOps           metric.Int64Counter
	fsOpErrors      metric.Int64Counter
	mailboxWaits    metric.Int64Counter
}

// NewOTelMetrics builds the counters against the process-wide otel.Meter.
// Returns an error if instrument registration fails (matches
// gcsfuse's NewOTelMetrics constructor pattern of surfacing registration
// errors instead of panicking).
func NewOTelMetrics() (MetricHandle, error) {
	m := &otelMetrics{}
	var err error

	if m.contextSwitches, err = meter.Int64Counter("eduos.sched.context_switches"); err != nil {
		return nil, err
	}
	if m.pageFaults, err = meter.Int64Counter("eduos.vm.page_faults"); err != nil {
		return nil, err
	}
	if m.evictions, err = meter.Int64Counter("eduos.vm.evictions"); err != nil {
		return nil, err
	}
	if m.fsOps, err = meter.Int64Counter("eduos.fs.ops"); err != nil {
		return nil, err
	}
	if m.fsOpErrors, err = meter.Int64Counter("eduos.fs.op_errors"); err != nil {
		return nil, err
	}
	if m.mailboxWaits, err = meter.Int64Counter("eduos.mailbox.waits"); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *otelMetrics) RecordContextSwitch(ctx context.Context, from, to int32) {
	m.contextSwitches.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
		attribute.Int(taskFromKey, int(from)),
		attribute.Int(taskToKey, int(to)),
	)))
}

func (m *otelMetrics) RecordPageFault(ctx context.Context, task int32) {
	m.pageFaults.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
		attribute.Int(taskToKey, int(task)),
	)))
}

func (m *otelMetrics) RecordEviction(ctx context.Context, dirty bool) {
	m.evictions.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
		attribute.Bool(dirtyKey, dirty),
	)))
}

func (m *otelMetrics) RecordFSOp(ctx context.Context, op string, err error) {
	m.fsOps.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
		attribute.String(fsOpKey, op),
	)))
	if err != nil {
		m.fsOpErrors.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
			attribute.String(fsOpKey, op),
			attribute.String(fsErrKey, err.Error()),
		)))
	}
}

func (m *otelMetrics) RecordMailboxWait(ctx context.Context, key int, reason string) {
	m.mailboxWaits.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
		attribute.Int(mboxKeyKey, key),
		attribute.String(mboxReason, reason),
	)))
}
