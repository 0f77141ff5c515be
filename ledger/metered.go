package ledger

import (
	"context"
	"time"

	"github.com/poolcoord/go-workalloc/internal/measurements"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const attrOperationKey = "operation"

var (
	attrOperationGet    = attribute.String(attrOperationKey, "get")
	attrOperationPut    = attribute.String(attrOperationKey, "put")
	attrOperationDelete = attribute.String(attrOperationKey, "delete")
	attrOperationClose  = attribute.String(attrOperationKey, "close")
)

var _ Store[StringKey, struct{}] = (*Metered[StringKey, struct{}])(nil)

// Metered wraps a ledger, measuring the latency of every operation labelled by
// operation and status.
type Metered[K Key, V any] struct {
	delegate Store[K, V]
	latency  metric.Float64Histogram
	ops      metric.Int64Counter
}

// NewMetered wraps delegate with metrics registered on meter, prefixing every
// metric name with metricsPrefix.
func NewMetered[K Key, V any](meter metric.Meter, metricsPrefix string, delegate Store[K, V]) *Metered[K, V] {
	return &Metered[K, V]{
		delegate: delegate,
		latency: measurements.Must(meter.Float64Histogram(
			metricsPrefix+"latency",
			metric.WithDescription("The ledger latency labelled by operation and status."),
			metric.WithUnit("s"))),
		ops: measurements.Must(meter.Int64Counter(
			metricsPrefix+"operations",
			metric.WithDescription("The number of ledger operations labelled by operation and status."))),
	}
}

// Unwrap returns the wrapped ledger.
func (m *Metered[K, V]) Unwrap() Store[K, V] {
	return m.delegate
}

func (m *Metered[K, V]) Get(ctx context.Context, k K) (_ V, _err error) {
	defer func(start time.Time) {
		m.record(ctx, time.Since(start), _err, attrOperationGet)
	}(time.Now())
	return m.delegate.Get(ctx, k)
}

func (m *Metered[K, V]) Put(ctx context.Context, k K, v V) (_err error) {
	defer func(start time.Time) {
		m.record(ctx, time.Since(start), _err, attrOperationPut)
	}(time.Now())
	return m.delegate.Put(ctx, k, v)
}

func (m *Metered[K, V]) Delete(ctx context.Context, k K) (_ V, _err error) {
	defer func(start time.Time) {
		m.record(ctx, time.Since(start), _err, attrOperationDelete)
	}(time.Now())
	return m.delegate.Delete(ctx, k)
}

func (m *Metered[K, V]) Close() (_err error) {
	defer func(start time.Time) {
		m.record(context.Background(), time.Since(start), _err, attrOperationClose)
	}(time.Now())
	return m.delegate.Close()
}

func (m *Metered[K, V]) record(ctx context.Context, latency time.Duration, err error, operation attribute.KeyValue) {
	attributes := metric.WithAttributes(operation, measurements.Status(ctx, err))
	m.latency.Record(ctx, latency.Seconds(), attributes)
	m.ops.Add(ctx, 1, attributes)
}
