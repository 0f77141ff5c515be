package workalloc

import (
	"context"
	"math"

	"github.com/poolcoord/go-workalloc/internal/measurements"
	"github.com/poolcoord/go-workalloc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("workalloc")

	attrKind = func(k pool.EventKind) attribute.KeyValue { return attribute.String("kind", k.String()) }

	metrics = struct {
		events           metric.Int64Counter
		units            metric.Int64Counter
		peers            metric.Int64Gauge
		busyPeers        metric.Int64Gauge
		totalPower       metric.Int64Gauge
		outstanding      metric.Int64Gauge
		ledgerEntryUnits metric.Int64Histogram
	}{
		events: measurements.Must(meter.Int64Counter("workalloc_events",
			metric.WithDescription("Number of engine state changes labelled by kind."))),
		units: measurements.Must(meter.Int64Counter("workalloc_units",
			metric.WithDescription("Number of work units assigned, completed, abandoned or released, labelled by event kind."))),
		peers: measurements.Must(meter.Int64Gauge("workalloc_peers",
			metric.WithDescription("The number of peers in the pool."))),
		busyPeers: measurements.Must(meter.Int64Gauge("workalloc_busy_peers",
			metric.WithDescription("The number of peers holding an assignment."))),
		totalPower: measurements.Must(meter.Int64Gauge("workalloc_total_power",
			metric.WithDescription("The measure of the total power of the pool."))),
		outstanding: measurements.Must(meter.Int64Gauge("workalloc_outstanding_units",
			metric.WithDescription("The number of units assigned and not yet reported finished."))),
		ledgerEntryUnits: measurements.Must(meter.Int64Histogram("workalloc_ledger_entry_units",
			metric.WithDescription("The cumulative number of finished units of a peer, recorded on every ledger write."),
			metric.WithExplicitBucketBoundaries(1, 10, 100, 1_000, 10_000, 100_000, 1_000_000))),
	}
)

// metricsObserver records every engine event.
type metricsObserver struct{}

func (metricsObserver) Observe(e pool.Event) {
	ctx := context.Background()
	kind := metric.WithAttributes(attrKind(e.Kind))
	metrics.events.Add(ctx, 1, kind)
	if e.Units > 0 {
		metrics.units.Add(ctx, int64(e.Units), kind)
	}
	metrics.peers.Record(ctx, int64(e.Peers))
	metrics.busyPeers.Record(ctx, int64(e.BusyPeers))
	metrics.totalPower.Record(ctx, int64(min(e.TotalPower, math.MaxInt64)))
	metrics.outstanding.Record(ctx, int64(e.TotalWorkload))
}
