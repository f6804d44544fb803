package bidding

import (
	"bidding-engine/utils"
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "bidding-engine/bidding"

// engineMetrics counts bidding outcomes
type engineMetrics struct {
	accepted  metric.Int64Counter
	rejected  metric.Int64Counter
	autoBids  metric.Int64Counter
	conflicts metric.Int64Counter
}

func newEngineMetrics(provider metric.MeterProvider) *engineMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	return &engineMetrics{
		accepted:  newCounter(meter, "bidding.bids.accepted", "Bids and proxy commitments accepted", "{bid}"),
		rejected:  newCounter(meter, "bidding.bids.rejected", "Bids and proxy commitments rejected, by kind", "{bid}"),
		autoBids:  newCounter(meter, "bidding.autobids.placed", "Automatic counter-bids synthesized by the resolver", "{bid}"),
		conflicts: newCounter(meter, "bidding.commit.conflicts", "Optimistic commit conflicts that triggered a retry", "{conflict}"),
	}
}

func newCounter(meter metric.Meter, name, description, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		utils.Warn("metrics: falling back to no-op counter", map[string]any{"counter": name, "error": err.Error()})
		return noop.Int64Counter{}
	}
	return c
}

func (m *engineMetrics) recordAccepted(ctx context.Context, op string) {
	m.accepted.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

func (m *engineMetrics) recordRejected(ctx context.Context, op, kind string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op), attribute.String("kind", kind)))
}

func (m *engineMetrics) recordAutoBid(ctx context.Context, trigger string) {
	m.autoBids.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", trigger)))
}

func (m *engineMetrics) recordConflict(ctx context.Context, op string) {
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}
