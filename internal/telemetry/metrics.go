// Package telemetry builds the OpenTelemetry meter provider used by the bidding service.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"bidding-engine/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	ServiceName     = "bidding-engine"
	DefaultInterval = 15 * time.Second
)

// Config selects where metrics are pushed. An empty OTLPEndpoint keeps them in-process only.
type Config struct {
	OTLPEndpoint string
	Insecure     bool
	Interval     time.Duration
}

func (c Config) interval() time.Duration {
	if c.Interval <= 0 {
		return DefaultInterval
	}
	return c.Interval
}

// NewMeterProvider returns a provider that periodically exports to the OTLP
// collector at cfg.OTLPEndpoint, or one without readers when no endpoint is set.
// Extra readers are attached in both cases.
func NewMeterProvider(ctx context.Context, cfg Config, extra ...sdkmetric.Reader) (*sdkmetric.MeterProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range extra {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	if cfg.OTLPEndpoint == "" {
		utils.Debug("metrics exporter disabled", nil)
		return sdkmetric.NewMeterProvider(opts...), nil
	}

	exporterOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}

	opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(cfg.interval()),
	)))
	utils.Info("exporting metrics over OTLP", map[string]any{
		"endpoint": cfg.OTLPEndpoint,
		"interval": cfg.interval().String(),
		"insecure": cfg.Insecure,
	})
	return sdkmetric.NewMeterProvider(opts...), nil
}
