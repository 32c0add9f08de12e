package search

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/farefuse/farefuse/internal/search"

type searchMetrics struct {
	duration   metric.Float64Histogram
	routes     metric.Int64Counter
	rejections metric.Int64Counter
	degraded   metric.Int64Counter
}

func newSearchMetrics() (*searchMetrics, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"search.duration",
		metric.WithDescription("Duration of route searches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	routes, err := meter.Int64Counter(
		"search.routes.total",
		metric.WithDescription("Routes returned by searches"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter(
		"search.rejections.total",
		metric.WithDescription("Hub candidates rejected by searches"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		return nil, err
	}

	degraded, err := meter.Int64Counter(
		"search.degraded.total",
		metric.WithDescription("Searches that fell back to direct routes only"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		return nil, err
	}

	return &searchMetrics{
		duration:   duration,
		routes:     routes,
		rejections: rejections,
		degraded:   degraded,
	}, nil
}

func (m *searchMetrics) record(ctx context.Context, elapsed time.Duration, result *Result) {
	ctx = context.WithoutCancel(ctx)
	m.duration.Record(ctx, elapsed.Seconds())

	for _, r := range result.Routes {
		m.routes.Add(ctx, 1, metric.WithAttributes(attribute.String("route.type", string(r.Type))))
	}
	for _, r := range result.Rejected {
		m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("rejection.kind", rejectionKind(r.Reason))))
	}
	if result.Degraded {
		m.degraded.Add(ctx, 1)
	}
}

func rejectionKind(reason string) string {
	switch reason {
	case ReasonOutOfCorridor:
		return "corridor"
	case ReasonGenerationFailed:
		return "failed"
	default:
		return "time"
	}
}
