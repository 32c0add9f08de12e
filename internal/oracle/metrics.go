package oracle

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/farefuse/farefuse/internal/oracle"

// Outcome labels recorded for each oracle call.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Instrumented wraps a TextOracle and records call duration and outcome.
type Instrumented struct {
	next     TextOracle
	purpose  string
	duration metric.Float64Histogram
	calls    metric.Int64Counter
}

// Instrument wraps next with metrics labelled by purpose ("price",
// "suggest", "explain").
func Instrument(next TextOracle, purpose string) (*Instrumented, error) {
	meter := otel.Meter(meterName)

	duration, err := meter.Float64Histogram(
		"oracle.call.duration",
		metric.WithDescription("Duration of generative-text oracle calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	calls, err := meter.Int64Counter(
		"oracle.call.total",
		metric.WithDescription("Total number of generative-text oracle calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &Instrumented{
		next:     next,
		purpose:  purpose,
		duration: duration,
		calls:    calls,
	}, nil
}

// Generate implements TextOracle.
func (o *Instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := o.next.Generate(ctx, prompt)

	attrs := metric.WithAttributes(
		attribute.String("oracle.purpose", o.purpose),
		attribute.String("oracle.outcome", outcome(text, err)),
	)
	// Detached so cancelled requests are still counted.
	mctx := context.WithoutCancel(ctx)
	o.duration.Record(mctx, time.Since(start).Seconds(), attrs)
	o.calls.Add(mctx, 1, attrs)

	return text, err
}

func outcome(text string, err error) string {
	switch {
	case err == nil && text == "":
		return OutcomeEmpty
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
