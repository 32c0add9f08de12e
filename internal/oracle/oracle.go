// Package oracle abstracts the generative-text model used for pricing,
// hub suggestion and route explanations. The model is treated as an
// untrusted dependency: every call is raced against a timeout and every
// response goes through the lenient parsers in this package.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is returned when a call does not finish within its budget.
	ErrTimeout = errors.New("oracle timeout")

	// ErrNotConfigured is returned by oracles that have no credentials.
	ErrNotConfigured = errors.New("oracle not configured")

	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("oracle returned empty response")
)

// TextOracle generates free text for a prompt.
type TextOracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to TextOracle.
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Unavailable is an oracle that always fails with ErrNotConfigured.
// Callers fall back to their local behaviour.
type Unavailable struct{}

// Generate implements TextOracle.
func (Unavailable) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

type result struct {
	text string
	err  error
}

// Generate calls o with prompt and returns as soon as either the call
// completes or timeout elapses, whichever is first. A call that outlives the
// timeout keeps running against a cancelled context and its result is
// discarded. Panics inside o are converted to errors.
func Generate(ctx context.Context, o TextOracle, prompt string, timeout time.Duration) (string, error) {
	if o == nil {
		return "", ErrNotConfigured
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("oracle panic: %v", r)}
			}
		}()
		text, err := o.Generate(ctx, prompt)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		return "", ctx.Err()
	}
}
