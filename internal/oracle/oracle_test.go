package oracle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farefuse/farefuse/internal/oracle"
)

func TestGenerate_ReturnsResult(t *testing.T) {
	o := oracle.Func(func(_ context.Context, prompt string) (string, error) {
		return "echo: " + prompt, nil
	})

	text, err := oracle.Generate(context.Background(), o, "hi", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", text)
}

func TestGenerate_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	o := oracle.Func(func(context.Context, string) (string, error) { return "", boom })

	_, err := oracle.Generate(context.Background(), o, "hi", time.Second)
	assert.ErrorIs(t, err, boom)
}

func TestGenerate_TimesOutOnHungOracle(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	o := oracle.Func(func(context.Context, string) (string, error) {
		// Ignores its context on purpose.
		<-release
		return "too late", nil
	})

	start := time.Now()
	_, err := oracle.Generate(context.Background(), o, "hi", 50*time.Millisecond)

	assert.ErrorIs(t, err, oracle.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGenerate_CallerCancellation(t *testing.T) {
	o := oracle.Func(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := oracle.Generate(ctx, o, "hi", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_RecoversPanic(t *testing.T) {
	o := oracle.Func(func(context.Context, string) (string, error) {
		panic("model exploded")
	})

	_, err := oracle.Generate(context.Background(), o, "hi", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model exploded")
}

func TestGenerate_NilOracle(t *testing.T) {
	_, err := oracle.Generate(context.Background(), nil, "hi", time.Second)
	assert.ErrorIs(t, err, oracle.ErrNotConfigured)
}

func TestUnavailable(t *testing.T) {
	_, err := oracle.Unavailable{}.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, oracle.ErrNotConfigured)
}

func TestInstrumented_PassesThrough(t *testing.T) {
	o, err := oracle.Instrument(oracle.Func(func(context.Context, string) (string, error) {
		return "[\"Pune\"]", nil
	}), "suggest")
	require.NoError(t, err)

	text, err := o.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "[\"Pune\"]", text)
}
