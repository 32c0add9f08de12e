package explain_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farefuse/farefuse/internal/explain"
	"github.com/farefuse/farefuse/internal/oracle"
)

func answer(text string, err error) oracle.TextOracle {
	return oracle.Func(func(context.Context, string) (string, error) { return text, err })
}

func TestExplain_ReturnsTrimmedSentence(t *testing.T) {
	e := explain.NewExplainer(answer("  Flying to Bhopal and taking the\n train saves ₹1200.  ", nil), explain.Config{Logger: zerolog.Nop()})

	got := e.Explain(context.Background(), "Nagpur", "Bhopal", "Delhi", 1200)
	require.NotNil(t, got)
	assert.Equal(t, "Flying to Bhopal and taking the train saves ₹1200.", *got)
}

func TestExplain_PromptMentionsRoute(t *testing.T) {
	var seen string
	o := oracle.Func(func(_ context.Context, p string) (string, error) {
		seen = p
		return "ok", nil
	})
	e := explain.NewExplainer(o, explain.Config{Logger: zerolog.Nop()})

	e.Explain(context.Background(), "Nagpur", "Bhopal", "Delhi", 1500)
	assert.Contains(t, seen, "Flight: Nagpur → Bhopal")
	assert.Contains(t, seen, "Train: Bhopal → Delhi")
	assert.Contains(t, seen, "₹1500")
}

func TestExplain_NilOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		oracle oracle.TextOracle
	}{
		{name: "error", oracle: answer("", errors.New("boom"))},
		{name: "empty", oracle: answer("   \n ", nil)},
		{name: "not configured", oracle: oracle.Unavailable{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := explain.NewExplainer(tt.oracle, explain.Config{Logger: zerolog.Nop()})
			assert.Nil(t, e.Explain(context.Background(), "A", "B", "C", 900))
		})
	}
}

func TestExplain_NilOnTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	hung := oracle.Func(func(context.Context, string) (string, error) {
		<-release
		return "late", nil
	})
	e := explain.NewExplainer(hung, explain.Config{Timeout: 20 * time.Millisecond, Logger: zerolog.Nop()})

	start := time.Now()
	assert.Nil(t, e.Explain(context.Background(), "A", "B", "C", 900))
	assert.Less(t, time.Since(start), time.Second)
}

func TestExplain_TruncatesLongAnswers(t *testing.T) {
	e := explain.NewExplainer(answer(strings.Repeat("word ", 100), nil), explain.Config{MaxLength: 20, Logger: zerolog.Nop()})

	got := e.Explain(context.Background(), "A", "B", "C", 900)
	require.NotNil(t, got)
	assert.True(t, strings.HasSuffix(*got, "…"))
	assert.LessOrEqual(t, len([]rune(*got)), 21)
}

func TestThreshold(t *testing.T) {
	e := explain.NewExplainer(nil, explain.Config{})
	assert.Equal(t, 500, e.Threshold())
	assert.False(t, e.Worthwhile(500))
	assert.True(t, e.Worthwhile(501))
	assert.False(t, e.Worthwhile(-200))
}

func TestExplain_NonPositiveTimeoutStillBoundsOracle(t *testing.T) {
	var (
		hasDeadline bool
		remaining   time.Duration
	)
	o := oracle.Func(func(ctx context.Context, _ string) (string, error) {
		var deadline time.Time
		deadline, hasDeadline = ctx.Deadline()
		remaining = time.Until(deadline)
		return "Cheaper by train via B.", nil
	})

	e := explain.NewExplainer(o, explain.Config{Timeout: -time.Second, Logger: zerolog.Nop()})

	require.NotNil(t, e.Explain(context.Background(), "A", "B", "C", 900))
	require.True(t, hasDeadline, "oracle call must carry a deadline")
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, 3*time.Second)
}
