// Package explain produces a one-sentence justification for a mixed route
// that undercuts the direct flight. Explanations are cosmetic: every failure
// yields nil.
package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/oracle"
)

// Config holds configuration for the explainer.
type Config struct {
	// Timeout bounds the oracle call. Default: 3s.
	Timeout time.Duration

	// SavingThreshold is the saving (INR) above which an explanation is
	// worth asking for. Default: 500.
	SavingThreshold int

	// MaxLength truncates overly chatty answers. Default: 280.
	MaxLength int

	Logger zerolog.Logger
}

// Explainer asks the oracle why a mixed route is cheaper.
type Explainer struct {
	oracle oracle.TextOracle
	config Config
	logger zerolog.Logger
}

// NewExplainer creates an explainer backed by o.
func NewExplainer(o oracle.TextOracle, cfg Config) *Explainer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.SavingThreshold == 0 {
		cfg.SavingThreshold = 500
	}
	if cfg.MaxLength == 0 {
		cfg.MaxLength = 280
	}
	return &Explainer{oracle: o, config: cfg, logger: cfg.Logger}
}

// Threshold returns the saving above which callers should ask for an
// explanation. The comparison is strict.
func (e *Explainer) Threshold() int {
	return e.config.SavingThreshold
}

// Worthwhile reports whether saving exceeds the threshold.
func (e *Explainer) Worthwhile(saving int) bool {
	return saving > e.config.SavingThreshold
}

// Explain returns a single trimmed sentence, or nil on timeout, error or
// empty output.
func (e *Explainer) Explain(ctx context.Context, from, hub, to string, saving int) *string {
	text, err := oracle.Generate(ctx, e.oracle, prompt(from, hub, to, saving), e.config.Timeout)
	if err != nil {
		e.logger.Debug().Err(err).Str("hub", hub).Msg("explanation unavailable")
		return nil
	}

	text = strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	if text == "" {
		return nil
	}
	if r := []rune(text); len(r) > e.config.MaxLength {
		text = strings.TrimSpace(string(r[:e.config.MaxLength])) + "…"
	}
	return &text
}

func prompt(from, hub, to string, saving int) string {
	return fmt.Sprintf(`Explain in ONE short sentence why a mixed route is cheaper.

Route:
Flight: %s → %s
Train: %s → %s

Savings: ₹%d

Sound like a travel pricing engine.
Do NOT mention AI.
Return a single short sentence.`, from, hub, hub, to, saving)
}
