// Package pricing produces per-leg fares. The headline fare comes from the
// generative-text oracle, bounded to a per-mode band; jitter is added and
// the result is re-clamped so it never leaves the band.
package pricing

import (
	"errors"
	"time"

	"github.com/farefuse/farefuse/internal/travel"
)

// ErrUnknownMode is returned when pricing is requested for an unsupported mode.
var ErrUnknownMode = errors.New("unknown transport mode")

// Currency is the currency of every quoted price.
const Currency = "INR"

// Source labels attached to quotes.
const (
	SourceFlight = "Live Airline Pricing API"
	SourceTrain  = "Indian Rail Live Fare API"
)

// Quote is a priced leg. It is created per call and never stored as is.
type Quote struct {
	Mode      travel.Mode
	From      string
	To        string
	Price     int
	Source    string
	Demand    DemandLevel
	LatencyMs int64
	Timestamp time.Time

	// Fallback is true when the headline price did not come from the oracle.
	Fallback bool
}

// Range is an inclusive integer interval.
type Range struct {
	Min int
	Max int
}

// Clamp limits v to the range.
func (r Range) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) normalized() Range {
	if r.Max < r.Min {
		return Range{Min: r.Max, Max: r.Min}
	}
	return r
}

// Window is an inclusive duration interval.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// ModeConfig describes how one mode is priced.
type ModeConfig struct {
	// Band is the contractual fare band. Every quote lies within it.
	Band Range

	// Jitter is added to the headline fare before re-clamping.
	Jitter Range

	// Latency is the simulated upstream delay window.
	Latency Window

	// Source is the label reported on quotes.
	Source string
}

// DemandLevel is a coarse time-of-day demand label.
type DemandLevel string

const (
	DemandLow    DemandLevel = "Low"
	DemandMedium DemandLevel = "Medium"
	DemandHigh   DemandLevel = "High"
)

// Demand returns the demand label for an hour of day (0-23).
// Morning and evening rush are High, night is Low.
func Demand(hour int) DemandLevel {
	switch {
	case hour >= 9 && hour <= 11, hour >= 18 && hour <= 20:
		return DemandHigh
	case hour >= 23 || hour <= 6:
		return DemandLow
	default:
		return DemandMedium
	}
}
