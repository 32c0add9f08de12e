// Package corridor prunes hub candidates that would be a geographic detour
// relative to the direct route.
package corridor

import (
	"github.com/farefuse/farefuse/internal/location"
	"github.com/farefuse/farefuse/pkg/geo"
)

// DefaultTolerance allows up to 50% extra total distance via a hub.
const DefaultTolerance = 1.5

// Verdict is the outcome of checking one candidate.
type Verdict struct {
	// City is the canonical name, or the input name when unknown.
	City     string
	Known    bool
	Accepted bool
	DirectKm float64
	ViaKm    float64
	LimitKm  float64
}

// Filter accepts hubs whose via-distance stays within Tolerance times the
// direct distance. It is pure and safe for concurrent use.
type Filter struct {
	registry  *location.Registry
	tolerance float64
}

// NewFilter creates a filter. A non-positive tolerance uses DefaultTolerance.
func NewFilter(registry *location.Registry, tolerance float64) *Filter {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Filter{registry: registry, tolerance: tolerance}
}

// Tolerance returns the configured detour allowance.
func (f *Filter) Tolerance() float64 {
	return f.tolerance
}

// Apply returns the accepted candidates as canonical names, in input order.
// Candidates with unknown coordinates are dropped, as is everything when an
// endpoint is unknown.
func (f *Filter) Apply(from, to string, candidates []string) []string {
	accepted := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if v := f.Check(from, to, c); v.Accepted {
			accepted = append(accepted, v.City)
		}
	}
	return accepted
}

// Check evaluates a single candidate.
func (f *Filter) Check(from, to, city string) Verdict {
	v := Verdict{City: city}

	fromLoc, ok := f.registry.Lookup(from)
	if !ok {
		return v
	}
	toLoc, ok := f.registry.Lookup(to)
	if !ok {
		return v
	}
	hub, ok := f.registry.Lookup(city)
	if !ok {
		return v
	}

	v.City = hub.Name
	v.Known = true
	v.DirectKm = geo.Distance(fromLoc.Coordinate(), toLoc.Coordinate())
	v.ViaKm = geo.ViaDistance(fromLoc.Coordinate(), hub.Coordinate(), toLoc.Coordinate())
	v.LimitKm = v.DirectKm * f.tolerance
	v.Accepted = v.ViaKm <= v.LimitKm
	return v
}
