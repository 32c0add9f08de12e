// Package search synthesises and ranks travel options for a city pair:
// direct flight and train legs plus two-leg FLIGHT+TRAIN routes through
// oracle-suggested hub cities.
package search

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/farefuse/farefuse/internal/travel"
)

var (
	// ErrMissingEndpoints is returned when from or to is blank.
	ErrMissingEndpoints = errors.New("missing from/to locations")

	// ErrDiscoveryPanic wraps a panic recovered during mixed-route discovery.
	ErrDiscoveryPanic = errors.New("mixed route discovery panicked")
)

// RouteType discriminates route variants.
type RouteType string

const (
	TypeFlight RouteType = "FLIGHT"
	TypeTrain  RouteType = "TRAIN"
	TypeMixed  RouteType = "MIXED"
)

// Visibility is the display tier assigned by ranking.
type Visibility string

const (
	VisibilityPrimary   Visibility = "PRIMARY"
	VisibilitySecondary Visibility = "SECONDARY"
)

// DefaultPrimaryLimit is how many of the cheapest routes are PRIMARY.
const DefaultPrimaryLimit = 3

// Rejection reasons. ReasonTooLong is a format string taking the total hours.
const (
	ReasonTooLong          = "Exceeds 24-hour travel time (%.1fh)"
	ReasonOutOfCorridor    = "Out of route corridor (geographic detour)"
	ReasonGenerationFailed = "Route generation failed"
)

// Snapshot source labels.
const (
	SnapshotSourceDirect = "Live API"
	SnapshotSourceMixed  = "Multi-Leg Route Optimization"
)

// Leg is one priced segment of a mixed route.
type Leg struct {
	Mode  travel.Mode
	From  string
	To    string
	Price int
}

// Route is a ranked travel option. Direct routes use Price; mixed routes use
// TotalPrice, Legs, Hub and Explanation.
type Route struct {
	Type        RouteType
	From        string
	To          string
	Price       int
	TotalPrice  int
	TotalTime   float64
	Legs        []Leg
	Hub         string
	Explanation *string
	Visibility  Visibility
	Featured    bool

	latencyMs int64
}

// EffectivePrice is the price routes are ranked by.
func (r Route) EffectivePrice() int {
	if r.Type == TypeMixed {
		return r.TotalPrice
	}
	return r.Price
}

// Rejection records a hub candidate that did not produce a route.
type Rejection struct {
	City   string
	Reason string
}

// Cheapest summarises the featured route.
type Cheapest struct {
	Type  RouteType
	Price int
}

// Result is the outcome of a search.
type Result struct {
	FetchedAt time.Time
	Routes    []Route
	Rejected  []Rejection
	Cheapest  Cheapest

	// Degraded is true when mixed-route discovery failed and only direct
	// routes are returned.
	Degraded bool
}

// Rank sorts routes by effective price, keeping the relative order of equal
// prices, then tags the first primaryLimit routes PRIMARY and the rest
// SECONDARY. Only the first route is featured.
func Rank(routes []Route, primaryLimit int) {
	slices.SortStableFunc(routes, func(a, b Route) int {
		return cmp.Compare(a.EffectivePrice(), b.EffectivePrice())
	})

	for i := range routes {
		routes[i].Featured = i == 0
		if i < primaryLimit {
			routes[i].Visibility = VisibilityPrimary
		} else {
			routes[i].Visibility = VisibilitySecondary
		}
	}
}

func cheapestOf(routes []Route) Cheapest {
	if len(routes) == 0 {
		return Cheapest{Type: "unknown"}
	}
	return Cheapest{Type: routes[0].Type, Price: routes[0].EffectivePrice()}
}
