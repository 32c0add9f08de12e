// Package featureflags provides runtime switches for the search pipeline.
// Flags live in Postgres when available and fall back to in-memory defaults.
package featureflags

import (
	"encoding/json"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisablePriceLogging stops searches from emitting price snapshots.
	FlagDisablePriceLogging = "disable_price_logging"

	// FlagDisableMixedRoutes skips hub discovery; searches return direct routes only.
	FlagDisableMixedRoutes = "disable_mixed_routes"

	// FlagDisableRouteExplanations skips explanation calls for cheap mixed routes.
	FlagDisableRouteExplanations = "disable_route_explanations"

	// FlagMaxHubs caps how many corridor-approved hubs are priced per search.
	// 0 means no cap.
	FlagMaxHubs = "max_hubs"
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	case int:
		return v != 0
	default:
		return defaultValue
	}
}

// IntValue returns the flag value as an integer.
// Returns the default value if the flag is nil or not a number.
func (f *Flag) IntValue(defaultValue int) int {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

// JSONValue unmarshals the flag value into target.
func (f *Flag) JSONValue(target any) error {
	if f == nil {
		return nil
	}
	data, err := json.Marshal(f.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (f *Flag) clone() *Flag {
	if f == nil {
		return nil
	}
	cp := *f
	return &cp
}

// DefaultFlags returns the default feature flags. Every switch is off.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagDisablePriceLogging:      {Key: FlagDisablePriceLogging, Value: false, UpdatedAt: now},
		FlagDisableMixedRoutes:       {Key: FlagDisableMixedRoutes, Value: false, UpdatedAt: now},
		FlagDisableRouteExplanations: {Key: FlagDisableRouteExplanations, Value: false, UpdatedAt: now},
		FlagMaxHubs:                  {Key: FlagMaxHubs, Value: 0, UpdatedAt: now},
	}
}
