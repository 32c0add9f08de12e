// Package travel defines transport modes and estimates door-to-door travel
// time from great-circle distance.
package travel

import (
	"math"

	"github.com/farefuse/farefuse/internal/location"
	"github.com/farefuse/farefuse/pkg/geo"
)

// Mode represents a transport mode for a single leg.
type Mode string

const (
	ModeFlight Mode = "FLIGHT"
	ModeTrain  Mode = "TRAIN"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeFlight || m == ModeTrain
}

// MaxHours is returned for legs whose endpoints cannot be resolved.
// It is also the longest journey a mixed route may take.
const MaxHours = 24.0

// EstimatorConfig holds the speed model used for time estimates.
type EstimatorConfig struct {
	// FlightSpeedKmh is the average cruise speed. Default: 700.
	FlightSpeedKmh float64

	// FlightOverheadHours covers boarding, taxiing and transfers. Default: 2.
	FlightOverheadHours float64

	// TrainSpeedKmh is the average speed including stops. Default: 80.
	TrainSpeedKmh float64
}

// DefaultEstimatorConfig returns the default speed model.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		FlightSpeedKmh:      700,
		FlightOverheadHours: 2,
		TrainSpeedKmh:       80,
	}
}

// Estimator converts distances into travel-time estimates.
type Estimator struct {
	registry *location.Registry
	config   EstimatorConfig
}

// NewEstimator creates an estimator backed by the given registry.
func NewEstimator(registry *location.Registry, cfg EstimatorConfig) *Estimator {
	defaults := DefaultEstimatorConfig()
	if cfg.FlightSpeedKmh <= 0 {
		cfg.FlightSpeedKmh = defaults.FlightSpeedKmh
	}
	if cfg.FlightOverheadHours <= 0 {
		cfg.FlightOverheadHours = defaults.FlightOverheadHours
	}
	if cfg.TrainSpeedKmh <= 0 {
		cfg.TrainSpeedKmh = defaults.TrainSpeedKmh
	}
	return &Estimator{registry: registry, config: cfg}
}

// Estimate returns the travel time in hours between two cities, rounded up
// to one decimal place. Unresolvable cities yield MaxHours; an unknown mode
// yields 0. It never fails.
func (e *Estimator) Estimate(mode Mode, from, to string) float64 {
	fromLoc, ok := e.registry.Lookup(from)
	if !ok {
		return MaxHours
	}
	toLoc, ok := e.registry.Lookup(to)
	if !ok {
		return MaxHours
	}

	return e.EstimateDistance(mode, geo.Distance(fromLoc.Coordinate(), toLoc.Coordinate()))
}

// EstimateDistance returns the travel time in hours for a distance in km.
func (e *Estimator) EstimateDistance(mode Mode, distanceKm float64) float64 {
	switch mode {
	case ModeFlight:
		return CeilTenth(distanceKm/e.config.FlightSpeedKmh + e.config.FlightOverheadHours)
	case ModeTrain:
		return CeilTenth(distanceKm / e.config.TrainSpeedKmh)
	default:
		return 0
	}
}

// CeilTenth rounds h up to one decimal place.
func CeilTenth(h float64) float64 {
	return math.Ceil(h*10) / 10
}

// RoundTenth rounds h to the nearest tenth.
func RoundTenth(h float64) float64 {
	return math.Round(h*10) / 10
}
