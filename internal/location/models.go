// Package location provides the canonical city registry used to resolve
// search endpoints and hub candidates to coordinates, airports and stations.
package location

import (
	"errors"

	"github.com/farefuse/farefuse/pkg/geo"
)

// ErrUnknownLocation is returned when a city name is not in the registry.
var ErrUnknownLocation = errors.New("unknown location")

// Location is an immutable registry entry for a city.
type Location struct {
	// Name is the canonical display name, e.g. "Nagpur".
	Name string
	Lat  float64
	Lon  float64
	// Airport is the IATA code of the nearest airport. Empty if none.
	Airport string
	// Station is the main railway station serving the city.
	Station string
}

// Coordinate returns the location as a geo coordinate.
func (l Location) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: l.Lat, Lon: l.Lon}
}

// HasAirport reports whether the city has a known airport.
func (l Location) HasAirport() bool {
	return l.Airport != ""
}
