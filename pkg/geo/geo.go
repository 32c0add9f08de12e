// Package geo provides great-circle distance helpers for geographic coordinates.
package geo

import (
	"math"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Coordinate represents a geographic point with latitude and longitude in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between a and b in kilometres
// using the Haversine formula.
func Distance(a, b Coordinate) float64 {
	lat1Rad := toRadians(a.Lat)
	lat2Rad := toRadians(b.Lat)
	deltaLat := toRadians(b.Lat - a.Lat)
	deltaLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Asin(math.Sqrt(h))

	return EarthRadiusKm * c
}

// ViaDistance returns the total distance of travelling from a to b through via.
func ViaDistance(a, via, b Coordinate) float64 {
	return Distance(a, via) + Distance(via, b)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
