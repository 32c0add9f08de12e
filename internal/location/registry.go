package location

import (
	"fmt"
	"sort"
	"strings"
)

// Registry resolves city names to locations. Lookups are case-insensitive
// and ignore surrounding whitespace. A Registry is read-only after
// construction and safe for concurrent use.
type Registry struct {
	byKey map[string]Location
}

// NewRegistry creates a registry from the given locations.
// Later entries with the same normalized name replace earlier ones.
func NewRegistry(locations []Location) *Registry {
	byKey := make(map[string]Location, len(locations))
	for _, loc := range locations {
		byKey[normalize(loc.Name)] = loc
	}
	return &Registry{byKey: byKey}
}

// DefaultRegistry returns a registry loaded with the built-in city table.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultLocations())
}

// Resolve returns the location for name or an error wrapping ErrUnknownLocation.
func (r *Registry) Resolve(name string) (Location, error) {
	loc, ok := r.Lookup(name)
	if !ok {
		return Location{}, fmt.Errorf("%w: City not found: %s", ErrUnknownLocation, name)
	}
	return loc, nil
}

// Lookup returns the location for name and whether it exists.
func (r *Registry) Lookup(name string) (Location, bool) {
	loc, ok := r.byKey[normalize(name)]
	return loc, ok
}

// Names returns the canonical names of all registered cities, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byKey))
	for _, loc := range r.byKey {
		names = append(names, loc.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered cities.
func (r *Registry) Len() int {
	return len(r.byKey)
}

// SameCity reports whether a and b name the same registry key.
func SameCity(a, b string) bool {
	return normalize(a) == normalize(b)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultLocations returns the built-in city table. It covers every search
// endpoint and every city that appears in the hub fallback table, so that
// "known city" and "known coordinates" always agree.
func DefaultLocations() []Location {
	return []Location{
		{Name: "Nagpur", Lat: 21.1458, Lon: 79.0882, Airport: "NAG", Station: "Nagpur Railway Station"},
		{Name: "Delhi", Lat: 28.7041, Lon: 77.1025, Airport: "DEL", Station: "New Delhi Railway Station"},
		{Name: "Mumbai", Lat: 19.076, Lon: 72.8776, Airport: "BOM", Station: "Mumbai Central Railway Station"},
		{Name: "Bangalore", Lat: 12.9716, Lon: 77.5946, Airport: "BLR", Station: "Bangalore City Railway Station"},
		{Name: "Leh", Lat: 34.1526, Lon: 77.577, Airport: "IXL", Station: "Leh Station"},
		{Name: "Kolkata", Lat: 22.5726, Lon: 88.3639, Airport: "CCU", Station: "Howrah Railway Station"},
		{Name: "Hyderabad", Lat: 17.385, Lon: 78.4867, Airport: "HYD", Station: "Hyderabad Deccan Railway Station"},
		{Name: "Chennai", Lat: 13.0827, Lon: 80.2707, Airport: "MAA", Station: "Chennai Central Railway Station"},
		{Name: "Pune", Lat: 18.5204, Lon: 73.8567, Airport: "PNQ", Station: "Pune Railway Station"},
		{Name: "Goa", Lat: 15.3417, Lon: 73.8244, Airport: "GOI", Station: "Madgaon Railway Station"},
		{Name: "Bhopal", Lat: 23.1815, Lon: 79.9864, Airport: "BHO", Station: "Bhopal Junction"},
		{Name: "Gwalior", Lat: 26.2183, Lon: 78.1828, Airport: "GWL", Station: "Gwalior Junction"},
		{Name: "Jaipur", Lat: 26.9124, Lon: 75.7873, Airport: "JAI", Station: "Jaipur Junction"},
		{Name: "Agra", Lat: 27.1767, Lon: 78.0081, Airport: "AGR", Station: "Agra Cantt"},
		{Name: "Kota", Lat: 25.2138, Lon: 75.8648, Airport: "KTU", Station: "Kota Junction"},
		{Name: "Chandigarh", Lat: 30.7333, Lon: 76.7794, Airport: "IXC", Station: "Chandigarh Railway Station"},
		{Name: "Jammu", Lat: 32.7267, Lon: 75.877, Airport: "IXJ", Station: "Jammu Tawi"},
		{Name: "Shimla", Lat: 31.1048, Lon: 77.1734, Airport: "SLV", Station: "Shimla Railway Station"},
		{Name: "Nahan", Lat: 30.56, Lon: 77.2944, Station: "Nahan Bus Stand"},
		{Name: "Indore", Lat: 22.7196, Lon: 75.8577, Airport: "IDR", Station: "Indore Junction"},
		{Name: "Allahabad", Lat: 25.4358, Lon: 81.8463, Airport: "IXD", Station: "Prayagraj Junction"},
		{Name: "Varanasi", Lat: 25.3176, Lon: 82.9739, Airport: "VNS", Station: "Varanasi Junction"},
		{Name: "Raipur", Lat: 21.2514, Lon: 81.6296, Airport: "RPR", Station: "Raipur Junction"},
		{Name: "Bilaspur", Lat: 22.0796, Lon: 82.1598, Airport: "PAB", Station: "Bilaspur Junction"},
		{Name: "Jharsuguda", Lat: 21.8629, Lon: 84.0211, Airport: "JRG", Station: "Jharsuguda Junction"},
		{Name: "Belgaum", Lat: 15.8687, Lon: 75.5229, Airport: "IXG", Station: "Belagavi Railway Station"},
		{Name: "Tirupati", Lat: 13.1939, Lon: 79.8941, Airport: "TIR", Station: "Tirupati Main"},
		{Name: "Kurnool", Lat: 15.8281, Lon: 78.8353, Airport: "KJB", Station: "Kurnool City"},
	}
}
