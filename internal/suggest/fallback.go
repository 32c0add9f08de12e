package suggest

// DefaultHubs is used when neither orientation of a city pair is in the
// fallback table.
var DefaultHubs = []string{"Delhi", "Bhopal", "Hyderabad"}

// DefaultFallbacks returns the static hub table keyed by "From-To".
// Lookups also try the reversed pair.
func DefaultFallbacks() map[string][]string {
	return map[string][]string{
		"Nagpur-Leh":          {"Delhi", "Chandigarh"},
		"Nagpur-Delhi":        {"Bhopal", "Gwalior", "Jaipur", "Agra"},
		"Nagpur-Shimla":       {"Delhi", "Chandigarh"},
		"Nagpur-Kolkata":      {"Raipur", "Bilaspur", "Jharsuguda"},
		"Nagpur-Bangalore":    {"Hyderabad", "Belgaum"},
		"Nagpur-Chennai":      {"Hyderabad"},
		"Nagpur-Mumbai":       {"Pune"},
		"Nagpur-Goa":          {"Pune"},
		"Mumbai-Delhi":        {"Indore", "Gwalior", "Jaipur", "Agra"},
		"Mumbai-Bangalore":    {"Pune", "Belgaum"},
		"Mumbai-Chennai":      {"Bangalore", "Hyderabad"},
		"Mumbai-Kolkata":      {"Indore", "Bhopal", "Allahabad"},
		"Delhi-Bangalore":     {"Bhopal", "Indore", "Hyderabad"},
		"Delhi-Chennai":       {"Hyderabad", "Bhopal"},
		"Delhi-Kolkata":       {"Allahabad", "Varanasi"},
		"Delhi-Leh":           {"Chandigarh", "Shimla"},
		"Bangalore-Chennai":   {"Tirupati"},
		"Bangalore-Hyderabad": {"Kurnool"},
		"Bangalore-Kolkata":   {"Hyderabad", "Bhopal"},
		"Chennai-Delhi":       {"Hyderabad", "Bhopal", "Jaipur"},
		"Chennai-Kolkata":     {"Hyderabad", "Bhopal", "Allahabad"},
		"Kolkata-Mumbai":      {"Allahabad", "Indore", "Bhopal"},
	}
}
