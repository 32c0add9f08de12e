package models

import "time"

// Health is the body of GET /api/health.
type Health struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Locations is the body of GET /api/locations.
type Locations struct {
	Locations []Location `json:"locations"`
	Count     int        `json:"count"`
}

// Location is one searchable city.
type Location struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Airport string  `json:"airport,omitempty"`
	Station string  `json:"station,omitempty"`
}

// SystemStatus is the body of GET /api/ops/status.
type SystemStatus struct {
	Status    string           `json:"status"`
	Version   string           `json:"version,omitempty"`
	Time      time.Time        `json:"time"`
	Providers []ProviderStatus `json:"providers"`

	// ActiveFlags lists the boolean runtime switches that are on.
	ActiveFlags []string `json:"active_flags"`
}

// ProviderStatus reports the circuit breaker of one outbound provider.
type ProviderStatus struct {
	Provider            string     `json:"provider"`
	State               string     `json:"state"`
	Healthy             bool       `json:"healthy"`
	Requests            uint32     `json:"requests"`
	ConsecutiveFailures uint32     `json:"consecutive_failures"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
}

// Status values for SystemStatus.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// FeatureFlags is the body of GET /api/ops/flags.
type FeatureFlags struct {
	Flags []FeatureFlag `json:"flags"`
}

// FeatureFlag is one runtime switch and its current value.
type FeatureFlag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a plain acknowledgement.
type Message struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
