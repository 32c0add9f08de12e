package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/farefuse/farefuse/internal/api/models"
	"github.com/farefuse/farefuse/internal/api/response"
	"github.com/farefuse/farefuse/internal/featureflags"
	"github.com/farefuse/farefuse/internal/location"
	"github.com/farefuse/farefuse/internal/provider/resilience"
)

// FlagSource lists the current feature flags.
type FlagSource interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
}

// OpsHandler handles health, location listing and status endpoints.
type OpsHandler struct {
	version  string
	registry *location.Registry
	monitor  *resilience.Monitor
	flags    FlagSource
	now      func() time.Time
}

// OpsConfig holds the dependencies of OpsHandler. Monitor and Flags may be nil.
type OpsConfig struct {
	Version  string
	Registry *location.Registry
	Monitor  *resilience.Monitor
	Flags    FlagSource
	Now      func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	registry := cfg.Registry
	if registry == nil {
		registry = location.DefaultRegistry()
	}
	return &OpsHandler{
		version:  cfg.Version,
		registry: registry,
		monitor:  cfg.Monitor,
		flags:    cfg.Flags,
		now:      now,
	}
}

// HealthCheck handles GET /api/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.StatusOK,
		Message:   "Travel Pricing API is running",
		Timestamp: h.now().UTC().Format(fetchedAtLayout),
	})
}

// ListLocations handles GET /api/locations - the searchable cities.
func (h *OpsHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	out := models.Locations{
		Locations: make([]models.Location, 0, len(names)),
		Count:     len(names),
	}
	for _, name := range names {
		loc, _ := h.registry.Lookup(name)
		out.Locations = append(out.Locations, models.Location{
			Name:    loc.Name,
			Lat:     loc.Lat,
			Lon:     loc.Lon,
			Airport: loc.Airport,
			Station: loc.Station,
		})
	}
	response.JSON(w, r, http.StatusOK, out)
}

// SystemStatus handles GET /api/ops/status - oracle circuit state and
// active runtime switches. Status is degraded while any breaker is not
// closed; searches still succeed on fallbacks.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:      models.StatusOK,
		Version:     h.version,
		Time:        h.now().UTC(),
		Providers:   []models.ProviderStatus{},
		ActiveFlags: []string{},
	}

	if h.monitor != nil {
		for _, p := range h.monitor.All() {
			if !p.Healthy() {
				status.Status = models.StatusDegraded
			}
			status.Providers = append(status.Providers, models.ProviderStatus{
				Provider:            p.Name,
				State:               p.State.String(),
				Healthy:             p.Healthy(),
				Requests:            p.Counts.Requests,
				ConsecutiveFailures: p.Counts.ConsecutiveFailures,
				LastSuccessAt:       p.LastSuccessAt,
				LastFailureAt:       p.LastFailureAt,
				LastError:           p.LastError,
			})
		}
	}

	if h.flags != nil {
		for key, flag := range h.flags.GetAllFlags(r.Context()) {
			if flag.BoolValue(false) {
				status.ActiveFlags = append(status.ActiveFlags, key)
			}
		}
		sort.Strings(status.ActiveFlags)
	}

	response.JSON(w, r, http.StatusOK, status)
}
