package handler

import (
	"net/http"
	"sort"

	"github.com/farefuse/farefuse/internal/api/models"
	"github.com/farefuse/farefuse/internal/api/response"
	"github.com/farefuse/farefuse/internal/featureflags"
)

// FeatureFlagsHandler exposes the runtime switches read by searches.
type FeatureFlagsHandler struct {
	service *featureflags.Service
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler. A nil service
// reports defaults.
func NewFeatureFlagsHandler(service *featureflags.Service) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service}
}

// ListFeatureFlags handles GET /api/ops/flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	all := h.service.GetAllFlags(r.Context())

	out := models.FeatureFlags{Flags: make([]models.FeatureFlag, 0, len(all))}
	for _, f := range all {
		out.Flags = append(out.Flags, models.FeatureFlag{Key: f.Key, Value: f.Value, UpdatedAt: f.UpdatedAt})
	}
	sort.Slice(out.Flags, func(i, j int) bool { return out.Flags[i].Key < out.Flags[j].Key })

	response.JSON(w, r, http.StatusOK, out)
}

// InvalidateCache handles POST /api/ops/flags/invalidate so flag changes
// made in the store apply before the cache expires.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if h.service != nil {
		h.service.InvalidateCache()
	}
	response.JSON(w, r, http.StatusOK, models.Message{Status: "success", Message: "Feature flag cache cleared"})
}
