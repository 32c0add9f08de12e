// Package handler provides HTTP handlers for the FareFuse API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/api/middleware"
	"github.com/farefuse/farefuse/internal/api/models"
	"github.com/farefuse/farefuse/internal/api/response"
	"github.com/farefuse/farefuse/internal/location"
	"github.com/farefuse/farefuse/internal/search"
)

// Error messages returned by the search endpoint.
const (
	msgMissingEndpoints = "Missing from/to locations"
	msgInvalidBody      = "Invalid JSON body"
	msgSearchFailed     = "Failed to fetch prices"
)

// maxSearchBody bounds the request body of a search.
const maxSearchBody = 1 << 16

// fetchedAtLayout is RFC 3339 in UTC with millisecond precision.
const fetchedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Searcher runs a route search.
type Searcher interface {
	Search(ctx context.Context, from, to string) (*search.Result, error)
}

// SearchHandler handles route searches.
type SearchHandler struct {
	searcher Searcher
	logger   zerolog.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searcher Searcher, logger zerolog.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: logger}
}

// Search handles POST /api/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBody)).Decode(&req); err != nil {
		response.BadRequest(w, r, msgInvalidBody)
		return
	}

	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		response.BadRequest(w, r, msgMissingEndpoints)
		return
	}

	result, err := h.searcher.Search(r.Context(), req.From, req.To)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrMissingEndpoints):
			response.BadRequest(w, r, msgMissingEndpoints)
		case errors.Is(err, location.ErrUnknownLocation):
			response.BadRequest(w, r, unknownLocationMessage(err))
		default:
			h.logger.Error().
				Err(err).
				Str("request_id", middleware.GetRequestID(r.Context())).
				Str("from", req.From).
				Str("to", req.To).
				Msg("search failed")
			response.InternalError(w, r, msgSearchFailed)
		}
		return
	}

	response.JSON(w, r, http.StatusOK, toSearchResponse(result))
}

// unknownLocationMessage strips the sentinel prefix so clients see
// "City not found: X".
func unknownLocationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), location.ErrUnknownLocation.Error()+": ")
}

func toSearchResponse(res *search.Result) models.SearchResponse {
	routes := make([]any, 0, len(res.Routes))
	for _, r := range res.Routes {
		routes = append(routes, toRoute(r))
	}

	rejected := make([]models.RejectedRoute, 0, len(res.Rejected))
	for _, rj := range res.Rejected {
		rejected = append(rejected, models.RejectedRoute{City: rj.City, Reason: rj.Reason})
	}

	return models.SearchResponse{
		FetchedAt:      res.FetchedAt.UTC().Format(fetchedAtLayout),
		Routes:         routes,
		RejectedRoutes: rejected,
		Cheapest: models.Cheapest{
			Type:  string(res.Cheapest.Type),
			Price: res.Cheapest.Price,
		},
	}
}

func toRoute(r search.Route) any {
	if r.Type != search.TypeMixed {
		return models.DirectRoute{
			Type:       string(r.Type),
			Price:      r.Price,
			TotalTime:  r.TotalTime,
			From:       r.From,
			To:         r.To,
			Visibility: string(r.Visibility),
			Featured:   r.Featured,
		}
	}

	legs := make([]models.Leg, 0, len(r.Legs))
	for _, l := range r.Legs {
		legs = append(legs, models.Leg{Mode: string(l.Mode), From: l.From, To: l.To, Price: l.Price})
	}

	return models.MixedRoute{
		Type:        string(r.Type),
		TotalPrice:  r.TotalPrice,
		TotalTime:   r.TotalTime,
		Legs:        legs,
		Hub:         r.Hub,
		Explanation: r.Explanation,
		Visibility:  string(r.Visibility),
		Featured:    r.Featured,
	}
}
