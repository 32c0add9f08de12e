package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/farefuse/farefuse/internal/location"
	"github.com/farefuse/farefuse/internal/pricing"
	"github.com/farefuse/farefuse/internal/snapshot"
	"github.com/farefuse/farefuse/internal/travel"
)

// Pricer quotes a single leg.
type Pricer interface {
	Price(ctx context.Context, mode travel.Mode, from, to string) (pricing.Quote, error)
}

// HubSuggester proposes intermediate cities for a city pair.
type HubSuggester interface {
	Suggest(ctx context.Context, from, to string) []string
}

// CorridorFilter keeps the candidates that lie within the route corridor.
type CorridorFilter interface {
	Apply(from, to string, candidates []string) []string
}

// Explainer justifies mixed routes that save enough over the direct flight.
type Explainer interface {
	Worthwhile(saving int) bool
	Explain(ctx context.Context, from, hub, to string, saving int) *string
}

// TimeEstimator estimates leg durations in hours.
type TimeEstimator interface {
	Estimate(mode travel.Mode, from, to string) float64
}

// Flags exposes the runtime switches the search honours.
type Flags interface {
	PriceLoggingDisabled(ctx context.Context) bool
	MixedRoutesDisabled(ctx context.Context) bool
	ExplanationsDisabled(ctx context.Context) bool
	MaxHubs(ctx context.Context) int
}

// ServiceConfig holds the collaborators and limits of the search service.
type ServiceConfig struct {
	Registry  *location.Registry
	Pricer    Pricer
	Suggester HubSuggester
	Corridor  CorridorFilter
	Estimator TimeEstimator

	// Explainer is optional. Without it mixed routes carry no explanation.
	Explainer Explainer

	// Sink receives a snapshot per returned route. Default: snapshot.NopSink.
	Sink snapshot.Sink

	// Flags is optional. Without it every switch is off.
	Flags Flags

	// HubConcurrency bounds how many hubs are evaluated at once. Default: 4.
	HubConcurrency int

	// PrimaryLimit is the number of PRIMARY routes. Default: 3.
	PrimaryLimit int

	// MaxTotalHours is the longest mixed route accepted. Default: 24.
	MaxTotalHours float64

	// SnapshotTimeout bounds each detached snapshot write. Default: 5s.
	SnapshotTimeout time.Duration

	// Now overrides the clock.
	Now func() time.Time

	Logger zerolog.Logger
}

// Service runs searches. It is safe for concurrent use.
type Service struct {
	registry  *location.Registry
	pricer    Pricer
	suggester HubSuggester
	corridor  CorridorFilter
	estimator TimeEstimator
	explainer Explainer
	sink      snapshot.Sink
	flags     Flags
	config    ServiceConfig
	logger    zerolog.Logger
	tracer    trace.Tracer
	metrics   *searchMetrics

	pending sync.WaitGroup
}

// NewService validates cfg, applies defaults and creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Registry == nil:
		return nil, errors.New("search: registry is required")
	case cfg.Pricer == nil:
		return nil, errors.New("search: pricer is required")
	case cfg.Suggester == nil:
		return nil, errors.New("search: suggester is required")
	case cfg.Corridor == nil:
		return nil, errors.New("search: corridor filter is required")
	case cfg.Estimator == nil:
		return nil, errors.New("search: time estimator is required")
	}

	if cfg.Sink == nil {
		cfg.Sink = snapshot.NopSink{}
	}
	if cfg.Flags == nil {
		cfg.Flags = noFlags{}
	}
	if cfg.HubConcurrency <= 0 {
		cfg.HubConcurrency = 4
	}
	if cfg.PrimaryLimit <= 0 {
		cfg.PrimaryLimit = DefaultPrimaryLimit
	}
	if cfg.MaxTotalHours <= 0 {
		cfg.MaxTotalHours = travel.MaxHours
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m, err := newSearchMetrics()
	if err != nil {
		return nil, fmt.Errorf("create search metrics: %w", err)
	}

	return &Service{
		registry:  cfg.Registry,
		pricer:    cfg.Pricer,
		suggester: cfg.Suggester,
		corridor:  cfg.Corridor,
		estimator: cfg.Estimator,
		explainer: cfg.Explainer,
		sink:      cfg.Sink,
		flags:     cfg.Flags,
		config:    cfg,
		logger:    cfg.Logger,
		tracer:    otel.Tracer(instrumentationName),
		metrics:   m,
	}, nil
}

// Search prices direct and mixed routes between from and to and returns
// them ranked. Only blank or unknown endpoints and caller cancellation
// during direct pricing are errors; every other failure degrades the result.
func (s *Service) Search(ctx context.Context, from, to string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "search.Search")
	defer span.End()

	start := time.Now()

	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return nil, ErrMissingEndpoints
	}

	origin, err := s.registry.Resolve(from)
	if err != nil {
		return nil, err
	}
	dest, err := s.registry.Resolve(to)
	if err != nil {
		return nil, err
	}
	from, to = origin.Name, dest.Name

	span.SetAttributes(
		attribute.String("search.from", from),
		attribute.String("search.to", to),
	)

	flight, train, err := s.priceDirect(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "direct pricing failed")
		return nil, fmt.Errorf("price direct routes: %w", err)
	}

	routes := []Route{
		s.directRoute(TypeFlight, flight),
		s.directRoute(TypeTrain, train),
	}
	rejected := []Rejection{}
	degraded := false

	if !s.flags.MixedRoutesDisabled(ctx) {
		mixed, rej, err := s.discover(ctx, from, to, flight.Price)
		if err != nil {
			degraded = true
			span.RecordError(err)
			s.logger.Error().Err(err).
				Str("from", from).
				Str("to", to).
				Msg("mixed route discovery failed, returning direct routes only")
		} else {
			routes = append(routes, mixed...)
			rejected = append(rejected, rej...)
		}
	}

	Rank(routes, s.config.PrimaryLimit)

	now := s.config.Now()
	result := &Result{
		FetchedAt: now.UTC(),
		Routes:    routes,
		Rejected:  rejected,
		Cheapest:  cheapestOf(routes),
		Degraded:  degraded,
	}

	if !s.flags.PriceLoggingDisabled(ctx) {
		s.persist(ctx, from, to, routes, now)
	}

	span.SetAttributes(
		attribute.Int("search.routes", len(routes)),
		attribute.Int("search.rejected", len(rejected)),
	)
	s.metrics.record(ctx, time.Since(start), result)

	s.logger.Info().
		Str("from", from).
		Str("to", to).
		Int("routes", len(routes)).
		Int("rejected", len(rejected)).
		Str("cheapest", string(result.Cheapest.Type)).
		Int("cheapest_price", result.Cheapest.Price).
		Dur("duration", time.Since(start)).
		Msg("search completed")

	return result, nil
}

// Flush waits for pending snapshot writes, or until ctx is done.
func (s *Service) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) priceDirect(ctx context.Context, from, to string) (pricing.Quote, pricing.Quote, error) {
	var flight, train pricing.Quote

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.quote(gctx, travel.ModeFlight, from, to)
		flight = q
		return err
	})
	g.Go(func() error {
		q, err := s.quote(gctx, travel.ModeTrain, from, to)
		train = q
		return err
	})

	if err := g.Wait(); err != nil {
		return pricing.Quote{}, pricing.Quote{}, err
	}
	return flight, train, nil
}

func (s *Service) directRoute(t RouteType, q pricing.Quote) Route {
	return Route{
		Type:       t,
		From:       q.From,
		To:         q.To,
		Price:      q.Price,
		TotalTime:  s.estimator.Estimate(q.Mode, q.From, q.To),
		Visibility: VisibilityPrimary,
		latencyMs:  q.LatencyMs,
	}
}

// quote prices a leg, converting a panic in the pricer into an error.
func (s *Service) quote(ctx context.Context, mode travel.Mode, from, to string) (q pricing.Quote, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pricing %s %s→%s panicked: %v", mode, from, to, r)
		}
	}()
	return s.pricer.Price(ctx, mode, from, to)
}

type hubOutcome struct {
	route     *Route
	rejection *Rejection
}

// discover builds mixed routes. A panic anywhere outside a single hub's
// evaluation is recovered and reported as an error.
func (s *Service) discover(ctx context.Context, from, to string, directFlight int) (routes []Route, rejected []Rejection, err error) {
	defer func() {
		if r := recover(); r != nil {
			routes, rejected = nil, nil
			err = fmt.Errorf("%w: %v", ErrDiscoveryPanic, r)
		}
	}()

	suggestions := s.suggester.Suggest(ctx, from, to)
	accepted := s.corridor.Apply(from, to, suggestions)

	hubs := accepted
	if limit := s.flags.MaxHubs(ctx); limit > 0 && len(hubs) > limit {
		hubs = hubs[:limit]
	}

	explain := s.explainer != nil && !s.flags.ExplanationsDisabled(ctx)

	outcomes := make([]hubOutcome, len(hubs))
	g := new(errgroup.Group)
	g.SetLimit(s.config.HubConcurrency)
	for i, hub := range hubs {
		g.Go(func() error {
			outcomes[i] = s.evaluateHub(ctx, from, hub, to, directFlight, explain)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		switch {
		case o.route != nil:
			routes = append(routes, *o.route)
		case o.rejection != nil:
			rejected = append(rejected, *o.rejection)
		}
	}

	for _, city := range suggestions {
		if !containsCity(accepted, city) {
			rejected = append(rejected, Rejection{City: city, Reason: ReasonOutOfCorridor})
		}
	}

	s.logger.Debug().
		Str("from", from).
		Str("to", to).
		Strs("suggested", suggestions).
		Strs("accepted", accepted).
		Int("evaluated", len(hubs)).
		Msg("hub candidates evaluated")

	return routes, rejected, nil
}

// evaluateHub prices and checks the route from→hub→to. It never panics.
func (s *Service) evaluateHub(ctx context.Context, from, hub, to string, directFlight int, explain bool) (out hubOutcome) {
	ctx, span := s.tracer.Start(ctx, "search.hub", trace.WithAttributes(attribute.String("search.hub", hub)))
	defer span.End()

	failed := func(err error) hubOutcome {
		span.RecordError(err)
		span.SetStatus(codes.Error, ReasonGenerationFailed)
		s.logger.Warn().Err(err).Str("hub", hub).Msg("hub route generation failed")
		return hubOutcome{rejection: &Rejection{City: hub, Reason: ReasonGenerationFailed}}
	}

	defer func() {
		if r := recover(); r != nil {
			out = failed(fmt.Errorf("hub %s panicked: %v", hub, r))
		}
	}()

	var flight, train pricing.Quote
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.quote(gctx, travel.ModeFlight, from, hub)
		flight = q
		return err
	})
	g.Go(func() error {
		q, err := s.quote(gctx, travel.ModeTrain, hub, to)
		train = q
		return err
	})
	if err := g.Wait(); err != nil {
		return failed(err)
	}

	totalTime := travel.RoundTenth(
		s.estimator.Estimate(travel.ModeFlight, from, hub) + s.estimator.Estimate(travel.ModeTrain, hub, to),
	)
	if totalTime > s.config.MaxTotalHours {
		span.SetAttributes(attribute.Float64("search.hub.hours", totalTime))
		return hubOutcome{rejection: &Rejection{City: hub, Reason: fmt.Sprintf(ReasonTooLong, totalTime)}}
	}

	total := flight.Price + train.Price
	saving := directFlight - total

	var explanation *string
	if explain && s.explainer.Worthwhile(saving) {
		explanation = s.explainer.Explain(ctx, from, hub, to, saving)
	}

	return hubOutcome{route: &Route{
		Type:       TypeMixed,
		From:       from,
		To:         to,
		TotalPrice: total,
		TotalTime:  totalTime,
		Legs: []Leg{
			{Mode: travel.ModeFlight, From: from, To: hub, Price: flight.Price},
			{Mode: travel.ModeTrain, From: hub, To: to, Price: train.Price},
		},
		Hub:         hub,
		Explanation: explanation,
		Visibility:  VisibilitySecondary,
		latencyMs:   max(flight.LatencyMs, train.LatencyMs),
	}}
}

// persist writes one snapshot per route in the background. Writes outlive
// the request and their failures are only logged.
func (s *Service) persist(ctx context.Context, from, to string, routes []Route, at time.Time) {
	demand := string(pricing.Demand(at.Hour()))
	detached := context.WithoutCancel(ctx)

	for _, r := range routes {
		snap := buildSnapshot(from, to, r, demand, at)

		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Debug().Interface("panic", rec).Msg("snapshot save panicked")
				}
			}()

			wctx, cancel := context.WithTimeout(detached, s.config.SnapshotTimeout)
			defer cancel()

			if err := s.sink.Save(wctx, snap); err != nil {
				s.logger.Debug().Err(err).
					Str("type", snap.Type).
					Str("hub", snap.Metadata.Hub).
					Msg("failed to save price snapshot")
			}
		}()
	}
}

func buildSnapshot(from, to string, r Route, demand string, at time.Time) *snapshot.Snapshot {
	source := SnapshotSourceDirect
	if r.Type == TypeMixed {
		source = SnapshotSourceMixed
	}

	var legs []snapshot.Leg
	for _, l := range r.Legs {
		legs = append(legs, snapshot.Leg{Mode: string(l.Mode), From: l.From, To: l.To, Price: l.Price})
	}

	return &snapshot.Snapshot{
		Route:     snapshot.RoutePair{From: from, To: to},
		Type:      string(r.Type),
		Price:     r.EffectivePrice(),
		Currency:  pricing.Currency,
		Demand:    demand,
		Source:    source,
		LatencyMs: r.latencyMs,
		Metadata: snapshot.Metadata{
			Hub:  r.Hub,
			Time: r.TotalTime,
			Legs: legs,
		},
		FetchedAt: at.UTC(),
	}
}

func containsCity(cities []string, city string) bool {
	for _, c := range cities {
		if location.SameCity(c, city) {
			return true
		}
	}
	return false
}

type noFlags struct{}

func (noFlags) PriceLoggingDisabled(context.Context) bool { return false }
func (noFlags) MixedRoutesDisabled(context.Context) bool  { return false }
func (noFlags) ExplanationsDisabled(context.Context) bool { return false }
func (noFlags) MaxHubs(context.Context) int               { return 0 }
