package search_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farefuse/farefuse/internal/corridor"
	"github.com/farefuse/farefuse/internal/location"
	"github.com/farefuse/farefuse/internal/oracle"
	"github.com/farefuse/farefuse/internal/pricing"
	"github.com/farefuse/farefuse/internal/search"
	"github.com/farefuse/farefuse/internal/snapshot"
	"github.com/farefuse/farefuse/internal/suggest"
	"github.com/farefuse/farefuse/internal/travel"
)

// mockPricer returns fixed prices keyed by "MODE:from:to", falling back to
// 5000 for flights and 2000 for trains.
type mockPricer struct {
	prices map[string]int
	errs   map[string]error
	panics map[string]bool
	calls  atomic.Int32
}

func (m *mockPricer) Price(ctx context.Context, mode travel.Mode, from, to string) (pricing.Quote, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return pricing.Quote{}, err
	}

	key := fmt.Sprintf("%s:%s:%s", mode, from, to)
	if m.panics[key] {
		panic("pricer exploded")
	}
	if err, ok := m.errs[key]; ok {
		return pricing.Quote{}, err
	}

	price, ok := m.prices[key]
	if !ok {
		price = 5000
		if mode == travel.ModeTrain {
			price = 2000
		}
	}
	return pricing.Quote{Mode: mode, From: from, To: to, Price: price, LatencyMs: 12}, nil
}

type staticSuggester struct {
	cities []string
	panic  bool
}

func (s staticSuggester) Suggest(context.Context, string, string) []string {
	if s.panic {
		panic("suggester exploded")
	}
	return s.cities
}

type mockExplainer struct {
	threshold int
	text      string
	calls     atomic.Int32
}

func (m *mockExplainer) Worthwhile(saving int) bool { return saving > m.threshold }

func (m *mockExplainer) Explain(_ context.Context, from, hub, to string, saving int) *string {
	m.calls.Add(1)
	text := fmt.Sprintf("%s via %s to %s saves ₹%d", from, hub, to, saving)
	if m.text != "" {
		text = m.text
	}
	return &text
}

type recordingSink struct {
	mu    sync.Mutex
	saved []*snapshot.Snapshot
	err   error
}

func (r *recordingSink) Save(_ context.Context, s *snapshot.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, s)
	return nil
}

func (r *recordingSink) snapshots() []*snapshot.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*snapshot.Snapshot(nil), r.saved...)
}

type mockFlags struct {
	noLogging      bool
	noMixed        bool
	noExplanations bool
	maxHubs        int
}

func (f mockFlags) PriceLoggingDisabled(context.Context) bool { return f.noLogging }
func (f mockFlags) MixedRoutesDisabled(context.Context) bool  { return f.noMixed }
func (f mockFlags) ExplanationsDisabled(context.Context) bool { return f.noExplanations }
func (f mockFlags) MaxHubs(context.Context) int               { return f.maxHubs }

func newTestService(t *testing.T, cfg search.ServiceConfig) *search.Service {
	t.Helper()

	reg := location.DefaultRegistry()
	if cfg.Registry == nil {
		cfg.Registry = reg
	}
	if cfg.Pricer == nil {
		cfg.Pricer = &mockPricer{}
	}
	if cfg.Suggester == nil {
		cfg.Suggester = staticSuggester{}
	}
	if cfg.Corridor == nil {
		cfg.Corridor = corridor.NewFilter(reg, corridor.DefaultTolerance)
	}
	if cfg.Estimator == nil {
		cfg.Estimator = travel.NewEstimator(reg, travel.DefaultEstimatorConfig())
	}
	cfg.Logger = zerolog.Nop()

	svc, err := search.NewService(cfg)
	require.NoError(t, err)
	return svc
}

func assertRankingInvariants(t *testing.T, result *search.Result) {
	t.Helper()

	featured := 0
	for i, r := range result.Routes {
		if i > 0 {
			assert.LessOrEqual(t, result.Routes[i-1].EffectivePrice(), r.EffectivePrice(), "routes must be sorted by price")
		}
		if r.Featured {
			featured++
			assert.Equal(t, 0, i, "featured route must be first")
		}
		if i < search.DefaultPrimaryLimit {
			assert.Equal(t, search.VisibilityPrimary, r.Visibility)
		} else {
			assert.Equal(t, search.VisibilitySecondary, r.Visibility)
		}
		if r.Type == search.TypeMixed {
			assert.LessOrEqual(t, r.TotalTime, travel.MaxHours)
		}
	}
	if len(result.Routes) > 0 {
		assert.Equal(t, 1, featured)
		assert.Equal(t, result.Routes[0].Type, result.Cheapest.Type)
		assert.Equal(t, result.Routes[0].EffectivePrice(), result.Cheapest.Price)
	}
}

func TestSearch_NagpurDelhiScenario(t *testing.T) {
	reg := location.DefaultRegistry()
	filter := corridor.NewFilter(reg, corridor.DefaultTolerance)
	hubs := []string{"Bhopal", "Gwalior", "Jaipur", "Agra", "Mumbai"}

	svc := newTestService(t, search.ServiceConfig{
		Registry:  reg,
		Corridor:  filter,
		Suggester: staticSuggester{cities: hubs},
		Pricer: &mockPricer{prices: map[string]int{
			"FLIGHT:Nagpur:Delhi":  6000,
			"TRAIN:Nagpur:Delhi":   6100,
			"FLIGHT:Nagpur:Agra":   4600,
			"TRAIN:Agra:Delhi":     1300,
			"FLIGHT:Nagpur:Bhopal": 4500,
			"TRAIN:Bhopal:Delhi":   1200,
		}},
	})

	result, err := svc.Search(context.Background(), "nagpur", " DELHI ")
	require.NoError(t, err)

	assertRankingInvariants(t, result)
	assert.False(t, result.Degraded)

	// Two direct routes plus the four in-corridor hubs.
	require.Len(t, result.Routes, 6)

	var mixedHubs []string
	for _, r := range result.Routes {
		if r.Type == search.TypeMixed {
			mixedHubs = append(mixedHubs, r.Hub)
			v := filter.Check("Nagpur", "Delhi", r.Hub)
			assert.True(t, v.Accepted, r.Hub)
			assert.LessOrEqual(t, v.ViaKm, v.DirectKm*corridor.DefaultTolerance)
		} else {
			assert.Equal(t, "Nagpur", r.From)
			assert.Equal(t, "Delhi", r.To)
		}
	}
	assert.ElementsMatch(t, []string{"Bhopal", "Gwalior", "Jaipur", "Agra"}, mixedHubs)

	require.Len(t, result.Rejected, 1)
	assert.Equal(t, search.Rejection{City: "Mumbai", Reason: search.ReasonOutOfCorridor}, result.Rejected[0])
	assert.False(t, filter.Check("Nagpur", "Delhi", "Mumbai").Accepted)

	assert.Equal(t, search.Cheapest{Type: search.TypeMixed, Price: 5700}, result.Cheapest)
	assert.Equal(t, "Bhopal", result.Routes[0].Hub)
	assert.Equal(t, "Agra", result.Routes[1].Hub)
}

func TestSearch_MixedRouteShape(t *testing.T) {
	explainer := &mockExplainer{threshold: 500}
	svc := newTestService(t, search.ServiceConfig{
		Suggester: staticSuggester{cities: []string{"agra"}},
		Explainer: explainer,
		Pricer: &mockPricer{prices: map[string]int{
			"FLIGHT:Nagpur:Delhi": 6500,
			"TRAIN:Nagpur:Delhi":  6600,
			"FLIGHT:Nagpur:Agra":  4500,
			"TRAIN:Agra:Delhi":    1200,
		}},
	})

	result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
	require.NoError(t, err)
	require.Len(t, result.Routes, 3)

	mixed := result.Routes[0]
	assert.Equal(t, search.TypeMixed, mixed.Type)
	assert.Equal(t, "Agra", mixed.Hub, "hub uses the canonical name")
	assert.Equal(t, 5700, mixed.TotalPrice)
	assert.True(t, mixed.Featured)
	assert.Equal(t, []search.Leg{
		{Mode: travel.ModeFlight, From: "Nagpur", To: "Agra", Price: 4500},
		{Mode: travel.ModeTrain, From: "Agra", To: "Delhi", Price: 1200},
	}, mixed.Legs)

	est := travel.NewEstimator(location.DefaultRegistry(), travel.DefaultEstimatorConfig())
	expected := travel.RoundTenth(est.Estimate(travel.ModeFlight, "Nagpur", "Agra") + est.Estimate(travel.ModeTrain, "Agra", "Delhi"))
	assert.InDelta(t, expected, mixed.TotalTime, 1e-9)

	require.NotNil(t, mixed.Explanation)
	assert.Equal(t, "Nagpur via Agra to Delhi saves ₹800", *mixed.Explanation)
}

func TestSearch_ExplanationThreshold(t *testing.T) {
	tests := []struct {
		name        string
		directPrice int
		wantExplain bool
	}{
		{name: "saving above threshold", directPrice: 6201, wantExplain: true},
		{name: "saving equal to threshold", directPrice: 6200, wantExplain: false},
		{name: "mixed costs more", directPrice: 4600, wantExplain: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			explainer := &mockExplainer{threshold: 500}
			svc := newTestService(t, search.ServiceConfig{
				Suggester: staticSuggester{cities: []string{"Agra"}},
				Explainer: explainer,
				Pricer: &mockPricer{prices: map[string]int{
					"FLIGHT:Nagpur:Delhi": tt.directPrice,
					"FLIGHT:Nagpur:Agra":  4500,
					"TRAIN:Agra:Delhi":    1200,
				}},
			})

			result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
			require.NoError(t, err)

			for _, r := range result.Routes {
				if r.Type == search.TypeMixed {
					assert.Equal(t, tt.wantExplain, r.Explanation != nil)
				}
			}
			assert.Equal(t, tt.wantExplain, explainer.calls.Load() == 1)
		})
	}
}

func TestSearch_RejectsRoutesOverTwentyFourHours(t *testing.T) {
	est := travel.NewEstimator(location.DefaultRegistry(), travel.DefaultEstimatorConfig())
	svc := newTestService(t, search.ServiceConfig{
		Suggester: staticSuggester{cities: []string{"Bangalore", "Delhi"}},
		Estimator: est,
	})

	result, err := svc.Search(context.Background(), "Chennai", "Leh")
	require.NoError(t, err)
	assertRankingInvariants(t, result)

	hours := travel.RoundTenth(est.Estimate(travel.ModeFlight, "Chennai", "Bangalore") + est.Estimate(travel.ModeTrain, "Bangalore", "Leh"))
	require.Greater(t, hours, travel.MaxHours)

	assert.Equal(t, []search.Rejection{
		{City: "Bangalore", Reason: fmt.Sprintf(search.ReasonTooLong, hours)},
	}, result.Rejected)
	assert.True(t, strings.HasPrefix(result.Rejected[0].Reason, "Exceeds 24-hour travel time ("))

	for _, r := range result.Routes {
		assert.NotEqual(t, "Bangalore", r.Hub)
	}
}

func TestSearch_FailedHubIsRejected(t *testing.T) {
	svc := newTestService(t, search.ServiceConfig{
		Suggester: staticSuggester{cities: []string{"Bhopal", "Gwalior", "Agra"}},
		Pricer: &mockPricer{
			errs:   map[string]error{"TRAIN:Bhopal:Delhi": errors.New("boom")},
			panics: map[string]bool{"FLIGHT:Nagpur:Gwalior": true},
		},
	})

	result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
	require.NoError(t, err)
	assertRankingInvariants(t, result)

	assert.Equal(t, []search.Rejection{
		{City: "Bhopal", Reason: search.ReasonGenerationFailed},
		{City: "Gwalior", Reason: search.ReasonGenerationFailed},
	}, result.Rejected)
	require.Len(t, result.Routes, 3)
}

func TestSearch_RejectionOrder(t *testing.T) {
	svc := newTestService(t, search.ServiceConfig{
		Suggester: staticSuggester{cities: []string{"Mumbai", "Agra", "Atlantis", "Bhopal"}},
		Pricer: &mockPricer{
			errs: map[string]error{
				"FLIGHT:Nagpur:Agra":   errors.New("boom"),
				"FLIGHT:Nagpur:Bhopal": errors.New("boom"),
			},
		},
	})

	result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
	require.NoError(t, err)

	assert.Equal(t, []search.Rejection{
		{City: "Agra", Reason: search.ReasonGenerationFailed},
		{City: "Bhopal", Reason: search.ReasonGenerationFailed},
		{City: "Mumbai", Reason: search.ReasonOutOfCorridor},
		{City: "Atlantis", Reason: search.ReasonOutOfCorridor},
	}, result.Rejected)
}

func TestSearch_VisibilityWithFewRoutes(t *testing.T) {
	svc := newTestService(t, search.ServiceConfig{})

	result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
	require.NoError(t, err)

	require.Len(t, result.Routes, 2)
	assertRankingInvariants(t, result)
	for _, r := range result.Routes {
		assert.Equal(t, search.VisibilityPrimary, r.Visibility)
	}
	assert.Equal(t, search.Cheapest{Type: search.TypeTrain, Price: 2000}, result.Cheapest)
	assert.Empty(t, result.Rejected)
	assert.NotNil(t, result.Rejected)
}

func TestSearch_SuggesterPanicDegradesToDirect(t *testing.T) {
	svc := newTestService(t, search.ServiceConfig{
		Suggester: staticSuggester{panic: true},
	})

	result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	require.Len(t, result.Routes, 2)
	assert.Empty(t, result.Rejected)
	assertRankingInvariants(t, result)
}

func TestSearch_UnreachableOracle(t *testing.T) {
	reg := location.DefaultRegistry()
	o := oracle.Func(func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	})

	pricer := pricing.NewService(o, pricing.ServiceConfig{Logger: zerolog.Nop()})
	suggester := suggest.NewSuggester(o, suggest.Config{Logger: zerolog.Nop()})

	svc := newTestService(t, search.ServiceConfig{
		Registry:  reg,
		Pricer:    pricer,
		Suggester: suggester,
	})

	result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assertRankingInvariants(t, result)

	flightBand, _ := pricer.Band(travel.ModeFlight)
	trainBand, _ := pricer.Band(travel.ModeTrain)

	direct := 0
	for _, r := range result.Routes {
		switch r.Type {
		case search.TypeFlight:
			direct++
			assert.True(t, flightBand.Contains(r.Price))
		case search.TypeTrain:
			direct++
			assert.True(t, trainBand.Contains(r.Price))
		case search.TypeMixed:
			assert.Contains(t, []string{"Bhopal", "Gwalior", "Jaipur", "Agra"}, r.Hub)
			assert.Equal(t, r.Legs[0].Price+r.Legs[1].Price, r.TotalPrice)
			assert.Nil(t, r.Explanation)
		}
	}
	assert.Equal(t, 2, direct)
}

func TestSearch_InputErrors(t *testing.T) {
	pricer := &mockPricer{}
	svc := newTestService(t, search.ServiceConfig{Pricer: pricer})

	_, err := svc.Search(context.Background(), "", "Delhi")
	assert.ErrorIs(t, err, search.ErrMissingEndpoints)

	_, err = svc.Search(context.Background(), "Nagpur", "   ")
	assert.ErrorIs(t, err, search.ErrMissingEndpoints)

	_, err = svc.Search(context.Background(), "Nagpur", "Atlantis")
	assert.ErrorIs(t, err, location.ErrUnknownLocation)
	assert.Contains(t, err.Error(), "City not found: Atlantis")

	assert.Zero(t, pricer.calls.Load(), "no pricing on invalid input")
}

func TestSearch_CancelledContext(t *testing.T) {
	svc := newTestService(t, search.ServiceConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Search(ctx, "Nagpur", "Delhi")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_PersistsSnapshots(t *testing.T) {
	sink := &recordingSink{}
	at := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, search.ServiceConfig{
		Suggester: staticSuggester{cities: []string{"Agra"}},
		Sink:      sink,
		Now:       func() time.Time { return at },
	})

	result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
	require.NoError(t, err)
	assert.Equal(t, at, result.FetchedAt)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Flush(ctx))

	saved := sink.snapshots()
	require.Len(t, saved, 3)

	byType := map[string]*snapshot.Snapshot{}
	for _, s := range saved {
		require.NoError(t, s.Validate())
		assert.Equal(t, snapshot.RoutePair{From: "Nagpur", To: "Delhi"}, s.Route)
		assert.Equal(t, "High", s.Demand)
		assert.Equal(t, pricing.Currency, s.Currency)
		assert.Equal(t, at, s.FetchedAt)
		byType[s.Type] = s
	}

	assert.Equal(t, search.SnapshotSourceDirect, byType["FLIGHT"].Source)
	assert.Equal(t, search.SnapshotSourceDirect, byType["TRAIN"].Source)

	mixed := byType["MIXED"]
	require.NotNil(t, mixed)
	assert.Equal(t, search.SnapshotSourceMixed, mixed.Source)
	assert.Equal(t, "Agra", mixed.Metadata.Hub)
	assert.Equal(t, 7000, mixed.Price)
	assert.Len(t, mixed.Metadata.Legs, 2)
}

func TestSearch_PersistenceFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("database down")}
	svc := newTestService(t, search.ServiceConfig{Sink: sink})

	result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
	require.NoError(t, err)
	assert.Len(t, result.Routes, 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.Flush(ctx))
}

func TestSearch_SnapshotsOutliveRequest(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, search.ServiceConfig{Sink: sink})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Search(ctx, "Nagpur", "Delhi")
	require.NoError(t, err)
	cancel()

	fctx, fcancel := context.WithTimeout(context.Background(), time.Second)
	defer fcancel()
	require.NoError(t, svc.Flush(fctx))
	assert.Len(t, sink.snapshots(), 2)
}

func TestSearch_Flags(t *testing.T) {
	t.Run("mixed routes disabled", func(t *testing.T) {
		svc := newTestService(t, search.ServiceConfig{
			Suggester: staticSuggester{panic: true},
			Flags:     mockFlags{noMixed: true},
		})

		result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
		require.NoError(t, err)
		assert.Len(t, result.Routes, 2)
		assert.False(t, result.Degraded)
	})

	t.Run("price logging disabled", func(t *testing.T) {
		sink := &recordingSink{}
		svc := newTestService(t, search.ServiceConfig{
			Sink:  sink,
			Flags: mockFlags{noLogging: true},
		})

		_, err := svc.Search(context.Background(), "Nagpur", "Delhi")
		require.NoError(t, err)
		require.NoError(t, svc.Flush(context.Background()))
		assert.Empty(t, sink.snapshots())
	})

	t.Run("explanations disabled", func(t *testing.T) {
		explainer := &mockExplainer{threshold: 0}
		svc := newTestService(t, search.ServiceConfig{
			Suggester: staticSuggester{cities: []string{"Agra"}},
			Explainer: explainer,
			Flags:     mockFlags{noExplanations: true},
			Pricer:    &mockPricer{prices: map[string]int{"FLIGHT:Nagpur:Delhi": 9000}},
		})

		_, err := svc.Search(context.Background(), "Nagpur", "Delhi")
		require.NoError(t, err)
		assert.Zero(t, explainer.calls.Load())
	})

	t.Run("hub cap", func(t *testing.T) {
		svc := newTestService(t, search.ServiceConfig{
			Suggester: staticSuggester{cities: []string{"Bhopal", "Gwalior", "Jaipur", "Agra"}},
			Flags:     mockFlags{maxHubs: 2},
		})

		result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
		require.NoError(t, err)
		assert.Len(t, result.Routes, 4)
		assert.Empty(t, result.Rejected, "capped hubs are not corridor rejections")
	})
}

func TestSearch_HubConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	pricer := pricerFunc(func(ctx context.Context, mode travel.Mode, from, to string) (pricing.Quote, error) {
		if mode == travel.ModeFlight && from == "Nagpur" && to != "Delhi" {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
		}
		return pricing.Quote{Mode: mode, From: from, To: to, Price: 3000}, nil
	})

	svc := newTestService(t, search.ServiceConfig{
		Pricer:         pricer,
		Suggester:      staticSuggester{cities: []string{"Bhopal", "Gwalior", "Jaipur", "Agra"}},
		HubConcurrency: 2,
	})

	result, err := svc.Search(context.Background(), "Nagpur", "Delhi")
	require.NoError(t, err)
	assert.Len(t, result.Routes, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := search.NewService(search.ServiceConfig{})
	assert.Error(t, err)

	_, err = search.NewService(search.ServiceConfig{
		Registry: location.DefaultRegistry(),
		Pricer:   &mockPricer{},
	})
	assert.Error(t, err)
}

func TestRank(t *testing.T) {
	routes := []search.Route{
		{Type: search.TypeFlight, Price: 5000},
		{Type: search.TypeTrain, Price: 2000},
		{Type: search.TypeMixed, TotalPrice: 3000, Hub: "A"},
		{Type: search.TypeMixed, TotalPrice: 3000, Hub: "B"},
		{Type: search.TypeMixed, TotalPrice: 7000, Hub: "C"},
	}

	search.Rank(routes, 3)

	var order []string
	for _, r := range routes {
		order = append(order, fmt.Sprintf("%s%s:%d", r.Type, r.Hub, r.EffectivePrice()))
	}
	assert.Equal(t, []string{"TRAIN:2000", "MIXEDA:3000", "MIXEDB:3000", "FLIGHT:5000", "MIXEDC:7000"}, order)

	assert.True(t, routes[0].Featured)
	for i, r := range routes {
		assert.Equal(t, i == 0, r.Featured)
		if i < 3 {
			assert.Equal(t, search.VisibilityPrimary, r.Visibility)
		} else {
			assert.Equal(t, search.VisibilitySecondary, r.Visibility)
		}
	}
}

type pricerFunc func(ctx context.Context, mode travel.Mode, from, to string) (pricing.Quote, error)

func (f pricerFunc) Price(ctx context.Context, mode travel.Mode, from, to string) (pricing.Quote, error) {
	return f(ctx, mode, from, to)
}
