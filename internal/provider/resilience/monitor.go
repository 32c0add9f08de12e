package resilience

import (
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerReporter exposes breaker state. Client implements it.
type BreakerReporter interface {
	State() gobreaker.State
	Counts() gobreaker.Counts
}

// Status is a point-in-time health report for one provider.
type Status struct {
	Name          string
	State         gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Healthy reports whether the breaker is closed.
func (s Status) Healthy() bool {
	return s.State == gobreaker.StateClosed
}

// Monitor tracks the breakers and recent outcomes of outbound providers.
// It is safe for concurrent use.
type Monitor struct {
	mu        sync.RWMutex
	providers map[string]*tracked
	now       func() time.Time
}

type tracked struct {
	reporter      BreakerReporter
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		providers: make(map[string]*tracked),
		now:       time.Now,
	}
}

// Track registers a provider under name, replacing any previous entry.
func (m *Monitor) Track(name string, reporter BreakerReporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = &tracked{reporter: reporter}
}

// RecordSuccess stamps the last successful call for name.
func (m *Monitor) RecordSuccess(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[name]; ok {
		now := m.now()
		p.lastSuccessAt = &now
	}
}

// RecordFailure stamps the last failed call for name and keeps its error
// text with request URLs reduced to scheme, host and path.
func (m *Monitor) RecordFailure(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[name]; ok {
		now := m.now()
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = redactError(err)
		}
	}
}

// Status returns the report for name.
func (m *Monitor) Status(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[name]
	if !ok {
		return Status{}, false
	}
	return p.status(name), true
}

// All returns reports for every tracked provider, sorted by name.
func (m *Monitor) All() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.providers))
	for name, p := range m.providers {
		out = append(out, p.status(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (p *tracked) status(name string) Status {
	return Status{
		Name:          name,
		State:         p.reporter.State(),
		Counts:        p.reporter.Counts(),
		LastSuccessAt: p.lastSuccessAt,
		LastFailureAt: p.lastFailureAt,
		LastError:     p.lastError,
	}
}

// redactError drops the query string and userinfo of any *url.Error in
// err's chain from the error text.
func redactError(err error) string {
	msg := err.Error()
	var ue *url.Error
	if !errors.As(err, &ue) || ue.URL == "" {
		return msg
	}
	u, parseErr := url.Parse(ue.URL)
	if parseErr != nil {
		return strings.ReplaceAll(msg, ue.URL, "[redacted]")
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return strings.ReplaceAll(msg, ue.URL, u.String())
}
