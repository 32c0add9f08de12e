package resilience

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this client in the breaker and the monitor.
	Name string

	// Timeout bounds a single HTTP attempt.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Default: 2
	MaxRetries uint64

	// InitialInterval is the first retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff interval.
	// Default: 2 seconds
	MaxInterval time.Duration

	// CircuitBreaker configures the breaker. Nil uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig

	// Monitor records call outcomes when set.
	Monitor *Monitor

	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// DefaultClientConfig returns the defaults for a named client.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		CircuitBreaker:  &cb,
	}
}

// Client is an HTTP client guarded by a circuit breaker and bounded retries.
// Request bodies are buffered so POST requests can be replayed.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
}

// NewClient creates a resilient client and registers it with the monitor, if any.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
		if cbConfig.Name == "" {
			cbConfig.Name = cfg.Name
		}
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker:    NewCircuitBreaker[*http.Response](cbConfig), //nolint:bodyclose // type param, not response
		config:     cfg,
	}

	if cfg.Monitor != nil {
		cfg.Monitor.Track(cfg.Name, c)
	}

	return c
}

// Do executes req through the breaker, retrying network errors, 429 and 5xx
// responses with exponential backoff. When retries are exhausted on a
// retryable status, the last response is returned so the caller can inspect
// it. An open breaker fails immediately with ErrCircuitOpen.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	body, err := readBody(req)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var last *http.Response

	operation := func() error {
		discard(last)
		last = nil

		attempt := req.Clone(ctx)
		if body != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(body))
			attempt.ContentLength = int64(len(body))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			r, err := c.httpClient.Do(attempt)
			if err != nil {
				return nil, err
			}
			if retryableStatus(r.StatusCode) {
				return r, &StatusError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}

		last = resp
		return err
	}

	err = backoff.Retry(operation, policy)
	c.record(err)

	if err != nil {
		if last != nil && ctx.Err() == nil {
			return last, nil
		}
		discard(last)
		return nil, err
	}
	return last, nil
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker's request counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

func (c *Client) record(err error) {
	if c.config.Monitor == nil {
		return
	}
	if err != nil {
		c.config.Monitor.RecordFailure(c.config.Name, err)
		return
	}
	c.config.Monitor.RecordSuccess(c.config.Name)
}

// StatusError reports a retryable HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("retryable status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

func discard(resp *http.Response) {
	if resp == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
