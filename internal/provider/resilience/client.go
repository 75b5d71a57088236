package resilience

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without calling upstream while the
	// provider's circuit is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Policy describes how calls to one provider are bounded.
type Policy struct {
	// Timeout bounds each attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts after the first. Zero sends
	// each request once.
	Retries uint64
	// InitialInterval and MaxInterval shape the exponential backoff.
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Breaker         BreakerSettings
}

// DefaultPolicy suits idempotent lookups: 10s per attempt and two retries.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:         10 * time.Second,
		Retries:         2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Breaker:         DefaultBreakerSettings(),
	}
}

// ServerError is an upstream 5xx. Such responses count against the breaker.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "upstream returned " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}

// Client sends requests to a single provider.
type Client struct {
	name     string
	policy   Policy
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	registry *Registry
}

// NewClient creates a client for the named provider and registers it with
// registry when one is given.
func NewClient(name string, policy Policy, registry *Registry) *Client {
	d := DefaultPolicy()
	if policy.Timeout == 0 {
		policy.Timeout = d.Timeout
	}
	if policy.InitialInterval == 0 {
		policy.InitialInterval = d.InitialInterval
	}
	if policy.MaxInterval == 0 {
		policy.MaxInterval = d.MaxInterval
	}
	policy.Breaker = policy.Breaker.withDefaults()

	c := &Client{
		name:     name,
		policy:   policy,
		http:     &http.Client{Timeout: policy.Timeout},
		registry: registry,
	}

	var onChange func(string, gobreaker.State, gobreaker.State)
	if registry != nil {
		onChange = registry.stateChanged
	}
	c.breaker = newBreaker(name, policy.Breaker, onChange)

	if registry != nil {
		registry.add(c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker's counters for the current window.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Do sends req, retrying network errors and 5xx responses with exponential
// backoff. 4xx responses are returned as-is. When retries are exhausted on a
// 5xx, the last response is returned with a nil error so callers can read
// the upstream error body. Request bodies are replayed through GetBody.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.policy.InitialInterval
	bo.MaxInterval = c.policy.MaxInterval
	bo.MaxElapsedTime = 0

	var last *http.Response
	attempt := func() error {
		if last != nil {
			// Close the previous 5xx before retrying.
			last.Body.Close()
			last = nil
		}
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			return c.send(ctx, req)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if resp != nil {
			last = resp
		}
		return err
	}

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, c.policy.Retries), ctx))
	c.report(err, last)

	if last != nil {
		return last, nil
	}
	return nil, err
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	out := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		out.Body = body
	}

	resp, err := c.http.Do(out)
	if err != nil {
		return nil, redactQuery(err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp, &ServerError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// redactQuery strips the query string from the URL of a transport error.
// Some providers take their API key as a query parameter.
func redactQuery(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil || u.RawQuery == "" {
		return err
	}
	u.RawQuery = ""
	return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
}

func (c *Client) report(err error, resp *http.Response) {
	if c.registry == nil {
		return
	}
	switch {
	case resp != nil && resp.StatusCode >= http.StatusInternalServerError:
		c.registry.RecordFailure(c.name, &ServerError{StatusCode: resp.StatusCode})
	case err != nil:
		c.registry.RecordFailure(c.name, err)
	default:
		c.registry.RecordSuccess(c.name)
	}
}
