// Package olamaps provides a client for the Ola Maps routing API.
package olamaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/geo"
	"github.com/chargeroute/chargeroute/internal/provider/resilience"
	"github.com/chargeroute/chargeroute/pkg/polyline"
)

const (
	// ProviderName identifies this directions provider.
	ProviderName = "olamaps"

	// DefaultBaseURL is the Ola Maps API base URL.
	DefaultBaseURL = "https://api.olamaps.io"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Ola Maps client.
type ClientConfig struct {
	// APIKey is the Ola Maps API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Client is an Ola Maps directions client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var _ directions.Provider = (*Client)(nil)

// NewClient creates a new Ola Maps client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		policy := resilience.DefaultPolicy()
		policy.Timeout = timeout
		httpClient = resilience.NewClient(ProviderName, policy, cfg.Registry)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l latLng) point() geo.Point {
	return geo.Point{Lon: l.Lng, Lat: l.Lat}
}

type olaStep struct {
	Instructions  string  `json:"instructions"`
	Maneuver      string  `json:"maneuver"`
	Distance      float64 `json:"distance"`
	Duration      float64 `json:"duration"`
	StartLocation latLng  `json:"start_location"`
	EndLocation   latLng  `json:"end_location"`
}

type olaLeg struct {
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Steps    []olaStep `json:"steps"`
}

type olaRoute struct {
	Summary          string   `json:"summary"`
	OverviewPolyline string   `json:"overview_polyline"`
	Legs             []olaLeg `json:"legs"`
}

type olaResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Routes       []olaRoute `json:"routes"`
}

type olaErrorResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ErrorMessage string `json:"error_message"`
}

func (e olaErrorResponse) text() string {
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	return e.Message
}

// GetDirections retrieves routes between two points.
func (c *Client) GetDirections(ctx context.Context, req directions.Request) (*directions.Response, error) {
	mode := req.Mode
	if mode == "" {
		mode = directions.ModeDriving
	}

	q := url.Values{}
	q.Set("origin", formatLatLng(req.Origin))
	q.Set("destination", formatLatLng(req.Destination))
	q.Set("mode", string(mode))
	q.Set("api_key", c.apiKey)

	endpoint := c.baseURL + "/routing/v1/directions?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", uuid.New().String())

	c.logger.Debug().
		Str("mode", string(mode)).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting directions from Ola Maps")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach directions provider",
			Err:      directions.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	var olaResp olaResponse
	if err := json.Unmarshal(body, &olaResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(olaResp.Routes) == 0 {
		msg := olaResp.ErrorMessage
		if msg == "" {
			msg = "no route found between the given points"
		}
		return nil, &directions.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  msg,
			Err:      directions.ErrNoRouteFound,
		}
	}

	return c.toResponse(&olaResp), nil
}

func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var olaErr olaErrorResponse
	_ = json.Unmarshal(body, &olaErr)
	msg := olaErr.text()

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &directions.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      directions.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &directions.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      directions.ErrProviderUnavailable,
		}
	case statusCode == http.StatusBadRequest:
		if msg == "" {
			msg = "directions provider rejected the request"
		}
		return &directions.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  msg,
			Err:      directions.ErrInvalidRequest,
		}
	case statusCode == http.StatusNotFound:
		return &directions.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      directions.ErrNoRouteFound,
		}
	case statusCode >= 500:
		return &directions.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "directions provider is temporarily unavailable",
			Err:      directions.ErrProviderUnavailable,
		}
	default:
		if msg == "" {
			msg = fmt.Sprintf("directions provider returned status %d", statusCode)
		}
		return &directions.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  msg,
			Err:      directions.ErrProviderUnavailable,
		}
	}
}

func (c *Client) toResponse(resp *olaResponse) *directions.Response {
	routes := make([]directions.Route, 0, len(resp.Routes))
	for i := range resp.Routes {
		r := &resp.Routes[i]
		route := directions.Route{
			Summary:  r.Summary,
			Polyline: r.OverviewPolyline,
		}

		path, err := polyline.Decode(r.OverviewPolyline)
		if err != nil {
			c.logger.Warn().Err(err).Int("route", i).Msg("discarding undecodable route polyline")
		} else {
			route.Path = path
		}

		var distance, duration float64
		for _, leg := range r.Legs {
			distance += leg.Distance
			duration += leg.Duration
			for _, st := range leg.Steps {
				route.Steps = append(route.Steps, directions.Step{
					Instruction:     st.Instructions,
					Maneuver:        st.Maneuver,
					DistanceMeters:  int(st.Distance),
					DurationSeconds: int(st.Duration),
					Start:           st.StartLocation.point(),
					End:             st.EndLocation.point(),
				})
			}
		}
		route.DistanceMeters = int(distance)
		route.DurationSeconds = int(duration)
		if route.DistanceMeters == 0 && len(route.Path) > 1 {
			route.DistanceMeters = int(polyline.Length(route.Path))
		}

		routes = append(routes, route)
	}

	return &directions.Response{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}

func formatLatLng(p geo.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}
