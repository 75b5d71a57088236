package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/chargeroute/chargeroute/internal/api/middleware"

// unmatchedRoute labels requests that no route pattern matched, keeping
// attribute cardinality bounded.
const unmatchedRoute = "unmatched"

// Metrics records request duration, size and concurrency for the HTTP server.
type Metrics struct {
	duration metric.Float64Histogram
	size     metric.Int64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewMetrics creates the HTTP instruments on provider, or on the global
// provider when nil.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	duration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	size, err := meter.Int64Histogram(
		"http.server.response.body.size",
		metric.WithDescription("Size of HTTP server response bodies"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{duration: duration, size: size, inFlight: inFlight}, nil
}

// Middleware records one measurement per request. The route attribute is
// the matched chi pattern, so /v1/stations/{stationId} is one series.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			method := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.inFlight.Add(ctx, 1, method)
			defer m.inFlight.Add(ctx, -1, method)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			attrs := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.response.status_code", rw.statusCode),
			)
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			m.size.Record(ctx, rw.written, attrs)
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

// ProviderMetrics records upstream calls, response cache lookups and
// recommendation outcomes.
type ProviderMetrics struct {
	calls    metric.Float64Histogram
	cache    metric.Int64Counter
	outcomes metric.Int64Counter
}

// NewProviderMetrics creates the provider instruments on provider, or on the
// global provider when nil.
func NewProviderMetrics(provider metric.MeterProvider) (*ProviderMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	calls, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of upstream provider calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	cache, err := meter.Int64Counter(
		"provider.cache.lookups",
		metric.WithDescription("Provider response cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}
	outcomes, err := meter.Int64Counter(
		"recommendation.outcomes",
		metric.WithDescription("Recommendation requests by terminal outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{calls: calls, cache: cache, outcomes: outcomes}, nil
}

// RecordRequest records one upstream call. Provider measurements use a
// background context so a cancelled request still counts.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	m.calls.Record(context.Background(), duration.Seconds(), metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.String("outcome", callOutcome(err)),
	))
}

// RecordCacheHit records a response served from cache.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.recordCache(provider, operation, true)
}

// RecordCacheMiss records a lookup that went upstream.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.recordCache(provider, operation, false)
}

func (m *ProviderMetrics) recordCache(provider, operation string, hit bool) {
	m.cache.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.Bool("cache.hit", hit),
	))
}

// RecordOutcome counts a finished recommendation request.
func (m *ProviderMetrics) RecordOutcome(outcome string) {
	m.outcomes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func callOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
