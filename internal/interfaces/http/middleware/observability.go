package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"github.com/bizcore/backend/internal/tenantctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing instruments every request with an OpenTelemetry server span
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceAttributes annotates the active server span with the request ID and,
// once authentication has run, the tenant. Must be registered after both
// Tracing and Authenticate.
func TraceAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := requestID(c); id != "" {
				span.SetAttributes(attribute.String("http.request_id", id))
			}
			if tenantID, ok := tenantctx.CurrentTenant(c.Request.Context()); ok {
				span.SetAttributes(attribute.String("tenant.id", tenantID.String()))
			}
		}
		c.Next()
	}
}

// HTTPMetrics carries the request-level instruments
type HTTPMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
}

// NewHTTPMetrics registers request count and latency instruments
func NewHTTPMetrics(mp *telemetry.MeterProvider) (*HTTPMetrics, error) {
	meter := mp.Meter("bizcore.http")

	requests, err := telemetry.NewCounter(meter,
		"http_requests_total", "Total HTTP requests served", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter,
		"http_request_duration_seconds", "HTTP request latency", "s",
		telemetry.HTTPDurationBuckets...)
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{requests: requests, duration: duration}, nil
}

// Metrics records per-request count and latency, labelled by route, method,
// status class, and tenant. Nil metrics disable collection.
func Metrics(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			attribute.String("http.route", route),
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.status", strconv.Itoa(c.Writer.Status())),
		}
		if tenantID, ok := tenantctx.CurrentTenant(c.Request.Context()); ok {
			attrs = append(attrs, telemetry.AttrTenantID.String(tenantID.String()))
		}

		ctx := c.Request.Context()
		m.requests.Inc(ctx, attrs...)
		m.duration.RecordDuration(ctx, time.Since(start), attrs...)
	}
}

// Profiling tags CPU and memory profiles with the route, method, and tenant
// so flame graphs can be sliced per endpoint and per tenant
func Profiling(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		tenantID := ""
		if id := GetTenantUUID(c); id != uuid.Nil {
			tenantID = id.String()
		}

		labels := telemetry.HTTPRequestLabels(route, c.Request.Method, tenantID)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
