package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/freightdesk/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Instrument names
const (
	MetricHTTPRequestTotal    = "http_server_request_total"
	MetricHTTPRequestDuration = "http_server_request_duration_seconds"
	MetricHTTPActiveRequests  = "http_server_active_requests"
)

type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter, MetricHTTPRequestTotal, "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        MetricHTTPRequestDuration,
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	activeRequests, err := meter.Int64UpDownCounter(
		MetricHTTPActiveRequests,
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics records request count, latency and in-flight requests per route.
// A nil meter, or one whose instruments cannot be created, yields a pass-through middleware.
func HTTPMetrics(meter metric.Meter, log *zap.Logger) gin.HandlerFunc {
	passthrough := func(c *gin.Context) { c.Next() }
	if meter == nil {
		return passthrough
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		log.Warn("HTTP metrics disabled", zap.Error(err))
		return passthrough
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		routeAttrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}

		ctx := c.Request.Context()
		m.activeRequests.Add(ctx, 1, metric.WithAttributes(routeAttrs...))
		defer m.activeRequests.Add(context.WithoutCancel(ctx), -1, metric.WithAttributes(routeAttrs...))

		c.Next()

		m.requestDuration.RecordDuration(ctx, time.Since(start), routeAttrs...)

		attrs := append(routeAttrs, telemetry.AttrHTTPStatusCode.String(strconv.Itoa(c.Writer.Status())))
		if tenantID, ok := GetTenantID(c); ok {
			attrs = append(attrs, telemetry.AttrTenantID.String(tenantID.String()))
		}
		m.requestTotal.Inc(ctx, attrs...)
	}
}
