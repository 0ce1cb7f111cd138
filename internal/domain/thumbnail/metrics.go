package thumbnail

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

type cacheMetrics struct {
	hits     metric.Int64Counter
	misses   metric.Int64Counter
	failures metric.Int64Counter
	enabled  bool
}

func newCacheMetrics() *cacheMetrics {
	meterProvider := otel.GetMeterProvider()
	if meterProvider == nil {
		meterProvider = noopmetric.NewMeterProvider()
	}
	meter := meterProvider.Meter("stellar-videohub.thumbnail")

	hits, err := meter.Int64Counter("thumbnail_cache_hits_total", metric.WithDescription("Thumbnail resolutions served from cache"))
	if err != nil {
		return &cacheMetrics{}
	}
	misses, err := meter.Int64Counter("thumbnail_cache_misses_total", metric.WithDescription("Thumbnail resolutions that required a fetch"))
	if err != nil {
		return &cacheMetrics{}
	}
	failures, err := meter.Int64Counter("thumbnail_fetch_failures_total", metric.WithDescription("Thumbnail fetches that failed to transfer or decode"))
	if err != nil {
		return &cacheMetrics{}
	}

	return &cacheMetrics{
		hits:     hits,
		misses:   misses,
		failures: failures,
		enabled:  true,
	}
}

func (m *cacheMetrics) recordHit(ctx context.Context) {
	if m == nil || !m.enabled {
		return
	}
	m.hits.Add(ctx, 1)
}

func (m *cacheMetrics) recordMiss(ctx context.Context) {
	if m == nil || !m.enabled {
		return
	}
	m.misses.Add(ctx, 1)
}

func (m *cacheMetrics) recordFailure(ctx context.Context, kind FetchErrorKind) {
	if m == nil || !m.enabled {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}
