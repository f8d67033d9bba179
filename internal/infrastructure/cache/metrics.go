package cache

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// RegisterQueryCacheMetrics exposes the cache's hit, miss and entry counts
// as observable instruments read at collection time.
func RegisterQueryCacheMetrics(meter metric.Meter, c *QueryCache) error {
	hits, err := meter.Int64ObservableCounter("swim_query_cache_hits_total",
		metric.WithDescription("Query cache lookups served from cache"),
		metric.WithUnit("{lookup}"))
	if err != nil {
		return err
	}
	misses, err := meter.Int64ObservableCounter("swim_query_cache_misses_total",
		metric.WithDescription("Query cache lookups that went to the record store"),
		metric.WithUnit("{lookup}"))
	if err != nil {
		return err
	}
	entries, err := meter.Int64ObservableGauge("swim_query_cache_entries",
		metric.WithDescription("Query results currently cached"),
		metric.WithUnit("{entry}"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := c.Stats()
		o.ObserveInt64(hits, stats.Hits)
		o.ObserveInt64(misses, stats.Misses)
		o.ObserveInt64(entries, int64(stats.Entries))
		return nil
	}, hits, misses, entries)
	return err
}
