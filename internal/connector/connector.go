// Package connector holds the source-specific fetch/normalize pairs
// that turn heterogeneous upstream API payloads into observations and
// stories.
package connector

import (
	"context"
	"fmt"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
)

// FetchResult captures the outcome of one upstream call. Transport and
// payload-shape failures are reported here rather than as errors that
// unwind through the pipeline driver.
type FetchResult struct {
	Success bool
	Data    any
	Err     string
	Source  string
}

// Ok wraps a successfully fetched payload.
func Ok(source string, data any) FetchResult {
	return FetchResult{Success: true, Data: data, Source: source}
}

// Fail builds a failure result with a formatted description.
func Fail(source, format string, args ...any) FetchResult {
	return FetchResult{Success: false, Err: fmt.Sprintf(format, args...), Source: source}
}

// MetricConnector fetches and normalizes time-series data for one
// source tag. Normalize tolerates partially malformed batches: it
// returns whatever it could parse, sorted by date descending.
type MetricConnector interface {
	Source() string
	Fetch(ctx context.Context, cfg config.Metric) FetchResult
	Normalize(cfg config.Metric, raw any) []domain.Observation
}

// FeedConnector is the discussion-feed counterpart of MetricConnector.
type FeedConnector interface {
	Source() string
	Fetch(ctx context.Context, cfg config.Feed) FetchResult
	Normalize(cfg config.Feed, raw any) []domain.Story
}

// Registry maps source tags to connector implementations.
type Registry struct {
	metrics map[string]MetricConnector
	feeds   map[string]FeedConnector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		metrics: map[string]MetricConnector{},
		feeds:   map[string]FeedConnector{},
	}
}

// RegisterMetric adds or replaces a metric connector.
func (r *Registry) RegisterMetric(c MetricConnector) {
	r.metrics[c.Source()] = c
}

// RegisterFeed adds or replaces a feed connector.
func (r *Registry) RegisterFeed(c FeedConnector) {
	r.feeds[c.Source()] = c
}

// Metric returns the connector for a source tag or an error if absent.
func (r *Registry) Metric(source string) (MetricConnector, error) {
	if c, ok := r.metrics[source]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("metric connector %s is not registered", source)
}

// Feed returns the feed connector for a source tag or an error if absent.
func (r *Registry) Feed(source string) (FeedConnector, error) {
	if c, ok := r.feeds[source]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("feed connector %s is not registered", source)
}
