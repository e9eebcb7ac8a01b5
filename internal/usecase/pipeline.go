package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/connector"
	"pulseboard/internal/domain"
	"pulseboard/internal/ports"
	"pulseboard/internal/transform"
)

// PipelineDeps wires the connector registry and storage into the
// refresh orchestration.
type PipelineDeps struct {
	Registry      *connector.Registry
	Store         ports.Storage
	Metrics       []config.Metric
	Feeds         []config.Feed
	RetentionDays int
	Logger        *slog.Logger
}

// Pipeline runs one end-to-end refresh cycle: fetch and persist every
// configured metric and feed, then purge stale stories. A single
// descriptor's failure is logged and never aborts the run.
type Pipeline struct {
	registry      *connector.Registry
	store         ports.Storage
	metrics       []config.Metric
	feeds         []config.Feed
	retentionDays int
	logger        *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry:      deps.Registry,
		store:         deps.Store,
		metrics:       deps.Metrics,
		feeds:         deps.Feeds,
		retentionDays: deps.RetentionDays,
		logger:        logger,
	}
}

// Run executes one refresh cycle.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.registry == nil || p.store == nil {
		return errors.New("pipeline is not fully wired")
	}

	for _, metric := range p.metrics {
		p.refreshMetric(ctx, metric)
	}
	for _, feed := range p.feeds {
		p.refreshFeed(ctx, feed)
	}

	removed, err := p.store.PurgeStaleStories(ctx, p.retentionDays)
	if err != nil {
		p.logger.Error("purge stale stories", "error", err)
		return err
	}
	p.logger.Info("purged stale stories", "removed", removed, "max_age_days", p.retentionDays)

	return nil
}

func (p *Pipeline) refreshMetric(ctx context.Context, metric config.Metric) {
	log := p.logger.With("metric", metric.ID, "source", metric.Source)

	conn, err := p.registry.Metric(metric.Source)
	if err != nil {
		log.Warn("skipping metric", "error", err)
		return
	}

	result := conn.Fetch(ctx, metric)
	if !result.Success {
		log.Warn("fetch failed", "error", result.Err)
		return
	}

	observations := conn.Normalize(metric, result.Data)
	observations = applyTransform(metric.Transform, observations)

	if len(observations) == 0 {
		log.Info("no observations returned")
		return
	}

	if err := p.store.UpsertObservations(ctx, observations); err != nil {
		log.Error("persist observations", "error", err)
		return
	}

	meta := buildMetricMeta(metric, observations)
	if err := p.store.UpsertMetricMeta(ctx, meta); err != nil {
		log.Error("persist metric meta", "error", err)
		return
	}

	log.Info("metric refreshed", "observations", len(observations))
}

func (p *Pipeline) refreshFeed(ctx context.Context, feed config.Feed) {
	log := p.logger.With("feed", feed.ID, "source", feed.Source)

	conn, err := p.registry.Feed(feed.Source)
	if err != nil {
		log.Warn("skipping feed", "error", err)
		return
	}

	result := conn.Fetch(ctx, feed)
	if !result.Success {
		log.Warn("fetch failed", "error", result.Err)
		return
	}

	stories := conn.Normalize(feed, result.Data)
	if len(stories) == 0 {
		log.Info("no stories returned")
		return
	}

	if err := p.store.UpsertStories(ctx, stories); err != nil {
		log.Error("persist stories", "error", err)
		return
	}

	log.Info("feed refreshed", "stories", len(stories))
}

func applyTransform(name string, observations []domain.Observation) []domain.Observation {
	switch name {
	case "yoy_percent":
		return transform.YoYPercent(observations)
	case "qoq_percent":
		return transform.QoQPercent(observations)
	default:
		return observations
	}
}

// buildMetricMeta snapshots the metric's current state from the two
// most recent distinct-date observations. Multiple sources can write
// the same date, so "previous" means the next older date, not the next
// row.
func buildMetricMeta(metric config.Metric, observations []domain.Observation) domain.MetricMeta {
	latest := observations[0]

	var previous *domain.Observation
	for i := 1; i < len(observations); i++ {
		if observations[i].Date != latest.Date {
			previous = &observations[i]
			break
		}
	}

	meta := domain.MetricMeta{
		ID:          metric.ID,
		Name:        metric.Name,
		Source:      metric.Source,
		Frequency:   metric.Frequency,
		Unit:        latest.Unit,
		LastValue:   &latest.Value,
		LastUpdated: time.Now().UTC(),
	}

	if previous != nil {
		meta.PreviousValue = &previous.Value
		meta.Change, meta.ChangePercent = transform.Change(latest.Value, &previous.Value)
	}

	return meta
}
