package ports

import (
	"context"

	"pulseboard/internal/domain"
)

// Storage is the persistence contract shared by the pipeline driver
// and the dashboard generator. Implementations must make every upsert
// idempotent and every batch operation atomic.
type Storage interface {
	UpsertObservation(ctx context.Context, obs domain.Observation) error
	UpsertObservations(ctx context.Context, observations []domain.Observation) error
	LatestObservations(ctx context.Context, metricID string, limit int) ([]domain.Observation, error)

	UpsertStory(ctx context.Context, story domain.Story) error
	UpsertStories(ctx context.Context, stories []domain.Story) error
	StoriesForFeed(ctx context.Context, feedID string, limit int) ([]domain.Story, error)
	PurgeStaleStories(ctx context.Context, maxAgeDays int) (int64, error)

	UpsertMetricMeta(ctx context.Context, meta domain.MetricMeta) error
	AllMetricMeta(ctx context.Context) ([]domain.MetricMeta, error)
}
