// Package storage persists observations, stories, and cached metric
// metadata in an embedded SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"pulseboard/internal/domain"
	"pulseboard/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS observations (
    metric_id    TEXT    NOT NULL,
    obs_date     TEXT    NOT NULL,
    value        REAL    NOT NULL,
    unit         TEXT,
    source       TEXT    NOT NULL,
    retrieved_at INTEGER NOT NULL,
    PRIMARY KEY (metric_id, obs_date, source)
);

CREATE TABLE IF NOT EXISTS stories (
    id           INTEGER PRIMARY KEY,
    title        TEXT    NOT NULL,
    url          TEXT,
    score        INTEGER NOT NULL,
    comments     INTEGER NOT NULL,
    author       TEXT,
    posted_at    INTEGER,
    source       TEXT    NOT NULL,
    feed_id      TEXT    NOT NULL,
    retrieved_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stories_feed_score ON stories (feed_id, score DESC);
CREATE INDEX IF NOT EXISTS idx_stories_retrieved ON stories (retrieved_at);

CREATE TABLE IF NOT EXISTS metrics (
    id             TEXT PRIMARY KEY,
    name           TEXT,
    source         TEXT,
    frequency      TEXT,
    unit           TEXT,
    last_value     REAL,
    last_updated   INTEGER,
    previous_value REAL,
    change         REAL,
    change_percent REAL
);
`

// Store implements ports.Storage on top of database/sql with SQL built
// via squirrel. Timestamps are stored as Unix seconds.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.Storage = (*Store)(nil)

// Open opens (or creates) the database at path and applies the schema.
// Schema creation is idempotent and safe on every process start.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The pipeline may run overlapping transactions from concurrent
	// descriptor processing; a busy timeout serializes them instead of
	// surfacing SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertObservation inserts one observation, overwriting value, unit,
// and retrieval timestamp on (metric_id, obs_date, source) conflicts.
func (s *Store) UpsertObservation(ctx context.Context, obs domain.Observation) error {
	query, args, err := s.observationUpsert(obs).ToSql()
	if err != nil {
		return fmt.Errorf("build observation upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert observation %s/%s: %w", obs.MetricID, obs.Date, err)
	}
	return nil
}

// UpsertObservations writes a batch inside one transaction; either all
// rows land or none do.
func (s *Store) UpsertObservations(ctx context.Context, observations []domain.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, obs := range observations {
			query, args, err := s.observationUpsert(obs).ToSql()
			if err != nil {
				return fmt.Errorf("build observation upsert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert observation %s/%s: %w", obs.MetricID, obs.Date, err)
			}
		}
		return nil
	})
}

func (s *Store) observationUpsert(obs domain.Observation) sq.InsertBuilder {
	return s.sb.Insert("observations").
		Columns("metric_id", "obs_date", "value", "unit", "source", "retrieved_at").
		Values(obs.MetricID, obs.Date, obs.Value, obs.Unit, obs.Source, obs.RetrievedAt.Unix()).
		Suffix(`ON CONFLICT (metric_id, obs_date, source) DO UPDATE SET
            value = excluded.value,
            unit = excluded.unit,
            retrieved_at = excluded.retrieved_at`)
}

// LatestObservations returns up to limit observations for the metric,
// newest first.
func (s *Store) LatestObservations(ctx context.Context, metricID string, limit int) ([]domain.Observation, error) {
	query, args, err := s.sb.
		Select("metric_id", "obs_date", "value", "unit", "source", "retrieved_at").
		From("observations").
		Where(sq.Eq{"metric_id": metricID}).
		OrderBy("obs_date DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build observations query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var observations []domain.Observation
	for rows.Next() {
		var (
			obs       domain.Observation
			unit      sql.NullString
			retrieved int64
		)
		if err := rows.Scan(&obs.MetricID, &obs.Date, &obs.Value, &unit, &obs.Source, &retrieved); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs.Unit = unit.String
		obs.RetrievedAt = time.Unix(retrieved, 0).UTC()
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return observations, nil
}

// UpsertStory inserts one story. On conflict over the source-native ID
// only score, comment count, feed association, and retrieval timestamp
// are refreshed; title, URL, and author stay as first seen.
func (s *Store) UpsertStory(ctx context.Context, story domain.Story) error {
	query, args, err := s.storyUpsert(story).ToSql()
	if err != nil {
		return fmt.Errorf("build story upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert story %d: %w", story.ID, err)
	}
	return nil
}

// UpsertStories writes a batch inside one transaction.
func (s *Store) UpsertStories(ctx context.Context, stories []domain.Story) error {
	if len(stories) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, story := range stories {
			query, args, err := s.storyUpsert(story).ToSql()
			if err != nil {
				return fmt.Errorf("build story upsert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert story %d: %w", story.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) storyUpsert(story domain.Story) sq.InsertBuilder {
	var posted int64
	if !story.PostedAt.IsZero() {
		posted = story.PostedAt.Unix()
	}

	return s.sb.Insert("stories").
		Columns("id", "title", "url", "score", "comments", "author", "posted_at", "source", "feed_id", "retrieved_at").
		Values(story.ID, story.Title, story.URL, story.Score, story.Comments, story.Author,
			posted, story.Source, story.FeedID, story.RetrievedAt.Unix()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
            score = excluded.score,
            comments = excluded.comments,
            feed_id = excluded.feed_id,
            retrieved_at = excluded.retrieved_at`)
}

// StoriesForFeed returns up to limit stories currently associated with
// the feed, highest score first.
func (s *Store) StoriesForFeed(ctx context.Context, feedID string, limit int) ([]domain.Story, error) {
	query, args, err := s.sb.
		Select("id", "title", "url", "score", "comments", "author", "posted_at", "source", "feed_id", "retrieved_at").
		From("stories").
		Where(sq.Eq{"feed_id": feedID}).
		OrderBy("score DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stories query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()

	var stories []domain.Story
	for rows.Next() {
		var (
			story     domain.Story
			url       sql.NullString
			author    sql.NullString
			posted    int64
			retrieved int64
		)
		if err := rows.Scan(&story.ID, &story.Title, &url, &story.Score, &story.Comments,
			&author, &posted, &story.Source, &story.FeedID, &retrieved); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		story.URL = url.String
		story.Author = author.String
		if posted > 0 {
			story.PostedAt = time.Unix(posted, 0).UTC()
		}
		story.RetrievedAt = time.Unix(retrieved, 0).UTC()
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return stories, nil
}

// PurgeStaleStories deletes stories retrieved more than maxAgeDays ago,
// measured from retrieval time, not posting time. Returns the number of
// rows removed.
func (s *Store) PurgeStaleStories(ctx context.Context, maxAgeDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays).Unix()

	query, args, err := s.sb.
		Delete("stories").
		Where(sq.Lt{"retrieved_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge stale stories: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

// UpsertMetricMeta overwrites the whole cached row for the metric.
func (s *Store) UpsertMetricMeta(ctx context.Context, meta domain.MetricMeta) error {
	var lastUpdated any
	if !meta.LastUpdated.IsZero() {
		lastUpdated = meta.LastUpdated.Unix()
	}

	query, args, err := s.sb.Insert("metrics").
		Columns("id", "name", "source", "frequency", "unit",
			"last_value", "last_updated", "previous_value", "change", "change_percent").
		Values(meta.ID, meta.Name, meta.Source, meta.Frequency, meta.Unit,
			nullableFloat(meta.LastValue), lastUpdated, nullableFloat(meta.PreviousValue),
			nullableFloat(meta.Change), nullableFloat(meta.ChangePercent)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
            name = excluded.name,
            source = excluded.source,
            frequency = excluded.frequency,
            unit = excluded.unit,
            last_value = excluded.last_value,
            last_updated = excluded.last_updated,
            previous_value = excluded.previous_value,
            change = excluded.change,
            change_percent = excluded.change_percent`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build metric meta upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert metric meta %s: %w", meta.ID, err)
	}
	return nil
}

// AllMetricMeta returns every cached metric row ordered by metric ID.
func (s *Store) AllMetricMeta(ctx context.Context) ([]domain.MetricMeta, error) {
	query, args, err := s.sb.
		Select("id", "name", "source", "frequency", "unit",
			"last_value", "last_updated", "previous_value", "change", "change_percent").
		From("metrics").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build metric meta query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metric meta: %w", err)
	}
	defer rows.Close()

	var metas []domain.MetricMeta
	for rows.Next() {
		var (
			meta        domain.MetricMeta
			name        sql.NullString
			source      sql.NullString
			frequency   sql.NullString
			unit        sql.NullString
			lastValue   sql.NullFloat64
			lastUpdated sql.NullInt64
			prevValue   sql.NullFloat64
			change      sql.NullFloat64
			changePct   sql.NullFloat64
		)
		if err := rows.Scan(&meta.ID, &name, &source, &frequency, &unit,
			&lastValue, &lastUpdated, &prevValue, &change, &changePct); err != nil {
			return nil, fmt.Errorf("scan metric meta: %w", err)
		}
		meta.Name = name.String
		meta.Source = source.String
		meta.Frequency = frequency.String
		meta.Unit = unit.String
		meta.LastValue = floatPtr(lastValue)
		meta.PreviousValue = floatPtr(prevValue)
		meta.Change = floatPtr(change)
		meta.ChangePercent = floatPtr(changePct)
		if lastUpdated.Valid {
			meta.LastUpdated = time.Unix(lastUpdated.Int64, 0).UTC()
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return metas, nil
}

// withTx runs fn inside a transaction, committing on success and
// rolling back entirely on any error so partial writes never surface.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
