package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pulseboard/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestObservationUpsertIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	obs := domain.Observation{
		MetricID:    "us.cpi",
		Date:        "2024-06-01",
		Value:       314.2,
		Unit:        "index",
		Source:      "fred",
		RetrievedAt: time.Now().UTC(),
	}
	if err := store.UpsertObservation(ctx, obs); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Re-ingesting the same (metric, date, source) overwrites in place.
	obs.Value = 314.5
	if err := store.UpsertObservation(ctx, obs); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.LatestObservations(ctx, "us.cpi", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row after overwrite, got %d", len(got))
	}
	if got[0].Value != 314.5 {
		t.Fatalf("value not overwritten: %v", got[0].Value)
	}
}

func TestObservationsDistinctSources(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []domain.Observation{
		{MetricID: "us.cpi", Date: "2024-06-01", Value: 314.2, Source: "fred", RetrievedAt: now},
		{MetricID: "us.cpi", Date: "2024-06-01", Value: 314.3, Source: "oecd", RetrievedAt: now},
	}
	if err := store.UpsertObservations(ctx, batch); err != nil {
		t.Fatalf("batch upsert: %v", err)
	}

	got, err := store.LatestObservations(ctx, "us.cpi", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("same date from different sources must coexist, got %d rows", len(got))
	}
}

func TestLatestObservationsOrderAndLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	dates := []string{"2024-03-01", "2024-06-01", "2024-01-01", "2024-05-01"}
	for i, d := range dates {
		err := store.UpsertObservation(ctx, domain.Observation{
			MetricID: "m", Date: d, Value: float64(i), Source: "s", RetrievedAt: now,
		})
		if err != nil {
			t.Fatalf("upsert %s: %v", d, err)
		}
	}

	got, err := store.LatestObservations(ctx, "m", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limit not applied, got %d rows", len(got))
	}
	if got[0].Date != "2024-06-01" || got[1].Date != "2024-05-01" {
		t.Fatalf("wrong order: %s, %s", got[0].Date, got[1].Date)
	}
}

func TestStoryUpsertKeepsImmutableFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	story := domain.Story{
		ID: 41000000, Title: "Original title", URL: "https://a", Score: 10, Comments: 2,
		Author: "alice", PostedAt: now.Add(-time.Hour), Source: "hn_firebase",
		FeedID: "hn_top", RetrievedAt: now,
	}
	if err := store.UpsertStory(ctx, story); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Same story seen again via another feed with a fresher score.
	update := story
	update.Title = "Edited title"
	update.URL = "https://b"
	update.Author = "mallory"
	update.Score = 250
	update.Comments = 40
	update.FeedID = "hn_ai"
	if err := store.UpsertStory(ctx, update); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.StoriesForFeed(ctx, "hn_ai", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the story under its latest feed, got %d rows", len(got))
	}
	s := got[0]
	if s.Title != "Original title" || s.URL != "https://a" || s.Author != "alice" {
		t.Fatalf("immutable fields were overwritten: %+v", s)
	}
	if s.Score != 250 || s.Comments != 40 {
		t.Fatalf("mutable fields not refreshed: %+v", s)
	}

	old, err := store.StoriesForFeed(ctx, "hn_top", 10)
	if err != nil {
		t.Fatalf("query old feed: %v", err)
	}
	if len(old) != 0 {
		t.Fatalf("story must move to its latest feed, still found %d rows", len(old))
	}
}

func TestStoriesForFeedOrdersByScore(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stories := []domain.Story{
		{ID: 1, Title: "Low", Score: 5, Source: "hn_firebase", FeedID: "hn_top", RetrievedAt: now},
		{ID: 2, Title: "High", Score: 500, Source: "hn_firebase", FeedID: "hn_top", RetrievedAt: now},
		{ID: 3, Title: "Mid", Score: 50, Source: "hn_firebase", FeedID: "hn_top", RetrievedAt: now},
		{ID: 4, Title: "Other feed", Score: 999, Source: "hn_firebase", FeedID: "hn_ai", RetrievedAt: now},
	}
	if err := store.UpsertStories(ctx, stories); err != nil {
		t.Fatalf("batch upsert: %v", err)
	}

	got, err := store.StoriesForFeed(ctx, "hn_top", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("expected top-2 by score [2 3], got %+v", got)
	}
}

func TestPurgeStaleStories(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stories := []domain.Story{
		{ID: 1, Title: "Fresh", Score: 1, Source: "s", FeedID: "f", RetrievedAt: now.Add(-24 * time.Hour)},
		{ID: 2, Title: "Stale", Score: 1, Source: "s", FeedID: "f", RetrievedAt: now.Add(-8 * 24 * time.Hour)},
		{ID: 3, Title: "Very stale", Score: 1, Source: "s", FeedID: "f", RetrievedAt: now.Add(-30 * 24 * time.Hour)},
	}
	if err := store.UpsertStories(ctx, stories); err != nil {
		t.Fatalf("batch upsert: %v", err)
	}

	removed, err := store.PurgeStaleStories(ctx, 7)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 purged rows, got %d", removed)
	}

	got, err := store.StoriesForFeed(ctx, "f", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the fresh story to survive, got %+v", got)
	}
}

func TestMetricMetaRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	last := 3.4
	prev := 3.5
	change := -0.1
	pct := -2.86
	meta := domain.MetricMeta{
		ID: "us.cpi_yoy", Name: "US CPI YoY", Source: "fred", Frequency: "monthly", Unit: "%",
		LastValue: &last, PreviousValue: &prev, Change: &change, ChangePercent: &pct,
		LastUpdated: time.Date(2024, 6, 12, 8, 30, 0, 0, time.UTC),
	}
	if err := store.UpsertMetricMeta(ctx, meta); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Sparse row: a metric that has not produced values yet.
	if err := store.UpsertMetricMeta(ctx, domain.MetricMeta{ID: "ai.llm_top_score", Name: "Top LLM Score"}); err != nil {
		t.Fatalf("upsert sparse: %v", err)
	}

	metas, err := store.AllMetricMeta(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(metas))
	}
	// Ordered by ID.
	if metas[0].ID != "ai.llm_top_score" || metas[1].ID != "us.cpi_yoy" {
		t.Fatalf("wrong order: %s, %s", metas[0].ID, metas[1].ID)
	}

	got := metas[1]
	if got.LastValue == nil || *got.LastValue != 3.4 {
		t.Fatalf("last value lost: %+v", got)
	}
	if got.ChangePercent == nil || *got.ChangePercent != -2.86 {
		t.Fatalf("change percent lost: %+v", got)
	}
	if !got.LastUpdated.Equal(meta.LastUpdated) {
		t.Fatalf("last updated lost: %v", got.LastUpdated)
	}

	sparse := metas[0]
	if sparse.LastValue != nil || sparse.Change != nil || !sparse.LastUpdated.IsZero() {
		t.Fatalf("sparse row must keep nil fields: %+v", sparse)
	}
}

func TestMetricMetaOverwrite(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	v1 := 1.0
	if err := store.UpsertMetricMeta(ctx, domain.MetricMeta{ID: "m", Name: "First", LastValue: &v1}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	v2 := 2.0
	if err := store.UpsertMetricMeta(ctx, domain.MetricMeta{ID: "m", Name: "Second", LastValue: &v2}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	metas, err := store.AllMetricMeta(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(metas) != 1 || metas[0].Name != "Second" || *metas[0].LastValue != 2.0 {
		t.Fatalf("row not fully replaced: %+v", metas)
	}
}
