package domain

import "time"

// Observation is a single data point for a tracked metric. The triple
// (MetricID, Date, Source) is unique in storage; re-fetching the same
// period overwrites the value instead of duplicating the row.
type Observation struct {
	MetricID    string
	Date        string // YYYY-MM-DD, period-start convention
	Value       float64
	Unit        string
	Source      string
	RetrievedAt time.Time
}

// Story is a discussion-feed item (Hacker News). The source-native ID
// is globally unique regardless of which feed surfaced it.
type Story struct {
	ID          int64
	Title       string
	URL         string
	Score       int
	Comments    int
	Author      string
	PostedAt    time.Time
	Source      string
	FeedID      string
	RetrievedAt time.Time
}

// MetricMeta is the cached current-state snapshot for one metric,
// recomputed from the two most recent distinct-date observations on
// every pipeline run. Pointer fields are nil when no value exists yet.
type MetricMeta struct {
	ID            string
	Name          string
	Source        string
	Frequency     string
	Unit          string
	LastValue     *float64
	LastUpdated   time.Time
	PreviousValue *float64
	Change        *float64
	ChangePercent *float64
}
