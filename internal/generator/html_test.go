package generator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
	"pulseboard/internal/storage"
)

func TestRender(t *testing.T) {
	t.Parallel()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	now := time.Now().UTC()

	last := 3.4
	prev := 3.5
	change := -0.1
	pct := -2.86
	err = store.UpsertMetricMeta(ctx, domain.MetricMeta{
		ID: "us.cpi_yoy", Name: "US CPI YoY", Source: "fred", Frequency: "monthly", Unit: "%",
		LastValue: &last, PreviousValue: &prev, Change: &change, ChangePercent: &pct,
		LastUpdated: now,
	})
	if err != nil {
		t.Fatalf("seed meta: %v", err)
	}

	for i := 0; i < 6; i++ {
		err := store.UpsertObservation(ctx, domain.Observation{
			MetricID:    "us.cpi_yoy",
			Date:        time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Value:       3.0 + float64(i)*0.1,
			Unit:        "%",
			Source:      "fred",
			RetrievedAt: now,
		})
		if err != nil {
			t.Fatalf("seed observation: %v", err)
		}
	}

	err = store.UpsertStory(ctx, domain.Story{
		ID: 1, Title: "A <b>story</b> title", URL: "https://example.com", Score: 99,
		Comments: 12, Author: "alice", PostedAt: now, Source: "hn_firebase",
		FeedID: "hn_top", RetrievedAt: now,
	})
	if err != nil {
		t.Fatalf("seed story: %v", err)
	}

	outDir := t.TempDir()
	groups := []config.Group{{Name: "US Economy", Metrics: []string{"us.cpi_yoy", "missing.metric"}}}
	feeds := []config.Feed{
		{ID: "hn_top", Name: "HN Top Stories", Source: "hn_firebase"},
		{ID: "empty_feed", Name: "Empty", Source: "hn_firebase"},
	}

	gen, err := New(store, groups, feeds, outDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	if err := gen.Render(ctx); err != nil {
		t.Fatalf("render: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	html := string(raw)

	for _, want := range []string{"US Economy", "US CPI YoY", "3.4%", "HN Top Stories", "alice"} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q", want)
		}
	}
	// Template escaping must neutralize markup in story titles.
	if strings.Contains(html, "<b>story</b>") {
		t.Error("story title rendered unescaped")
	}
	// Feeds with no stories and groups with no resolvable metrics are dropped.
	if strings.Contains(html, "Empty") {
		t.Error("empty feed must not render")
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	v := func(f float64) *float64 { return &f }

	cases := []struct {
		value *float64
		unit  string
		want  string
	}{
		{nil, "%", "—"},
		{v(3.42), "%", "3.4%"},
		{v(25), "bp", "25bp"},
		{v(67251.37), "$", "$67,251.37"},
		{v(105.4), "$T", "$105.40"},
		{v(48.53), "index", "48.5"},
		{v(1234567.891), "", "1,234,567.89"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.value, tc.unit); got != tc.want {
			t.Errorf("formatValue(%v, %q) = %q, want %q", tc.value, tc.unit, got, tc.want)
		}
	}
}

func TestFormatChange(t *testing.T) {
	t.Parallel()

	v := func(f float64) *float64 { return &f }

	cases := []struct {
		change *float64
		unit   string
		want   string
	}{
		{nil, "%", ""},
		{v(0.2), "%", "+0.20pp"},
		{v(-0.1), "%", "-0.10pp"},
		{v(25), "bp", "+25bp"},
		{v(-3.5), "$", "-3.50"},
		{v(0), "$", "0.00"},
	}
	for _, tc := range cases {
		if got := formatChange(tc.change, tc.unit); got != tc.want {
			t.Errorf("formatChange(%v, %q) = %q, want %q", tc.change, tc.unit, got, tc.want)
		}
	}
}

func TestChangeClass(t *testing.T) {
	t.Parallel()

	v := func(f float64) *float64 { return &f }

	if got := changeClass(nil); got != "flat" {
		t.Errorf("nil change class = %q", got)
	}
	if got := changeClass(v(1)); got != "up" {
		t.Errorf("positive change class = %q", got)
	}
	if got := changeClass(v(-1)); got != "down" {
		t.Errorf("negative change class = %q", got)
	}
	if got := changeClass(v(0)); got != "flat" {
		t.Errorf("zero change class = %q", got)
	}
}

func TestWithCommas(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value    float64
		decimals int
		want     string
	}{
		{1234567.891, 2, "1,234,567.89"},
		{999, 0, "999"},
		{1000, 0, "1,000"},
		{-1234.5, 2, "-1,234.50"},
		{0, 2, "0.00"},
	}
	for _, tc := range cases {
		if got := withCommas(tc.value, tc.decimals); got != tc.want {
			t.Errorf("withCommas(%v, %d) = %q, want %q", tc.value, tc.decimals, got, tc.want)
		}
	}
}
