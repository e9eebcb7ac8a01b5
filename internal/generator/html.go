// Package generator renders the static dashboard page from persisted
// tables. It never fetches; the pipeline owns all network access.
package generator

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
	"pulseboard/internal/ports"
	"pulseboard/internal/transform"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

const (
	outputFile      = "index.html"
	sparklineLookup = 12
	sparklineWidth  = 10
	storiesPerFeed  = 10
)

// Generator builds the dashboard page wholesale on every run.
type Generator struct {
	store  ports.Storage
	groups []config.Group
	feeds  []config.Feed
	outDir string
	logger *slog.Logger
	tmpl   *template.Template
}

// New parses the embedded template and wires storage plus the display
// configuration.
func New(store ports.Storage, groups []config.Group, feeds []config.Feed, outDir string, logger *slog.Logger) (*Generator, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		store:  store,
		groups: groups,
		feeds:  feeds,
		outDir: outDir,
		logger: logger,
		tmpl:   tmpl,
	}, nil
}

type metricView struct {
	Name        string
	Value       string
	Change      string
	ChangeClass string
	Sparkline   string
	Frequency   string
	Updated     string
}

type groupView struct {
	Name    string
	Metrics []metricView
}

type storyView struct {
	Title    string
	URL      string
	Score    int
	Comments int
	Author   string
}

type feedView struct {
	Name    string
	Stories []storyView
}

type pageView struct {
	GeneratedAt string
	Groups      []groupView
	Feeds       []feedView
}

// Render queries the persisted tables, builds the page context, and
// writes index.html into the output directory.
func (g *Generator) Render(ctx context.Context) error {
	metas, err := g.store.AllMetricMeta(ctx)
	if err != nil {
		return fmt.Errorf("load metric meta: %w", err)
	}
	byID := make(map[string]domain.MetricMeta, len(metas))
	for _, meta := range metas {
		byID[meta.ID] = meta
	}

	page := pageView{GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04 UTC")}

	for _, group := range g.groups {
		gv := groupView{Name: group.Name}
		for _, id := range group.Metrics {
			meta, ok := byID[id]
			if !ok {
				continue
			}

			observations, err := g.store.LatestObservations(ctx, id, sparklineLookup)
			if err != nil {
				g.logger.Warn("load observations", "metric", id, "error", err)
				continue
			}
			values := transform.SparklineValues(observations, sparklineWidth)

			gv.Metrics = append(gv.Metrics, metricView{
				Name:        meta.Name,
				Value:       formatValue(meta.LastValue, meta.Unit),
				Change:      formatChange(meta.Change, meta.Unit),
				ChangeClass: changeClass(meta.Change),
				Sparkline:   transform.ASCIISparkline(values, sparklineWidth),
				Frequency:   meta.Frequency,
				Updated:     formatUpdated(meta.LastUpdated),
			})
		}
		if len(gv.Metrics) > 0 {
			page.Groups = append(page.Groups, gv)
		}
	}

	for _, feed := range g.feeds {
		stories, err := g.store.StoriesForFeed(ctx, feed.ID, storiesPerFeed)
		if err != nil {
			g.logger.Warn("load stories", "feed", feed.ID, "error", err)
			continue
		}
		if len(stories) == 0 {
			continue
		}

		fv := feedView{Name: feed.Name}
		for _, story := range stories {
			fv.Stories = append(fv.Stories, storyView{
				Title:    story.Title,
				URL:      story.URL,
				Score:    story.Score,
				Comments: story.Comments,
				Author:   story.Author,
			})
		}
		page.Feeds = append(page.Feeds, fv)
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("execute dashboard template: %w", err)
	}

	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	target := filepath.Join(g.outDir, outputFile)
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	g.logger.Info("dashboard rendered", "path", target, "groups", len(page.Groups), "feeds", len(page.Feeds))
	return nil
}

func formatValue(value *float64, unit string) string {
	if value == nil {
		return "—"
	}
	switch {
	case unit == "%":
		return fmt.Sprintf("%.1f%%", *value)
	case unit == "bp":
		return fmt.Sprintf("%.0fbp", *value)
	case strings.Contains(unit, "$"):
		return fmt.Sprintf("$%s", withCommas(*value, 2))
	case unit == "index":
		return fmt.Sprintf("%.1f", *value)
	default:
		return withCommas(*value, 2)
	}
}

func formatChange(change *float64, unit string) string {
	if change == nil {
		return ""
	}
	prefix := ""
	if *change > 0 {
		prefix = "+"
	}
	switch unit {
	case "%":
		return fmt.Sprintf("%s%.2fpp", prefix, *change)
	case "bp":
		return fmt.Sprintf("%s%.0fbp", prefix, *change)
	default:
		return fmt.Sprintf("%s%.2f", prefix, *change)
	}
}

func changeClass(change *float64) string {
	switch {
	case change == nil:
		return "flat"
	case *change > 0:
		return "up"
	case *change < 0:
		return "down"
	default:
		return "flat"
	}
}

func formatUpdated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// withCommas formats with thousands separators, the way the dashboard
// displays dollar amounts.
func withCommas(value float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, value)

	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	for i := range s {
		if s[i] == '.' {
			intPart, fracPart = s[:i], s[i:]
			break
		}
	}

	var out []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}

	result := string(out) + fracPart
	if neg {
		result = "-" + result
	}
	return result
}
