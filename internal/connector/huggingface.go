package connector

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
	"pulseboard/internal/transform"
)

const (
	huggingFaceSource = "huggingface"
	hfDatasetsServer  = "https://datasets-server.huggingface.co"
	hfLeaderboard     = "open-llm-leaderboard/contents"
	hfBatchSize       = 100

	// The leaderboard dataset averages benchmarks into this column.
	hfScoreColumn = "Average ⬆️"
)

// The dataset is sorted alphabetically, not by score, so the connector
// samples rows at fixed offsets to find the current top score.
var hfSampleOffsets = []int{0, 1000, 2000, 3000, 4000}

// HuggingFace tracks the top score on the Open LLM Leaderboard via the
// Datasets Server API. Model names arrive wrapped in HTML anchors.
type HuggingFace struct {
	baseURL string
	client  *http.Client
}

var _ MetricConnector = (*HuggingFace)(nil)

// NewHuggingFace wires an optional HTTP client.
func NewHuggingFace(client *http.Client) *HuggingFace {
	if client == nil {
		client = newHTTPClient()
	}
	return &HuggingFace{baseURL: hfDatasetsServer, client: client}
}

func (h *HuggingFace) Source() string { return huggingFaceSource }

type hfRowsResponse struct {
	Rows []struct {
		Row map[string]any `json:"row"`
	} `json:"rows"`
}

type hfLeaderboardSample struct {
	TopModel   string
	TopScore   float64
	SampleSize int
}

// Fetch samples leaderboard rows and keeps the best-scoring model seen.
func (h *HuggingFace) Fetch(ctx context.Context, cfg config.Metric) FetchResult {
	type rankedModel struct {
		name  string
		score float64
	}
	var models []rankedModel

	for _, offset := range hfSampleOffsets {
		url := fmt.Sprintf("%s/rows?dataset=%s&config=default&split=train&offset=%d&length=%d",
			h.baseURL, hfLeaderboard, offset, hfBatchSize)

		var payload hfRowsResponse
		if err := getJSON(ctx, h.client, url, nil, &payload); err != nil {
			// Individual offset failures are tolerated; the dataset may
			// be shorter than the sampled range.
			continue
		}

		for _, r := range payload.Rows {
			name := modelNameFromCell(r.Row["Model"])
			score, ok := r.Row[hfScoreColumn].(float64)
			if !ok || score == 0 || name == "" {
				continue
			}
			models = append(models, rankedModel{name: name, score: score})
		}
	}

	if len(models) == 0 {
		return Fail(huggingFaceSource, "no leaderboard data found in HuggingFace dataset")
	}

	sort.Slice(models, func(i, j int) bool { return models[i].score > models[j].score })

	return Ok(huggingFaceSource, hfLeaderboardSample{
		TopModel:   models[0].name,
		TopScore:   models[0].score,
		SampleSize: len(models),
	})
}

// modelNameFromCell extracts the model name from the dataset's HTML
// anchor cell, falling back to the raw string when no anchor parses.
func modelNameFromCell(cell any) string {
	html, ok := cell.(string)
	if !ok {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	if name := strings.TrimSpace(doc.Find("a").First().Text()); name != "" {
		return name
	}
	return strings.TrimSpace(html)
}

// Normalize emits one observation: today's top leaderboard score.
func (h *HuggingFace) Normalize(cfg config.Metric, raw any) []domain.Observation {
	sample, ok := raw.(hfLeaderboardSample)
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	return []domain.Observation{{
		MetricID:    cfg.ID,
		Date:        now.Format("2006-01-02"),
		Value:       transform.Round(sample.TopScore*cfg.Scale(), cfg.DecimalPlaces()),
		Unit:        cfg.Unit,
		Source:      huggingFaceSource,
		RetrievedAt: now,
	}}
}
