package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
	"pulseboard/internal/transform"
)

const (
	worldBankSource  = "worldbank"
	worldBankBaseURL = "https://api.worldbank.org/v2"

	// World aggregate; used when the descriptor names no country.
	worldBankDefaultCountry = "WLD"
)

// WorldBank pulls development indicators. Responses are a two-element
// array of [metadata, rows] where rows itself may be null.
type WorldBank struct {
	baseURL string
	client  *http.Client
}

var _ MetricConnector = (*WorldBank)(nil)

// NewWorldBank wires an optional HTTP client.
func NewWorldBank(client *http.Client) *WorldBank {
	if client == nil {
		client = newHTTPClient()
	}
	return &WorldBank{baseURL: worldBankBaseURL, client: client}
}

func (w *WorldBank) Source() string { return worldBankSource }

type worldBankRow struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Fetch requests the most recent values for the configured indicator.
func (w *WorldBank) Fetch(ctx context.Context, cfg config.Metric) FetchResult {
	if cfg.Indicator == "" {
		return Fail(worldBankSource, "indicator required for World Bank connector")
	}

	country := cfg.Country
	if country == "" {
		country = worldBankDefaultCountry
	}

	url := w.baseURL + "/country/" + country + "/indicator/" + cfg.Indicator +
		"?format=json&per_page=100&mrv=50"

	var envelope []json.RawMessage
	if err := getJSON(ctx, w.client, url, nil, &envelope); err != nil {
		return Fail(worldBankSource, "%v", err)
	}

	if len(envelope) < 2 {
		return Fail(worldBankSource, "unexpected World Bank response format")
	}

	var rows []*worldBankRow
	if err := json.Unmarshal(envelope[1], &rows); err != nil {
		return Fail(worldBankSource, "decode data array: %v", err)
	}

	return Ok(worldBankSource, rows)
}

// Normalize converts rows to observations; bare-year dates expand to
// January 1, null rows and null values are skipped.
func (w *WorldBank) Normalize(cfg config.Metric, raw any) []domain.Observation {
	rows, ok := raw.([]*worldBankRow)
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	observations := make([]domain.Observation, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.Value == nil {
			continue
		}

		date := row.Date
		if len(date) == 4 {
			date += "-01-01"
		}

		observations = append(observations, domain.Observation{
			MetricID:    cfg.ID,
			Date:        date,
			Value:       transform.Round(*row.Value*cfg.Scale(), cfg.DecimalPlaces()),
			Unit:        cfg.Unit,
			Source:      worldBankSource,
			RetrievedAt: now,
		})
	}

	sortObservationsDesc(observations)
	return observations
}
