package connector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
	"pulseboard/internal/transform"
)

const (
	fredSource  = "fred"
	fredBaseURL = "https://api.stlouisfed.org/fred"

	// FRED marks periods with no data using a lone dot.
	fredMissingSentinel = "."
)

// FRED pulls series observations from the St. Louis Fed API. An API
// key is mandatory; construction fails without one so that only this
// connector is disabled, not the run.
type FRED struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ MetricConnector = (*FRED)(nil)

// NewFRED wires the API key and an optional HTTP client.
func NewFRED(apiKey string, client *http.Client) (*FRED, error) {
	if apiKey == "" {
		return nil, errors.New("FRED_API_KEY required, get one at https://fred.stlouisfed.org/docs/api/api_key.html")
	}
	if client == nil {
		client = newHTTPClient()
	}
	return &FRED{apiKey: apiKey, baseURL: fredBaseURL, client: client}, nil
}

// Source identifies the connector inside the registry.
func (f *FRED) Source() string { return fredSource }

type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type fredResponse struct {
	Observations []fredObservation `json:"observations"`
}

// Fetch requests up to 500 observations, newest first.
func (f *FRED) Fetch(ctx context.Context, cfg config.Metric) FetchResult {
	if cfg.SeriesID == "" {
		return Fail(fredSource, "series_id required for FRED connector")
	}

	params := url.Values{}
	params.Set("series_id", cfg.SeriesID)
	params.Set("api_key", f.apiKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "desc")
	params.Set("limit", "500")

	var payload fredResponse
	if err := getJSON(ctx, f.client, f.baseURL+"/series/observations?"+params.Encode(), nil, &payload); err != nil {
		return Fail(fredSource, "%v", err)
	}

	if payload.Observations == nil {
		return Fail(fredSource, "unexpected response format: no observations field")
	}

	return Ok(fredSource, payload.Observations)
}

// Normalize drops missing-value sentinels, applies the descriptor
// multiplier and rounding, and wraps the rest into observations.
func (f *FRED) Normalize(cfg config.Metric, raw any) []domain.Observation {
	items, ok := raw.([]fredObservation)
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	observations := make([]domain.Observation, 0, len(items))
	for _, item := range items {
		if item.Value == fredMissingSentinel || item.Value == "" {
			continue
		}
		value, err := strconv.ParseFloat(item.Value, 64)
		if err != nil {
			continue
		}

		observations = append(observations, domain.Observation{
			MetricID:    cfg.ID,
			Date:        item.Date, // already YYYY-MM-DD
			Value:       transform.Round(value*cfg.Scale(), cfg.DecimalPlaces()),
			Unit:        cfg.Unit,
			Source:      fredSource,
			RetrievedAt: now,
		})
	}

	sortObservationsDesc(observations)
	return observations
}
