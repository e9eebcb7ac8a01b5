package connector

import (
	"context"
	"net/http"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
)

const (
	ecbSource  = "ecb"
	ecbBaseURL = "https://data-api.ecb.europa.eu/service/data"
)

// ECB pulls Eurozone series from the ECB SDMX-JSON API. No
// authentication required.
type ECB struct {
	baseURL string
	client  *http.Client
}

var _ MetricConnector = (*ECB)(nil)

// NewECB wires an optional HTTP client.
func NewECB(client *http.Client) *ECB {
	if client == nil {
		client = newHTTPClient()
	}
	return &ECB{baseURL: ecbBaseURL, client: client}
}

func (e *ECB) Source() string { return ecbSource }

// Fetch requests the last 500 observations for the configured
// dataflow/series key pair.
func (e *ECB) Fetch(ctx context.Context, cfg config.Metric) FetchResult {
	if cfg.Dataflow == "" || cfg.SeriesKey == "" {
		return Fail(ecbSource, "dataflow and series_key required for ECB connector")
	}

	url := e.baseURL + "/" + cfg.Dataflow + "/" + cfg.SeriesKey + "?format=jsondata&lastNObservations=500"

	var msg sdmxMessage
	if err := getJSON(ctx, e.client, url, nil, &msg); err != nil {
		return Fail(ecbSource, "%v", err)
	}

	return Ok(ecbSource, msg)
}

// Normalize parses the SDMX-JSON structure into observations.
func (e *ECB) Normalize(cfg config.Metric, raw any) []domain.Observation {
	msg, ok := raw.(sdmxMessage)
	if !ok {
		return nil
	}
	return normalizeSDMX(cfg, msg, ecbSource)
}
