package connector

import (
	"context"
	"net/http"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
	"pulseboard/internal/transform"
)

const (
	yahooSource  = "yahoo"
	yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	// Yahoo rejects default Go user agents.
	yahooUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Built-in metric-to-symbol mapping; series_id overrides when set.
var yahooSymbolMap = map[string]string{
	"global.brent": "BZ=F",
	"global.dxy":   "DX-Y.NYB",
	"global.gold":  "GC=F",
	"global.wti":   "CL=F",
}

// Yahoo pulls daily closes from the unofficial Yahoo Finance chart
// endpoint.
type Yahoo struct {
	baseURL string
	client  *http.Client
}

var _ MetricConnector = (*Yahoo)(nil)

// NewYahoo wires an optional HTTP client.
func NewYahoo(client *http.Client) *Yahoo {
	if client == nil {
		client = newHTTPClient()
	}
	return &Yahoo{baseURL: yahooBaseURL, client: client}
}

func (y *Yahoo) Source() string { return yahooSource }

type yahooChart struct {
	Chart struct {
		Result []yahooResult `json:"result"`
	} `json:"chart"`
}

type yahooResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Fetch requests one month of daily data, enough for sparklines.
func (y *Yahoo) Fetch(ctx context.Context, cfg config.Metric) FetchResult {
	symbol := yahooSymbolMap[cfg.ID]
	if cfg.SeriesID != "" {
		symbol = cfg.SeriesID
	}
	if symbol == "" {
		return Fail(yahooSource, "no Yahoo symbol mapping for metric %s", cfg.ID)
	}

	url := y.baseURL + "/" + symbol + "?interval=1d&range=1mo"
	headers := map[string]string{"User-Agent": yahooUserAgent}

	var payload yahooChart
	if err := getJSON(ctx, y.client, url, headers, &payload); err != nil {
		return Fail(yahooSource, "%v", err)
	}

	if len(payload.Chart.Result) == 0 {
		return Fail(yahooSource, "empty chart result")
	}

	return Ok(yahooSource, payload.Chart.Result[0])
}

// Normalize zips timestamps with closes, skipping null closes.
func (y *Yahoo) Normalize(cfg config.Metric, raw any) []domain.Observation {
	result, ok := raw.(yahooResult)
	if !ok {
		return nil
	}
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	closes := result.Indicators.Quote[0].Close

	now := time.Now().UTC()
	observations := make([]domain.Observation, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}

		observations = append(observations, domain.Observation{
			MetricID:    cfg.ID,
			Date:        time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Value:       transform.Round(*closes[i]*cfg.Scale(), cfg.DecimalPlaces()),
			Unit:        cfg.Unit,
			Source:      yahooSource,
			RetrievedAt: now,
		})
	}

	sortObservationsDesc(observations)
	return observations
}
