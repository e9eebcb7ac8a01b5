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
	dbnomicsSource  = "dbnomics"
	dbnomicsBaseURL = "https://api.db.nomics.world/v22"
)

// DBnomics pulls series from the DBnomics aggregator. The series_id
// descriptor field carries the provider/dataset/series path.
type DBnomics struct {
	baseURL string
	client  *http.Client
}

var _ MetricConnector = (*DBnomics)(nil)

// NewDBnomics wires an optional HTTP client.
func NewDBnomics(client *http.Client) *DBnomics {
	if client == nil {
		client = newHTTPClient()
	}
	return &DBnomics{baseURL: dbnomicsBaseURL, client: client}
}

func (d *DBnomics) Source() string { return dbnomicsSource }

type dbnomicsSeriesDoc struct {
	Period []string   `json:"period"`
	Value  []*float64 `json:"value"`
}

type dbnomicsResponse struct {
	Series struct {
		Docs []dbnomicsSeriesDoc `json:"docs"`
	} `json:"series"`
}

// Fetch requests one series document with its observation arrays.
func (d *DBnomics) Fetch(ctx context.Context, cfg config.Metric) FetchResult {
	if cfg.SeriesID == "" {
		return Fail(dbnomicsSource, "series_id (format: provider/dataset/series) required for DBnomics connector")
	}

	url := d.baseURL + "/series/" + cfg.SeriesID + "?observations=1&format=json"

	var payload dbnomicsResponse
	if err := getJSON(ctx, d.client, url, nil, &payload); err != nil {
		return Fail(dbnomicsSource, "%v", err)
	}

	if len(payload.Series.Docs) == 0 {
		return Fail(dbnomicsSource, "no series data in response")
	}

	return Ok(dbnomicsSource, payload.Series.Docs[0])
}

// Normalize zips the parallel period/value arrays, skipping nulls.
func (d *DBnomics) Normalize(cfg config.Metric, raw any) []domain.Observation {
	doc, ok := raw.(dbnomicsSeriesDoc)
	if !ok {
		return nil
	}
	if len(doc.Period) != len(doc.Value) {
		return nil
	}

	now := time.Now().UTC()
	observations := make([]domain.Observation, 0, len(doc.Period))
	for i, period := range doc.Period {
		if doc.Value[i] == nil {
			continue
		}

		observations = append(observations, domain.Observation{
			MetricID:    cfg.ID,
			Date:        parsePeriodLabel(period),
			Value:       transform.Round(*doc.Value[i]*cfg.Scale(), cfg.DecimalPlaces()),
			Unit:        cfg.Unit,
			Source:      dbnomicsSource,
			RetrievedAt: now,
		})
	}

	sortObservationsDesc(observations)
	return observations
}
