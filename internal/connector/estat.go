package connector

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
	"pulseboard/internal/transform"
)

const (
	estatSource  = "estat_dashboard"
	estatBaseURL = "https://dashboard.e-stat.go.jp/api/1.0"
)

// EStat pulls Japanese indicators from the e-Stat Statistics Dashboard
// open API. No key required; indicators are addressed by code.
type EStat struct {
	baseURL string
	client  *http.Client
}

var _ MetricConnector = (*EStat)(nil)

// NewEStat wires an optional HTTP client.
func NewEStat(client *http.Client) *EStat {
	if client == nil {
		client = newHTTPClient()
	}
	return &EStat{baseURL: estatBaseURL, client: client}
}

func (e *EStat) Source() string { return estatSource }

type estatValue struct {
	Time  string `json:"@time"`
	Cycle string `json:"@cycle"`
	Raw   string `json:"$"`
}

type estatDataObj struct {
	Value estatValue `json:"VALUE"`
}

type estatEnvelope struct {
	GetStats struct {
		Result struct {
			Status   string `json:"status"`
			ErrorMsg string `json:"errorMsg"`
		} `json:"RESULT"`
		StatisticalData struct {
			DataInf struct {
				DataObj []estatDataObj `json:"DATA_OBJ"`
			} `json:"DATA_INF"`
		} `json:"STATISTICAL_DATA"`
	} `json:"GET_STATS"`
}

// Fetch requests the full history for the configured indicator code.
// An error status in the envelope is a batch failure.
func (e *EStat) Fetch(ctx context.Context, cfg config.Metric) FetchResult {
	if cfg.IndicatorCode == "" {
		return Fail(estatSource, "indicator_code required for e-Stat Dashboard connector")
	}

	url := e.baseURL + "/Json/getData?IndicatorCode=" + cfg.IndicatorCode

	var envelope estatEnvelope
	if err := getJSON(ctx, e.client, url, nil, &envelope); err != nil {
		return Fail(estatSource, "%v", err)
	}

	if envelope.GetStats.Result.Status != "0" {
		msg := envelope.GetStats.Result.ErrorMsg
		if msg == "" {
			msg = "unknown error"
		}
		return Fail(estatSource, "e-Stat API error: %s", msg)
	}

	dataObjs := envelope.GetStats.StatisticalData.DataInf.DataObj
	if len(dataObjs) == 0 {
		return Fail(estatSource, "no data returned from e-Stat API")
	}

	return Ok(estatSource, dataObjs)
}

// Normalize converts e-Stat records, skipping empty values and
// uninterpretable time codes per record.
func (e *EStat) Normalize(cfg config.Metric, raw any) []domain.Observation {
	items, ok := raw.([]estatDataObj)
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	observations := make([]domain.Observation, 0, len(items))
	for _, item := range items {
		if item.Value.Raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(item.Value.Raw, 64)
		if err != nil {
			continue
		}
		date := parseEstatPeriod(item.Value.Time)
		if date == "" {
			continue
		}

		observations = append(observations, domain.Observation{
			MetricID:    cfg.ID,
			Date:        date,
			Value:       transform.Round(value*cfg.Scale(), cfg.DecimalPlaces()),
			Unit:        cfg.Unit,
			Source:      estatSource,
			RetrievedAt: now,
		})
	}

	sortObservationsDesc(observations)
	return observations
}
