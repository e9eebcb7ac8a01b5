package connector

import (
	"context"
	"net/http"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
)

const (
	oecdSource  = "oecd"
	oecdBaseURL = "https://sdmx.oecd.org/public/rest/data"
)

// Built-in dataflow/series-key pairs for common metrics; descriptor
// fields override when set.
var oecdMetricMap = map[string][2]string{
	"us.cpi_yoy":        {"PRICES_CPI", "USA.CPALTT01.GY.M"},
	"us.core_cpi_yoy":   {"PRICES_CPI", "USA.CPGRLE01.GY.M"},
	"us.unemployment":   {"MEI", "USA.LRHUTTTT.STSA.M"},
	"us.gdp_qoq":        {"QNA", "USA.B1_GE.GYSA.Q"},
	"eu.unemployment":   {"MEI", "EA20.LRHUTTTT.STSA.M"},
	"eu.deposit_rate":   {"MEI_FIN", "EA20.IR3TIB.ST.M"},
	"japan.policy_rate": {"MEI_FIN", "JPN.IR3TIB.ST.M"},
	"japan.cpi_yoy":     {"PRICES_CPI", "JPN.CPALTT01.GY.M"},
	"global.brent":      {"MEI", "OECD.OILBRNT.STSA.M"},
}

// OECD pulls series from the OECD SDMX API; the wire format matches
// the ECB connector and shares its normalizer.
type OECD struct {
	baseURL string
	client  *http.Client
}

var _ MetricConnector = (*OECD)(nil)

// NewOECD wires an optional HTTP client.
func NewOECD(client *http.Client) *OECD {
	if client == nil {
		client = newHTTPClient()
	}
	return &OECD{baseURL: oecdBaseURL, client: client}
}

func (o *OECD) Source() string { return oecdSource }

// Fetch resolves the dataflow/series key from the descriptor or the
// built-in mapping and requests SDMX-JSON data.
func (o *OECD) Fetch(ctx context.Context, cfg config.Metric) FetchResult {
	dataflow := cfg.Dataflow
	seriesKey := cfg.SeriesKey
	if mapping, ok := oecdMetricMap[cfg.ID]; ok {
		if dataflow == "" {
			dataflow = mapping[0]
		}
		if seriesKey == "" {
			seriesKey = mapping[1]
		}
	}
	if dataflow == "" || seriesKey == "" {
		return Fail(oecdSource, "no OECD dataflow/series_key mapping for metric %s", cfg.ID)
	}

	url := o.baseURL + "/" + dataflow + "/" + seriesKey + "?format=jsondata&lastNObservations=500"

	var msg sdmxMessage
	if err := getJSON(ctx, o.client, url, nil, &msg); err != nil {
		return Fail(oecdSource, "%v", err)
	}

	return Ok(oecdSource, msg)
}

// Normalize parses the SDMX-JSON structure into observations.
func (o *OECD) Normalize(cfg config.Metric, raw any) []domain.Observation {
	msg, ok := raw.(sdmxMessage)
	if !ok {
		return nil
	}
	return normalizeSDMX(cfg, msg, oecdSource)
}
