package connector

import (
	"strconv"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
	"pulseboard/internal/transform"
)

// SDMX-JSON message shape shared by the ECB and OECD APIs. Observation
// arrays mix the value with attribute entries of varying types, so
// they decode as []any and only the leading element is used.
type sdmxMessage struct {
	DataSets  []sdmxDataSet `json:"dataSets"`
	Structure sdmxStructure `json:"structure"`
}

type sdmxDataSet struct {
	Series map[string]sdmxSeries `json:"series"`
}

type sdmxSeries struct {
	Observations map[string][]any `json:"observations"`
}

type sdmxStructure struct {
	Dimensions sdmxDimensions `json:"dimensions"`
}

type sdmxDimensions struct {
	Observation []sdmxDimension `json:"observation"`
}

type sdmxDimension struct {
	ID     string      `json:"id"`
	Values []sdmxValue `json:"values"`
}

type sdmxValue struct {
	ID string `json:"id"`
}

// normalizeSDMX resolves each observation ordinal against the
// TIME_PERIOD dimension labels and converts what it can. Ordinals
// without a label and null values are skipped individually.
func normalizeSDMX(cfg config.Metric, msg sdmxMessage, source string) []domain.Observation {
	var labels []string
	for _, dim := range msg.Structure.Dimensions.Observation {
		if dim.ID == "TIME_PERIOD" {
			labels = make([]string, 0, len(dim.Values))
			for _, v := range dim.Values {
				labels = append(labels, v.ID)
			}
			break
		}
	}
	if len(labels) == 0 || len(msg.DataSets) == 0 {
		return nil
	}

	var series *sdmxSeries
	for _, s := range msg.DataSets[0].Series {
		series = &s
		break
	}
	if series == nil {
		return nil
	}

	now := time.Now().UTC()
	observations := make([]domain.Observation, 0, len(series.Observations))
	for ordinal, entry := range series.Observations {
		idx, err := strconv.Atoi(ordinal)
		if err != nil || idx < 0 || idx >= len(labels) {
			continue
		}
		if len(entry) == 0 {
			continue
		}
		value, ok := entry[0].(float64)
		if !ok {
			continue
		}

		observations = append(observations, domain.Observation{
			MetricID:    cfg.ID,
			Date:        parsePeriodLabel(labels[idx]),
			Value:       transform.Round(value*cfg.Scale(), cfg.DecimalPlaces()),
			Unit:        cfg.Unit,
			Source:      source,
			RetrievedAt: now,
		})
	}

	sortObservationsDesc(observations)
	return observations
}
