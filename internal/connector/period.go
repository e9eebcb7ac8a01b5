package connector

import (
	"sort"
	"strings"

	"pulseboard/internal/domain"
)

var quarterStartMonth = map[byte]string{'1': "01", '2': "04", '3': "07", '4': "10"}

// parsePeriodLabel converts SDMX/DBnomics period labels to a calendar
// date, period-start convention:
//
//	2024-Q1 -> 2024-01-01
//	2024-03 -> 2024-03-01
//	2024    -> 2024-01-01
//
// Anything else is passed through unchanged (already a full date).
func parsePeriodLabel(period string) string {
	if i := strings.Index(period, "-Q"); i > 0 {
		quarter := period[i+2:]
		if len(quarter) == 1 {
			if month, ok := quarterStartMonth[quarter[0]]; ok {
				return period[:i] + "-" + month + "-01"
			}
		}
		return period
	}
	switch len(period) {
	case 7:
		return period + "-01"
	case 4:
		return period + "-01-01"
	default:
		return period
	}
}

// parseEstatPeriod converts e-Stat Dashboard time codes to a calendar
// date. Codes embed the cycle in the suffix:
//
//	202411M00 -> 2024-11-01 (monthly)
//	20243Q00  -> 2024-07-01 (quarterly, Q3 starts July)
//	2024CY00  -> 2024-01-01 (calendar year)
//	2024FY00  -> 2024-04-01 (Japanese fiscal year starts April)
//
// Returns "" when the code cannot be interpreted.
func parseEstatPeriod(period string) string {
	if len(period) < 6 {
		return ""
	}
	year := period[:4]

	switch {
	case strings.Contains(period, "M"):
		if len(period) < 6 {
			return ""
		}
		return year + "-" + period[4:6] + "-01"
	case strings.Contains(period, "Q"):
		if len(period) < 5 {
			return ""
		}
		month, ok := quarterStartMonth[period[4]]
		if !ok {
			month = "01"
		}
		return year + "-" + month + "-01"
	case strings.Contains(period, "CY"):
		return year + "-01-01"
	case strings.Contains(period, "FY"):
		return year + "-04-01"
	default:
		return year + "-01-01"
	}
}

// sortObservationsDesc orders observations most-recent-first. ISO dates
// compare correctly as strings.
func sortObservationsDesc(observations []domain.Observation) {
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Date > observations[j].Date
	})
}

// sortStoriesDesc orders stories by posted time, most recent first.
func sortStoriesDesc(stories []domain.Story) {
	sort.Slice(stories, func(i, j int) bool {
		return stories[i].PostedAt.After(stories[j].PostedAt)
	})
}
