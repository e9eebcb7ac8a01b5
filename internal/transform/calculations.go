package transform

import (
	"time"

	"github.com/shopspring/decimal"

	"pulseboard/internal/domain"
)

const (
	dateLayout = "2006-01-02"

	// minYoYObservations is a practical floor: with monthly cadence,
	// fewer observations cannot contain a 12-months-prior match.
	minYoYObservations = 13
	minQoQObservations = 5
)

// Round rounds half away from zero to the given number of decimal
// places, going through decimal arithmetic to avoid float drift on
// values like 2.675.
func Round(value float64, places int32) float64 {
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}

// YoYPercent computes year-over-year percent change for a date-descending
// observation sequence. For each observation it looks up the value at
// exactly the same month/day one year earlier; dates with no exact prior
// match are omitted, as are priors of zero. Resulting values carry unit "%".
func YoYPercent(observations []domain.Observation) []domain.Observation {
	if len(observations) < minYoYObservations {
		return nil
	}
	return relativeChange(observations, func(cur time.Time) (time.Time, bool) {
		prior := time.Date(cur.Year()-1, cur.Month(), cur.Day(), 0, 0, 0, 0, time.UTC)
		// Feb 29 has no prior-year counterpart; Date would normalize it away.
		if prior.Month() != cur.Month() || prior.Day() != cur.Day() {
			return time.Time{}, false
		}
		return prior, true
	})
}

// QoQPercent computes quarter-over-quarter percent change with a
// three-calendar-month lookback, wrapping the year when the month
// arithmetic crosses January.
func QoQPercent(observations []domain.Observation) []domain.Observation {
	if len(observations) < minQoQObservations {
		return nil
	}
	return relativeChange(observations, func(cur time.Time) (time.Time, bool) {
		month := int(cur.Month()) - 3
		year := cur.Year()
		if month < 1 {
			month += 12
			year--
		}
		prior := time.Date(year, time.Month(month), cur.Day(), 0, 0, 0, 0, time.UTC)
		if int(prior.Month()) != month || prior.Day() != cur.Day() {
			return time.Time{}, false
		}
		return prior, true
	})
}

func relativeChange(observations []domain.Observation, lookback func(time.Time) (time.Time, bool)) []domain.Observation {
	values := make(map[string]float64, len(observations))
	for _, obs := range observations {
		values[obs.Date] = obs.Value
	}

	var out []domain.Observation
	for _, obs := range observations {
		current, err := time.Parse(dateLayout, obs.Date)
		if err != nil {
			continue
		}
		prior, ok := lookback(current)
		if !ok {
			continue
		}
		priorValue, ok := values[prior.Format(dateLayout)]
		if !ok || priorValue == 0 {
			continue
		}

		out = append(out, domain.Observation{
			MetricID:    obs.MetricID,
			Date:        obs.Date,
			Value:       Round((obs.Value-priorValue)/priorValue*100, 2),
			Unit:        "%",
			Source:      obs.Source,
			RetrievedAt: obs.RetrievedAt,
		})
	}
	return out
}

// Change returns the absolute and percent difference between two
// scalars. Percent is nil when previous is nil or zero; absolute is nil
// only when previous itself is nil.
func Change(current float64, previous *float64) (absolute, percent *float64) {
	if previous == nil {
		return nil, nil
	}

	diff := current - *previous
	abs := Round(diff, 4)
	if *previous == 0 {
		return &abs, nil
	}

	pct := Round(diff / *previous * 100, 2)
	return &abs, &pct
}
