// Package pipeline turns loaded rental records into the dashboard's views.
// Every function is pure and operates on either dataset through models.Row.
package pipeline

import (
	"errors"

	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
)

// ErrNoData signals that a filter left nothing to display.
var ErrNoData = errors.New("no data for selected filters")

// ApplyFilter returns the records matching spec, preserving their relative order.
// An empty spec returns records unchanged.
func ApplyFilter[R models.Row](records []R, spec models.FilterSpec) []R {
	if spec.IsEmpty() {
		return records
	}
	out := make([]R, 0, len(records))
	for _, r := range records {
		if matches(r, spec) {
			out = append(out, r)
		}
	}
	return out
}

func matches[R models.Row](r R, spec models.FilterSpec) bool {
	if len(spec.Seasons) > 0 {
		if _, ok := spec.Seasons[r.SeasonCode()]; !ok {
			return false
		}
	}
	if spec.DateRange != nil && !spec.DateRange.Contains(r.Day()) {
		return false
	}
	return true
}

// AggregateBySeason sums rentals per season in ascending code order.
// Seasons with no records are omitted rather than zero-filled.
func AggregateBySeason[R models.Row](records []R) []models.SeasonTotal {
	sums := make(map[models.Season]int, len(models.Seasons))
	for _, r := range records {
		sums[r.SeasonCode()] += r.Rentals()
	}
	out := make([]models.SeasonTotal, 0, len(sums))
	for _, s := range models.Seasons {
		total, ok := sums[s]
		if !ok {
			continue
		}
		out = append(out, models.SeasonTotal{Season: s, Label: s.Label(), Total: total})
	}
	return out
}

// ProjectTemperatureCount returns one (temperature, count) sample per record, in input order.
func ProjectTemperatureCount[R models.Row](records []R) []models.TemperatureSample {
	out := make([]models.TemperatureSample, len(records))
	for i, r := range records {
		out[i] = models.TemperatureSample{Temperature: r.Temp(), Count: r.Rentals()}
	}
	return out
}

// Total sums rentals across records.
func Total[R models.Row](records []R) int {
	n := 0
	for _, r := range records {
		n += r.Rentals()
	}
	return n
}
