// Package dashboard composes the filter pipeline over the loaded datasets into
// the views shown on the dashboard: season totals from the daily data and
// temperature samples from the hourly data.
package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
	"github.com/kjstillabower/bike-rental-dashboard/internal/observability"
	"github.com/kjstillabower/bike-rental-dashboard/internal/pipeline"
)

// View names, used as metric labels and chart cache key prefixes.
const (
	ViewSeasons     = "seasons"
	ViewTemperature = "temperature"
)

// Service answers dashboard queries against an immutable Dataset.
// It keeps no state between calls; every query recomputes from the records.
type Service struct {
	data *models.Dataset
}

// NewService returns a Service over ds. ds must not be modified afterwards.
func NewService(ds *models.Dataset) *Service {
	return &Service{data: ds}
}

// View is the full dashboard for one filter selection.
type View struct {
	Seasons       []models.SeasonTotal `json:"seasons"`
	SeasonsNoData bool                 `json:"seasonsNoData"`
	SampleCount   int                  `json:"sampleCount"`
	SamplesNoData bool                 `json:"samplesNoData"`
	DailyRecords  int                  `json:"dailyRecords"`
	HourlyRecords int                  `json:"hourlyRecords"`
	TotalRentals  int                  `json:"totalRentals"`
}

// Bounds returns the first and last date of the daily dataset.
func (s *Service) Bounds() (time.Time, time.Time) {
	return s.data.MinDate, s.data.MaxDate
}

// Size returns the number of daily and hourly records loaded.
func (s *Service) Size() (daily, hourly int) {
	return len(s.data.Daily), len(s.data.Hourly)
}

// Build computes both views for spec.
func (s *Service) Build(ctx context.Context, spec models.FilterSpec) (View, error) {
	if err := ctx.Err(); err != nil {
		return View{}, err
	}
	daily := s.FilteredDaily(spec)
	hourly := s.FilteredHourly(spec)

	v := View{
		Seasons:       pipeline.AggregateBySeason(daily),
		SeasonsNoData: len(daily) == 0,
		SampleCount:   len(hourly),
		SamplesNoData: len(hourly) == 0,
		DailyRecords:  len(daily),
		HourlyRecords: len(hourly),
		TotalRentals:  pipeline.Total(daily),
	}
	observability.RecordView(ViewSeasons, v.SeasonsNoData)
	observability.RecordView(ViewTemperature, v.SamplesNoData)
	return v, nil
}

// SeasonTotals returns rentals summed by season over the filtered daily data.
// Returns pipeline.ErrNoData when the filter matches no daily records.
func (s *Service) SeasonTotals(ctx context.Context, spec models.FilterSpec) ([]models.SeasonTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	filtered := pipeline.ApplyFilter(s.data.Daily, spec)
	totals := pipeline.AggregateBySeason(filtered)
	s.observe(ctx, ViewSeasons, spec, len(filtered), start)
	if len(filtered) == 0 {
		return nil, pipeline.ErrNoData
	}
	return totals, nil
}

// TemperatureSamples returns one (temperature, count) sample per filtered hourly record.
// Returns pipeline.ErrNoData when the filter matches no hourly records.
func (s *Service) TemperatureSamples(ctx context.Context, spec models.FilterSpec) ([]models.TemperatureSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	filtered := pipeline.ApplyFilter(s.data.Hourly, spec)
	samples := pipeline.ProjectTemperatureCount(filtered)
	s.observe(ctx, ViewTemperature, spec, len(filtered), start)
	if len(filtered) == 0 {
		return nil, pipeline.ErrNoData
	}
	return samples, nil
}

// FilteredDaily returns the daily records matching spec.
func (s *Service) FilteredDaily(spec models.FilterSpec) []models.Record {
	return pipeline.ApplyFilter(s.data.Daily, spec)
}

// FilteredHourly returns the hourly records matching spec.
func (s *Service) FilteredHourly(spec models.FilterSpec) []models.HourlyRecord {
	return pipeline.ApplyFilter(s.data.Hourly, spec)
}

func (s *Service) observe(ctx context.Context, view string, spec models.FilterSpec, n int, start time.Time) {
	elapsed := time.Since(start)
	observability.PipelineDuration.WithLabelValues(view).Observe(elapsed.Seconds())
	observability.RecordView(view, n == 0)
	observability.LoggerFromContext(ctx).Debug("view computed",
		zap.String("view", view),
		zap.String("filter", spec.Key()),
		zap.Int("records", n),
		zap.Duration("duration", elapsed))
}
