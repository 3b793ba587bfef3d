// Package dataset loads the daily and hourly bike rental CSVs into typed records.
// Malformed input is rejected here so the pipeline only ever sees valid records.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
)

// Source column names.
const (
	ColDate   = "dteday"
	ColSeason = "season"
	ColTemp   = "temp"
	ColCount  = "cnt"
	ColHour   = "hr"
)

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing required column")

// ErrInvalidValue is returned when a cell violates the record invariants.
var ErrInvalidValue = errors.New("invalid value")

// Load reads both datasets and computes the daily date bounds.
func Load(dayPath, hourPath string) (*models.Dataset, error) {
	daily, err := LoadDaily(dayPath)
	if err != nil {
		return nil, err
	}
	hourly, err := LoadHourly(hourPath)
	if err != nil {
		return nil, err
	}
	return New(daily, hourly), nil
}

// New builds a Dataset from already-loaded records.
func New(daily []models.Record, hourly []models.HourlyRecord) *models.Dataset {
	ds := &models.Dataset{Daily: daily, Hourly: hourly}
	for i, r := range daily {
		if i == 0 || r.Date.Before(ds.MinDate) {
			ds.MinDate = r.Date
		}
		if i == 0 || r.Date.After(ds.MaxDate) {
			ds.MaxDate = r.Date
		}
	}
	return ds
}

// LoadDaily reads the daily dataset from path.
func LoadDaily(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open daily dataset: %w", err)
	}
	defer f.Close()
	return ReadDaily(f, path)
}

// LoadHourly reads the hourly dataset from path.
func LoadHourly(path string) ([]models.HourlyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hourly dataset: %w", err)
	}
	defer f.Close()
	return ReadHourly(f, path)
}

// ReadDaily parses daily records from r. name identifies the source in errors.
func ReadDaily(r io.Reader, name string) ([]models.Record, error) {
	df, err := readFrame(r, name, false)
	if err != nil {
		return nil, err
	}
	return parseRecords(df, name)
}

// ReadHourly parses hourly records from r. name identifies the source in errors.
func ReadHourly(r io.Reader, name string) ([]models.HourlyRecord, error) {
	df, err := readFrame(r, name, true)
	if err != nil {
		return nil, err
	}
	base, err := parseRecords(df, name)
	if err != nil {
		return nil, err
	}
	hours := df.Col(ColHour)
	out := make([]models.HourlyRecord, len(base))
	for i := range base {
		h, err := intCell(hours, i)
		if err != nil || h < 0 || h > 23 {
			return nil, cellError(name, i, ColHour, hours.Elem(i).String())
		}
		out[i] = models.HourlyRecord{Record: base[i], Hour: h}
	}
	return out, nil
}

func readFrame(r io.Reader, name string, hourly bool) (dataframe.DataFrame, error) {
	types := map[string]series.Type{
		ColDate:   series.String,
		ColSeason: series.Int,
		ColTemp:   series.Float,
		ColCount:  series.Int,
	}
	required := []string{ColDate, ColSeason, ColTemp, ColCount}
	if hourly {
		types[ColHour] = series.Int
		required = append(required, ColHour)
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
	)
	if df.Err != nil {
		return df, fmt.Errorf("read %s: %w", name, df.Err)
	}

	present := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		present[n] = true
	}
	for _, col := range required {
		if !present[col] {
			return df, fmt.Errorf("%s: %w %q", name, ErrMissingColumn, col)
		}
	}
	return df, nil
}

func parseRecords(df dataframe.DataFrame, name string) ([]models.Record, error) {
	dates := df.Col(ColDate)
	seasons := df.Col(ColSeason)
	temps := df.Col(ColTemp)
	counts := df.Col(ColCount)

	n := df.Nrow()
	out := make([]models.Record, n)
	for i := 0; i < n; i++ {
		raw := dates.Elem(i).String()
		date, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return nil, cellError(name, i, ColDate, raw)
		}

		code, err := intCell(seasons, i)
		season := models.Season(code)
		if err != nil || !season.Valid() {
			return nil, cellError(name, i, ColSeason, seasons.Elem(i).String())
		}

		temp := temps.Elem(i)
		if temp.IsNA() || math.IsNaN(temp.Float()) || math.IsInf(temp.Float(), 0) {
			return nil, cellError(name, i, ColTemp, temp.String())
		}

		count, err := intCell(counts, i)
		if err != nil || count < 0 {
			return nil, cellError(name, i, ColCount, counts.Elem(i).String())
		}

		out[i] = models.Record{Date: date, Season: season, Temperature: temp.Float(), Count: count}
	}
	return out, nil
}

func intCell(s series.Series, i int) (int, error) {
	e := s.Elem(i)
	if e.IsNA() {
		return 0, ErrInvalidValue
	}
	return e.Int()
}

// cellError reports a bad cell by 1-based data row.
func cellError(name string, row int, col, value string) error {
	return fmt.Errorf("%s: row %d column %q: %w %q", name, row+1, col, ErrInvalidValue, value)
}
