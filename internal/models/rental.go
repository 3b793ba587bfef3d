package models

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the calendar date format used by the source CSVs and the filter query.
const DateLayout = "2006-01-02"

// Season is the fixed season code carried by every record.
type Season int

const (
	Spring Season = 1
	Summer Season = 2
	Fall   Season = 3
	Winter Season = 4
)

// Seasons lists every valid season code in display order.
var Seasons = []Season{Spring, Summer, Fall, Winter}

var seasonLabels = map[Season]string{
	Spring: "Spring",
	Summer: "Summer",
	Fall:   "Fall",
	Winter: "Winter",
}

// Valid reports whether s is one of the four season codes.
func (s Season) Valid() bool {
	return s >= Spring && s <= Winter
}

// Label returns the display label. Labels are presentation only; filtering uses the code.
func (s Season) Label() string {
	if l, ok := seasonLabels[s]; ok {
		return l
	}
	return "Season " + strconv.Itoa(int(s))
}

func (s Season) String() string {
	return s.Label()
}

// ParseSeason parses a season code ("1".."4").
func ParseSeason(v string) (Season, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("season %q is not a number", v)
	}
	s := Season(n)
	if !s.Valid() {
		return 0, fmt.Errorf("season %d out of range 1-4", n)
	}
	return s, nil
}

// Row is the view of a rental record the pipeline filters and aggregates over.
type Row interface {
	Day() time.Time
	SeasonCode() Season
	Temp() float64
	Rentals() int
}

// Record is one row of the daily dataset. Date is a calendar date at UTC midnight.
type Record struct {
	Date        time.Time `json:"date"`
	Season      Season    `json:"season"`
	Temperature float64   `json:"temperature"`
	Count       int       `json:"count"`
}

func (r Record) Day() time.Time     { return r.Date }
func (r Record) SeasonCode() Season { return r.Season }
func (r Record) Temp() float64      { return r.Temperature }
func (r Record) Rentals() int       { return r.Count }

// HourlyRecord is one row of the hourly dataset.
type HourlyRecord struct {
	Record
	Hour int `json:"hour"`
}

// DateRange is an inclusive calendar date range.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether d falls within the range, compared by calendar date.
func (r DateRange) Contains(d time.Time) bool {
	day := TruncateDay(d)
	return !day.Before(TruncateDay(r.Start)) && !day.After(TruncateDay(r.End))
}

// FilterSpec is the user's filter selection. An empty Seasons set and a nil
// DateRange each mean "no restriction".
type FilterSpec struct {
	Seasons   map[Season]struct{}
	DateRange *DateRange
}

// NewFilterSpec builds a FilterSpec from a season list and an optional range.
func NewFilterSpec(seasons []Season, dateRange *DateRange) FilterSpec {
	spec := FilterSpec{DateRange: dateRange}
	if len(seasons) > 0 {
		spec.Seasons = make(map[Season]struct{}, len(seasons))
		for _, s := range seasons {
			spec.Seasons[s] = struct{}{}
		}
	}
	return spec
}

// IsEmpty reports whether the spec restricts nothing.
func (f FilterSpec) IsEmpty() bool {
	return len(f.Seasons) == 0 && f.DateRange == nil
}

// SeasonList returns the selected seasons in ascending code order.
func (f FilterSpec) SeasonList() []Season {
	out := make([]Season, 0, len(f.Seasons))
	for _, s := range Seasons {
		if _, ok := f.Seasons[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Key returns a canonical string for the spec, stable across season ordering.
// Used to build cache keys.
func (f FilterSpec) Key() string {
	key := "s="
	for i, s := range f.SeasonList() {
		if i > 0 {
			key += ","
		}
		key += strconv.Itoa(int(s))
	}
	if f.DateRange != nil {
		key += ";d=" + f.DateRange.Start.Format(DateLayout) + ".." + f.DateRange.End.Format(DateLayout)
	}
	return key
}

// SeasonTotal is the summed rental count for one season.
type SeasonTotal struct {
	Season Season `json:"season"`
	Label  string `json:"label"`
	Total  int    `json:"total"`
}

// TemperatureSample pairs a record's temperature with its rental count.
type TemperatureSample struct {
	Temperature float64 `json:"temperature"`
	Count       int     `json:"count"`
}

// Dataset holds both rental datasets. It is loaded once and shared read-only.
type Dataset struct {
	Daily   []Record
	Hourly  []HourlyRecord
	MinDate time.Time
	MaxDate time.Time
}

// TruncateDay returns t at midnight UTC of its calendar date.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
