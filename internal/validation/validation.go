// Package validation turns dashboard filter query parameters into a FilterSpec.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
)

// ErrInvalidSeason is returned when a season value is not a known season code.
var ErrInvalidSeason = errors.New("invalid season")

// ErrInvalidDate is returned when start or end is not a YYYY-MM-DD date.
var ErrInvalidDate = errors.New("invalid date")

// ErrInvalidDateRange is returned when only one bound is given or start is after end.
var ErrInvalidDateRange = errors.New("invalid date range")

var validate = validator.New()

type filterQuery struct {
	Seasons []string `validate:"dive,oneof=1 2 3 4"`
	Start   string   `validate:"omitempty,datetime=2006-01-02"`
	End     string   `validate:"omitempty,datetime=2006-01-02"`
}

type dateBounds struct {
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required,gtefield=Start"`
}

// ParseFilter reads season, start and end from q. Seasons may be repeated
// (season=1&season=3) or comma-separated (season=1,3). Dates must be given
// together or not at all. An empty query yields the empty FilterSpec.
func ParseFilter(q url.Values) (models.FilterSpec, error) {
	fq := filterQuery{
		Seasons: splitSeasons(q["season"]),
		Start:   strings.TrimSpace(q.Get("start")),
		End:     strings.TrimSpace(q.Get("end")),
	}
	if err := validate.Struct(fq); err != nil {
		return models.FilterSpec{}, classify(err, fq)
	}

	seasons := make([]models.Season, 0, len(fq.Seasons))
	for _, v := range fq.Seasons {
		s, err := models.ParseSeason(v)
		if err != nil {
			return models.FilterSpec{}, fmt.Errorf("%w: %q", ErrInvalidSeason, v)
		}
		seasons = append(seasons, s)
	}

	if (fq.Start == "") != (fq.End == "") {
		return models.FilterSpec{}, fmt.Errorf("%w: start and end must be given together", ErrInvalidDateRange)
	}
	if fq.Start == "" {
		return models.NewFilterSpec(seasons, nil), nil
	}

	// both already passed the datetime check
	start, _ := time.Parse(models.DateLayout, fq.Start)
	end, _ := time.Parse(models.DateLayout, fq.End)
	if err := validate.Struct(dateBounds{Start: start, End: end}); err != nil {
		return models.FilterSpec{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange, fq.Start, fq.End)
	}
	return models.NewFilterSpec(seasons, &models.DateRange{Start: start, End: end}), nil
}

// EncodeFilter is the inverse of ParseFilter.
func EncodeFilter(spec models.FilterSpec) url.Values {
	q := url.Values{}
	for _, s := range spec.SeasonList() {
		q.Add("season", strconv.Itoa(int(s)))
	}
	if spec.DateRange != nil {
		q.Set("start", spec.DateRange.Start.Format(models.DateLayout))
		q.Set("end", spec.DateRange.End.Format(models.DateLayout))
	}
	return q
}

func splitSeasons(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func classify(err error, fq filterQuery) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch {
	case strings.HasPrefix(fe.StructField(), "Seasons"):
		return fmt.Errorf("%w: %q", ErrInvalidSeason, fe.Value())
	case fe.StructField() == "Start":
		return fmt.Errorf("%w: start %q", ErrInvalidDate, fq.Start)
	default:
		return fmt.Errorf("%w: end %q", ErrInvalidDate, fq.End)
	}
}
