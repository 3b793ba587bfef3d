package models

import (
	"testing"
	"time"
)

func TestSeason_Label(t *testing.T) {
	tests := []struct {
		season Season
		want   string
	}{
		{Spring, "Spring"},
		{Summer, "Summer"},
		{Fall, "Fall"},
		{Winter, "Winter"},
		{Season(7), "Season 7"},
	}
	for _, tt := range tests {
		if got := tt.season.Label(); got != tt.want {
			t.Errorf("Season(%d).Label() = %q, want %q", int(tt.season), got, tt.want)
		}
	}
}

func TestParseSeason(t *testing.T) {
	tests := []struct {
		in      string
		want    Season
		wantErr bool
	}{
		{"1", Spring, false},
		{"4", Winter, false},
		{"0", 0, true},
		{"5", 0, true},
		{"spring", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSeason(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSeason(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeason(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFilterSpec_KeyIsOrderIndependent(t *testing.T) {
	a := NewFilterSpec([]Season{Winter, Spring}, nil)
	b := NewFilterSpec([]Season{Spring, Winter, Spring}, nil)
	if a.Key() != b.Key() {
		t.Errorf("Key() differs for same season set: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() != "s=1,4" {
		t.Errorf("Key() = %q, want %q", a.Key(), "s=1,4")
	}

	r := &DateRange{
		Start: time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2011, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	c := NewFilterSpec(nil, r)
	if c.Key() != "s=;d=2011-01-01..2011-02-01" {
		t.Errorf("Key() = %q", c.Key())
	}
}

func TestFilterSpec_IsEmpty(t *testing.T) {
	if !(FilterSpec{}).IsEmpty() {
		t.Error("zero FilterSpec should be empty")
	}
	if !NewFilterSpec([]Season{}, nil).IsEmpty() {
		t.Error("FilterSpec with empty season list should be empty")
	}
	if NewFilterSpec([]Season{Fall}, nil).IsEmpty() {
		t.Error("FilterSpec with a season should not be empty")
	}
}

func TestDateRange_Contains(t *testing.T) {
	r := DateRange{
		Start: time.Date(2011, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2011, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		d    time.Time
		want bool
	}{
		{time.Date(2011, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2011, 3, 31, 23, 0, 0, 0, time.UTC), true},
		{time.Date(2011, 2, 28, 23, 59, 0, 0, time.UTC), false},
		{time.Date(2011, 4, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.d); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}
