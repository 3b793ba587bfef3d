// Package render draws dashboard views as PNG charts and the HTML page.
package render

import (
	"bytes"
	"errors"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
)

// ErrEmpty is returned when asked to draw a chart with nothing in it.
var ErrEmpty = errors.New("nothing to render")

// Size is a chart size in pixels.
type Size struct {
	Width  int
	Height int
}

// DefaultSize matches an 8x6 figure at 100 DPI.
var DefaultSize = Size{Width: 800, Height: 600}

func (s Size) orDefault() Size {
	if s.Width <= 0 || s.Height <= 0 {
		return DefaultSize
	}
	return s
}

// Bar colors are fixed per season so a filtered chart keeps each season's color.
var seasonColors = map[models.Season]drawing.Color{
	models.Spring: drawing.ColorFromHex("00ff7f"), // springgreen
	models.Summer: drawing.ColorFromHex("87ceeb"), // skyblue
	models.Fall:   drawing.ColorFromHex("ffd700"), // gold
	models.Winter: drawing.ColorFromHex("ff6347"), // tomato
}

// scatterColor is blue at 0.6 alpha.
var scatterColor = drawing.Color{R: 0, G: 0, B: 255, A: 153}

const (
	SeasonChartTitle      = "Bike Rentals by Season"
	TemperatureChartTitle = "Temperature vs Bike Rentals"
)

// SeasonBarChart draws one bar per season total.
func SeasonBarChart(totals []models.SeasonTotal, size Size) ([]byte, error) {
	if len(totals) == 0 {
		return nil, ErrEmpty
	}
	size = size.orDefault()

	bars := make([]chart.Value, 0, len(totals))
	peak := 0
	for _, t := range totals {
		col, ok := seasonColors[t.Season]
		if !ok {
			col = chart.ColorAlternateGray
		}
		bars = append(bars, chart.Value{
			Label: t.Label,
			Value: float64(t.Total),
			Style: chart.Style{FillColor: col, StrokeColor: col},
		})
		if t.Total > peak {
			peak = t.Total
		}
	}
	if peak == 0 {
		peak = 1
	}

	graph := chart.BarChart{
		Title:      SeasonChartTitle,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      size.Width,
		Height:     size.Height,
		BarWidth:   barWidth(size.Width, len(bars)),
		XAxis:      chart.Style{},
		YAxis: chart.YAxis{
			Name:           "Rentals",
			Range:          &chart.ContinuousRange{Min: 0, Max: float64(peak) * 1.1},
			ValueFormatter: intFormatter,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render season chart: %w", err)
	}
	return buf.Bytes(), nil
}

// TemperatureScatter draws one point per sample.
func TemperatureScatter(samples []models.TemperatureSample, size Size) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	size = size.orDefault()

	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.Temperature
		ys[i] = float64(s.Count)
	}
	xMin, xMax := bounds(xs)
	_, yMax := bounds(ys)

	graph := chart.Chart{
		Title:      TemperatureChartTitle,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      size.Width,
		Height:     size.Height,
		XAxis: chart.XAxis{
			Name:  "Temperature",
			Range: paddedRange(xMin, xMax),
		},
		YAxis: chart.YAxis{
			Name:           "Rentals",
			Range:          paddedRange(0, yMax),
			ValueFormatter: intFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Rentals",
				Style:   pointStyle(scatterColor),
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render temperature chart: %w", err)
	}
	return buf.Bytes(), nil
}

// pointStyle renders points only, without connecting lines.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

func bounds(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// paddedRange widens [lo, hi] by 5% on each side. A zero-width range
// (a single point) gets a fixed margin so the renderer has a valid axis.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 0.5
		if hi != 0 {
			pad = abs(hi) * 0.1
		}
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func barWidth(width, n int) int {
	w := width / (2*n + 1)
	if w > 120 {
		w = 120
	}
	if w < 10 {
		w = 10
	}
	return w
}

func intFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}
