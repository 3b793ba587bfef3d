package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
)

func decodePNG(t *testing.T, b []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy()
}

func TestSeasonBarChart(t *testing.T) {
	totals := []models.SeasonTotal{
		{Season: models.Spring, Label: "Spring", Total: 471348},
		{Season: models.Summer, Label: "Summer", Total: 918589},
		{Season: models.Fall, Label: "Fall", Total: 1061129},
		{Season: models.Winter, Label: "Winter", Total: 841613},
	}
	b, err := SeasonBarChart(totals, Size{Width: 640, Height: 480})
	require.NoError(t, err)
	w, h := decodePNG(t, b)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestSeasonBarChart_SingleSeasonDefaultSize(t *testing.T) {
	b, err := SeasonBarChart([]models.SeasonTotal{{Season: models.Fall, Label: "Fall", Total: 100}}, Size{})
	require.NoError(t, err)
	w, h := decodePNG(t, b)
	assert.Equal(t, DefaultSize.Width, w)
	assert.Equal(t, DefaultSize.Height, h)
}

func TestSeasonBarChart_Empty(t *testing.T) {
	_, err := SeasonBarChart(nil, DefaultSize)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestTemperatureScatter(t *testing.T) {
	samples := []models.TemperatureSample{
		{Temperature: 0.24, Count: 16},
		{Temperature: 0.22, Count: 40},
		{Temperature: 0.8, Count: 977},
		{Temperature: 0.46, Count: 310},
	}
	b, err := TemperatureScatter(samples, DefaultSize)
	require.NoError(t, err)
	w, _ := decodePNG(t, b)
	assert.Equal(t, DefaultSize.Width, w)
}

func TestTemperatureScatter_SinglePoint(t *testing.T) {
	b, err := TemperatureScatter([]models.TemperatureSample{{Temperature: 0.3, Count: 100}}, DefaultSize)
	require.NoError(t, err)
	decodePNG(t, b)
}

func TestTemperatureScatter_Empty(t *testing.T) {
	_, err := TemperatureScatter([]models.TemperatureSample{}, DefaultSize)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestPaddedRange(t *testing.T) {
	r := paddedRange(0, 100)
	assert.InDelta(t, -5, r.Min, 1e-9)
	assert.InDelta(t, 105, r.Max, 1e-9)

	single := paddedRange(0.3, 0.3)
	assert.Less(t, single.Min, 0.3)
	assert.Greater(t, single.Max, 0.3)

	zero := paddedRange(0, 0)
	assert.InDelta(t, -0.5, zero.Min, 1e-9)
	assert.InDelta(t, 0.5, zero.Max, 1e-9)
}

func TestPage_RendersChartsAndNotice(t *testing.T) {
	var buf bytes.Buffer
	err := Page(&buf, PageData{
		Seasons: []SeasonOption{
			{Code: 1, Label: "Spring", Checked: true},
			{Code: 2, Label: "Summer"},
		},
		Start:         "2011-01-01",
		End:           "2012-12-31",
		Query:         "season=1&start=2011-01-01&end=2012-12-31",
		SamplesNoData: true,
	})
	require.NoError(t, err)
	html := buf.String()

	assert.Contains(t, html, `value="1" checked`)
	assert.NotContains(t, html, `value="2" checked`)
	assert.Contains(t, html, `/charts/seasons.png?season=1&amp;start=2011-01-01&amp;end=2012-12-31`)
	assert.NotContains(t, html, "/charts/temperature.png")
	assert.Equal(t, 1, strings.Count(html, NoDataNotice))
}

func TestPage_ErrorHidesCharts(t *testing.T) {
	var buf bytes.Buffer
	err := Page(&buf, PageData{Error: "start 2012-01-01 is after end 2011-01-01"})
	require.NoError(t, err)
	html := buf.String()

	assert.Contains(t, html, `class="error"`)
	assert.Contains(t, html, "start 2012-01-01 is after end 2011-01-01")
	assert.NotContains(t, html, "/charts/")
	assert.NotContains(t, html, NoDataNotice)
}
