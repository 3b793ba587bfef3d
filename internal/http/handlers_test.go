package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/bike-rental-dashboard/internal/cache"
	"github.com/kjstillabower/bike-rental-dashboard/internal/dashboard"
	"github.com/kjstillabower/bike-rental-dashboard/internal/dataset"
	"github.com/kjstillabower/bike-rental-dashboard/internal/lifecycle"
	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
	"github.com/kjstillabower/bike-rental-dashboard/internal/render"
	"github.com/kjstillabower/bike-rental-dashboard/internal/traffic"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testDataset has spring and summer days; winter appears only in the daily data.
func testDataset() *models.Dataset {
	daily := []models.Record{
		{Date: date(2011, 1, 1), Season: models.Spring, Temperature: 0.34, Count: 985},
		{Date: date(2011, 1, 2), Season: models.Spring, Temperature: 0.36, Count: 801},
		{Date: date(2011, 6, 1), Season: models.Summer, Temperature: 0.62, Count: 4500},
		{Date: date(2011, 12, 1), Season: models.Winter, Temperature: 0.31, Count: 4200},
	}
	hourly := []models.HourlyRecord{
		{Record: models.Record{Date: date(2011, 1, 1), Season: models.Spring, Temperature: 0.24, Count: 16}, Hour: 0},
		{Record: models.Record{Date: date(2011, 1, 1), Season: models.Spring, Temperature: 0.22, Count: 40}, Hour: 1},
		{Record: models.Record{Date: date(2011, 6, 1), Season: models.Summer, Temperature: 0.66, Count: 300}, Hour: 17},
	}
	return dataset.New(daily, hourly)
}

type testServer struct {
	handler *Handler
	router  http.Handler
	cache   *cache.InMemoryCache
}

func newTestServer(t *testing.T, health *HealthConfig) *testServer {
	t.Helper()
	lifecycle.SetReady(true)
	lifecycle.SetShuttingDown(false)
	t.Cleanup(func() {
		lifecycle.SetReady(false)
		lifecycle.SetShuttingDown(false)
	})

	svc := dashboard.NewService(testDataset())
	c := cache.NewInMemoryCache(0)
	charts := dashboard.NewCharts(svc, c, time.Minute, render.Size{Width: 320, Height: 240})
	h := NewHandler(svc, charts, traffic.NewTracker(0), health, zap.NewNop())
	return &testServer{
		handler: h,
		router:  NewRouter(h, zap.NewNop(), RouterConfig{RequestTimeout: 5 * time.Second}),
		cache:   c,
	}
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestHandler_GetSummary_NoFilter(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/api/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var view dashboard.View
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, 4, view.DailyRecords)
	assert.Equal(t, 3, view.HourlyRecords)
	assert.Equal(t, 985+801+4500+4200, view.TotalRentals)
	assert.False(t, view.SeasonsNoData)
	assert.False(t, view.SamplesNoData)
}

func TestHandler_GetSummary_EmptySelectionIsNotAnError(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/api/summary?start=2013-01-01&end=2013-12-31")
	require.Equal(t, http.StatusOK, w.Code)

	var view dashboard.View
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.True(t, view.SeasonsNoData)
	assert.True(t, view.SamplesNoData)
	assert.Equal(t, 0, view.TotalRentals)
}

func TestHandler_GetSeasons_Filtered(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/api/seasons?season=1&start=2011-01-01&end=2011-01-01")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Seasons []models.SeasonTotal `json:"seasons"`
		Total   int                  `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, []models.SeasonTotal{{Season: models.Spring, Label: "Spring", Total: 985}}, body.Seasons)
	assert.Equal(t, 985, body.Total)
}

func TestHandler_GetSeasons_NoData(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/seasons?season=3", nil)
	req.Header.Set("X-Correlation-ID", "req-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "NO_DATA", body.Error.Code)
	assert.Equal(t, render.NoDataNotice, body.Error.Message)
	assert.Equal(t, "req-123", body.Error.RequestID)
}

func TestHandler_GetTemperature(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/api/temperature?season=1,2")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count   int                        `json:"count"`
		Samples []models.TemperatureSample `json:"samples"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 3, body.Count)
	assert.Len(t, body.Samples, 3)
}

func TestHandler_GetTemperature_WinterHasNoHourlyData(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/api/temperature?season=4")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_DATA", decodeError(t, w).Error.Code)
}

func TestHandler_InvalidFilter(t *testing.T) {
	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"season out of range", "/api/seasons?season=9", "INVALID_SEASON"},
		{"bad date", "/api/summary?start=2011-01-01&end=2011-99-01", "INVALID_DATE"},
		{"half range", "/api/temperature?start=2011-01-01", "INVALID_DATE_RANGE"},
		{"inverted range", "/charts/seasons.png?start=2012-01-01&end=2011-01-01", "INVALID_DATE_RANGE"},
		{"export", "/export.xlsx?season=x", "INVALID_SEASON"},
	}
	s := newTestServer(t, nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := s.get(t, tc.target)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Error.Code)
		})
	}
}

func TestHandler_Chart_PNGAndCache(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.get(t, "/charts/seasons.png?season=2&season=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 1, s.cache.Len())

	// same selection in a different order hits the same cache entry
	w = s.get(t, "/charts/seasons.png?season=1,2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.cache.Len())

	w = s.get(t, "/charts/temperature.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, s.cache.Len())
}

func TestHandler_Chart_NoData(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/charts/temperature.png?season=4")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_DATA", decodeError(t, w).Error.Code)
	assert.Equal(t, 0, s.cache.Len())
}

func TestHandler_GetDashboard(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/?season=4")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	html := w.Body.String()
	assert.Contains(t, html, "Bike Rental Analysis Dashboard")
	assert.Contains(t, html, `/charts/seasons.png?season=4`)
	assert.NotContains(t, html, "/charts/temperature.png")
	assert.Equal(t, 1, strings.Count(html, render.NoDataNotice))
	assert.Contains(t, html, `value="2011-01-01"`)
	assert.Contains(t, html, `max="2011-12-01"`)
}

func TestHandler_GetDashboard_InvalidFilter(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/?start=2011-05-01")
	require.Equal(t, http.StatusBadRequest, w.Code)
	html := w.Body.String()
	assert.Contains(t, html, `class="error"`)
	assert.NotContains(t, html, "/charts/")
}

func TestHandler_GetExport(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/export.xlsx?season=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bike-rentals.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	daily, err := f.GetRows("Daily")
	require.NoError(t, err)
	assert.Len(t, daily, 3) // header + two spring days
	hourly, err := f.GetRows("Hourly")
	require.NoError(t, err)
	assert.Len(t, hourly, 3)
}

func TestHandler_GetExport_EmptySelection(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/export.xlsx?start=2015-01-01&end=2015-01-02")
	require.Equal(t, http.StatusOK, w.Code)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Seasons")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestHandler_GetMeta(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/api/meta")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		MinDate       string `json:"minDate"`
		MaxDate       string `json:"maxDate"`
		DailyRecords  int    `json:"dailyRecords"`
		HourlyRecords int    `json:"hourlyRecords"`
		Seasons       []struct {
			Code  int    `json:"code"`
			Label string `json:"label"`
		} `json:"seasons"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "2011-01-01", body.MinDate)
	assert.Equal(t, "2011-12-01", body.MaxDate)
	assert.Equal(t, 4, body.DailyRecords)
	assert.Equal(t, 3, body.HourlyRecords)
	require.Len(t, body.Seasons, 4)
	assert.Equal(t, "Winter", body.Seasons[3].Label)
}

func TestHandler_CancelledRequest(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/seasons", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.handler.GetSeasons(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "TIMEOUT", decodeError(t, w).Error.Code)
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func getHealth(t *testing.T, s *testServer) (int, healthBody) {
	t.Helper()
	w := s.get(t, "/health")
	var body healthBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestHandler_GetHealth_Healthy(t *testing.T) {
	s := newTestServer(t, &HealthConfig{Window: time.Minute, RateLimitRPS: 10, OverloadThresholdPct: 80, DegradedErrorPct: 5})
	code, body := getHealth(t, s)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "loaded", body.Checks["datasets"])
}

func TestHandler_GetHealth_Starting(t *testing.T) {
	s := newTestServer(t, nil)
	lifecycle.SetReady(false)
	code, body := getHealth(t, s)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "starting", body.Status)
	assert.Equal(t, "loading", body.Checks["datasets"])
}

func TestHandler_GetHealth_ShuttingDown(t *testing.T) {
	s := newTestServer(t, nil)
	lifecycle.SetShuttingDown(true)
	code, body := getHealth(t, s)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting-down", body.Status)
}

func TestHandler_GetHealth_Overloaded(t *testing.T) {
	s := newTestServer(t, &HealthConfig{Window: time.Second, RateLimitRPS: 2, OverloadThresholdPct: 100})
	for i := 0; i < 3; i++ {
		s.handler.Tracker().RecordDenied()
	}
	code, body := getHealth(t, s)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "overloaded", body.Status)
}

func TestHandler_GetHealth_Degraded(t *testing.T) {
	s := newTestServer(t, &HealthConfig{Window: time.Minute, DegradedErrorPct: 50})
	s.handler.Tracker().RecordSuccess()
	s.handler.Tracker().RecordError()
	code, body := getHealth(t, s)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body.Status)
}

func TestHandler_GetHealth_CacheDownStaysHealthy(t *testing.T) {
	s := newTestServer(t, &HealthConfig{
		CachePing: func(ctx context.Context) error { return errors.New("dial tcp: connection refused") },
	})
	code, body := getHealth(t, s)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "unhealthy", body.Checks["cache"])
}

func TestHandler_GetHealth_LogsTransition(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	lifecycle.SetReady(true)
	t.Cleanup(func() {
		lifecycle.SetReady(false)
		lifecycle.SetShuttingDown(false)
	})
	h := NewHandler(dashboard.NewService(testDataset()), nil, nil, nil, zap.New(core))

	h.GetHealth(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	lifecycle.SetShuttingDown(true)
	h.GetHealth(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.FilterMessage("health status transition").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "healthy", entries[0].ContextMap()["previous_status"])
	assert.Equal(t, "shutting-down", entries[0].ContextMap()["current_status"])
}
