package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/bike-rental-dashboard/internal/dashboard"
	"github.com/kjstillabower/bike-rental-dashboard/internal/export"
	"github.com/kjstillabower/bike-rental-dashboard/internal/lifecycle"
	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
	"github.com/kjstillabower/bike-rental-dashboard/internal/observability"
	"github.com/kjstillabower/bike-rental-dashboard/internal/pipeline"
	"github.com/kjstillabower/bike-rental-dashboard/internal/render"
	"github.com/kjstillabower/bike-rental-dashboard/internal/traffic"
	"github.com/kjstillabower/bike-rental-dashboard/internal/validation"
)

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	// Window is the sliding window over which traffic outcomes are evaluated.
	Window               time.Duration
	RateLimitRPS         int
	OverloadThresholdPct int
	DegradedErrorPct     int
	// CachePing, when set, reports chart cache reachability. A failing cache
	// is reported but does not change the overall status.
	CachePing func(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	svc              *dashboard.Service
	charts           *dashboard.Charts
	tracker          *traffic.Tracker
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. tracker and healthConfig may be nil.
func NewHandler(
	svc *dashboard.Service,
	charts *dashboard.Charts,
	tracker *traffic.Tracker,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	if tracker == nil {
		tracker = traffic.NewTracker(0)
	}
	return &Handler{
		svc:          svc,
		charts:       charts,
		tracker:      tracker,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// Tracker returns the traffic tracker fed by TrafficMiddleware.
func (h *Handler) Tracker() *traffic.Tracker {
	return h.tracker
}

// GetDashboard handles GET /. Invalid filters render the page with an error
// banner and status 400.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	first, last := h.svc.Bounds()
	data := render.PageData{
		MinDate: first.Format(models.DateLayout),
		MaxDate: last.Format(models.DateLayout),
		Start:   first.Format(models.DateLayout),
		End:     last.Format(models.DateLayout),
	}

	spec, err := validation.ParseFilter(r.URL.Query())
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadRequest
		data.Error = err.Error()
		data.Seasons = seasonOptions(models.FilterSpec{})
	} else {
		view, err := h.svc.Build(r.Context(), spec)
		if err != nil {
			h.writeViewError(w, r, err)
			return
		}
		data.Seasons = seasonOptions(spec)
		if spec.DateRange != nil {
			data.Start = spec.DateRange.Start.Format(models.DateLayout)
			data.End = spec.DateRange.End.Format(models.DateLayout)
		}
		data.Query = template.URL(validation.EncodeFilter(spec).Encode())
		data.SeasonsNoData = view.SeasonsNoData
		data.SamplesNoData = view.SamplesNoData
		data.TotalRentals = view.TotalRentals
		data.DailyRecords = view.DailyRecords
		data.HourlyRecords = view.HourlyRecords
	}

	var buf bytes.Buffer
	if err := render.Page(&buf, data); err != nil {
		observability.LoggerFromContext(r.Context()).Error("render page", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render dashboard")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func seasonOptions(spec models.FilterSpec) []render.SeasonOption {
	opts := make([]render.SeasonOption, 0, len(models.Seasons))
	for _, s := range models.Seasons {
		_, checked := spec.Seasons[s]
		opts = append(opts, render.SeasonOption{Code: int(s), Label: s.Label(), Checked: checked})
	}
	return opts
}

// GetSummary handles GET /api/summary. Empty selections are reported through
// the no-data flags, not as an error.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Build(r.Context(), spec)
	if err != nil {
		h.writeViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetSeasons handles GET /api/seasons.
func (h *Handler) GetSeasons(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	totals, err := h.svc.SeasonTotals(r.Context(), spec)
	if err != nil {
		h.writeViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seasons": totals,
		"total":   sumTotals(totals),
	})
}

func sumTotals(totals []models.SeasonTotal) int {
	n := 0
	for _, t := range totals {
		n += t.Total
	}
	return n
}

// GetTemperature handles GET /api/temperature.
func (h *Handler) GetTemperature(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	samples, err := h.svc.TemperatureSamples(r.Context(), spec)
	if err != nil {
		h.writeViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(samples),
		"samples": samples,
	})
}

// ChartHandler returns the handler for GET /charts/{kind}.png.
func (h *Handler) ChartHandler(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, ok := h.parseFilter(w, r)
		if !ok {
			return
		}
		b, err := h.charts.Chart(r.Context(), kind, spec)
		if err != nil {
			h.writeViewError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=60")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

// GetExport handles GET /export.xlsx. An empty selection still produces a
// workbook with header rows only.
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	if err := r.Context().Err(); err != nil {
		h.writeViewError(w, r, err)
		return
	}
	daily := h.svc.FilteredDaily(spec)
	in := export.Input{
		Filter:  spec,
		Seasons: pipeline.AggregateBySeason(daily),
		Daily:   daily,
		Hourly:  h.svc.FilteredHourly(spec),
	}
	b, err := export.Workbook(in, time.Now())
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("export workbook", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "EXPORT_FAILED", "Unable to build workbook")
		return
	}
	observability.ExportsTotal.Inc()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bike-rentals.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// GetMeta handles GET /api/meta: dataset bounds, sizes and season labels.
func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	first, last := h.svc.Bounds()
	daily, hourly := h.svc.Size()
	seasons := make([]map[string]interface{}, 0, len(models.Seasons))
	for _, s := range models.Seasons {
		seasons = append(seasons, map[string]interface{}{"code": int(s), "label": s.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"minDate":       first.Format(models.DateLayout),
		"maxDate":       last.Format(models.DateLayout),
		"dailyRecords":  daily,
		"hourlyRecords": hourly,
		"seasons":       seasons,
	})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"datasets": "loaded"}
	if !lifecycle.IsReady() {
		checks["datasets"] = "loading"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing(r.Context()) == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "bike-rental-dashboard",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > starting > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if !lifecycle.IsReady() {
		return healthResult{"starting", http.StatusServiceUnavailable, "datasets_not_loaded"}
	}
	cfg := h.healthConfig
	if cfg == nil || cfg.Window <= 0 {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if cfg.RateLimitRPS > 0 && cfg.OverloadThresholdPct > 0 {
		threshold := float64(cfg.RateLimitRPS) * cfg.Window.Seconds() * float64(cfg.OverloadThresholdPct) / 100
		if float64(h.tracker.RequestCount(cfg.Window)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	if cfg.DegradedErrorPct > 0 {
		errs, total := h.tracker.ErrorRate(cfg.Window)
		if total > 0 && float64(errs)*100/float64(total) >= float64(cfg.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// parseFilter reads the filter query, writing a 400 and returning false when it is invalid.
func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (models.FilterSpec, bool) {
	spec, err := validation.ParseFilter(r.URL.Query())
	if err != nil {
		writeFilterError(w, r, err)
		return models.FilterSpec{}, false
	}
	return spec, true
}

func writeFilterError(w http.ResponseWriter, r *http.Request, err error) {
	code := "INVALID_FILTER"
	switch {
	case errors.Is(err, validation.ErrInvalidSeason):
		code = "INVALID_SEASON"
	case errors.Is(err, validation.ErrInvalidDate):
		code = "INVALID_DATE"
	case errors.Is(err, validation.ErrInvalidDateRange):
		code = "INVALID_DATE_RANGE"
	}
	writeError(w, r, http.StatusBadRequest, code, err.Error())
}

// writeViewError maps dashboard errors: no data is 404, a request deadline is
// 503 and anything else is a render failure.
func (h *Handler) writeViewError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNoData):
		writeError(w, r, http.StatusNotFound, "NO_DATA", render.NoDataNotice)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		observability.LoggerFromContext(r.Context()).Debug("request cancelled", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "TIMEOUT", "Request timed out")
	default:
		observability.LoggerFromContext(r.Context()).Error("render view", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render view")
	}
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope with the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}
