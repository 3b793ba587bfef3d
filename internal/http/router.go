package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/bike-rental-dashboard/internal/dashboard"
	"github.com/kjstillabower/bike-rental-dashboard/internal/observability"
)

// RouterConfig holds the middleware settings for NewRouter.
type RouterConfig struct {
	Limiter        *rate.Limiter // nil disables rate limiting
	RequestTimeout time.Duration // zero disables the per-request deadline
}

// NewRouter wires the dashboard routes. /health and /metrics bypass rate
// limiting, timeouts and traffic tracking.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	app := router.NewRoute().Subrouter()
	app.Use(TrafficMiddleware(h.Tracker()))
	app.Use(RateLimitMiddleware(cfg.Limiter))
	if cfg.RequestTimeout > 0 {
		app.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	app.HandleFunc("/", h.GetDashboard).Methods(http.MethodGet)
	app.HandleFunc("/api/summary", h.GetSummary).Methods(http.MethodGet)
	app.HandleFunc("/api/seasons", h.GetSeasons).Methods(http.MethodGet)
	app.HandleFunc("/api/temperature", h.GetTemperature).Methods(http.MethodGet)
	app.HandleFunc("/api/meta", h.GetMeta).Methods(http.MethodGet)
	app.HandleFunc("/charts/seasons.png", h.ChartHandler(dashboard.ViewSeasons)).Methods(http.MethodGet)
	app.HandleFunc("/charts/temperature.png", h.ChartHandler(dashboard.ViewTemperature)).Methods(http.MethodGet)
	app.HandleFunc("/export.xlsx", h.GetExport).Methods(http.MethodGet)
	return router
}
