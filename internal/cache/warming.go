package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
	"github.com/kjstillabower/bike-rental-dashboard/internal/pipeline"
)

// ChartRenderer renders a chart through the cache, populating it on miss.
// Implemented by the dashboard chart store; declared here to avoid an import cycle.
type ChartRenderer interface {
	Chart(ctx context.Context, kind string, spec models.FilterSpec) ([]byte, error)
}

// ChartWarmer prerenders charts so the first page views are served from cache.
type ChartWarmer struct {
	renderer ChartRenderer
	logger   *zap.Logger
}

// NewChartWarmer creates a ChartWarmer that uses the given renderer and logger.
func NewChartWarmer(renderer ChartRenderer, logger *zap.Logger) *ChartWarmer {
	return &ChartWarmer{renderer: renderer, logger: logger}
}

// DefaultWarmSpecs returns the unfiltered selection plus one selection per season.
func DefaultWarmSpecs() []models.FilterSpec {
	specs := []models.FilterSpec{{}}
	for _, s := range models.Seasons {
		specs = append(specs, models.NewFilterSpec([]models.Season{s}, nil))
	}
	return specs
}

// Warm renders every kind for every spec concurrently. Specs that match no
// data are skipped silently. Returns an aggregated error if any render failed.
func (w *ChartWarmer) Warm(ctx context.Context, kinds []string, specs []models.FilterSpec) error {
	start := time.Now()
	if w.logger != nil {
		w.logger.Info("warming chart cache", zap.Int("charts", len(kinds)*len(specs)))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(kinds)*len(specs))
	for _, kind := range kinds {
		for _, spec := range specs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := w.renderer.Chart(ctx, kind, spec)
				if err != nil && !errors.Is(err, pipeline.ErrNoData) {
					errCh <- fmt.Errorf("warm %s %s: %w", kind, spec.Key(), err)
				}
			}()
		}
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if w.logger != nil {
		w.logger.Info("chart cache warming complete",
			zap.Int("errors", len(errs)),
			zap.Duration("duration", time.Since(start)))
	}
	return errors.Join(errs...)
}
