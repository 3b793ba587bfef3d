package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/bike-rental-dashboard/internal/cache"
	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
	"github.com/kjstillabower/bike-rental-dashboard/internal/observability"
	"github.com/kjstillabower/bike-rental-dashboard/internal/render"
)

// ChartKinds lists every chart the dashboard serves.
var ChartKinds = []string{ViewSeasons, ViewTemperature}

// ErrUnknownChart is returned for a chart kind not in ChartKinds.
var ErrUnknownChart = errors.New("unknown chart")

// renderTimeout bounds a single chart render shared by coalesced callers.
const renderTimeout = 30 * time.Second

// Charts renders chart PNGs for filter selections and keeps them in a cache.
// Only encoded images are cached; the aggregates behind them are recomputed
// on every miss.
type Charts struct {
	svc   *Service
	cache cache.Cache
	ttl   time.Duration
	size  render.Size
	group *renderCoalescer
}

// NewCharts returns a chart store. A nil cache disables caching.
func NewCharts(svc *Service, c cache.Cache, ttl time.Duration, size render.Size) *Charts {
	if c == nil {
		c = cache.NopCache{}
	}
	return &Charts{svc: svc, cache: c, ttl: ttl, size: size, group: newRenderCoalescer(renderTimeout)}
}

// Chart returns the PNG for kind under spec. Returns pipeline.ErrNoData when
// the selection is empty. Cache failures are logged and never fail the call.
func (c *Charts) Chart(ctx context.Context, kind string, spec models.FilterSpec) ([]byte, error) {
	if kind != ViewSeasons && kind != ViewTemperature {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, kind)
	}
	logger := observability.LoggerFromContext(ctx)
	key := c.key(kind, spec)

	b, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("chart cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		observability.ChartCacheLookupsTotal.WithLabelValues(kind, "hit").Inc()
		return b, nil
	}
	observability.ChartCacheLookupsTotal.WithLabelValues(kind, "miss").Inc()

	b, shared, err := c.group.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		b, err := c.render(ctx, kind, spec)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			observability.CacheErrorsTotal.WithLabelValues("set").Inc()
			logger.Warn("chart cache set failed", zap.String("key", key), zap.Error(err))
		}
		return b, nil
	})
	if shared {
		logger.Debug("chart render shared", zap.String("key", key))
	}
	return b, err
}

func (c *Charts) render(ctx context.Context, kind string, spec models.FilterSpec) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	start := time.Now()
	switch kind {
	case ViewSeasons:
		var totals []models.SeasonTotal
		if totals, err = c.svc.SeasonTotals(ctx, spec); err != nil {
			return nil, err
		}
		b, err = render.SeasonBarChart(totals, c.size)
	case ViewTemperature:
		var samples []models.TemperatureSample
		if samples, err = c.svc.TemperatureSamples(ctx, spec); err != nil {
			return nil, err
		}
		b, err = render.TemperatureScatter(samples, c.size)
	}
	if err != nil {
		return nil, err
	}
	observability.ChartRenderDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return b, nil
}

func (c *Charts) key(kind string, spec models.FilterSpec) string {
	return fmt.Sprintf("%s|%s|%dx%d", kind, spec.Key(), c.size.Width, c.size.Height)
}
