//go:build integration
// +build integration

// Package testhelpers builds real datasets and cache backends for integration tests.
package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/bike-rental-dashboard/internal/cache"
	"github.com/kjstillabower/bike-rental-dashboard/internal/dataset"
	"github.com/kjstillabower/bike-rental-dashboard/internal/models"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	DayDataPath   string
	HourDataPath  string
	CacheBackend  string // "in_memory", "memcached" or "redis"
	MemcachedAddr string
	RedisAddr     string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test when the dataset paths are not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	day, hour := os.Getenv("DAY_DATA_PATH"), os.Getenv("HOUR_DATA_PATH")
	if day == "" || hour == "" {
		t.Skip("DAY_DATA_PATH and HOUR_DATA_PATH not set, skipping integration test")
	}
	cfg := IntegrationTestConfig{
		DayDataPath:   day,
		HourDataPath:  hour,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: os.Getenv("MEMCACHED_ADDRS"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
	}
	if cfg.MemcachedAddr == "" {
		cfg.MemcachedAddr = "localhost:11211"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	return cfg
}

// LoadDataset loads the configured CSV files, failing the test on error.
func LoadDataset(t *testing.T, cfg IntegrationTestConfig) *models.Dataset {
	t.Helper()
	ds, err := dataset.Load(cfg.DayDataPath, cfg.HourDataPath)
	if err != nil {
		t.Fatalf("dataset.Load() error = %v", err)
	}
	return ds
}

// SetupChartCache creates the configured cache backend and a cleanup function.
// Skips the test when a networked backend is unreachable.
func SetupChartCache(t *testing.T, cfg IntegrationTestConfig) (cache.Cache, func()) {
	t.Helper()
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err != nil {
			t.Fatalf("NewMemcachedCache() error = %v", err)
		}
		if err := mc.Ping(context.Background()); err != nil {
			_ = mc.Close()
			t.Skipf("memcached not reachable at %s: %v", cfg.MemcachedAddr, err)
		}
		return mc, func() { _ = mc.Close() }
	case "redis":
		rc, err := cache.NewRedisCache(context.Background(), cfg.RedisAddr, "", 0, 500*time.Millisecond)
		if err != nil {
			t.Skipf("redis not reachable at %s: %v", cfg.RedisAddr, err)
		}
		return rc, func() { _ = rc.Close() }
	default:
		return cache.NewInMemoryCache(0), func() {}
	}
}
