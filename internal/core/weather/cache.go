package weather

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CachedProvider memoizes Provider results by geographic/time key for the
// engine's lifetime. Entries are written once and read-shared afterwards;
// concurrent stages of one run always observe the same series.
type CachedProvider struct {
	inner Provider

	mu      sync.RWMutex
	entries map[string]Series
}

// NewCachedProvider wraps a Provider with a lifetime cache.
func NewCachedProvider(inner Provider) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		entries: make(map[string]Series),
	}
}

func (c *CachedProvider) Fetch(ctx context.Context, lat, lon float64, start, end time.Time) (Series, error) {
	key := fmt.Sprintf("hist|%.4f|%.4f|%s|%s", lat, lon, start.Format("2006-01-02"), end.Format("2006-01-02"))
	return c.lookup(ctx, key, func() (Series, error) {
		return c.inner.Fetch(ctx, lat, lon, start, end)
	})
}

func (c *CachedProvider) Forecast(ctx context.Context, lat, lon float64, horizonHours int) (Series, error) {
	// Forecasts roll forward; key on the hour so one run never mixes vintages.
	key := fmt.Sprintf("fc|%.4f|%.4f|%d|%s", lat, lon, horizonHours, time.Now().UTC().Format("2006-01-02T15"))
	return c.lookup(ctx, key, func() (Series, error) {
		return c.inner.Forecast(ctx, lat, lon, horizonHours)
	})
}

func (c *CachedProvider) lookup(_ context.Context, key string, load func() (Series, error)) (Series, error) {
	c.mu.RLock()
	if series, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return series, nil
	}
	c.mu.RUnlock()

	series, err := load()
	if err != nil {
		return Series{}, err
	}

	c.mu.Lock()
	c.entries[key] = series
	c.mu.Unlock()

	return series, nil
}
