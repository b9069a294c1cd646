package dataflows

import (
	"context"

	"github.com/sirupsen/logrus"
)

// CachedProvider serves repeated lookups from the file cache.
type CachedProvider struct {
	next  Provider
	cache *CacheManager
	log   logrus.FieldLogger
}

func NewCachedProvider(next Provider, cache *CacheManager, log logrus.FieldLogger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, log: log}
}

func (c *CachedProvider) Name() string { return c.next.Name() }

func (c *CachedProvider) Info(ctx context.Context, symbol string) (InfoRecord, error) {
	params := map[string]string{"symbol": symbol}

	var cached InfoRecord
	if c.cache.Get(c.next.Name(), "info", params, &cached) {
		c.log.WithField("symbol", symbol).Debug("info served from cache")
		return cached, nil
	}

	record, err := c.next.Info(ctx, symbol)
	if err != nil {
		return nil, err
	}
	// an empty record reads as not found; keep retrying upstream
	if len(record) == 0 {
		return record, nil
	}
	if err := c.cache.Set(c.next.Name(), "info", params, record); err != nil {
		c.log.WithError(err).Warn("failed to cache info")
	}
	return record, nil
}

func (c *CachedProvider) History(ctx context.Context, symbol string, period Period) (PriceSeries, error) {
	params := map[string]string{"symbol": symbol, "period": string(period)}

	var cached PriceSeries
	if c.cache.Get(c.next.Name(), "history", params, &cached) {
		c.log.WithField("symbol", symbol).Debug("history served from cache")
		return cached, nil
	}

	series, err := c.next.History(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return series, nil
	}
	if err := c.cache.Set(c.next.Name(), "history", params, series); err != nil {
		c.log.WithError(err).Warn("failed to cache history")
	}
	return series, nil
}
