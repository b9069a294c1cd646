package dataflows

import (
	"fmt"

	"github.com/dyike/StockAnalyzer/config"
	"github.com/sirupsen/logrus"
)

// NewProvider builds the configured data provider, wrapped in the file
// cache when caching is enabled and in the exported CSV fallback when that is
// enabled.
func NewProvider(cfg *Config, log logrus.FieldLogger) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case config.ProviderYahoo, "":
		p = NewYahooFinanceClient(cfg, log)
	case config.ProviderLongport:
		client, err := NewLongportClient(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("longport provider: %w", err)
		}
		p = client
	case config.ProviderFinnhub:
		p = NewFinnhubClient(cfg, log)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if cfg.CacheEnabled {
		cache := NewCacheManager(cfg.DataCacheDir, cfg.CacheTTL, true)
		p = NewCachedProvider(p, cache, log)
	}
	if cfg.CSVFallback {
		p = NewCSVFallbackProvider(p, NewCSVManager(cfg.DataDir), log)
	}
	return p, nil
}
