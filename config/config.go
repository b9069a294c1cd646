package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	ProviderYahoo    = "yahoo"
	ProviderLongport = "longport"
	ProviderFinnhub  = "finnhub"
)

// supportedPeriods mirrors the lookback windows understood by the data providers.
var supportedPeriods = map[string]struct{}{
	"1mo": {}, "3mo": {}, "6mo": {}, "1y": {}, "2y": {}, "5y": {},
}

// CronParser accepts the six-field (seconds first) schedules used by watch.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Config struct {
	ProjectDir   string `json:"project_dir" yaml:"project_dir"`
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	DataCacheDir string `json:"data_cache_dir" yaml:"data_cache_dir"`

	Provider       string `json:"provider" yaml:"provider"`
	ExchangeSuffix string `json:"exchange_suffix" yaml:"exchange_suffix"`
	Currency       string `json:"currency" yaml:"currency"`
	HistoryPeriod  string `json:"history_period" yaml:"history_period"`

	ProbeURL        string        `json:"probe_url" yaml:"probe_url"`
	QuoteSummaryURL string        `json:"quote_summary_url" yaml:"quote_summary_url"`
	KeyStatsURL     string        `json:"key_stats_url" yaml:"key_stats_url"`
	UserAgent       string        `json:"user_agent" yaml:"user_agent"`
	HTTPTimeout     time.Duration `json:"http_timeout" yaml:"http_timeout"`
	MaxRetries      int           `json:"max_retries" yaml:"max_retries"`

	// Regression split
	TestSize  float64 `json:"test_size" yaml:"test_size"`
	SplitSeed int64   `json:"split_seed" yaml:"split_seed"`

	CacheEnabled bool          `json:"cache_enabled" yaml:"cache_enabled"`
	CacheTTL     time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	HistoryDB    string        `json:"history_db" yaml:"history_db"`
	CSVFallback  bool          `json:"csv_fallback" yaml:"csv_fallback"`
	WatchCron    string        `json:"watch_cron" yaml:"watch_cron"`
	Debug        bool          `json:"debug" yaml:"debug"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key" yaml:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret" yaml:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token" yaml:"longport_access_token"`

	FinnhubAPIKey  string `json:"finnhub_api_key" yaml:"finnhub_api_key"`
	FinnhubBaseURL string `json:"finnhub_base_url" yaml:"finnhub_base_url"`
}

// envFile is the dotenv file read by Load, relative to the working directory.
var envFile = ".env"

// Load builds the configuration from, lowest to highest precedence: the
// defaults, the dotenv file, the YAML file at path (if any) and the process
// environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if dotenv, err := godotenv.Read(envFile); err == nil {
		cfg.applyEnv(func(key string) string { return dotenv[key] })
	}

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)

	return cfg, nil
}

func defaults() *Config {
	currentDir, _ := os.Getwd()

	return &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		Provider:       ProviderYahoo,
		ExchangeSuffix: ".NS",
		Currency:       "INR",
		HistoryPeriod:  "1y",

		ProbeURL:        "https://google.com",
		QuoteSummaryURL: "https://query2.finance.yahoo.com/v10/finance/quoteSummary",
		KeyStatsURL:     "https://finance.yahoo.com/quote",
		FinnhubBaseURL:  "https://finnhub.io/api/v1",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		HTTPTimeout:     30 * time.Second,
		MaxRetries:      0,

		TestSize:  0.2,
		SplitSeed: 42,

		CacheEnabled: false,
		CacheTTL:     24 * time.Hour,
		WatchCron:    "0 */15 * * * *",
	}
}

// applyEnv overrides fields from the variables getenv returns non-empty.
func (c *Config) applyEnv(getenv func(string) string) {
	if val := getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}

	if val := getenv("PROVIDER"); val != "" {
		c.Provider = strings.ToLower(val)
	}
	if val := getenv("EXCHANGE_SUFFIX"); val != "" {
		c.ExchangeSuffix = val
	}
	if val := getenv("CURRENCY"); val != "" {
		c.Currency = val
	}
	if val := getenv("HISTORY_PERIOD"); val != "" {
		c.HistoryPeriod = val
	}

	if val := getenv("PROBE_URL"); val != "" {
		c.ProbeURL = val
	}
	if val := getenv("QUOTE_SUMMARY_URL"); val != "" {
		c.QuoteSummaryURL = val
	}
	if val := getenv("KEY_STATS_URL"); val != "" {
		c.KeyStatsURL = val
	}
	if val := getenv("HTTP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.HTTPTimeout = d
		}
	}
	if val := getenv("MAX_RETRIES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxRetries = v
		}
	}

	if val := getenv("TEST_SIZE"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.TestSize = v
		}
	}
	if val := getenv("SPLIT_SEED"); val != "" {
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.SplitSeed = v
		}
	}

	if val := getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := getenv("CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.CacheTTL = d
		}
	}
	if val := getenv("HISTORY_DB"); val != "" {
		c.HistoryDB = val
	}
	if val := getenv("CSV_FALLBACK"); val != "" {
		if on, err := strconv.ParseBool(val); err == nil {
			c.CSVFallback = on
		}
	}
	if val := getenv("WATCH_CRON"); val != "" {
		c.WatchCron = val
	}

	if val := getenv("STOCKANALYZER_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
	if val := getenv("FINNHUB_BASE_URL"); val != "" {
		c.FinnhubBaseURL = val
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderYahoo:
	case ProviderLongport:
		if c.LongportAppKey == "" || c.LongportAppSecret == "" || c.LongportAccessToken == "" {
			return errors.New("longport provider requires LONGPORT_APP_KEY, LONGPORT_APP_SECRET and LONGPORT_ACCESS_TOKEN")
		}
	case ProviderFinnhub:
		if c.FinnhubAPIKey == "" {
			return errors.New("finnhub provider requires FINNHUB_API_KEY")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if _, ok := supportedPeriods[c.HistoryPeriod]; !ok {
		return fmt.Errorf("unsupported history period %q", c.HistoryPeriod)
	}
	if strings.TrimSpace(c.ProbeURL) == "" {
		return errors.New("probe_url is required")
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test_size must be between 0 and 1, got %v", c.TestSize)
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}
	if c.HTTPTimeout < 0 {
		return errors.New("http_timeout cannot be negative")
	}
	if c.WatchCron != "" {
		if _, err := CronParser.Parse(c.WatchCron); err != nil {
			return fmt.Errorf("invalid watch_cron %q: %w", c.WatchCron, err)
		}
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		return errors.New("cache_ttl must be positive when the cache is enabled")
	}
	return nil
}

// EnsureDirectories creates the directories needed by the enabled features.
func (c *Config) EnsureDirectories() error {
	var dirs []string
	if c.CacheEnabled {
		dirs = append(dirs, c.DataCacheDir)
	}
	if c.HistoryDB != "" {
		dirs = append(dirs, filepath.Dir(c.HistoryDB))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
