package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dyike/StockAnalyzer/config"
	"github.com/dyike/StockAnalyzer/internal/analyzer"
	"github.com/dyike/StockAnalyzer/internal/dataflows"
	"github.com/dyike/StockAnalyzer/internal/logger"
	"github.com/dyike/StockAnalyzer/internal/storage"
	"github.com/sirupsen/logrus"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	provider   string
	debug      bool

	manager  *config.Manager
	cfg      *config.Config
	log      *logrus.Logger
	recorder storage.Recorder

	out io.Writer
	err io.Writer
}

func newApp() *app {
	return &app{out: os.Stdout, err: os.Stderr}
}

// setup loads configuration and opens shared resources.
func (a *app) setup() error {
	a.log = logger.New(a.debug)

	mgr, err := config.NewManager(a.configPath, config.WithLogger(a.log))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.manager = mgr

	cfg := mgr.Get()
	if err := a.applyFlags(&cfg); err != nil {
		return err
	}
	a.cfg = &cfg

	if cfg.Debug {
		a.log.SetLevel(logrus.DebugLevel)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	rec, err := storage.OpenRecorder(&cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	a.recorder = rec

	a.log.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"suffix":   cfg.ExchangeSuffix,
		"period":   cfg.HistoryPeriod,
		"cache":    cfg.CacheEnabled,
		"history":  cfg.HistoryDB != "",
	}).Debug("configuration loaded")
	return nil
}

// applyFlags layers command-line flags over cfg and revalidates.
func (a *app) applyFlags(cfg *config.Config) error {
	if p := strings.TrimSpace(a.provider); p != "" {
		cfg.Provider = strings.ToLower(p)
	}
	if a.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// close releases the history recorder. It is safe to call more than once.
func (a *app) close() {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close history")
	}
	a.recorder = nil
}

// newAnalyzer wires a provider and prober for cfg.
func (a *app) newAnalyzer(cfg *config.Config) (*analyzer.Analyzer, error) {
	provider, err := dataflows.NewProvider(cfg, a.log)
	if err != nil {
		return nil, err
	}
	return analyzer.New(cfg, provider, dataflows.NewHTTPProber(cfg), a.recorder, a.log), nil
}
