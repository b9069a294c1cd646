package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dyike/StockAnalyzer/config"
	"github.com/dyike/StockAnalyzer/internal/dataflows"
	"github.com/dyike/StockAnalyzer/internal/logger"
)

// Dumps the raw provider output for one symbol as JSON.
func main() {
	symbol := flag.String("symbol", "RELIANCE.NS", "provider symbol")
	period := flag.String("period", "1mo", "history window")
	flag.Parse()

	ctx := context.Background()
	log := logger.New(true)

	cfg, err := config.Load("")
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	provider, err := dataflows.NewProvider(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("create provider")
	}

	p, err := dataflows.ParsePeriod(*period)
	if err != nil {
		log.WithError(err).Fatal("parse period")
	}

	info, err := provider.Info(ctx, *symbol)
	if err != nil {
		log.WithError(err).Fatal("info")
	}
	series, err := provider.History(ctx, *symbol, p)
	if err != nil {
		log.WithError(err).Fatal("history")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"info": info, "history": series}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
