package dataflows

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// CSVFallbackProvider answers History from the newest exported CSV when the
// upstream provider fails. Info always goes upstream.
type CSVFallbackProvider struct {
	next Provider
	csv  *CSVManager
	log  logrus.FieldLogger
}

func NewCSVFallbackProvider(next Provider, csv *CSVManager, log logrus.FieldLogger) *CSVFallbackProvider {
	return &CSVFallbackProvider{next: next, csv: csv, log: log}
}

func (f *CSVFallbackProvider) Name() string { return f.next.Name() }

func (f *CSVFallbackProvider) Info(ctx context.Context, symbol string) (InfoRecord, error) {
	return f.next.Info(ctx, symbol)
}

func (f *CSVFallbackProvider) History(ctx context.Context, symbol string, period Period) (PriceSeries, error) {
	series, err := f.next.History(ctx, symbol, period)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return series, err
	}

	path, findErr := f.csv.FindLatest(symbol)
	if findErr != nil {
		return nil, err
	}
	stored, readErr := f.csv.ReadSeries(path)
	if readErr != nil {
		f.log.WithError(readErr).WithField("file", path).Warn("unreadable CSV export")
		return nil, err
	}
	f.log.WithError(err).WithFields(logrus.Fields{
		"symbol": symbol,
		"file":   path,
	}).Warn("history served from CSV export")
	return stored, nil
}
