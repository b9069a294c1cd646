package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyike/StockAnalyzer/config"
	"github.com/dyike/StockAnalyzer/internal/dataflows"
	"github.com/dyike/StockAnalyzer/internal/predict"
	"github.com/dyike/StockAnalyzer/internal/storage"
	"github.com/sirupsen/logrus"
)

// User-facing messages.
const (
	MsgInvalidInput  = "Please enter a valid company name."
	MsgOffline       = "Error: Unable to connect to the internet. Please check your connection."
	MsgNotFound      = "Stock not found. Please enter a valid company name."
	MsgNoHistory     = "Unable to fetch stock data for prediction."
	msgErrorPrefix   = "Error: "
	msgPredictPrefix = "An error occurred during prediction: "
	predictionLine   = "\nPredicted Price for the Next Day: %.2f %s\n"
)

// Analyzer runs the details and predict actions against a provider.
type Analyzer struct {
	cfg      *config.Config
	provider dataflows.Provider
	prober   dataflows.Prober
	recorder storage.Recorder
	log      logrus.FieldLogger
}

func New(cfg *config.Config, provider dataflows.Provider, prober dataflows.Prober, recorder storage.Recorder, log logrus.FieldLogger) *Analyzer {
	if recorder == nil {
		recorder = storage.NewNoopRecorder()
	}
	return &Analyzer{
		cfg:      cfg,
		provider: provider,
		prober:   prober,
		recorder: recorder,
		log:      log,
	}
}

// Details looks up fundamentals for the company typed in entry. Input errors
// raise an alert; every other failure is written inline.
func (a *Analyzer) Details(ctx context.Context, entry string) Outcome {
	symbol, err := dataflows.NormalizeCompanyName(entry, a.cfg.ExchangeSuffix)
	if err != nil {
		return Outcome{Alert: MsgInvalidInput}
	}

	start := time.Now()
	log := a.log.WithFields(logrus.Fields{"symbol": symbol, "provider": a.provider.Name()})

	text, name, err := a.details(ctx, symbol)
	lookup := &storage.Lookup{Query: entry, Symbol: symbol, Provider: a.provider.Name(), Action: storage.ActionDetails}
	if err != nil {
		log.WithError(err).WithField("elapsed", time.Since(start)).Warn("details failed")
		lookup.Status, lookup.Summary = storage.StatusError, err.Error()
	} else {
		log.WithField("elapsed", time.Since(start)).Info("details fetched")
		lookup.Status, lookup.Summary = storage.StatusOK, name
	}
	a.record(ctx, lookup)

	return Outcome{Symbol: symbol, Mode: ModeReplace, Text: text}
}

// details returns the text to show. On failure the text is the inline error
// message and err the underlying cause.
func (a *Analyzer) details(ctx context.Context, symbol string) (text, name string, err error) {
	if err := a.prober.Probe(ctx); err != nil {
		if errors.Is(err, dataflows.ErrOffline) {
			return MsgOffline, "", err
		}
		return msgErrorPrefix + err.Error(), "", err
	}

	record, err := a.provider.Info(ctx, symbol)
	switch {
	case errors.Is(err, dataflows.ErrNotFound):
		return MsgNotFound, "", err
	case err != nil:
		return msgErrorPrefix + err.Error(), "", err
	case len(record) == 0:
		return MsgNotFound, "", fmt.Errorf("%w: empty record for %s", dataflows.ErrNotFound, symbol)
	}

	snap := newSnapshot(record, symbol)
	return snap.Format(a.cfg.Currency), snap.Name, nil
}

// Predict forecasts the next close for the company typed in entry. Every
// failure raises an alert and leaves the result box untouched.
func (a *Analyzer) Predict(ctx context.Context, entry string) Outcome {
	symbol, err := dataflows.NormalizeCompanyName(entry, a.cfg.ExchangeSuffix)
	if err != nil {
		return Outcome{Alert: MsgInvalidInput}
	}

	start := time.Now()
	log := a.log.WithFields(logrus.Fields{"symbol": symbol, "provider": a.provider.Name()})
	lookup := &storage.Lookup{Query: entry, Symbol: symbol, Provider: a.provider.Name(), Action: storage.ActionPredict}

	forecast, alert, err := a.predict(ctx, symbol)
	if err != nil {
		log.WithError(err).WithField("elapsed", time.Since(start)).Warn("prediction failed")
		lookup.Status, lookup.Summary = storage.StatusError, err.Error()
		a.record(ctx, lookup)
		return Outcome{Symbol: symbol, Alert: alert}
	}

	log.WithFields(logrus.Fields{
		"elapsed":   time.Since(start),
		"price":     forecast.Price,
		"slope":     forecast.Model.Slope,
		"intercept": forecast.Model.Intercept,
		"r2":        forecast.HeldOutR2,
		"train":     forecast.TrainSize,
		"test":      forecast.TestSize,
	}).Info("prediction ready")

	lookup.Status, lookup.Price = storage.StatusOK, forecast.Price
	a.record(ctx, lookup)

	return Outcome{
		Symbol: symbol,
		Mode:   ModeAppend,
		Text:   fmt.Sprintf(predictionLine, forecast.Price, a.cfg.Currency),
	}
}

func (a *Analyzer) predict(ctx context.Context, symbol string) (predict.Forecast, string, error) {
	period, err := dataflows.ParsePeriod(a.cfg.HistoryPeriod)
	if err != nil {
		return predict.Forecast{}, msgPredictPrefix + err.Error(), err
	}

	series, err := a.provider.History(ctx, symbol, period)
	if err != nil {
		return predict.Forecast{}, msgPredictPrefix + err.Error(), err
	}
	if len(series) == 0 {
		return predict.Forecast{}, MsgNoHistory, predict.ErrEmptySeries
	}

	forecast, err := predict.Next(series, predict.Options{TestSize: a.cfg.TestSize, Seed: a.cfg.SplitSeed})
	if err != nil {
		return predict.Forecast{}, msgPredictPrefix + err.Error(), err
	}
	return forecast, "", nil
}

func (a *Analyzer) record(ctx context.Context, l *storage.Lookup) {
	// Recorded even when the action itself was cancelled.
	if err := a.recorder.RecordLookup(context.WithoutCancel(ctx), l); err != nil {
		a.log.WithError(err).Warn("failed to record lookup")
	}
}
