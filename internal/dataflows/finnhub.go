package dataflows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	apiKey string
	retry  *RetryConfig
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(cfg *Config, log logrus.FieldLogger) *FinnhubClient {
	client := newRestyClient(cfg).
		SetBaseURL(strings.TrimRight(cfg.FinnhubBaseURL, "/"))

	return &FinnhubClient{
		client: client,
		apiKey: cfg.FinnhubAPIKey,
		retry:  DefaultRetryConfig(cfg.MaxRetries),
		log:    log.WithField("provider", "finnhub"),
		now:    time.Now,
	}
}

func (fc *FinnhubClient) Name() string { return "finnhub" }

type finnhubProfile struct {
	Name                 string  `json:"name"`
	Ticker               string  `json:"ticker"`
	Currency             string  `json:"currency"`
	FinnhubIndustry      string  `json:"finnhubIndustry"`
	MarketCapitalization float64 `json:"marketCapitalization"`
}

type finnhubMetrics struct {
	Metric map[string]any `json:"metric"`
}

type finnhubCandles struct {
	Close     []float64 `json:"c"`
	Timestamp []int64   `json:"t"`
	Status    string    `json:"s"`
}

// finnhubMetricFields maps metric keys to record fields with the factor that
// brings them to the units the other providers use.
var finnhubMetricFields = []struct {
	key   string
	field string
	scale float64
}{
	{"peTTM", FieldForwardPE, 1},
	{"epsTTM", FieldForwardEPS, 1},
	{"currentDividendYieldTTM", FieldDividendYield, 0.01},
	{"evEbitdaTTM", FieldEVToEBITDA, 1},
	{"netProfitMarginTTM", FieldProfitMargins, 0.01},
	{"roeTTM", FieldROE, 0.01},
	{"totalDebt/totalEquityQuarterly", FieldDebtToEquity, 100},
}

// Info combines the company profile with the basic financials. An empty
// profile means Finnhub does not know the symbol.
func (fc *FinnhubClient) Info(ctx context.Context, symbol string) (InfoRecord, error) {
	var profile finnhubProfile
	if err := fc.get(ctx, "/stock/profile2", map[string]string{"symbol": symbol}, &profile); err != nil {
		return nil, fmt.Errorf("failed to get profile for %s: %w", symbol, err)
	}
	if profile.Name == "" && profile.Ticker == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	record := InfoRecord{FieldLongName: profile.Name}
	if profile.FinnhubIndustry != "" {
		record[FieldSector] = profile.FinnhubIndustry
	}
	if profile.MarketCapitalization != 0 {
		// reported in millions
		record[FieldMarketCap] = profile.MarketCapitalization * 1e6
	}

	var metrics finnhubMetrics
	err := fc.get(ctx, "/stock/metric", map[string]string{"symbol": symbol, "metric": "all"}, &metrics)
	if err != nil {
		fc.log.WithError(err).WithField("symbol", symbol).Warn("basic financials unavailable")
		return record, nil
	}
	for _, m := range finnhubMetricFields {
		if v, ok := metrics.Metric[m.key].(float64); ok {
			record[m.field] = v * m.scale
		}
	}
	return record, nil
}

// History returns daily closes for period. A no_data status is an empty
// series, not an error.
func (fc *FinnhubClient) History(ctx context.Context, symbol string, period Period) (PriceSeries, error) {
	now := fc.now().UTC()
	params := map[string]string{
		"symbol":     symbol,
		"resolution": "D",
		"from":       fmt.Sprint(period.Start(now).Unix()),
		"to":         fmt.Sprint(now.Unix()),
	}

	var candles finnhubCandles
	if err := fc.get(ctx, "/stock/candle", params, &candles); err != nil {
		return nil, fmt.Errorf("failed to get candles for %s: %w", symbol, err)
	}
	if candles.Status == "no_data" {
		return PriceSeries{}, nil
	}
	if candles.Status != "ok" {
		return nil, fmt.Errorf("unexpected candle status %q for %s", candles.Status, symbol)
	}
	return finnhubToSeries(candles), nil
}

func finnhubToSeries(c finnhubCandles) PriceSeries {
	n := min(len(c.Close), len(c.Timestamp))
	series := make(PriceSeries, 0, n)
	for i := 0; i < n; i++ {
		if c.Close[i] == 0 {
			continue
		}
		series = append(series, PricePoint{
			Date:  time.Unix(c.Timestamp[i], 0).UTC(),
			Close: decimal.NewFromFloat(c.Close[i]),
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

func (fc *FinnhubClient) get(ctx context.Context, path string, params map[string]string, out any) error {
	if fc.apiKey == "" {
		return errors.New("finnhub API key not configured")
	}
	return WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetQueryParam("token", fc.apiKey).
			SetResult(out).
			Get(path)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("finnhub returned status %d", resp.StatusCode())
		}
		return nil
	})
}
