package dataflows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// quoteAPI is the part of the longport quote context used here.
type quoteAPI interface {
	StaticInfo(ctx context.Context, symbols []string) ([]*quote.StaticInfo, error)
	Candlesticks(ctx context.Context, symbol string, period quote.Period, count int32, adjustType quote.AdjustType) ([]*quote.Candlestick, error)
}

type LongportClient struct {
	quoteCtx quoteAPI
	retry    *RetryConfig
	log      logrus.FieldLogger
}

func NewLongportClient(cfg *Config, log logrus.FieldLogger) (*LongportClient, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return newLongportClient(quoteContext, cfg.MaxRetries, log), nil
}

func newLongportClient(q quoteAPI, maxRetries int, log logrus.FieldLogger) *LongportClient {
	return &LongportClient{
		quoteCtx: q,
		retry:    DefaultRetryConfig(maxRetries),
		log:      log.WithField("provider", "longport"),
	}
}

func (lpc *LongportClient) Name() string { return "longport" }

func (lpc *LongportClient) Info(ctx context.Context, symbol string) (InfoRecord, error) {
	var infos []*quote.StaticInfo
	err := WithRetry(ctx, lpc.retry, func() error {
		res, err := lpc.quoteCtx.StaticInfo(ctx, []string{symbol})
		if err != nil {
			return fmt.Errorf("static info for %s: %w", symbol, err)
		}
		infos = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	record := staticInfoRecord(infos[0])

	// Market cap is not part of static info; derive it from the last close.
	if infos[0].TotalShares > 0 {
		sticks, err := lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, 1, quote.AdjustTypeNo)
		if err != nil {
			lpc.log.WithError(err).WithField("symbol", symbol).Warn("last close unavailable")
		} else if len(sticks) > 0 && sticks[len(sticks)-1] != nil && sticks[len(sticks)-1].Close != nil {
			last := *sticks[len(sticks)-1].Close
			record[FieldMarketCap] = last.Mul(decimal.NewFromInt(infos[0].TotalShares)).InexactFloat64()
		}
	}

	return record, nil
}

func staticInfoRecord(info *quote.StaticInfo) InfoRecord {
	record := InfoRecord{}

	name := strings.TrimSpace(info.NameEn)
	if name == "" {
		name = strings.TrimSpace(info.NameHk)
	}
	if name == "" {
		name = strings.TrimSpace(info.NameCn)
	}
	if name != "" {
		record[FieldLongName] = name
	}
	if info.Eps != nil {
		record[FieldForwardEPS] = *info.Eps
	}
	// DividendYield arrives as a decimal string
	if dy := strings.TrimSpace(info.DividendYield); dy != "" {
		record[FieldDividendYield] = dy
	}
	return record
}

func (lpc *LongportClient) History(ctx context.Context, symbol string, period Period) (PriceSeries, error) {
	var sticks []*quote.Candlestick
	err := WithRetry(ctx, lpc.retry, func() error {
		res, err := lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, int32(period.TradingDays()), quote.AdjustTypeNo)
		if err != nil {
			return fmt.Errorf("candlesticks for %s: %w", symbol, err)
		}
		sticks = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candlesToSeries(sticks), nil
}

func candlesToSeries(sticks []*quote.Candlestick) PriceSeries {
	series := make(PriceSeries, 0, len(sticks))
	for _, s := range sticks {
		if s == nil || s.Close == nil || s.Close.IsZero() {
			continue
		}
		series = append(series, PricePoint{
			Date:  time.Unix(s.Timestamp, 0).UTC(),
			Close: *s.Close,
		})
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}
