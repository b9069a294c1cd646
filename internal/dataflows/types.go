package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/StockAnalyzer/config"
	"github.com/shopspring/decimal"
)

// Config is an alias for the main application config
type Config = config.Config

var (
	// ErrNotFound means the provider has no record for the symbol.
	ErrNotFound = errors.New("stock not found")
	// ErrOffline means the connectivity probe did not get a success status.
	ErrOffline = errors.New("unable to connect to the internet")
)

// Provider field names of an InfoRecord.
const (
	FieldLongName      = "longName"
	FieldMarketCap     = "marketCap"
	FieldForwardPE     = "forwardPE"
	FieldForwardEPS    = "forwardEps"
	FieldDividendYield = "dividendYield"
	FieldSector        = "sector"
	FieldEVToEBITDA    = "enterpriseToEbitda"
	FieldProfitMargins = "profitMargins"
	FieldROE           = "returnOnEquity"
	FieldDebtToEquity  = "debtToEquity"
)

// Provider is a remote source of company metadata and daily prices.
type Provider interface {
	Name() string
	// Info returns the metadata record for symbol, or ErrNotFound.
	Info(ctx context.Context, symbol string) (InfoRecord, error)
	// History returns daily closes for the trailing period, oldest first.
	History(ctx context.Context, symbol string, period Period) (PriceSeries, error)
}

// InfoRecord is a provider metadata record. Field presence is not guaranteed.
type InfoRecord map[string]any

// Float returns the numeric value stored under key.
func (r InfoRecord) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case decimal.Decimal:
		return v.InexactFloat64(), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String returns the non-empty string stored under key.
func (r InfoRecord) String(key string) (string, bool) {
	v, ok := r[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// PriceSeries is ordered oldest first.
type PriceSeries []PricePoint

// Period is a trailing lookback window, spelled like Yahoo ranges.
type Period string

const (
	Period1Mo Period = "1mo"
	Period3Mo Period = "3mo"
	Period6Mo Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"
)

// ParsePeriod validates s as a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Period1Mo, Period3Mo, Period6Mo, Period1Y, Period2Y, Period5Y:
		return p, nil
	}
	return "", fmt.Errorf("unsupported period %q (use 1mo, 3mo, 6mo, 1y, 2y or 5y)", s)
}

// Start returns the first day of the window ending at end.
func (p Period) Start(end time.Time) time.Time {
	switch p {
	case Period1Mo:
		return end.AddDate(0, -1, 0)
	case Period3Mo:
		return end.AddDate(0, -3, 0)
	case Period6Mo:
		return end.AddDate(0, -6, 0)
	case Period2Y:
		return end.AddDate(-2, 0, 0)
	case Period5Y:
		return end.AddDate(-5, 0, 0)
	default:
		return end.AddDate(-1, 0, 0)
	}
}

// TradingDays approximates the number of sessions in the window.
func (p Period) TradingDays() int {
	switch p {
	case Period1Mo:
		return 21
	case Period3Mo:
		return 63
	case Period6Mo:
		return 126
	case Period2Y:
		return 504
	case Period5Y:
		return 1000
	default:
		return 252
	}
}
