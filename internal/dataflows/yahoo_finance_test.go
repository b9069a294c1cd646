package dataflows

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dyike/StockAnalyzer/config"
	"github.com/dyike/StockAnalyzer/internal/logger"
	finance "github.com/piquette/finance-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summaryJSON = `{
  "quoteSummary": {
    "result": [{
      "price": {"longName": "Tata Consultancy Services Limited"},
      "assetProfile": {"sector": "Technology"},
      "summaryDetail": {
        "marketCap": {"raw": 15000000000000, "fmt": "15T"},
        "forwardPE": {"raw": 28.5},
        "dividendYield": {"raw": 0.012}
      },
      "financialData": {
        "profitMargins": {"raw": 0.19},
        "returnOnEquity": {"raw": 0.47},
        "debtToEquity": {"raw": 9.1}
      },
      "defaultKeyStatistics": {
        "enterpriseToEbitda": {"raw": 21.3},
        "forwardEps": {"raw": 140.2}
      }
    }],
    "error": null
  }
}`

const keyStatsHTML = `<html><body>
<table>
<tr><td>Market Cap</td><td>1.5T</td></tr>
<tr><td>Forward P/E</td><td>27.10</td></tr>
<tr><td>Enterprise Value/EBITDA</td><td>20.05</td></tr>
</table>
<table>
<tr><td>Profit Margin</td><td>19.50%</td></tr>
<tr><td>Return on Equity (ttm)</td><td>47.00%</td></tr>
<tr><td>Total Debt/Equity (mrq)</td><td>9.10%</td></tr>
<tr><td>Forward Annual Dividend Yield 4</td><td>1.80%</td></tr>
<tr><td>Trailing Annual Dividend Yield 3</td><td>1.20%</td></tr>
</table>
</body></html>`

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *YahooFinanceClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		QuoteSummaryURL: server.URL + "/v10/finance/quoteSummary",
		KeyStatsURL:     server.URL + "/quote",
		UserAgent:       "test",
		HTTPTimeout:     2 * time.Second,
	}
	yf := NewYahooFinanceClient(cfg, logger.Discard())
	yf.getEquity = func(symbol string) (*finance.Equity, error) {
		eq := &finance.Equity{LongName: "TCS Ltd", MarketCap: 100, ForwardPE: 1.5}
		return eq, nil
	}
	return yf
}

func TestYahooInfoMergesQuoteSummary(t *testing.T) {
	yf := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/TCS.NS", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("modules"), "financialData")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(summaryJSON))
	})

	record, err := yf.Info(context.Background(), "TCS.NS")
	require.NoError(t, err)

	name, _ := record.String(FieldLongName)
	assert.Equal(t, "Tata Consultancy Services Limited", name)
	sector, _ := record.String(FieldSector)
	assert.Equal(t, "Technology", sector)

	for field, want := range map[string]float64{
		FieldMarketCap:     15000000000000,
		FieldForwardPE:     28.5,
		FieldForwardEPS:    140.2,
		FieldDividendYield: 0.012,
		FieldEVToEBITDA:    21.3,
		FieldProfitMargins: 0.19,
		FieldROE:           0.47,
		FieldDebtToEquity:  9.1,
	} {
		got, ok := record.Float(field)
		require.True(t, ok, field)
		assert.InDelta(t, want, got, 1e-9, field)
	}
}

func TestYahooInfoFallsBackToKeyStatistics(t *testing.T) {
	yf := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v10/") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/quote/TCS.NS/key-statistics/", r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(keyStatsHTML))
	})

	record, err := yf.Info(context.Background(), "TCS.NS")
	require.NoError(t, err)

	name, _ := record.String(FieldLongName)
	assert.Equal(t, "TCS Ltd", name)

	// The equity quote already carried these.
	mc, _ := record.Float(FieldMarketCap)
	assert.Equal(t, 100.0, mc)
	pe, _ := record.Float(FieldForwardPE)
	assert.Equal(t, 1.5, pe)

	ev, ok := record.Float(FieldEVToEBITDA)
	require.True(t, ok)
	assert.InDelta(t, 20.05, ev, 1e-9)
	pm, _ := record.Float(FieldProfitMargins)
	assert.InDelta(t, 0.195, pm, 1e-9)
	roe, _ := record.Float(FieldROE)
	assert.InDelta(t, 0.47, roe, 1e-9)
	de, _ := record.Float(FieldDebtToEquity)
	assert.InDelta(t, 9.1, de, 1e-9)

	// trailing, like the quote summary's dividendYield
	dy, ok := record.Float(FieldDividendYield)
	require.True(t, ok)
	assert.InDelta(t, 0.012, dy, 1e-9)
	_, ok = record.String(FieldSector)
	assert.False(t, ok)
}

func TestYahooInfoUnknownSymbol(t *testing.T) {
	yf := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	yf.getEquity = func(string) (*finance.Equity, error) { return nil, nil }

	_, err := yf.Info(context.Background(), "NOPE.NS")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestYahooInfoQuoteError(t *testing.T) {
	yf := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {})
	yf.getEquity = func(string) (*finance.Equity, error) { return nil, errors.New("remote closed") }

	_, err := yf.Info(context.Background(), "TCS.NS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote closed")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestParseStatValue(t *testing.T) {
	tests := []struct {
		in      string
		percent bool
		want    float64
		ok      bool
	}{
		{"1.5T", false, 1.5e12, true},
		{"2.25B", false, 2.25e9, true},
		{"310.4M", false, 310.4e6, true},
		{"1,234.5", false, 1234.5, true},
		{"19.50%", true, 0.195, true},
		{"9.10%", false, 9.1, true},
		{"N/A", false, 0, false},
		{"--", true, 0, false},
		{"", false, 0, false},
		{"abc", false, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseStatValue(tt.in, tt.percent)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-6, tt.in)
	}
}

func TestBarsToSeries(t *testing.T) {
	day := func(d int) int { return int(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC).Unix()) }
	bars := []*finance.ChartBar{
		{Close: decimal.NewFromFloat(102), Timestamp: day(3)},
		nil,
		{Close: decimal.Zero, Timestamp: day(2)},
		{Close: decimal.NewFromFloat(100), Timestamp: day(1)},
	}

	series := barsToSeries(bars)
	require.Len(t, series, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), series[0].Date)
	assert.True(t, series[0].Close.Equal(decimal.NewFromInt(100)))
	assert.True(t, series[1].Close.Equal(decimal.NewFromInt(102)))
}
