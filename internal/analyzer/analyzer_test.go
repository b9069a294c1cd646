package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dyike/StockAnalyzer/config"
	"github.com/dyike/StockAnalyzer/internal/dataflows"
	"github.com/dyike/StockAnalyzer/internal/logger"
	"github.com/dyike/StockAnalyzer/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	infoFn    func(ctx context.Context, symbol string) (dataflows.InfoRecord, error)
	historyFn func(ctx context.Context, symbol string, period dataflows.Period) (dataflows.PriceSeries, error)
	symbols   []string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Info(ctx context.Context, symbol string) (dataflows.InfoRecord, error) {
	m.symbols = append(m.symbols, symbol)
	if m.infoFn == nil {
		return dataflows.InfoRecord{}, nil
	}
	return m.infoFn(ctx, symbol)
}

func (m *mockProvider) History(ctx context.Context, symbol string, period dataflows.Period) (dataflows.PriceSeries, error) {
	m.symbols = append(m.symbols, symbol)
	if m.historyFn == nil {
		return nil, nil
	}
	return m.historyFn(ctx, symbol, period)
}

type mockProber struct {
	err   error
	calls int
}

func (m *mockProber) Probe(ctx context.Context) error {
	m.calls++
	return m.err
}

type recordingAlerter struct {
	alerts []string
}

func (r *recordingAlerter) Alert(message string) { r.alerts = append(r.alerts, message) }

type memoryRecorder struct {
	storage.NoopRecorder
	lookups []storage.Lookup
}

func (m *memoryRecorder) RecordLookup(_ context.Context, l *storage.Lookup) error {
	m.lookups = append(m.lookups, *l)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		ExchangeSuffix: ".NS",
		Currency:       "INR",
		HistoryPeriod:  "1y",
		TestSize:       0.2,
		SplitSeed:      42,
	}
}

func fullRecord() dataflows.InfoRecord {
	return dataflows.InfoRecord{
		dataflows.FieldLongName:      "Reliance Industries Limited",
		dataflows.FieldMarketCap:     1234567.891,
		dataflows.FieldForwardPE:     24.5,
		dataflows.FieldForwardEPS:    112.75,
		dataflows.FieldDividendYield: 0.0035,
		dataflows.FieldSector:        "Energy",
		dataflows.FieldEVToEBITDA:    12.1,
		dataflows.FieldProfitMargins: 0.081,
		dataflows.FieldROE:           0.092,
		dataflows.FieldDebtToEquity:  36.4,
	}
}

func linearHistory(n int, a, b float64) dataflows.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(dataflows.PriceSeries, n)
	for d := range series {
		series[d] = dataflows.PricePoint{Date: start.AddDate(0, 0, d), Close: decimal.NewFromFloat(a*float64(d) + b)}
	}
	return series
}

func newTestAnalyzer(p *mockProvider, pr *mockProber) (*Analyzer, *memoryRecorder) {
	rec := &memoryRecorder{}
	return New(testConfig(), p, pr, rec, logger.Discard()), rec
}

func TestInvalidInputAlertsWithoutNetwork(t *testing.T) {
	for _, entry := range []string{"", "   ", dataflows.CompanyPlaceholder} {
		p, pr := &mockProvider{}, &mockProber{}
		a, rec := newTestAnalyzer(p, pr)

		for _, out := range []Outcome{a.Details(context.Background(), entry), a.Predict(context.Background(), entry)} {
			assert.Equal(t, MsgInvalidInput, out.Alert)
			assert.Equal(t, ModeNone, out.Mode)
			assert.Empty(t, out.Text)
		}
		assert.Empty(t, p.symbols, "entry %q", entry)
		assert.Zero(t, pr.calls)
		assert.Empty(t, rec.lookups)
	}
}

func TestDetailsFormatsNineLinesInOrder(t *testing.T) {
	p := &mockProvider{infoFn: func(context.Context, string) (dataflows.InfoRecord, error) { return fullRecord(), nil }}
	a, rec := newTestAnalyzer(p, &mockProber{})

	out := a.Details(context.Background(), "Reliance Industries")
	require.Equal(t, ModeReplace, out.Mode)
	assert.Empty(t, out.Alert)
	assert.Equal(t, "Reliance-Industries.NS", out.Symbol)
	assert.Equal(t, []string{"Reliance-Industries.NS"}, p.symbols)

	lines := strings.Split(strings.TrimSuffix(out.Text, "\n"), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "Reliance Industries Limited", lines[0])
	assert.Equal(t, []string{
		"Market Cap: 1,234,567.89 INR",
		"P/E Ratio: 24.5",
		"EPS: 112.75",
		"Dividend Yield: 0.0035",
		"Sector: Energy",
		"EV/EBITDA: 12.1",
		"Profit Margin: 0.081",
		"Return on Equity: 0.092",
		"Debt-to-Equity: 36.4",
	}, lines[1:])

	require.Len(t, rec.lookups, 1)
	assert.Equal(t, storage.StatusOK, rec.lookups[0].Status)
	assert.Equal(t, "Reliance Industries Limited", rec.lookups[0].Summary)
}

func TestDetailsDefaultsMissingFields(t *testing.T) {
	p := &mockProvider{infoFn: func(context.Context, string) (dataflows.InfoRecord, error) {
		return dataflows.InfoRecord{dataflows.FieldForwardPE: 15.0}, nil
	}}
	a, _ := newTestAnalyzer(p, &mockProber{})

	out := a.Details(context.Background(), "Tata Motors")
	assert.Equal(t, "Tata-Motors.NS\n"+
		"Market Cap: 0.00 INR\n"+
		"P/E Ratio: 15\n"+
		"EPS: 0\n"+
		"Dividend Yield: 0\n"+
		"Sector: N/A\n"+
		"EV/EBITDA: 0\n"+
		"Profit Margin: 0\n"+
		"Return on Equity: 0\n"+
		"Debt-to-Equity: 0\n", out.Text)
}

func TestDetailsInlineErrors(t *testing.T) {
	tests := []struct {
		name     string
		probeErr error
		infoFn   func(context.Context, string) (dataflows.InfoRecord, error)
		want     string
	}{
		{
			name:     "probe non-success",
			probeErr: fmt.Errorf("%w: https://google.com returned status 503", dataflows.ErrOffline),
			want:     MsgOffline,
		},
		{
			name:     "probe transport error",
			probeErr: errors.New("probe https://google.com: dial tcp: no route to host"),
			want:     "Error: probe https://google.com: dial tcp: no route to host",
		},
		{
			name:   "not found",
			infoFn: func(context.Context, string) (dataflows.InfoRecord, error) { return nil, dataflows.ErrNotFound },
			want:   MsgNotFound,
		},
		{
			name:   "empty record",
			infoFn: func(context.Context, string) (dataflows.InfoRecord, error) { return dataflows.InfoRecord{}, nil },
			want:   MsgNotFound,
		},
		{
			name:   "provider failure",
			infoFn: func(context.Context, string) (dataflows.InfoRecord, error) { return nil, errors.New("read: connection reset") },
			want:   "Error: read: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{infoFn: tt.infoFn}
			a, rec := newTestAnalyzer(p, &mockProber{err: tt.probeErr})

			out := a.Details(context.Background(), "TCS")
			assert.Equal(t, ModeReplace, out.Mode)
			assert.Equal(t, tt.want, out.Text)
			assert.Empty(t, out.Alert)
			if tt.probeErr != nil {
				assert.Empty(t, p.symbols)
			}
			require.Len(t, rec.lookups, 1)
			assert.Equal(t, storage.StatusError, rec.lookups[0].Status)
		})
	}
}

func TestPredictAppendsNextDayPrice(t *testing.T) {
	var gotPeriod dataflows.Period
	p := &mockProvider{historyFn: func(_ context.Context, _ string, period dataflows.Period) (dataflows.PriceSeries, error) {
		gotPeriod = period
		return linearHistory(30, 2.5, 100), nil
	}}
	a, rec := newTestAnalyzer(p, &mockProber{})

	out := a.Predict(context.Background(), "Infosys")
	assert.Equal(t, ModeAppend, out.Mode)
	assert.Empty(t, out.Alert)
	assert.Equal(t, "\nPredicted Price for the Next Day: 175.00 INR\n", out.Text)
	assert.Equal(t, dataflows.Period1Y, gotPeriod)

	require.Len(t, rec.lookups, 1)
	assert.InDelta(t, 175.0, rec.lookups[0].Price, 1e-6)
}

func TestPredictFailuresAlertWithoutWrite(t *testing.T) {
	tests := []struct {
		name      string
		historyFn func(context.Context, string, dataflows.Period) (dataflows.PriceSeries, error)
		want      string
	}{
		{
			name:      "empty series",
			historyFn: func(context.Context, string, dataflows.Period) (dataflows.PriceSeries, error) { return nil, nil },
			want:      MsgNoHistory,
		},
		{
			name: "provider error",
			historyFn: func(context.Context, string, dataflows.Period) (dataflows.PriceSeries, error) {
				return nil, errors.New("chart: 404")
			},
			want: "An error occurred during prediction: chart: 404",
		},
		{
			name: "single observation",
			historyFn: func(context.Context, string, dataflows.Period) (dataflows.PriceSeries, error) {
				return linearHistory(1, 1, 1), nil
			},
			want: "An error occurred during prediction: not enough observations to fit: 1 observations leave an empty training set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAnalyzer(&mockProvider{historyFn: tt.historyFn}, &mockProber{})
			alerter := &recordingAlerter{}
			session := NewSession(alerter)
			session.Box.Replace("previous details\n")

			out := a.Predict(context.Background(), "Wipro")
			session.Apply(out)

			assert.Equal(t, ModeNone, out.Mode)
			assert.Equal(t, []string{tt.want}, alerter.alerts)
			assert.Equal(t, "previous details\n", session.Box.Text())
		})
	}
}

func TestDetailsThenPredictKeepsBothSegments(t *testing.T) {
	p := &mockProvider{
		infoFn: func(context.Context, string) (dataflows.InfoRecord, error) { return fullRecord(), nil },
		historyFn: func(context.Context, string, dataflows.Period) (dataflows.PriceSeries, error) {
			return linearHistory(10, 1, 50), nil
		},
	}
	a, _ := newTestAnalyzer(p, &mockProber{})
	session := NewSession(&recordingAlerter{})
	session.Entry = "Reliance Industries"

	session.Box.Replace("stale text from an earlier company\n")
	session.Apply(a.Details(context.Background(), session.Entry))
	session.Apply(a.Predict(context.Background(), session.Entry))

	text := session.Box.Text()
	assert.NotContains(t, text, "stale text")
	assert.True(t, strings.HasPrefix(text, "Reliance Industries Limited\nMarket Cap: "))
	assert.True(t, strings.HasSuffix(text, "Debt-to-Equity: 36.4\n\nPredicted Price for the Next Day: 60.00 INR\n"))
	assert.False(t, session.Box.Editable())
}

func TestNewSessionStartsBlank(t *testing.T) {
	s := NewSession(nil)
	assert.Equal(t, dataflows.CompanyPlaceholder, s.Entry)
	assert.Empty(t, s.Box.Text())
	s.Apply(Outcome{Alert: "ignored without an alerter"})
}

func TestFormatMarketCapLargeValues(t *testing.T) {
	assert.Equal(t, "1,234,567.89 INR", formatMarketCap(1234567.891, "INR"))
	assert.Equal(t, "-5,000.00", formatMarketCap(-5000, ""))

	huge := formatMarketCap(1e21, "INR")
	assert.NotContains(t, huge, "-")
	assert.Equal(t, "1,000,000,000,000,000,000,000 INR", huge)
}
