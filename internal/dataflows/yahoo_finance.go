package dataflows

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/sirupsen/logrus"
)

const summaryModules = "price,assetProfile,summaryDetail,financialData,defaultKeyStatistics"

// YahooFinanceClient handles Yahoo Finance data operations
type YahooFinanceClient struct {
	http        *resty.Client
	summaryURL  string
	keyStatsURL string
	retry       *RetryConfig
	log         logrus.FieldLogger

	getEquity func(symbol string) (*finance.Equity, error)
	getChart  func(params *chart.Params) *chart.Iter
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient(cfg *Config, log logrus.FieldLogger) *YahooFinanceClient {
	return &YahooFinanceClient{
		http:        newRestyClient(cfg),
		summaryURL:  strings.TrimRight(cfg.QuoteSummaryURL, "/"),
		keyStatsURL: strings.TrimRight(cfg.KeyStatsURL, "/"),
		retry:       DefaultRetryConfig(cfg.MaxRetries),
		log:         log.WithField("provider", "yahoo"),
		getEquity:   equity.Get,
		getChart:    chart.Get,
	}
}

func (yf *YahooFinanceClient) Name() string { return "yahoo" }

// Info builds the metadata record from the equity quote, then fills the
// remaining fundamentals from quoteSummary, falling back to the
// key-statistics page when quoteSummary is unavailable.
func (yf *YahooFinanceClient) Info(ctx context.Context, symbol string) (InfoRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var eq *finance.Equity
	err := WithRetry(ctx, yf.retry, func() error {
		q, err := yf.getEquity(symbol)
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		eq = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	if eq == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	record := equityRecord(eq)

	if err := yf.mergeSummary(ctx, symbol, record); err != nil {
		yf.log.WithError(err).WithField("symbol", symbol).Warn("quoteSummary unavailable, scraping key statistics")
		if err := yf.mergeKeyStatistics(ctx, symbol, record); err != nil {
			yf.log.WithError(err).WithField("symbol", symbol).Warn("key statistics unavailable")
		}
	}

	return record, nil
}

func equityRecord(eq *finance.Equity) InfoRecord {
	record := InfoRecord{}

	name := eq.LongName
	if name == "" {
		name = eq.ShortName
	}
	if name != "" {
		record[FieldLongName] = name
	}
	if eq.MarketCap != 0 {
		record[FieldMarketCap] = float64(eq.MarketCap)
	}
	if eq.ForwardPE != 0 {
		record[FieldForwardPE] = eq.ForwardPE
	}
	if eq.EpsForward != 0 {
		record[FieldForwardEPS] = eq.EpsForward
	}
	if eq.TrailingAnnualDividendYield != 0 {
		record[FieldDividendYield] = eq.TrailingAnnualDividendYield
	}
	return record
}

type summaryValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				LongName string `json:"longName"`
			} `json:"price"`
			AssetProfile *struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
			SummaryDetail *struct {
				MarketCap     summaryValue `json:"marketCap"`
				ForwardPE     summaryValue `json:"forwardPE"`
				DividendYield summaryValue `json:"dividendYield"`
			} `json:"summaryDetail"`
			FinancialData *struct {
				ProfitMargins  summaryValue `json:"profitMargins"`
				ReturnOnEquity summaryValue `json:"returnOnEquity"`
				DebtToEquity   summaryValue `json:"debtToEquity"`
			} `json:"financialData"`
			DefaultKeyStatistics *struct {
				EnterpriseToEbitda summaryValue `json:"enterpriseToEbitda"`
				ForwardEps         summaryValue `json:"forwardEps"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (yf *YahooFinanceClient) mergeSummary(ctx context.Context, symbol string, record InfoRecord) error {
	var out quoteSummaryResponse
	resp, err := yf.http.R().
		SetContext(ctx).
		SetQueryParam("modules", summaryModules).
		SetResult(&out).
		Get(yf.summaryURL + "/" + url.PathEscape(symbol))
	if err != nil {
		return fmt.Errorf("quoteSummary request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("quoteSummary returned status %d", resp.StatusCode())
	}
	if e := out.QuoteSummary.Error; e != nil {
		return fmt.Errorf("quoteSummary error %s: %s", e.Code, e.Description)
	}
	if len(out.QuoteSummary.Result) == 0 {
		return fmt.Errorf("quoteSummary returned no result for %s", symbol)
	}

	res := out.QuoteSummary.Result[0]
	set := func(key string, v summaryValue) {
		if v.Raw != nil {
			record[key] = *v.Raw
		}
	}

	if res.Price != nil && res.Price.LongName != "" {
		record[FieldLongName] = res.Price.LongName
	}
	if res.AssetProfile != nil && res.AssetProfile.Sector != "" {
		record[FieldSector] = res.AssetProfile.Sector
	}
	if sd := res.SummaryDetail; sd != nil {
		set(FieldMarketCap, sd.MarketCap)
		set(FieldForwardPE, sd.ForwardPE)
		set(FieldDividendYield, sd.DividendYield)
	}
	if fd := res.FinancialData; fd != nil {
		set(FieldProfitMargins, fd.ProfitMargins)
		set(FieldROE, fd.ReturnOnEquity)
		set(FieldDebtToEquity, fd.DebtToEquity)
	}
	if ks := res.DefaultKeyStatistics; ks != nil {
		set(FieldEVToEBITDA, ks.EnterpriseToEbitda)
		set(FieldForwardEPS, ks.ForwardEps)
	}
	return nil
}

// keyStatLabels maps the key-statistics row label prefix to a record field.
// Percent rows are scaled to fractions, except debt/equity which Yahoo
// reports as a percentage number.
var keyStatLabels = []struct {
	prefix  string
	field   string
	percent bool
}{
	{"market cap", FieldMarketCap, false},
	{"forward p/e", FieldForwardPE, false},
	{"enterprise value/ebitda", FieldEVToEBITDA, false},
	{"profit margin", FieldProfitMargins, true},
	{"return on equity", FieldROE, true},
	{"total debt/equity", FieldDebtToEquity, false},
	{"trailing annual dividend yield", FieldDividendYield, true},
}

func (yf *YahooFinanceClient) mergeKeyStatistics(ctx context.Context, symbol string, record InfoRecord) error {
	resp, err := yf.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(fmt.Sprintf("%s/%s/key-statistics/", yf.keyStatsURL, url.PathEscape(symbol)))
	if err != nil {
		return fmt.Errorf("key statistics request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("key statistics returned status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.First().Text()))
		value := strings.TrimSpace(cells.Last().Text())

		for _, l := range keyStatLabels {
			if !strings.HasPrefix(label, l.prefix) {
				continue
			}
			if _, exists := record[l.field]; exists {
				return
			}
			if v, ok := parseStatValue(value, l.percent); ok {
				record[l.field] = v
			}
			return
		}
	})
	return nil
}

// parseStatValue parses a key-statistics cell such as "1.23T", "15.2%" or "N/A".
func parseStatValue(text string, percent bool) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if cleaned == "" || cleaned == "N/A" || cleaned == "--" {
		return 0, false
	}

	multiplier := 1.0
	isPercent := false
	switch {
	case strings.HasSuffix(cleaned, "%"):
		isPercent = true
		cleaned = strings.TrimSuffix(cleaned, "%")
	case strings.HasSuffix(cleaned, "T"):
		multiplier = 1e12
		cleaned = strings.TrimSuffix(cleaned, "T")
	case strings.HasSuffix(cleaned, "B"):
		multiplier = 1e9
		cleaned = strings.TrimSuffix(cleaned, "B")
	case strings.HasSuffix(cleaned, "M"):
		multiplier = 1e6
		cleaned = strings.TrimSuffix(cleaned, "M")
	case strings.HasSuffix(cleaned, "k"):
		multiplier = 1e3
		cleaned = strings.TrimSuffix(cleaned, "k")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if isPercent && percent {
		return v / 100, true
	}
	return v * multiplier, true
}

// History gets daily closes for the trailing period
func (yf *YahooFinanceClient) History(ctx context.Context, symbol string, period Period) (PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := time.Now()
	start := period.Start(end)

	var series PriceSeries
	err := WithRetry(ctx, yf.retry, func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := yf.getChart(params)

		var bars []*finance.ChartBar
		for iter.Next() {
			bars = append(bars, iter.Bar())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
		}

		series = barsToSeries(bars)
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.log.WithFields(logrus.Fields{"symbol": symbol, "period": period, "bars": len(series)}).Debug("history fetched")
	return series, nil
}

// barsToSeries drops bars without a close and orders the rest by date.
func barsToSeries(bars []*finance.ChartBar) PriceSeries {
	series := make(PriceSeries, 0, len(bars))
	for _, bar := range bars {
		if bar == nil || bar.Close.IsZero() {
			continue
		}
		series = append(series, PricePoint{
			Date:  time.Unix(int64(bar.Timestamp), 0).UTC(),
			Close: bar.Close,
		})
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}
