package analyzer

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dyike/StockAnalyzer/internal/dataflows"
)

const notAvailable = "N/A"

// fieldDefaults holds the value used for every metric missing upstream.
var fieldDefaults = map[string]any{
	dataflows.FieldMarketCap:     0.0,
	dataflows.FieldForwardPE:     0.0,
	dataflows.FieldForwardEPS:    0.0,
	dataflows.FieldDividendYield: 0.0,
	dataflows.FieldSector:        notAvailable,
	dataflows.FieldEVToEBITDA:    0.0,
	dataflows.FieldProfitMargins: 0.0,
	dataflows.FieldROE:           0.0,
	dataflows.FieldDebtToEquity:  0.0,
}

// detailLines is the fixed output order.
var detailLines = []struct {
	Label string
	Field string
}{
	{"Market Cap", dataflows.FieldMarketCap},
	{"P/E Ratio", dataflows.FieldForwardPE},
	{"EPS", dataflows.FieldForwardEPS},
	{"Dividend Yield", dataflows.FieldDividendYield},
	{"Sector", dataflows.FieldSector},
	{"EV/EBITDA", dataflows.FieldEVToEBITDA},
	{"Profit Margin", dataflows.FieldProfitMargins},
	{"Return on Equity", dataflows.FieldROE},
	{"Debt-to-Equity", dataflows.FieldDebtToEquity},
}

// Snapshot is the company name plus the nine metrics, already defaulted.
type Snapshot struct {
	Name   string
	Values map[string]any
}

// Line is one labeled output line.
type Line struct {
	Label string
	Value string
}

func newSnapshot(record dataflows.InfoRecord, symbol string) Snapshot {
	name, ok := record.String(dataflows.FieldLongName)
	if !ok {
		name = symbol
	}

	values := make(map[string]any, len(fieldDefaults))
	for field, def := range fieldDefaults {
		switch d := def.(type) {
		case float64:
			if v, ok := record.Float(field); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
				values[field] = v
			} else {
				values[field] = d
			}
		case string:
			if v, ok := record.String(field); ok {
				values[field] = v
			} else {
				values[field] = d
			}
		}
	}
	return Snapshot{Name: name, Values: values}
}

// Lines renders the metrics in display order.
func (s Snapshot) Lines(currency string) []Line {
	lines := make([]Line, 0, len(detailLines))
	for _, dl := range detailLines {
		var value string
		switch v := s.Values[dl.Field].(type) {
		case float64:
			if dl.Field == dataflows.FieldMarketCap {
				value = formatMarketCap(v, currency)
			} else {
				value = strconv.FormatFloat(v, 'f', -1, 64)
			}
		case string:
			value = v
		default:
			value = notAvailable
		}
		lines = append(lines, Line{Label: dl.Label, Value: value})
	}
	return lines
}

// Format is the text written to the result box: the company name followed
// by one "Label: value" line per metric.
func (s Snapshot) Format(currency string) string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	sb.WriteString("\n")
	for _, l := range s.Lines(currency) {
		sb.WriteString(l.Label)
		sb.WriteString(": ")
		sb.WriteString(l.Value)
		sb.WriteString("\n")
	}
	return sb.String()
}

// maxFormatFloat bounds what FormatFloat can render; it overflows int64 above.
const maxFormatFloat = 9e18

func formatMarketCap(v float64, currency string) string {
	var out string
	if math.Abs(v) < maxFormatFloat {
		out = humanize.FormatFloat("#,###.##", v)
	} else {
		out = humanize.Commaf(math.Round(v))
	}
	if currency != "" {
		out += " " + currency
	}
	return out
}
