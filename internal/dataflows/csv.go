package dataflows

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const csvDateLayout = "2006-01-02"

var csvHeaders = []string{"Symbol", "Date", "Close"}

// CSVManager stores daily closes under basePath/csv/market/{symbol}/.
type CSVManager struct {
	basePath string
}

func NewCSVManager(basePath string) *CSVManager {
	return &CSVManager{basePath: basePath}
}

// WriteSeries writes series to a new timestamped file and returns its path.
func (c *CSVManager) WriteSeries(symbol string, series PriceSeries) (string, error) {
	dirPath := filepath.Join(c.basePath, "csv", "market", symbol)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filename := fmt.Sprintf("%s_closes_%d_records_%s.csv",
		symbol, len(series), time.Now().Format("20060102_150405"))
	filePath := filepath.Join(dirPath, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if err := WriteSeriesCSV(file, symbol, series); err != nil {
		return "", err
	}
	return filePath, nil
}

// ReadSeries loads a file written by WriteSeries.
func (c *CSVManager) ReadSeries(filePath string) (PriceSeries, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()
	return ReadSeriesCSV(file)
}

// FindLatest returns the newest file for symbol, or ErrNotFound.
func (c *CSVManager) FindLatest(symbol string) (string, error) {
	pattern := filepath.Join(c.basePath, "csv", "market", symbol, symbol+"_closes_*_records_*.csv")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("failed to search CSV files: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: no CSV for %s", ErrNotFound, symbol)
	}
	// timestamp suffix sorts lexically
	sort.Strings(files)
	return files[len(files)-1], nil
}

func WriteSeriesCSV(w io.Writer, symbol string, series PriceSeries) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, p := range series {
		row := []string{symbol, p.Date.Format(csvDateLayout), p.Close.String()}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadSeriesCSV(r io.Reader) (PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeaders)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to read CSV: missing header")
	}

	series := make(PriceSeries, 0, len(records)-1)
	for i, rec := range records[1:] {
		date, err := time.Parse(csvDateLayout, rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", i+2, rec[1], err)
		}
		price, err := decimal.NewFromString(rec[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid close %q: %w", i+2, rec[2], err)
		}
		series = append(series, PricePoint{Date: date.UTC(), Close: price})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}
