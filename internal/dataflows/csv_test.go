package dataflows

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVManagerWriteAndRead(t *testing.T) {
	m := NewCSVManager(t.TempDir())
	series := PriceSeries{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Close: decimal.RequireFromString("2950.4")},
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Close: decimal.RequireFromString("2987.15")},
	}

	path, err := m.WriteSeries("RELIANCE.NS", series)
	require.NoError(t, err)
	assert.Contains(t, path, "RELIANCE.NS_closes_2_records_")

	latest, err := m.FindLatest("RELIANCE.NS")
	require.NoError(t, err)
	assert.Equal(t, path, latest)

	got, err := m.ReadSeries(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Close.Equal(series[1].Close))
	assert.True(t, got[0].Date.Equal(series[0].Date))
}

func TestCSVManagerFindLatestMissing(t *testing.T) {
	_, err := NewCSVManager(t.TempDir()).FindLatest("TCS.NS")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteSeriesCSVFormat(t *testing.T) {
	var buf bytes.Buffer
	series := PriceSeries{{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: decimal.RequireFromString("1510.25")}}
	require.NoError(t, WriteSeriesCSV(&buf, "INFY.NS", series))
	assert.Equal(t, "Symbol,Date,Close\nINFY.NS,2024-01-02,1510.25\n", buf.String())
}

func TestReadSeriesCSVSortsAndRejectsBadRows(t *testing.T) {
	got, err := ReadSeriesCSV(strings.NewReader("Symbol,Date,Close\nX,2024-01-03,2\nX,2024-01-02,1\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Date.Day())

	_, err = ReadSeriesCSV(strings.NewReader("Symbol,Date,Close\nX,03/01/2024,2\n"))
	assert.ErrorContains(t, err, "invalid date")

	_, err = ReadSeriesCSV(strings.NewReader("Symbol,Date,Close\nX,2024-01-03,abc\n"))
	assert.ErrorContains(t, err, "invalid close")

	_, err = ReadSeriesCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestCSVManagerReadMissingFile(t *testing.T) {
	_, err := NewCSVManager(t.TempDir()).ReadSeries("does-not-exist.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
