package dataflows

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoRecordFloat(t *testing.T) {
	r := InfoRecord{
		"f64":  1.5,
		"int":  7,
		"i64":  int64(8),
		"num":  json.Number("2.5"),
		"dec":  decimal.NewFromFloat(3.25),
		"str":  " 4.75 ",
		"bad":  "n/a",
		"bool": true,
	}

	for key, want := range map[string]float64{"f64": 1.5, "int": 7, "i64": 8, "num": 2.5, "dec": 3.25, "str": 4.75} {
		got, ok := r.Float(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	for _, key := range []string{"bad", "bool", "missing"} {
		_, ok := r.Float(key)
		assert.False(t, ok, key)
	}
}

func TestInfoRecordString(t *testing.T) {
	r := InfoRecord{"sector": "Energy", "blank": "  ", "num": 1.0}
	s, ok := r.String("sector")
	assert.True(t, ok)
	assert.Equal(t, "Energy", s)
	_, ok = r.String("blank")
	assert.False(t, ok)
	_, ok = r.String("num")
	assert.False(t, ok)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" 6MO ")
	require.NoError(t, err)
	assert.Equal(t, Period6Mo, p)
	assert.Equal(t, 126, p.TradingDays())

	_, err = ParsePeriod("10y")
	assert.Error(t, err)
}

func TestPeriodStart(t *testing.T) {
	end := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), Period1Y.Start(end))
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), Period1Mo.Start(end))
}
