package predict

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/dyike/StockAnalyzer/internal/dataflows"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

func linearSeries(n int, a, b float64) dataflows.PriceSeries {
	series := make(dataflows.PriceSeries, n)
	for d := 0; d < n; d++ {
		series[d] = dataflows.PricePoint{
			Date:  start.AddDate(0, 0, d),
			Close: decimal.NewFromFloat(a*float64(d) + b),
		}
	}
	return series
}

func TestNextRecoversExactLine(t *testing.T) {
	for _, n := range []int{5, 30, 252} {
		f, err := Next(linearSeries(n, 2.5, 100), DefaultOptions())
		require.NoError(t, err)
		assert.InDelta(t, 2.5*float64(n)+100, f.Price, 1e-6, "n=%d", n)
		assert.Equal(t, n, f.NextDay)
		assert.InDelta(t, 2.5, f.Model.Slope, 1e-9)
		assert.InDelta(t, 100, f.Model.Intercept, 1e-6)
	}
}

func TestNextFitsOnTrainingPartitionOnly(t *testing.T) {
	const n = 50
	opts := DefaultOptions()
	_, testIdx, err := TrainTestSplit(n, opts.TestSize, opts.Seed)
	require.NoError(t, err)

	series := linearSeries(n, -1.25, 400)
	for _, i := range testIdx {
		series[i].Close = decimal.NewFromInt(int64(1_000_000 + i))
	}

	f, err := Next(series, opts)
	require.NoError(t, err)
	assert.InDelta(t, -1.25*n+400, f.Price, 1e-6)
	assert.Equal(t, 40, f.TrainSize)
	assert.Equal(t, 10, f.TestSize)
	assert.Less(t, f.HeldOutR2, 0.0)
}

func TestNextEmptySeries(t *testing.T) {
	_, err := Next(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestNextSingleObservation(t *testing.T) {
	_, err := Next(linearSeries(1, 1, 1), DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestNextTwoObservations(t *testing.T) {
	f, err := Next(linearSeries(2, 3, 10), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, f.TrainSize)
	assert.Equal(t, 1, f.TestSize)
	assert.True(t, math.IsNaN(f.HeldOutR2))
	assert.Equal(t, 2, f.NextDay)
}

func TestFitDegenerateX(t *testing.T) {
	m, err := Fit([]float64{3, 3, 3}, []float64{1, 2, 6})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Slope)
	assert.InDelta(t, 3.0, m.Intercept, 1e-12)
}

func TestFitLengthMismatch(t *testing.T) {
	_, err := Fit([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestTrainTestSplit(t *testing.T) {
	tests := []struct {
		n, wantTest int
	}{
		{n: 10, wantTest: 2},
		{n: 11, wantTest: 3},
		{n: 252, wantTest: 51},
	}
	for _, tt := range tests {
		train, test, err := TrainTestSplit(tt.n, 0.2, 42)
		require.NoError(t, err)
		assert.Len(t, test, tt.wantTest)
		assert.Len(t, train, tt.n-tt.wantTest)

		all := append(append([]int{}, train...), test...)
		sort.Ints(all)
		for i, v := range all {
			require.Equal(t, i, v)
		}

		train2, test2, err := TrainTestSplit(tt.n, 0.2, 42)
		require.NoError(t, err)
		assert.Equal(t, train, train2)
		assert.Equal(t, test, test2)
	}

	_, _, err := TrainTestSplit(5, 1.5, 42)
	assert.Error(t, err)
}

func TestDayOffsets(t *testing.T) {
	series := dataflows.PriceSeries{
		{Date: start.AddDate(0, 0, 3).Add(2 * time.Hour), Close: decimal.NewFromInt(13)},
		{Date: start, Close: decimal.NewFromInt(10)},
		{Date: start.AddDate(0, 0, 7).Add(-time.Hour), Close: decimal.NewFromInt(16)},
	}

	x, y, err := DayOffsets(series)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0, 6}, x)
	assert.Equal(t, []float64{13, 10, 16}, y)
}
