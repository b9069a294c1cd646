// Package predict fits a straight line of closing price against elapsed days
// and extrapolates one day past the last observation.
package predict

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/dyike/StockAnalyzer/internal/dataflows"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptySeries is returned when there is no price history at all.
	ErrEmptySeries = errors.New("empty price series")
	// ErrInsufficientData is returned when the split leaves nothing to train on.
	ErrInsufficientData = errors.New("not enough observations to fit")
)

const day = 24 * 60 * 60

// Options controls the train/test split.
type Options struct {
	TestSize float64
	Seed     int64
}

// DefaultOptions is an 80/20 split with seed 42.
func DefaultOptions() Options {
	return Options{TestSize: 0.2, Seed: 42}
}

// Model is an ordinary least squares line.
type Model struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x.
func (m Model) At(x float64) float64 {
	return m.Intercept + m.Slope*x
}

// Forecast is the outcome of one prediction.
type Forecast struct {
	Price     float64
	NextDay   int
	Model     Model
	HeldOutR2 float64
	TrainSize int
	TestSize  int
}

// DayOffsets converts the series dates to whole days since the earliest date.
// The returned slices are index-aligned with series.
func DayOffsets(series dataflows.PriceSeries) (x, y []float64, err error) {
	if len(series) == 0 {
		return nil, nil, ErrEmptySeries
	}

	earliest := series[0].Date
	for _, p := range series[1:] {
		if p.Date.Before(earliest) {
			earliest = p.Date
		}
	}

	x = make([]float64, len(series))
	y = make([]float64, len(series))
	for i, p := range series {
		x[i] = math.Floor(float64(p.Date.Unix()-earliest.Unix()) / day)
		y[i] = p.Close.InexactFloat64()
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return nil, nil, fmt.Errorf("invalid close at %s", p.Date.Format("2006-01-02"))
		}
	}
	return x, y, nil
}

// TrainTestSplit returns index sets for a seeded shuffle of n rows. The test
// set holds ceil(testSize*n) rows and the training set the rest.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int, err error) {
	if n == 0 {
		return nil, nil, ErrEmptySeries
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be between 0 and 1, got %v", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		return nil, nil, fmt.Errorf("%w: %d observations leave an empty training set", ErrInsufficientData, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Fit runs ordinary least squares of y on x. A degenerate x range yields a
// flat line through the mean of y.
func Fit(x, y []float64) (Model, error) {
	if len(x) != len(y) {
		return Model{}, fmt.Errorf("length mismatch: %d x values, %d y values", len(x), len(y))
	}
	if len(x) == 0 {
		return Model{}, ErrInsufficientData
	}

	if len(x) == 1 || stat.Variance(x, nil) == 0 {
		return Model{Intercept: stat.Mean(y, nil)}, nil
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return Model{Slope: beta, Intercept: alpha}, nil
}

// Next fits on the training partition and predicts the close one day after
// the last observation. The held-out partition is only scored.
func Next(series dataflows.PriceSeries, opts Options) (Forecast, error) {
	x, y, err := DayOffsets(series)
	if err != nil {
		return Forecast{}, err
	}

	trainIdx, testIdx, err := TrainTestSplit(len(x), opts.TestSize, opts.Seed)
	if err != nil {
		return Forecast{}, err
	}

	trainX, trainY := pick(x, trainIdx), pick(y, trainIdx)
	model, err := Fit(trainX, trainY)
	if err != nil {
		return Forecast{}, err
	}

	maxX := x[0]
	for _, v := range x[1:] {
		maxX = math.Max(maxX, v)
	}
	next := maxX + 1

	price := model.At(next)
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return Forecast{}, fmt.Errorf("regression produced a non-finite price")
	}

	return Forecast{
		Price:     price,
		NextDay:   int(next),
		Model:     model,
		HeldOutR2: heldOutR2(pick(x, testIdx), pick(y, testIdx), model),
		TrainSize: len(trainIdx),
		TestSize:  len(testIdx),
	}, nil
}

// heldOutR2 is NaN when the held-out closes have no variance.
func heldOutR2(x, y []float64, m Model) float64 {
	if len(x) < 2 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	return stat.RSquared(x, y, nil, m.Intercept, m.Slope)
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
