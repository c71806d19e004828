// Package correlation measures how asset prices move together.
package correlation

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/stats"
)

// TopPairsLimit caps the correlated and inverse pair lists.
const TopPairsLimit = 5

// Series is the price history of one asset, oldest first.
type Series struct {
	AssetID string
	Symbol  string
	Points  []stats.Point
}

// Pair is the correlation of two assets.
type Pair struct {
	Asset1ID     string          `json:"asset1_id"`
	Asset1Symbol string          `json:"asset1_symbol"`
	Asset2ID     string          `json:"asset2_id"`
	Asset2Symbol string          `json:"asset2_symbol"`
	Correlation  decimal.Decimal `json:"correlation"`
}

// Result is the pairwise correlation of a set of assets. Matrix is keyed
// by asset ID since a symbol is only unique within an asset type; Symbols
// maps each ID to its display symbol.
type Result struct {
	Matrix        map[string]map[string]decimal.Decimal `json:"correlation_matrix"`
	Symbols       map[string]string                     `json:"symbols"`
	TopCorrelated []Pair                                `json:"top_correlated_pairs"`
	TopInverse    []Pair                                `json:"top_inverse_pairs"`
}

// Pearson returns the correlation coefficient of the period returns of two
// equal-length price series, rounded to 4 digits. It is zero when the series
// are shorter than two, differ in length, or either return series is flat.
// A period is dropped from both series when either starting price is not
// positive.
func Pearson(prices1, prices2 []decimal.Decimal) decimal.Decimal {
	if len(prices1) != len(prices2) || len(prices1) < 2 {
		return decimal.Zero
	}

	var r1, r2 []decimal.Decimal
	for i := 1; i < len(prices1); i++ {
		p1, p2 := prices1[i-1], prices2[i-1]
		if !p1.IsPositive() || !p2.IsPositive() {
			continue
		}
		r1 = append(r1, finmath.Ratio(prices1[i].Sub(p1), p1))
		r2 = append(r2, finmath.Ratio(prices2[i].Sub(p2), p2))
	}
	if flat(r1) || flat(r2) {
		return decimal.Zero
	}

	// The N vs N-1 normalisation cancels out in the coefficient.
	c := stat.Correlation(floats(r1), floats(r2), nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return decimal.Zero
	}
	c = math.Max(-1, math.Min(1, c))
	return decimal.NewFromFloat(c).Round(finmath.PercentScale)
}

// flat reports whether xs has zero standard deviation.
func flat(xs []decimal.Decimal) bool {
	for _, x := range xs {
		if !x.Equal(xs[0]) {
			return false
		}
	}
	return true
}

func floats(xs []decimal.Decimal) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.InexactFloat64()
	}
	return out
}

// Align reduces two series to the UTC days both have a price for, keeping the
// last price of each day, and returns the two aligned price lists.
func Align(a, b []stats.Point) ([]decimal.Decimal, []decimal.Decimal) {
	byDayA := lastPerDay(a)
	byDayB := lastPerDay(b)

	days := make([]time.Time, 0, len(byDayA))
	for day := range byDayA {
		if _, ok := byDayB[day]; ok {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	x := make([]decimal.Decimal, len(days))
	y := make([]decimal.Decimal, len(days))
	for i, day := range days {
		x[i] = byDayA[day]
		y[i] = byDayB[day]
	}
	return x, y
}

func lastPerDay(points []stats.Point) map[time.Time]decimal.Decimal {
	sorted := make([]stats.Point, len(points))
	copy(sorted, points)
	stats.SortPoints(sorted)

	out := make(map[time.Time]decimal.Decimal, len(sorted))
	for _, p := range sorted {
		out[p.Date.UTC().Truncate(24*time.Hour)] = p.Value
	}
	return out
}

// Analyze correlates every pair of series. The matrix is keyed by asset ID,
// symmetric, with 1 on the diagonal.
func Analyze(series []Series) Result {
	res := Result{
		Matrix:        make(map[string]map[string]decimal.Decimal, len(series)),
		Symbols:       make(map[string]string, len(series)),
		TopCorrelated: []Pair{},
		TopInverse:    []Pair{},
	}
	for _, s := range series {
		res.Matrix[s.AssetID] = map[string]decimal.Decimal{s.AssetID: decimal.NewFromInt(1)}
		res.Symbols[s.AssetID] = s.Symbol
	}

	var pairs []Pair
	for i := 0; i < len(series); i++ {
		for j := i + 1; j < len(series); j++ {
			x, y := Align(series[i].Points, series[j].Points)
			c := Pearson(x, y)
			a, b := series[i], series[j]
			res.Matrix[a.AssetID][b.AssetID] = c
			res.Matrix[b.AssetID][a.AssetID] = c
			pairs = append(pairs, Pair{
				Asset1ID:     a.AssetID,
				Asset1Symbol: a.Symbol,
				Asset2ID:     b.AssetID,
				Asset2Symbol: b.Symbol,
				Correlation:  c,
			})
		}
	}

	for _, p := range pairs {
		switch {
		case p.Correlation.IsPositive():
			res.TopCorrelated = append(res.TopCorrelated, p)
		case p.Correlation.IsNegative():
			res.TopInverse = append(res.TopInverse, p)
		}
	}
	sort.SliceStable(res.TopCorrelated, func(i, j int) bool {
		return res.TopCorrelated[i].Correlation.GreaterThan(res.TopCorrelated[j].Correlation)
	})
	sort.SliceStable(res.TopInverse, func(i, j int) bool {
		return res.TopInverse[i].Correlation.LessThan(res.TopInverse[j].Correlation)
	})
	if len(res.TopCorrelated) > TopPairsLimit {
		res.TopCorrelated = res.TopCorrelated[:TopPairsLimit]
	}
	if len(res.TopInverse) > TopPairsLimit {
		res.TopInverse = res.TopInverse[:TopPairsLimit]
	}
	return res
}
