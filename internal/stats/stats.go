// Package stats computes return and risk figures from a portfolio's
// snapshot value series.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/finmath"
)

// Point is one dated portfolio value.
type Point struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// PeriodReturn returns (current-previous)/previous × 100, or zero when
// previous is zero.
func PeriodReturn(previous, current decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return finmath.Ratio(current.Sub(previous), previous).Mul(finmath.Hundred)
}

// Returns computes the period-over-period ratio returns of values, rounded to
// 8 fractional digits. Periods starting from a non-positive value are skipped.
func Returns(values []decimal.Decimal) []decimal.Decimal {
	if len(values) < 2 {
		return nil
	}
	out := make([]decimal.Decimal, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if !prev.IsPositive() {
			continue
		}
		out = append(out, finmath.Ratio(values[i].Sub(prev), prev))
	}
	return out
}

// PopulationStdDev is the divide-by-N standard deviation of xs.
func PopulationStdDev(xs []decimal.Decimal) decimal.Decimal {
	if len(xs) == 0 {
		return decimal.Zero
	}
	std := stat.PopStdDev(toFloats(xs), nil)
	if math.IsNaN(std) || math.IsInf(std, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(std)
}

// Mean is the arithmetic mean of xs, exact in decimal.
func Mean(xs []decimal.Decimal) decimal.Decimal {
	if len(xs) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(xs[0], xs[1:]...).DivRound(decimal.NewFromInt(int64(len(xs))), finmath.PriceScale)
}

// Volatility is the population standard deviation of the ratio returns of
// values, expressed as a percentage. Zero for fewer than two values.
func Volatility(values []decimal.Decimal) decimal.Decimal {
	if len(values) < 2 {
		return decimal.Zero
	}
	returns := Returns(values)
	if len(returns) == 0 {
		return decimal.Zero
	}
	return PopulationStdDev(returns).Mul(finmath.Hundred).Round(finmath.PercentScale)
}

// SharpeRatio is the mean percent return divided by Volatility, with a
// risk-free rate of zero. Zero when volatility is zero or there are fewer
// than two values.
func SharpeRatio(values []decimal.Decimal) decimal.Decimal {
	vol := Volatility(values)
	if vol.IsZero() {
		return decimal.Zero
	}
	mean := Mean(Returns(values)).Mul(finmath.Hundred)
	return mean.DivRound(vol, finmath.PercentScale)
}

// Values extracts the values of points, in order.
func Values(points []Point) []decimal.Decimal {
	out := make([]decimal.Decimal, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// SortPoints orders points oldest first.
func SortPoints(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}

// ValueAt returns the value of the latest point dated at or before target.
// points may be in any order.
func ValueAt(points []Point, target time.Time) (decimal.Decimal, bool) {
	newestFirst := make([]Point, len(points))
	copy(newestFirst, points)
	sort.SliceStable(newestFirst, func(i, j int) bool {
		return newestFirst[i].Date.After(newestFirst[j].Date)
	})
	for _, p := range newestFirst {
		if !p.Date.After(target) {
			return p.Value, true
		}
	}
	return decimal.Zero, false
}

// HorizonReturns holds the percent change of the current value against the
// value one day, week, month and year ago.
type HorizonReturns struct {
	Daily   decimal.Decimal `json:"daily_return"`
	Weekly  decimal.Decimal `json:"weekly_return"`
	Monthly decimal.Decimal `json:"monthly_return"`
	Yearly  decimal.Decimal `json:"yearly_return"`
}

// ComputeHorizonReturns compares current against the snapshot in effect at
// each horizon. A horizon with no snapshot at or before it yields zero.
func ComputeHorizonReturns(points []Point, current decimal.Decimal, now time.Time) HorizonReturns {
	at := func(target time.Time) decimal.Decimal {
		past, ok := ValueAt(points, target)
		if !ok {
			return decimal.Zero
		}
		return PeriodReturn(past, current)
	}
	return HorizonReturns{
		Daily:   at(now.AddDate(0, 0, -1)),
		Weekly:  at(now.AddDate(0, 0, -7)),
		Monthly: at(now.AddDate(0, -1, 0)),
		Yearly:  at(now.AddDate(-1, 0, 0)),
	}
}

func toFloats(xs []decimal.Decimal) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.InexactFloat64()
	}
	return out
}
