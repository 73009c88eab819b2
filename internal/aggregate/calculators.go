package aggregate

import (
	"math"

	"whatsthedamage/internal/core"
)

// PeriodCalculator derives one extra row per period from the category totals
// of that period. Derived rows carry no transaction details and are marked
// calculated so the analysis engine can skip them.
type PeriodCalculator interface {
	// Category is the label the derived row is published under.
	Category() string
	// Total computes the derived value from the period's category totals.
	Total(categoryTotals []float64) float64
}

// BalanceCalculator sums every category total, giving the period's net
// balance.
type BalanceCalculator struct{}

func (BalanceCalculator) Category() string { return core.CategoryBalance }

func (BalanceCalculator) Total(categoryTotals []float64) float64 {
	sum := 0.0
	for _, v := range categoryTotals {
		sum += v
	}
	return sum
}

// TotalSpendingsCalculator sums the absolute values of negative category
// totals, giving the period's gross spending.
type TotalSpendingsCalculator struct{}

func (TotalSpendingsCalculator) Category() string { return core.CategoryTotalSpendings }

func (TotalSpendingsCalculator) Total(categoryTotals []float64) float64 {
	sum := 0.0
	for _, v := range categoryTotals {
		if v < 0 {
			sum += math.Abs(v)
		}
	}
	return sum
}

// DefaultCalculators returns the standard derived rows: Balance and
// Total Spendings, in publication order.
func DefaultCalculators() []PeriodCalculator {
	return []PeriodCalculator{BalanceCalculator{}, TotalSpendingsCalculator{}}
}
