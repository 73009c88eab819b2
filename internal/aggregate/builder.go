// Package aggregate turns categorized, period-bucketed rows into the
// aggregated response consumed by the presentation layer and the analysis
// engine.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"whatsthedamage/internal/core"
	"whatsthedamage/internal/datetime"
)

// ResponseBuilder accumulates aggregated rows for one account and appends
// the per-period calculated rows on Build. Row identifiers are generated
// here, once, and stay stable for the lifetime of a cached result.
type ResponseBuilder struct {
	layout      string
	account     string
	rows        []core.AggregatedRow
	calculators []PeriodCalculator
	currency    string
}

// Option customizes a ResponseBuilder.
type Option func(*ResponseBuilder)

// WithCalculators replaces the default calculated-row set. An empty slice
// disables calculated rows entirely.
func WithCalculators(calculators []PeriodCalculator) Option {
	return func(b *ResponseBuilder) {
		b.calculators = calculators
	}
}

func NewResponseBuilder(layout, account string, opts ...Option) *ResponseBuilder {
	b := &ResponseBuilder{
		layout:      layout,
		account:     account,
		calculators: DefaultCalculators(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddCategoryData appends one aggregated row for a (category, period) pair,
// with one detail row per contributing transaction.
func (b *ResponseBuilder) AddCategoryData(category string, rows []core.Row, total float64, period core.DateField) {
	currency := currencyOf(rows)
	if b.currency == "" {
		b.currency = currency
	}

	b.rows = append(b.rows, core.AggregatedRow{
		RowID:    uuid.NewString(),
		Category: category,
		Total:    displayRaw(total, currency),
		Date:     period,
		Details:  b.buildDetailRows(rows),
	})
}

// Build finishes the response: calculated rows are derived per period from
// the category totals accumulated so far. An empty builder yields an empty
// response with no calculated rows.
func (b *ResponseBuilder) Build() core.DataTablesResponse {
	data := make([]core.AggregatedRow, len(b.rows))
	copy(data, b.rows)

	// Collect category totals per period, keyed by canonical timestamp.
	type periodTotals struct {
		period core.DateField
		totals []float64
	}
	periods := make(map[int64]*periodTotals)
	var order []int64
	for _, row := range b.rows {
		pt, ok := periods[row.Date.Timestamp]
		if !ok {
			pt = &periodTotals{period: row.Date}
			periods[row.Date.Timestamp] = pt
			order = append(order, row.Date.Timestamp)
		}
		pt.totals = append(pt.totals, row.Total.Raw)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	for _, calc := range b.calculators {
		for _, ts := range order {
			pt := periods[ts]
			data = append(data, core.AggregatedRow{
				RowID:        uuid.NewString(),
				Category:     calc.Category(),
				Total:        displayRaw(calc.Total(pt.totals), b.currency),
				Date:         pt.period,
				Details:      []core.DetailRow{},
				IsCalculated: true,
			})
		}
	}

	return core.DataTablesResponse{
		Data:     data,
		Account:  b.account,
		Currency: b.currency,
	}
}

func (b *ResponseBuilder) buildDetailRows(rows []core.Row) []core.DetailRow {
	details := make([]core.DetailRow, 0, len(rows))
	for _, row := range rows {
		amount, err := row.AmountValue()
		if err != nil {
			// Unparsable amounts were already worth zero during summation.
			amount = 0
		}

		date := core.DateField{Display: row.Date}
		if epoch, err := datetime.ToEpoch(row.Date, b.layout); err == nil {
			date.Timestamp = epoch
		}

		details = append(details, core.DetailRow{
			RowID:    uuid.NewString(),
			Date:     date,
			Amount:   displayRaw(amount, row.Currency),
			Merchant: row.Partner,
			Currency: row.Currency,
			Account:  row.AccountKey(),
		})
	}
	return details
}

// SumAmounts totals the parseable amounts of a row slice. Unparsable values
// count as zero, matching the forgiving summation of bank exports where
// stray text sometimes appears in the amount column.
func SumAmounts(rows []core.Row) float64 {
	total := 0.0
	for _, row := range rows {
		if v, err := row.AmountValue(); err == nil {
			total += v
		}
	}
	return total
}

// GroupByCategory splits rows by their assigned category, preserving row
// order inside each group.
func GroupByCategory(rows []core.Row) map[string][]core.Row {
	groups := make(map[string][]core.Row)
	for _, row := range rows {
		groups[row.Category] = append(groups[row.Category], row)
	}
	return groups
}

func displayRaw(amount float64, currency string) core.DisplayRawField {
	display := fmt.Sprintf("%.2f", amount)
	if currency != "" {
		display += " " + currency
	}
	return core.DisplayRawField{Display: display, Raw: amount}
}

func currencyOf(rows []core.Row) string {
	for _, row := range rows {
		if row.Currency != "" {
			return row.Currency
		}
	}
	return ""
}
