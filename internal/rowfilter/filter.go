// Package rowfilter partitions parsed transaction rows by account and by
// time period. Period grouping is keyed by canonical epoch timestamps, never
// by display text.
package rowfilter

import (
	"fmt"
	"sort"

	"whatsthedamage/internal/core"
	"whatsthedamage/internal/datetime"
)

// PeriodRows is one time bucket and the rows that fall into it.
type PeriodRows struct {
	Period core.DateField
	Rows   []core.Row
}

// Filter groups a fixed row set. The zero value is not usable; construct
// with New.
type Filter struct {
	rows   []core.Row
	layout string
}

func New(rows []core.Row, layout string) *Filter {
	return &Filter{rows: rows, layout: layout}
}

// ByAccount groups rows by their trimmed account field. Rows without an
// account end up under core.AccountUnknown.
func (f *Filter) ByAccount() map[string][]core.Row {
	accounts := make(map[string][]core.Row)
	for _, row := range f.rows {
		key := row.AccountKey()
		accounts[key] = append(accounts[key], row)
	}
	return accounts
}

// ByDate returns a single period covering [start, end] inclusive, with the
// range start as the canonical timestamp and "{start} - {end}" as display.
func (f *Filter) ByDate(start, end int64) ([]PeriodRows, error) {
	var matched []core.Row
	for _, row := range f.rows {
		epoch, err := datetime.ToEpoch(row.Date, f.layout)
		if err != nil {
			return nil, fmt.Errorf("filter by date: %w", err)
		}
		if epoch >= start && epoch <= end {
			matched = append(matched, row)
		}
	}

	period := core.DateField{
		Display:   datetime.FromEpoch(start, f.layout) + " - " + datetime.FromEpoch(end, f.layout),
		Timestamp: start,
	}
	return []PeriodRows{{Period: period, Rows: matched}}, nil
}

// ByMonth buckets rows by the first-of-month epoch of their own date and
// returns the buckets in ascending timestamp order.
func (f *Filter) ByMonth() ([]PeriodRows, error) {
	buckets := make(map[int64]*PeriodRows)
	for _, row := range f.rows {
		period, err := f.monthField(row.Date)
		if err != nil {
			return nil, fmt.Errorf("filter by month: %w", err)
		}
		bucket, ok := buckets[period.Timestamp]
		if !ok {
			bucket = &PeriodRows{Period: period}
			buckets[period.Timestamp] = bucket
		}
		bucket.Rows = append(bucket.Rows, row)
	}

	out := make([]PeriodRows, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period.Timestamp < out[j].Period.Timestamp
	})
	return out, nil
}

// monthField builds the DateField for the month a date falls in: month name
// as display, first-of-month epoch as the canonical timestamp.
func (f *Filter) monthField(value string) (core.DateField, error) {
	timestamp, err := datetime.StartOfMonthEpoch(value, f.layout)
	if err != nil {
		return core.DateField{}, err
	}
	month, err := datetime.Month(value, f.layout)
	if err != nil {
		return core.DateField{}, err
	}
	display, err := datetime.MonthName(month)
	if err != nil {
		return core.DateField{}, err
	}
	return core.DateField{Display: display, Timestamp: timestamp}, nil
}
