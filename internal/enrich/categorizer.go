// Package enrich assigns a spending category to each transaction row.
//
// Categorization is a pluggable strategy: the pattern matcher works from
// configured text patterns, while the classifier adapter delegates to an
// external classification service. The pipeline depends only on the
// Categorizer interface.
package enrich

import (
	"context"

	"whatsthedamage/internal/core"
)

// Categorizer returns a category label for a row. An empty label means
// "no opinion" and triggers the sign-based fallback.
type Categorizer interface {
	Categorize(ctx context.Context, row core.Row) (string, error)
}

// FallbackCategory is the label used when no pattern matches and no
// classifier is configured: Deposit for positive amounts, Other for
// everything else (including unparsable amounts).
func FallbackCategory(row core.Row) string {
	amount, err := row.AmountValue()
	if err == nil && amount > 0 {
		return core.CategoryDeposit
	}
	return core.CategoryOther
}

// BatchCategorizer is an optional extension for categorizers that can label
// a whole row list in one call.
type BatchCategorizer interface {
	Categorizer
	CategorizeAll(ctx context.Context, rows []core.Row) ([]core.Row, error)
}

// Enricher applies a Categorizer over a row slice, filling in the Category
// field. A nil Categorizer means fallback-only enrichment.
type Enricher struct {
	categorizer Categorizer
}

func New(categorizer Categorizer) *Enricher {
	return &Enricher{categorizer: categorizer}
}

// Apply returns a copy of rows with Category set on every row. Categorizers
// implementing BatchCategorizer are called once for the whole list.
func (e *Enricher) Apply(ctx context.Context, rows []core.Row) ([]core.Row, error) {
	if batch, ok := e.categorizer.(BatchCategorizer); ok {
		labeled, err := batch.CategorizeAll(ctx, rows)
		if err != nil {
			return nil, err
		}
		out := make([]core.Row, len(labeled))
		for i, row := range labeled {
			if row.Category == "" {
				row.Category = FallbackCategory(row)
			}
			out[i] = row
		}
		return out, nil
	}

	out := make([]core.Row, len(rows))
	for i, row := range rows {
		label := ""
		if e.categorizer != nil {
			var err error
			label, err = e.categorizer.Categorize(ctx, row)
			if err != nil {
				return nil, err
			}
		}
		if label == "" {
			label = FallbackCategory(row)
		}
		row.Category = label
		out[i] = row
	}
	return out, nil
}
