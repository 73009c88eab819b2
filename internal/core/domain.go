package core

import (
	"errors"
	"strconv"
	"strings"
)

// Category labels produced by the pipeline itself (as opposed to labels
// coming from the enrichment rules).
const (
	CategoryBalance        = "Balance"
	CategoryTotalSpendings = "Total Spendings"
	CategoryDeposit        = "Deposit"
	CategoryOther          = "Other"
)

// AccountUnknown is the bucket for rows with a blank account field.
const AccountUnknown = "Unknown"

// HighlightType marks why a cell is visually flagged in the results view.
type HighlightType string

const (
	HighlightOutlier  HighlightType = "outlier"
	HighlightPareto   HighlightType = "pareto"
	HighlightExcluded HighlightType = "excluded"
)

type (
	// Row is a single parsed transaction from a bank CSV export.
	// Amount stays textual until summation; Category is empty until
	// enrichment assigns one.
	Row struct {
		Date     string
		Type     string
		Partner  string
		Amount   string
		Currency string
		Account  string
		Category string
	}

	// DateField identifies a time bucket. Timestamp is the canonical key
	// (first-of-month or range start, epoch seconds, UTC); Display is only
	// a human label and must never be used for identity.
	DateField struct {
		Display   string `json:"display"`
		Timestamp int64  `json:"timestamp"`
	}

	// DisplayRawField pairs a formatted amount with its numeric value.
	DisplayRawField struct {
		Display string  `json:"display"`
		Raw     float64 `json:"raw"`
	}

	// DetailRow is one contributing transaction under an aggregated row.
	DetailRow struct {
		RowID    string          `json:"row_id"`
		Date     DateField       `json:"date"`
		Amount   DisplayRawField `json:"amount"`
		Merchant string          `json:"merchant"`
		Currency string          `json:"currency"`
		Account  string          `json:"account"`
	}

	// AggregatedRow is one (category, period) cell of the results table.
	// RowID is generated once at construction and is the only join key
	// used by highlighting.
	AggregatedRow struct {
		RowID        string          `json:"row_id"`
		Category     string          `json:"category"`
		Total        DisplayRawField `json:"total"`
		Date         DateField       `json:"date"`
		Details      []DetailRow     `json:"details"`
		IsCalculated bool            `json:"is_calculated"`
	}

	// DataTablesResponse holds one account's aggregated rows for a run.
	DataTablesResponse struct {
		Data        []AggregatedRow      `json:"data"`
		Account     string               `json:"account"`
		Currency    string               `json:"currency"`
		Statistical *StatisticalMetadata `json:"statistical_metadata,omitempty"`
	}

	// CellHighlight annotates one aggregated row by exact RowID match.
	CellHighlight struct {
		RowID         string        `json:"row_id"`
		HighlightType HighlightType `json:"highlight_type"`
	}

	StatisticalMetadata struct {
		Highlights []CellHighlight `json:"highlights"`
	}

	// CachedResult is the unit stored in the result cache under a result id.
	// Metadata is keyed by account, mirroring Responses.
	CachedResult struct {
		Responses map[string]*DataTablesResponse  `json:"responses"`
		Metadata  map[string]*StatisticalMetadata `json:"metadata"`
	}
)

var (
	ErrEmptyDate     = errors.New("date value cannot be empty")
	ErrInvalidAmount = errors.New("invalid amount")
)

// AmountValue parses the textual amount. Both "12.34" and "12,34" appear in
// real exports.
func (r Row) AmountValue() (float64, error) {
	s := strings.TrimSpace(r.Amount)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// AccountKey returns the trimmed account or AccountUnknown when blank.
func (r Row) AccountKey() string {
	account := strings.TrimSpace(r.Account)
	if account == "" {
		return AccountUnknown
	}
	return account
}
