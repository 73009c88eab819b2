// Package export renders processing results for people and spreadsheets:
// an aligned text summary, CSV output, and a Google Sheets appender behind
// a port interface.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"whatsthedamage/internal/core"
)

// SummaryRow is one line of the flattened result.
type SummaryRow struct {
	Account    string
	Period     string
	Category   string
	Total      string
	Highlights []string
}

// BuildSummary flattens a result into rows ordered by account, period and
// category. Calculated rows sort after regular ones within a period.
func BuildSummary(result core.CachedResult) []SummaryRow {
	highlightsByRow := make(map[string][]string)
	for _, meta := range result.Metadata {
		if meta == nil {
			continue
		}
		for _, h := range meta.Highlights {
			highlightsByRow[h.RowID] = append(highlightsByRow[h.RowID], string(h.HighlightType))
		}
	}

	accounts := make([]string, 0, len(result.Responses))
	for account := range result.Responses {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	summary := make([]SummaryRow, 0)
	for _, account := range accounts {
		resp := result.Responses[account]
		if resp == nil {
			continue
		}
		rows := make([]core.AggregatedRow, len(resp.Data))
		copy(rows, resp.Data)
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Date.Timestamp != rows[j].Date.Timestamp {
				return rows[i].Date.Timestamp < rows[j].Date.Timestamp
			}
			if rows[i].IsCalculated != rows[j].IsCalculated {
				return !rows[i].IsCalculated
			}
			return rows[i].Category < rows[j].Category
		})

		for _, row := range rows {
			marks := highlightsByRow[row.RowID]
			sort.Strings(marks)
			summary = append(summary, SummaryRow{
				Account:    account,
				Period:     row.Date.Display,
				Category:   row.Category,
				Total:      row.Total.Display,
				Highlights: marks,
			})
		}
	}
	return summary
}

// FormatText renders the summary as an aligned table.
func FormatText(result core.CachedResult) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tPERIOD\tCATEGORY\tTOTAL\tHIGHLIGHTS")
	for _, row := range BuildSummary(result) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			row.Account, row.Period, row.Category, row.Total,
			strings.Join(row.Highlights, ","))
	}
	w.Flush()
	return sb.String()
}

// WriteCSV writes the summary as CSV with a header record.
func WriteCSV(w io.Writer, result core.CachedResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"account", "period", "category", "total", "highlights"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range BuildSummary(result) {
		record := []string{row.Account, row.Period, row.Category, row.Total, strings.Join(row.Highlights, ",")}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
