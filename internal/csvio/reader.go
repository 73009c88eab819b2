// Package csvio reads bank export CSV files into rows using a configurable
// header mapping.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"whatsthedamage/internal/config"
	"whatsthedamage/internal/core"
)

// HeaderError reports a mapped column missing from the CSV header.
type HeaderError struct {
	Column string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("csv header missing column %q", e.Column)
}

// Reader reads transaction rows from CSV input.
type Reader struct {
	rules config.CSVRules
}

func NewReader(rules config.CSVRules) *Reader {
	return &Reader{rules: rules}
}

// ReadFile reads all rows from a CSV file.
func (r *Reader) ReadFile(path string) ([]core.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()
	rows, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// Read parses CSV input. The first record is the header. Date, type, partner
// and amount columns must be present; currency and account are optional and
// default to empty.
func (r *Reader) Read(input io.Reader) ([]core.Row, error) {
	reader := csv.NewReader(input)
	if r.rules.Delimiter != "" {
		reader.Comma = rune(r.rules.Delimiter[0])
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []core.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	mapping := r.rules.Mapping
	required := []string{mapping.Date, mapping.Type, mapping.Partner, mapping.Amount}
	for _, column := range required {
		if _, ok := index[column]; !ok {
			return nil, &HeaderError{Column: column}
		}
	}

	field := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]core.Row, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		rows = append(rows, core.Row{
			Date:     field(record, mapping.Date),
			Type:     field(record, mapping.Type),
			Partner:  field(record, mapping.Partner),
			Amount:   field(record, mapping.Amount),
			Currency: field(record, mapping.Currency),
			Account:  field(record, mapping.Account),
		})
	}
	return rows, nil
}
