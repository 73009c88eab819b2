package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"whatsthedamage/internal/enrich"
)

// CSVMapping names the CSV header for each row field. Empty entries fall
// back to the conventional header names.
type CSVMapping struct {
	Date     string `yaml:"date"`
	Type     string `yaml:"type"`
	Partner  string `yaml:"partner"`
	Amount   string `yaml:"amount"`
	Currency string `yaml:"currency"`
	Account  string `yaml:"account"`
}

// CSVRules describes how to read the bank export.
type CSVRules struct {
	Delimiter string     `yaml:"delimiter"`
	Mapping   CSVMapping `yaml:"mapping"`
}

// Rules is the processing rules file: CSV layout, date format, category
// patterns, exclusions and analysis defaults.
type Rules struct {
	CSV        CSVRules           `yaml:"csv"`
	DateFormat string             `yaml:"date_format"`
	Patterns   enrich.PatternSets `yaml:"patterns"`

	// Exclusions maps algorithm name (or "default") to excluded categories.
	Exclusions map[string][]string `yaml:"exclusions"`

	Algorithms           []string `yaml:"algorithms"`
	UseDefaultDirections bool     `yaml:"use_default_directions"`
	Direction            string   `yaml:"direction"`
	FilterExpensesOnly   *bool    `yaml:"filter_expenses_only"`
}

// DefaultRules returns rules for a conventional export: comma-delimited,
// ISO dates, both algorithms in their preferred directions, expense filter
// on.
func DefaultRules() *Rules {
	on := true
	return &Rules{
		CSV: CSVRules{
			Delimiter: ",",
			Mapping: CSVMapping{
				Date:     "date",
				Type:     "type",
				Partner:  "partner",
				Amount:   "amount",
				Currency: "currency",
				Account:  "account",
			},
		},
		DateFormat:           "2006-01-02",
		Algorithms:           []string{"iqr", "pareto"},
		UseDefaultDirections: true,
		FilterExpensesOnly:   &on,
	}
}

// LoadRules reads and validates a rules file, filling defaults for omitted
// fields.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses rules from YAML bytes.
func ParseRules(data []byte) (*Rules, error) {
	rules := DefaultRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	rules.fillDefaults()
	return rules, nil
}

func (r *Rules) validate() error {
	if len(r.CSV.Delimiter) > 1 {
		return fmt.Errorf("invalid csv delimiter %q: must be a single character", r.CSV.Delimiter)
	}
	if r.Direction != "" && r.Direction != "columns" && r.Direction != "rows" {
		return fmt.Errorf("invalid direction %q: must be 'columns' or 'rows'", r.Direction)
	}
	for algorithm, categories := range r.Exclusions {
		if algorithm == "" {
			return fmt.Errorf("exclusions: algorithm name cannot be empty")
		}
		for _, category := range categories {
			if category == "" {
				return fmt.Errorf("exclusions for %q: category cannot be empty", algorithm)
			}
		}
	}
	return nil
}

func (r *Rules) fillDefaults() {
	defaults := DefaultRules()
	if r.CSV.Delimiter == "" {
		r.CSV.Delimiter = defaults.CSV.Delimiter
	}
	if r.CSV.Mapping.Date == "" {
		r.CSV.Mapping.Date = defaults.CSV.Mapping.Date
	}
	if r.CSV.Mapping.Type == "" {
		r.CSV.Mapping.Type = defaults.CSV.Mapping.Type
	}
	if r.CSV.Mapping.Partner == "" {
		r.CSV.Mapping.Partner = defaults.CSV.Mapping.Partner
	}
	if r.CSV.Mapping.Amount == "" {
		r.CSV.Mapping.Amount = defaults.CSV.Mapping.Amount
	}
	if r.CSV.Mapping.Currency == "" {
		r.CSV.Mapping.Currency = defaults.CSV.Mapping.Currency
	}
	if r.CSV.Mapping.Account == "" {
		r.CSV.Mapping.Account = defaults.CSV.Mapping.Account
	}
	if r.DateFormat == "" {
		r.DateFormat = defaults.DateFormat
	}
	if len(r.Algorithms) == 0 {
		r.Algorithms = defaults.Algorithms
	}
	if r.FilterExpensesOnly == nil {
		r.FilterExpensesOnly = defaults.FilterExpensesOnly
	}
}

// ExpensesOnly reports the effective expense filter setting.
func (r *Rules) ExpensesOnly() bool {
	return r.FilterExpensesOnly == nil || *r.FilterExpensesOnly
}
