package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleRules = `
csv:
  delimiter: ";"
  mapping:
    date: "Transaction date"
    amount: "Amount"
date_format: "2006.01.02"
patterns:
  type:
    - category: Deposit
      patterns: ["^salary$"]
  partner:
    - category: Grocery
      patterns: ["aldi", "lidl"]
    - category: Utilities
      patterns: ["power co"]
exclusions:
  default: ["Transfer"]
  pareto: ["Deposit"]
algorithms: ["pareto"]
use_default_directions: false
direction: "columns"
filter_expenses_only: false
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(sampleRules))
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}

	if rules.CSV.Delimiter != ";" {
		t.Errorf("Delimiter = %q, want ;", rules.CSV.Delimiter)
	}
	if rules.CSV.Mapping.Date != "Transaction date" {
		t.Errorf("Mapping.Date = %q", rules.CSV.Mapping.Date)
	}
	// Omitted mapping entries keep conventional names.
	if rules.CSV.Mapping.Partner != "partner" {
		t.Errorf("Mapping.Partner = %q, want partner", rules.CSV.Mapping.Partner)
	}
	if rules.DateFormat != "2006.01.02" {
		t.Errorf("DateFormat = %q", rules.DateFormat)
	}
	if len(rules.Patterns.Partner) != 2 || rules.Patterns.Partner[0].Category != "Grocery" {
		t.Errorf("Patterns.Partner = %+v, want Grocery first", rules.Patterns.Partner)
	}
	if got := rules.Exclusions["pareto"]; len(got) != 1 || got[0] != "Deposit" {
		t.Errorf("Exclusions[pareto] = %v", got)
	}
	if len(rules.Algorithms) != 1 || rules.Algorithms[0] != "pareto" {
		t.Errorf("Algorithms = %v", rules.Algorithms)
	}
	if rules.UseDefaultDirections {
		t.Error("UseDefaultDirections = true, want false")
	}
	if rules.Direction != "columns" {
		t.Errorf("Direction = %q", rules.Direction)
	}
	if rules.ExpensesOnly() {
		t.Error("ExpensesOnly() = true, want false")
	}
}

func TestParseRules_Defaults(t *testing.T) {
	rules, err := ParseRules([]byte("{}"))
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}
	if rules.CSV.Delimiter != "," {
		t.Errorf("Delimiter = %q, want ,", rules.CSV.Delimiter)
	}
	if rules.DateFormat != "2006-01-02" {
		t.Errorf("DateFormat = %q, want 2006-01-02", rules.DateFormat)
	}
	if len(rules.Algorithms) != 2 {
		t.Errorf("Algorithms = %v, want both defaults", rules.Algorithms)
	}
	if !rules.UseDefaultDirections {
		t.Error("UseDefaultDirections = false, want true")
	}
	if !rules.ExpensesOnly() {
		t.Error("ExpensesOnly() = false, want true")
	}
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"multi-char delimiter", `csv: {delimiter: ";;"}`, "csv delimiter"},
		{"bad direction", `direction: "diagonal"`, "invalid direction"},
		{"empty excluded category", "exclusions:\n  iqr: [\"\"]", "category cannot be empty"},
		{"not yaml", `{{{{`, "parse rules file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ParseRules() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRules_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRules), 0644); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if rules.CSV.Delimiter != ";" {
		t.Errorf("Delimiter = %q, want ;", rules.CSV.Delimiter)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadRules() missing file error = nil")
	}
}
