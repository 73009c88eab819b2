package stats

import (
	"testing"

	"whatsthedamage/internal/core"
	"whatsthedamage/internal/exclusion"
)

const (
	epochJan2025 = int64(1735689600)
	epochFeb2025 = int64(1738368000)
)

func row(id, category string, total float64, ts int64) core.AggregatedRow {
	return core.AggregatedRow{
		RowID:    id,
		Category: category,
		Total:    core.DisplayRawField{Raw: total},
		Date:     core.DateField{Timestamp: ts},
	}
}

func calculatedRow(id, category string, total float64, ts int64) core.AggregatedRow {
	r := row(id, category, total, ts)
	r.IsCalculated = true
	return r
}

func highlightsByRow(meta *core.StatisticalMetadata) map[string][]core.HighlightType {
	byRow := make(map[string][]core.HighlightType)
	for _, h := range meta.Highlights {
		byRow[h.RowID] = append(byRow[h.RowID], h.HighlightType)
	}
	return byRow
}

func TestEngine_ParetoFlagsTopContributors(t *testing.T) {
	resp := &core.DataTablesResponse{
		Data: []core.AggregatedRow{
			row("r1", "Grocery", -60, epochJan2025),
			row("r2", "Grocery", -40, epochFeb2025),
			row("r3", "Utilities", -10, epochJan2025),
			calculatedRow("c1", core.CategoryBalance, -110, epochJan2025),
		},
	}

	engine := NewEngine(exclusion.NewRegistry(nil))
	meta := engine.computeOne(resp, Request{
		Algorithms:           []string{AlgorithmPareto},
		UseDefaultDirections: true,
	})

	byRow := highlightsByRow(meta)
	// Rows direction: each category analyzed across its own periods.
	for _, id := range []string{"r1", "r2", "r3"} {
		if len(byRow[id]) != 1 || byRow[id][0] != core.HighlightPareto {
			t.Errorf("row %s highlights = %v, want single pareto", id, byRow[id])
		}
	}
	if len(byRow["c1"]) != 1 || byRow["c1"][0] != core.HighlightExcluded {
		t.Errorf("calculated row highlights = %v, want single excluded", byRow["c1"])
	}
}

func TestEngine_IQRColumnsDirection(t *testing.T) {
	data := []core.AggregatedRow{
		calculatedRow("c1", core.CategoryBalance, -1280, epochJan2025),
	}
	categories := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}
	for i, cat := range categories {
		data = append(data, row(cat, cat, -float64((i+1)*10), epochJan2025))
	}
	data = append(data, row("big", "Travel", -1000, epochJan2025))

	engine := NewEngine(exclusion.NewRegistry(nil))
	meta := engine.computeOne(&core.DataTablesResponse{Data: data}, Request{
		Algorithms:           []string{AlgorithmIQR},
		UseDefaultDirections: true,
	})

	byRow := highlightsByRow(meta)
	if len(byRow["big"]) != 1 || byRow["big"][0] != core.HighlightOutlier {
		t.Errorf("outlier row highlights = %v, want single outlier", byRow["big"])
	}
	for _, cat := range categories {
		for _, h := range byRow[cat] {
			if h == core.HighlightOutlier {
				t.Errorf("row %s unexpectedly flagged as outlier", cat)
			}
		}
	}
}

func TestEngine_ExpenseFilterDropsNonNegatives(t *testing.T) {
	resp := &core.DataTablesResponse{
		Data: []core.AggregatedRow{
			row("income", "Salary", 2000, epochJan2025),
			row("zero", "Refund", 0, epochJan2025),
			row("spend", "Grocery", -100, epochJan2025),
		},
	}

	engine := NewEngine(exclusion.NewRegistry(nil))
	meta := engine.computeOne(resp, Request{
		Algorithms:           []string{AlgorithmPareto},
		UseDefaultDirections: true,
	})

	byRow := highlightsByRow(meta)
	if len(byRow["spend"]) != 1 || byRow["spend"][0] != core.HighlightPareto {
		t.Errorf("expense row highlights = %v, want single pareto", byRow["spend"])
	}
	// Non-expenses are invisible to the algorithms but not marked excluded.
	if len(byRow["income"]) != 0 || len(byRow["zero"]) != 0 {
		t.Errorf("non-expense rows highlighted: income=%v zero=%v", byRow["income"], byRow["zero"])
	}
}

func TestEngine_ExpenseFilterDisabled(t *testing.T) {
	resp := &core.DataTablesResponse{
		Data: []core.AggregatedRow{
			row("income", "Salary", 2000, epochJan2025),
		},
	}

	engine := NewEngine(exclusion.NewRegistry(nil), WithExpenseFilter(false))
	meta := engine.computeOne(resp, Request{
		Algorithms:           []string{AlgorithmPareto},
		UseDefaultDirections: true,
	})

	byRow := highlightsByRow(meta)
	if len(byRow["income"]) != 1 || byRow["income"][0] != core.HighlightPareto {
		t.Errorf("income highlights = %v, want single pareto", byRow["income"])
	}
}

func TestEngine_ExcludedCategoryGetsSingleHighlight(t *testing.T) {
	resp := &core.DataTablesResponse{
		Data: []core.AggregatedRow{
			row("r1", "Transfer", -500, epochJan2025),
			row("r2", "Grocery", -100, epochJan2025),
		},
	}

	registry := exclusion.NewRegistry(map[string][]string{
		"default": {"Transfer"},
	})
	engine := NewEngine(registry)
	meta := engine.computeOne(resp, Request{
		Algorithms:           []string{AlgorithmIQR, AlgorithmPareto},
		UseDefaultDirections: true,
	})

	byRow := highlightsByRow(meta)
	excluded := 0
	for _, h := range byRow["r1"] {
		if h == core.HighlightExcluded {
			excluded++
		} else {
			t.Errorf("excluded row carries %q highlight", h)
		}
	}
	if excluded != 1 {
		t.Errorf("excluded row has %d excluded highlights, want exactly 1", excluded)
	}
}

func TestEngine_PerAlgorithmExclusionStillMarksExcluded(t *testing.T) {
	// Travel is excluded for pareto only, so IQR still sees it — but the
	// row must carry the excluded marker alone, never an outlier flag.
	data := []core.AggregatedRow{}
	for i, cat := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		data = append(data, row(cat, cat, -float64((i+1)*10), epochJan2025))
	}
	data = append(data, row("travel", "Travel", -1000, epochJan2025))

	registry := exclusion.NewRegistry(map[string][]string{
		"pareto": {"Travel"},
	})
	engine := NewEngine(registry)
	meta := engine.computeOne(&core.DataTablesResponse{Data: data}, Request{
		Algorithms:           []string{AlgorithmIQR},
		UseDefaultDirections: true,
	})

	byRow := highlightsByRow(meta)
	if len(byRow["travel"]) != 1 || byRow["travel"][0] != core.HighlightExcluded {
		t.Errorf("travel highlights = %v, want single excluded", byRow["travel"])
	}
}

func TestEngine_DefaultExclusionsStayInPopulation(t *testing.T) {
	// Categories on the "default" list are not filtered per algorithm;
	// they contribute to the statistics and only their flags are dropped.
	registry := exclusion.NewRegistry(map[string][]string{
		"default": {"Transfer"},
	})
	engine := NewEngine(registry)
	resp := &core.DataTablesResponse{
		Data: []core.AggregatedRow{
			row("r1", "Transfer", -500, epochJan2025),
			row("r2", "Grocery", -100, epochJan2025),
		},
	}

	summary := engine.summarize(resp, AlgorithmIQR)
	if _, ok := summary[epochJan2025]["Transfer"]; !ok {
		t.Error("default-listed category missing from the analysis population")
	}
}

func TestEngine_FirstAlgorithmWinsPerCell(t *testing.T) {
	// Two periods with one category so both IQR (columns) and Pareto (rows)
	// consider the same cells.
	resp := &core.DataTablesResponse{
		Data: []core.AggregatedRow{
			row("r1", "Grocery", -100, epochJan2025),
			row("r2", "Grocery", -100, epochFeb2025),
		},
	}

	engine := NewEngine(exclusion.NewRegistry(nil))
	meta := engine.computeOne(resp, Request{
		Algorithms:           []string{AlgorithmPareto, AlgorithmIQR},
		UseDefaultDirections: true,
	})

	byRow := highlightsByRow(meta)
	for _, id := range []string{"r1", "r2"} {
		if len(byRow[id]) != 1 {
			t.Errorf("row %s has %d highlights, want 1", id, len(byRow[id]))
		}
	}
}

func TestEngine_UnknownAlgorithmIgnored(t *testing.T) {
	resp := &core.DataTablesResponse{
		Data: []core.AggregatedRow{
			row("r1", "Grocery", -100, epochJan2025),
		},
	}

	engine := NewEngine(exclusion.NewRegistry(nil))
	meta := engine.computeOne(resp, Request{
		Algorithms:           []string{"zscore"},
		UseDefaultDirections: true,
	})

	if len(meta.Highlights) != 0 {
		t.Errorf("unknown algorithm produced highlights: %v", meta.Highlights)
	}
}

func TestEngine_ForcedDirection(t *testing.T) {
	// Forcing Pareto into columns analyzes categories within each period.
	resp := &core.DataTablesResponse{
		Data: []core.AggregatedRow{
			row("r1", "Rent", -60, epochJan2025),
			row("r2", "Food", -30, epochJan2025),
			row("r3", "Coffee", -10, epochJan2025),
		},
	}

	engine := NewEngine(exclusion.NewRegistry(nil))
	meta := engine.computeOne(resp, Request{
		Algorithms: []string{AlgorithmPareto},
		Direction:  DirectionColumns,
	})

	byRow := highlightsByRow(meta)
	if len(byRow["r1"]) != 1 || len(byRow["r2"]) != 1 {
		t.Errorf("top contributors not flagged: r1=%v r2=%v", byRow["r1"], byRow["r2"])
	}
	if len(byRow["r3"]) != 0 {
		t.Errorf("tail contributor flagged: %v", byRow["r3"])
	}
}

func TestEngine_ComputeCoversAllAccounts(t *testing.T) {
	responses := map[string]*core.DataTablesResponse{
		"acct-1": {Data: []core.AggregatedRow{row("r1", "Grocery", -100, epochJan2025)}},
		"acct-2": {Data: []core.AggregatedRow{row("r2", "Rent", -500, epochJan2025)}},
	}

	engine := NewEngine(exclusion.NewRegistry(nil))
	metadata := engine.Compute(responses, Request{
		Algorithms:           []string{AlgorithmPareto},
		UseDefaultDirections: true,
	})

	if len(metadata) != 2 {
		t.Fatalf("Compute() returned %d entries, want 2", len(metadata))
	}
	for account, meta := range metadata {
		if meta == nil || len(meta.Highlights) != 1 {
			t.Errorf("account %s metadata = %+v, want one highlight", account, meta)
		}
	}
}
