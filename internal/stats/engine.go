package stats

import (
	"sort"
	"strconv"

	"whatsthedamage/internal/core"
	"whatsthedamage/internal/exclusion"
	"whatsthedamage/internal/log"
)

// Engine computes statistical metadata for aggregated responses. It filters
// rows, runs the requested algorithms in the requested (or preferred)
// direction, and resolves flagged cells back to row ids.
type Engine struct {
	algorithms   map[string]Algorithm
	exclusions   *exclusion.Registry
	expensesOnly bool
	logger       *log.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithExpenseFilter toggles the expense-only pre-filter. When enabled (the
// default), rows with a non-negative total are dropped before analysis; zero
// is not an expense.
func WithExpenseFilter(enabled bool) EngineOption {
	return func(e *Engine) { e.expensesOnly = enabled }
}

// WithAlgorithm registers an additional algorithm, replacing any built-in
// with the same name.
func WithAlgorithm(a Algorithm) EngineOption {
	return func(e *Engine) { e.algorithms[a.Name()] = a }
}

func NewEngine(exclusions *exclusion.Registry, opts ...EngineOption) *Engine {
	if exclusions == nil {
		exclusions = exclusion.NewRegistry(nil)
	}
	e := &Engine{
		algorithms:   builtinAlgorithms(),
		exclusions:   exclusions,
		expensesOnly: true,
		logger:       log.New(log.Config{Component: log.ComponentStats}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exclusions exposes the registry backing this engine.
func (e *Engine) Exclusions() *exclusion.Registry { return e.exclusions }

// Request describes one analysis run.
type Request struct {
	// Algorithms to run, by name. Unknown names are skipped.
	Algorithms []string
	// Direction forces an analysis direction for every algorithm. Ignored
	// when UseDefaultDirections is set.
	Direction Direction
	// UseDefaultDirections runs each algorithm in its preferred direction.
	UseDefaultDirections bool
}

// Compute produces metadata for every account response. Highlights reference
// rows of the unfiltered responses by row id.
func (e *Engine) Compute(responses map[string]*core.DataTablesResponse, req Request) map[string]*core.StatisticalMetadata {
	metadata := make(map[string]*core.StatisticalMetadata, len(responses))
	for account, resp := range responses {
		metadata[account] = e.computeOne(resp, req)
	}
	return metadata
}

func (e *Engine) computeOne(resp *core.DataTablesResponse, req Request) *core.StatisticalMetadata {
	meta := &core.StatisticalMetadata{Highlights: []core.CellHighlight{}}
	if resp == nil {
		return meta
	}

	// First algorithm to flag a cell wins; later flags for the same cell
	// are dropped.
	type cell struct {
		category  string
		timestamp int64
	}
	flagged := make(map[cell]core.HighlightType)
	order := make([]cell, 0)

	for _, name := range req.Algorithms {
		algorithm, ok := e.algorithms[name]
		if !ok {
			e.logger.Warn("unknown algorithm requested", "algorithm", name)
			continue
		}

		summary := e.summarize(resp, name)
		if len(summary) == 0 {
			continue
		}

		direction := req.Direction
		if req.UseDefaultDirections {
			direction = algorithm.PreferredDirection()
		}

		for _, group := range transpose(summary, direction) {
			result := algorithm.Analyze(group.data)
			inners := make([]string, 0, len(result))
			for inner := range result {
				inners = append(inners, inner)
			}
			sort.Strings(inners)
			for _, inner := range inners {
				highlight := result[inner]
				resolved := group.resolve(inner)
				key := cell{category: resolved.category, timestamp: resolved.timestamp}
				if _, seen := flagged[key]; seen {
					continue
				}
				flagged[key] = highlight
				order = append(order, key)
			}
		}
	}

	for _, key := range order {
		// Cells excluded for any algorithm only ever carry the excluded
		// marker.
		if e.exclusions.IsExcluded(key.category, "") {
			continue
		}
		rowID := resolveRowID(resp, key.category, key.timestamp)
		if rowID == "" {
			continue
		}
		meta.Highlights = append(meta.Highlights, core.CellHighlight{
			RowID:         rowID,
			HighlightType: flagged[cell{key.category, key.timestamp}],
		})
	}

	meta.Highlights = append(meta.Highlights, e.excludedHighlights(resp)...)
	return meta
}

// summarize extracts category totals per period from a response, applying the
// pre-filter pipeline: calculated rows, excluded categories and (optionally)
// non-expenses are dropped. Periods are keyed by canonical timestamp.
func (e *Engine) summarize(resp *core.DataTablesResponse, algorithm string) map[int64]map[string]float64 {
	summary := make(map[int64]map[string]float64)
	for _, row := range resp.Data {
		if row.IsCalculated {
			continue
		}
		if e.exclusions.IsExcluded(row.Category, algorithm) {
			continue
		}
		if e.expensesOnly && row.Total.Raw >= 0 {
			continue
		}
		ts := row.Date.Timestamp
		if summary[ts] == nil {
			summary[ts] = make(map[string]float64)
		}
		summary[ts][row.Category] += row.Total.Raw
	}
	return summary
}

// resolvedCell maps an algorithm's flat identifier back to a concrete cell.
type resolvedCell struct {
	category  string
	timestamp int64
}

// group is one algorithm invocation: a flat map plus the mapping from its
// identifiers back to cells.
type group struct {
	data    map[string]float64
	resolve func(inner string) resolvedCell
}

// transpose arranges the summary for the requested direction. Columns runs
// one analysis per period over its categories; Rows runs one analysis per
// category over its periods.
func transpose(summary map[int64]map[string]float64, direction Direction) []group {
	if direction == DirectionRows {
		byCategory := make(map[string]map[string]float64)
		for ts, categories := range summary {
			key := strconv.FormatInt(ts, 10)
			for category, total := range categories {
				if byCategory[category] == nil {
					byCategory[category] = make(map[string]float64)
				}
				byCategory[category][key] = total
			}
		}
		categories := sortedKeys(byCategory)
		groups := make([]group, 0, len(categories))
		for _, category := range categories {
			category := category
			groups = append(groups, group{
				data: byCategory[category],
				resolve: func(inner string) resolvedCell {
					ts, _ := strconv.ParseInt(inner, 10, 64)
					return resolvedCell{category: category, timestamp: ts}
				},
			})
		}
		return groups
	}

	timestamps := make([]int64, 0, len(summary))
	for ts := range summary {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	groups := make([]group, 0, len(timestamps))
	for _, ts := range timestamps {
		ts := ts
		groups = append(groups, group{
			data: summary[ts],
			resolve: func(inner string) resolvedCell {
				return resolvedCell{category: inner, timestamp: ts}
			},
		})
	}
	return groups
}

// resolveRowID finds the non-calculated row for a category and period in the
// unfiltered response. Cells that no longer resolve are dropped.
func resolveRowID(resp *core.DataTablesResponse, category string, timestamp int64) string {
	for _, row := range resp.Data {
		if row.IsCalculated {
			continue
		}
		if row.Category == category && row.Date.Timestamp == timestamp {
			return row.RowID
		}
	}
	return ""
}

// excludedHighlights emits exactly one excluded highlight per calculated row
// and per row whose category is excluded for every algorithm, taken from the
// unfiltered response. Rows dropped only by the expense filter are not
// marked.
func (e *Engine) excludedHighlights(resp *core.DataTablesResponse) []core.CellHighlight {
	highlights := make([]core.CellHighlight, 0)
	for _, row := range resp.Data {
		if row.IsCalculated || e.exclusions.IsExcluded(row.Category, "") {
			highlights = append(highlights, core.CellHighlight{
				RowID:         row.RowID,
				HighlightType: core.HighlightExcluded,
			})
		}
	}
	return highlights
}

func sortedKeys(m map[string]map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
