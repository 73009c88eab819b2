// Package stats implements the statistical highlighting engine: IQR outlier
// detection and Pareto contribution analysis over aggregated transaction
// data, with direction-aware transposition and exclusion handling.
package stats

import (
	"math"
	"sort"

	"whatsthedamage/internal/core"
)

// Direction selects what an algorithm analyzes: categories within a period
// (Columns) or periods within a category (Rows).
type Direction string

const (
	DirectionColumns Direction = "columns"
	DirectionRows    Direction = "rows"
)

// Algorithm names accepted in requests. Unknown names are ignored.
const (
	AlgorithmIQR    = "iqr"
	AlgorithmPareto = "pareto"
)

// Algorithm flags notable values in a flat identifier-to-amount map.
// Implementations are stateless.
type Algorithm interface {
	Name() string
	// PreferredDirection is honored when the caller requests default
	// directions instead of forcing one.
	PreferredDirection() Direction
	Analyze(data map[string]float64) map[string]core.HighlightType
}

// IQROutlierDetection flags values strictly outside
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Quartiles use linear interpolation.
type IQROutlierDetection struct{}

func (IQROutlierDetection) Name() string { return AlgorithmIQR }

// PreferredDirection: outliers are detected across categories within one
// period.
func (IQROutlierDetection) PreferredDirection() Direction { return DirectionColumns }

func (IQROutlierDetection) Analyze(data map[string]float64) map[string]core.HighlightType {
	highlights := make(map[string]core.HighlightType)
	if len(data) == 0 {
		return highlights
	}

	values := make([]float64, 0, len(data))
	distinct := make(map[float64]struct{}, len(data))
	for _, v := range data {
		values = append(values, v)
		distinct[v] = struct{}{}
	}
	// Fewer than 2 distinct values can never contain an outlier.
	if len(distinct) < 2 {
		return highlights
	}

	sort.Float64s(values)
	q1 := percentile(values, 25)
	q3 := percentile(values, 75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	for key, v := range data {
		if v < lower || v > upper {
			highlights[key] = core.HighlightOutlier
		}
	}
	return highlights
}

// percentile computes the p-th percentile of sorted values with linear
// interpolation between ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// ParetoAnalysis flags the top contributors that together make up 80% of the
// absolute total. The item that carries the running sum across the threshold
// is still included; a single item is always flagged.
type ParetoAnalysis struct{}

func (ParetoAnalysis) Name() string { return AlgorithmPareto }

// PreferredDirection: contribution is analyzed per category across periods.
func (ParetoAnalysis) PreferredDirection() Direction { return DirectionRows }

func (ParetoAnalysis) Analyze(data map[string]float64) map[string]core.HighlightType {
	highlights := make(map[string]core.HighlightType)
	if len(data) == 0 {
		return highlights
	}

	type item struct {
		key    string
		amount float64
	}
	items := make([]item, 0, len(data))
	total := 0.0
	for key, v := range data {
		abs := math.Abs(v)
		items = append(items, item{key: key, amount: abs})
		total += abs
	}
	// Identifier ascending breaks amount ties deterministically.
	sort.Slice(items, func(i, j int) bool {
		if items[i].amount != items[j].amount {
			return items[i].amount > items[j].amount
		}
		return items[i].key < items[j].key
	})

	cumulative := 0.0
	for _, it := range items {
		cumulative += it.amount
		highlights[it.key] = core.HighlightPareto
		if cumulative >= 0.8*total {
			break
		}
	}
	return highlights
}

// registry of built-in algorithms, keyed by request name.
func builtinAlgorithms() map[string]Algorithm {
	return map[string]Algorithm{
		AlgorithmIQR:    IQROutlierDetection{},
		AlgorithmPareto: ParetoAnalysis{},
	}
}
