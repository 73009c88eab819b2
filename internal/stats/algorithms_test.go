package stats

import (
	"testing"

	"whatsthedamage/internal/core"
)

func TestIQROutlierDetection_Analyze(t *testing.T) {
	tests := []struct {
		name string
		data map[string]float64
		want map[string]core.HighlightType
	}{
		{
			name: "single extreme value flagged",
			data: map[string]float64{
				"a": 10, "b": 20, "c": 30, "d": 40, "e": 50,
				"f": 60, "g": 70, "h": 80, "i": 90, "j": 1000,
			},
			want: map[string]core.HighlightType{"j": core.HighlightOutlier},
		},
		{
			name: "uniform spread has no outliers",
			data: map[string]float64{
				"a": 10, "b": 20, "c": 30, "d": 40, "e": 50,
				"f": 60, "g": 70, "h": 80, "i": 90,
			},
			want: map[string]core.HighlightType{},
		},
		{
			name: "identical values never outliers",
			data: map[string]float64{"a": 50, "b": 50, "c": 50},
			want: map[string]core.HighlightType{},
		},
		{
			name: "single value never an outlier",
			data: map[string]float64{"a": 1000},
			want: map[string]core.HighlightType{},
		},
		{
			name: "low extreme flagged",
			data: map[string]float64{
				"a": -1000, "b": 20, "c": 30, "d": 40, "e": 50,
				"f": 60, "g": 70, "h": 80, "i": 90,
			},
			want: map[string]core.HighlightType{"a": core.HighlightOutlier},
		},
		{
			name: "empty input",
			data: map[string]float64{},
			want: map[string]core.HighlightType{},
		},
	}

	var algo IQROutlierDetection
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := algo.Analyze(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("Analyze() = %v, want %v", got, tt.want)
			}
			for key, want := range tt.want {
				if got[key] != want {
					t.Errorf("Analyze()[%q] = %q, want %q", key, got[key], want)
				}
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"median of even count interpolates", []float64{1, 2, 3, 4}, 50, 2.5},
		{"q1 of four values", []float64{1, 2, 3, 4}, 25, 1.75},
		{"q3 of four values", []float64{1, 2, 3, 4}, 75, 3.25},
		{"exact rank", []float64{10, 20, 30, 40, 50}, 50, 30},
		{"single value", []float64{42}, 75, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := percentile(tt.sorted, tt.p)
			if got != tt.want {
				t.Errorf("percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestParetoAnalysis_Analyze(t *testing.T) {
	tests := []struct {
		name string
		data map[string]float64
		want []string
	}{
		{
			name: "crossing item included",
			data: map[string]float64{"rent": 60, "food": 40},
			want: []string{"rent", "food"},
		},
		{
			name: "stops after threshold crossed",
			data: map[string]float64{
				"rent": 50, "food": 30, "phone": 10,
				"gym": 5, "misc": 3, "coffee": 2,
			},
			want: []string{"rent", "food"},
		},
		{
			name: "single item always flagged",
			data: map[string]float64{"rent": 100},
			want: []string{"rent"},
		},
		{
			name: "negative amounts contribute by magnitude",
			data: map[string]float64{"rent": -60, "food": -40},
			want: []string{"rent", "food"},
		},
		{
			name: "ties broken by identifier ascending",
			data: map[string]float64{"b": 40, "a": 40, "c": 20},
			want: []string{"a", "b"},
		},
		{
			name: "empty input",
			data: map[string]float64{},
			want: nil,
		},
	}

	var algo ParetoAnalysis
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := algo.Analyze(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("Analyze() flagged %v, want %v", got, tt.want)
			}
			for _, key := range tt.want {
				if got[key] != core.HighlightPareto {
					t.Errorf("Analyze()[%q] = %q, want %q", key, got[key], core.HighlightPareto)
				}
			}
		})
	}
}

func TestAlgorithmDirections(t *testing.T) {
	if got := (IQROutlierDetection{}).PreferredDirection(); got != DirectionColumns {
		t.Errorf("IQR preferred direction = %q, want %q", got, DirectionColumns)
	}
	if got := (ParetoAnalysis{}).PreferredDirection(); got != DirectionRows {
		t.Errorf("Pareto preferred direction = %q, want %q", got, DirectionRows)
	}
}
