package preview

import (
	"encoding/json"
	"math"

	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

// ChartKind names the chart an aggregate feeds.
type ChartKind string

const (
	Bar     ChartKind = "bar"
	Scatter ChartKind = "scatter"
)

// BarPoint is one category count.
type BarPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ScatterPoint is one (row label, value) pair.
type ScatterPoint struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

// Aggregate is chart-ready data for one column. Exactly one of Bars and
// Points is set, matching Type.
type Aggregate struct {
	Type   ChartKind      `json:"type"`
	Column string         `json:"column"`
	Bars   []BarPoint     `json:"-"`
	Points []ScatterPoint `json:"-"`
}

// MarshalJSON emits the points under a single "data" key.
func (a Aggregate) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type   ChartKind `json:"type"`
		Column string    `json:"column"`
		Data   any       `json:"data"`
	}
	w := wire{Type: a.Type, Column: a.Column}
	switch a.Type {
	case Bar:
		w.Data = nonNil(a.Bars)
	default:
		w.Data = nonNil(a.Points)
	}
	return json.Marshal(w)
}

// Aggregates builds bar charts for text columns with 2..30 distinct values
// (top 10 by count) and scatter series for numeric columns with more than
// one distinct value (first scatterPoints present values). Bars come first.
func Aggregates(ds *table.Dataset, scatterPoints int) []Aggregate {
	if scatterPoints <= 0 {
		scatterPoints = DefaultScatterPoints
	}
	var out []Aggregate
	for _, c := range ds.Columns {
		if c.Kind != table.Text {
			continue
		}
		counts := analysis.TopValues(c, 0)
		if len(counts) < 2 || len(counts) > maxDistinctForBar {
			continue
		}
		if len(counts) > maxBarCategories {
			counts = counts[:maxBarCategories]
		}
		bars := make([]BarPoint, len(counts))
		for i, kv := range counts {
			bars[i] = BarPoint{Name: kv.Value, Value: kv.Count}
		}
		out = append(out, Aggregate{Type: Bar, Column: c.Name, Bars: bars})
	}
	for _, c := range ds.NumericColumns() {
		if !multipleDistinct(c.Floats) {
			continue
		}
		var pts []ScatterPoint
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, ScatterPoint{X: ds.Index[i], Y: v})
			if len(pts) == scatterPoints {
				break
			}
		}
		out = append(out, Aggregate{Type: Scatter, Column: c.Name, Points: pts})
	}
	return out
}

func multipleDistinct(vals []float64) bool {
	first, seen := 0.0, false
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if !seen {
			first, seen = v, true
			continue
		}
		if v != first {
			return true
		}
	}
	return false
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
