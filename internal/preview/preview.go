package preview

import (
	"encoding/json"
	"math"

	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

// Default projection limits.
const (
	DefaultRows          = 100
	DefaultScatterPoints = 500
	maxBarCategories     = 10
	maxDistinctForBar    = 30
)

// Table is the first rows of a dataset in JSON-friendly form.
type Table struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"data"`
	Indices []int            `json:"indices"`
}

// Build projects the first limit rows of ds. Absent cells become nil and
// integer columns render as int64. limit <= 0 selects DefaultRows.
func Build(ds *table.Dataset, limit int) Table {
	if limit <= 0 {
		limit = DefaultRows
	}
	n := ds.Rows()
	if n > limit {
		n = limit
	}
	out := Table{
		Columns: ds.Names(),
		Rows:    make([]map[string]any, n),
		Indices: append([]int(nil), ds.Index[:n]...),
	}
	for i := 0; i < n; i++ {
		row := make(map[string]any, len(ds.Columns))
		for _, c := range ds.Columns {
			row[c.Name] = c.Value(i)
		}
		out.Rows[i] = row
	}
	return out
}

// Coordinate locates one flagged cell by row label and column name.
type Coordinate struct {
	Row    int
	Column string
}

// MarshalJSON renders the coordinate as a [row, column] pair.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Row, c.Column})
}

// OutlierCoordinates flags MAD outliers among the first limit rows, with
// bounds computed over those rows only.
func OutlierCoordinates(ds *table.Dataset, det analysis.MADDetector, limit int) []Coordinate {
	if limit <= 0 {
		limit = DefaultRows
	}
	head := ds.Head(limit)
	var out []Coordinate
	for _, c := range head.NumericColumns() {
		b, ok := det.Bounds(c.Present())
		if !ok {
			continue
		}
		for i, v := range c.Floats {
			if !math.IsNaN(v) && b.IsOutlier(v) {
				out = append(out, Coordinate{Row: head.Index[i], Column: c.Name})
			}
		}
	}
	return out
}
