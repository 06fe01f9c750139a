package analysis

import (
	"math"

	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

// Health score weights.
const (
	completenessWeight = 0.7
	uniquenessWeight   = 0.3
)

// Snapshot is the dataset-level quality record captured at a point in time.
type Snapshot struct {
	Rows        int     `json:"total_rows"`
	Columns     int     `json:"total_columns"`
	Missing     int     `json:"missing_values"`
	Duplicates  int     `json:"duplicate_rows"`
	HealthScore float64 `json:"health_score"`
}

// ColumnCount is a per-column tally used for missing and outlier summaries.
type ColumnCount struct {
	Count int `json:"count"`
}

// Analyze captures a Snapshot of ds.
func Analyze(ds *table.Dataset) Snapshot {
	s := Snapshot{
		Rows:       ds.Rows(),
		Columns:    len(ds.Columns),
		Missing:    ds.MissingTotal(),
		Duplicates: ds.DuplicateCount(),
	}
	s.HealthScore = HealthScore(s.Rows, s.Columns, s.Missing, s.Duplicates)
	return s
}

// HealthScore blends completeness (70%) and row uniqueness (30%) into a
// 0-100 score rounded to two decimals. No rows scores 0.
func HealthScore(rows, cols, missing, duplicates int) float64 {
	if rows == 0 {
		return 0
	}
	completeness := 1.0
	if cells := rows * cols; cells > 0 {
		completeness = 1 - float64(missing)/float64(cells)
	}
	uniqueness := 1 - float64(duplicates)/float64(rows)
	score := 100 * (completenessWeight*completeness + uniquenessWeight*uniqueness)
	return math.Round(score*100) / 100
}

// MissingInfo counts absent cells for every column that has any.
func MissingInfo(ds *table.Dataset) map[string]ColumnCount {
	out := make(map[string]ColumnCount)
	for _, c := range ds.Columns {
		if n := c.NullCount(); n > 0 {
			out[c.Name] = ColumnCount{Count: n}
		}
	}
	return out
}

// OutlierInfo counts MAD outliers for every numeric column that has any.
func OutlierInfo(ds *table.Dataset, det MADDetector) map[string]ColumnCount {
	out := make(map[string]ColumnCount)
	for _, c := range ds.NumericColumns() {
		if n := det.Count(c); n > 0 {
			out[c.Name] = ColumnCount{Count: n}
		}
	}
	return out
}
