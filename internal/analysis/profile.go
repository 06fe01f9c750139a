package analysis

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

// Report is a markdown-friendly profile of a dataset.
type Report struct {
	Name    string          `json:"name"`
	Quality Snapshot        `json:"quality"`
	Cols    []ColumnSummary `json:"columns"`
	Samples [][]string      `json:"samples,omitempty"`
	Notes   []string        `json:"notes,omitempty"`
}

// ColumnSummary captures the type and statistics of one column.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // numeric|integer|categorical|text|empty
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
	// Numeric stats
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Std  float64 `json:"std,omitempty"`
	// MAD outliers
	OutliersCount int     `json:"outliers,omitempty"`
	Bounds        *Bounds `json:"bounds,omitempty"`
	// Categorical top values
	TopValues []CategoryCount `json:"top_values,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

const (
	maxTopValues       = 8
	maxCategoricalSize = 30
)

// Profile summarizes every column of ds.
func Profile(name string, ds *table.Dataset, det MADDetector, sampleRows int) *Report {
	rep := &Report{Name: name, Quality: Analyze(ds)}
	if sampleRows < 0 {
		sampleRows = 5
	}
	for _, c := range ds.Columns {
		missing := c.NullCount()
		s := ColumnSummary{Name: c.Name, NonNull: c.Len() - missing, Missing: missing}
		switch {
		case s.NonNull == 0:
			s.Kind = "empty"
		case c.Kind == table.Numeric:
			s.Kind = "numeric"
			if c.Integer {
				s.Kind = "integer"
			}
			vals := c.Present()
			s.Min = floats.Min(vals)
			s.Max = floats.Max(vals)
			if len(vals) > 1 {
				s.Mean, s.Std = stat.MeanStdDev(vals, nil)
			} else {
				s.Mean = vals[0]
			}
			s.Unique = distinctFloats(vals)
			if b, ok := det.Bounds(vals); ok {
				s.Bounds = &b
				for _, v := range vals {
					if b.IsOutlier(v) {
						s.OutliersCount++
					}
				}
			}
		default:
			counts := TopValues(c, 0)
			s.Unique = len(counts)
			if s.Unique <= maxCategoricalSize {
				s.Kind = "categorical"
				if len(counts) > maxTopValues {
					counts = counts[:maxTopValues]
				}
				s.TopValues = counts
			} else {
				s.Kind = "text"
			}
		}
		rep.Cols = append(rep.Cols, s)
	}
	for i := 0; i < ds.Rows() && i < sampleRows; i++ {
		row := make([]string, len(ds.Columns))
		for j, c := range ds.Columns {
			row[j] = c.Format(i)
		}
		rep.Samples = append(rep.Samples, row)
	}
	if rep.Quality.Duplicates > 0 {
		rep.Notes = append(rep.Notes, fmt.Sprintf("%d duplicate rows detected", rep.Quality.Duplicates))
	}
	return rep
}

// TopValues counts non-absent text values, most frequent first; ties keep
// first-appearance order. limit <= 0 returns all.
func TopValues(c *table.Column, limit int) []CategoryCount {
	if c.Kind != table.Text {
		return nil
	}
	pos := map[string]int{}
	var out []CategoryCount
	for i, v := range c.Strings {
		if c.Nulls[i] {
			continue
		}
		if p, ok := pos[v]; ok {
			out[p].Count++
			continue
		}
		pos[v] = len(out)
		out = append(out, CategoryCount{Value: v, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func distinctFloats(vals []float64) int {
	seen := make(map[float64]struct{}, len(vals))
	for _, v := range vals {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Markdown renders a compact profile suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Quality.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", r.Quality.Columns))
	b.WriteString(fmt.Sprintf("Missing values: %d\n", r.Quality.Missing))
	b.WriteString(fmt.Sprintf("Duplicate rows: %d\n", r.Quality.Duplicates))
	b.WriteString(fmt.Sprintf("Health score: %.2f%%\n\n", r.Quality.HealthScore))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric", "integer":
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.Bounds != nil {
				b.WriteString(fmt.Sprintf("; outliers: %d outside [%.4g, %.4g]", c.OutliersCount, c.Bounds.Lower, c.Bounds.Upper))
			}
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString(" — top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case "text":
			b.WriteString(fmt.Sprintf(" — unique=%d", c.Unique))
		}
		b.WriteString("\n")
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Notes {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
