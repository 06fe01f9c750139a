package report

import (
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tidyset-cli/internal/actionlog"
	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

const (
	defaultTitle  = "Data Cleaning Report"
	histogramBins = 10
)

// Model is everything a renderer needs to produce a cleaning report.
type Model struct {
	Title     string
	FileName  string
	Generated time.Time

	Before analysis.Snapshot
	After  analysis.Snapshot

	Metrics       []Metric
	Distributions []Distribution
	// Missing holds per-column absent counts before cleaning, by column name.
	Missing []ColumnMissing
	Log     []actionlog.Entry
}

// Metric is one before/after row of the statistics table.
type Metric struct {
	Name   string
	Before string
	After  string
}

// Distribution summarizes one numeric column of the cleaned dataset.
type Distribution struct {
	Column    string
	Count     int
	Min       float64
	Max       float64
	Mean      float64
	Std       float64
	Median    float64
	Histogram []float64
}

// ColumnMissing is an absent-cell count for one column.
type ColumnMissing struct {
	Column string
	Count  int
}

// Build assembles a report model from the before/after snapshots, the
// action log and the cleaned dataset.
func Build(before, after analysis.Snapshot, log []actionlog.Entry, cleaned *table.Dataset) *Model {
	m := &Model{
		Title:     defaultTitle,
		Generated: time.Now(),
		Before:    before,
		After:     after,
		Log:       append([]actionlog.Entry(nil), log...),
		Metrics: []Metric{
			{"Total Rows", strconv.Itoa(before.Rows), strconv.Itoa(after.Rows)},
			{"Total Columns", strconv.Itoa(before.Columns), strconv.Itoa(after.Columns)},
			{"Missing Values", strconv.Itoa(before.Missing), strconv.Itoa(after.Missing)},
			{"Duplicate Rows", strconv.Itoa(before.Duplicates), strconv.Itoa(after.Duplicates)},
		},
	}
	if cleaned != nil {
		for _, c := range cleaned.NumericColumns() {
			if d, ok := describe(c); ok {
				m.Distributions = append(m.Distributions, d)
			}
		}
	}
	return m
}

// WithMissing attaches per-column missing counts, sorted by column name.
func (m *Model) WithMissing(info map[string]analysis.ColumnCount) *Model {
	m.Missing = m.Missing[:0]
	for col, c := range info {
		if c.Count > 0 {
			m.Missing = append(m.Missing, ColumnMissing{Column: col, Count: c.Count})
		}
	}
	sort.Slice(m.Missing, func(i, j int) bool { return m.Missing[i].Column < m.Missing[j].Column })
	return m
}

func describe(c *table.Column) (Distribution, bool) {
	vals := c.Present()
	if len(vals) == 0 {
		return Distribution{}, false
	}
	sort.Float64s(vals)
	d := Distribution{
		Column: c.Name,
		Count:  len(vals),
		Min:    vals[0],
		Max:    vals[len(vals)-1],
		Median: analysis.Median(vals),
	}
	if len(vals) > 1 {
		d.Mean, d.Std = stat.MeanStdDev(vals, nil)
	} else {
		d.Mean = vals[0]
	}
	d.Histogram = histogram(vals, histogramBins)
	return d, true
}

// histogram bins sorted values into equal-width buckets spanning
// [min, max]. A constant column yields a single bucket.
func histogram(sorted []float64, bins int) []float64 {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []float64{float64(len(sorted))}
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	return stat.Histogram(nil, dividers, sorted, nil)
}
