package cleaning

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

const (
	zScoreLimit = 3.0
	winsorLimit = 0.05
)

// clipMAD caps every column to its MAD bounds. Columns with undefined
// bounds are left alone. It returns the number of cells changed.
func clipMAD(cols []*table.Column, det analysis.MADDetector) int {
	changed := 0
	for _, c := range cols {
		b, ok := det.Bounds(c.Present())
		if !ok {
			continue
		}
		changed += clip(c, b)
	}
	return changed
}

// clipZScore caps every column to mean ± limit·s, with s the sample
// standard deviation. Columns with fewer than two values are left alone.
func clipZScore(cols []*table.Column, limit float64) int {
	changed := 0
	for _, c := range cols {
		vals := c.Present()
		if len(vals) < 2 {
			continue
		}
		m, s := stat.MeanStdDev(vals, nil)
		changed += clip(c, analysis.Bounds{Lower: m - limit*s, Upper: m + limit*s})
	}
	return changed
}

func clip(c *table.Column, b analysis.Bounds) int {
	changed := 0
	for i, v := range c.Floats {
		if nv := b.Clip(v); nv != v && !math.IsNaN(v) {
			c.Floats[i] = nv
			changed++
		}
	}
	return changed
}

// winsorize replaces, per column, the lowest floor(limit·n) present values
// with the next order statistic and the highest floor(limit·n) with the
// preceding one. Absent cells are skipped.
func winsorize(cols []*table.Column, limit float64) int {
	changed := 0
	for _, c := range cols {
		var idx []int
		for i, v := range c.Floats {
			if !math.IsNaN(v) {
				idx = append(idx, i)
			}
		}
		n := len(idx)
		cut := int(limit * float64(n))
		if n == 0 || cut == 0 {
			continue
		}
		sort.SliceStable(idx, func(a, b int) bool { return c.Floats[idx[a]] < c.Floats[idx[b]] })
		low := c.Floats[idx[cut]]
		high := c.Floats[idx[n-cut-1]]
		for _, i := range idx[:cut] {
			if c.Floats[i] != low {
				c.Floats[i] = low
				changed++
			}
		}
		for _, i := range idx[n-cut:] {
			if c.Floats[i] != high {
				c.Floats[i] = high
				changed++
			}
		}
	}
	return changed
}
