package cleaning

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

// mean falls back to a running mean when the plain sum overflows.
func mean(vals []float64) float64 {
	if m := stat.Mean(vals, nil); !math.IsInf(m, 0) {
		return m
	}
	m := 0.0
	for i, v := range vals {
		n := float64(i + 1)
		m += v/n - m/n
	}
	return m
}

// imputeWith fills each column's absent cells with stat computed over its
// own present values. Columns with no present values are left alone.
func imputeWith(cols []*table.Column, statFn func([]float64) float64) int {
	filled := 0
	for _, c := range cols {
		present := c.Present()
		if len(present) == 0 || len(present) == len(c.Floats) {
			continue
		}
		fill := statFn(present)
		if math.IsNaN(fill) || math.IsInf(fill, 0) {
			continue
		}
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				c.Floats[i] = fill
				filled++
			}
		}
	}
	return filled
}

// imputeKNN fills absent cells with the uniform mean of the k nearest rows
// that have a value in that column. Distance is the NaN-aware euclidean
// distance over the columns that have any value, scaled by
// features/present-pairs. Receivers with no comparable donor get the column
// mean. It returns the number of cells filled; zero means nothing was absent.
func imputeKNN(cols []*table.Column, k int) int {
	var features []*table.Column
	for _, c := range cols {
		if len(c.Present()) > 0 {
			features = append(features, c)
		}
	}
	if len(features) == 0 {
		return 0
	}
	// Distances use the values as they were before any cell was filled.
	orig := make([][]float64, len(features))
	for j, c := range features {
		orig[j] = append([]float64(nil), c.Floats...)
	}
	rows := len(orig[0])
	dist := func(a, b int) float64 {
		sum, n := 0.0, 0
		for j := range orig {
			x, y := orig[j][a], orig[j][b]
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			d := x - y
			sum += d * d
			n++
		}
		if n == 0 {
			return math.NaN()
		}
		return math.Sqrt(float64(len(orig)) / float64(n) * sum)
	}

	type donor struct {
		row  int
		dist float64
	}
	filled := 0
	for j, c := range features {
		col := orig[j]
		var donorRows []int
		for r, v := range col {
			if !math.IsNaN(v) {
				donorRows = append(donorRows, r)
			}
		}
		colMean := mean(features[j].Present())
		for r := 0; r < rows; r++ {
			if !math.IsNaN(col[r]) {
				continue
			}
			cands := make([]donor, 0, len(donorRows))
			for _, d := range donorRows {
				if dd := dist(r, d); !math.IsNaN(dd) {
					cands = append(cands, donor{row: d, dist: dd})
				}
			}
			filled++
			if len(cands) == 0 {
				c.Floats[r] = colMean
				continue
			}
			sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
			if len(cands) > k {
				cands = cands[:k]
			}
			vals := make([]float64, len(cands))
			for i, d := range cands {
				vals[i] = col[d.row]
			}
			c.Floats[r] = mean(vals)
		}
	}
	return filled
}
