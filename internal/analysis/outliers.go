package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

const (
	// DefaultMADMultiplier is tighter than the conventional 3.5 so capping
	// reaches moderate outliers too.
	DefaultMADMultiplier = 2.5
	// madScale makes MAD a consistent estimator of the standard deviation
	// under normality.
	madScale = 0.6745
	// minMADValues is the smallest sample with defined bounds.
	minMADValues = 3
)

// Bounds is a closed interval of acceptable values.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// IsOutlier reports whether v falls outside the interval.
func (b Bounds) IsOutlier(v float64) bool { return v < b.Lower || v > b.Upper }

// Clip caps v to the interval. NaN passes through.
func (b Bounds) Clip(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return v
	case v < b.Lower:
		return b.Lower
	case v > b.Upper:
		return b.Upper
	}
	return v
}

// MADDetector flags values far from the median, scaled by the median
// absolute deviation.
type MADDetector struct {
	Multiplier float64
}

// NewMADDetector returns a detector; a non-positive multiplier selects the default.
func NewMADDetector(multiplier float64) MADDetector {
	if multiplier <= 0 {
		multiplier = DefaultMADMultiplier
	}
	return MADDetector{Multiplier: multiplier}
}

// Bounds computes median ± k·MAD/0.6745 over vals (absent values must
// already be removed). ok is false with fewer than 3 values or when MAD is 0.
func (d MADDetector) Bounds(vals []float64) (Bounds, bool) {
	if len(vals) < minMADValues {
		return Bounds{}, false
	}
	median, mad := medianMAD(vals)
	if mad == 0 {
		return Bounds{}, false
	}
	k := d.Multiplier
	if k <= 0 {
		k = DefaultMADMultiplier
	}
	spread := k * mad / madScale
	return Bounds{Lower: median - spread, Upper: median + spread}, true
}

// Count returns the number of outliers in a numeric column, using bounds
// computed over the column's own non-absent values.
func (d MADDetector) Count(c *table.Column) int {
	if c.Kind != table.Numeric {
		return 0
	}
	b, ok := d.Bounds(c.Present())
	if !ok {
		return 0
	}
	n := 0
	for _, v := range c.Floats {
		if !math.IsNaN(v) && b.IsOutlier(v) {
			n++
		}
	}
	return n
}

// Median returns the interpolated median of vals, or NaN when empty.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	return quantile(cp, 0.5)
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
