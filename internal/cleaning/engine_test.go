package cleaning

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tidyset-cli/internal/actionlog"
	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

func newDataset(t *testing.T, cols ...*table.Column) *table.Dataset {
	t.Helper()
	ds, err := table.New(cols...)
	require.NoError(t, err)
	return ds
}

func text(name string, vals ...string) *table.Column { return table.NewTextColumn(name, vals) }

func TestRunMADCapsAndRoundsToInteger(t *testing.T) {
	ds := newDataset(t, text("x", "1", "2", "3", "4", "100"))
	log := actionlog.New(nil)

	res, err := NewEngine(nil).Run(ds, Config{Outliers: OutliersMAD}, log)
	require.NoError(t, err)

	x := res.Data.Column("x")
	require.Equal(t, table.Numeric, x.Kind)
	assert.Equal(t, []float64{1, 2, 3, 4, 7}, x.Floats)
	assert.True(t, x.Integer)
	assert.Equal(t, []string{"Capped outliers using the robust MAD method.", "Rounded numerical columns."}, log.Actions())

	// input untouched
	assert.Equal(t, table.Text, ds.Column("x").Kind)
}

func TestRunCappingStaysWithinBounds(t *testing.T) {
	vals := []string{"1000", "-400"}
	for i := 1; i <= 20; i++ {
		vals = append(vals, string(rune('0'+i%10)))
	}
	for _, method := range []OutlierMethod{OutliersMAD, OutliersZScore} {
		t.Run(method.String(), func(t *testing.T) {
			ds := newDataset(t, text("v", vals...))
			prepared := ds.Clone()
			NewEngine(nil).Prepare(prepared)
			orig := prepared.Column("v").Present()

			var b analysis.Bounds
			if method == OutliersMAD {
				var ok bool
				b, ok = analysis.NewMADDetector(0).Bounds(orig)
				require.True(t, ok)
			} else {
				m, s := stat.MeanStdDev(orig, nil)
				b = analysis.Bounds{Lower: m - 3*s, Upper: m + 3*s}
			}

			res, err := NewEngine(nil).Run(ds, Config{Outliers: method}, nil)
			require.NoError(t, err)
			for _, v := range res.Data.Column("v").Floats {
				// integer rounding may move a capped value by at most 0.5
				assert.GreaterOrEqual(t, v, b.Lower-0.5)
				assert.LessOrEqual(t, v, b.Upper+0.5)
			}
			assert.NotContains(t, res.Data.Column("v").Floats, 1000.0)
		})
	}
}

func TestClipMADUnroundedWithinBounds(t *testing.T) {
	c := table.NewNumericColumn("v", []float64{1, 2, 3, 4, 100, math.NaN(), -50})
	det := analysis.NewMADDetector(0)
	b, ok := det.Bounds(c.Present())
	require.True(t, ok)
	clipMAD([]*table.Column{c}, det)
	for _, v := range c.Present() {
		assert.False(t, b.IsOutlier(v), "value %v outside %+v", v, b)
	}
	assert.True(t, math.IsNaN(c.Floats[5]))
}

func TestRunImputationLeavesNoAbsentCells(t *testing.T) {
	for _, m := range []Imputation{ImputeMean, ImputeMedian, ImputeKNN} {
		t.Run(m.String(), func(t *testing.T) {
			ds := newDataset(t,
				text("a", "1", "", "3", "na", "10"),
				text("b", "1.5", "2.5", "", "4.5", "NULL"),
				text("label", "x", "y", "z", "x", "y"),
			)
			res, err := NewEngine(nil).Run(ds, Config{Imputation: m}, nil)
			require.NoError(t, err)
			for _, c := range res.Data.NumericColumns() {
				assert.Zero(t, c.NullCount(), "column %s", c.Name)
			}
			assert.Equal(t, 4, res.Summary.MissingFixed)
			assert.Equal(t, 0, res.After.Missing)
		})
	}
}

func TestImputeMeanAndMedianValues(t *testing.T) {
	nan := math.NaN()
	c := table.NewNumericColumn("a", []float64{1, nan, 2, 10})
	imputeWith([]*table.Column{c}, mean)
	assert.InDelta(t, 13.0/3, c.Floats[1], 1e-12)

	c = table.NewNumericColumn("a", []float64{1, nan, 2, 10})
	imputeWith([]*table.Column{c}, analysis.Median)
	assert.Equal(t, 2.0, c.Floats[1])

	empty := table.NewNumericColumn("e", []float64{nan, nan})
	assert.Zero(t, imputeWith([]*table.Column{empty}, mean))
	assert.Equal(t, 2, empty.NullCount())
}

func TestImputeKNNNearestDonors(t *testing.T) {
	nan := math.NaN()
	a := table.NewNumericColumn("a", []float64{10, 20, 30, 100, nan})
	b := table.NewNumericColumn("b", []float64{1, 2, 3, 10, 2.1})
	n := imputeKNN([]*table.Column{a, b}, 2)
	assert.Equal(t, 1, n)
	// nearest by b are rows 1 (0.1) and 2 (0.9)
	assert.Equal(t, 25.0, a.Floats[4])
}

func TestImputeKNNFallsBackToMean(t *testing.T) {
	nan := math.NaN()
	a := table.NewNumericColumn("a", []float64{10, 20, nan})
	b := table.NewNumericColumn("b", []float64{1, 2, nan})
	allAbsent := table.NewNumericColumn("c", []float64{nan, nan, nan})
	n := imputeKNN([]*table.Column{a, b, allAbsent}, 5)
	assert.Equal(t, 2, n)
	assert.Equal(t, 15.0, a.Floats[2])
	assert.Equal(t, 1.5, b.Floats[2])
	assert.Equal(t, 3, allAbsent.NullCount())
}

func TestRunKNNSkippedWhenNothingAbsent(t *testing.T) {
	ds := newDataset(t, text("a", "1", "2", "3"))
	log := actionlog.New(nil)
	_, err := NewEngine(nil).Run(ds, Config{Imputation: ImputeKNN}, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rounded numerical columns."}, log.Actions())
}

func TestWinsorizeOrderStatistics(t *testing.T) {
	vals := make([]float64, 0, 21)
	for i := 20; i >= 1; i-- {
		vals = append(vals, float64(i))
	}
	vals = append(vals, math.NaN())
	c := table.NewNumericColumn("w", vals)
	changed := winsorize([]*table.Column{c}, winsorLimit)
	assert.Equal(t, 2, changed)
	assert.Equal(t, 19.0, c.Floats[0])
	assert.Equal(t, 2.0, c.Floats[19])
	assert.True(t, math.IsNaN(c.Floats[20]))

	small := table.NewNumericColumn("s", []float64{1, 50, 3})
	assert.Zero(t, winsorize([]*table.Column{small}, winsorLimit))
}

func TestRunDedupKeepsFirstOccurrences(t *testing.T) {
	ds := newDataset(t,
		text("city", "Oslo", "Bergen", "Oslo", "Tromsø", "Bergen"),
		text("temp", "3", "5", "3", "-2", "5"),
	)
	log := actionlog.New(nil)
	res, err := NewEngine(nil).Run(ds, Config{RemoveDuplicates: true}, log)
	require.NoError(t, err)

	assert.Equal(t, Summary{RowsRemoved: 2, DuplicatesFixed: 2}, res.Summary)
	assert.Equal(t, []string{"Oslo", "Bergen", "Tromsø"}, res.Data.Column("city").Strings)
	assert.Equal(t, []int{0, 1, 3}, res.Data.Index)
	assert.Zero(t, res.After.Duplicates)
	assert.Equal(t, []string{"Removed 2 duplicate rows."}, log.Actions())

	log = actionlog.New(nil)
	again, err := NewEngine(nil).Run(res.Data, Config{RemoveDuplicates: true}, log)
	require.NoError(t, err)
	assert.Zero(t, again.Summary.DuplicatesFixed)
	assert.Zero(t, log.Len())
}

func TestRunNoneConfigIsStable(t *testing.T) {
	ds := newDataset(t,
		text("age", "25", "", "30", "unknown", "25"),
		text("name", "a", "b", "c", "d", "a"),
	)
	log := actionlog.New(nil)
	eng := NewEngine(nil)
	first, err := eng.Run(ds, Config{}, log)
	require.NoError(t, err)
	second, err := eng.Run(first.Data, Config{}, log)
	require.NoError(t, err)

	assert.Equal(t, first.After, second.After)
	assert.Equal(t, Summary{DuplicatesFixed: 1}, second.Summary)
	assert.Zero(t, log.Len())
	assert.False(t, second.Data.Column("age").Integer)
}

func TestRunWithoutNumericColumns(t *testing.T) {
	ds := newDataset(t, text("name", "a", "b", "a"))
	res, err := NewEngine(nil).Run(ds, Config{Imputation: ImputeMean, Outliers: OutliersMAD}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Data.Rows())
	assert.Equal(t, Summary{DuplicatesFixed: 1}, res.Summary)
}

func TestRunNilDataset(t *testing.T) {
	_, err := NewEngine(nil).Run(nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrNilDataset)
}

func TestRoundingToOneDecimal(t *testing.T) {
	c := table.NewNumericColumn("r", []float64{1.25, 2.26, math.NaN()})
	roundColumn(c, false)
	assert.Equal(t, 1.2, c.Floats[0])
	assert.Equal(t, 2.3, c.Floats[1])
	assert.False(t, c.Integer)
}

func TestParseMethods(t *testing.T) {
	cases := []struct {
		in     string
		impute Imputation
		ok     bool
	}{
		{"mean", ImputeMean, true},
		{" Median ", ImputeMedian, true},
		{"KNN", ImputeKNN, true},
		{"", ImputeNone, true},
		{"mode", ImputeNone, false},
	}
	for _, tc := range cases {
		got, ok := ParseImputation(tc.in)
		assert.Equal(t, tc.impute, got, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}

	for in, want := range map[string]OutlierMethod{
		"iqr":           OutliersMAD,
		"mad":           OutliersMAD,
		"z-score":       OutliersZScore,
		"zscore":        OutliersZScore,
		"winsorization": OutliersWinsorize,
		"winsorize":     OutliersWinsorize,
		"isolation":     OutliersNone,
	} {
		got, _ := ParseOutlier(in)
		assert.Equal(t, want, got, in)
	}

	cfg, unknown := Request{Imputation: "foo", Outliers: "iqr", RemoveDuplicates: true}.Config()
	assert.Equal(t, Config{Outliers: OutliersMAD, RemoveDuplicates: true}, cfg)
	assert.Equal(t, []string{"imputation=foo"}, unknown)
	assert.False(t, cfg.IsNoop())
}

func TestRunWholeValuesBeyondInt64StayExact(t *testing.T) {
	ds := newDataset(t, text("id", "10000000000000000000", "20000000000000000000", "", "30000000000000000000"))

	res, err := NewEngine(nil).Run(ds, Config{Imputation: ImputeMean}, nil)
	require.NoError(t, err)

	id := res.Data.Column("id")
	assert.Equal(t, []float64{1e19, 2e19, 2e19, 3e19}, id.Floats)
	assert.False(t, id.Integer)
	assert.Equal(t, "10000000000000000000", id.Format(0))
	assert.Equal(t, 1e19, id.Value(0))

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf, res.Data))
	assert.Equal(t, "id\n10000000000000000000\n20000000000000000000\n20000000000000000000\n30000000000000000000\n", buf.String())
}

func TestImputeMeanAvoidsOverflow(t *testing.T) {
	c := table.NewNumericColumn("big", []float64{1e308, 1.5e308, math.NaN()})
	assert.Equal(t, 1, imputeWith([]*table.Column{c}, mean))
	assert.False(t, math.IsInf(c.Floats[2], 0))
	assert.InEpsilon(t, 1.25e308, c.Floats[2], 1e-12)

	inf := func([]float64) float64 { return math.Inf(1) }
	c = table.NewNumericColumn("v", []float64{1, math.NaN()})
	assert.Zero(t, imputeWith([]*table.Column{c}, inf))
	assert.True(t, c.IsNull(1))
}
