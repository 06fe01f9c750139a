package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the declared type of a column.
type Kind int

const (
	Text Kind = iota
	Numeric
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	default:
		return "text"
	}
}

// Column is a named, typed sequence of values.
// Text columns mark absent cells in Nulls; numeric columns use NaN.
type Column struct {
	Name    string
	Kind    Kind
	Integer bool // numeric values are whole numbers and render without decimals

	Strings []string
	Nulls   []bool
	Floats  []float64
}

// NewTextColumn builds a text column with no absent cells.
func NewTextColumn(name string, vals []string) *Column {
	return &Column{Name: name, Kind: Text, Strings: vals, Nulls: make([]bool, len(vals))}
}

// NewNumericColumn builds a numeric column; NaN entries are absent.
func NewNumericColumn(name string, vals []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Floats: vals}
}

func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsNull reports whether row i holds the absent marker.
func (c *Column) IsNull(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Nulls[i]
}

// SetNull replaces row i with the absent marker.
func (c *Column) SetNull(i int) {
	if c.Kind == Numeric {
		c.Floats[i] = math.NaN()
		return
	}
	c.Strings[i] = ""
	c.Nulls[i] = true
}

// NullCount returns the number of absent cells.
func (c *Column) NullCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			n++
		}
	}
	return n
}

// Present returns the non-absent values of a numeric column in row order.
func (c *Column) Present() []float64 {
	if c.Kind != Numeric {
		return nil
	}
	out := make([]float64, 0, len(c.Floats))
	for _, v := range c.Floats {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// SetNumeric converts the column to numeric, replacing its contents.
func (c *Column) SetNumeric(vals []float64) {
	c.Kind = Numeric
	c.Floats = vals
	c.Strings = nil
	c.Nulls = nil
	c.Integer = false
}

// Value returns the cell at row i as nil, string, int64 or float64.
func (c *Column) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	if c.Kind == Text {
		return c.Strings[i]
	}
	if c.Integer {
		return int64(c.Floats[i])
	}
	return c.Floats[i]
}

// Format renders row i as text; absent cells render as the empty string.
func (c *Column) Format(i int) string {
	if c.IsNull(i) {
		return ""
	}
	if c.Kind == Text {
		return c.Strings[i]
	}
	if c.Integer {
		return strconv.FormatInt(int64(c.Floats[i]), 10)
	}
	return strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
}

// key renders row i for equality checks; absent cells compare equal.
func (c *Column) key(i int) string {
	if c.IsNull(i) {
		return "\x00"
	}
	if c.Kind == Text {
		return strconv.Quote(c.Strings[i])
	}
	v := c.Floats[i]
	if v == 0 {
		v = 0 // folds -0
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (c *Column) Clone() *Column {
	cp := &Column{Name: c.Name, Kind: c.Kind, Integer: c.Integer}
	if c.Strings != nil {
		cp.Strings = append([]string(nil), c.Strings...)
	}
	if c.Nulls != nil {
		cp.Nulls = append([]bool(nil), c.Nulls...)
	}
	if c.Floats != nil {
		cp.Floats = append([]float64(nil), c.Floats...)
	}
	return cp
}

func (c *Column) selectRows(rows []int) {
	switch c.Kind {
	case Numeric:
		out := make([]float64, len(rows))
		for j, r := range rows {
			out[j] = c.Floats[r]
		}
		c.Floats = out
	default:
		strs := make([]string, len(rows))
		nulls := make([]bool, len(rows))
		for j, r := range rows {
			strs[j] = c.Strings[r]
			nulls[j] = c.Nulls[r]
		}
		c.Strings, c.Nulls = strs, nulls
	}
}

// Dataset is an ordered set of equal-length columns plus the row labels
// assigned at load time. Row labels survive row removal.
type Dataset struct {
	Columns []*Column
	Index   []int
}

// ErrRaggedColumns is returned when columns differ in length.
var ErrRaggedColumns = errors.New("columns must have equal length")

// New assembles a dataset and labels rows 0..n-1.
func New(cols ...*Column) (*Dataset, error) {
	n := 0
	for i, c := range cols {
		if i == 0 {
			n = c.Len()
			continue
		}
		if c.Len() != n {
			return nil, fmt.Errorf("column %q has %d rows, expected %d: %w", c.Name, c.Len(), n, ErrRaggedColumns)
		}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return &Dataset{Columns: cols, Index: idx}, nil
}

// FromRecords builds a text-typed dataset from a header and data rows.
// Short rows are padded with absent cells; extra fields are ignored.
func FromRecords(header []string, rows [][]string) *Dataset {
	cols := make([]*Column, len(header))
	for j, h := range header {
		strs := make([]string, len(rows))
		nulls := make([]bool, len(rows))
		for i, rec := range rows {
			if j < len(rec) {
				strs[i] = rec[j]
			} else {
				nulls[i] = true
			}
		}
		cols[j] = &Column{Name: strings.TrimSpace(h), Kind: Text, Strings: strs, Nulls: nulls}
	}
	ds, _ := New(cols...)
	return ds
}

func (d *Dataset) Rows() int { return len(d.Index) }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) *Column {
	for _, c := range d.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// NumericColumns returns the numeric columns in order.
func (d *Dataset) NumericColumns() []*Column {
	var out []*Column
	for _, c := range d.Columns {
		if c.Kind == Numeric {
			out = append(out, c)
		}
	}
	return out
}

// Cells returns rows × columns.
func (d *Dataset) Cells() int { return d.Rows() * len(d.Columns) }

// MissingTotal sums absent cells across all columns.
func (d *Dataset) MissingTotal() int {
	n := 0
	for _, c := range d.Columns {
		n += c.NullCount()
	}
	return n
}

// DuplicateMask flags every row that repeats an earlier row.
func (d *Dataset) DuplicateMask() []bool {
	mask := make([]bool, d.Rows())
	seen := make(map[string]struct{}, d.Rows())
	var b strings.Builder
	for i := range mask {
		b.Reset()
		for j, c := range d.Columns {
			if j > 0 {
				b.WriteByte('\x1f')
			}
			b.WriteString(c.key(i))
		}
		k := b.String()
		if _, ok := seen[k]; ok {
			mask[i] = true
			continue
		}
		seen[k] = struct{}{}
	}
	return mask
}

// DuplicateCount counts rows that repeat an earlier row.
func (d *Dataset) DuplicateCount() int {
	n := 0
	for _, dup := range d.DuplicateMask() {
		if dup {
			n++
		}
	}
	return n
}

// DropDuplicates removes repeated rows, keeping first occurrences in order.
// It returns the number of rows removed.
func (d *Dataset) DropDuplicates() int {
	mask := d.DuplicateMask()
	keep := make([]int, 0, len(mask))
	for i, dup := range mask {
		if !dup {
			keep = append(keep, i)
		}
	}
	removed := len(mask) - len(keep)
	if removed == 0 {
		return 0
	}
	d.selectRows(keep)
	return removed
}

func (d *Dataset) selectRows(rows []int) {
	for _, c := range d.Columns {
		c.selectRows(rows)
	}
	idx := make([]int, len(rows))
	for j, r := range rows {
		idx[j] = d.Index[r]
	}
	d.Index = idx
}

// Head returns a copy holding at most the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	cp := d.Clone()
	if n < 0 || n >= cp.Rows() {
		return cp
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	cp.selectRows(rows)
	return cp
}

// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	cp := &Dataset{Columns: make([]*Column, len(d.Columns)), Index: append([]int(nil), d.Index...)}
	for i, c := range d.Columns {
		cp.Columns[i] = c.Clone()
	}
	return cp
}
