package data

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

const LabelColumn = "label"

// Table is the feature table: one row per analysed graph, one value per
// metric column, plus the class label.
type Table struct {
	Features []string
	Rows     [][]decimal.Decimal
	Labels   []string
}

type Shape struct {
	Rows    int
	Columns int
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Columns)
}

func NewTable(features []string) *Table {
	cols := make([]string, len(features))
	copy(cols, features)
	return &Table{Features: cols}
}

// Append adds a row; values must follow the Features order.
func (t *Table) Append(values []decimal.Decimal, label string) error {
	if len(values) != len(t.Features) {
		return fmt.Errorf("%w: row has %d values, table has %d metric columns",
			ErrSchema, len(values), len(t.Features))
	}
	row := make([]decimal.Decimal, len(values))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	t.Labels = append(t.Labels, label)
	return nil
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Columns returns the full schema, metric columns followed by the label.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(t.Features)+1)
	cols = append(cols, t.Features...)
	return append(cols, LabelColumn)
}

// Shape reports rows x metric columns, as in X.shape.
func (t *Table) Shape() Shape {
	return Shape{Rows: len(t.Rows), Columns: len(t.Features)}
}

func (t *Table) ColumnIndex(name string) int {
	for i, f := range t.Features {
		if f == name {
			return i
		}
	}
	return -1
}

func (t *Table) Clone() *Table {
	out := NewTable(t.Features)
	out.Rows = make([][]decimal.Decimal, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = make([]decimal.Decimal, len(row))
		copy(out.Rows[i], row)
	}
	out.Labels = make([]string, len(t.Labels))
	copy(out.Labels, t.Labels)
	return out
}

func (t *Table) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, l := range t.Labels {
		counts[l]++
	}
	return counts
}

// Classes returns the distinct labels in sorted order.
func (t *Table) Classes() []string {
	counts := t.ClassCounts()
	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

// IsBalanced reports whether every class has the same number of rows.
func (t *Table) IsBalanced() bool {
	lo, hi := MinMaxCount(t.ClassCounts())
	return lo == hi
}

// Matrix converts all metric columns to float64.
func (t *Table) Matrix() ([][]float64, error) {
	return t.Project(t.Features)
}

// Project selects the named metric columns, in the given order, as a float64
// matrix. The returned matrix does not share memory with the table. A cell
// outside the float64 range is an ErrSchema.
func (t *Table) Project(names []string) ([][]float64, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		j := t.ColumnIndex(n)
		if j < 0 {
			return nil, fmt.Errorf("%w: missing column %s", ErrSchema, n)
		}
		idx[i] = j
	}
	X := make([][]float64, len(t.Rows))
	for r, row := range t.Rows {
		X[r] = make([]float64, len(idx))
		for i, j := range idx {
			v, err := toFloat(row[j])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", r, names[i], err)
			}
			X[r][i] = v
		}
	}
	return X, nil
}

func toFloat(d decimal.Decimal) (float64, error) {
	v := d.InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: value %s is out of range", ErrSchema, d.String())
	}
	return v, nil
}

// FromMatrix builds a table from float64 rows, e.g. oversampler output.
func FromMatrix(features []string, X [][]float64, labels []string) (*Table, error) {
	if len(X) != len(labels) {
		return nil, fmt.Errorf("%w: %d rows but %d labels", ErrSchema, len(X), len(labels))
	}
	t := NewTable(features)
	t.Rows = make([][]decimal.Decimal, 0, len(X))
	t.Labels = make([]string, 0, len(labels))
	for i, row := range X {
		values := make([]decimal.Decimal, len(row))
		for j, v := range row {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, fmt.Errorf("%w: non-finite value at row %d, column %d", ErrSchema, i, j)
			}
			values[j] = decimal.NewFromFloat(v)
		}
		if err := t.Append(values, labels[i]); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return t, nil
}

func MinMaxCount(counts map[string]int) (int, int) {
	first := true
	lo, hi := 0, 0
	for _, c := range counts {
		if first {
			lo, hi = c, c
			first = false
			continue
		}
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	return lo, hi
}
