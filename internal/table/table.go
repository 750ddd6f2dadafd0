// Package table provides a small column-major table of typed columns.
//
// Columns are either Float (float64) or String. Every column carries an explicit
// null mask so that missing values survive projections, merges and CSV round trips.
package table

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the storage type of a column.
type Kind uint8

const (
	Float Kind = iota
	String
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Field names a column and its kind.
type Field struct {
	Name string
	Kind Kind
}

// Value is one cell. Num is used by Float columns and Str by String columns.
type Value struct {
	Num  float64
	Str  string
	Null bool
}

// Row is a row view aligned to a frame schema.
type Row []Value

// F returns a float cell.
func F(v float64) Value {
	if math.IsNaN(v) {
		return Value{Null: true}
	}
	return Value{Num: v}
}

// S returns a string cell.
func S(s string) Value { return Value{Str: s} }

// Null is the missing cell.
var Null = Value{Null: true}

// Equal reports whether two cells of the given kind hold the same non-null value.
func (v Value) Equal(o Value, k Kind) bool {
	if v.Null || o.Null {
		return false
	}
	if k == Float {
		return v.Num == o.Num
	}
	return v.Str == o.Str
}

// Format renders the cell as text. Nulls render as "".
func (v Value) Format(k Kind) string {
	if v.Null {
		return ""
	}
	if k == Float {
		return FormatFloat(v.Num)
	}
	return v.Str
}

// FormatFloat renders integers without a decimal point, so ids read from
// parquet int columns and CSV text compare equal.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Column is a named, typed vector of cells.
type Column struct {
	Name string
	Kind Kind
	nums []float64
	strs []string
	null []bool
}

// NewFloatColumn returns a Float column. NaN values are stored as nulls.
func NewFloatColumn(name string, values []float64) *Column {
	c := &Column{Name: name, Kind: Float, nums: values, null: make([]bool, len(values))}
	for i, v := range values {
		if math.IsNaN(v) {
			c.null[i] = true
		}
	}
	return c
}

// NewStringColumn returns a String column.
func NewStringColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: String, strs: values, null: make([]bool, len(values))}
}

// NewColumn returns an all-null column of n cells.
func NewColumn(name string, kind Kind, n int) *Column {
	c := &Column{Name: name, Kind: kind, null: make([]bool, n)}
	if kind == Float {
		c.nums = make([]float64, n)
		for i := range c.nums {
			c.nums[i] = math.NaN()
		}
	} else {
		c.strs = make([]string, n)
	}
	for i := range c.null {
		c.null[i] = true
	}
	return c
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.null) }

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool { return c.null[i] }

// Value returns cell i.
func (c *Column) Value(i int) Value {
	if c.null[i] {
		return Null
	}
	if c.Kind == Float {
		return Value{Num: c.nums[i]}
	}
	return Value{Str: c.strs[i]}
}

// Set overwrites cell i.
func (c *Column) Set(i int, v Value) {
	c.null[i] = v.Null
	if c.Kind == Float {
		if v.Null {
			c.nums[i] = math.NaN()
		} else {
			c.nums[i] = v.Num
		}
		return
	}
	if v.Null {
		c.strs[i] = ""
	} else {
		c.strs[i] = v.Str
	}
}

// Floats returns the backing values of a Float column (NaN where null).
// The slice is shared with the column.
func (c *Column) Floats() []float64 { return c.nums }

// Text returns cell i rendered as text ("" for null).
func (c *Column) Text(i int) string { return c.Value(i).Format(c.Kind) }

// Texts renders every cell as text.
func (c *Column) Texts() []string {
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.Text(i)
	}
	return out
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, null: append([]bool(nil), c.null...)}
	if c.Kind == Float {
		out.nums = append([]float64(nil), c.nums...)
	} else {
		out.strs = append([]string(nil), c.strs...)
	}
	return out
}

func (c *Column) take(idx []int) *Column {
	out := NewColumn(c.Name, c.Kind, len(idx))
	for j, i := range idx {
		out.Set(j, c.Value(i))
	}
	return out
}

// asString converts a column to a String column.
func (c *Column) asString() *Column {
	if c.Kind == String {
		return c
	}
	out := NewColumn(c.Name, String, c.Len())
	for i := 0; i < c.Len(); i++ {
		if !c.null[i] {
			out.Set(i, S(c.Text(i)))
		}
	}
	return out
}

// Frame is an ordered set of equally long columns with unique names.
type Frame struct {
	cols  []*Column
	index map[string]int
	n     int
}

// New assembles a frame from columns.
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			f.n = c.Len()
		} else if c.Len() != f.n {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), f.n)
		}
		f.index[c.Name] = i
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// Empty returns a frame with the given schema and no rows.
func Empty(schema []Field) *Frame {
	return FromRows(schema, nil)
}

// FromRows builds a frame from row views aligned to schema.
func FromRows(schema []Field, rows []Row) *Frame {
	f := &Frame{index: make(map[string]int, len(schema)), n: len(rows)}
	for j, fd := range schema {
		c := NewColumn(fd.Name, fd.Kind, len(rows))
		for i, r := range rows {
			c.Set(i, r[j])
		}
		f.index[fd.Name] = j
		f.cols = append(f.cols, c)
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.cols) }

// Names returns column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// Schema returns the column fields in order.
func (f *Frame) Schema() []Field {
	out := make([]Field, len(f.cols))
	for i, c := range f.cols {
		out[i] = Field{Name: c.Name, Kind: c.Kind}
	}
	return out
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Missing returns the names not present in the frame, in argument order.
func (f *Frame) Missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if !f.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Select projects the frame onto the named columns. Column storage is shared.
func (f *Frame) Select(names ...string) (*Frame, error) {
	if missing := f.Missing(names...); len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %v", missing)
	}
	cols := make([]*Column, len(names))
	for i, n := range names {
		cols[i] = f.cols[f.index[n]]
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.n = f.n
	return out, nil
}

// Take returns a copy holding the rows at the given positions, in that order.
func (f *Frame) Take(idx []int) *Frame {
	out := &Frame{index: make(map[string]int, len(f.cols)), n: len(idx)}
	for j, c := range f.cols {
		out.index[c.Name] = j
		out.cols = append(out.cols, c.take(idx))
	}
	return out
}

// Row returns row i as a row view.
func (f *Frame) Row(i int) Row {
	r := make(Row, len(f.cols))
	for j, c := range f.cols {
		r[j] = c.Value(i)
	}
	return r
}

// Rows returns every row as a row view.
func (f *Frame) Rows() []Row {
	out := make([]Row, f.n)
	for i := range out {
		out[i] = f.Row(i)
	}
	return out
}

// Clone deep-copies the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{index: make(map[string]int, len(f.cols)), n: f.n}
	for j, c := range f.cols {
		out.index[c.Name] = j
		out.cols = append(out.cols, c.clone())
	}
	return out
}

// With returns a frame with c appended, or replacing the column of the same name.
// Other columns are shared.
func (f *Frame) With(c *Column) (*Frame, error) {
	if f.Width() > 0 && c.Len() != f.n {
		return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), f.n)
	}
	cols := append([]*Column(nil), f.cols...)
	if i, ok := f.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Concat stacks frames row-wise. The result has the union of columns in first
// appearance order; absent cells are null. Columns whose kinds disagree are
// converted to String.
func Concat(frames ...*Frame) *Frame {
	var schema []Field
	pos := map[string]int{}
	for _, f := range frames {
		for _, c := range f.cols {
			j, ok := pos[c.Name]
			if !ok {
				pos[c.Name] = len(schema)
				schema = append(schema, Field{Name: c.Name, Kind: c.Kind})
				continue
			}
			if schema[j].Kind != c.Kind {
				schema[j].Kind = String
			}
		}
	}
	total := 0
	for _, f := range frames {
		total += f.n
	}
	out := &Frame{index: make(map[string]int, len(schema)), n: total}
	for j, fd := range schema {
		out.index[fd.Name] = j
		out.cols = append(out.cols, NewColumn(fd.Name, fd.Kind, total))
	}
	offset := 0
	for _, f := range frames {
		for _, c := range f.cols {
			dst := out.cols[pos[c.Name]]
			src := c
			if dst.Kind != src.Kind {
				src = src.asString()
			}
			for i := 0; i < f.n; i++ {
				dst.Set(offset+i, src.Value(i))
			}
		}
		offset += f.n
	}
	return out
}
