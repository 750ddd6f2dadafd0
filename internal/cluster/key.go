// Package cluster merges resource rows into clusters.
//
// Rows are merged pairwise under explicit aggregation Rules. Flat clustering
// follows a Ward linkage over one or more distance columns; tree clustering
// follows precomputed parent/child hierarchies stored in the rows themselves
// and falls back to flat clustering for the remaining tree heads.
//
// Every output row carries a Key: the ordered tuple of original row ids that
// were merged into it, left operand first.
package cluster

import (
	"fmt"
	"strings"

	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// Key is the ordered tuple of original ids merged into a row.
type Key []string

// String renders the key as a tuple, e.g. "(1, 0)" or "(1,)".
func (k Key) String() string {
	if len(k) == 1 {
		return "(" + k[0] + ",)"
	}
	return "(" + strings.Join(k, ", ") + ")"
}

// Join returns k followed by o.
func (k Key) Join(o Key) Key {
	out := make(Key, 0, len(k)+len(o))
	out = append(out, k...)
	return append(out, o...)
}

// label is the id a tree row is referenced by from parent_id.
func (k Key) label() string {
	if len(k) == 1 {
		return k[0]
	}
	return k.String()
}

// Limit returns a pointer to n, for optional row and level limits.
func Limit(n int) *int { return &n }

// Set pairs a table with one key per row.
type Set struct {
	Frame *table.Frame
	Keys  []Key
}

// NewSet pairs frame with keys.
func NewSet(frame *table.Frame, keys []Key) (Set, error) {
	if frame.Len() != len(keys) {
		return Set{}, fmt.Errorf("got %d keys for %d rows", len(keys), frame.Len())
	}
	return Set{Frame: frame, Keys: keys}, nil
}

// Singletons keys every row by its position, starting at zero.
func Singletons(frame *table.Frame) Set {
	keys := make([]Key, frame.Len())
	for i := range keys {
		keys[i] = Key{table.FormatFloat(float64(i))}
	}
	return Set{Frame: frame, Keys: keys}
}

// Index keys every row by the value of column and drops it from the frame.
func Index(frame *table.Frame, column string) (Set, error) {
	c, ok := frame.Column(column)
	if !ok {
		return Set{}, fmt.Errorf("missing index column %q", column)
	}
	keys := make([]Key, frame.Len())
	for i := range keys {
		if c.IsNull(i) {
			return Set{}, fmt.Errorf("index column %q has a missing value at row %d", column, i)
		}
		keys[i] = Key{c.Text(i)}
	}
	var rest []string
	for _, n := range frame.Names() {
		if n != column {
			rest = append(rest, n)
		}
	}
	f, err := frame.Select(rest...)
	if err != nil {
		return Set{}, err
	}
	return Set{Frame: f, Keys: keys}, nil
}

// Len returns the number of rows.
func (s Set) Len() int { return len(s.Keys) }

// IDs flattens every key, in row order.
func (s Set) IDs() []string {
	var out []string
	for _, k := range s.Keys {
		out = append(out, k...)
	}
	return out
}

// Take returns the rows at the given positions.
func (s Set) Take(idx []int) Set {
	keys := make([]Key, len(idx))
	for j, i := range idx {
		keys[j] = s.Keys[i]
	}
	return Set{Frame: s.Frame.Take(idx), Keys: keys}
}

// KeyColumn renders the keys as a String column.
func (s Set) KeyColumn(name string) *table.Column {
	vals := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		vals[i] = k.String()
	}
	return table.NewStringColumn(name, vals)
}
