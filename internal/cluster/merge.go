package cluster

import (
	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// Rules configures how two rows are merged.
//
// Sums are added, Means are averaged (weighted by Weight when set, equally
// otherwise) and Uniques keep the shared value or become null.
type Rules struct {
	Sums    []string
	Means   []string
	Weight  string
	Uniques []string
}

// Columns returns every merged column: sums, then means, then uniques.
func (r Rules) Columns() []string {
	out := make([]string, 0, len(r.Sums)+len(r.Means)+len(r.Uniques))
	out = append(out, r.Sums...)
	out = append(out, r.Means...)
	return append(out, r.Uniques...)
}

// Has reports whether column is merged by any rule.
func (r Rules) Has(column string) bool {
	for _, c := range r.Columns() {
		if c == column {
			return true
		}
	}
	return false
}

// merger applies Rules to rows of a fixed schema.
type merger struct {
	width   int
	sums    []int
	means   []int
	uniques []int
	kinds   []table.Kind
	weight  int
}

func newMerger(schema []table.Field, rules Rules) (*merger, error) {
	pos := make(map[string]int, len(schema))
	kinds := make([]table.Kind, len(schema))
	for i, f := range schema {
		pos[f.Name] = i
		kinds[i] = f.Kind
	}
	m := &merger{width: len(schema), kinds: kinds, weight: -1}

	var missing []string
	lookup := func(names []string, numeric bool) ([]int, error) {
		out := make([]int, 0, len(names))
		for _, n := range names {
			i, ok := pos[n]
			if !ok {
				missing = append(missing, n)
				continue
			}
			if numeric && kinds[i] != table.Float {
				return nil, apperr.Configf("column %q must be numeric to be merged", n)
			}
			out = append(out, i)
		}
		return out, nil
	}
	var err error
	if m.sums, err = lookup(rules.Sums, true); err != nil {
		return nil, err
	}
	if m.means, err = lookup(rules.Means, true); err != nil {
		return nil, err
	}
	if m.uniques, err = lookup(rules.Uniques, false); err != nil {
		return nil, err
	}
	if rules.Weight != "" && len(rules.Means) > 0 {
		w, err := lookup([]string{rules.Weight}, true)
		if err != nil {
			return nil, err
		}
		if len(w) == 1 {
			m.weight = w[0]
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Configf("missing merge columns %v", missing)
	}
	return m, nil
}

// merge returns a row aligned to the schema. Cells outside the rules are null.
func (m *merger) merge(a, b table.Row) table.Row {
	out := make(table.Row, m.width)
	for i := range out {
		out[i] = table.Null
	}
	for _, i := range m.sums {
		if a[i].Null || b[i].Null {
			continue
		}
		out[i] = table.F(a[i].Num + b[i].Num)
	}
	if len(m.means) > 0 {
		aw, bw := 0.5, 0.5
		if m.weight >= 0 {
			wa, wb := a[m.weight], b[m.weight]
			if !wa.Null && !wb.Null && wa.Num+wb.Num != 0 {
				total := wa.Num + wb.Num
				aw, bw = wa.Num/total, wb.Num/total
			}
		}
		for _, i := range m.means {
			if a[i].Null || b[i].Null {
				continue
			}
			out[i] = table.F(a[i].Num*aw + b[i].Num*bw)
		}
	}
	for _, i := range m.uniques {
		if a[i].Equal(b[i], m.kinds[i]) {
			out[i] = a[i]
		}
	}
	return out
}

// MergeRowPair merges two rows of the given schema. The result is aligned to
// the schema, with null cells for columns outside the rules.
func MergeRowPair(schema []table.Field, a, b table.Row, rules Rules) (table.Row, error) {
	m, err := newMerger(schema, rules)
	if err != nil {
		return nil, err
	}
	return m.merge(a, b), nil
}
