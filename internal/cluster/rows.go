package cluster

import (
	"strings"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// observations extracts one vector per row from the by columns.
func observations(f *table.Frame, by []string) ([][]float64, error) {
	if len(by) == 0 {
		return nil, apperr.Config("no distance columns given")
	}
	cols := make([]*table.Column, len(by))
	for j, name := range by {
		c, ok := f.Column(name)
		if !ok {
			return nil, apperr.Configf("missing distance column %q", name)
		}
		if c.Kind != table.Float {
			return nil, apperr.Configf("distance column %q must be numeric", name)
		}
		cols[j] = c
	}
	obs := make([][]float64, f.Len())
	for i := range obs {
		v := make([]float64, len(cols))
		for j, c := range cols {
			if c.IsNull(i) {
				return nil, apperr.Configf("distance column %q has a missing value at row %d", c.Name, i)
			}
			v[j] = c.Floats()[i]
		}
		obs[i] = v
	}
	return obs, nil
}

// ClusterRows merges rows along a Ward linkage of the by columns until at most
// maxRows remain. A nil maxRows returns the rows unchanged.
//
// Merged rows carry only rule columns. The result keeps every input column
// while at least one original row survives unmerged, and only the rule
// columns otherwise; column order always follows the input.
func ClusterRows(set Set, by []string, maxRows *int, rules Rules) (Set, error) {
	n := set.Len()
	target := n
	if maxRows != nil {
		if *maxRows < 1 {
			return Set{}, apperr.Config("max number of rows must be greater than zero")
		}
		target = *maxRows
	}
	drows := n - target
	if drows < 1 {
		return set, nil
	}

	schema := set.Frame.Schema()
	m, err := newMerger(schema, rules)
	if err != nil {
		return Set{}, err
	}
	obs, err := observations(set.Frame, by)
	if err != nil {
		return Set{}, err
	}
	links := Ward(obs)

	rows := append(set.Frame.Rows(), make([]table.Row, drows)...)
	keys := append(append([]Key(nil), set.Keys...), make([]Key, drows)...)
	live := make([]bool, n+drows)
	for i := range live {
		live[i] = true
	}
	for i, l := range links[:drows] {
		live[l.A], live[l.B] = false, false
		pid := n + i
		rows[pid] = m.merge(rows[l.A], rows[l.B])
		keys[pid] = keys[l.A].Join(keys[l.B])
	}

	var (
		outRows  []table.Row
		outKeys  []Key
		original bool
	)
	for i, ok := range live {
		if !ok {
			continue
		}
		if i < n {
			original = true
		}
		outRows = append(outRows, rows[i])
		outKeys = append(outKeys, keys[i])
	}
	frame := table.FromRows(schema, outRows)
	if !original {
		if frame, err = frame.Select(ruleColumnsInOrder(schema, rules)...); err != nil {
			return Set{}, err
		}
	}
	logf(strings.Join(by, ","), "merged %d rows into %d", n, len(outKeys))
	return Set{Frame: frame, Keys: outKeys}, nil
}

func ruleColumnsInOrder(schema []table.Field, rules Rules) []string {
	var out []string
	for _, f := range schema {
		if rules.Has(f.Name) {
			out = append(out, f.Name)
		}
	}
	return out
}
