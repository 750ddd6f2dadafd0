package cluster

import (
	"strings"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// Tree columns appended by BuildRowTree and required by ClusterRowTrees.
const (
	ColumnID       = "id"
	ColumnParentID = "parent_id"
	ColumnLevel    = "level"
)

// BuildRowTree builds a hierarchical tree over the rows by Ward linkage of the
// by columns. Every merge becomes a new row. The result has id, parent_id and
// level columns: ids are renumbered from zero, the root has a null parent_id,
// leaves sit at the deepest level and the root at level 1.
//
// A maxLevel below the row count drops the leaves of the first merges and
// lifts every deeper level to maxLevel.
func BuildRowTree(set Set, by []string, maxLevel *int, rules Rules) (Set, error) {
	n := set.Len()
	limit := n
	if maxLevel != nil {
		limit = min(*maxLevel, n)
		if limit < 1 {
			return Set{}, apperr.Config("max level of tree must be greater than zero")
		}
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

	total := n + len(links)
	rows := append(set.Frame.Rows(), make([]table.Row, len(links))...)
	keys := append(append([]Key(nil), set.Keys...), make([]Key, len(links))...)
	live := make([]bool, total)
	parent := make([]int, total)
	level := make([]int, total)
	for i := range live {
		live[i] = true
		parent[i] = -1
		if i < n {
			level[i] = n
		} else {
			level[i] = n - 1 - (i - n)
		}
	}
	drop := n - limit
	for i, l := range links {
		if i < drop {
			live[l.A], live[l.B] = false, false
		}
		pid := n + i
		parent[l.A], parent[l.B] = pid, pid
		rows[pid] = m.merge(rows[l.A], rows[l.B])
		keys[pid] = keys[l.A].Join(keys[l.B])
	}

	newID := make([]int, total)
	var (
		outRows  []table.Row
		outKeys  []Key
		slots    []int
		original bool
	)
	for i, ok := range live {
		if !ok {
			continue
		}
		newID[i] = len(slots)
		slots = append(slots, i)
		if i < n {
			original = true
		}
		outRows = append(outRows, rows[i])
		outKeys = append(outKeys, keys[i])
	}

	ids := make([]float64, len(slots))
	parents := table.NewColumn(ColumnParentID, table.Float, len(slots))
	levels := make([]float64, len(slots))
	for j, i := range slots {
		ids[j] = float64(j)
		if parent[i] >= 0 {
			parents.Set(j, table.F(float64(newID[parent[i]])))
		}
		levels[j] = float64(min(level[i], limit))
	}

	frame := table.FromRows(schema, outRows)
	if !original {
		if frame, err = frame.Select(ruleColumnsInOrder(schema, rules)...); err != nil {
			return Set{}, err
		}
	}
	for _, c := range []*table.Column{
		table.NewFloatColumn(ColumnID, ids),
		parents,
		table.NewFloatColumn(ColumnLevel, levels),
	} {
		if frame, err = frame.With(c); err != nil {
			return Set{}, err
		}
	}
	logf(strings.Join(by, ","), "built tree of %d rows from %d leaves (max level %d)", len(slots), n, limit)
	return Set{Frame: frame, Keys: outKeys}, nil
}
