package cluster

import (
	"math"
	"sort"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// treeNode is one row of the tree arena. Nodes never move; promotion and
// merging rewrite them in place.
type treeNode struct {
	label     string
	parent    string
	hasParent bool
	level     float64
	live      bool
	row       table.Row
	key       Key
}

// parentGroup collects the live children of one parent.
type parentGroup struct {
	parent   string
	children []int
	lo, hi   float64
}

func (g *parentGroup) distance() float64 { return math.Abs(g.hi - g.lo) }

// ClusterRowTrees merges the base rows of one or more precomputed trees
// until at most maxRows remain.
//
// Rows reference their parent through parent_id and sit at a tree level;
// base rows are the rows at the deepest level of their tree (tree names the
// column telling trees apart, empty for a single tree). Complete sibling
// pairs merge first, closest by column by first. When no complete pair is
// left, the live child of the deepest parent takes that parent's place. Once
// only tree heads remain, ClusterRows finishes the job.
//
// The result holds the rule columns only, in rule order.
func ClusterRowTrees(set Set, by, tree string, maxRows *int, rules Rules) (Set, error) {
	f := set.Frame
	required := []string{ColumnParentID, ColumnLevel, by}
	if tree != "" {
		required = append(required, tree)
	}
	if missing := f.Missing(required...); len(missing) > 0 {
		return Set{}, apperr.Configf("missing required fields %v", missing)
	}

	levelCol, _ := f.Column(ColumnLevel)
	if levelCol.Kind != table.Float {
		return Set{}, apperr.Configf("column %q must be numeric", ColumnLevel)
	}
	byCol, _ := f.Column(by)
	if byCol.Kind != table.Float {
		return Set{}, apperr.Configf("distance column %q must be numeric", by)
	}
	base, err := BaseRows(f, tree)
	if err != nil {
		return Set{}, err
	}

	nbase := 0
	for _, b := range base {
		if b {
			nbase++
		}
	}
	target := nbase
	if maxRows != nil {
		if *maxRows < 1 {
			return Set{}, apperr.Config("max number of rows must be greater than zero")
		}
		target = *maxRows
	}
	columns := rules.Columns()
	if !rules.Has(by) {
		return Set{}, apperr.Configf("%s not included in row merge arguments", by)
	}

	drows := nbase - target
	if drows < 1 {
		var idx []int
		for i, b := range base {
			if b {
				idx = append(idx, i)
			}
		}
		out := set.Take(idx)
		frame, err := out.Frame.Select(columns...)
		if err != nil {
			return Set{}, apperr.Configf("missing merge columns: %v", err)
		}
		return Set{Frame: frame, Keys: out.Keys}, nil
	}

	schema := f.Schema()
	m, err := newMerger(schema, rules)
	if err != nil {
		return Set{}, err
	}
	byPos := -1
	for i, fd := range schema {
		if fd.Name == by {
			byPos = i
		}
	}

	nodes, labels, err := newTreeArena(set, levelCol, base)
	if err != nil {
		return Set{}, err
	}
	for i := range nodes {
		if nodes[i].live && nodes[i].row[byPos].Null {
			return Set{}, apperr.Configf("distance column %q has a missing value at row %d", by, i)
		}
	}

	for drows > 0 {
		groups := liveParents(nodes, labels, byPos)
		if len(groups) == 0 {
			break
		}
		sort.SliceStable(groups, func(i, j int) bool {
			if len(groups[i].children) != len(groups[j].children) {
				return len(groups[i].children) > len(groups[j].children)
			}
			return groups[i].distance() < groups[j].distance()
		})

		top := groups[0]
		if len(top.children) == 2 {
			p := labels[top.parent]
			a, b := top.children[0], top.children[1]
			nodes[p].row = m.merge(nodes[a].row, nodes[b].row)
			nodes[p].key = nodes[a].key.Join(nodes[b].key)
			nodes[p].live = true
			nodes[a].live, nodes[b].live = false, false
			drows--
			continue
		}

		// Promote the child of the deepest parent.
		best := 0
		for i := range groups {
			if nodes[labels[groups[i].parent]].level > nodes[labels[groups[best].parent]].level {
				best = i
			}
		}
		g := groups[best]
		p := labels[g.parent]
		c := g.children[0]
		delete(labels, nodes[c].label)
		nodes[c].label = nodes[p].label
		nodes[c].parent = nodes[p].parent
		nodes[c].hasParent = nodes[p].hasParent
		nodes[c].level = nodes[p].level
		nodes[p].label = ""
		labels[g.parent] = c
	}

	var (
		rows []table.Row
		keys []Key
	)
	for _, nd := range nodes {
		if nd.live {
			rows = append(rows, nd.row)
			keys = append(keys, nd.key)
		}
	}
	out := Set{Frame: table.FromRows(schema, rows), Keys: keys}
	logf(by, "tree merged %d base rows into %d", nbase, out.Len())
	if out.Len() > target {
		if out, err = ClusterRows(out, []string{by}, &target, rules); err != nil {
			return Set{}, err
		}
	}
	frame, err := out.Frame.Select(columns...)
	if err != nil {
		return Set{}, apperr.Configf("missing merge columns: %v", err)
	}
	return Set{Frame: frame, Keys: out.Keys}, nil
}

// BaseRows marks the rows at the deepest level of their tree. Rows are split
// into trees by the tree column, or form a single tree when tree is empty.
func BaseRows(f *table.Frame, tree string) ([]bool, error) {
	levelCol, ok := f.Column(ColumnLevel)
	if !ok || levelCol.Kind != table.Float {
		return nil, apperr.Configf("missing numeric %q column", ColumnLevel)
	}
	var treeCol *table.Column
	if tree != "" {
		if treeCol, ok = f.Column(tree); !ok {
			return nil, apperr.Configf("missing tree column %q", tree)
		}
	}
	treeOf := func(i int) string {
		if treeCol == nil {
			return ""
		}
		return treeCol.Text(i)
	}
	deepest := map[string]float64{}
	for i := 0; i < f.Len(); i++ {
		if levelCol.IsNull(i) {
			return nil, apperr.Configf("column %q has a missing value at row %d", ColumnLevel, i)
		}
		t, lv := treeOf(i), levelCol.Floats()[i]
		if cur, ok := deepest[t]; !ok || lv > cur {
			deepest[t] = lv
		}
	}
	base := make([]bool, f.Len())
	for i := range base {
		base[i] = levelCol.Floats()[i] == deepest[treeOf(i)]
	}
	return base, nil
}

func newTreeArena(set Set, levelCol *table.Column, base []bool) ([]treeNode, map[string]int, error) {
	parentCol, _ := set.Frame.Column(ColumnParentID)
	nodes := make([]treeNode, set.Len())
	labels := make(map[string]int, set.Len())
	for i := range nodes {
		label := set.Keys[i].label()
		if _, dup := labels[label]; dup {
			return nil, nil, apperr.Configf("duplicate row id %s", label)
		}
		labels[label] = i
		nodes[i] = treeNode{
			label: label,
			level: levelCol.Floats()[i],
			live:  base[i],
			row:   set.Frame.Row(i),
			key:   set.Keys[i],
		}
		if !parentCol.IsNull(i) {
			nodes[i].parent = parentCol.Text(i)
			nodes[i].hasParent = true
		}
	}
	return nodes, labels, nil
}

// liveParents groups live rows by parent, in order of first appearance.
// Parents absent from the table are treated as roots.
func liveParents(nodes []treeNode, labels map[string]int, byPos int) []*parentGroup {
	var groups []*parentGroup
	index := map[string]*parentGroup{}
	for i, nd := range nodes {
		if !nd.live || !nd.hasParent {
			continue
		}
		if _, ok := labels[nd.parent]; !ok {
			continue
		}
		v := nd.row[byPos].Num
		g, ok := index[nd.parent]
		if !ok {
			g = &parentGroup{parent: nd.parent, lo: v, hi: v}
			index[nd.parent] = g
			groups = append(groups, g)
		}
		g.children = append(g.children, i)
		g.lo = math.Min(g.lo, v)
		g.hi = math.Max(g.hi, v)
	}
	return groups
}
