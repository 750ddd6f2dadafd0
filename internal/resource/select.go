package resource

import (
	"fmt"
	"sort"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/cluster"
	"github.com/AlejandroGNE/PowerGenome/internal/metrics"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// Merge rule columns, used when present in the metadata.
var (
	SumColumns  = []string{"area", ColumnCapacity}
	MeanColumns = []string{
		ColumnLCOE,
		"interconnect_annuity",
		"offshore_spur_miles",
		"spur_miles",
		"tx_miles",
		"site_substation_spur_miles",
		"substation_metro_tx_miles",
		"site_metro_spur_miles",
	}
	UniqueColumns = []string{ColumnRegion, "metro_id"}
)

// Selection narrows and sizes the clusters of a group. Nil fields are unset;
// a zero MinCapacity or MaxLCOE is treated as unset.
type Selection struct {
	// IPMRegions keeps only resources in these regions. Nil keeps all.
	IPMRegions []string
	// MinCapacity selects resources, cheapest first (or largest first without
	// lcoe), until their capacity reaches this many MW.
	MinCapacity *float64
	// MaxClusters is the number of clusters to merge down to. Nil disables
	// clustering.
	MaxClusters *int
	// MaxLCOE drops resources above this levelized cost after MinCapacity.
	MaxLCOE *float64
	// CapMultiplier scales capacity before selection.
	CapMultiplier *float64
}

// Float returns a pointer to v, for optional selection fields.
func Float(v float64) *float64 { return &v }

func (s Selection) minCapacity() (float64, bool) {
	if s.MinCapacity == nil || *s.MinCapacity == 0 {
		return 0, false
	}
	return *s.MinCapacity, true
}

func (s Selection) maxLCOE() (float64, bool) {
	if s.MaxLCOE == nil || *s.MaxLCOE == 0 {
		return 0, false
	}
	return *s.MaxLCOE, true
}

// rules returns the merge rules for the columns of f.
func rules(f *table.Frame) cluster.Rules {
	present := func(names []string) []string {
		var out []string
		for _, n := range names {
			if f.Has(n) {
				out = append(out, n)
			}
		}
		return out
	}
	return cluster.Rules{
		Sums:    present(SumColumns),
		Means:   present(MeanColumns),
		Weight:  ColumnCapacity,
		Uniques: present(UniqueColumns),
	}
}

// Clusters selects resources and merges them into clusters. Tree groups merge
// along their trees; other groups use flat Ward clustering. Rows are keyed by
// the resource ids merged into them.
func (g *Group) Clusters(sel Selection) (cluster.Set, error) {
	md, err := g.Metadata.Read(nil)
	if err != nil {
		return cluster.Set{}, err
	}
	set, err := cluster.Index(md, ColumnID)
	if err != nil {
		return cluster.Set{}, apperr.Configf("resource metadata: %v", err)
	}
	if missing := set.Frame.Missing(ColumnCapacity); len(missing) > 0 {
		return cluster.Set{}, apperr.Configf("resource metadata missing required keys %v", missing)
	}
	for _, name := range []string{ColumnCapacity, ColumnLCOE} {
		if c, ok := set.Frame.Column(name); ok && c.Kind != table.Float {
			return cluster.Set{}, apperr.Configf("resource metadata column %q must be numeric", name)
		}
	}

	idx := make([]int, 0, set.Len())
	if sel.IPMRegions != nil {
		region, ok := set.Frame.Column(ColumnRegion)
		if !ok {
			return cluster.Set{}, apperr.Configf("resource metadata missing required keys [%s]", ColumnRegion)
		}
		keep := make(map[string]bool, len(sel.IPMRegions))
		for _, r := range sel.IPMRegions {
			keep[r] = true
		}
		for i := 0; i < set.Len(); i++ {
			if keep[region.Text(i)] {
				idx = append(idx, i)
			}
		}
	} else {
		for i := 0; i < set.Len(); i++ {
			idx = append(idx, i)
		}
	}

	set = set.Take(idx)
	if sel.CapMultiplier != nil {
		mw, _ := set.Frame.Column(ColumnCapacity)
		for i := 0; i < mw.Len(); i++ {
			if !mw.IsNull(i) {
				mw.Set(i, table.F(mw.Floats()[i]**sel.CapMultiplier))
			}
		}
	}

	by := ColumnCapacity
	if set.Frame.Has(ColumnLCOE) {
		by = ColumnLCOE
	}
	order := make([]int, set.Len())
	for i := range order {
		order[i] = i
	}
	sortRows(set.Frame, order, by)
	set = set.Take(order)
	mw, _ := set.Frame.Column(ColumnCapacity)

	tree := g.Tree()
	var base []bool
	if tree != "" {
		if base, err = cluster.BaseRows(set.Frame, tree); err != nil {
			return cluster.Set{}, err
		}
	} else {
		base = make([]bool, set.Len())
		for i := range base {
			base[i] = true
		}
	}
	mask := append([]bool(nil), base...)

	minCap, hasMin := sel.minCapacity()
	if hasMin {
		selectMinCapacity(mask, mw, minCap)
	}
	if maxLCOE, ok := sel.maxLCOE(); ok && set.Frame.Has(ColumnLCOE) {
		lcoe, _ := set.Frame.Column(ColumnLCOE)
		for i := range mask {
			if mask[i] && (lcoe.IsNull(i) || lcoe.Floats()[i] > maxLCOE) {
				mask[i] = false
			}
		}
	}

	selected := 0
	capacity := 0.0
	for i, m := range mask {
		if m {
			selected++
			if !mw.IsNull(i) {
				capacity += mw.Floats()[i]
			}
		}
	}
	if selected == 0 {
		return cluster.Set{}, fmt.Errorf("%s: %w", g, apperr.ErrNoResources)
	}
	tech := g.Technology()
	metrics.ResourcesSelectedTotal.WithLabelValues(tech).Add(float64(selected))
	if hasMin && capacity < minCap {
		warnf(tech, "Selected capacity less than minimum (%v < %v MW)", capacity, minCap)
		metrics.CapacityShortfallTotal.WithLabelValues(tech).Inc()
	}

	r := rules(set.Frame)
	var out cluster.Set
	if tree != "" {
		var keep []int
		for i := range mask {
			if mask[i] || !base[i] {
				keep = append(keep, i)
			}
		}
		if out, err = cluster.ClusterRowTrees(set.Take(keep), by, tree, sel.MaxClusters, r); err != nil {
			return cluster.Set{}, err
		}
		metrics.RowsMergedTotal.WithLabelValues("tree").Add(float64(selected - out.Len()))
	} else {
		var keep []int
		for i, m := range mask {
			if m {
				keep = append(keep, i)
			}
		}
		if out, err = cluster.ClusterRows(set.Take(keep), []string{by}, sel.MaxClusters, r); err != nil {
			return cluster.Set{}, err
		}
		metrics.RowsMergedTotal.WithLabelValues("ward").Add(float64(selected - out.Len()))
	}
	logf(tech, "selected %d resources (%.6g MW) into %d clusters", selected, capacity, out.Len())
	return out, nil
}

// sortRows orders idx ascending by lcoe, or descending by capacity. The sort
// is stable and missing values go last.
func sortRows(f *table.Frame, idx []int, by string) {
	c, _ := f.Column(by)
	asc := by == ColumnLCOE
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		if c.IsNull(a) || c.IsNull(b) {
			return !c.IsNull(a) && c.IsNull(b)
		}
		if asc {
			return c.Floats()[a] < c.Floats()[b]
		}
		return c.Floats()[a] > c.Floats()[b]
	})
}

// selectMinCapacity narrows mask to the shortest run of eligible rows, in
// order, whose capacity reaches minCap. At least one row stays selected.
func selectMinCapacity(mask []bool, mw *table.Column, minCap float64) {
	first := -1
	total := 0.0
	for i := range mask {
		if !mask[i] {
			continue
		}
		if !mw.IsNull(i) {
			total += mw.Floats()[i]
		}
		if total < minCap {
			continue
		}
		if first < 0 {
			first = i
			continue
		}
		mask[i] = false
	}
}
