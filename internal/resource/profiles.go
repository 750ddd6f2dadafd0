package resource

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/cluster"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// ClusterProfiles returns one hourly profile per key (rows) by hour (columns).
// A single-resource key returns that resource's profile; larger keys average
// their resource profiles weighted by metadata capacity.
func (g *Group) ClusterProfiles(keys []cluster.Key) (*mat.Dense, error) {
	if len(keys) == 0 {
		return nil, apperr.Config("no clusters to compute profiles for")
	}
	md, err := g.Metadata.Read([]string{ColumnID, ColumnCapacity})
	if err != nil {
		return nil, err
	}
	idCol, _ := md.Column(ColumnID)
	mwCol, _ := md.Column(ColumnCapacity)
	if mwCol.Kind != table.Float {
		return nil, apperr.Configf("resource metadata column %q must be numeric", ColumnCapacity)
	}
	weights := make(map[string]float64, md.Len())
	for i := 0; i < md.Len(); i++ {
		weights[idCol.Text(i)] = mwCol.Floats()[i]
	}

	uniq := map[string]bool{}
	var columns []string
	for _, k := range keys {
		for _, id := range k {
			if !uniq[id] {
				uniq[id] = true
				columns = append(columns, id)
			}
		}
	}
	sort.Strings(columns)
	profiles, err := g.Profiles.Read(columns)
	if err != nil {
		return nil, err
	}
	hours := profiles.Len()
	if hours == 0 {
		return nil, apperr.Config("resource profiles are empty")
	}
	series := make(map[string][]float64, len(columns))
	for _, id := range columns {
		c, _ := profiles.Column(id)
		if c.Kind != table.Float {
			return nil, apperr.Configf("resource profile %q must be numeric", id)
		}
		series[id] = c.Floats()
	}

	out := mat.NewDense(len(keys), hours, nil)
	row := make([]float64, hours)
	for i, k := range keys {
		if len(k) == 1 {
			out.SetRow(i, series[k[0]])
			continue
		}
		w := make([]float64, len(k))
		for j, id := range k {
			v, ok := weights[id]
			if !ok {
				return nil, apperr.Configf("resource %s missing from metadata", id)
			}
			w[j] = v
		}
		total := floats.Sum(w)
		for j := range row {
			row[j] = 0
		}
		for j, id := range k {
			floats.AddScaled(row, w[j]/total, series[id])
		}
		out.SetRow(i, row)
	}
	logf(g.Technology(), "computed %d cluster profiles over %d hours", len(keys), hours)
	return out, nil
}
