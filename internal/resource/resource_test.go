package resource

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/cluster"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

func newFrame(t *testing.T, cols ...*table.Column) *table.Frame {
	t.Helper()
	f, err := table.New(cols...)
	require.NoError(t, err)
	return f
}

func constantProfiles(t *testing.T, hours int, values map[string]float64) *table.Frame {
	t.Helper()
	var cols []*table.Column
	for _, id := range []string{"0", "1", "2", "3"} {
		v, ok := values[id]
		if !ok {
			continue
		}
		vals := make([]float64, hours)
		for i := range vals {
			vals[i] = v
		}
		cols = append(cols, table.NewFloatColumn(id, vals))
	}
	return newFrame(t, cols...)
}

func keyStrings(keys []cluster.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func floatsOf(t *testing.T, f *table.Frame, name string) []float64 {
	t.Helper()
	c, ok := f.Column(name)
	require.True(t, ok, "missing column %q", name)
	return append([]float64(nil), c.Floats()...)
}

func assertRowConstant(t *testing.T, m *mat.Dense, row int, want float64) {
	t.Helper()
	for _, v := range m.RawRowView(row) {
		require.InDelta(t, want, v, 1e-12)
	}
}

func twoResourceGroup(t *testing.T) *Group {
	t.Helper()
	md := newFrame(t,
		table.NewFloatColumn("id", []float64{0, 1}),
		table.NewStringColumn("ipm_region", []string{"A", "A"}),
		table.NewFloatColumn("mw", []float64{1, 2}),
	)
	g, err := NewGroup(map[string]any{TagTechnology: "utilitypv"}, md,
		constantProfiles(t, HoursPerLeapYear, map[string]float64{"0": 0.1, "1": 0.4}), "")
	require.NoError(t, err)
	return g
}

func costGroup(t *testing.T) *Group {
	t.Helper()
	md := newFrame(t,
		table.NewFloatColumn("id", []float64{0, 1, 2, 3}),
		table.NewStringColumn("ipm_region", []string{"A", "A", "B", "B"}),
		table.NewFloatColumn("mw", []float64{1, 1, 1, 1}),
		table.NewFloatColumn("lcoe", []float64{0.4, 0.1, 0.3, 0.2}),
	)
	g, err := NewGroup(map[string]any{TagTechnology: "landbasedwind"}, md,
		constantProfiles(t, HoursPerYear, map[string]float64{"0": 0.1, "1": 0.2, "2": 0.3, "3": 0.4}), "")
	require.NoError(t, err)
	return g
}

func TestNewGroup_RequiresTechnologyAndTables(t *testing.T) {
	_, err := NewGroup(map[string]any{}, nil, nil, "")
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
	assert.Contains(t, err.Error(), "technology")
	assert.Contains(t, err.Error(), "metadata")
	assert.Contains(t, err.Error(), "profiles")
}

func TestNewGroup_DefaultsExisting(t *testing.T) {
	g := twoResourceGroup(t)
	assert.False(t, g.Existing())
	assert.Equal(t, "utilitypv", g.Technology())
	assert.Equal(t, "", g.Tree())
	assert.Equal(t, "{existing=false, technology=utilitypv}", g.String())
	assert.Empty(t, g.Metadata.Path())
	assert.Equal(t, "none", g.Profiles.Format().String())
}

func TestGroup_ClustersAndProfiles(t *testing.T) {
	g := twoResourceGroup(t)

	set, err := g.Clusters(Selection{MaxClusters: cluster.Limit(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"(1, 0)"}, keyStrings(set.Keys))
	assert.Equal(t, []float64{3}, floatsOf(t, set.Frame, "mw"))

	profiles, err := g.ClusterProfiles(set.Keys)
	require.NoError(t, err)
	rows, cols := profiles.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, HoursPerLeapYear, cols)
	assertRowConstant(t, profiles, 0, 0.3)
}

func TestGroup_ClustersWithoutLimitKeepsResources(t *testing.T) {
	set, err := twoResourceGroup(t).Clusters(Selection{})
	require.NoError(t, err)
	// Sorted by capacity, largest first, without an lcoe column.
	assert.Equal(t, []string{"(1,)", "(0,)"}, keyStrings(set.Keys))
}

func TestGroup_Selection(t *testing.T) {
	g := costGroup(t)

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{"all by cost", Selection{}, []string{"(1,)", "(3,)", "(2,)", "(0,)"}},
		{"regions", Selection{IPMRegions: []string{"B"}}, []string{"(3,)", "(2,)"}},
		{"min capacity", Selection{MinCapacity: Float(2)}, []string{"(1,)", "(3,)"}},
		{"min capacity partial", Selection{MinCapacity: Float(1.5)}, []string{"(1,)", "(3,)"}},
		{"zero min capacity", Selection{MinCapacity: Float(0)}, []string{"(1,)", "(3,)", "(2,)", "(0,)"}},
		{"max lcoe", Selection{MaxLCOE: Float(0.25)}, []string{"(1,)", "(3,)"}},
		{"cap multiplier", Selection{MinCapacity: Float(2), CapMultiplier: Float(2)}, []string{"(1,)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := g.Clusters(tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keyStrings(set.Keys))
		})
	}
}

func TestGroup_CapMultiplierScalesCapacity(t *testing.T) {
	set, err := costGroup(t).Clusters(Selection{CapMultiplier: Float(2.5)})
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 2.5, 2.5, 2.5}, floatsOf(t, set.Frame, "mw"))

	// The cached metadata is left untouched.
	set, err = costGroup(t).Clusters(Selection{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, floatsOf(t, set.Frame, "mw"))
}

func TestGroup_ShortfallWarns(t *testing.T) {
	var buf bytes.Buffer
	SetWarningLogger(&buf)
	t.Cleanup(func() { SetWarningLogger(nil) })

	set, err := costGroup(t).Clusters(Selection{MinCapacity: Float(10)})
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
	assert.Contains(t, buf.String(), "Selected capacity less than minimum (4 < 10 MW)")
}

func TestGroup_NoResources(t *testing.T) {
	g := costGroup(t)

	_, err := g.Clusters(Selection{IPMRegions: []string{"Z"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNoResources))

	_, err = g.Clusters(Selection{MaxLCOE: Float(0.05)})
	assert.True(t, errors.Is(err, apperr.ErrNoResources))
}

func TestGroup_TreeClusters(t *testing.T) {
	parents := table.NewColumn("parent_id", table.Float, 3)
	parents.Set(0, table.F(2))
	parents.Set(1, table.F(2))
	md := newFrame(t,
		table.NewFloatColumn("id", []float64{0, 1, 2}),
		table.NewStringColumn("ipm_region", []string{"A", "A", "A"}),
		table.NewFloatColumn("mw", []float64{1, 2, 3}),
		table.NewFloatColumn("lcoe", []float64{0.1, 0.2, 0.15}),
		table.NewStringColumn("cluster", []string{"a", "a", "a"}),
		parents,
		table.NewFloatColumn("level", []float64{2, 2, 1}),
	)
	g, err := NewGroup(map[string]any{TagTechnology: "utilitypv", TagTree: "cluster"}, md,
		constantProfiles(t, HoursPerYear, map[string]float64{"0": 0.1, "1": 0.4}), "")
	require.NoError(t, err)
	require.NoError(t, g.ValidateMetadata())

	set, err := g.Clusters(Selection{})
	require.NoError(t, err)
	assert.Equal(t, []string{"(0,)", "(1,)"}, keyStrings(set.Keys))

	set, err = g.Clusters(Selection{MaxClusters: cluster.Limit(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"(0, 1)"}, keyStrings(set.Keys))
	assert.Equal(t, []float64{3}, floatsOf(t, set.Frame, "mw"))

	profiles, err := g.ClusterProfiles(set.Keys)
	require.NoError(t, err)
	assertRowConstant(t, profiles, 0, 0.3)
}

func TestGroup_ValidateMetadata(t *testing.T) {
	md := newFrame(t, table.NewFloatColumn("id", []float64{0}))
	g, err := NewGroup(map[string]any{TagTechnology: "utilitypv", TagTree: "cluster"}, md,
		constantProfiles(t, HoursPerYear, map[string]float64{"0": 0.1}), "")
	require.NoError(t, err)

	err = g.ValidateMetadata()
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
	for _, key := range []string{"ipm_region", "mw", "parent_id", "level", "cluster"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestGroup_ValidateProfiles(t *testing.T) {
	require.NoError(t, twoResourceGroup(t).ValidateProfiles())

	md := newFrame(t, table.NewFloatColumn("id", []float64{0, 1}), table.NewFloatColumn("mw", []float64{1, 1}))
	g, err := NewGroup(map[string]any{TagTechnology: "utilitypv"}, md,
		constantProfiles(t, HoursPerYear, map[string]float64{"0": 0.1, "2": 0.4}), "")
	require.NoError(t, err)
	err = g.ValidateProfiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not match resource identifiers")

	g, err = NewGroup(map[string]any{TagTechnology: "utilitypv"}, md,
		constantProfiles(t, 24, map[string]float64{"0": 0.1, "1": 0.4}), "")
	require.NoError(t, err)
	err = g.ValidateProfiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not either 8760 or 8784")
}

func writeGroupDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("wind_metadata.csv", "id,ipm_region,mw,lcoe\n0,A,1,0.2\n1,A,2,0.1\n")
	write("wind_profiles.csv", "0,1\n"+strings.Repeat("0.1,0.4\n", HoursPerYear))
	write("wind_group.json", `{"technology": "landbasedwind", "metadata": "wind_metadata.csv", "profiles": "wind_profiles.csv"}`)
	write("solar_metadata.csv", "id,ipm_region,mw\n0,B,3\n")
	write("solar_profiles.csv", "0\n"+strings.Repeat("0.2\n", HoursPerYear))
	write("solar_group.json", `{"technology": "utilitypv", "existing": true, "metadata": "solar_metadata.csv", "profiles": "solar_profiles.csv"}`)
	write("notes.json", `{"technology": "ignored"}`)
	return dir
}

func TestLoadGroups(t *testing.T) {
	dir := writeGroupDir(t)

	groups, err := LoadGroups(dir)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "utilitypv", groups[0].Technology())
	assert.True(t, groups[0].Existing())
	assert.Equal(t, "landbasedwind", groups[1].Technology())
	assert.Equal(t, filepath.Join(dir, "wind_metadata.csv"), groups[1].Metadata.Path())

	for _, g := range groups {
		require.NoError(t, g.ValidateMetadata())
		require.NoError(t, g.ValidateProfiles())
	}

	set, err := groups[1].Clusters(Selection{MaxClusters: cluster.Limit(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"(1, 0)"}, keyStrings(set.Keys))
	profiles, err := groups[1].ClusterProfiles(set.Keys)
	require.NoError(t, err)
	assertRowConstant(t, profiles, 0, 0.3)
}

func TestLoadGroups_Errors(t *testing.T) {
	_, err := LoadGroups(t.TempDir())
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad_group.json"), []byte("{"), 0o644))
	_, err = LoadGroups(dir)
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
}

func TestParseTags(t *testing.T) {
	tags, err := ParseTags("technology=utilitypv, existing=false,turbine_type=fixed,cap=1.5")
	require.NoError(t, err)
	assert.Equal(t, []Tag{
		T("technology", "utilitypv"),
		T("existing", false),
		T("turbine_type", "fixed"),
		T("cap", 1.5),
	}, tags)

	_, err = ParseTags("technology")
	require.Error(t, err)

	tags, err = ParseTags("")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestMapNRELATBTechnology(t *testing.T) {
	assert.Equal(t, []Tag{T(TagTechnology, "utilitypv")}, MapNRELATBTechnology("UtilityPV", "LosAngeles"))
	assert.Equal(t, []Tag{T(TagTechnology, "offshorewind")}, MapNRELATBTechnology("OffShoreWind", ""))
	assert.Equal(t,
		[]Tag{T(TagTechnology, "offshorewind"), T("turbine_type", "fixed")},
		MapNRELATBTechnology("OffShoreWind", "OTRG3"))
	assert.Equal(t,
		[]Tag{T(TagTechnology, "offshorewind"), T("turbine_type", "floating")},
		MapNRELATBTechnology("Offshore Wind", "otrg 10"))
	assert.Empty(t, MapNRELATBTechnology("Nuclear", ""))
}

func regionGroup(t *testing.T) *Group {
	t.Helper()
	md := newFrame(t,
		table.NewFloatColumn("id", []float64{0, 1, 2}),
		table.NewStringColumn("ipm_region", []string{"A", "A", "B"}),
		table.NewFloatColumn("mw", []float64{1, 2, 3}),
	)
	g, err := NewGroup(map[string]any{TagTechnology: "utilitypv"}, md,
		constantProfiles(t, HoursPerLeapYear, map[string]float64{"0": 0.1, "1": 0.4, "2": 0.4}), "")
	require.NoError(t, err)
	return g
}

func TestBuilder_BuildClusters(t *testing.T) {
	b := NewBuilder([]*Group{regionGroup(t), costGroup(t)})
	assert.NotEqual(t, b.Session().String(), NewBuilder(nil).Session().String())

	require.NoError(t, b.BuildClusters("A", Selection{IPMRegions: []string{"A"}, MaxClusters: cluster.Limit(1)}, T(TagTechnology, "utilitypv")))
	require.NoError(t, b.BuildClusters("B", Selection{IPMRegions: []string{"B"}}, T(TagTechnology, "utilitypv")))
	require.Len(t, b.Records(), 2)

	md, err := b.ClusterMetadata()
	require.NoError(t, err)
	assert.Equal(t, []string{"ids", "ipm_region", "mw", "region", "technology"}, md.Names())
	ids, _ := md.Column("ids")
	assert.Equal(t, []string{"(1, 0)", "(2,)"}, ids.Texts())
	region, _ := md.Column("region")
	assert.Equal(t, []string{"A", "B"}, region.Texts())
	tech, _ := md.Column("technology")
	assert.Equal(t, []string{"utilitypv", "utilitypv"}, tech.Texts())
	assert.Equal(t, []float64{3, 3}, floatsOf(t, md, "mw"))

	assert.Equal(t, []string{"A_utilitypv_1", "B_utilitypv_1"}, b.ClusterNames())

	profiles, err := b.ClusterProfiles()
	require.NoError(t, err)
	rows, cols := profiles.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, HoursPerLeapYear, cols)
	assertRowConstant(t, profiles, 0, 0.3)
	assertRowConstant(t, profiles, 1, 0.4)
}

func TestBuilder_Errors(t *testing.T) {
	b := NewBuilder([]*Group{regionGroup(t), costGroup(t)})

	_, err := b.ClusterMetadata()
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
	_, err = b.ClusterProfiles()
	require.Error(t, err)

	err = b.BuildClusters("A", Selection{})
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
	assert.Contains(t, err.Error(), "multiple resource groups")

	err = b.BuildClusters("A", Selection{}, T(TagTechnology, "nuclear"))
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))

	err = b.BuildClusters("Z", Selection{IPMRegions: []string{"Z"}}, T(TagTechnology, "utilitypv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNoResources))

	assert.Empty(t, b.Records())
}

func TestBuilder_FindGroups(t *testing.T) {
	b := NewBuilder([]*Group{regionGroup(t), costGroup(t)})
	assert.Len(t, b.FindGroups(), 2)
	assert.Len(t, b.FindGroups(T(TagExisting, false)), 2)
	found := b.FindGroups(T(TagTechnology, "landbasedwind"))
	require.Len(t, found, 1)
	assert.Equal(t, "landbasedwind", found[0].Technology())
	assert.Empty(t, b.FindGroups(T(TagExisting, true)))
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []int
	finished map[int]error
}

func (o *recordingObserver) BuildStarted(i int, _ Request) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, i)
}

func (o *recordingObserver) BuildFinished(i int, _ Record, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished[i] = err
}

func TestBuilder_BuildAll(t *testing.T) {
	b := NewBuilder([]*Group{regionGroup(t), costGroup(t)})
	obs := &recordingObserver{finished: map[int]error{}}
	b.SetObserver(obs)
	requests := []Request{
		{Region: "A", Selection: Selection{IPMRegions: []string{"A"}, MaxClusters: cluster.Limit(1)}, Selectors: []Tag{T(TagTechnology, "utilitypv")}},
		{Region: "B", Selection: Selection{IPMRegions: []string{"B"}}, Selectors: []Tag{T(TagTechnology, "landbasedwind")}},
		{Region: "B", Selection: Selection{IPMRegions: []string{"B"}}, Selectors: []Tag{T(TagTechnology, "utilitypv")}},
	}
	require.NoError(t, b.BuildAll(context.Background(), requests, 2))

	records := b.Records()
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, requests[i].Region, rec.Region)
		assert.Equal(t, requests[i].Selectors, rec.Selectors)
	}
	assert.Equal(t, []string{"(3,)", "(2,)"}, keyStrings(records[1].Clusters.Keys))
	assert.Equal(t, []string{"A_utilitypv_1", "B_landbasedwind_1", "B_landbasedwind_2", "B_utilitypv_1"}, b.ClusterNames())
	assert.ElementsMatch(t, []int{0, 1, 2}, obs.started)
	assert.Len(t, obs.finished, 3)
	for _, err := range obs.finished {
		assert.NoError(t, err)
	}

	_, err := b.ClusterProfiles()
	require.Error(t, err, "mixed profile lengths")
	assert.True(t, apperr.IsConfig(err))

	trim := func(m *mat.Dense) (*mat.Dense, error) {
		r, _ := m.Dims()
		return mat.DenseCopyOf(m.Slice(0, r, 0, HoursPerYear)), nil
	}
	profiles, err := b.ClusterProfiles(trim)
	require.NoError(t, err)
	rows, cols := profiles.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, HoursPerYear, cols)

	_, err = b.ClusterProfiles(func(*mat.Dense) (*mat.Dense, error) { return nil, errors.New("bad profiles") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad profiles")

	err = b.BuildAll(context.Background(), []Request{
		requests[0],
		{Region: "A", Selectors: []Tag{T(TagTechnology, "nuclear")}},
	}, 2)
	require.Error(t, err)
	assert.Len(t, b.Records(), 3)
}

func TestLoadBuilder(t *testing.T) {
	b, err := LoadBuilder(writeGroupDir(t))
	require.NoError(t, err)
	require.NoError(t, b.BuildClusters("A", Selection{MaxClusters: cluster.Limit(1)}, T(TagTechnology, "landbasedwind")))
	md, err := b.ClusterMetadata()
	require.NoError(t, err)
	ids, _ := md.Column("ids")
	assert.Equal(t, []string{"(1, 0)"}, ids.Texts())
	tech, _ := md.Column("technology")
	assert.Equal(t, []string{"landbasedwind"}, tech.Texts())

	_, err = LoadBuilder(t.TempDir())
	require.Error(t, err)
}
