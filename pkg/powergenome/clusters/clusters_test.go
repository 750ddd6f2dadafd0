package clusters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "go.yaml.in/yaml/v3"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/cluster"
	pgio "github.com/AlejandroGNE/PowerGenome/internal/io"
	"github.com/AlejandroGNE/PowerGenome/internal/resource"
	"github.com/AlejandroGNE/PowerGenome/internal/settings"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

func newGroup(t *testing.T, technology string, hours int) *resource.Group {
	t.Helper()
	md, err := table.New(
		table.NewFloatColumn("id", []float64{0, 1}),
		table.NewStringColumn("ipm_region", []string{"A", "A"}),
		table.NewFloatColumn("mw", []float64{1, 2}),
	)
	require.NoError(t, err)

	var cols []*table.Column
	for id, v := range map[string]float64{"0": 0.1, "1": 0.4} {
		vals := make([]float64, hours)
		for i := range vals {
			vals[i] = v
		}
		cols = append(cols, table.NewFloatColumn(id, vals))
	}
	profiles, err := table.New(cols...)
	require.NoError(t, err)

	g, err := resource.NewGroup(map[string]any{resource.TagTechnology: technology}, md, profiles, "")
	require.NoError(t, err)
	return g
}

func builtBuilder(t *testing.T) *resource.Builder {
	t.Helper()
	b := resource.NewBuilder([]*resource.Group{newGroup(t, "utilitypv", resource.HoursPerLeapYear)})
	sel := resource.Selection{IPMRegions: []string{"A"}, MaxClusters: cluster.Limit(1)}
	require.NoError(t, b.BuildClusters("CA", sel, resource.T(resource.TagTechnology, "utilitypv")))
	return b
}

func TestCollect(t *testing.T) {
	b := builtBuilder(t)
	res, err := Collect(b, Options{DropLeapDay: true, SettingsPath: "settings.yml"})
	require.NoError(t, err)

	assert.Equal(t, b.Session().String(), res.Session)
	assert.Equal(t, []string{"CA_utilitypv_1"}, res.Names)
	assert.Equal(t, resource.HoursPerYear, res.Hours())
	require.Len(t, res.Summaries, 1)

	s := res.Summaries[0]
	assert.Equal(t, "CA", s.Region)
	assert.Equal(t, map[string]string{"technology": "utilitypv"}, s.Group)
	assert.Equal(t, 1, s.Clusters)
	assert.InDelta(t, 3.0, s.CapacityMW, 1e-12)
	assert.Equal(t, []string{"CA_utilitypv_1"}, s.Profiles)
	assert.InDelta(t, 0.3, res.Profiles.At(0, 0), 1e-12)
}

func TestCollectMixedYearLengths(t *testing.T) {
	b := resource.NewBuilder([]*resource.Group{
		newGroup(t, "utilitypv", resource.HoursPerLeapYear),
		newGroup(t, "landbasedwind", resource.HoursPerYear),
	})
	sel := resource.Selection{IPMRegions: []string{"A"}, MaxClusters: cluster.Limit(1)}
	require.NoError(t, b.BuildClusters("CA", sel, resource.T(resource.TagTechnology, "utilitypv")))
	require.NoError(t, b.BuildClusters("CA", sel, resource.T(resource.TagTechnology, "landbasedwind")))

	res, err := Collect(b, Options{DropLeapDay: true})
	require.NoError(t, err)
	rows, cols := res.Profiles.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, resource.HoursPerYear, cols)
	assert.Equal(t, []string{"CA_utilitypv_1", "CA_landbasedwind_1"}, res.Names)
	assert.InDelta(t, 0.3, res.Profiles.At(1, resource.HoursPerYear-1), 1e-12)

	_, err = Collect(b, Options{})
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
}

func TestCollectWithoutRecords(t *testing.T) {
	_, err := Collect(resource.NewBuilder(nil), Options{})
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
}

func TestWrite(t *testing.T) {
	res, err := Collect(builtBuilder(t), Options{DropLeapDay: true})
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := Write(res, dir, "auto")
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, pgio.InputsDir, pgio.ClusterFile), paths[0])

	md, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "ids,"), string(md))

	prof, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(prof)), "\n")
	assert.Equal(t, "Time_Index,CA_utilitypv_1", lines[0])
	assert.Len(t, lines, resource.HoursPerYear+1)

	raw, err := os.ReadFile(paths[2])
	require.NoError(t, err)
	var summary pgio.RunSummary
	require.NoError(t, yaml.Unmarshal(raw, &summary))
	assert.Equal(t, res.Session, summary.Session)
	assert.Equal(t, dir, summary.Output)
	require.Len(t, summary.Clusters, 1)
	assert.Equal(t, []string{"CA_utilitypv_1"}, summary.Clusters[0].Profiles)
}

func TestWriteCaseSettings(t *testing.T) {
	s, err := settings.Parse([]byte(`
model_regions: [CA]
region_aggregations:
  CA: [A]
drop_leap_day: true
renewables_clusters:
  - region: CA
    max_clusters: 1
    technology: utilitypv
`))
	require.NoError(t, err)
	res, err := Collect(builtBuilder(t), Options{DropLeapDay: true, Case: s})
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := Write(res, dir, "csv")
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, filepath.Join(dir, pgio.CaseSettingsFile), paths[3])

	raw, err := os.ReadFile(paths[3])
	require.NoError(t, err)
	back, err := settings.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestMetadataFile(t *testing.T) {
	assert.Equal(t, pgio.ClusterFile, MetadataFile("csv"))
	assert.Equal(t, "Renewable_clusters.json", MetadataFile("json"))
	assert.Equal(t, "Renewable_clusters.yml", MetadataFile("yaml"))
}
