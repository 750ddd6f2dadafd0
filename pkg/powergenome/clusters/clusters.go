// Package clusters turns the records of a resource.Builder into model inputs:
// cluster metadata, hourly profiles aligned to the model year, and a run
// summary.
package clusters

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/AlejandroGNE/PowerGenome/internal/hourly"
	pgio "github.com/AlejandroGNE/PowerGenome/internal/io"
	"github.com/AlejandroGNE/PowerGenome/internal/resource"
	"github.com/AlejandroGNE/PowerGenome/internal/settings"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// Options controls how profiles are aligned and what the summary records.
// Case, when set, is written next to the outputs as the case settings.
type Options struct {
	DropLeapDay  bool
	UTCOffset    int
	SettingsPath string
	Case         *settings.Settings
}

// Result holds everything a run writes.
type Result struct {
	Session   string
	Settings  string
	Metadata  *table.Frame
	Profiles  *mat.Dense
	Names     []string
	Summaries []pgio.ClusterSummary
	Case      *settings.Settings
}

// Hours returns the number of profile hours.
func (r *Result) Hours() int {
	if r.Profiles == nil {
		return 0
	}
	_, c := r.Profiles.Dims()
	return c
}

// Collect gathers the builder's records.
func Collect(b *resource.Builder, opts Options) (*Result, error) {
	md, err := b.ClusterMetadata()
	if err != nil {
		return nil, err
	}
	profiles, err := b.ClusterProfiles(func(m *mat.Dense) (*mat.Dense, error) {
		return hourly.Normalize(m, opts.DropLeapDay, opts.UTCOffset)
	})
	if err != nil {
		return nil, err
	}
	names := b.ClusterNames()

	res := &Result{
		Session:  b.Session().String(),
		Settings: opts.SettingsPath,
		Metadata: md,
		Profiles: profiles,
		Names:    names,
		Case:     opts.Case,
	}
	next := 0
	for _, rec := range b.Records() {
		n := rec.Clusters.Len()
		res.Summaries = append(res.Summaries, pgio.ClusterSummary{
			Region:     rec.Region,
			Group:      tagMap(rec.Selectors),
			Clusters:   n,
			CapacityMW: Capacity(rec),
			Profiles:   names[next : next+n],
		})
		next += n
	}
	return res, nil
}

// Capacity sums the non-null mw of a record's clusters.
func Capacity(rec resource.Record) float64 {
	c, ok := rec.Clusters.Frame.Column(resource.ColumnCapacity)
	if !ok {
		return 0
	}
	total := 0.0
	for i, v := range c.Floats() {
		if !c.IsNull(i) {
			total += v
		}
	}
	return total
}

func tagMap(tags []resource.Tag) map[string]string {
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		out[t.Key] = fmt.Sprint(t.Value)
	}
	return out
}

// MetadataFile returns the cluster metadata file name for format.
func MetadataFile(format string) string {
	switch format {
	case "json":
		return "Renewable_clusters.json"
	case "yaml":
		return "Renewable_clusters.yml"
	default:
		return pgio.ClusterFile
	}
}

// Write writes the metadata, profiles and run summary under dir, plus the
// case settings when the result carries them, and returns the written paths.
func Write(res *Result, dir, format string) ([]string, error) {
	if format == "" || format == "auto" {
		format = "csv"
	}
	mdPath := filepath.Join(dir, pgio.InputsDir, MetadataFile(format))
	if err := pgio.WriteClusterMetadata(res.Metadata, mdPath, format); err != nil {
		return nil, fmt.Errorf("write cluster metadata: %w", err)
	}
	profPath, err := pgio.WriteProfiles(dir, pgio.VariabilityFile, res.Profiles, res.Names)
	if err != nil {
		return nil, fmt.Errorf("write profiles: %w", err)
	}
	summary := pgio.RunSummary{
		Session:  res.Session,
		Settings: res.Settings,
		Output:   dir,
		Clusters: res.Summaries,
	}
	sumPath, err := pgio.WriteYAML(dir, pgio.RunSummaryFileName, summary)
	if err != nil {
		return nil, fmt.Errorf("write run summary: %w", err)
	}
	paths := []string{mdPath, profPath, sumPath}
	if res.Case != nil {
		casePath, err := pgio.WriteYAML(dir, pgio.CaseSettingsFile, res.Case)
		if err != nil {
			return nil, fmt.Errorf("write case settings: %w", err)
		}
		paths = append(paths, casePath)
	}
	return paths, nil
}
