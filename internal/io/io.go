package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
	"gonum.org/v1/gonum/mat"

	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// Output file names written under <output>/Inputs.
const (
	InputsDir          = "Inputs"
	ClusterFile        = "Renewable_clusters.csv"
	VariabilityFile    = "Generators_variability.csv"
	TimeIndexColumn    = "Time_Index"
	CaseSettingsFile   = "case_settings.yml"
	RunSummaryFileName = "run_summary.yml"
)

// ResolveFormat returns the metadata format for path. The format parameter can
// be "csv", "json", "yaml" or "auto" (default); "auto" picks by extension and
// falls back to CSV.
func ResolveFormat(path, format string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	actual := strings.ToLower(strings.TrimSpace(format))
	switch actual {
	case "", "auto":
		switch ext {
		case ".json":
			return "json", nil
		case ".yaml", ".yml":
			return "yaml", nil
		default:
			return "csv", nil
		}
	case "csv", "json", "yaml":
	default:
		return "", fmt.Errorf("unsupported metadata format: %q", format)
	}

	// Validate extension matches format
	ok := map[string][]string{
		"csv":  {".csv"},
		"json": {".json"},
		"yaml": {".yaml", ".yml"},
	}[actual]
	for _, e := range ok {
		if ext == e {
			return actual, nil
		}
	}
	return "", fmt.Errorf("output path extension %q does not match format %q", ext, actual)
}

// WriteClusterMetadata writes cluster metadata as CSV, or as a list of
// records in JSON or YAML. Records keep column order and write missing values
// as null.
func WriteClusterMetadata(f *table.Frame, path, format string) error {
	actual, err := ResolveFormat(path, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	switch actual {
	case "json":
		b, err := recordsJSON(f)
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(recordsYAML(f)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return table.WriteCSV(out, f)
	}
}

func cell(c *table.Column, i int) any {
	if c.IsNull(i) {
		return nil
	}
	if c.Kind == table.Float {
		v := c.Floats()[i]
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil
		}
		return v
	}
	return c.Text(i)
}

func recordsJSON(f *table.Frame) ([]byte, error) {
	names := f.Names()
	var buf bytes.Buffer
	buf.WriteString("[")
	for i := 0; i < f.Len(); i++ {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, name := range names {
			if j > 0 {
				buf.WriteString(", ")
			}
			c, _ := f.Column(name)
			k, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(cell(c, i))
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteString(": ")
			buf.Write(v)
		}
		buf.WriteString("}")
	}
	if f.Len() > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	return buf.Bytes(), nil
}

// yamlFloat returns the YAML tag and text of v. Whole numbers are written as
// ints, and the infinities and NaN use the YAML 1.2 spellings.
func yamlFloat(v float64) (tag, text string) {
	switch {
	case math.IsInf(v, 1):
		return "!!float", ".inf"
	case math.IsInf(v, -1):
		return "!!float", "-.inf"
	case math.IsNaN(v):
		return "!!float", ".nan"
	}
	text = table.FormatFloat(v)
	if !strings.Contains(text, ".") {
		return "!!int", text
	}
	return "!!float", text
}

func recordsYAML(f *table.Frame) *yaml.Node {
	list := &yaml.Node{Kind: yaml.SequenceNode}
	names := f.Names()
	for i := 0; i < f.Len(); i++ {
		rec := &yaml.Node{Kind: yaml.MappingNode}
		for _, name := range names {
			c, _ := f.Column(name)
			val := &yaml.Node{Kind: yaml.ScalarNode}
			switch {
			case c.IsNull(i):
				val.Tag, val.Value = "!!null", "null"
			case c.Kind == table.Float:
				val.Tag, val.Value = yamlFloat(c.Floats()[i])
			default:
				val.Tag, val.Value = "!!str", c.Text(i)
			}
			rec.Content = append(rec.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, val)
		}
		list.Content = append(list.Content, rec)
	}
	return list
}

// WriteProfiles writes one column per cluster, one row per hour, to
// <dir>/Inputs/<name> with a leading 1-based Time_Index column.
func WriteProfiles(dir, name string, profiles *mat.Dense, columns []string) (string, error) {
	rows, hours := profiles.Dims()
	if rows != len(columns) {
		return "", fmt.Errorf("got %d column names for %d profiles", len(columns), rows)
	}
	index := make([]float64, hours)
	for h := range index {
		index[h] = float64(h + 1)
	}
	cols := []*table.Column{table.NewFloatColumn(TimeIndexColumn, index)}
	for i, c := range columns {
		cols = append(cols, table.NewFloatColumn(c, mat.Row(nil, i, profiles)))
	}
	f, err := table.New(cols...)
	if err != nil {
		return "", err
	}

	sub := filepath.Join(dir, InputsDir)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(sub, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if err := table.WriteCSV(out, f); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// RunSummary describes one cluster run.
type RunSummary struct {
	Session  string           `yaml:"session"`
	Settings string           `yaml:"settings,omitempty"`
	Output   string           `yaml:"output"`
	Clusters []ClusterSummary `yaml:"clusters"`
}

// ClusterSummary describes the clusters built for one request.
type ClusterSummary struct {
	Region     string            `yaml:"region"`
	Group      map[string]string `yaml:"group"`
	Clusters   int               `yaml:"clusters"`
	CapacityMW float64           `yaml:"capacity_mw"`
	Profiles   []string          `yaml:"profiles"`
}

// WriteYAML writes v as YAML to <dir>/<name>, creating dir.
func WriteYAML(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
