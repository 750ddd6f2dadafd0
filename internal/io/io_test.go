package io

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	yaml "go.yaml.in/yaml/v3"
	"gonum.org/v1/gonum/mat"

	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

func metadataFrame(t *testing.T) *table.Frame {
	t.Helper()
	lcoe := table.NewColumn("lcoe", table.Float, 2)
	lcoe.Set(0, table.F(0.25))
	f, err := table.New(
		table.NewStringColumn("ids", []string{"(1, 0)", "(2,)"}),
		table.NewFloatColumn("mw", []float64{3, 1.5}),
		lcoe,
		table.NewStringColumn("region", []string{"A", "B"}),
	)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return f
}

func TestResolveFormat_AllCases(t *testing.T) {
	tcs := []struct {
		path   string
		format string
		want   string
		ok     bool
	}{
		{"out.csv", "auto", "csv", true},
		{"out.json", "", "json", true},
		{"out.yml", "auto", "yaml", true},
		{"out.yaml", "auto", "yaml", true},
		{"out", "auto", "csv", true},
		{"out.csv", " CSV ", "csv", true},
		{"out.yml", "yaml", "yaml", true},
		{"out.csv", "json", "", false},
		{"out.json", "yaml", "", false},
		{"out.csv", "xml", "", false},
	}
	for _, tc := range tcs {
		got, err := ResolveFormat(tc.path, tc.format)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("ResolveFormat(%q, %q) = (%q, %v), want (%q, ok=%v)", tc.path, tc.format, got, err, tc.want, tc.ok)
		}
	}
}

func TestWriteClusterMetadata_CSV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "clusters.csv")
	if err := WriteClusterMetadata(metadataFrame(t), p, "auto"); err != nil {
		t.Fatalf("WriteClusterMetadata: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "ids,mw,lcoe,region\n\"(1, 0)\",3,0.25,A\n\"(2,)\",1.5,,B\n"
	if string(b) != want {
		t.Fatalf("csv = %q, want %q", b, want)
	}
}

func TestWriteClusterMetadata_JSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "clusters.json")
	if err := WriteClusterMetadata(metadataFrame(t), p, "json"); err != nil {
		t.Fatalf("WriteClusterMetadata: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "[\n" +
		`  {"ids": "(1, 0)", "mw": 3, "lcoe": 0.25, "region": "A"},` + "\n" +
		`  {"ids": "(2,)", "mw": 1.5, "lcoe": null, "region": "B"}` + "\n]\n"
	if string(b) != want {
		t.Fatalf("json = %q, want %q", b, want)
	}
}

func TestWriteClusterMetadata_YAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "clusters.yaml")
	if err := WriteClusterMetadata(metadataFrame(t), p, "auto"); err != nil {
		t.Fatalf("WriteClusterMetadata: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got []map[string]any
	if err := yaml.Unmarshal(b, &got); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0]["ids"] != "(1, 0)" || got[0]["mw"] != 3 || got[0]["lcoe"] != 0.25 {
		t.Fatalf("first record = %v", got[0])
	}
	if got[1]["lcoe"] != nil || got[1]["mw"] != 1.5 {
		t.Fatalf("second record = %v", got[1])
	}
	if !strings.HasPrefix(string(b), "- ids:") {
		t.Fatalf("expected column order preserved, got:\n%s", b)
	}
}

func TestWriteClusterMetadata_Infinite(t *testing.T) {
	f, err := table.New(
		table.NewStringColumn("ids", []string{"(0,)", "(1,)"}),
		table.NewFloatColumn("lcoe", []float64{math.Inf(1), math.Inf(-1)}),
	)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	dir := t.TempDir()

	yp := filepath.Join(dir, "clusters.yml")
	if err := WriteClusterMetadata(f, yp, "yaml"); err != nil {
		t.Fatalf("WriteClusterMetadata yaml: %v", err)
	}
	b, err := os.ReadFile(yp)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), "lcoe: .inf") || !strings.Contains(string(b), "lcoe: -.inf") {
		t.Fatalf("yaml infinities not written as .inf/-.inf:\n%s", b)
	}
	var got []map[string]any
	if err := yaml.Unmarshal(b, &got); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if v, ok := got[0]["lcoe"].(float64); !ok || !math.IsInf(v, 1) {
		t.Fatalf("first lcoe = %#v, want +Inf", got[0]["lcoe"])
	}
	if v, ok := got[1]["lcoe"].(float64); !ok || !math.IsInf(v, -1) {
		t.Fatalf("second lcoe = %#v, want -Inf", got[1]["lcoe"])
	}

	jp := filepath.Join(dir, "clusters.json")
	if err := WriteClusterMetadata(f, jp, "json"); err != nil {
		t.Fatalf("WriteClusterMetadata json: %v", err)
	}
	b, err = os.ReadFile(jp)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Count(string(b), `"lcoe": null`) != 2 {
		t.Fatalf("json infinities not written as null:\n%s", b)
	}
}

func TestWriteClusterMetadata_FormatMismatch(t *testing.T) {
	p := filepath.Join(t.TempDir(), "clusters.csv")
	if err := WriteClusterMetadata(metadataFrame(t), p, "json"); err == nil {
		t.Fatalf("expected error for mismatched extension")
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("expected no file written, stat err = %v", err)
	}
}

func TestWriteProfiles(t *testing.T) {
	dir := t.TempDir()
	m := mat.NewDense(2, 3, []float64{0.1, 0.2, 0.3, 1, 0, 0.5})

	p, err := WriteProfiles(dir, VariabilityFile, m, []string{"A_utilitypv_1", "B_utilitypv_1"})
	if err != nil {
		t.Fatalf("WriteProfiles: %v", err)
	}
	if p != filepath.Join(dir, InputsDir, VariabilityFile) {
		t.Fatalf("path = %q", p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "Time_Index,A_utilitypv_1,B_utilitypv_1\n1,0.1,1\n2,0.2,0\n3,0.3,0.5\n"
	if string(b) != want {
		t.Fatalf("profiles = %q, want %q", b, want)
	}

	if _, err := WriteProfiles(dir, VariabilityFile, m, []string{"only_one"}); err == nil {
		t.Fatalf("expected error for mismatched column names")
	}
}

func TestWriteYAML_RunSummary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "case")
	summary := RunSummary{
		Session: "abc",
		Output:  dir,
		Clusters: []ClusterSummary{{
			Region:     "A",
			Group:      map[string]string{"technology": "utilitypv"},
			Clusters:   2,
			CapacityMW: 4.5,
			Profiles:   []string{"A_utilitypv_1", "A_utilitypv_2"},
		}},
	}
	p, err := WriteYAML(dir, RunSummaryFileName, summary)
	if err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got RunSummary
	if err := yaml.Unmarshal(b, &got); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if got.Session != "abc" || len(got.Clusters) != 1 || got.Clusters[0].CapacityMW != 4.5 {
		t.Fatalf("summary = %+v", got)
	}
	if strings.Contains(string(b), "settings:") {
		t.Fatalf("empty settings path should be omitted:\n%s", b)
	}
}
