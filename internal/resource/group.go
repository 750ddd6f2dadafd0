// Package resource binds renewable resource metadata and hourly profiles into
// technology-scoped groups, selects and clusters their resources, and builds
// cluster records across model regions.
package resource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
	"github.com/AlejandroGNE/PowerGenome/internal/tabular"
)

// Metadata columns.
const (
	ColumnID        = "id"
	ColumnRegion    = "ipm_region"
	ColumnCapacity  = "mw"
	ColumnLCOE      = "lcoe"
	ColumnParentID  = "parent_id"
	ColumnLevel     = "level"
	GroupFileSuffix = "_group.json"
)

// Hours in a profile year.
const (
	HoursPerYear     = 8760
	HoursPerLeapYear = 8784
)

// Group is one technology's resources: a metadata table with one resource
// per row and a profile table with one column of hourly capacity factors
// per resource id.
type Group struct {
	Tags     map[string]any
	Metadata *tabular.Source
	Profiles *tabular.Source
}

// NewGroup builds a group from descriptor tags and optional in-memory tables.
// Relative metadata and profiles paths are resolved against dir.
func NewGroup(tags map[string]any, metadata, profiles *table.Frame, dir string) (*Group, error) {
	t := map[string]any{TagExisting: false}
	for k, v := range tags {
		t[k] = v
	}
	for _, key := range []string{TagMetadata, TagProfiles} {
		p, ok := t[key].(string)
		if !ok || p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s path %q: %w", key, p, err)
		}
		t[key] = abs
	}

	required := []string{TagTechnology}
	if metadata == nil {
		required = append(required, TagMetadata)
	}
	if profiles == nil {
		required = append(required, TagProfiles)
	}
	var missing []string
	for _, key := range required {
		if !truthy(t[key]) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Configf("group metadata missing required keys %v: %v", missing, t)
	}

	g := &Group{Tags: t}
	var err error
	metaPath, _ := t[TagMetadata].(string)
	if g.Metadata, err = openSource(metaPath, metadata); err != nil {
		return nil, fmt.Errorf("group %s metadata: %w", g, err)
	}
	profilePath, _ := t[TagProfiles].(string)
	if g.Profiles, err = openSource(profilePath, profiles); err != nil {
		return nil, fmt.Errorf("group %s profiles: %w", g, err)
	}
	return g, nil
}

// openSource serves frame from memory when no path is tagged.
func openSource(path string, frame *table.Frame) (*tabular.Source, error) {
	if path == "" && frame != nil {
		return tabular.FromFrame(frame), nil
	}
	return tabular.New(path, frame)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	default:
		if f, ok := number(v); ok {
			return f != 0
		}
		return true
	}
}

// LoadGroup reads one group descriptor file.
func LoadGroup(path string) (*Group, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read group %s: %w", path, err)
	}
	var tags map[string]any
	if err := json.Unmarshal(b, &tags); err != nil {
		return nil, apperr.Configf("parse group %s: %v", path, err)
	}
	g, err := NewGroup(tags, nil, nil, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logf(g.Technology(), "loaded group from %s", path)
	return g, nil
}

// LoadGroups reads every *_group.json file in dir, in name order.
func LoadGroups(dir string) ([]*Group, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+GroupFileSuffix))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, apperr.Configf("no resource groups found in %s", dir)
	}
	sort.Strings(paths)
	groups := make([]*Group, 0, len(paths))
	for _, p := range paths {
		g, err := LoadGroup(p)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Technology returns the technology tag.
func (g *Group) Technology() string {
	s, _ := g.Tags[TagTechnology].(string)
	return s
}

// Existing reports whether the group holds existing rather than new resources.
func (g *Group) Existing() bool {
	b, _ := g.Tags[TagExisting].(bool)
	return b
}

// Tree returns the tree column name, or "" when the group has no hierarchy.
func (g *Group) Tree() string {
	s, _ := g.Tags[TagTree].(string)
	return s
}

// Selectors returns the identifying tags in key order, leaving out file paths.
func (g *Group) Selectors() []Tag {
	keys := make([]string, 0, len(g.Tags))
	for k := range g.Tags {
		if k == TagMetadata || k == TagProfiles {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Tag, 0, len(keys))
	for _, k := range keys {
		if v := g.Tags[k]; v != nil {
			out = append(out, Tag{Key: k, Value: v})
		}
	}
	return out
}

func (g *Group) String() string {
	parts := make([]string, 0, len(g.Tags))
	for _, t := range g.Selectors() {
		parts = append(parts, t.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ValidateMetadata checks that the metadata has the required columns.
func (g *Group) ValidateMetadata() error {
	cols, err := g.Metadata.Columns()
	if err != nil {
		return err
	}
	required := []string{ColumnRegion, ColumnID, ColumnCapacity}
	if tree := g.Tree(); tree != "" {
		required = append(required, ColumnParentID, ColumnLevel, tree)
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	var missing []string
	for _, r := range required {
		if !have[r] {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return apperr.Configf("resource metadata missing required keys %v", missing)
	}
	return nil
}

// ValidateProfiles checks that profile columns match metadata ids and that
// profiles cover a full year.
func (g *Group) ValidateProfiles() error {
	md, err := g.Metadata.Read([]string{ColumnID})
	if err != nil {
		return err
	}
	idCol, _ := md.Column(ColumnID)
	ids := make(map[string]bool, idCol.Len())
	for _, id := range idCol.Texts() {
		ids[id] = true
	}
	cols, err := g.Profiles.Columns()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	if len(seen) != len(ids) {
		return apperr.Config("resource profiles column names do not match resource identifiers")
	}
	for id := range ids {
		if !seen[id] {
			return apperr.Config("resource profiles column names do not match resource identifiers")
		}
	}
	if len(cols) == 0 {
		return apperr.Config("resource profiles have no columns")
	}
	first, err := g.Profiles.Read(cols[:1])
	if err != nil {
		return err
	}
	if n := first.Len(); n != HoursPerYear && n != HoursPerLeapYear {
		return apperr.Configf("resource profiles are not either %d or %d elements (got %d)", HoursPerYear, HoursPerLeapYear, n)
	}
	return nil
}
