// Package settings loads YAML run settings: the model regions, how IPM
// regions aggregate into them, where resource groups live, and which
// renewable clusters to build.
package settings

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/resource"
)

// Settings is one run's settings file. Unknown keys are ignored so full
// settings files can be shared with other tools.
type Settings struct {
	ModelRegions       []string            `yaml:"model_regions"`
	RegionAggregations map[string][]string `yaml:"region_aggregations"`
	ResourceGroupPath  string              `yaml:"resource_group_path"`
	InputFolder        string              `yaml:"input_folder"`
	DropLeapDay        bool                `yaml:"drop_leap_day"`
	UTCOffset          int                 `yaml:"utc_offset"`
	RenewablesClusters []ClusterRequest    `yaml:"renewables_clusters"`
}

// ClusterRequest asks for the clusters of one group in one model region.
// Keys other than the selection fields are group selectors, kept in file
// order. An NREL ATB technology and detail can stand in for selectors.
type ClusterRequest struct {
	Region        string
	MaxClusters   *int
	MinCapacity   *float64
	MaxLCOE       *float64
	CapMultiplier *float64
	ATBTechnology string
	ATBDetail     string
	Selectors     []resource.Tag
}

// GroupSelectors returns the selectors of the ATB technology, if any, merged
// with the explicit selectors. Explicit selectors win on shared keys.
func (r ClusterRequest) GroupSelectors() []resource.Tag {
	var out []resource.Tag
	if r.ATBTechnology != "" {
		out = resource.MapNRELATBTechnology(r.ATBTechnology, r.ATBDetail)
	}
	return resource.MergeTags(out, r.Selectors)
}

// UnmarshalYAML decodes a request mapping, collecting unknown keys as
// selectors.
func (r *ClusterRequest) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: cluster request must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		var err error
		switch key {
		case "region":
			err = val.Decode(&r.Region)
		case "max_clusters":
			err = val.Decode(&r.MaxClusters)
		case "min_capacity":
			err = val.Decode(&r.MinCapacity)
		case "max_lcoe":
			err = val.Decode(&r.MaxLCOE)
		case "cap_multiplier":
			err = val.Decode(&r.CapMultiplier)
		case "atb_technology":
			err = val.Decode(&r.ATBTechnology)
		case "atb_detail":
			err = val.Decode(&r.ATBDetail)
		default:
			var v any
			if err = val.Decode(&v); err == nil {
				r.Selectors = append(r.Selectors, resource.T(key, v))
			}
		}
		if err != nil {
			return fmt.Errorf("cluster request key %q: %w", key, err)
		}
	}
	return nil
}

// MarshalYAML writes the request back in the layout UnmarshalYAML reads.
func (r ClusterRequest) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, v any) error {
		val := &yaml.Node{}
		if err := val.Encode(v); err != nil {
			return fmt.Errorf("cluster request key %q: %w", key, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, val)
		return nil
	}
	fields := []struct {
		key string
		set bool
		v   any
	}{
		{"region", true, r.Region},
		{"max_clusters", r.MaxClusters != nil, r.MaxClusters},
		{"min_capacity", r.MinCapacity != nil, r.MinCapacity},
		{"max_lcoe", r.MaxLCOE != nil, r.MaxLCOE},
		{"cap_multiplier", r.CapMultiplier != nil, r.CapMultiplier},
		{"atb_technology", r.ATBTechnology != "", r.ATBTechnology},
		{"atb_detail", r.ATBDetail != "", r.ATBDetail},
	}
	for _, f := range fields {
		if !f.set {
			continue
		}
		if err := add(f.key, f.v); err != nil {
			return nil, err
		}
	}
	for _, t := range r.Selectors {
		if err := add(t.Key, t.Value); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// Load reads and validates a settings file. Relative paths in it are resolved
// against the file's directory.
func Load(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for _, p := range []*string{&s.ResourceGroupPath, &s.InputFolder} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	logf(path, "loaded %d model regions and %d cluster requests", len(s.ModelRegions), len(s.RenewablesClusters))
	keep, _ := s.RegionsToKeep()
	logf(path, "IPM regions in play: %s", strings.Join(keep, ", "))
	return s, nil
}

// Parse decodes and validates settings YAML.
func Parse(b []byte) (*Settings, error) {
	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(false)
	if err := dec.Decode(&s); err != nil {
		return nil, apperr.Configf("parse settings: %v", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the model regions are set, that no IPM region belongs
// to two model regions, and that every cluster request targets a model region
// and selects a resource group.
func (s *Settings) Validate() error {
	if len(s.ModelRegions) == 0 {
		return apperr.Config("settings missing model_regions")
	}
	if err := s.validateRegions(); err != nil {
		return err
	}
	known := make(map[string]bool, len(s.ModelRegions))
	for _, r := range s.ModelRegions {
		known[r] = true
	}
	for i, req := range s.RenewablesClusters {
		if req.Region == "" {
			return apperr.Configf("renewables_clusters[%d] missing region", i)
		}
		if !known[req.Region] {
			return apperr.Configf("renewables_clusters[%d] region %q is not a model region", i, req.Region)
		}
		if len(req.GroupSelectors()) == 0 {
			if req.ATBTechnology != "" {
				return apperr.Configf("renewables_clusters[%d] atb_technology %q (detail %q) matches no resource groups", i, req.ATBTechnology, req.ATBDetail)
			}
			return apperr.Configf("renewables_clusters[%d] has no group selectors", i)
		}
		if req.MaxClusters != nil && *req.MaxClusters < 1 {
			return apperr.Configf("renewables_clusters[%d] max_clusters must be greater than zero", i)
		}
	}
	return nil
}

// validateRegions rejects IPM regions claimed by two model regions, either
// through two aggregations or by a model region that another one aggregates.
func (s *Settings) validateRegions() error {
	_, agg := s.RegionsToKeep()
	inModel := make(map[string]bool, len(s.ModelRegions))
	for _, r := range s.ModelRegions {
		inModel[r] = true
	}
	for _, model := range s.ModelRegions {
		for _, ipm := range s.IPMRegions(model) {
			if other, ok := agg[ipm]; ok && other != model && inModel[other] {
				return apperr.Configf("IPM region %q is claimed by model regions %q and %q", ipm, model, other)
			}
		}
	}
	return nil
}

// IPMRegions returns the IPM regions making up a model region: its
// aggregation when one is defined, or the region itself.
func (s *Settings) IPMRegions(region string) []string {
	if agg, ok := s.RegionAggregations[region]; ok {
		return append([]string(nil), agg...)
	}
	return []string{region}
}

// RegionsToKeep lists the IPM regions in play, in model region order, and
// maps each aggregated IPM region to its model region. Aggregations of
// regions outside model_regions follow, in name order.
func (s *Settings) RegionsToKeep() ([]string, map[string]string) {
	agg := make(map[string]string)
	for model, members := range s.RegionAggregations {
		for _, m := range members {
			agg[m] = model
		}
	}
	var keep []string
	seen := make(map[string]bool)
	add := func(r string) {
		if !seen[r] {
			seen[r] = true
			keep = append(keep, r)
		}
	}
	inModel := make(map[string]bool, len(s.ModelRegions))
	for _, r := range s.ModelRegions {
		inModel[r] = true
		for _, ipm := range s.IPMRegions(r) {
			add(ipm)
		}
	}
	var extra []string
	for model := range s.RegionAggregations {
		if !inModel[model] {
			extra = append(extra, model)
		}
	}
	sort.Strings(extra)
	for _, model := range extra {
		for _, ipm := range s.RegionAggregations[model] {
			add(ipm)
		}
	}
	return keep, agg
}

// Requests converts the cluster requests into builder requests, resolving
// each model region to its IPM regions.
func (s *Settings) Requests() []resource.Request {
	out := make([]resource.Request, 0, len(s.RenewablesClusters))
	for _, c := range s.RenewablesClusters {
		out = append(out, resource.Request{
			Region: c.Region,
			Selection: resource.Selection{
				IPMRegions:    s.IPMRegions(c.Region),
				MinCapacity:   c.MinCapacity,
				MaxClusters:   c.MaxClusters,
				MaxLCOE:       c.MaxLCOE,
				CapMultiplier: c.CapMultiplier,
			},
			Selectors: c.GroupSelectors(),
		})
	}
	return out
}
