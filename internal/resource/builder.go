package resource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/cluster"
	"github.com/AlejandroGNE/PowerGenome/internal/metrics"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// Output columns added to cluster metadata.
const (
	ColumnIDs         = "ids"
	ColumnModelRegion = "region"
)

// Request is one cluster build: a model region, a selection, and the
// selectors resolving exactly one group.
type Request struct {
	Region    string
	Selection Selection
	Selectors []Tag
}

// Record is the result of one build. Records are never modified.
type Record struct {
	Group     *Group
	Region    string
	Selectors []Tag
	Selection Selection
	Clusters  cluster.Set
	Profiles  *mat.Dense
}

// BuildObserver is told when each BuildAll request starts and finishes.
// Calls come from worker goroutines.
type BuildObserver interface {
	BuildStarted(i int, req Request)
	BuildFinished(i int, rec Record, err error)
}

// Builder builds clusters for many groups and regions and accumulates the
// records in call order.
type Builder struct {
	groups   []*Group
	session  uuid.UUID
	observer BuildObserver

	mu      sync.Mutex
	records []Record
}

// NewBuilder returns a builder over groups.
func NewBuilder(groups []*Group) *Builder {
	return &Builder{groups: groups, session: uuid.New()}
}

// LoadBuilder loads every group descriptor in dir.
func LoadBuilder(dir string) (*Builder, error) {
	groups, err := LoadGroups(dir)
	if err != nil {
		return nil, err
	}
	return NewBuilder(groups), nil
}

// Groups returns the groups the builder selects from.
func (b *Builder) Groups() []*Group { return b.groups }

// Session identifies this build session.
func (b *Builder) Session() uuid.UUID { return b.session }

// SetObserver sets an optional observer for BuildAll.
func (b *Builder) SetObserver(o BuildObserver) { b.observer = o }

// FindGroups returns the groups whose tags match every selector.
func (b *Builder) FindGroups(selectors ...Tag) []*Group {
	var out []*Group
	for _, g := range b.groups {
		if matches(g.Tags, selectors) {
			out = append(out, g)
		}
	}
	return out
}

func (b *Builder) resolve(selectors []Tag) (*Group, error) {
	groups := b.FindGroups(selectors...)
	switch len(groups) {
	case 0:
		return nil, apperr.Configf("parameters match no resource groups: %s", formatTags(selectors))
	case 1:
		return groups[0], nil
	default:
		meta := make([]string, len(groups))
		for i, g := range groups {
			meta[i] = g.String()
		}
		return nil, apperr.Configf("parameters match multiple resource groups: [%s]", strings.Join(meta, ", "))
	}
}

func formatTags(tags []Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// build runs one request without touching the record list.
func (b *Builder) build(req Request) (Record, error) {
	g, err := b.resolve(req.Selectors)
	if err != nil {
		return Record{}, err
	}
	start := time.Now()
	set, err := g.Clusters(req.Selection)
	if err != nil {
		return Record{}, err
	}
	profiles, err := g.ClusterProfiles(set.Keys)
	if err != nil {
		return Record{}, err
	}
	tech := g.Technology()
	metrics.ClustersBuiltTotal.WithLabelValues(tech).Add(float64(set.Len()))
	metrics.BuildDurationMs.WithLabelValues(tech).Observe(float64(time.Since(start).Milliseconds()))
	logf(tech, "built %d clusters for region %s", set.Len(), req.Region)
	return Record{
		Group:     g,
		Region:    req.Region,
		Selectors: append([]Tag(nil), req.Selectors...),
		Selection: req.Selection,
		Clusters:  set,
		Profiles:  profiles,
	}, nil
}

// BuildClusters builds the clusters of the single group matching selectors
// and appends a record labelled with region. Nothing is appended on error.
func (b *Builder) BuildClusters(region string, sel Selection, selectors ...Tag) error {
	rec, err := b.build(Request{Region: region, Selection: sel, Selectors: selectors})
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.records = append(b.records, rec)
	b.mu.Unlock()
	return nil
}

// BuildAll runs requests on up to workers goroutines. Records are appended in
// request order once every request has succeeded; on error none are appended.
func (b *Builder) BuildAll(ctx context.Context, requests []Request, workers int) error {
	if workers < 1 {
		workers = 1
	}
	results := make([]Record, len(requests))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, req := range requests {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if b.observer != nil {
				b.observer.BuildStarted(i, req)
			}
			rec, err := b.build(req)
			if b.observer != nil {
				b.observer.BuildFinished(i, rec, err)
			}
			if err != nil {
				return fmt.Errorf("region %s %s: %w", req.Region, formatTags(req.Selectors), err)
			}
			results[i] = rec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	b.mu.Lock()
	b.records = append(b.records, results...)
	b.mu.Unlock()
	return nil
}

// Records returns a copy of the accumulated records.
func (b *Builder) Records() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Record(nil), b.records...)
}

// ClusterMetadata concatenates the clusters of every record. Each table starts
// with the ids column, followed by the cluster columns, the model region and
// the selectors used.
func (b *Builder) ClusterMetadata() (*table.Frame, error) {
	records := b.Records()
	if len(records) == 0 {
		return nil, apperr.Config("no clusters have been built")
	}
	frames := make([]*table.Frame, 0, len(records))
	for _, rec := range records {
		f, err := recordFrame(rec)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return table.Concat(frames...), nil
}

func recordFrame(rec Record) (*table.Frame, error) {
	set := rec.Clusters
	n := set.Len()
	cols := []*table.Column{set.KeyColumn(ColumnIDs)}
	for _, name := range set.Frame.Names() {
		c, _ := set.Frame.Column(name)
		cols = append(cols, c)
	}
	f, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	region := make([]string, n)
	for i := range region {
		region[i] = rec.Region
	}
	if f, err = f.With(table.NewStringColumn(ColumnModelRegion, region)); err != nil {
		return nil, err
	}
	for _, t := range rec.Selectors {
		if f, err = f.With(constantColumn(t.Key, t.Value, n)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func constantColumn(name string, v any, n int) *table.Column {
	if f, ok := number(v); ok {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = f
		}
		return table.NewFloatColumn(name, vals)
	}
	vals := make([]string, n)
	for i := range vals {
		vals[i] = fmt.Sprint(v)
	}
	return table.NewStringColumn(name, vals)
}

// ProfileTransform rewrites one record's profiles (clusters by hours) before
// they are stacked.
type ProfileTransform func(*mat.Dense) (*mat.Dense, error)

// ClusterProfiles stacks the profiles of every record, in record order. The
// transforms run on each record's profiles first, so records of different
// lengths can be aligned before the hour counts are compared.
func (b *Builder) ClusterProfiles(transforms ...ProfileTransform) (*mat.Dense, error) {
	records := b.Records()
	if len(records) == 0 {
		return nil, apperr.Config("no clusters have been built")
	}
	parts := make([]*mat.Dense, len(records))
	rows, hours := 0, 0
	for i, rec := range records {
		m := rec.Profiles
		for _, tf := range transforms {
			var err error
			if m, err = tf(m); err != nil {
				return nil, fmt.Errorf("profiles of %s: %w", rec.Group, err)
			}
		}
		r, c := m.Dims()
		if i == 0 {
			hours = c
		}
		if c != hours {
			return nil, apperr.Configf("profiles of %s have %d hours, want %d", rec.Group, c, hours)
		}
		parts[i] = m
		rows += r
	}
	out := mat.NewDense(rows, hours, nil)
	offset := 0
	for _, m := range parts {
		r, _ := m.Dims()
		for i := 0; i < r; i++ {
			out.SetRow(offset+i, m.RawRowView(i))
		}
		offset += r
	}
	return out, nil
}

// ClusterNames names every cluster "<region>_<technology>_<n>", in record
// order. Numbering starts at 1 within each region and technology.
func (b *Builder) ClusterNames() []string {
	var out []string
	next := map[string]int{}
	for _, rec := range b.Records() {
		prefix := rec.Region + "_" + rec.Group.Technology()
		for range rec.Clusters.Keys {
			next[prefix]++
			out = append(out, fmt.Sprintf("%s_%d", prefix, next[prefix]))
		}
	}
	return out
}
