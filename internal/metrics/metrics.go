package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every clustering metric. It is kept apart from the default
// registry so textfile exports contain only build metrics.
var Registry = prometheus.NewRegistry()

var (
	ClustersBuiltTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powergenome_clusters_built_total",
		Help: "Total number of resource clusters built",
	}, []string{"technology"})
	ResourcesSelectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powergenome_resources_selected_total",
		Help: "Total number of resources selected for clustering",
	}, []string{"technology"})
	RowsMergedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powergenome_rows_merged_total",
		Help: "Total number of row merges by clustering method",
	}, []string{"method"})
	CapacityShortfallTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "powergenome_capacity_shortfall_total",
		Help: "Total selections short of the requested minimum capacity",
	}, []string{"technology"})
	BuildDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "powergenome_build_duration_ms",
		Help:    "Cluster build duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"technology"})
)

func init() {
	Registry.MustRegister(ClustersBuiltTotal)
	Registry.MustRegister(ResourcesSelectedTotal)
	Registry.MustRegister(RowsMergedTotal)
	Registry.MustRegister(CapacityShortfallTotal)
	Registry.MustRegister(BuildDurationMs)
}

// WriteTextfile writes every metric in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
