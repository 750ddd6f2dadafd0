package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	pgio "github.com/AlejandroGNE/PowerGenome/internal/io"
	"github.com/AlejandroGNE/PowerGenome/internal/metrics"
	"github.com/AlejandroGNE/PowerGenome/internal/resource"
	"github.com/AlejandroGNE/PowerGenome/internal/settings"
	"github.com/AlejandroGNE/PowerGenome/internal/ui"
	"github.com/AlejandroGNE/PowerGenome/pkg/powergenome/clusters"
)

var (
	clusterSettings    string
	clusterGroups      string
	clusterOutput      string
	clusterFormat      string
	clusterWorkers     int
	clusterInteractive bool
	clusterMetricsFile string
	clusterLogLevel    string
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Build renewable clusters from a settings file",
	Long: `Builds the renewable clusters listed under renewables_clusters in a settings file.
Each request selects one resource group by its tags, keeps the resources of the
model region's IPM regions, and merges them down to max_clusters.

Writes Inputs/Renewable_clusters.csv, Inputs/Generators_variability.csv and
run_summary.yml to the output directory.

Example:
  powergenome cluster --settings settings.yml --output case1
  powergenome cluster --settings settings.yml --interactive --format json`,
	RunE: runCluster,
}

func runCluster(cmd *cobra.Command, args []string) error {
	level, err := logLevel("cluster")
	if err != nil {
		return err
	}
	settingsPath := viper.GetString("cluster.settings")
	if settingsPath == "" {
		return apperr.User("--settings is required")
	}
	format := viper.GetString("cluster.format")
	if format == "" {
		format = "auto"
	}
	if _, err := pgio.ResolveFormat(clusters.MetadataFile(format), format); err != nil {
		return apperr.Userf("invalid --format: %v", err)
	}
	workers := viper.GetInt("cluster.workers")
	if workers < 1 {
		return apperr.Userf("--workers must be at least 1 (got %d)", workers)
	}

	out := cmd.OutOrStdout()
	wireLoggers(cmd.ErrOrStderr(), level)
	quiet := level == "quiet"

	s, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}
	requests := s.Requests()
	if len(requests) == 0 {
		return apperr.Configf("%s has no renewables_clusters", settingsPath)
	}
	if viper.GetBool("cluster.interactive") {
		requests, err = pickRequests(requests)
		if err != nil {
			return err
		}
	}

	groupsDir := viper.GetString("cluster.groups")
	if groupsDir == "" {
		groupsDir = s.ResourceGroupPath
	}
	if groupsDir == "" {
		return apperr.User("--groups is required when the settings have no resource_group_path")
	}
	outputDir := viper.GetString("cluster.output")
	if outputDir == "" {
		outputDir = s.InputFolder
	}
	if outputDir == "" {
		outputDir = "."
	}

	clusterUI := ui.NewClusterUI(out, quiet)
	clusterUI.StartWorkflow(requestLabels(requests))
	clusterUI.SettingsLoaded(settingsPath, len(requests))

	fail := func(err error) error {
		clusterUI.Fail(err)
		clusterUI.FinishWorkflow()
		return err
	}

	clusterUI.StartGroups(groupsDir)
	builder, err := resource.LoadBuilder(groupsDir)
	if err != nil {
		return fail(err)
	}
	clusterUI.GroupsLoaded(len(builder.Groups()))

	builder.SetObserver(buildProgress{ui: clusterUI})
	if err := builder.BuildAll(cmd.Context(), requests, workers); err != nil {
		return fail(err)
	}

	clusterUI.StartProfiles()
	res, err := clusters.Collect(builder, clusters.Options{
		DropLeapDay:  s.DropLeapDay,
		UTCOffset:    s.UTCOffset,
		SettingsPath: settingsPath,
		Case:         s,
	})
	if err != nil {
		return fail(err)
	}
	clusterUI.ProfilesDone(len(res.Names), res.Hours())

	clusterUI.StartWriting()
	paths, err := clusters.Write(res, outputDir, format)
	if err != nil {
		return fail(err)
	}
	if metricsFile := viper.GetString("cluster.metrics-file"); metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			return fail(fmt.Errorf("write metrics: %w", err))
		}
		paths = append(paths, metricsFile)
	}
	clusterUI.WritingDone(len(paths), outputDir)
	clusterUI.FinishWorkflow()

	rows := make([]ui.ClusterSummary, len(res.Summaries))
	for i, r := range res.Summaries {
		rows[i] = ui.ClusterSummary{
			Region:     r.Region,
			Group:      requestLabel(requests[i].Selectors),
			Clusters:   r.Clusters,
			CapacityMW: r.CapacityMW,
		}
	}
	clusterUI.PrintSummary(res.Session, outputDir, rows)
	return nil
}

// buildProgress reports BuildAll progress to the cluster UI.
type buildProgress struct {
	ui *ui.ClusterUI
}

func (p buildProgress) BuildStarted(i int, _ resource.Request) { p.ui.StartRequest(i) }

func (p buildProgress) BuildFinished(i int, rec resource.Record, err error) {
	if err != nil {
		p.ui.FinishRequest(i, 0, 0, err)
		return
	}
	p.ui.FinishRequest(i, rec.Clusters.Len(), clusters.Capacity(rec), nil)
}

func requestLabel(tags []resource.Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func requestLabels(requests []resource.Request) []string {
	out := make([]string, len(requests))
	for i, r := range requests {
		out[i] = r.Region + " " + requestLabel(r.Selectors)
	}
	return out
}

func pickRequests(requests []resource.Request) ([]resource.Request, error) {
	opts := make([]ui.SelectorOption, len(requests))
	for i, label := range requestLabels(requests) {
		opts[i] = ui.SelectorOption{Label: label, Selected: true}
	}
	idx, err := ui.RunGroupSelector("Cluster requests", opts)
	if err != nil {
		return nil, err
	}
	out := make([]resource.Request, len(idx))
	for i, j := range idx {
		out[i] = requests[j]
	}
	return out, nil
}

func init() {
	clusterCmd.Flags().StringVarP(&clusterSettings, "settings", "s", "", "Path to the settings YAML file (required)")
	clusterCmd.Flags().StringVarP(&clusterGroups, "groups", "g", "", "Resource group directory (default: resource_group_path from settings)")
	clusterCmd.Flags().StringVarP(&clusterOutput, "output", "o", "", "Output directory (default: input_folder from settings, or .)")
	clusterCmd.Flags().StringVarP(&clusterFormat, "format", "f", "", "Cluster metadata format: csv|json|yaml|auto (default: auto)")
	clusterCmd.Flags().IntVarP(&clusterWorkers, "workers", "w", 4, "Number of cluster requests built in parallel")
	clusterCmd.Flags().BoolVar(&clusterInteractive, "interactive", false, "Choose which cluster requests to build")
	clusterCmd.Flags().StringVar(&clusterMetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	clusterCmd.Flags().StringVar(&clusterLogLevel, "log-level", "", "Log level: quiet|standard|debug")

	// Bind all flags to viper for config file support
	viper.BindPFlag("cluster.settings", clusterCmd.Flags().Lookup("settings"))
	viper.BindPFlag("cluster.groups", clusterCmd.Flags().Lookup("groups"))
	viper.BindPFlag("cluster.output", clusterCmd.Flags().Lookup("output"))
	viper.BindPFlag("cluster.format", clusterCmd.Flags().Lookup("format"))
	viper.BindPFlag("cluster.workers", clusterCmd.Flags().Lookup("workers"))
	viper.BindPFlag("cluster.interactive", clusterCmd.Flags().Lookup("interactive"))
	viper.BindPFlag("cluster.metrics-file", clusterCmd.Flags().Lookup("metrics-file"))
	viper.BindPFlag("cluster.log-level", clusterCmd.Flags().Lookup("log-level"))
}
