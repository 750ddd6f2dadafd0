package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/cluster"
	pgio "github.com/AlejandroGNE/PowerGenome/internal/io"
	"github.com/AlejandroGNE/PowerGenome/internal/resource"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
	"github.com/AlejandroGNE/PowerGenome/internal/tabular"
	"github.com/AlejandroGNE/PowerGenome/internal/ui"
)

var (
	treeInput    string
	treeOutput   string
	treeFormat   string
	treeBy       []string
	treeMaxLevel int
	treeSums     []string
	treeMeans    []string
	treeWeight   string
	treeUniques  []string
	treeLogLevel string
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Build a resource tree over a metadata table",
	Long: `Builds a hierarchical tree over the rows of a CSV or Parquet table by Ward
linkage of the --by columns. Every merge becomes a new row, and the output gains
id, parent_id and level columns plus an ids column listing the original rows.

Rows are keyed by their id column when present, by position otherwise.

Example:
  powergenome tree -i metadata.parquet -o tree.csv --by lcoe --max-level 4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logLevel("tree")
		if err != nil {
			return err
		}
		input := viper.GetString("tree.input")
		if input == "" {
			return apperr.User("--input is required")
		}
		output := viper.GetString("tree.output")
		if output == "" {
			return apperr.User("--output is required")
		}
		format := viper.GetString("tree.format")
		if _, err := pgio.ResolveFormat(output, format); err != nil {
			return apperr.Userf("invalid --output: %v", err)
		}
		by := viper.GetStringSlice("tree.by")
		if len(by) == 0 {
			return apperr.User("--by needs at least one column")
		}
		var maxLevel *int
		if n := viper.GetInt("tree.max-level"); n != 0 {
			maxLevel = cluster.Limit(n)
		}
		wireLoggers(cmd.ErrOrStderr(), level)

		src, err := tabular.Open(input)
		if err != nil {
			return err
		}
		frame, err := src.Read(nil)
		if err != nil {
			return err
		}
		set := cluster.Singletons(frame)
		if frame.Has(resource.ColumnID) {
			if set, err = cluster.Index(frame, resource.ColumnID); err != nil {
				return apperr.Configf("%s: %v", input, err)
			}
		}

		// Merge columns the table lacks are skipped.
		rules := cluster.Rules{
			Sums:    presentColumns(set.Frame, viper.GetStringSlice("tree.sum")),
			Means:   presentColumns(set.Frame, viper.GetStringSlice("tree.mean")),
			Uniques: presentColumns(set.Frame, viper.GetStringSlice("tree.unique")),
		}
		if w := viper.GetString("tree.weight"); set.Frame.Has(w) {
			rules.Weight = w
		}

		tree, err := cluster.BuildRowTree(set, by, maxLevel, rules)
		if err != nil {
			return err
		}
		out, err := tree.Frame.With(tree.KeyColumn(resource.ColumnIDs))
		if err != nil {
			return err
		}
		if err := pgio.WriteClusterMetadata(out, output, format); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}

		if level != "quiet" {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatStatus("success",
				fmt.Sprintf("Wrote %d tree rows from %d resources to %s", tree.Len(), set.Len(), output)))
		}
		return nil
	},
}

func presentColumns(f *table.Frame, names []string) []string {
	var out []string
	for _, n := range names {
		if f.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func init() {
	treeCmd.Flags().StringVarP(&treeInput, "input", "i", "", "Metadata table, CSV or Parquet (required)")
	treeCmd.Flags().StringVarP(&treeOutput, "output", "o", "", "Output path (required)")
	treeCmd.Flags().StringVarP(&treeFormat, "format", "f", "", "Output format: csv|json|yaml|auto (default: auto)")
	treeCmd.Flags().StringSliceVar(&treeBy, "by", []string{resource.ColumnLCOE}, "Columns to cluster by")
	treeCmd.Flags().IntVar(&treeMaxLevel, "max-level", 0, "Deepest tree level to keep (default: all)")
	treeCmd.Flags().StringSliceVar(&treeSums, "sum", resource.SumColumns, "Columns summed on merge")
	treeCmd.Flags().StringSliceVar(&treeMeans, "mean", []string{resource.ColumnLCOE}, "Columns averaged on merge")
	treeCmd.Flags().StringVar(&treeWeight, "weight", resource.ColumnCapacity, "Column weighting the means")
	treeCmd.Flags().StringSliceVar(&treeUniques, "unique", nil, "Columns kept only when equal on merge")
	treeCmd.Flags().StringVar(&treeLogLevel, "log-level", "", "Log level: quiet|standard|debug")

	viper.BindPFlag("tree.input", treeCmd.Flags().Lookup("input"))
	viper.BindPFlag("tree.output", treeCmd.Flags().Lookup("output"))
	viper.BindPFlag("tree.format", treeCmd.Flags().Lookup("format"))
	viper.BindPFlag("tree.by", treeCmd.Flags().Lookup("by"))
	viper.BindPFlag("tree.max-level", treeCmd.Flags().Lookup("max-level"))
	viper.BindPFlag("tree.sum", treeCmd.Flags().Lookup("sum"))
	viper.BindPFlag("tree.mean", treeCmd.Flags().Lookup("mean"))
	viper.BindPFlag("tree.weight", treeCmd.Flags().Lookup("weight"))
	viper.BindPFlag("tree.unique", treeCmd.Flags().Lookup("unique"))
	viper.BindPFlag("tree.log-level", treeCmd.Flags().Lookup("log-level"))
}
