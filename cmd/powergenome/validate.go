package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/resource"
	"github.com/AlejandroGNE/PowerGenome/internal/ui"
)

var (
	validateGroups   string
	validatePlain    bool
	validateLogLevel string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check resource group metadata and profile tables",
	Long:  "Loads every resource group descriptor in a directory and checks that each metadata table has its required columns and each profile table has a full year of hours for every resource.",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logLevel("validate")
		if err != nil {
			return err
		}
		dir := viper.GetString("validate.groups")
		if dir == "" {
			return apperr.User("--groups is required")
		}
		wireLoggers(cmd.ErrOrStderr(), level)
		quiet := level == "quiet"

		var tracker *ui.ProgressTracker
		if !quiet && !viper.GetBool("validate.plain") {
			tracker = ui.NewProgressTracker(cmd.OutOrStdout(), "Validating resource groups",
				[]string{"Loading resource groups", "Checking metadata", "Checking profiles"})
			tracker.Start()
		}

		tracker.UpdateStep(0, ui.StatusRunning, "")
		groups, err := resource.LoadGroups(dir)
		if err != nil {
			tracker.UpdateStep(0, ui.StatusFailed, err.Error())
			tracker.Complete(err)
			return err
		}
		tracker.UpdateStep(0, ui.StatusComplete, fmt.Sprintf("%d group(s)", len(groups)))

		report := ui.ValidationReport{Dir: dir, Groups: make([]ui.GroupCheck, len(groups))}
		for i, g := range groups {
			report.Groups[i].Group = g.String()
		}
		checkStep(tracker, 1, report.Groups, groups, (*resource.Group).ValidateMetadata,
			func(c *ui.GroupCheck, err error) { c.Metadata = err })
		checkStep(tracker, 2, report.Groups, groups, (*resource.Group).ValidateProfiles,
			func(c *ui.GroupCheck, err error) { c.Profiles = err })
		tracker.Complete(nil)

		validationUI := ui.NewValidationUI(cmd.OutOrStdout(), quiet)
		if viper.GetBool("validate.plain") {
			if !quiet {
				validationUI.PrintSimpleReport(report)
			}
		} else {
			validationUI.PrintReport(report)
		}

		if !report.Valid() {
			return apperr.Configf("%d of %d resource groups failed validation", report.Failed(), len(report.Groups))
		}
		return nil
	},
}

func checkStep(tracker *ui.ProgressTracker, step int, checks []ui.GroupCheck, groups []*resource.Group,
	check func(*resource.Group) error, record func(*ui.GroupCheck, error)) {
	tracker.UpdateStep(step, ui.StatusRunning, "")
	failed := 0
	for i, g := range groups {
		err := check(g)
		if err != nil {
			failed++
		}
		record(&checks[i], err)
	}
	if failed > 0 {
		tracker.UpdateStep(step, ui.StatusFailed, fmt.Sprintf("%d failed", failed))
		return
	}
	tracker.UpdateStep(step, ui.StatusComplete, fmt.Sprintf("%d passed", len(groups)))
}

func init() {
	validateCmd.Flags().StringVarP(&validateGroups, "groups", "g", "", "Resource group directory (required)")
	validateCmd.Flags().BoolVar(&validatePlain, "plain", false, "Print a plain text report")
	validateCmd.Flags().StringVar(&validateLogLevel, "log-level", "", "Log level: quiet|standard|debug")

	viper.BindPFlag("validate.groups", validateCmd.Flags().Lookup("groups"))
	viper.BindPFlag("validate.plain", validateCmd.Flags().Lookup("plain"))
	viper.BindPFlag("validate.log-level", validateCmd.Flags().Lookup("log-level"))
}
