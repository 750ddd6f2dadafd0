package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/resource"
	"github.com/AlejandroGNE/PowerGenome/internal/ui"
)

var (
	groupsPath     string
	groupsSelect   string
	groupsLogLevel string
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List the resource groups in a directory",
	Long: `Lists every resource group descriptor in a directory with its tags and tables.
Use --select to show only the groups matching tags, e.g. --select technology=utilitypv,existing=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logLevel("groups")
		if err != nil {
			return err
		}
		dir := viper.GetString("groups.groups")
		if dir == "" {
			return apperr.User("--groups is required")
		}
		selectors, err := resource.ParseTags(viper.GetString("groups.select"))
		if err != nil {
			return apperr.Userf("invalid --select: %v", err)
		}
		wireLoggers(cmd.ErrOrStderr(), level)

		builder, err := resource.LoadBuilder(dir)
		if err != nil {
			return err
		}
		groups := builder.FindGroups(selectors...)
		rows := make([]ui.GroupRow, len(groups))
		for i, g := range groups {
			rows[i] = ui.GroupRow{Selectors: g.String(), Metadata: g.Metadata.Path(), Profiles: g.Profiles.Path()}
		}
		ui.PrintGroups(cmd.OutOrStdout(), dir, rows)
		return nil
	},
}

func init() {
	groupsCmd.Flags().StringVarP(&groupsPath, "groups", "g", "", "Resource group directory (required)")
	groupsCmd.Flags().StringVar(&groupsSelect, "select", "", "Only list groups matching key=value tags")
	groupsCmd.Flags().StringVar(&groupsLogLevel, "log-level", "", "Log level: quiet|standard|debug")

	viper.BindPFlag("groups.groups", groupsCmd.Flags().Lookup("groups"))
	viper.BindPFlag("groups.select", groupsCmd.Flags().Lookup("select"))
	viper.BindPFlag("groups.log-level", groupsCmd.Flags().Lookup("log-level"))
}
