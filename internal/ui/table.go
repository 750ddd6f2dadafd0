package ui

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

// RenderTable renders rows under headers with the application palette.
func RenderTable(headers []string, rows [][]string) string {
	header := lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// RenderClusterTable renders one row per cluster request.
func RenderClusterTable(rows []ClusterSummary) string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.Region, r.Group, fmt.Sprintf("%d", r.Clusters), fmt.Sprintf("%.1f", r.CapacityMW)}
	}
	return RenderTable([]string{"Region", "Group", "Clusters", "MW"}, out)
}

// GroupRow describes one resource group for listing.
type GroupRow struct {
	Selectors string
	Metadata  string
	Profiles  string
}

// PrintGroups prints resource groups as a table.
func PrintGroups(w io.Writer, dir string, groups []GroupRow) {
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = []string{fmt.Sprintf("%d", i+1), g.Selectors, g.Metadata, g.Profiles}
	}
	fmt.Fprintln(w, SectionHeader.Render(fmt.Sprintf("Resource groups in %s (%d)", dir, len(groups))))
	fmt.Fprintln(w, RenderTable([]string{"#", "Tags", "Metadata", "Profiles"}, out))
}
