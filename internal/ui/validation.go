package ui

import (
	"fmt"
	"io"
	"strings"
)

// GroupCheck is the validation outcome of one resource group.
type GroupCheck struct {
	Group    string
	Metadata error
	Profiles error
}

// Valid reports whether both tables passed.
func (g GroupCheck) Valid() bool { return g.Metadata == nil && g.Profiles == nil }

// ValidationReport collects the checks of every group in a directory.
type ValidationReport struct {
	Dir    string
	Groups []GroupCheck
}

// Valid reports whether every group passed.
func (r ValidationReport) Valid() bool {
	for _, g := range r.Groups {
		if !g.Valid() {
			return false
		}
	}
	return true
}

// Failed returns the number of groups with at least one error.
func (r ValidationReport) Failed() int {
	n := 0
	for _, g := range r.Groups {
		if !g.Valid() {
			n++
		}
	}
	return n
}

// ValidationUI renders the validate command's report.
type ValidationUI struct {
	writer io.Writer
	quiet  bool
}

// NewValidationUI creates a UI for the validate command.
func NewValidationUI(w io.Writer, quiet bool) *ValidationUI {
	return &ValidationUI{writer: w, quiet: quiet}
}

// PrintReport renders a boxed report with one section per group.
func (v *ValidationUI) PrintReport(report ValidationReport) {
	if v.quiet {
		return
	}

	var sb strings.Builder
	if report.Valid() {
		sb.WriteString(Success.Bold(true).Render("✓ Validation Passed"))
	} else {
		sb.WriteString(Error.Bold(true).Render("✗ Validation Failed"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(FormatKeyValue("Directory", report.Dir))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Groups", fmt.Sprintf("%d checked, %d failed", len(report.Groups), report.Failed())))

	for _, g := range report.Groups {
		sb.WriteString("\n\n")
		sb.WriteString(SectionHeader.Render(g.Group))
		sb.WriteString("\n")
		sb.WriteString(v.renderCheck("metadata", g.Metadata))
		sb.WriteString("\n")
		sb.WriteString(v.renderCheck("profiles", g.Profiles))
	}

	if report.Valid() {
		fmt.Fprintln(v.writer, SuccessBox.Render(sb.String()))
	} else {
		fmt.Fprintln(v.writer, ErrorBox.Render(sb.String()))
	}
}

func (v *ValidationUI) renderCheck(name string, err error) string {
	if err == nil {
		return "  " + GetCheckMark() + " " + name
	}
	return "  " + GetCrossMark() + " " + name + " " + Error.Render(err.Error())
}

// PrintSimpleReport prints a plain text report.
func (v *ValidationUI) PrintSimpleReport(report ValidationReport) {
	if report.Valid() {
		fmt.Fprintf(v.writer, "%s Validation passed\n", GetCheckMark())
	} else {
		fmt.Fprintf(v.writer, "%s Validation failed\n", GetCrossMark())
	}
	fmt.Fprintf(v.writer, "Groups: %d, Failed: %d\n", len(report.Groups), report.Failed())
	for _, g := range report.Groups {
		for _, c := range []struct {
			name string
			err  error
		}{{"metadata", g.Metadata}, {"profiles", g.Profiles}} {
			if c.err != nil {
				fmt.Fprintf(v.writer, "%s %s: %v\n", g.Group, c.name, c.err)
			}
		}
	}
}
