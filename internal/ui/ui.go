package ui

// Raw ANSI codes for the package log prefixes, which are written to plain
// writers rather than rendered through lipgloss.
const (
	Reset     = "\033[0m"
	FgCyan    = "\033[36m"
	FgGreen   = "\033[32m"
	FgMagenta = "\033[35m"
	FgYellow  = "\033[33m"
)

// Color wraps s in the ANSI code and a reset.
func Color(s string, code string) string {
	return code + s + Reset
}
