package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlejandroGNE/PowerGenome/internal/ui"
)

// Logger is a tiny opt-in logger used across internal packages.
// When Writer is nil, logging is disabled.
//
// The output format is:
//
//	<ColoredPrefix> group=<label> <formattedMessage>\n
//
// where <label> is trimmed and defaults to "(unknown)".
type Logger struct {
	Writer io.Writer

	PrefixText  string
	PrefixColor string

	// OmitGroup controls whether the group field is written.
	// When false (default), output includes: "group=<label>".
	OmitGroup bool
}

func (l *Logger) SetWriter(w io.Writer) { l.Writer = w }

func (l *Logger) Enabled() bool { return l != nil && l.Writer != nil }

func (l *Logger) Logf(group string, format string, args ...any) {
	if l == nil || l.Writer == nil {
		return
	}
	prefix := l.PrefixText
	if prefix == "" {
		prefix = "Log:"
	}
	if l.PrefixColor != "" {
		prefix = ui.Color(prefix, l.PrefixColor)
	}
	msg := fmt.Sprintf(format, args...)
	if l.OmitGroup {
		fmt.Fprintf(l.Writer, "%s %s\n", prefix, msg)
		return
	}

	g := strings.TrimSpace(group)
	if g == "" {
		g = "(unknown)"
	}
	fmt.Fprintf(l.Writer, "%s group=%s %s\n", prefix, g, msg)
}
