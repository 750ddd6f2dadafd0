package hourly

import (
	"io"

	"github.com/AlejandroGNE/PowerGenome/internal/logging"
	"github.com/AlejandroGNE/PowerGenome/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Hourly:", PrefixColor: ui.FgCyan}

// SetLogger sets an optional destination for profile processing logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(step string, format string, args ...any) {
	logger.Logf(step, format, args...)
}
