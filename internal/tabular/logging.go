package tabular

import (
	"io"

	"github.com/AlejandroGNE/PowerGenome/internal/logging"
	"github.com/AlejandroGNE/PowerGenome/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Table:", PrefixColor: ui.FgCyan}

// SetLogger sets an optional destination for load logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(path string, format string, args ...any) {
	logger.Logf(path, format, args...)
}
