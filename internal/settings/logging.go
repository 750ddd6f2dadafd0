package settings

import (
	"io"

	"github.com/AlejandroGNE/PowerGenome/internal/logging"
	"github.com/AlejandroGNE/PowerGenome/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Settings:", PrefixColor: ui.FgYellow}

// SetLogger sets an optional destination for settings logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(path string, format string, args ...any) {
	logger.Logf(path, format, args...)
}
