package resource

import (
	"io"

	"github.com/AlejandroGNE/PowerGenome/internal/logging"
	"github.com/AlejandroGNE/PowerGenome/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Resource:", PrefixColor: ui.FgGreen}

var warnLogger = &logging.Logger{PrefixText: "Warning:", PrefixColor: ui.FgYellow}

// SetLogger sets an optional destination for build logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

// SetWarningLogger sets an optional destination for warnings.
func SetWarningLogger(w io.Writer) { warnLogger.SetWriter(w) }

func logf(technology string, format string, args ...any) {
	logger.Logf(technology, format, args...)
}

func warnf(technology string, format string, args ...any) {
	warnLogger.Logf(technology, format, args...)
}
