package cluster

import (
	"io"

	"github.com/AlejandroGNE/PowerGenome/internal/logging"
	"github.com/AlejandroGNE/PowerGenome/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Cluster:", PrefixColor: ui.FgMagenta}

// SetLogger sets an optional destination for clustering logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(by string, format string, args ...any) {
	logger.Logf(by, format, args...)
}
