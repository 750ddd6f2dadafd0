package cmd

import (
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/cluster"
	"github.com/AlejandroGNE/PowerGenome/internal/hourly"
	"github.com/AlejandroGNE/PowerGenome/internal/resource"
	"github.com/AlejandroGNE/PowerGenome/internal/settings"
	"github.com/AlejandroGNE/PowerGenome/internal/tabular"
)

// logLevel reads and checks <command>.log-level.
func logLevel(command string) (string, error) {
	level := strings.ToLower(strings.TrimSpace(viper.GetString(command + ".log-level")))
	if level == "" {
		level = "standard"
	}
	switch level {
	case "quiet", "standard", "debug":
		return level, nil
	default:
		return "", apperr.Userf("invalid --log-level %q (expected quiet|standard|debug)", level)
	}
}

// wireLoggers points the package loggers at w for level. Warnings are shown
// unless quiet; debug also enables the per-package trace logs.
func wireLoggers(w io.Writer, level string) {
	var debug, warn io.Writer
	if level == "debug" {
		debug = w
	}
	if level != "quiet" {
		warn = w
	}
	tabular.SetLogger(debug)
	cluster.SetLogger(debug)
	resource.SetLogger(debug)
	hourly.SetLogger(debug)
	settings.SetLogger(debug)
	resource.SetWarningLogger(warn)
}
