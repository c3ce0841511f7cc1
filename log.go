package hexbuild

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	isatty "github.com/mattn/go-isatty"
)

// NewLogger returns the structured logger used by the Conductor and
// Executor. verbose raises the level to Debug; otherwise events log at
// Info and above.
func NewLogger(verbose bool) hclog.Logger {
	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  "hex",
		Level: level,
	})
}

// colorEnabled reports whether worker output should be colorized: stderr
// is a terminal and the caller hasn't passed --no-color.
func colorEnabled(noColor bool) bool {
	if noColor {
		return false
	}
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// statusColors bundles the worker-output colorizers, all no-ops when
// colorization is disabled.
type statusColors struct {
	Fail     func(format string, a ...interface{}) string
	CacheHit func(format string, a ...interface{}) string
	Success  func(format string, a ...interface{}) string
}

func newStatusColors(enabled bool) statusColors {
	if !enabled {
		noop := func(format string, a ...interface{}) string { return fmt.Sprintf(format, a...) }
		return statusColors{Fail: noop, CacheHit: noop, Success: noop}
	}
	return statusColors{
		Fail:     color.New(color.FgRed).SprintfFunc(),
		CacheHit: color.New(color.FgYellow).SprintfFunc(),
		Success:  color.New(color.FgGreen).SprintfFunc(),
	}
}
