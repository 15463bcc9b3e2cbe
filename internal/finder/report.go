package finder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Report levels.
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
)

// Event names passed to a Notifier.
const (
	EventResultsUpdated  = "results.updated"
	EventResultsCleared  = "results.cleared"
	EventResourcesMerged = "resources.merged"
)

// Reporter receives user-facing outcome messages.
type Reporter interface {
	Report(level, message string)
}

// Notifier receives machine-readable state changes.
type Notifier func(event string, data any)

// LogReporter writes reports to a structured logger.
type LogReporter struct {
	Logger *slog.Logger
}

// Report implements Reporter.
func (r LogReporter) Report(level, message string) {
	lvl := slog.LevelInfo
	if level == LevelWarning {
		lvl = slog.LevelWarn
	}
	r.Logger.Log(context.Background(), lvl, "report", slog.String("message", message))
}

// WriterReporter prints one report per line.
type WriterReporter struct {
	W io.Writer
}

// Report implements Reporter.
func (r WriterReporter) Report(level, message string) {
	if level == LevelInfo {
		fmt.Fprintln(r.W, message)
		return
	}
	fmt.Fprintf(r.W, "%s: %s\n", level, message)
}

// MultiReporter fans a report out to several reporters.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(level, message string) {
	for _, r := range m {
		r.Report(level, message)
	}
}
