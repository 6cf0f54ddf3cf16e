package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter prints errors for the command line and picks exit codes.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates an adapter writing to stderr. A nil logger uses slog.Default.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

// ExitCodeFor returns 0 for nil, the category's code for classified errors
// and 1 otherwise.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if classified, ok := AsClassified(err); ok {
		return classified.Category().ExitCode()
	}
	return 1
}

// FormatError renders err for display. A failed task is named first; verbose
// output appends the full chain and the error context.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}

	msg := "Error: " + classified.Message()
	if task, ok := classified.Context().GetString("task"); ok && task != "" {
		msg = fmt.Sprintf("Error: task %q failed: %s", task, classified.Message())
	}
	if cause := classified.Cause(); cause != nil {
		msg += ": " + cause.Error()
	}
	if a.verbose && len(classified.Context()) > 0 {
		msg += " (" + classified.Context().String() + ")"
	}
	return msg
}

// HandleError prints err and exits with its code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if a.shouldLog(err) {
		a.logError(err)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

// shouldLog is true for unclassified and fatal errors, and always when verbose.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	if classified, ok := AsClassified(err); ok {
		return classified.IsFatal()
	}
	return true
}

func (a *CLIErrorAdapter) logError(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", slog.Any("error", err))
		return
	}

	level := slog.LevelError
	if classified.Severity() == SeverityWarning {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
	for _, key := range classified.Context().Keys() {
		attrs = append(attrs, slog.Any(key, classified.Context()[key]))
	}
	a.logger.LogAttrs(context.Background(), level, classified.Message(), attrs...)
}
