package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyGroup      = "group"
	KeyTask       = "task"
	KeyResult     = "result"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyDest       = "dest"
	KeyCount      = "count"
	KeyTool       = "tool"
	KeyRule       = "rule"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Group(name string) slog.Attr     { return slog.String(KeyGroup, name) }
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func Result(r string) slog.Attr       { return slog.String(KeyResult, r) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Dest(d string) slog.Attr         { return slog.String(KeyDest, d) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Rule(r string) slog.Attr         { return slog.String(KeyRule, r) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
