package errors

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

type customError struct{ msg string }

func (e *customError) Error() string { return e.msg }

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation error", err: ValidationError("bad flag").Build(), expected: 2},
		{name: "config error", err: ConfigError("bad config").Build(), expected: 7},
		{name: "registry error", err: RegistryError("cycle").Build(), expected: 9},
		{name: "build error", err: BuildError("task failed").Build(), expected: 11},
		{name: "tool error", err: ToolError("sass failed").Build(), expected: 11},
		{name: "canceled", err: NewError(CategoryCanceled, "interrupted").Build(), expected: 130},
		{name: "wrapped classified", err: fmt.Errorf("outer: %w", ConfigError("inner").Build()), expected: 7},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	err := WrapError(stdErrors.New("3 violations"), CategoryBuild, "run aborted").
		Fatal().
		WithContext("task", "lint:js").
		WithContext("run_id", "r1").
		Build()

	if got := quiet.FormatError(err); got != `Error: task "lint:js" failed: run aborted: 3 violations` {
		t.Errorf("unexpected quiet format %q", got)
	}
	if got := verbose.FormatError(err); !strings.HasSuffix(got, "(run_id=r1 task=lint:js)") {
		t.Errorf("verbose format should end with the context, got %q", got)
	}
	if got := quiet.FormatError(&customError{msg: "plain"}); got != "Error: plain" {
		t.Errorf("unexpected unclassified format %q", got)
	}
	if got := quiet.FormatError(nil); got != "" {
		t.Errorf("nil error should format empty, got %q", got)
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, out bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ConfigError("configuration file not found").WithContext("file", "x.yaml").Build())

	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
	if out.String() != "Error: configuration file not found\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if !strings.Contains(logs.String(), "category=config") || !strings.Contains(logs.String(), "file=x.yaml") {
		t.Errorf("expected category and context in log, got %q", logs.String())
	}

	code = -1
	adapter.HandleError(nil)
	if code != -1 {
		t.Error("nil error must not exit")
	}
}

func TestCLIErrorAdapter_ShouldLog(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())
	if !adapter.shouldLog(ConfigError("x").Build()) {
		t.Error("fatal errors should be logged")
	}
	if adapter.shouldLog(NewError(CategoryBuild, "warn").Warning().Build()) {
		t.Error("warnings should not be logged in quiet mode")
	}
	if !adapter.shouldLog(&customError{msg: "x"}) {
		t.Error("unclassified errors should be logged")
	}
}
