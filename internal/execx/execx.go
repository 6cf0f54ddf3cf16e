// Package execx runs external tools with captured output.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

var (
	ErrToolNotFound = errors.New("tool not found on PATH")
	ErrToolFailed   = errors.New("tool exited with an error")
)

// Command describes one tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the process environment
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Output holds what a tool wrote.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExitError reports a non-zero exit and carries the tool's stderr.
type ExitError struct {
	Command  Command
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: %s exited with status %d", ErrToolFailed, e.Command.Name, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return ErrToolFailed }

// Runner executes commands. Implementations must not start a command once ctx is done.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner runs binaries from PATH. A started command runs to completion;
// cancellation is only honoured before it starts.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r ExecRunner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run executes c and returns its output. On a non-zero exit both the output
// and an *ExitError are returned, since some tools report findings that way.
func (r ExecRunner) Run(ctx context.Context, c Command) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if _, err := exec.LookPath(c.Name); err != nil {
		return Output{}, fmt.Errorf("%w: %s: %w", ErrToolNotFound, c.Name, err)
	}

	// #nosec G204 -- tool names and arguments come from the pipeline configuration
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger().Debug("Invoking tool", logfields.Tool(c.Name), slog.String("command", c.String()), logfields.Path(c.Dir))
	err := cmd.Run()

	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if s := strings.TrimSpace(stderr.String()); s != "" {
		r.logger().Debug("Tool stderr", logfields.Tool(c.Name), slog.String("output", s))
	}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, &ExitError{Command: c, ExitCode: out.ExitCode, Stderr: strings.TrimSpace(stderr.String())}
	}
	return out, fmt.Errorf("%w: %s: %w", ErrToolFailed, c.Name, err)
}
