// Package commands implements the assetbuilder command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/execx"
	"git.home.luguber.info/inful/assetbuilder/internal/stages"
)

// LogLevelEnv overrides the configured log level unless -v is given.
const LogLevelEnv = "ASSETBUILDER_LOG_LEVEL"

// Global carries process-wide state into every command.
type Global struct {
	Context context.Context
	Out     io.Writer

	// Collaborators builds the external tool adapters. Nil means the
	// command-line tools named in the tools section.
	Collaborators func(tools config.ToolsConfig) stages.Collaborators
}

func (g *Global) ctx() context.Context {
	if g == nil || g.Context == nil {
		return context.Background()
	}
	return g.Context
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) collaborators(tools config.ToolsConfig) stages.Collaborators {
	if g != nil && g.Collaborators != nil {
		return g.Collaborators(tools)
	}
	return stages.DefaultCollaborators(tools, execx.ExecRunner{})
}

// CLI definition & global flags.
type CLI struct {
	Config      string           `short:"c" help:"Pipeline configuration file" default:"assetbuilder.yaml" type:"path"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	MetricsFile string           `name:"metrics-file" help:"Write Prometheus metrics in text format to this file after each run" type:"path"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Clean, lint, compile, compress, annotate, bundle, prefix, copy and package"`
	Release ReleaseCmd `cmd:"" help:"Build, then publish the site and copy it into the release tree"`
	Default DefaultCmd `cmd:"" help:"Alias of build"`
	Run     RunCmd     `cmd:"" help:"Run named tasks or groups"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild affected tasks when sources change"`
	Tasks   TasksCmd   `cmd:"" help:"List tasks and groups, or show the flattened order of names"`
	History HistoryCmd `cmd:"" help:"List recent runs from the run history"`
	Init    InitCmd    `cmd:"" help:"Write a starter configuration file"`

	level slog.LevelVar `kong:"-"`
	// levelFixed is set when -v or the environment chose the level.
	levelFixed bool `kong:"-"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.level.Set(slog.LevelInfo)
	if lvl, ok := parseLogLevel(c.Verbose, os.Getenv(LogLevelEnv)); ok {
		c.level.Set(lvl)
		c.levelFixed = true
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &c.level}))
	slog.SetDefault(logger)
	return nil
}

// applyConfigLevel uses the configured level unless the command line or
// environment already chose one.
func (c *CLI) applyConfigLevel(l config.LogLevel) {
	if !c.levelFixed {
		c.level.Set(l.SlogLevel())
	}
}

// parseLogLevel reports the level chosen by -v or the environment.
func parseLogLevel(verbose bool, env string) (slog.Level, bool) {
	if verbose {
		return slog.LevelDebug, true
	}
	if strings.TrimSpace(env) == "" {
		return slog.LevelInfo, false
	}
	return config.NormalizeLogLevel(env).SlogLevel(), true
}
