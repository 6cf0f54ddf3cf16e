package stages

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/execx"
)

// DefaultCollaborators wires the command-line tools named in tools.
func DefaultCollaborators(tools config.ToolsConfig, runner execx.Runner) Collaborators {
	return Collaborators{
		JSLinter:    NewJSHintLinter(runner, tools.JSHint),
		StyleLinter: NewSassLintLinter(runner, tools.SassLint),
		Compiler:    &SassCompiler{Runner: runner, Binary: tools.Sass},
		Prefixer:    &PostCSSPrefixer{Runner: runner, Binary: tools.PostCSS},
		Images: &CommandImageCompressor{
			Runner:   runner,
			Optipng:  tools.Optipng,
			Jpegtran: tools.Jpegtran,
			Gifsicle: tools.Gifsicle,
		},
		Generator: &JekyllGenerator{Runner: runner, Binary: tools.Jekyll},
	}
}

// SassCompiler drives the dart-sass command line.
type SassCompiler struct {
	Runner execx.Runner
	Binary string
}

func (c *SassCompiler) Compile(ctx context.Context, req CompileRequest) error {
	args := make([]string, 0, len(req.IncludePaths)+4)
	for _, p := range req.IncludePaths {
		args = append(args, "--load-path="+p)
	}
	if req.Style != "" {
		args = append(args, "--style="+req.Style)
	}
	if !req.SourceMap {
		args = append(args, "--no-source-map")
	}
	args = append(args, req.Src, req.Dest)

	_, err := c.Runner.Run(ctx, execx.Command{Name: c.Binary, Args: args, Dir: filepath.Dir(req.Src)})
	var exitErr *execx.ExitError
	if errors.As(err, &exitErr) {
		return &CompileError{File: req.Src, Message: exitErr.Stderr, Err: err}
	}
	return err
}

// ArgsFunc builds a linter's argument list.
type ArgsFunc func(req LintRequest) []string

// CheckstyleLinter runs a linter that prints a checkstyle XML report on stdout.
// A non-zero exit with a parseable report counts as findings, not a failure.
type CheckstyleLinter struct {
	Runner execx.Runner
	Binary string
	Args   ArgsFunc
}

// NewJSHintLinter lints scripts with jshint.
func NewJSHintLinter(runner execx.Runner, binary string) *CheckstyleLinter {
	return &CheckstyleLinter{Runner: runner, Binary: binary, Args: func(req LintRequest) []string {
		args := []string{"--reporter=checkstyle"}
		if req.Rules != "" {
			args = append(args, "--config", req.Rules)
		}
		return append(args, req.Files...)
	}}
}

// NewSassLintLinter lints stylesheets with sass-lint.
func NewSassLintLinter(runner execx.Runner, binary string) *CheckstyleLinter {
	return &CheckstyleLinter{Runner: runner, Binary: binary, Args: func(req LintRequest) []string {
		args := []string{"--format", "checkstyle", "--verbose"}
		if req.Rules != "" {
			args = append(args, "--config", req.Rules)
		}
		return append(args, req.Files...)
	}}
}

func (l *CheckstyleLinter) Lint(ctx context.Context, req LintRequest) (LintReport, error) {
	out, runErr := l.Runner.Run(ctx, execx.Command{Name: l.Binary, Args: l.Args(req), Dir: req.Dir})
	var exitErr *execx.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return LintReport{}, runErr
	}

	violations, err := ParseCheckstyle(out.Stdout, req.Dir)
	if err != nil {
		if runErr != nil {
			return LintReport{}, runErr
		}
		return LintReport{}, fmt.Errorf("%s report: %w", l.Binary, err)
	}
	if runErr != nil && len(violations) == 0 {
		return LintReport{}, runErr
	}
	return LintReport{Violations: violations, Raw: out.Stdout}, nil
}

type checkstyleReport struct {
	Files []struct {
		Name   string `xml:"name,attr"`
		Errors []struct {
			Line     int    `xml:"line,attr"`
			Column   int    `xml:"column,attr"`
			Severity string `xml:"severity,attr"`
			Message  string `xml:"message,attr"`
			Source   string `xml:"source,attr"`
		} `xml:"error"`
	} `xml:"file"`
}

// ParseCheckstyle decodes a checkstyle report. File names are made relative to
// dir when they lie inside it. An empty report has no violations.
func ParseCheckstyle(data []byte, dir string) ([]LintViolation, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var rep checkstyleReport
	if err := xml.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse checkstyle report: %w", err)
	}
	var out []LintViolation
	for _, f := range rep.Files {
		name := f.Name
		if dir != "" && filepath.IsAbs(name) {
			if rel, err := filepath.Rel(dir, name); err == nil && !strings.HasPrefix(rel, "..") {
				name = filepath.ToSlash(rel)
			}
		}
		for _, e := range f.Errors {
			out = append(out, LintViolation{
				File:     name,
				Line:     e.Line,
				Column:   e.Column,
				Rule:     e.Source,
				Severity: e.Severity,
				Message:  e.Message,
			})
		}
	}
	return out, nil
}

// PostCSSPrefixer runs postcss-cli with the autoprefixer plugin.
type PostCSSPrefixer struct {
	Runner execx.Runner
	Binary string
}

func (p *PostCSSPrefixer) Prefix(ctx context.Context, files []string, browsers []string) error {
	args := append([]string{"--use", "autoprefixer", "--no-map", "--replace"}, files...)
	cmd := execx.Command{Name: p.Binary, Args: args}
	if len(browsers) > 0 {
		cmd.Env = []string{"BROWSERSLIST=" + strings.Join(browsers, ", ")}
	}
	_, err := p.Runner.Run(ctx, cmd)
	return err
}

// CommandImageCompressor picks an optimiser by file extension.
type CommandImageCompressor struct {
	Runner   execx.Runner
	Optipng  string
	Jpegtran string
	Gifsicle string
}

func (c *CommandImageCompressor) Compress(ctx context.Context, src, dest string) error {
	var cmd execx.Command
	switch strings.ToLower(filepath.Ext(src)) {
	case ".png":
		cmd = execx.Command{Name: c.Optipng, Args: []string{"-quiet", "-clobber", "-o2", "-out", dest, src}}
	case ".jpg", ".jpeg":
		cmd = execx.Command{Name: c.Jpegtran, Args: []string{"-copy", "none", "-optimize", "-progressive", "-outfile", dest, src}}
	case ".gif":
		cmd = execx.Command{Name: c.Gifsicle, Args: []string{"-O2", "-o", dest, src}}
	default:
		return fmt.Errorf("no optimiser for %s", filepath.Ext(src))
	}
	_, err := c.Runner.Run(ctx, cmd)
	return err
}

// JekyllGenerator builds the site with jekyll.
type JekyllGenerator struct {
	Runner execx.Runner
	Binary string
}

func (g *JekyllGenerator) Generate(ctx context.Context, req GenerateRequest) error {
	_, err := g.Runner.Run(ctx, execx.Command{
		Name: g.Binary,
		Args: []string{"build", "--config", req.Config, "--destination", req.Destination},
		Dir:  req.Dir,
	})
	return err
}
