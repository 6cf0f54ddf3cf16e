package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Resolved is the read-only context handed to every task. All placeholders in
// Pipeline have been expanded except Banner.Template, which is rendered by the
// annotate task so that stale banners can be recognised.
type Resolved struct {
	BaseDir    string
	ConfigFile string
	Project    *ProjectConfig
	Paths      PathSet
	Vars       Vars
	Pipeline   *Config
	LogLevel   LogLevel
}

// Abs resolves p against the project base directory.
func (r *Resolved) Abs(p string) string {
	return absUnder(r.BaseDir, p)
}

// Prepare resolves the project metadata and roots, expands every template and
// validates the result. All problems are reported together in one ConfigError.
func Prepare(cfg *Config, configFile, baseDir, commit string) (*Resolved, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid base directory").Fatal().Build()
	}

	project, paths, err := Resolve(cfg.Metadata, cfg.Paths, base)
	if err != nil {
		return nil, err
	}

	vars := NewVars(project, paths, commit)
	x := &expander{vars: vars}
	expanded := x.config(cfg)
	x.problems = append(x.problems, vars.Validate(cfg.Banner.Template)...)

	v := &validator{baseDir: base}
	v.validate(expanded)

	problems := append(x.problems, v.problems...)
	if len(problems) > 0 {
		return nil, ferrors.WrapError(errors.Join(problems...), ferrors.CategoryConfig, "invalid pipeline configuration").
			Fatal().
			WithContext("file", configFile).
			WithContext("problems", len(problems)).
			Build()
	}

	return &Resolved{
		BaseDir:    base,
		ConfigFile: configFile,
		Project:    project,
		Paths:      paths,
		Vars:       vars,
		Pipeline:   expanded,
		LogLevel:   NormalizeLogLevel(cfg.Logging.Level),
	}, nil
}

type expander struct {
	vars     Vars
	problems []error
}

func (x *expander) str(s string) string {
	out, err := x.vars.Expand(s)
	if err != nil {
		x.problems = append(x.problems, x.vars.Validate(s)...)
		return s
	}
	return out
}

func (x *expander) strs(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = x.str(s)
	}
	return out
}

func (x *expander) mappings(in []Mapping) []Mapping {
	if in == nil {
		return nil
	}
	out := make([]Mapping, len(in))
	for i, m := range in {
		m.Cwd = x.str(m.Cwd)
		m.Src = x.strs(m.Src)
		m.Dest = x.str(m.Dest)
		out[i] = m
	}
	return out
}

func (x *expander) config(cfg *Config) *Config {
	out := *cfg
	out.Paths = make(map[string]string, len(cfg.Paths))
	for k, v := range cfg.Paths {
		out.Paths[k] = v
	}
	out.Clean.Targets = x.strs(cfg.Clean.Targets)
	out.Lint.JS = LintTarget{Rules: x.str(cfg.Lint.JS.Rules), Files: x.strs(cfg.Lint.JS.Files)}
	out.Lint.Style = LintTarget{Rules: x.str(cfg.Lint.Style.Rules), Files: x.strs(cfg.Lint.Style.Files)}
	out.Compile.IncludePaths = x.strs(cfg.Compile.IncludePaths)
	out.Compile.Entries = x.mappings(cfg.Compile.Entries)
	out.Prefix.Files = x.strs(cfg.Prefix.Files)
	out.Compress.Files = x.mappings(cfg.Compress.Files)
	out.Banner.Files = x.strs(cfg.Banner.Files)
	out.Bundles = make([]BundleConfig, len(cfg.Bundles))
	for i, b := range cfg.Bundles {
		b.Src = x.strs(b.Src)
		b.Dest = x.str(b.Dest)
		b.Separator = x.str(b.Separator)
		out.Bundles[i] = b
	}
	out.Copy.Dist = x.mappings(cfg.Copy.Dist)
	out.Copy.Release = x.mappings(cfg.Copy.Release)
	out.Package.Root = x.str(cfg.Package.Root)
	out.Package.Src = x.strs(cfg.Package.Src)
	out.Package.Dest = x.str(cfg.Package.Dest)
	out.Publish.Config = x.str(cfg.Publish.Config)
	out.Publish.Destination = x.str(cfg.Publish.Destination)
	out.Watch.Rules = make([]WatchRule, len(cfg.Watch.Rules))
	for i, r := range cfg.Watch.Rules {
		r.Patterns = x.strs(r.Patterns)
		out.Watch.Rules[i] = r
	}
	out.History.Path = x.str(cfg.History.Path)
	return &out
}

type validator struct {
	baseDir  string
	problems []error
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validator) validate(cfg *Config) {
	v.validateClean(cfg.Clean)
	v.validateInside("publish.destination", cfg.Publish.Destination)
	v.validateRuleFile("lint.js.rules", cfg.Lint.JS.Rules)
	v.validateRuleFile("lint.style.rules", cfg.Lint.Style.Rules)
	v.validateBundles(cfg.Bundles)
	v.validateMappings("compile.entries", cfg.Compile.Entries)
	v.validateMappings("compress.files", cfg.Compress.Files)
	v.validateMappings("copy.dist", cfg.Copy.Dist)
	v.validateMappings("copy.release", cfg.Copy.Release)

	switch cfg.Package.Format {
	case FormatZip, FormatTarGz:
	default:
		v.addf("package.format %q is not one of %s, %s", cfg.Package.Format, FormatZip, FormatTarGz)
	}
	if strings.TrimSpace(cfg.Package.Root) == "" || strings.TrimSpace(cfg.Package.Dest) == "" {
		v.addf("package.root and package.dest are required")
	}

	seen := make(map[string]bool)
	for i, r := range cfg.Watch.Rules {
		if r.Name == "" {
			v.addf("watch.rules[%d]: name is required", i)
		} else if seen[r.Name] {
			v.addf("watch.rules[%d]: duplicate rule name %q", i, r.Name)
		}
		seen[r.Name] = true
		if len(r.Patterns) == 0 || len(r.Tasks) == 0 {
			v.addf("watch rule %q needs at least one pattern and one task", r.Name)
		}
	}
	if cfg.Watch.Debounce < 0 || cfg.Watch.FullBuildInterval < 0 {
		v.addf("watch durations must not be negative")
	}
}

// validateClean keeps clean targets strictly inside the project directory.
func (v *validator) validateClean(c CleanConfig) {
	for _, t := range c.Targets {
		if !v.inside(t) {
			v.addf("clean target %q must be a directory inside %s", t, v.baseDir)
		}
	}
}

// validateInside applies the same rule to directories that are emptied before use.
func (v *validator) validateInside(field, dir string) {
	if dir != "" && !v.inside(dir) {
		v.addf("%s %q must be a directory inside %s", field, dir, v.baseDir)
	}
}

func (v *validator) inside(p string) bool {
	rel, err := filepath.Rel(v.baseDir, absUnder(v.baseDir, p))
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (v *validator) validateRuleFile(field, path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(absUnder(v.baseDir, path)); err != nil {
		v.addf("%s: rule file %q not found", field, path)
	}
}

func (v *validator) validateBundles(bundles []BundleConfig) {
	seen := make(map[string]bool, len(bundles))
	for i, b := range bundles {
		switch {
		case b.Name == "":
			v.addf("bundles[%d]: name is required", i)
		case seen[b.Name]:
			v.addf("bundles[%d]: duplicate bundle name %q", i, b.Name)
		}
		seen[b.Name] = true
		if b.Dest == "" || len(b.Src) == 0 {
			v.addf("bundle %q needs src and dest", b.Name)
		}
	}
}

func (v *validator) validateMappings(field string, mappings []Mapping) {
	for i, m := range mappings {
		if len(m.Src) == 0 {
			v.addf("%s[%d]: src is required", field, i)
		}
		if m.Dest == "" {
			v.addf("%s[%d]: dest is required", field, i)
		}
	}
}
