package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// DefaultConfigFile is the pipeline file looked up when -c is not given.
const DefaultConfigFile = "assetbuilder.yaml"

// Config represents the pipeline configuration file.
// String fields may contain {placeholders}; see Vars.
type Config struct {
	Version  string            `yaml:"version"`
	Metadata string            `yaml:"metadata"` // project metadata file, read once by Resolve
	Paths    map[string]string `yaml:"paths"`
	Clean    CleanConfig       `yaml:"clean"`
	Lint     LintConfig        `yaml:"lint"`
	Compile  CompileConfig     `yaml:"compile"`
	Prefix   PrefixConfig      `yaml:"prefix"`
	Compress CompressConfig    `yaml:"compress"`
	Banner   BannerConfig      `yaml:"banner"`
	Bundles  []BundleConfig    `yaml:"bundles"`
	Copy     CopyConfig        `yaml:"copy"`
	Package  PackageConfig     `yaml:"package"`
	Publish  PublishConfig     `yaml:"publish"`
	Watch    WatchConfig       `yaml:"watch"`
	History  HistoryConfig     `yaml:"history"`
	Tools    ToolsConfig       `yaml:"tools"`
	Logging  LoggingConfig     `yaml:"logging"`
}

// Mapping is a grunt-style expanded file mapping: every file matched by Src
// (relative to Cwd) is mapped to Dest joined with its relative path.
type Mapping struct {
	Cwd      string   `yaml:"cwd"`
	Src      []string `yaml:"src"` // patterns starting with ! exclude
	Dest     string   `yaml:"dest"`
	Ext      string   `yaml:"ext,omitempty"`      // replaces everything after the first dot of the basename
	Flatten  bool     `yaml:"flatten,omitempty"`  // drop directory components
	Dot      bool     `yaml:"dot,omitempty"`      // match dotfiles
	Optional bool     `yaml:"optional,omitempty"` // patterns matching nothing are not an error
}

// CleanConfig lists the directories removed by the clean task.
type CleanConfig struct {
	Targets []string `yaml:"targets"`
}

// LintTarget describes one linter run.
type LintTarget struct {
	Rules string   `yaml:"rules"` // rule file handed to the linter
	Files []string `yaml:"files"`
}

// LintConfig configures lint:js and lint:style.
type LintConfig struct {
	JS    LintTarget `yaml:"js"`
	Style LintTarget `yaml:"style"`
}

// CompileConfig configures the stylesheet compiler.
type CompileConfig struct {
	IncludePaths []string  `yaml:"include_paths"`
	Style        string    `yaml:"style"`
	SourceMap    bool      `yaml:"source_map"`
	Entries      []Mapping `yaml:"entries"`
}

// PrefixConfig configures vendor prefixing of compiled stylesheets.
type PrefixConfig struct {
	Browsers []string `yaml:"browsers"`
	Files    []string `yaml:"files"`
}

// CompressConfig configures image optimisation.
type CompressConfig struct {
	Files []Mapping `yaml:"files"`
}

// BannerConfig configures the annotate task.
type BannerConfig struct {
	Template string   `yaml:"template"` // expanded at task time
	Files    []string `yaml:"files"`
}

// BundleConfig is one concatenation target; Src order is the output order.
type BundleConfig struct {
	Name      string   `yaml:"name"`
	Src       []string `yaml:"src"`
	Dest      string   `yaml:"dest"`
	Separator string   `yaml:"separator,omitempty"`
}

// CopyConfig holds the copy:dist and copy:release mappings.
type CopyConfig struct {
	Dist    []Mapping `yaml:"dist"`
	Release []Mapping `yaml:"release"`
}

// Archive formats supported by the package task.
const (
	FormatZip   = "zip"
	FormatTarGz = "tar.gz"
)

// PackageConfig configures the redistributable archive.
type PackageConfig struct {
	Root   string   `yaml:"root"` // entry names are relative to Root
	Src    []string `yaml:"src"`
	Dest   string   `yaml:"dest"`
	Format string   `yaml:"format"`
}

// PublishConfig configures the static-site generator run of a release.
type PublishConfig struct {
	Config      string `yaml:"config"`
	Destination string `yaml:"destination"`
}

// WatchRule maps changed-file patterns to the tasks to rerun.
type WatchRule struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Tasks    []string `yaml:"tasks"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Rules             []WatchRule   `yaml:"rules"`
	Debounce          time.Duration `yaml:"debounce"`
	FullBuildInterval time.Duration `yaml:"full_build_interval"` // 0 disables scheduled rebuilds
	InitialBuild      bool          `yaml:"initial_build"`
}

// HistoryConfig configures the run history database. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ToolsConfig names the external binaries used by the default adapters.
type ToolsConfig struct {
	Sass     string `yaml:"sass"`
	JSHint   string `yaml:"jshint"`
	SassLint string `yaml:"sass_lint"`
	PostCSS  string `yaml:"postcss"`
	Optipng  string `yaml:"optipng"`
	Jpegtran string `yaml:"jpegtran"`
	Gifsicle string `yaml:"gifsicle"`
	Jekyll   string `yaml:"jekyll"`
}

// LoggingConfig configures the log level; the -v flag overrides it.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the pipeline file at path. Environment variables from .env files
// are loaded first and ${VAR} references are expanded before parsing. Sections
// missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("file", path).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read configuration file").
			Fatal().
			WithContext("file", path).
			Build()
	}
	return Parse(data)
}

// Parse decodes pipeline YAML onto the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse configuration").
			Fatal().
			Build()
	}
	if cfg.Version != "" && cfg.Version != SchemaVersion {
		return nil, ferrors.ConfigError(fmt.Sprintf("unsupported configuration version %q (expected %q)", cfg.Version, SchemaVersion)).
			Build()
	}
	return cfg, nil
}

// Init writes a starter pipeline file containing the defaults.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("file", path).
			Build()
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	// #nosec G306 -- config files are meant to be readable
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write configuration file").
			WithContext("file", path).
			Build()
	}
	return nil
}
