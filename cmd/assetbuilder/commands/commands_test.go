package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
	"git.home.luguber.info/inful/assetbuilder/internal/stages"
)

const projectYAML = `version: "1"
metadata: _config.yml
paths:
  tmp: .tmp
  assets: generated
  downloads: downloads
clean:
  targets: ["{paths.tmp}", "{paths.assets}", "{paths.downloads}"]
lint:
  js: {rules: "", files: [src/js/*.js]}
  style: {rules: "", files: [src/sass/*.scss]}
compile:
  include_paths: [src/sass]
  style: compressed
  source_map: false
  entries:
    - {cwd: src/sass, src: [lib.scss], dest: "{paths.downloads}/css", ext: .min.css}
prefix:
  browsers: [last 2 versions]
  files: ["{paths.downloads}/css/*.css"]
compress:
  files:
    - {cwd: src/img, src: ["*.png"], dest: "{paths.assets}/images", optional: true}
banner:
  template: "/* {name} v{version} */\n\n"
  files: ["{paths.downloads}/css/lib.min.css"]
bundles:
  - {name: mainjs, src: [src/js/a.js, src/js/b.js], dest: "{paths.assets}/scripts/main.js", separator: ";\n"}
copy:
  dist:
    - {cwd: "{paths.assets}", src: ["**/*"], dest: "{paths.downloads}/assets"}
  release:
    - {cwd: "{paths.tmp}/site", src: ["**/*"], dest: site/1.x}
package:
  root: "{paths.downloads}"
  src: ["**/*"]
  dest: "{paths.downloads}/{name}-{version}.zip"
  format: zip
publish:
  config: _config_release.yml
  destination: "{paths.tmp}/site"
watch:
  rules:
    - {name: js, patterns: [src/js/*.js], tasks: [lint:js, bundle:mainjs]}
history:
  path: .assetbuilder/history.db
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"assetbuilder.yaml":   projectYAML,
		"_config.yml":         "name: demo\nversion: 2.1.0\nrepository: https://example.com/demo.git\n",
		"_config_release.yml": "baseurl: /demo\n",
		"src/js/a.js":         "var a = 1",
		"src/js/b.js":         "var b = 2",
		"src/sass/lib.scss":   "body { color: red; }",
		"src/img/logo.png":    "PNG",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return dir
}

type stubLinter struct{ violations []stages.LintViolation }

func (l stubLinter) Lint(context.Context, stages.LintRequest) (stages.LintReport, error) {
	return stages.LintReport{Violations: l.violations, Raw: []byte("<checkstyle/>")}, nil
}

type copyTool struct{}

func (copyTool) Compile(_ context.Context, req stages.CompileRequest) error {
	return copyFile(req.Src, req.Dest)
}

func (copyTool) Compress(_ context.Context, src, dest string) error { return copyFile(src, dest) }

func (copyTool) Prefix(context.Context, []string, []string) error { return nil }

func (copyTool) Generate(_ context.Context, req stages.GenerateRequest) error {
	if err := os.MkdirAll(req.Destination, 0o750); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(req.Destination, "index.html"), []byte("<h1>demo</h1>"), 0o600)
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o600)
}

func stubs(jsViolations ...stages.LintViolation) func(config.ToolsConfig) stages.Collaborators {
	return func(config.ToolsConfig) stages.Collaborators {
		return stages.Collaborators{
			JSLinter:    stubLinter{violations: jsViolations},
			StyleLinter: stubLinter{},
			Compiler:    copyTool{},
			Prefixer:    copyTool{},
			Images:      copyTool{},
			Generator:   copyTool{},
		}
	}
}

// execute parses args like main does and runs the selected command.
func execute(t *testing.T, g *Global, args ...string) error {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("assetbuilder"),
		kong.Vars{"version": "test"},
		kong.Exit(func(int) { t.Fatalf("unexpected exit for %v", args) }),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(g, &cli)
}

func exitCode(err error) int {
	return ferrors.NewCLIErrorAdapter(false, slog.Default()).ExitCodeFor(err)
}

func TestInit_WritesAndRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetbuilder.yaml")
	var out bytes.Buffer
	g := &Global{Out: &out}

	require.NoError(t, execute(t, g, "-c", path, "init"))
	require.FileExists(t, path)
	require.Contains(t, out.String(), "initialized successfully")

	err := execute(t, g, "-c", path, "init")
	require.Error(t, err)
	require.Equal(t, 2, exitCode(err))

	require.NoError(t, execute(t, g, "-c", path, "init", "--force"))
}

func TestMissingConfig(t *testing.T) {
	err := execute(t, &Global{Out: &bytes.Buffer{}}, "-c", filepath.Join(t.TempDir(), "nope.yaml"), "build")
	require.Error(t, err)
	require.Equal(t, 7, exitCode(err))
}

func TestRelease_RequiresConfirmation(t *testing.T) {
	dir := writeProject(t)
	g := &Global{Out: &bytes.Buffer{}, Collaborators: stubs()}

	err := execute(t, g, "-c", filepath.Join(dir, "assetbuilder.yaml"), "release")
	require.Error(t, err)
	require.Equal(t, 2, exitCode(err))
	require.NoDirExists(t, filepath.Join(dir, "downloads"))
}

func TestBuild_RunsPipelineAndRecordsHistory(t *testing.T) {
	dir := writeProject(t)
	cfgPath := filepath.Join(dir, "assetbuilder.yaml")
	metricsPath := filepath.Join(t.TempDir(), "assetbuilder.prom")
	var out bytes.Buffer
	g := &Global{Out: &out, Collaborators: stubs()}

	require.NoError(t, execute(t, g, "-c", cfgPath, "--metrics-file", metricsPath, "build"))
	require.Contains(t, out.String(), "build: success")
	require.FileExists(t, filepath.Join(dir, "downloads", "demo-2.1.0.zip"))
	require.Equal(t, "/* demo v2.1.0 */\n\nbody { color: red; }", readString(t, filepath.Join(dir, "downloads/css/lib.min.css")))

	data, err := os.ReadFile(filepath.Join(dir, ".tmp", manifest.FileName))
	require.NoError(t, err)
	m, err := manifest.FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, "success", m.Status)
	require.Equal(t, "demo", m.Project.Name)
	require.Contains(t, m.Outputs.ArtifactHashes, "downloads/demo-2.1.0.zip")

	metricsText := readString(t, metricsPath)
	require.Contains(t, metricsText, "assetbuilder_task_results_total")

	out.Reset()
	require.NoError(t, execute(t, g, "-c", cfgPath, "history", "--json"))
	var runs []eventstore.RunSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	require.Len(t, runs, 1)
	require.Equal(t, m.ID, runs[0].RunID)
	require.Equal(t, "build", runs[0].Group)
	require.Equal(t, "success", runs[0].Status)

	out.Reset()
	require.NoError(t, execute(t, g, "-c", cfgPath, "history"))
	require.Contains(t, out.String(), "RUN")
	require.Contains(t, out.String(), m.ID[:8])
}

func TestBuild_RerunIsByteIdentical(t *testing.T) {
	dir := writeProject(t)
	cfgPath := filepath.Join(dir, "assetbuilder.yaml")
	g := &Global{Out: &bytes.Buffer{}, Collaborators: stubs()}

	hashes := func() manifest.Outputs {
		data, err := os.ReadFile(filepath.Join(dir, ".tmp", manifest.FileName))
		require.NoError(t, err)
		m, err := manifest.FromJSON(data)
		require.NoError(t, err)
		return m.Outputs
	}

	require.NoError(t, execute(t, g, "-c", cfgPath, "build"))
	first := hashes()
	require.NoError(t, execute(t, g, "-c", cfgPath, "default"))
	require.Equal(t, first, hashes())
}

func TestBuild_LintFailureIsBuildError(t *testing.T) {
	dir := writeProject(t)
	g := &Global{Out: &bytes.Buffer{}, Collaborators: stubs(stages.LintViolation{File: "src/js/a.js", Line: 1, Rule: "W033", Message: "Missing semicolon."})}

	err := execute(t, g, "-c", filepath.Join(dir, "assetbuilder.yaml"), "build")
	require.Error(t, err)
	require.Equal(t, 11, exitCode(err))
	require.Contains(t, ferrors.NewCLIErrorAdapter(false, nil).FormatError(err), `task "lint:js" failed`)
	require.NoFileExists(t, filepath.Join(dir, "downloads", "demo-2.1.0.zip"))
}

func TestRun_UnknownTaskIsRegistryError(t *testing.T) {
	dir := writeProject(t)
	g := &Global{Out: &bytes.Buffer{}, Collaborators: stubs()}

	err := execute(t, g, "-c", filepath.Join(dir, "assetbuilder.yaml"), "run", "clean", "deploy")
	require.Error(t, err)
	require.Equal(t, 9, exitCode(err))
}

func TestRun_SelectedTasks(t *testing.T) {
	dir := writeProject(t)
	var out bytes.Buffer
	g := &Global{Out: &out, Collaborators: stubs()}

	require.NoError(t, execute(t, g, "-c", filepath.Join(dir, "assetbuilder.yaml"), "run", "bundle"))
	require.Equal(t, "var a = 1;\nvar b = 2", readString(t, filepath.Join(dir, "generated/scripts/main.js")))
	require.Contains(t, out.String(), "bundle: success")
}

func TestTasks_FlattenedOrder(t *testing.T) {
	dir := writeProject(t)
	var out bytes.Buffer
	g := &Global{Out: &out, Collaborators: stubs()}

	require.NoError(t, execute(t, g, "-c", filepath.Join(dir, "assetbuilder.yaml"), "tasks", "release"))
	var order []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		fields := strings.Fields(line)
		require.Len(t, fields, 2)
		order = append(order, fields[1])
	}
	require.Equal(t, []string{
		"clean", "lint:js", "lint:style", "compile", "compress", "annotate",
		"bundle:mainjs", "prefix", "copy:dist", "package", "publish", "copy:release",
	}, order)

	out.Reset()
	require.NoError(t, execute(t, g, "-c", filepath.Join(dir, "assetbuilder.yaml"), "tasks"))
	require.Contains(t, out.String(), "watch:js")
	require.Contains(t, out.String(), "compress")
}

func TestParseLogLevel(t *testing.T) {
	lvl, ok := parseLogLevel(true, "error")
	require.True(t, ok)
	require.Equal(t, slog.LevelDebug, lvl)

	lvl, ok = parseLogLevel(false, "warn")
	require.True(t, ok)
	require.Equal(t, slog.LevelWarn, lvl)

	_, ok = parseLogLevel(false, " ")
	require.False(t, ok)
}

func readString(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}
