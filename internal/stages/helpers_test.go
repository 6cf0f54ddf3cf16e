package stages

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

const demoMetadata = "name: demo\nversion: 2.1.0\nrepository: https://example.com/demo.git\n"

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

// miniConfig is a small pipeline over the tree written by miniProject.
func miniConfig() *config.Config {
	return &config.Config{
		Version:  config.SchemaVersion,
		Metadata: config.DefaultMetadataFile,
		Paths: map[string]string{
			config.RootTmp:       ".tmp",
			config.RootAssets:    "generated",
			config.RootDownloads: "downloads",
		},
		Clean: config.CleanConfig{Targets: []string{"{paths.tmp}", "{paths.assets}", "{paths.downloads}"}},
		Lint: config.LintConfig{
			JS:    config.LintTarget{Files: []string{"src/js/*.js"}},
			Style: config.LintTarget{Files: []string{"src/sass/*.scss"}},
		},
		Compile: config.CompileConfig{
			IncludePaths: []string{"src/sass"},
			Style:        "compressed",
			Entries: []config.Mapping{
				{Cwd: "src/sass", Src: []string{"lib.scss"}, Dest: "{paths.downloads}/css", Ext: ".min.css"},
			},
		},
		Prefix: config.PrefixConfig{
			Browsers: []string{"last 2 versions"},
			Files:    []string{"{paths.downloads}/css/*.css"},
		},
		Compress: config.CompressConfig{Files: []config.Mapping{
			{Cwd: "src/img", Src: []string{"*.{png,gif}"}, Dest: "{paths.assets}/images", Optional: true},
		}},
		Banner: config.BannerConfig{
			Template: "/* {name} v{version} */\n\n",
			Files:    []string{"{paths.downloads}/css/lib.min.css"},
		},
		Bundles: []config.BundleConfig{
			{Name: "mainjs", Src: []string{"src/js/a.js", "src/js/b.js"}, Dest: "{paths.assets}/scripts/main.js", Separator: ";\n"},
		},
		Copy: config.CopyConfig{
			Dist: []config.Mapping{
				{Cwd: "{paths.assets}", Src: []string{"**/*"}, Dest: "{paths.downloads}/assets"},
			},
			Release: []config.Mapping{
				{Cwd: "{paths.tmp}/site", Src: []string{"**/*", "!**/1.x/**"}, Dest: "site/1.x"},
			},
		},
		Package: config.PackageConfig{
			Root:   "{paths.downloads}",
			Src:    []string{"**/*"},
			Dest:   "{paths.downloads}/{name}-{version}.zip",
			Format: config.FormatZip,
		},
		Publish: config.PublishConfig{Config: "_config_release.yml", Destination: "{paths.tmp}/site"},
		Watch: config.WatchConfig{Rules: []config.WatchRule{
			{Name: "js", Patterns: []string{"src/js/*.js"}, Tasks: []string{"lint:js", "bundle:mainjs"}},
		}},
	}
}

// miniProject writes a project tree and resolves cfg against it.
func miniProject(t *testing.T, cfg *config.Config) *config.Resolved {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		config.DefaultMetadataFile: demoMetadata,
		"_config_release.yml":      "baseurl: /usptostrap\n",
		"src/js/a.js":              "var a = 1",
		"src/js/b.js":              "var b = 2",
		"src/sass/lib.scss":        "body { color: red; }",
		"src/img/logo.png":         "PNG",
		"src/img/spinner.gif":      "GIF",
	})
	rc, err := config.Prepare(cfg, "assetbuilder.yaml", dir, "")
	require.NoError(t, err)
	return rc
}

type fakeLinter struct {
	violations []LintViolation
	raw        []byte
	err        error
	requests   []LintRequest
}

func (f *fakeLinter) Lint(_ context.Context, req LintRequest) (LintReport, error) {
	f.requests = append(f.requests, req)
	return LintReport{Violations: f.violations, Raw: f.raw}, f.err
}

// fakeCompiler writes "compiled(<source>)" to the destination.
type fakeCompiler struct {
	fail error
	reqs []CompileRequest
}

func (f *fakeCompiler) Compile(_ context.Context, req CompileRequest) error {
	f.reqs = append(f.reqs, req)
	if f.fail != nil {
		return f.fail
	}
	src, err := os.ReadFile(req.Src)
	if err != nil {
		return err
	}
	return os.WriteFile(req.Dest, []byte("compiled("+string(src)+")"), 0o600)
}

type fakePrefixer struct{}

func (fakePrefixer) Prefix(_ context.Context, files []string, _ []string) error {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if err := os.WriteFile(f, append(data, []byte("\n/* prefixed */")...), 0o600); err != nil {
			return err
		}
	}
	return nil
}

// fakeImages rejects any file whose name contains "bad".
type fakeImages struct{}

func (fakeImages) Compress(_ context.Context, src, dest string) error {
	if strings.Contains(filepath.Base(src), "bad") {
		_ = os.WriteFile(dest, []byte("partial"), 0o600)
		return errors.New("corrupt image")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, bytes.ToLower(data), 0o600)
}

type fakeGenerator struct {
	reqs []GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerateRequest) error {
	f.reqs = append(f.reqs, req)
	if err := os.MkdirAll(filepath.Join(req.Destination, "1.x"), 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(req.Destination, "index.html"), []byte("<h1>demo</h1>"), 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(req.Destination, "1.x", "nested.html"), []byte("stale"), 0o600)
}

func fakeCollaborators() Collaborators {
	return Collaborators{
		JSLinter:    &fakeLinter{},
		StyleLinter: &fakeLinter{},
		Compiler:    &fakeCompiler{},
		Prefixer:    fakePrefixer{},
		Images:      fakeImages{},
		Generator:   &fakeGenerator{},
	}
}
