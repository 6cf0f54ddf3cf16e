package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

func TestParse_KeepsDefaultsForOmittedSections(t *testing.T) {
	cfg, err := Parse([]byte("paths:\n  assets: public\nwatch:\n  debounce: 1s\n"))
	require.NoError(t, err)

	require.Equal(t, "public", cfg.Paths[RootAssets])
	require.Equal(t, ".tmp", cfg.Paths[RootTmp])
	require.Equal(t, "downloads", cfg.Paths[RootDownloads])
	require.Equal(t, time.Second, cfg.Watch.Debounce)
	require.Len(t, cfg.Bundles, 6)
	require.Equal(t, "pluginsjs", cfg.Bundles[0].Name)
	require.Equal(t, FormatZip, cfg.Package.Format)
}

func TestDefault_SassWatchMatchesCompiledSources(t *testing.T) {
	cfg := Default()
	var rule *WatchRule
	for i := range cfg.Watch.Rules {
		if cfg.Watch.Rules[i].Name == "sass" {
			rule = &cfg.Watch.Rules[i]
		}
	}
	require.NotNil(t, rule)
	for _, p := range rule.Patterns {
		require.True(t, strings.HasSuffix(p, "*.scss"), p)
	}
	for _, m := range cfg.Compile.Entries {
		for _, src := range m.Src {
			require.Equal(t, ".scss", filepath.Ext(src), src)
		}
	}
}

func TestParse_ReplacesLists(t *testing.T) {
	cfg, err := Parse([]byte(`
bundles:
  - name: app
    src: [a.js, b.js]
    dest: "{paths.assets}/app.js"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Bundles, 1)
	require.Equal(t, []string{"a.js", "b.js"}, cfg.Bundles[0].Src)
}

func TestParse_RejectsUnknownVersion(t *testing.T) {
	_, err := Parse([]byte("version: \"7\"\n"))
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("paths: [unclosed\n"))
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("ASSETBUILDER_TEST_OUT", "site-assets")
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  assets: ${ASSETBUILDER_TEST_OUT}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "site-assets", cfg.Paths[RootAssets])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInit_WritesLoadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default().Bundles, cfg.Bundles)
	require.Equal(t, DefaultDebounce, cfg.Watch.Debounce)

	err = Init(path, false)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	require.NoError(t, Init(path, true))
}

func TestNormalizeLogLevel(t *testing.T) {
	require.Equal(t, LogLevelDebug, NormalizeLogLevel(" DEBUG "))
	require.Equal(t, LogLevelWarn, NormalizeLogLevel("warning"))
	require.Equal(t, LogLevelInfo, NormalizeLogLevel("loud"))
}
