package stages

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
		require.Equal(t, archiveEpoch.Unix(), f.Modified.Unix())
	}
	return names
}

func TestPackage_SortedEntriesAndSelfExclusion(t *testing.T) {
	rc := miniProject(t, miniConfig())
	writeFiles(t, rc.BaseDir, map[string]string{
		"downloads/js/app.js":         "app",
		"downloads/css/lib.min.css":   "css",
		"downloads/README.md":         "readme",
		"downloads/fonts/glyphs.woff": "font",
	})
	dest := filepath.Join(rc.BaseDir, "downloads/demo-2.1.0.zip")
	run := Package(rc.Pipeline.Package)

	require.NoError(t, run(context.Background(), rc))
	first, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, []string{"README.md", "css/lib.min.css", "fonts/glyphs.woff", "js/app.js"}, zipNames(t, dest))

	// the previous archive now sits under the root and must not be packed
	require.NoError(t, run(context.Background(), rc))
	second, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestPackage_NormalisesNamesToNFC(t *testing.T) {
	rc := miniProject(t, miniConfig())
	// decomposed on disk, composed in the archive
	writeFiles(t, rc.BaseDir, map[string]string{"downloads/cafe\u0301.txt": "x"})

	require.NoError(t, Package(rc.Pipeline.Package)(context.Background(), rc))
	require.Equal(t, []string{"caf\u00e9.txt"}, zipNames(t, filepath.Join(rc.BaseDir, "downloads/demo-2.1.0.zip")))
}

func TestPackage_RejectsFilesOutsideRoot(t *testing.T) {
	rc := miniProject(t, miniConfig())
	writeFiles(t, rc.BaseDir, map[string]string{"downloads/ok.txt": "ok", "secret.txt": "secret"})
	require.NoError(t, os.Symlink(filepath.Join(rc.BaseDir, "secret.txt"), filepath.Join(rc.BaseDir, "downloads/link.txt")))

	err := Package(rc.Pipeline.Package)(context.Background(), rc)
	require.ErrorIs(t, err, ErrPathEscape)
	var pe *PathEscapeError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, filepath.Join(rc.BaseDir, "downloads/link.txt"), pe.Path)

	_, statErr := os.Stat(filepath.Join(rc.BaseDir, "downloads/demo-2.1.0.zip"))
	require.True(t, os.IsNotExist(statErr))
}

func TestPackage_RejectsAbsolutePatternOutsideRoot(t *testing.T) {
	rc := miniProject(t, miniConfig())
	writeFiles(t, rc.BaseDir, map[string]string{"downloads/ok.txt": "ok"})
	cfg := rc.Pipeline.Package
	cfg.Src = []string{"**/*", filepath.ToSlash(filepath.Join(rc.BaseDir, config.DefaultMetadataFile))}

	require.ErrorIs(t, Package(cfg)(context.Background(), rc), ErrPathEscape)
}

func TestPackage_EmptySourceSet(t *testing.T) {
	rc := miniProject(t, miniConfig())
	require.ErrorIs(t, Package(rc.Pipeline.Package)(context.Background(), rc), ErrEmptySourceSet)

	require.NoError(t, os.MkdirAll(filepath.Join(rc.BaseDir, "downloads"), 0o750))
	require.ErrorIs(t, Package(rc.Pipeline.Package)(context.Background(), rc), ErrEmptySourceSet)
}

func TestPackage_TarGz(t *testing.T) {
	rc := miniProject(t, miniConfig())
	writeFiles(t, rc.BaseDir, map[string]string{"downloads/b.txt": "bb", "downloads/a/a.txt": "a"})
	cfg := rc.Pipeline.Package
	cfg.Format = config.FormatTarGz
	cfg.Dest = filepath.Join(rc.BaseDir, "out/demo.tar.gz")

	require.NoError(t, Package(cfg)(context.Background(), rc))

	f, err := os.Open(cfg.Dest)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.True(t, hdr.ModTime.Equal(archiveEpoch))
		names = append(names, hdr.Name)
	}
	require.Equal(t, []string{"a/a.txt", "b.txt"}, names)
}
