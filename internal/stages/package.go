package stages

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
	"git.home.luguber.info/inful/assetbuilder/internal/workspace"
)

// archiveEpoch is stamped on every entry so identical inputs give identical bytes.
var archiveEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

type archiveEntry struct {
	Name string // slash separated, NFC
	Path string
}

// Package archives the files under root into dest. Entry names are relative
// to root, normalised to NFC and sorted; the archive itself is never an entry.
func Package(cfg config.PackageConfig) task.Func {
	return func(_ context.Context, rc *config.Resolved) error {
		root := rc.Abs(cfg.Root)
		dest := rc.Abs(cfg.Dest)

		entries, err := collectEntries(root, cfg.Src, dest)
		if err != nil {
			return err
		}

		scratchBase := rc.Paths.Root(config.RootTmp)
		if scratchBase == "" {
			scratchBase = filepath.Dir(dest)
		}
		ws := workspace.NewManager(scratchBase)
		if err := ws.Create(); err != nil {
			return err
		}
		defer func() {
			if cerr := ws.Cleanup(); cerr != nil {
				slog.Warn("Failed to remove package scratch directory", logfields.Error(cerr))
			}
		}()

		scratch := filepath.Join(ws.GetPath(), filepath.Base(dest))
		if err := writeArchive(scratch, cfg.Format, entries); err != nil {
			return fmt.Errorf("write %s archive: %w", cfg.Format, err)
		}
		if err := ensureDir(filepath.Dir(dest), scratch); err != nil {
			return err
		}
		if err := os.Rename(scratch, dest); err != nil {
			// scratch may live on another filesystem
			if cerr := copyFile(scratch, dest); cerr != nil {
				return fmt.Errorf("move archive into place: %w", cerr)
			}
		}
		slog.Info("Package written", logfields.Dest(dest), logfields.Count(len(entries)))
		return nil
	}
}

func collectEntries(root string, patterns []string, dest string) ([]archiveEntry, error) {
	if !fileset.IsDir(root) {
		return nil, &EmptySourceSetError{Root: root, Patterns: patterns}
	}
	match, err := fileset.Expand(root, patterns, fileset.Options{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(match.Files))
	entries := make([]archiveEntry, 0, len(match.Files))
	for _, f := range match.Files {
		if f == dest || f == dest+".tmp" {
			continue
		}
		inside, err := fileset.Contains(root, f)
		if err != nil {
			return nil, err
		}
		if !inside {
			return nil, &PathEscapeError{Root: root, Path: f}
		}
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return nil, &PathEscapeError{Root: root, Path: f}
		}
		name := norm.NFC.String(filepath.ToSlash(rel))
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("archive entry %q produced by both %s and %s", name, prev, f)
		}
		seen[name] = f
		entries = append(entries, archiveEntry{Name: name, Path: f})
	}
	if len(entries) == 0 {
		return nil, &EmptySourceSetError{Root: root, Patterns: patterns}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func writeArchive(path, format string, entries []archiveEntry) (err error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm) // #nosec G304 -- scratch path
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	switch format {
	case config.FormatTarGz:
		return writeTarGz(out, entries)
	case config.FormatZip, "":
		return writeZip(out, entries)
	default:
		return fmt.Errorf("unsupported archive format %q", format)
	}
}

func writeZip(w io.Writer, entries []archiveEntry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: archiveEpoch}
		hdr.SetMode(filePerm)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if err := appendFile(fw, e.Path); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeTarGz(w io.Writer, entries []archiveEntry) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		info, err := os.Stat(e.Path)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     e.Name,
			Mode:     int64(filePerm),
			Size:     info.Size(),
			ModTime:  archiveEpoch,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if err := appendFile(tw, e.Path); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func appendFile(w io.Writer, path string) error {
	f, err := os.Open(path) // #nosec G304 -- archive entry under the package root
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
