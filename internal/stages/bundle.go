package stages

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Bundle concatenates the manifest sources in order, joined by the bundle's
// separator, into its destination. Every source pattern must match.
func Bundle(b config.BundleConfig) task.Func {
	return func(_ context.Context, rc *config.Resolved) error {
		man, match, err := fileset.Files(rc.BaseDir, b.Src, b.Dest, fileset.Options{Dot: true})
		if err != nil {
			return err
		}
		if len(match.Unmatched) > 0 {
			return &MissingSourceError{Patterns: match.Unmatched}
		}

		var buf bytes.Buffer
		for i, src := range man.Sources {
			if src == man.Dest {
				return fmt.Errorf("bundle %s: destination %s is also a source", b.Name, man.Dest)
			}
			data, err := os.ReadFile(src) // #nosec G304 -- configured bundle source
			if err != nil {
				return fmt.Errorf("bundle %s: read %s: %w", b.Name, src, err)
			}
			if i > 0 {
				buf.WriteString(b.Separator)
			}
			buf.Write(data)
		}
		if err := writeAtomic(man.Dest, buf.Bytes(), filePerm); err != nil {
			return err
		}
		slog.Debug("Bundle written", logfields.Dest(man.Dest), logfields.Count(len(man.Sources)))
		return nil
	}
}
