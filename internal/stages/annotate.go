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

// Annotate prefixes each target with the rendered banner. A target that
// already starts with the banner is left alone, and a banner from another
// version or commit of the same project is replaced, so reruns never stack.
func Annotate(b config.BannerConfig) task.Func {
	return func(_ context.Context, rc *config.Resolved) error {
		if b.Template == "" || len(b.Files) == 0 {
			return nil
		}
		banner, err := rc.Vars.Expand(b.Template)
		if err != nil {
			return err
		}
		stale := rc.Vars.Matcher(b.Template)

		match, err := fileset.Expand(rc.BaseDir, b.Files, fileset.Options{})
		if err != nil {
			return err
		}
		if len(match.Unmatched) > 0 {
			return &MissingSourceError{Patterns: match.Unmatched}
		}

		for _, f := range match.Files {
			data, err := os.ReadFile(f) // #nosec G304 -- configured banner target
			if err != nil {
				return fmt.Errorf("annotate %s: %w", f, err)
			}
			out, changed := applyBanner(data, []byte(banner), stale.FindIndex)
			if !changed {
				continue
			}
			if err := writeAtomic(f, out, filePerm); err != nil {
				return err
			}
			slog.Debug("Banner applied", logfields.File(f))
		}
		return nil
	}
}

func applyBanner(data, banner []byte, find func([]byte) []int) ([]byte, bool) {
	if bytes.HasPrefix(data, banner) {
		return data, false
	}
	rest := data
	if loc := find(data); loc != nil && loc[0] == 0 {
		rest = data[loc[1]:]
	}
	out := make([]byte, 0, len(banner)+len(rest))
	out = append(out, banner...)
	return append(out, rest...), true
}
