package stages

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// ReportPath is where a lint task keeps the linter's raw report.
func ReportPath(rc *config.Resolved, name task.Name) string {
	tmp := rc.Paths.Root(config.RootTmp)
	if tmp == "" {
		return ""
	}
	return filepath.Join(tmp, "reports", strings.ReplaceAll(string(name), ":", "-")+".xml")
}

// Lint runs linter over the target's files. Any violation fails the task.
func Lint(name task.Name, target config.LintTarget, linter Linter) task.Func {
	return func(ctx context.Context, rc *config.Resolved) error {
		match, err := fileset.Expand(rc.BaseDir, target.Files, fileset.Options{})
		if err != nil {
			return err
		}
		if len(match.Files) == 0 {
			slog.Warn("No files to lint", logfields.Task(string(name)))
			return nil
		}

		req := LintRequest{Files: match.Files, Dir: rc.BaseDir}
		if target.Rules != "" {
			req.Rules = rc.Abs(target.Rules)
		}
		rep, err := linter.Lint(ctx, req)
		if err != nil {
			return err
		}

		reportPath := ReportPath(rc, name)
		if reportPath != "" && len(rep.Raw) > 0 {
			if err := writeAtomic(reportPath, rep.Raw, filePerm); err != nil {
				slog.Warn("Failed to keep lint report", logfields.Path(reportPath), logfields.Error(err))
				reportPath = ""
			}
		} else {
			reportPath = ""
		}

		if len(rep.Violations) > 0 {
			for _, v := range rep.Violations {
				slog.Info("Lint violation", logfields.File(v.File), slog.Int("line", v.Line), logfields.Rule(v.Rule), slog.String("message", v.Message))
			}
			return &LintViolationError{Violations: rep.Violations, Report: reportPath}
		}
		slog.Debug("Lint clean", logfields.Task(string(name)), logfields.Count(len(match.Files)))
		return nil
	}
}
