package commands

import (
	"fmt"
	"io"
	"time"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/stages"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	return runNames(g, root, stages.GroupBuild)
}

// DefaultCmd implements the 'default' command.
type DefaultCmd struct{}

func (d *DefaultCmd) Run(g *Global, root *CLI) error {
	return runNames(g, root, stages.GroupDefault)
}

// ReleaseCmd implements the 'release' command.
type ReleaseCmd struct {
	Yes bool `help:"Confirm publishing the site into the release tree"`
}

func (r *ReleaseCmd) Run(g *Global, root *CLI) error {
	if !r.Yes {
		return ferrors.ValidationError("release publishes the documentation site; pass --yes to confirm").Build()
	}
	return runNames(g, root, stages.GroupRelease)
}

// RunCmd implements the 'run' command.
type RunCmd struct {
	Names []string `arg:"" help:"Tasks or groups, executed in the order given"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	names := make([]task.Name, len(r.Names))
	for i, n := range r.Names {
		names[i] = task.Name(n)
	}
	return runNames(g, root, names...)
}

func runNames(g *Global, root *CLI, names ...task.Name) error {
	s, err := openSession(g, root, true)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.Run(g.ctx(), names)
	if report != nil {
		printSummary(g.out(), report)
	}
	return err
}

func printSummary(w io.Writer, r *pipeline.Report) {
	_, _ = fmt.Fprintf(w, "%s: %s in %s (%d tasks", r.Group, r.Outcome, r.Duration().Round(time.Millisecond), len(r.Tasks))
	if n := r.Count(task.ResultWarning); n > 0 {
		_, _ = fmt.Fprintf(w, ", %d warnings", n)
	}
	if n := r.Count(task.ResultSkipped); n > 0 {
		_, _ = fmt.Fprintf(w, ", %d skipped", n)
	}
	_, _ = fmt.Fprintln(w, ")")
}
