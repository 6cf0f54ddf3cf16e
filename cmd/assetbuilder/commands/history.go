package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to show" default:"20"`
	JSON  bool   `help:"Print run summaries as JSON"`
	RunID string `name:"run" help:"Show a single run by ID"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, _, base, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ConfigError("run history is disabled (history.path is empty)").Build()
	}

	store, err := eventstore.NewSQLiteStore(absUnder(base, cfg.History.Path))
	if err != nil {
		return err
	}
	defer store.Close()

	proj := eventstore.NewRunHistoryProjection(store)
	if err := proj.Rebuild(g.ctx()); err != nil {
		return err
	}

	var runs []eventstore.RunSummary
	if h.RunID != "" {
		run, ok := proj.Get(h.RunID)
		if !ok {
			return ferrors.NotFoundError("run not found").WithContext("run_id", h.RunID).Build()
		}
		runs = []eventstore.RunSummary{run}
	} else {
		runs = proj.Recent(h.Limit)
	}

	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(g.out(), "No runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tGROUP\tSTATUS\tDURATION\tTASKS\tFAILED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(r.RunID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Group,
			r.Status,
			r.Duration.Round(time.Millisecond),
			r.TaskCount,
			r.FailedTask,
		)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
