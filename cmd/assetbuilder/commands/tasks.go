package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// TasksCmd implements the 'tasks' command.
type TasksCmd struct {
	Names []string `arg:"" optional:"" help:"Show the flattened execution order of these tasks or groups"`
}

func (c *TasksCmd) Run(g *Global, root *CLI) error {
	s, err := openSession(g, root, false)
	if err != nil {
		return err
	}
	defer s.Close()

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)

	if len(c.Names) > 0 {
		names := make([]task.Name, len(c.Names))
		for i, n := range c.Names {
			names[i] = task.Name(n)
		}
		order, err := s.Registry.FlattenAll(names...)
		if err != nil {
			return err
		}
		for i, n := range order {
			_, _ = fmt.Fprintf(tw, "%d.\t%s\n", i+1, n)
		}
		return tw.Flush()
	}

	_, _ = fmt.Fprintln(tw, "TASK\tDESCRIPTION")
	for _, def := range s.Registry.Tasks() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", def.Name, def.Description)
	}
	_, _ = fmt.Fprintln(tw, "\nGROUP\tRUNS")
	for _, grp := range s.Registry.Groups() {
		refs := make([]string, len(grp.Refs))
		for i, r := range grp.Refs {
			refs[i] = string(r)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", grp.Name, strings.Join(refs, ", "))
	}
	return tw.Flush()
}
