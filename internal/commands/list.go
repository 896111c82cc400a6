package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/service"
	"tasksync/internal/store"
)

func init() {
	Register(&ListCmd{})
	Register(&StatsCmd{})
}

// ListCmd implements the list command.
// Handles both `tasksync` (no args) and `tasksync list`.
type ListCmd struct {
	status  string
	format  string
	offline bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "tasksync list [--status <s>] [--offline] [--format text|json|yaml]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.status, "s", "", "")
	fs.StringVar(&c.format, "format", "", "")
	fs.BoolVar(&c.offline, "offline", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	format, err := output.ParseFormat(c.format)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	var status service.TaskStatus
	if c.status != "" {
		if status, err = service.ParseTaskStatus(c.status); err != nil {
			return usageError(errOut, "%v", err)
		}
	}

	if !c.offline {
		if _, err := st.Dispatch(ctx, store.FetchTasks{}); err != nil {
			return fail(errOut, err)
		}
	}

	all := st.Snapshot().Tasks.Items
	items := output.Filter(all, status)
	if len(items) == 0 && format == output.FormatText {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}
	if err := output.WriteTasks(out, format, all, items); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}

// StatsCmd prints task counts by status from the local mirror.
type StatsCmd struct {
	format string
}

func (c *StatsCmd) Name() string      { return "stats" }
func (c *StatsCmd) Aliases() []string { return nil }
func (c *StatsCmd) Synopsis() string  { return "Count tasks by status" }
func (c *StatsCmd) Usage() string     { return "tasksync stats [--format text|json|yaml]" }
func (c *StatsCmd) NeedsAuth() bool   { return true }

func (c *StatsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", "", "")
}

func (c *StatsCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	format, err := output.ParseFormat(c.format)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	if err := output.WriteStats(out, format, output.Count(st.Snapshot().Tasks.Items)); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}
