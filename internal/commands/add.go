package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/store"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	status      string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tasksync add [--description <d>] [--status <s>] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.status, "s", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	fields := service.TaskFields{
		Title:       strings.Join(args, " "),
		Description: c.description,
	}
	if c.status != "" {
		status, err := service.ParseTaskStatus(c.status)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		fields.Status = status
	}

	res, err := st.Dispatch(ctx, store.CreateTask{Fields: fields})
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %s\n", res.Task.ID)
	}
	return exitcode.Success
}
