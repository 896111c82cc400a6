package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/store"
)

func init() {
	Register(&DoneCmd{})
	Register(&StartCmd{})
	Register(&EditCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark a task done" }
func (c *DoneCmd) Usage() string     { return "tasksync done <ref>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	return runSetStatus(ctx, cfg, st, service.StatusDone, args, out, errOut)
}

// StartCmd implements the start command.
type StartCmd struct{}

func (c *StartCmd) Name() string      { return "start" }
func (c *StartCmd) Aliases() []string { return nil }
func (c *StartCmd) Synopsis() string  { return "Mark a task in progress" }
func (c *StartCmd) Usage() string     { return "tasksync start <ref>" }
func (c *StartCmd) NeedsAuth() bool   { return true }

func (c *StartCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StartCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	return runSetStatus(ctx, cfg, st, service.StatusInProgress, args, out, errOut)
}

func runSetStatus(ctx context.Context, cfg *config.Config, st *store.Store, status service.TaskStatus, args []string, out, errOut io.Writer) int {
	task, err := resolveRef(st, args)
	if err != nil {
		return fail(errOut, err)
	}
	fields := task.Fields()
	fields.Status = status
	return runUpdate(ctx, cfg, st, task.ID, fields, out, errOut)
}

// EditCmd implements the edit command. Unset flags keep the task's
// current values.
type EditCmd struct {
	title       *string
	description *string
	status      *string
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"update"} }
func (c *EditCmd) Synopsis() string  { return "Change a task's fields" }
func (c *EditCmd) Usage() string {
	return "tasksync edit [--title <t>] [--description <d>] [--status <s>] <ref>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description, c.status = nil, nil, nil
	fs.Func("title", "", func(s string) error { c.title = &s; return nil })
	fs.Func("description", "", func(s string) error { c.description = &s; return nil })
	fs.Func("status", "", func(s string) error { c.status = &s; return nil })
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	task, err := resolveRef(st, args)
	if err != nil {
		return fail(errOut, err)
	}

	fields := task.Fields()
	if c.title != nil {
		fields.Title = *c.title
	}
	if c.description != nil {
		fields.Description = *c.description
	}
	if c.status != nil {
		status, err := service.ParseTaskStatus(*c.status)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		fields.Status = status
	}
	return runUpdate(ctx, cfg, st, task.ID, fields, out, errOut)
}

func runUpdate(ctx context.Context, cfg *config.Config, st *store.Store, id string, fields service.TaskFields, out, errOut io.Writer) int {
	if _, err := st.Dispatch(ctx, store.UpdateTask{ID: id, Fields: fields}); err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// resolveRef finds the task named by args in the local mirror.
func resolveRef(st *store.Store, args []string) (service.Task, error) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return service.Task{}, err
	}
	return ref.Resolve(st.Snapshot().Tasks.Items)
}
