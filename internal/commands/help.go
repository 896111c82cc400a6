package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/store"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksync help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }
func (c *HelpCmd) NoStore()          {}

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  tasksync                  List tasks (same as list)")
	for _, cmd := range DefaultRegistry.All() {
		fmt.Fprintf(out, "  %-24s  %s\n", cmd.Name(), cmd.Synopsis())
		fmt.Fprintf(out, "      %s\n", cmd.Usage())
	}
	fmt.Fprint(out, helpFooter)
	return exitcode.Success
}

const helpFooter = `
A <ref> is a task number as printed by list, or a task id.
Statuses: todo, in-progress, done. Formats: text, json, yaml.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
