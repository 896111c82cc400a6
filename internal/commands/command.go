// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/store"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a session.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, backend settings).
	// st is the process store; it is nil only for help and version.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int
}

// storeless is implemented by commands that run without a store.
type storeless interface {
	NoStore()
}

// NeedsStore reports whether cmd must be given a store.
func NeedsStore(cmd Command) bool {
	_, ok := cmd.(storeless)
	return !ok
}
