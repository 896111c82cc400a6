// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes returned by tasksync.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown task, invalid fields).
	UserError = 1

	// AuthError indicates an auth/config error (no session, rejected credentials).
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)
