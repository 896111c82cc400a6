package commands

import (
	"errors"
	"fmt"
	"io"

	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

// notLoggedIn is printed when a command needs a session and none exists.
const notLoggedIn = "not logged in (run: tasksync login)"

// fail prints err and returns its exit code. The state machines log the
// detail at debug level.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %s\n", service.Message(err))
	switch {
	case service.IsAuth(err):
		return exitcode.AuthError
	case service.IsValidation(err):
		return exitcode.UserError
	case errors.Is(err, ErrTaskRefRequired), errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrOutOfRange):
		return exitcode.UserError
	}
	return exitcode.BackendError
}

// usageError prints a user error and returns exitcode.UserError.
func usageError(errOut io.Writer, format string, args ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}
