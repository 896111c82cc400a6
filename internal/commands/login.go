package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tasksync/internal/backend/googletasks"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/store"
)

// Stdin is read for a password when --password is not given.
var Stdin io.Reader = os.Stdin

// authorize runs the Google browser flow. Replaced in tests.
var authorize = googletasks.Authorize

func init() {
	Register(&LoginCmd{})
	Register(&SignupCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	password string
	google   bool
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in and store the session" }
func (c *LoginCmd) Usage() string {
	return "tasksync login [common flags] [--password <p>] <username> | --google"
}
func (c *LoginCmd) NeedsAuth() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
	fs.BoolVar(&c.google, "google", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	if c.google {
		return runGoogleLogin(ctx, cfg, st, out, errOut)
	}
	creds, code := readCredentials(args, c.password, errOut)
	if code != exitcode.Success {
		return code
	}
	if _, err := st.Dispatch(ctx, store.Login{Credentials: creds}); err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// SignupCmd implements the signup command.
type SignupCmd struct {
	password string
}

func (c *SignupCmd) Name() string      { return "signup" }
func (c *SignupCmd) Aliases() []string { return []string{"register"} }
func (c *SignupCmd) Synopsis() string  { return "Create an account and log in" }
func (c *SignupCmd) Usage() string {
	return "tasksync signup [common flags] [--password <p>] <username>"
}
func (c *SignupCmd) NeedsAuth() bool { return false }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *SignupCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	creds, code := readCredentials(args, c.password, errOut)
	if code != exitcode.Success {
		return code
	}
	if _, err := st.Dispatch(ctx, store.Signup{Credentials: creds}); err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// readCredentials takes the username from args and the password from the
// flag, falling back to the first line of Stdin.
func readCredentials(args []string, password string, errOut io.Writer) (service.Credentials, int) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return service.Credentials{}, usageError(errOut, "username required")
	}
	if len(args) > 1 {
		return service.Credentials{}, usageError(errOut, "unexpected argument: %s", args[1])
	}
	if password == "" {
		line, err := bufio.NewReader(Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return service.Credentials{}, usageError(errOut, "failed to read password: %v", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return service.Credentials{}, usageError(errOut, "password required")
	}
	return service.Credentials{Username: strings.TrimSpace(args[0]), Password: password}, exitcode.Success
}

func runGoogleLogin(ctx context.Context, cfg *config.Config, st *store.Store, out, errOut io.Writer) int {
	if cfg.Backend != config.BackendGoogle {
		fmt.Fprintf(errOut, "error: --google requires backend = %q in %s\n", config.BackendGoogle, cfg.SettingsPath())
		return exitcode.AuthError
	}
	if !cfg.HasOAuthClient() {
		fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n\n", cfg.Dir)
		fmt.Fprintln(errOut, "To authenticate with Google Tasks, you need OAuth credentials:")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
		fmt.Fprintln(errOut, "2. Create a project (or select an existing one)")
		fmt.Fprintln(errOut, "3. Enable the Google Tasks API:")
		fmt.Fprintln(errOut, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
		fmt.Fprintln(errOut, "4. Create OAuth 2.0 credentials:")
		fmt.Fprintln(errOut, "   - Click 'Create Credentials' > 'OAuth client ID'")
		fmt.Fprintln(errOut, "   - Choose 'Desktop app' as application type")
		fmt.Fprintln(errOut, "   - Download the JSON file")
		fmt.Fprintln(errOut, "5. Save it as:")
		fmt.Fprintf(errOut, "   %s\n", cfg.OAuthClientPath())
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "Then run 'tasksync login --google' again.")
		return exitcode.AuthError
	}

	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to read oauth_client.json: %v\n", err)
		return exitcode.AuthError
	}

	sess, err := authorize(ctx, clientJSON, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	if _, err := st.Dispatch(ctx, store.AdoptSession{Session: sess}); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
