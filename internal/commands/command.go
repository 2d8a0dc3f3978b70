// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"taskdash/internal/config"
	"taskdash/internal/exitcode"
	"taskdash/internal/service"
	"taskdash/internal/session"
)

// NotLoggedInHint is printed when a command needs a session and has none.
const NotLoggedInHint = "error: not logged in (run: taskdash login)"

// Env carries everything a command runs against.
type Env struct {
	// Config is always provided (config dir, settings).
	Config *config.Config

	// Session is the bootstrapped session store.
	Session *session.Store

	// Tasks is nil if NeedsAuth() returns false.
	Tasks service.TaskGateway

	Log *slog.Logger

	// In supplies passwords and interactive dashboard input.
	In io.Reader
}

func (e *Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

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

	// NeedsAuth returns true if the command requires an active session.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// report prints err and maps it to an exit code. A 401 from the API ends
// the local session, since its token can never be used again.
func report(env *Env, errOut io.Writer, err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		printFieldErrors(errOut, verr)
		return exitcode.UserError
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrOutOfRange):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, service.ErrAuthFailed):
		fmt.Fprintf(errOut, "error: %v\n", service.ErrAuthFailed)
		return exitcode.AuthError
	case service.IsUnauthorized(err):
		if env != nil && env.Session != nil && !errors.Is(err, service.ErrNotAuthenticated) {
			if lerr := env.Session.Logout(); lerr != nil {
				env.logger().Warn("failed to clear rejected session", "error", lerr)
			}
		}
		fmt.Fprintln(errOut, NotLoggedInHint)
		return exitcode.AuthError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// printFieldErrors prints one line per invalid field, in field order.
func printFieldErrors(w io.Writer, verr *service.ValidationError) {
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "error: %s\n", verr.Fields[name])
	}
}
