package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"

	"taskdash/internal/commands"
	"taskdash/internal/config"
	"taskdash/internal/exitcode"
	"taskdash/internal/logger"
	"taskdash/internal/service"
	"taskdash/internal/session"
)

// SessionDir is the directory inside the config dir holding the session jar.
const SessionDir = "session"

// Backend builds the gateways for a loaded configuration.
// Used to inject the backend during dispatch.
type Backend interface {
	// Auth returns the unauthenticated login/registration gateway.
	Auth(cfg *config.Config, log *slog.Logger) (service.Authenticator, error)

	// Tasks returns the task gateway. tokens supplies the bearer token of
	// every request.
	Tasks(cfg *config.Config, log *slog.Logger, tokens oauth2.TokenSource) (service.TaskGateway, error)
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	backend  Backend

	// In is handed to commands that read input (password prompt, dash).
	In io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and backend.
func NewDispatcher(registry *commands.Registry, backend Backend) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		backend:  backend,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(errOut, flagError(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") && positionalArgs[0] != "-" {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	log := logger.Setup(errOut, cfg.Log.Level, cfg.Debug)

	env, code := d.environment(cfg, log, cmd.NeedsAuth(), errOut)
	if code != exitcode.Success {
		return code
	}

	log.Debug("running command", "command", cmd.Name(), "config", cfg.Dir, "api", cfg.API.URL)
	return cmd.Run(ctx, env, positionalArgs, out, errOut)
}

// environment bootstraps the session and, for commands that need one,
// checks it is active and builds the task gateway on top of it.
func (d *Dispatcher) environment(cfg *config.Config, log *slog.Logger, needsAuth bool, errOut io.Writer) (*commands.Env, int) {
	auth, err := d.backend.Auth(cfg, log)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return nil, exitcode.BackendError
	}

	jar := session.NewFileJar(filepath.Join(cfg.Dir, SessionDir))
	store := session.New(jar, auth, session.WithTTL(cfg.Session.TTL), session.WithLogger(log))
	store.OnNavigate(func(ev session.Event) {
		log.Debug("session changed", "event", ev.Kind, "to", ev.To)
	})
	if err := store.Bootstrap(); err != nil {
		fmt.Fprintf(errOut, "error: failed to restore session: %v\n", err)
		return nil, exitcode.AuthError
	}

	env := &commands.Env{Config: cfg, Session: store, Log: log, In: d.In}
	if !needsAuth {
		return env, exitcode.Success
	}

	if !store.IsAuthenticated() {
		fmt.Fprintln(errOut, commands.NotLoggedInHint)
		return nil, exitcode.AuthError
	}
	env.Tasks, err = d.backend.Tasks(cfg, log, store)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return nil, exitcode.BackendError
	}
	return env, exitcode.Success
}

// flagError turns a flag package parse error into a user-facing line.
func flagError(err error) string {
	errStr := err.Error()

	// Check for missing flag value
	if strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		if len(parts) > 1 {
			return fmt.Sprintf("error: flag needs an argument: %s", strings.TrimSpace(parts[1]))
		}
	}

	// Check for unknown flag
	if name, ok := strings.CutPrefix(errStr, "flag provided but not defined: "); ok {
		return fmt.Sprintf("error: unknown flag: %s", name)
	}

	return fmt.Sprintf("error: %s", errStr)
}
