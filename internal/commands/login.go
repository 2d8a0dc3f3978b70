package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskdash/internal/exitcode"
)

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in" }
func (c *LoginCmd) Usage() string     { return "taskdash login --email <email> [--password <password>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	password, err := passwordOrPrompt(env, c.password, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := env.Session.Login(ctx, strings.TrimSpace(c.email), password); err != nil {
		return reportAuth(env, errOut, "login", err)
	}
	return welcome(env, out)
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	name     string
	email    string
	password string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string {
	return "taskdash register --name <name> --email <email> [--password <password>]"
}
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	password, err := passwordOrPrompt(env, c.password, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	err = env.Session.Register(ctx, strings.TrimSpace(c.name), strings.TrimSpace(c.email), password)
	if err != nil {
		return reportAuth(env, errOut, "register", err)
	}
	return welcome(env, out)
}

// reportAuth reports a login or registration failure. The cause is only
// logged; users see the same message whatever went wrong.
func reportAuth(env *Env, errOut io.Writer, op string, err error) int {
	env.logger().Debug(op+" failed", "error", errors.Unwrap(err))
	return report(env, errOut, err)
}

func welcome(env *Env, out io.Writer) int {
	if env.Config.Quiet {
		return exitcode.Success
	}
	if user, ok := env.Session.User(); ok {
		fmt.Fprintf(out, "Welcome, %s\n", user.Name)
	}
	return exitcode.Success
}

// passwordOrPrompt returns flagValue, or reads one line from the input.
func passwordOrPrompt(env *Env, flagValue string, errOut io.Writer) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env.In == nil {
		return "", errors.New("password required")
	}

	fmt.Fprint(errOut, "Password: ")
	line, err := bufio.NewReader(env.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(errOut)
	return strings.TrimRight(line, "\r\n"), nil
}
