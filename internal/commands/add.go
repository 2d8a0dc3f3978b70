package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"taskdash/internal/exitcode"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string     { return "taskdash add [--description <text>] <title...>" }
func (c *AddCmd) NeedsAuth() bool   { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	// Join args to form title; validation reports an empty one
	title := strings.TrimSpace(strings.Join(args, " "))

	dash := newCoordinator(env)
	defer dash.Close()

	task, err := dash.CreateTask(ctx, title, c.description)
	if err != nil {
		return report(env, errOut, err)
	}

	env.logger().Debug("task created", "id", task.ID)
	notifyDone(env, dash, out)
	return exitcode.Success
}
