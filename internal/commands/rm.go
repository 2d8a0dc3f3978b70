package commands

import (
	"context"
	"flag"
	"io"

	"taskdash/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	pageFlags
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "taskdash rm [--page <n>] [--search <text>] <ref>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	c.pageFlags.register(fs)
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	dash := newCoordinator(env)
	defer dash.Close()

	// A #id reference needs no page lookup
	var id string
	if ref, err := ParseTaskRef(args); err == nil && ref.ID != "" {
		id = ref.ID
	} else {
		task, code := c.resolve(ctx, env, dash, args, errOut)
		if code != exitcode.Success {
			return code
		}
		id = task.ID
	}

	if err := dash.DeleteTask(ctx, id); err != nil {
		return report(env, errOut, err)
	}

	env.logger().Debug("task deleted", "id", id)
	notifyDone(env, dash, out)
	return exitcode.Success
}
