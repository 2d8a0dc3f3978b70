package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskdash/internal/dashboard"
	"taskdash/internal/exitcode"
	"taskdash/internal/output"
	"taskdash/internal/service"
)

func init() {
	Register(&ToggleCmd{})
}

// pageFlags selects the page a task reference is resolved against.
type pageFlags struct {
	page   int
	search string
}

func (p *pageFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&p.page, "page", 1, "")
	fs.StringVar(&p.search, "search", "", "")
	fs.StringVar(&p.search, "s", "", "")
}

// resolve parses the task reference in args and loads the page it points
// into. On failure it has already printed the error and returns the exit code.
func (p *pageFlags) resolve(ctx context.Context, env *Env, dash *dashboard.Coordinator, args []string, errOut io.Writer) (service.Task, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	if p.page < 1 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", p.page)
		return service.Task{}, exitcode.UserError
	}

	if err := selectPage(ctx, dash, p.page, p.search); err != nil {
		return service.Task{}, report(env, errOut, err)
	}
	task, err := lookupTask(dash, ref)
	if err != nil {
		return service.Task{}, report(env, errOut, err)
	}
	return task, exitcode.Success
}

// ToggleCmd implements the toggle command.
type ToggleCmd struct {
	pageFlags
}

func (c *ToggleCmd) Name() string      { return "toggle" }
func (c *ToggleCmd) Aliases() []string { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string  { return "Flip a task between open and completed" }
func (c *ToggleCmd) Usage() string {
	return "taskdash toggle [--page <n>] [--search <text>] <ref>"
}
func (c *ToggleCmd) NeedsAuth() bool { return true }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {
	c.pageFlags.register(fs)
}

func (c *ToggleCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	dash := newCoordinator(env)
	defer dash.Close()

	task, code := c.resolve(ctx, env, dash, args, errOut)
	if code != exitcode.Success {
		return code
	}

	updated, err := dash.ToggleTask(ctx, task)
	if err != nil {
		return report(env, errOut, err)
	}

	env.logger().Debug("task toggled", "id", updated.ID, "completed", updated.Completed)
	notifyDone(env, dash, out)
	return exitcode.Success
}

// notifyDone prints the outcome notification of a successful mutation.
func notifyDone(env *Env, dash *dashboard.Coordinator, out io.Writer) {
	if env.Config.Quiet {
		return
	}
	if note := dash.View().Notification; note != nil {
		output.FormatNotification(out, *note)
		return
	}
	fmt.Fprintln(out, "ok")
}
