package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"taskdash/internal/dashboard"
	"taskdash/internal/exitcode"
	"taskdash/internal/output"
	"taskdash/internal/service"
	"taskdash/internal/validate"
)

func init() {
	Register(&DashCmd{})
}

// DashCmd implements the interactive dashboard.
type DashCmd struct{}

func (c *DashCmd) Name() string      { return "dash" }
func (c *DashCmd) Aliases() []string { return []string{"dashboard"} }
func (c *DashCmd) Synopsis() string  { return "Interactive task dashboard" }
func (c *DashCmd) Usage() string     { return "taskdash dash [common flags]" }
func (c *DashCmd) NeedsAuth() bool   { return true }

func (c *DashCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DashCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if env.In == nil {
		fmt.Fprintln(errOut, "error: no input for the dashboard")
		return exitcode.UserError
	}

	s := &dashSession{env: env, dash: newCoordinator(env), out: out, errOut: errOut}
	defer s.dash.Close()
	return s.run(ctx)
}

// dashSession is one interactive dashboard. Lines typed by the user are
// intents; the screen is redrawn after each one and whenever a debounced
// search lands.
type dashSession struct {
	env    *Env
	dash   *dashboard.Coordinator
	out    io.Writer
	errOut io.Writer

	mu         sync.Mutex // guards out and shownQuery
	shownQuery string
}

func (s *dashSession) run(ctx context.Context) int {
	s.dash.OnChange(s.searchLanded)

	if user, ok := s.env.Session.User(); ok {
		s.printf("Welcome, %s\n", user.Name)
	}
	if err := s.dash.Load(ctx); err != nil && service.IsUnauthorized(err) {
		return report(s.env, s.errOut, err)
	}
	s.render()

	scanner := bufio.NewScanner(s.env.In)
	for {
		s.printf("> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		code, done := s.handle(ctx, scanner.Text())
		if done {
			return code
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(s.errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}

// handle runs one input line. done reports whether the session ends.
func (s *dashSession) handle(ctx context.Context, line string) (code int, done bool) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch strings.ToLower(name) {
	case "":
		return 0, false
	case "quit", "exit", "q":
		return exitcode.Success, true
	case "help", "?":
		s.printf("%s", dashHelp)
		return 0, false
	case "search", "/":
		s.dash.SetSearch(ctx, rest)
		s.printf("Searching for %q...\n", rest)
		return 0, false
	case "clear":
		s.dash.SetSearch(ctx, "")
		return 0, false
	case "next", "n":
		err = s.dash.NextPage(ctx)
	case "prev", "p":
		err = s.dash.PrevPage(ctx)
	case "page":
		n, perr := strconv.Atoi(rest)
		if perr != nil {
			s.printf("error: invalid page number: %s\n", rest)
			return 0, false
		}
		err = s.dash.GoToPage(ctx, n)
	case "add":
		title, desc, _ := strings.Cut(rest, "|")
		s.dash.SetDraft(strings.TrimSpace(title), strings.TrimSpace(desc))
		s.printCounters()
		_, err = s.dash.Submit(ctx)
	case "toggle", "done":
		task, ok := s.lookup(rest)
		if !ok {
			return 0, false
		}
		_, err = s.dash.ToggleTask(ctx, task)
	case "rm", "delete":
		task, ok := s.lookup(rest)
		if !ok {
			return 0, false
		}
		err = s.dash.DeleteTask(ctx, task.ID)
	case "retry", "refresh", "r":
		err = s.dash.Retry(ctx)
	case "dismiss":
		s.dash.Notifier().Dismiss()
	case "logout":
		if lerr := s.env.Session.Logout(); lerr != nil {
			fmt.Fprintf(s.errOut, "error: failed to remove session: %v\n", lerr)
			return exitcode.AuthError, true
		}
		s.printf("Logged out.\n")
		return exitcode.Success, true
	default:
		s.printf("unknown command: %s (type help)\n", name)
		return 0, false
	}

	if service.IsUnauthorized(err) {
		return report(s.env, s.errOut, err), true
	}
	// Read errors and failed mutations show up in the view itself
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		s.mu.Lock()
		printFieldErrors(s.out, verr)
		s.mu.Unlock()
	}
	s.render()
	return 0, false
}

// lookup resolves a task reference against the page on screen.
func (s *dashSession) lookup(arg string) (service.Task, bool) {
	ref, err := ParseTaskRef(strings.Fields(arg))
	if err == nil {
		var task service.Task
		if task, err = lookupTask(s.dash, ref); err == nil {
			return task, true
		}
	}
	s.printf("error: %v\n", err)
	return service.Task{}, false
}

func (s *dashSession) printCounters() {
	v := s.dash.View()
	s.printf("Title %d/%d  Description %d/%d\n",
		v.TitleLen, validate.MaxTitleLen, v.DescriptionLen, validate.MaxDescriptionLen)
}

// searchLanded redraws once the results of a new debounced query arrive.
func (s *dashSession) searchLanded(v dashboard.View) {
	s.mu.Lock()
	landed := v.Query != s.shownQuery && (v.HasData || v.Err != nil) && !v.Loading
	s.mu.Unlock()
	if landed {
		s.renderView(v)
	}
}

func (s *dashSession) render() {
	s.renderView(s.dash.View())
}

func (s *dashSession) renderView(v dashboard.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shownQuery = v.Query

	output.FormatView(s.out, v)
	if v.Err != nil && v.HasData {
		fmt.Fprintln(s.out, "Showing cached results. Type retry to reload.")
	} else if v.Err != nil {
		fmt.Fprintln(s.out, "Type retry to try again.")
	}
	if v.Notification != nil {
		output.FormatNotification(s.out, *v.Notification)
	}
}

func (s *dashSession) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

const dashHelp = `Commands:
  search <text>             Filter tasks (applied after you stop typing)
  clear                     Clear the search
  next, prev, page <n>      Move between pages
  add <title> [| <desc>]    Create a task
  toggle <ref>              Flip a task between open and completed
  rm <ref>                  Delete a task
  retry, refresh            Reload every page
  dismiss                   Hide the notification
  logout                    Sign out and leave
  quit                      Leave
A <ref> is a position on the page (1, 2, ...) or #<id>.
`
