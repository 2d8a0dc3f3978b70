package commands_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdash/internal/commands"
	"taskdash/internal/exitcode"
	"taskdash/internal/testutil"
)

// runDash feeds lines to an interactive dashboard.
func runDash(t *testing.T, gw *testutil.FakeGateway, lines ...string) (stdout, stderr string, code int, env *commands.Env) {
	t.Helper()
	env = newEnv(t, gw, true)
	env.In = strings.NewReader(strings.Join(lines, "\n") + "\n")
	stdout, stderr, code = runCommand(t, env, &commands.DashCmd{})
	return stdout, stderr, code, env
}

func TestDashCommand_AddAndToggle(t *testing.T) {
	gw := testutil.NewFakeGateway()

	stdout, stderr, code, _ := runDash(t, gw,
		"add Buy milk | 2 litres",
		"toggle 1",
		"quit",
	)

	require.Equal(t, exitcode.Success, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "Welcome, Ada\nNo tasks\nGet started by creating a new task.\n"), stdout)
	assert.Contains(t, stdout, "Title 8/100  Description 8/500\n")
	assert.Contains(t, stdout, "   1  [ ] Buy milk\n          2 litres\nPage 1 of 1\n[success] Task created successfully!\n")
	assert.Contains(t, stdout, "   1  [x] Buy milk\n")
	assert.Contains(t, stdout, "[success] Task updated successfully!\n")

	tasks := gw.Tasks()
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)
}

func TestDashCommand_ValidationKeepsDraft(t *testing.T) {
	gw := testutil.NewFakeGateway()

	stdout, _, code, _ := runDash(t, gw, "add "+strings.Repeat("x", 101), "q")

	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "Title 101/100  Description 0/500\n")
	assert.Contains(t, stdout, "error: Title must be at most 100 characters\n")
	assert.Zero(t, gw.Calls("CreateTask"))
}

func TestDashCommand_Paging(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(12)

	stdout, _, code, _ := runDash(t, gw, "next", "next", "prev", "page 7", "quit")

	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, 3, strings.Count(stdout, "Page 2 of 2\n"), "next on the last page stays, page 7 clamps")
	assert.Equal(t, 2, strings.Count(stdout, "Page 1 of 2\n"))
	assert.Equal(t, 2, gw.Calls("ListTasks"), "each page is fetched once while fresh")
}

func TestDashCommand_LoadErrorThenRetry(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(2)
	boom := assert.AnError
	gw.ListErrs = []error{boom, boom}

	stdout, _, code, _ := runDash(t, gw, "retry", "quit")

	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "Error loading dashboard: "+boom.Error()+"\nType retry to try again.\n")
	assert.Contains(t, stdout, "   1  [ ] Task 2\n")
	assert.Equal(t, 3, gw.Calls("ListTasks"))
}

func TestDashCommand_RemoveByID(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(2)
	target := gw.Tasks()[1]

	stdout, _, code, _ := runDash(t, gw, "rm #"+target.ID, "rm #nope", "quit")

	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "[success] Task deleted successfully!\n")
	assert.Contains(t, stdout, "error: task not found: #nope\n")
	require.Len(t, gw.Tasks(), 1)
	assert.Equal(t, "Task 2", gw.Tasks()[0].Title)
}

func TestDashCommand_FailedMutationShowsError(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(1)
	gw.DeleteErr = assert.AnError

	stdout, _, code, _ := runDash(t, gw, "rm 1", "quit")

	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "[error] Failed to delete task\n")
	assert.Len(t, gw.Tasks(), 1)
}

func TestDashCommand_Logout(t *testing.T) {
	stdout, _, code, env := runDash(t, testutil.NewFakeGateway(), "logout", "add never sent")

	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "Logged out.\n")
	assert.NotContains(t, stdout, "Title ")
	assert.False(t, env.Session.IsAuthenticated())
}

func TestDashCommand_UnknownInput(t *testing.T) {
	stdout, _, code, _ := runDash(t, testutil.NewFakeGateway(), "frobnicate", "help")

	assert.Equal(t, exitcode.Success, code, "end of input leaves the dashboard")
	assert.Contains(t, stdout, "unknown command: frobnicate (type help)\n")
	assert.Contains(t, stdout, "search <text>")
}

func TestDashCommand_NoInput(t *testing.T) {
	env := newEnv(t, testutil.NewFakeGateway(), true)

	_, stderr, code := runCommand(t, env, &commands.DashCmd{})

	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: no input for the dashboard\n", stderr)
}
