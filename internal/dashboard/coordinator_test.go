package dashboard_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdash/internal/dashboard"
	"taskdash/internal/logger"
	"taskdash/internal/service"
	"taskdash/internal/testutil"
)

var errBoom = errors.New("boom")

func newCoordinator(t *testing.T, gw *testutil.FakeGateway, opts dashboard.Options) *dashboard.Coordinator {
	t.Helper()
	opts.Logger = logger.Discard()
	if opts.Debounce == 0 {
		opts.Debounce = 20 * time.Millisecond
	}
	c := dashboard.New(gw, opts)
	t.Cleanup(c.Close)
	return c
}

func titles(tasks []service.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

func TestLoad_FreshHitMakesNoSecondCall(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(3)
	c := newCoordinator(t, gw, dashboard.Options{})
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Load(ctx))

	assert.Equal(t, 1, gw.Calls("ListTasks"))
	v := c.View()
	assert.True(t, v.HasData)
	assert.Equal(t, []string{"Task 3", "Task 2", "Task 1"}, titles(v.Tasks))
	assert.Equal(t, "Page 1 of 1", v.PageLabel())
}

func TestLoad_RefetchesAfterStaleTime(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(3)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newCoordinator(t, gw, dashboard.Options{
		StaleTime: 30 * time.Second,
		Now:       func() time.Time { return now },
	})
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	now = now.Add(29 * time.Second)
	require.NoError(t, c.Load(ctx))
	assert.Equal(t, 1, gw.Calls("ListTasks"))

	now = now.Add(time.Second)
	require.NoError(t, c.Load(ctx))
	assert.Equal(t, 2, gw.Calls("ListTasks"))
}

func TestLoad_RetriesOnceThenSurfacesError(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(2)
	gw.ListErrs = []error{errBoom, errBoom}
	c := newCoordinator(t, gw, dashboard.Options{})
	ctx := context.Background()

	err := c.Load(ctx)

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, gw.Calls("ListTasks"))
	v := c.View()
	assert.ErrorIs(t, v.Err, errBoom)
	assert.False(t, v.HasData)
	assert.False(t, v.Loading)

	require.NoError(t, c.Retry(ctx))
	v = c.View()
	assert.NoError(t, v.Err)
	assert.True(t, v.HasData)
	assert.Equal(t, 3, gw.Calls("ListTasks"))
}

func TestLoad_SingleFailureIsRetriedTransparently(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(2)
	gw.ListErrs = []error{errBoom}
	c := newCoordinator(t, gw, dashboard.Options{})

	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, 2, gw.Calls("ListTasks"))
	assert.NoError(t, c.View().Err)
}

func TestLoad_NoRetryWhenDisabledOrUnauthorized(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.ListErrs = []error{errBoom}
	c := newCoordinator(t, gw, dashboard.Options{ReadRetries: -1})
	require.Error(t, c.Load(context.Background()))
	assert.Equal(t, 1, gw.Calls("ListTasks"))

	gw = testutil.NewFakeGateway()
	gw.ListErrs = []error{&service.GatewayError{Op: "list tasks", Status: 401}}
	c = newCoordinator(t, gw, dashboard.Options{})
	err := c.Load(context.Background())
	assert.True(t, service.IsUnauthorized(err))
	assert.Equal(t, 1, gw.Calls("ListTasks"))
}

func TestLoad_LoadingFlagWhileInFlight(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(1)
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.BeforeList = func(int, string) {
		close(entered)
		<-release
	}
	c := newCoordinator(t, gw, dashboard.Options{})

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()

	<-entered
	assert.True(t, c.View().Loading)
	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.View().Loading)
}

func TestSetSearch_ResetsPageBeforeFetch(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(25)
	var mu sync.Mutex
	var requested []dashboard.Key
	gw.BeforeList = func(page int, search string) {
		mu.Lock()
		defer mu.Unlock()
		requested = append(requested, dashboard.KeyFor(page, search))
	}
	c := newCoordinator(t, gw, dashboard.Options{})
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.GoToPage(ctx, 2))
	assert.Equal(t, 2, c.View().Page)

	c.SetSearch(ctx, "Task 2")

	v := c.View()
	assert.Equal(t, 1, v.Page, "page resets synchronously")
	assert.Equal(t, "Task 2", v.Search)
	assert.Equal(t, "", v.Query, "query waits for the debounce")
	assert.True(t, v.SearchPending)

	require.Eventually(t, func() bool {
		v := c.View()
		return v.Query == "Task 2" && v.HasData && !v.Loading
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, dashboard.KeyFor(1, "Task 2"), requested[len(requested)-1])
	mu.Unlock()

	// Task 2 and Task 20..25 fit on a single page.
	v = c.View()
	assert.Equal(t, "Page 1 of 1", v.PageLabel())
	assert.False(t, v.CanNext)
	assert.False(t, v.CanPrev)
	assert.Len(t, v.Tasks, 7)
}

func TestSetSearch_DebounceCoalescesKeystrokes(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTask("Buy milk", "")
	gw.AddTask("Walk dog", "")
	var mu sync.Mutex
	var searches []string
	gw.BeforeList = func(_ int, search string) {
		mu.Lock()
		defer mu.Unlock()
		searches = append(searches, search)
	}
	c := newCoordinator(t, gw, dashboard.Options{Debounce: 50 * time.Millisecond})
	ctx := context.Background()

	for _, s := range []string{"m", "mi", "mil", "milk"} {
		c.SetSearch(ctx, s)
	}

	require.Eventually(t, func() bool {
		v := c.View()
		return v.Query == "milk" && v.HasData && !v.Loading
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"milk"}, searches)
	mu.Unlock()
	assert.Equal(t, []string{"Buy milk"}, titles(c.View().Tasks))
}

func TestSettleSearch_AppliesImmediately(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTask("Buy milk", "")
	gw.AddTask("Walk dog", "")
	c := newCoordinator(t, gw, dashboard.Options{Debounce: time.Hour})
	ctx := context.Background()

	c.SetSearch(ctx, "DOG")
	require.NoError(t, c.SettleSearch(ctx))

	v := c.View()
	assert.False(t, v.SearchPending)
	assert.Equal(t, "DOG", v.Query)
	assert.Equal(t, []string{"Walk dog"}, titles(v.Tasks))
	assert.Equal(t, 1, gw.Calls("ListTasks"))
}

func TestStaleResponseDoesNotReplaceCurrentKey(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTask("slow task", "")
	gw.AddTask("fast task", "")
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.BeforeList = func(_ int, search string) {
		if search == "slow" {
			close(entered)
			<-release
		}
	}
	c := newCoordinator(t, gw, dashboard.Options{Debounce: time.Hour})
	ctx := context.Background()

	c.SetSearch(ctx, "slow")
	done := make(chan error, 1)
	go func() { done <- c.SettleSearch(ctx) }()
	<-entered

	c.SetSearch(ctx, "fast")
	require.NoError(t, c.SettleSearch(ctx))
	assert.Equal(t, []string{"fast task"}, titles(c.View().Tasks))

	close(release)
	require.NoError(t, <-done)

	v := c.View()
	assert.Equal(t, "fast", v.Query)
	assert.Equal(t, []string{"fast task"}, titles(v.Tasks))

	page, _, ok := c.Cache().Get(dashboard.KeyFor(1, "slow"))
	require.True(t, ok, "late response is kept under its own key")
	assert.Equal(t, []string{"slow task"}, titles(page.Tasks))
}

func TestPagination_Guards(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(25)
	c := newCoordinator(t, gw, dashboard.Options{})
	ctx := context.Background()

	require.NoError(t, c.NextPage(ctx), "next before any data is a no-op")
	require.NoError(t, c.PrevPage(ctx))
	assert.Equal(t, 1, c.View().Page)
	assert.Equal(t, 0, gw.Calls("ListTasks"))

	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.GoToPage(ctx, 99))
	v := c.View()
	assert.Equal(t, 3, v.Page)
	assert.False(t, v.CanNext)
	assert.True(t, v.CanPrev)
	assert.Equal(t, []string{"Task 5", "Task 4", "Task 3", "Task 2", "Task 1"}, titles(v.Tasks))

	require.NoError(t, c.NextPage(ctx))
	assert.Equal(t, 3, c.View().Page)

	require.NoError(t, c.PrevPage(ctx))
	assert.Equal(t, 2, c.View().Page)

	require.NoError(t, c.GoToPage(ctx, -4))
	assert.Equal(t, 1, c.View().Page)
}

func TestMutations_InvalidateEveryPage(t *testing.T) {
	ops := map[string]func(ctx context.Context, c *dashboard.Coordinator) error{
		"create": func(ctx context.Context, c *dashboard.Coordinator) error {
			_, err := c.CreateTask(ctx, "New task", "")
			return err
		},
		"toggle": func(ctx context.Context, c *dashboard.Coordinator) error {
			_, err := c.ToggleTask(ctx, c.View().Tasks[0])
			return err
		},
		"update": func(ctx context.Context, c *dashboard.Coordinator) error {
			title := "Renamed"
			_, err := c.UpdateTask(ctx, c.View().Tasks[0].ID, service.TaskPatch{Title: &title})
			return err
		},
		"delete": func(ctx context.Context, c *dashboard.Coordinator) error {
			return c.DeleteTask(ctx, c.View().Tasks[0].ID)
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			gw := testutil.NewFakeGateway()
			gw.AddTasks(15)
			c := newCoordinator(t, gw, dashboard.Options{})
			ctx := context.Background()

			require.NoError(t, c.GoToPage(ctx, 2))
			require.NoError(t, c.GoToPage(ctx, 1))
			assert.Equal(t, 2, gw.Calls("ListTasks"))

			require.NoError(t, op(ctx, c))
			assert.Equal(t, 3, gw.Calls("ListTasks"), "current page reloads")

			_, fresh, ok := c.Cache().Get(dashboard.KeyFor(2, ""))
			assert.True(t, ok)
			assert.False(t, fresh)

			require.NoError(t, c.GoToPage(ctx, 2))
			assert.Equal(t, 4, gw.Calls("ListTasks"), "other pages refetch")

			note := c.View().Notification
			require.NotNil(t, note)
			assert.Equal(t, dashboard.KindSuccess, note.Kind)
		})
	}
}

func TestMutations_FailureLeavesCacheAndNotifies(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(3)
	gw.CreateErr = errBoom
	gw.UpdateErr = errBoom
	gw.DeleteErr = errBoom
	c := newCoordinator(t, gw, dashboard.Options{})
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	task := c.View().Tasks[0]

	cases := []struct {
		run func() error
		msg string
	}{
		{func() error { _, err := c.CreateTask(ctx, "x", ""); return err }, dashboard.MsgCreateFailed},
		{func() error { _, err := c.ToggleTask(ctx, task); return err }, dashboard.MsgUpdateFailed},
		{func() error { return c.DeleteTask(ctx, task.ID) }, dashboard.MsgDeleteFailed},
	}
	for _, tc := range cases {
		err := tc.run()
		require.ErrorIs(t, err, errBoom)

		note := c.View().Notification
		require.NotNil(t, note)
		assert.Equal(t, dashboard.KindError, note.Kind)
		assert.Equal(t, tc.msg, note.Message)

		_, fresh, ok := c.Cache().Get(c.Key())
		assert.True(t, ok)
		assert.True(t, fresh, "cache untouched after a failed mutation")
	}
	assert.Equal(t, 1, gw.Calls("ListTasks"))
	assert.Equal(t, 1, gw.Calls("CreateTask"), "writes are never retried")
	assert.Equal(t, 1, gw.Calls("UpdateTask"))
	assert.Equal(t, 1, gw.Calls("DeleteTask"))
	assert.Equal(t, "x", c.Draft().Title, "draft kept for resubmission")
}

func TestCreate_ValidationGate(t *testing.T) {
	cases := []struct {
		name        string
		title       string
		description string
		field       string
		message     string
	}{
		{"title 100 chars", strings.Repeat("a", 100), "", "", ""},
		{"title 100 multibyte chars", strings.Repeat("é", 100), "", "", ""},
		{"title 101 chars", strings.Repeat("a", 101), "", "title", "Title must be at most 100 characters"},
		{"empty title", "", "", "title", "Title is required"},
		{"description 500 chars", "ok", strings.Repeat("d", 500), "", ""},
		{"description 501 chars", "ok", strings.Repeat("d", 501), "description", "Description must be at most 500 characters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := testutil.NewFakeGateway()
			c := newCoordinator(t, gw, dashboard.Options{})

			_, err := c.CreateTask(context.Background(), tc.title, tc.description)

			if tc.field == "" {
				require.NoError(t, err)
				assert.Equal(t, 1, gw.Calls("CreateTask"))
				return
			}
			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.message, verr.Fields[tc.field])
			assert.Equal(t, 0, gw.TotalCalls(), "nothing is sent")
			assert.Equal(t, tc.message, c.View().FormErrors[tc.field])
			assert.Nil(t, c.View().Notification)
		})
	}
}

func TestCreate_ResetsDraftAndCounters(t *testing.T) {
	gw := testutil.NewFakeGateway()
	c := newCoordinator(t, gw, dashboard.Options{})
	ctx := context.Background()

	c.SetDraft("Café", "hello")
	v := c.View()
	assert.Equal(t, 4, v.TitleLen)
	assert.Equal(t, 5, v.DescriptionLen)

	task, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Café", task.Title)

	v = c.View()
	assert.Equal(t, dashboard.Draft{}, v.Draft)
	assert.Zero(t, v.TitleLen)
	assert.Zero(t, v.DescriptionLen)
	require.NotNil(t, v.Notification)
	assert.Equal(t, dashboard.MsgCreated, v.Notification.Message)
	assert.Equal(t, []string{"Café"}, titles(v.Tasks))
}

func TestDeleteLastTaskOnPageShowsEmptyState(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(11)
	c := newCoordinator(t, gw, dashboard.Options{})
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.NextPage(ctx))
	v := c.View()
	require.Equal(t, 2, v.Page)
	require.Len(t, v.Tasks, 1)

	require.NoError(t, c.DeleteTask(ctx, v.Tasks[0].ID))

	v = c.View()
	assert.Equal(t, 2, v.Page)
	assert.True(t, v.Empty())
	assert.Equal(t, 1, v.TotalPages)
	assert.False(t, v.CanNext)
	assert.True(t, v.CanPrev)
	assert.Equal(t, dashboard.MsgDeleted, v.Notification.Message)
}

func TestToggleTask_FlipsCompletion(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTask("Buy milk", "")
	c := newCoordinator(t, gw, dashboard.Options{})
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	updated, err := c.ToggleTask(ctx, c.View().Tasks[0])
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.True(t, c.View().Tasks[0].Completed)

	updated, err = c.ToggleTask(ctx, c.View().Tasks[0])
	require.NoError(t, err)
	assert.False(t, updated.Completed)
}

func TestNotification_ReplacedAndAutoDismissed(t *testing.T) {
	gw := testutil.NewFakeGateway()
	c := newCoordinator(t, gw, dashboard.Options{NotifyTimeout: 30 * time.Millisecond})
	ctx := context.Background()

	_, err := c.CreateTask(ctx, "first", "")
	require.NoError(t, err)
	gw.DeleteErr = errBoom
	require.Error(t, c.DeleteTask(ctx, "t1"))

	note := c.View().Notification
	require.NotNil(t, note)
	assert.Equal(t, dashboard.MsgDeleteFailed, note.Message)

	assert.Eventually(t, func() bool {
		return c.View().Notification == nil
	}, time.Second, 5*time.Millisecond)
}

func TestOnChange_ReceivesSnapshots(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.AddTasks(2)
	c := newCoordinator(t, gw, dashboard.Options{})

	var mu sync.Mutex
	var views []dashboard.View
	c.OnChange(func(v dashboard.View) {
		mu.Lock()
		defer mu.Unlock()
		views = append(views, v)
	})

	require.NoError(t, c.Load(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(views), 2)
	assert.True(t, views[0].Loading)
	last := views[len(views)-1]
	assert.False(t, last.Loading)
	assert.Len(t, last.Tasks, 2)
}

// heldGateway lets its first ListTasks read the data and then waits for
// release before answering, like a slow response in flight.
type heldGateway struct {
	*testutil.FakeGateway
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (g *heldGateway) ListTasks(ctx context.Context, page, limit int, search string) (service.TaskPage, error) {
	res, err := g.FakeGateway.ListTasks(ctx, page, limit, search)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.read)
		<-g.release
	}
	return res, err
}

func TestDelete_LateReadDoesNotResurrectTask(t *testing.T) {
	gw := &heldGateway{
		FakeGateway: testutil.NewFakeGateway(),
		read:        make(chan struct{}),
		release:     make(chan struct{}),
	}
	gw.AddTasks(3)
	victim := gw.Tasks()[0]
	c := dashboard.New(gw, dashboard.Options{Logger: logger.Discard()})
	t.Cleanup(c.Close)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.Load(ctx) }()
	<-gw.read

	require.NoError(t, c.DeleteTask(ctx, victim.ID))
	assert.Equal(t, []string{"Task 2", "Task 1"}, titles(c.View().Tasks))

	close(gw.release)
	require.NoError(t, <-done)

	v := c.View()
	assert.Equal(t, []string{"Task 2", "Task 1"}, titles(v.Tasks))
	_, fresh, ok := c.Cache().Get(c.Key())
	require.True(t, ok)
	assert.True(t, fresh, "the page reloaded after the delete stays current")
}
