package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"taskdash/internal/service"
)

// Defaults for Options fields left zero.
const (
	DefaultPageSize    = 10
	DefaultDebounce    = 500 * time.Millisecond
	DefaultStaleTime   = 30 * time.Second
	DefaultReadRetries = 1
)

// Options configures a Coordinator.
type Options struct {
	PageSize      int
	Debounce      time.Duration
	StaleTime     time.Duration
	NotifyTimeout time.Duration

	// ReadRetries is how many times a failed list request is retried
	// automatically. Zero means DefaultReadRetries, negative means none.
	ReadRetries int
	RetryDelay  time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

func (o *Options) setDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.StaleTime <= 0 {
		o.StaleTime = DefaultStaleTime
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = DefaultNotifyTimeout
	}
	switch {
	case o.ReadRetries == 0:
		o.ReadRetries = DefaultReadRetries
	case o.ReadRetries < 0:
		o.ReadRetries = 0
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Draft is the unsent task creation form.
type Draft struct {
	Title       string
	Description string
}

// View is a snapshot of everything the presentation layer renders.
type View struct {
	Page       int
	TotalPages int
	Tasks      []service.Task

	// HasData is false until a page for the current key has been fetched.
	HasData bool
	Loading bool

	// Err is the read error for the current key, after automatic retries.
	Err error

	// Search is the raw input; Query is the debounced value in effect.
	Search        string
	Query         string
	SearchPending bool

	CanPrev bool
	CanNext bool

	Draft          Draft
	TitleLen       int
	DescriptionLen int
	FormErrors     map[string]string

	Notification *Notification
}

// Empty reports whether the current page was fetched and holds no tasks.
func (v View) Empty() bool {
	return v.HasData && len(v.Tasks) == 0
}

// PageLabel renders the page indicator, e.g. "Page 1 of 3".
func (v View) PageLabel() string {
	return fmt.Sprintf("Page %d of %d", v.Page, v.TotalPages)
}

// Coordinator is the task query/mutation coordinator of one dashboard view.
// It is safe for concurrent use; network calls are made without holding its lock.
type Coordinator struct {
	tasks    service.TaskGateway
	opts     Options
	log      *slog.Logger
	cache    *Cache
	search   *Debouncer
	notifier *Notifier

	mu         sync.Mutex
	page       int
	rawSearch  string
	debounced  string
	inflight   map[Key]int
	loadErrs   map[Key]error
	draft      Draft
	formErrors map[string]string

	lmu       sync.Mutex
	listeners []func(View)
}

// New creates a Coordinator on page 1 with an empty search.
func New(tasks service.TaskGateway, opts Options) *Coordinator {
	opts.setDefaults()
	c := &Coordinator{
		tasks:    tasks,
		opts:     opts,
		log:      opts.Logger,
		cache:    NewCache(opts.StaleTime, opts.Now),
		search:   NewDebouncer(opts.Debounce),
		page:     1,
		inflight: make(map[Key]int),
		loadErrs: make(map[Key]error),
	}
	c.notifier = NewNotifier(opts.NotifyTimeout, c.changed)
	return c
}

// OnChange registers a listener called with a fresh View after every state
// change. Listeners run outside the coordinator's lock, possibly on a timer
// goroutine.
func (c *Coordinator) OnChange(fn func(View)) {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Close stops pending timers. Pending debounced searches are dropped.
func (c *Coordinator) Close() {
	c.search.Stop()
	c.notifier.Stop()
}

// Key returns the cache key of the current view parameters.
func (c *Coordinator) Key() Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return KeyFor(c.page, c.debounced)
}

// Cache exposes the page cache (for inspection).
func (c *Coordinator) Cache() *Cache { return c.cache }

// Notifier exposes the notification slot.
func (c *Coordinator) Notifier() *Notifier { return c.notifier }

// View returns a snapshot of the current state.
func (c *Coordinator) View() View {
	c.mu.Lock()
	key := KeyFor(c.page, c.debounced)
	v := View{
		Page:           c.page,
		Search:         c.rawSearch,
		Query:          c.debounced,
		Loading:        c.inflight[key] > 0,
		Err:            c.loadErrs[key],
		Draft:          c.draft,
		TitleLen:       utf8.RuneCountInString(c.draft.Title),
		DescriptionLen: utf8.RuneCountInString(c.draft.Description),
	}
	if len(c.formErrors) > 0 {
		v.FormErrors = make(map[string]string, len(c.formErrors))
		for k, msg := range c.formErrors {
			v.FormErrors[k] = msg
		}
	}
	c.mu.Unlock()

	v.SearchPending = c.search.Pending()
	if page, _, ok := c.cache.Get(key); ok {
		v.HasData = true
		v.TotalPages = page.TotalPages
		v.Tasks = append([]service.Task(nil), page.Tasks...)
	}
	v.CanPrev = v.Page > 1
	v.CanNext = v.HasData && v.Page < v.TotalPages
	if note, ok := c.notifier.Current(); ok {
		v.Notification = &note
	}
	return v
}

// Load materializes the page for the current key: a fresh cached page is
// served without a network call, anything else is fetched.
func (c *Coordinator) Load(ctx context.Context) error {
	key := c.Key()
	if _, fresh, ok := c.cache.Get(key); ok && fresh {
		c.log.Debug("task page served from cache", "page", key.Page, "search", key.Search)
		return nil
	}
	return c.fetch(ctx, key)
}

// fetch lists the page for key, retrying automatically, and stores the result
// under key. The result only becomes visible while key is the current key.
func (c *Coordinator) fetch(ctx context.Context, key Key) error {
	epoch := c.cache.Epoch()

	c.mu.Lock()
	c.inflight[key]++
	c.mu.Unlock()
	c.changed()

	var page service.TaskPage
	var err error
	for attempt := 0; ; attempt++ {
		page, err = c.tasks.ListTasks(ctx, key.Page, c.opts.PageSize, key.Search)
		if err == nil || attempt >= c.opts.ReadRetries || service.IsUnauthorized(err) || ctx.Err() != nil {
			break
		}
		c.log.Debug("retrying task list", "page", key.Page, "search", key.Search, "error", err)
		if !sleep(ctx, c.opts.RetryDelay) {
			break
		}
	}

	c.mu.Lock()
	if c.inflight[key]--; c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
	if err != nil {
		c.loadErrs[key] = err
	} else {
		delete(c.loadErrs, key)
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Info("failed to load tasks", "page", key.Page, "search", key.Search, "error", err)
		c.changed()
		return err
	}

	if !c.cache.PutAt(key, page, epoch) {
		c.log.Debug("task page arrived after invalidation", "page", key.Page, "search", key.Search)
	}
	c.changed()
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Retry refetches after a read error. Like any refresh it invalidates every
// cached page first.
func (c *Coordinator) Retry(ctx context.Context) error {
	c.cache.InvalidateAll()
	return c.Load(ctx)
}

// SetSearch records a search keystroke. The page resets to 1 immediately;
// the query only changes once the input has been quiet for the debounce
// interval, and then the page for the new key is loaded.
func (c *Coordinator) SetSearch(ctx context.Context, text string) {
	c.mu.Lock()
	c.rawSearch = text
	c.page = 1
	c.mu.Unlock()

	c.search.Trigger(func() {
		c.applySearch(text)
		if err := c.Load(ctx); err != nil {
			c.log.Debug("debounced load failed", "error", err)
		}
	})
	c.changed()
}

// SettleSearch applies the pending search input now instead of waiting for
// the debounce interval, then loads the current page.
func (c *Coordinator) SettleSearch(ctx context.Context) error {
	c.search.Stop()
	c.mu.Lock()
	text := c.rawSearch
	c.mu.Unlock()
	c.applySearch(text)
	return c.Load(ctx)
}

func (c *Coordinator) applySearch(text string) {
	c.mu.Lock()
	c.debounced = text
	c.mu.Unlock()
	c.changed()
}

// GoToPage moves to page n and loads it. n is clamped to 1 and, once the
// page count for the current query is known, to the last page.
func (c *Coordinator) GoToPage(ctx context.Context, n int) error {
	c.mu.Lock()
	key := KeyFor(c.page, c.debounced)
	c.mu.Unlock()

	if page, _, ok := c.cache.Get(key); ok {
		n = min(n, max(1, page.TotalPages))
	}
	n = max(n, 1)

	c.mu.Lock()
	moved := c.page != n
	c.page = n
	c.mu.Unlock()
	if moved {
		c.changed()
	}
	return c.Load(ctx)
}

// NextPage moves forward one page. It is a no-op on the last known page.
func (c *Coordinator) NextPage(ctx context.Context) error {
	v := c.View()
	if !v.CanNext {
		return nil
	}
	return c.GoToPage(ctx, v.Page+1)
}

// PrevPage moves back one page. It is a no-op on page 1.
func (c *Coordinator) PrevPage(ctx context.Context) error {
	v := c.View()
	if !v.CanPrev {
		return nil
	}
	return c.GoToPage(ctx, v.Page-1)
}

func (c *Coordinator) changed() {
	c.lmu.Lock()
	listeners := make([]func(View), len(c.listeners))
	copy(listeners, c.listeners)
	c.lmu.Unlock()
	if len(listeners) == 0 {
		return
	}

	v := c.View()
	for _, fn := range listeners {
		fn(v)
	}
}
