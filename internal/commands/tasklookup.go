package commands

import (
	"context"
	"errors"
	"fmt"

	"taskdash/internal/dashboard"
	"taskdash/internal/service"
)

var (
	// ErrTaskNotFound is returned when a #id reference matches no task on the page.
	ErrTaskNotFound = errors.New("task not found")

	// ErrOutOfRange is returned when a position is past the end of the page.
	ErrOutOfRange = errors.New("task number out of range")
)

// newCoordinator creates a dashboard coordinator from the configured timings.
func newCoordinator(env *Env) *dashboard.Coordinator {
	d := env.Config.Dashboard
	retries := d.ReadRetries
	if retries == 0 {
		retries = -1
	}
	return dashboard.New(env.Tasks, dashboard.Options{
		PageSize:      env.Config.API.PageSize,
		Debounce:      d.Debounce,
		StaleTime:     d.StaleTime,
		NotifyTimeout: d.NotifyTimeout,
		ReadRetries:   retries,
		RetryDelay:    d.RetryDelay,
		Logger:        env.logger(),
	})
}

// selectPage applies search and moves to page, loading it. A page beyond the
// last one lands on the last page.
func selectPage(ctx context.Context, c *dashboard.Coordinator, page int, search string) error {
	if search != "" {
		c.SetSearch(ctx, search)
		if err := c.SettleSearch(ctx); err != nil {
			return err
		}
	}
	if err := c.GoToPage(ctx, page); err != nil {
		return err
	}
	if v := c.View(); v.HasData && v.Page > max(1, v.TotalPages) {
		return c.GoToPage(ctx, v.TotalPages)
	}
	return nil
}

// lookupTask resolves ref against the loaded page of c.
func lookupTask(c *dashboard.Coordinator, ref TaskRef) (service.Task, error) {
	v := c.View()
	if ref.ID != "" {
		for _, task := range v.Tasks {
			if task.ID == ref.ID {
				return task, nil
			}
		}
		return service.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, ref)
	}

	if ref.Num < 1 || ref.Num > len(v.Tasks) {
		return service.Task{}, fmt.Errorf("%w: %d", ErrOutOfRange, ref.Num)
	}
	return v.Tasks[ref.Num-1], nil
}
