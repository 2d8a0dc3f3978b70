package dashboard

import (
	"context"
	"errors"
	"fmt"

	"taskdash/internal/service"
	"taskdash/internal/validate"
)

// Outcome messages.
const (
	MsgCreated      = "Task created successfully!"
	MsgCreateFailed = "Failed to create task"
	MsgUpdated      = "Task updated successfully!"
	MsgUpdateFailed = "Failed to update task"
	MsgDeleted      = "Task deleted successfully!"
	MsgDeleteFailed = "Failed to delete task"
)

// SetDraft replaces the create form contents. Field errors from a previous
// submit are cleared.
func (c *Coordinator) SetDraft(title, description string) {
	c.mu.Lock()
	c.draft = Draft{Title: title, Description: description}
	c.formErrors = nil
	c.mu.Unlock()
	c.changed()
}

// Draft returns the create form contents.
func (c *Coordinator) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Submit creates a task from the draft. Invalid input is rejected with a
// *service.ValidationError before any request is made.
func (c *Coordinator) Submit(ctx context.Context) (service.Task, error) {
	draft := c.Draft()

	err := validate.Task(validate.TaskForm{Title: draft.Title, Description: draft.Description})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.mu.Lock()
			c.formErrors = verr.Fields
			c.mu.Unlock()
			c.changed()
		}
		return service.Task{}, err
	}

	task, err := c.tasks.CreateTask(ctx, draft.Title, draft.Description)
	if err != nil {
		return service.Task{}, c.mutationFailed("create", MsgCreateFailed, err)
	}

	c.mu.Lock()
	c.draft = Draft{}
	c.formErrors = nil
	c.mu.Unlock()

	c.mutationSucceeded(ctx, MsgCreated)
	return task, nil
}

// CreateTask fills the draft and submits it.
func (c *Coordinator) CreateTask(ctx context.Context, title, description string) (service.Task, error) {
	c.SetDraft(title, description)
	return c.Submit(ctx)
}

// UpdateTask applies patch to the task with the given id.
func (c *Coordinator) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	task, err := c.tasks.UpdateTask(ctx, id, patch)
	if err != nil {
		return service.Task{}, c.mutationFailed("update", MsgUpdateFailed, err)
	}
	c.mutationSucceeded(ctx, MsgUpdated)
	return task, nil
}

// ToggleTask flips the completion state of task.
func (c *Coordinator) ToggleTask(ctx context.Context, task service.Task) (service.Task, error) {
	completed := !task.Completed
	return c.UpdateTask(ctx, task.ID, service.TaskPatch{Completed: &completed})
}

// DeleteTask deletes the task with the given id.
func (c *Coordinator) DeleteTask(ctx context.Context, id string) error {
	if err := c.tasks.DeleteTask(ctx, id); err != nil {
		return c.mutationFailed("delete", MsgDeleteFailed, err)
	}
	c.mutationSucceeded(ctx, MsgDeleted)
	return nil
}

// mutationSucceeded invalidates every cached page, since a change may shift
// pagination under any search, and reloads the current one. A failed reload
// shows up as the view's read error, not as a failed mutation.
func (c *Coordinator) mutationSucceeded(ctx context.Context, msg string) {
	c.cache.InvalidateAll()
	c.notifier.Show(KindSuccess, msg)
	if err := c.Load(ctx); err != nil {
		c.log.Debug("reload after mutation failed", "error", err)
	}
}

func (c *Coordinator) mutationFailed(op, msg string, err error) error {
	c.log.Info("task mutation failed", "op", op, "error", err)
	c.notifier.Show(KindError, msg)
	return fmt.Errorf("%s task: %w", op, err)
}
