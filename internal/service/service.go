// Package service defines the backend-agnostic types and interfaces for task operations.
package service

import "context"

// Authenticator exchanges credentials for a bearer token.
// Implementations never retry.
type Authenticator interface {
	// Login authenticates an existing account.
	Login(ctx context.Context, email, password string) (AuthResult, error)

	// Register creates an account and authenticates it.
	Register(ctx context.Context, name, email, password string) (AuthResult, error)
}

// TaskGateway defines the task operations of the remote API.
// All calls carry the current bearer token.
// Commands and the dashboard never talk HTTP directly.
type TaskGateway interface {
	// ListTasks returns one page of tasks.
	// page is 1-based. An empty search means no filter.
	ListTasks(ctx context.Context, page, limit int, search string) (TaskPage, error)

	// CreateTask creates a task. description may be empty.
	CreateTask(ctx context.Context, title, description string) (Task, error)

	// UpdateTask applies a partial update and returns the updated task.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id string) error
}
