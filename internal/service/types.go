// Package service defines the backend-agnostic types and interfaces for task operations.
package service

import "time"

// User is the authenticated account as returned by the auth endpoints.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Task represents a single task item.
type Task struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Completed   bool      `json:"completed" yaml:"completed"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks      []Task `json:"tasks" yaml:"tasks"`
	TotalPages int    `json:"totalPages" yaml:"totalPages"`
}

// TaskPatch carries the fields of a partial task update.
// Nil fields are left unchanged on the server.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	Token string
	User  User
}
