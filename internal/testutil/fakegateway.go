// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"taskdash/internal/service"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = errors.New("not found")

// ErrBadCredentials is returned by Login for an unknown email or wrong password.
var ErrBadCredentials = errors.New("invalid credentials")

type fakeAccount struct {
	user     service.User
	password string
}

// FakeGateway is an in-memory implementation of service.Authenticator and
// service.TaskGateway for testing. Tasks are listed newest first.
type FakeGateway struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount // email -> account
	tasks    []service.Task
	nextID   int
	clock    time.Time

	// Error injection for testing
	LoginErr    error
	RegisterErr error
	ListErrs    []error // consumed one per ListTasks call; nil entries succeed
	CreateErr   error
	UpdateErr   error
	DeleteErr   error

	// BeforeList runs at the start of every ListTasks call, outside the lock.
	BeforeList func(page int, search string)

	calls map[string]int
}

// NewFakeGateway creates an empty FakeGateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		accounts: make(map[string]fakeAccount),
		calls:    make(map[string]int),
		clock:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// AddAccount registers credentials that Login will accept.
func (f *FakeGateway) AddAccount(user service.User, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[user.Email] = fakeAccount{user: user, password: password}
}

// AddTask stores a task and returns it. Later tasks list first.
func (f *FakeGateway) AddTask(title, description string) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(title, description)
}

// AddTasks stores n tasks titled "Task 1".."Task n".
func (f *FakeGateway) AddTasks(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 1; i <= n; i++ {
		f.insert(fmt.Sprintf("Task %d", i), "")
	}
}

func (f *FakeGateway) insert(title, description string) service.Task {
	f.nextID++
	f.clock = f.clock.Add(time.Minute)
	task := service.Task{
		ID:          fmt.Sprintf("t%d", f.nextID),
		Title:       title,
		Description: description,
		CreatedAt:   f.clock,
	}
	f.tasks = append([]service.Task{task}, f.tasks...)
	return task
}

// Tasks returns a copy of all stored tasks.
func (f *FakeGateway) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns how many times the named method was called.
func (f *FakeGateway) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of task API calls of any kind.
func (f *FakeGateway) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls["ListTasks"] + f.calls["CreateTask"] + f.calls["UpdateTask"] + f.calls["DeleteTask"]
}

// Login implements service.Authenticator.
func (f *FakeGateway) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Login"]++
	if f.LoginErr != nil {
		return service.AuthResult{}, f.LoginErr
	}
	acct, ok := f.accounts[email]
	if !ok || acct.password != password {
		return service.AuthResult{}, ErrBadCredentials
	}
	return service.AuthResult{Token: "token-" + acct.user.ID, User: acct.user}, nil
}

// Register implements service.Authenticator.
func (f *FakeGateway) Register(ctx context.Context, name, email, password string) (service.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Register"]++
	if f.RegisterErr != nil {
		return service.AuthResult{}, f.RegisterErr
	}
	if _, exists := f.accounts[email]; exists {
		return service.AuthResult{}, errors.New("email already registered")
	}
	user := service.User{ID: fmt.Sprintf("u%d", len(f.accounts)+1), Name: name, Email: email}
	f.accounts[email] = fakeAccount{user: user, password: password}
	return service.AuthResult{Token: "token-" + user.ID, User: user}, nil
}

// ListTasks implements service.TaskGateway.
func (f *FakeGateway) ListTasks(ctx context.Context, page, limit int, search string) (service.TaskPage, error) {
	if hook := f.BeforeList; hook != nil {
		hook(page, search)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListTasks"]++
	if len(f.ListErrs) > 0 {
		err := f.ListErrs[0]
		f.ListErrs = f.ListErrs[1:]
		if err != nil {
			return service.TaskPage{}, err
		}
	}

	var matched []service.Task
	needle := strings.ToLower(search)
	for _, t := range f.tasks {
		if needle == "" ||
			strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			matched = append(matched, t)
		}
	}

	totalPages := (len(matched) + limit - 1) / limit
	start := (page - 1) * limit
	if start >= len(matched) {
		return service.TaskPage{Tasks: []service.Task{}, TotalPages: totalPages}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]service.Task, end-start)
	copy(out, matched[start:end])
	return service.TaskPage{Tasks: out, TotalPages: totalPages}, nil
}

// CreateTask implements service.TaskGateway.
func (f *FakeGateway) CreateTask(ctx context.Context, title, description string) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateTask"]++
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	return f.insert(title, description), nil
}

// UpdateTask implements service.TaskGateway.
func (f *FakeGateway) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateTask"]++
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		if patch.Title != nil {
			f.tasks[i].Title = *patch.Title
		}
		if patch.Description != nil {
			f.tasks[i].Description = *patch.Description
		}
		if patch.Completed != nil {
			f.tasks[i].Completed = *patch.Completed
		}
		return f.tasks[i], nil
	}
	return service.Task{}, ErrNotFound
}

// DeleteTask implements service.TaskGateway.
func (f *FakeGateway) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteTask"]++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
