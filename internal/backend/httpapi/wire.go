package httpapi

import (
	"time"

	"taskdash/internal/service"
)

// The API identifies documents by "_id"; "id" is accepted as well.

type wireUser struct {
	ID    string `json:"_id"`
	AltID string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u wireUser) toService() service.User {
	id := u.ID
	if id == "" {
		id = u.AltID
	}
	return service.User{ID: id, Name: u.Name, Email: u.Email}
}

type authResponse struct {
	Token string   `json:"token"`
	User  wireUser `json:"user"`
}

func (r authResponse) toService() service.AuthResult {
	return service.AuthResult{Token: r.Token, User: r.User.toService()}
}

type wireTask struct {
	ID          string    `json:"_id"`
	AltID       string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (t wireTask) toService() service.Task {
	id := t.ID
	if id == "" {
		id = t.AltID
	}
	return service.Task{
		ID:          id,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
	}
}

type wirePage struct {
	Tasks      []wireTask `json:"tasks"`
	TotalPages int        `json:"totalPages"`
}

func (p wirePage) toService() service.TaskPage {
	tasks := make([]service.Task, len(p.Tasks))
	for i, t := range p.Tasks {
		tasks[i] = t.toService()
	}
	return service.TaskPage{Tasks: tasks, TotalPages: p.TotalPages}
}
