// Package validate checks form input before anything is sent to the API.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"taskdash/internal/service"
)

const (
	// MaxTitleLen is the maximum task title length in characters.
	MaxTitleLen = 100

	// MaxDescriptionLen is the maximum task description length in characters.
	MaxDescriptionLen = 500
)

// TaskForm is the task creation form.
type TaskForm struct {
	Title       string `validate:"required,max=100"`
	Description string `validate:"max=500"`
}

// LoginForm is the login form.
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// RegisterForm is the registration form.
type RegisterForm struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// Global validator instance for reuse
var validate = validator.New()

// Task validates a task creation form.
func Task(form TaskForm) error { return check(form) }

// Login validates a login form.
func Login(form LoginForm) error { return check(form) }

// Register validates a registration form.
func Register(form RegisterForm) error { return check(form) }

// check runs the struct validator and converts its output into a
// *service.ValidationError keyed by lower-case field name.
func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = message(fe)
	}
	return &service.ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
