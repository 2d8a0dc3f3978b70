package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdash/internal/service"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr), "expected *service.ValidationError, got %v", err)
	return verr.Fields
}

func TestTask_TitleBoundaries(t *testing.T) {
	assert.NoError(t, Task(TaskForm{Title: strings.Repeat("a", 100)}))

	fields := fieldErrors(t, Task(TaskForm{Title: strings.Repeat("a", 101)}))
	assert.Equal(t, "Title must be at most 100 characters", fields["title"])
}

func TestTask_EmptyTitle(t *testing.T) {
	fields := fieldErrors(t, Task(TaskForm{Title: ""}))
	assert.Equal(t, "Title is required", fields["title"])
}

func TestTask_DescriptionBoundaries(t *testing.T) {
	assert.NoError(t, Task(TaskForm{Title: "t", Description: strings.Repeat("d", 500)}))

	fields := fieldErrors(t, Task(TaskForm{Title: "t", Description: strings.Repeat("d", 501)}))
	assert.Equal(t, "Description must be at most 500 characters", fields["description"])
	assert.NotContains(t, fields, "title")
}

func TestTask_CountsCharactersNotBytes(t *testing.T) {
	// 100 three-byte runes is 300 bytes but still 100 characters.
	assert.NoError(t, Task(TaskForm{Title: strings.Repeat("é", 100)}))
}

func TestTask_ReportsEveryField(t *testing.T) {
	fields := fieldErrors(t, Task(TaskForm{Title: "", Description: strings.Repeat("d", 501)}))
	assert.Len(t, fields, 2)
}

func TestLogin(t *testing.T) {
	assert.NoError(t, Login(LoginForm{Email: "ada@example.com", Password: "secret"}))

	fields := fieldErrors(t, Login(LoginForm{Email: "not-an-email"}))
	assert.Equal(t, "Email must be a valid email address", fields["email"])
	assert.Equal(t, "Password is required", fields["password"])
}

func TestRegister(t *testing.T) {
	assert.NoError(t, Register(RegisterForm{Name: "Ada", Email: "ada@example.com", Password: "secret"}))

	fields := fieldErrors(t, Register(RegisterForm{Email: "ada@example.com", Password: "123"}))
	assert.Equal(t, "Name is required", fields["name"])
	assert.Equal(t, "Password must be at least 6 characters", fields["password"])
}
