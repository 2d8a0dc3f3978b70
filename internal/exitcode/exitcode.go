// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, invalid input, unknown task).
	UserError = 1

	// AuthError indicates a missing or rejected session, or a failed login.
	AuthError = 2

	// BackendError indicates an API or network error.
	BackendError = 3
)
