package cli

import (
	"errors"
	"fmt"
	"net/http"

	"taskdesk/internal/api"
	"taskdesk/internal/session"
	"taskdesk/internal/taskform"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitError        = 1
	ExitUsage        = 2
	ExitNotFound     = 3
	ExitUnauthorized = 4
	ExitValidation   = 5
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func errUsage(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// validationError is a rejected input with a message ready to print.
type validationError struct {
	msg string
	err error
}

func (e validationError) Error() string { return e.msg }
func (e validationError) Unwrap() error { return e.err }

// messageError prints a user-facing message while keeping the cause for
// exit code mapping.
type messageError struct {
	msg string
	err error
}

func (e messageError) Error() string { return e.msg }
func (e messageError) Unwrap() error { return e.err }

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ue usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	var nf notFoundError
	if errors.As(err, &nf) || api.IsNotFound(err) {
		return ExitNotFound
	}
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, session.ErrNotLoggedIn) {
		return ExitUnauthorized
	}
	var ve validationError
	if errors.As(err, &ve) ||
		errors.Is(err, taskform.ErrTitleRequired) ||
		errors.Is(err, session.ErrPasswordMismatch) {
		return ExitValidation
	}
	var ae *api.Error
	if errors.As(err, &ae) && ae.Status == http.StatusUnprocessableEntity {
		return ExitValidation
	}
	return ExitError
}
