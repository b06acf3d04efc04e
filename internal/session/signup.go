package session

import (
	"context"
	"errors"
	"strings"

	"taskdesk/internal/api"
	"taskdesk/internal/model"
)

// ErrPasswordMismatch is reported before any request is made.
var ErrPasswordMismatch = errors.New("Passwords do not match")

// Registrar is the slice of the API client that Signup needs.
type Registrar interface {
	Signup(ctx context.Context, in model.SignupInput) error
}

// SignupError holds the user-facing lines for a rejected registration.
type SignupError struct {
	Lines []string
	Err   error
}

func (e *SignupError) Error() string { return strings.Join(e.Lines, "\n") }
func (e *SignupError) Unwrap() error { return e.Err }

// Signup registers a new account. It does not log the user in.
func Signup(ctx context.Context, r Registrar, in model.SignupInput, confirm string) error {
	if in.Password != confirm {
		return ErrPasswordMismatch
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := r.Signup(ctx, in); err != nil {
		return &SignupError{Lines: signupLines(err), Err: err}
	}
	return nil
}

func signupLines(err error) []string {
	switch d := api.DetailOf(err).(type) {
	case api.FieldErrors:
		if len(d) > 0 {
			return d.Verbose()
		}
	case api.Message:
		if strings.TrimSpace(string(d)) != "" {
			return []string{string(d)}
		}
	}
	return []string{"Signup failed!"}
}
