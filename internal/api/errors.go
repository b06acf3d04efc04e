package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrUnauthorized matches (errors.Is) any 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// Detail is the backend's `detail` error payload. It is either a Message or
// FieldErrors; any other shape parses to nil.
type Detail interface {
	isDetail()
}

type Message string

func (Message) isDetail() {}

type FieldError struct {
	Msg string
	Loc []string
}

// Field is the second element of the location path (the first is where the
// value came from, e.g. "body"). Short paths fall back to their last element.
func (f FieldError) Field() string {
	switch {
	case len(f.Loc) >= 2:
		return f.Loc[1]
	case len(f.Loc) == 1:
		return f.Loc[0]
	default:
		return ""
	}
}

type FieldErrors []FieldError

func (FieldErrors) isDetail() {}

// String renders "<field>: <msg>" entries joined by ", ".
func (fe FieldErrors) String() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe {
		if field := f.Field(); field != "" {
			parts = append(parts, field+": "+f.Msg)
		} else {
			parts = append(parts, f.Msg)
		}
	}
	return strings.Join(parts, ", ")
}

// Verbose renders one "<msg> (<loc -> loc>)" line per entry.
func (fe FieldErrors) Verbose() []string {
	lines := make([]string, 0, len(fe))
	for _, f := range fe {
		lines = append(lines, fmt.Sprintf("%s (%s)", f.Msg, strings.Join(f.Loc, " -> ")))
	}
	return lines
}

// ParseDetail extracts the `detail` field from an error response body.
func ParseDetail(body []byte) Detail {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return nil
	}

	var msg string
	if err := json.Unmarshal(envelope.Detail, &msg); err == nil {
		return Message(msg)
	}

	var entries []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(envelope.Detail, &entries); err == nil {
		out := make(FieldErrors, 0, len(entries))
		for _, e := range entries {
			loc := make([]string, 0, len(e.Loc))
			for _, part := range e.Loc {
				loc = append(loc, locString(part))
			}
			out = append(out, FieldError{Msg: e.Msg, Loc: loc})
		}
		return out
	}
	return nil
}

func locString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Error is a non-2xx response from the backend.
type Error struct {
	Method string
	Path   string
	Status int
	Detail Detail
}

func (e *Error) Error() string {
	switch d := e.Detail.(type) {
	case Message:
		if d != "" {
			return string(d)
		}
	case FieldErrors:
		if len(d) > 0 {
			return d.String()
		}
	}
	return fmt.Sprintf("%s %s: HTTP %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

func (e *Error) NotFound() bool { return e.Status == http.StatusNotFound }

// DetailOf returns the backend detail carried by err, if any.
func DetailOf(err error) Detail {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return nil
}

// MessageOr returns the display message for err: a string detail as-is, a
// field error list flattened with FieldErrors.String, otherwise fallback.
func MessageOr(err error, fallback string) string {
	switch d := DetailOf(err).(type) {
	case Message:
		if d != "" {
			return string(d)
		}
	case FieldErrors:
		if len(d) > 0 {
			return d.String()
		}
	}
	return fallback
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.NotFound()
}
