// Package taskform is the create/edit task form state.
package taskform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"taskdesk/internal/api"
	"taskdesk/internal/model"
)

const (
	loadFailed = "Failed to load task details"
	saveFailed = "Failed to save task. Please try again."

	dateLayout    = "2006-01-02"
	payloadLayout = "2006-01-02T15:04:05.000Z"
)

// ErrTitleRequired matches the backend's own validation message.
var ErrTitleRequired = errors.New("title: field required")

// Backend is the slice of the API client the form uses.
type Backend interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetTask(ctx context.Context, id int) (*model.Task, error)
	CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, id int, in model.TaskInput) (*model.Task, error)
}

// Form holds field values as edited. ID 0 means create mode; AssigneeID 0
// means unassigned.
type Form struct {
	ID          int
	Title       string
	Description string
	Status      model.Status
	Priority    model.Priority
	DueDate     string
	AssigneeID  int

	Assignees []model.User
	Err       string

	log *slog.Logger
}

func New(logger *slog.Logger) *Form {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Form{Status: model.StatusTodo, Priority: model.PriorityMedium, log: logger}
}

func (f *Form) Editing() bool { return f.ID != 0 }

// LoadAssignees fills the assignee list. A failure is logged and the list
// stays empty.
func (f *Form) LoadAssignees(ctx context.Context, b Backend) {
	users, err := b.ListUsers(ctx)
	if err != nil {
		f.log.Error("error fetching users", "err", err)
		return
	}
	f.Assignees = users
}

// Fill copies an existing task into the form.
func (f *Form) Fill(t model.Task) {
	f.ID = t.ID
	f.Title = t.Title
	f.Description = ""
	if t.Description != nil {
		f.Description = *t.Description
	}
	f.Status = t.Status
	f.Priority = t.Priority
	f.DueDate = ""
	if t.DueDate != nil {
		f.DueDate = t.DueDate.Date()
	}
	f.AssigneeID = 0
	if t.AssigneeID != nil {
		f.AssigneeID = *t.AssigneeID
	}
}

// Load fetches task id and pre-fills the form.
func (f *Form) Load(ctx context.Context, b Backend, id int) error {
	t, err := b.GetTask(ctx, id)
	if err != nil {
		f.Err = api.MessageOr(err, loadFailed)
		return err
	}
	if t == nil {
		f.Err = loadFailed
		return fmt.Errorf("task %d: %w", id, errNoTask)
	}
	f.Fill(*t)
	f.Err = ""
	return nil
}

var errNoTask = errors.New("empty response")

// Payload builds the request body. The date-only due date becomes midnight UTC.
func (f *Form) Payload() (model.TaskInput, error) {
	in := model.TaskInput{
		Title:       f.Title,
		Description: f.Description,
		Status:      f.Status,
		Priority:    f.Priority,
	}
	if d := strings.TrimSpace(f.DueDate); d != "" {
		day, err := time.Parse(dateLayout, d)
		if err != nil {
			return model.TaskInput{}, fmt.Errorf("due date %q: want YYYY-MM-DD", d)
		}
		s := day.UTC().Format(payloadLayout)
		in.DueDate = &s
	}
	if f.AssigneeID != 0 {
		id := f.AssigneeID
		in.AssigneeID = &id
	}
	return in, nil
}

// Submit creates or updates the task. On failure Err holds the message to show.
func (f *Form) Submit(ctx context.Context, b Backend) (*model.Task, error) {
	if strings.TrimSpace(f.Title) == "" {
		f.Err = ErrTitleRequired.Error()
		return nil, ErrTitleRequired
	}
	in, err := f.Payload()
	if err != nil {
		f.Err = err.Error()
		return nil, err
	}
	var t *model.Task
	if f.Editing() {
		t, err = b.UpdateTask(ctx, f.ID, in)
	} else {
		t, err = b.CreateTask(ctx, in)
	}
	if err != nil {
		f.Err = SaveMessage(err)
		return nil, err
	}
	f.Err = ""
	return t, nil
}

// SaveMessage renders a failed save: field errors as "field: msg" joined by
// commas, a plain detail as-is, anything else as the generic message.
func SaveMessage(err error) string {
	switch d := api.DetailOf(err).(type) {
	case api.FieldErrors:
		if len(d) > 0 {
			return d.String()
		}
	case api.Message:
		if strings.TrimSpace(string(d)) != "" {
			return string(d)
		}
	}
	return saveFailed
}

// AssigneeLabel is the display text for the current selection.
func (f *Form) AssigneeLabel() string {
	if f.AssigneeID == 0 {
		return "Not Assigned"
	}
	for _, u := range f.Assignees {
		if u.ID == f.AssigneeID {
			return u.Email
		}
	}
	return fmt.Sprintf("user #%d", f.AssigneeID)
}
