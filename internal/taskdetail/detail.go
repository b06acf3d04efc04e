// Package taskdetail loads a single task and its assignee for read-only display.
package taskdetail

import (
	"context"

	"taskdesk/internal/api"
	"taskdesk/internal/model"
)

const (
	fetchFailed = "Failed to fetch task details"
	notFound    = "Task not found"
	unassigned  = "Not Assigned"
	placeholder = "N/A"
)

type Phase int

const (
	Loading Phase = iota
	Failed
	NotFound
	Loaded
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Failed:
		return "error"
	case NotFound:
		return "not-found"
	case Loaded:
		return "loaded"
	}
	return "unknown"
}

// State is exactly one of the phases; Task is set only when Loaded.
type State struct {
	Phase    Phase
	Message  string
	Err      error
	Task     *model.Task
	Assignee *model.User
}

type Backend interface {
	GetTask(ctx context.Context, id int) (*model.Task, error)
	GetUser(ctx context.Context, id int) (*model.User, error)
}

// Load fetches the task, then its assignee when one is set.
func Load(ctx context.Context, b Backend, id int) State {
	t, err := b.GetTask(ctx, id)
	if err != nil {
		return State{Phase: Failed, Message: api.MessageOr(err, fetchFailed), Err: err}
	}
	if t == nil {
		return State{Phase: NotFound, Message: notFound}
	}
	st := State{Phase: Loaded, Task: t}
	if t.AssigneeID != nil {
		u, err := b.GetUser(ctx, *t.AssigneeID)
		if err != nil {
			return State{Phase: Failed, Message: api.MessageOr(err, fetchFailed), Err: err}
		}
		st.Assignee = u
	}
	return st
}

// Field is one label/value line of the details view.
type Field struct {
	Label string
	Value string
}

// Fields lists the loaded task field by field. The description is left out;
// callers render it separately.
func (s State) Fields() []Field {
	if s.Task == nil {
		return nil
	}
	t := s.Task
	assignee := unassigned
	if s.Assignee != nil && s.Assignee.Email != "" {
		assignee = s.Assignee.Email
	}
	dueDate := placeholder
	if t.DueDate != nil && t.DueDate.Date() != "" {
		dueDate = t.DueDate.Date()
	}
	created := t.CreatedAt.Date()
	if created == "" {
		created = placeholder
	}
	return []Field{
		{Label: "Title", Value: t.Title},
		{Label: "Status", Value: string(t.Status)},
		{Label: "Priority", Value: string(t.Priority)},
		{Label: "Assigned To", Value: assignee},
		{Label: "Created", Value: created},
		{Label: "Due Date", Value: dueDate},
	}
}

// Description is the raw markdown description or the placeholder.
func (s State) Description() string {
	if s.Task == nil || s.Task.Description == nil || *s.Task.Description == "" {
		return placeholder
	}
	return *s.Task.Description
}

func (s State) Completed() bool { return s.Task != nil && s.Task.Completed() }
