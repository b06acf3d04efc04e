// Package tasklist holds the task list screen state: sequenced fetches,
// client-side sorting and removal after a confirmed delete.
package tasklist

import (
	"context"

	"taskdesk/internal/api"
	"taskdesk/internal/model"
)

const (
	fetchFailed  = "Failed to fetch tasks"
	deleteFailed = "Failed to delete task"
)

// Ticket identifies one fetch. Only the latest issued ticket is applied.
type Ticket uint64

type Fetcher interface {
	ListTasks(ctx context.Context, search string) ([]model.Task, error)
}

type Deleter interface {
	DeleteTask(ctx context.Context, id int) error
}

type List struct {
	tasks   []model.Task
	query   string
	sort    SortConfig
	loading bool
	err     string
	// MyTasks is accepted from the route and CLI but does not filter.
	MyTasks bool

	latest Ticket
}

func New() *List { return &List{} }

func (l *List) Tasks() []model.Task {
	out := make([]model.Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

func (l *List) Query() string    { return l.query }
func (l *List) Sort() SortConfig { return l.sort }
func (l *List) Loading() bool    { return l.loading }
func (l *List) Err() string      { return l.err }

// Begin records the search term and issues a ticket for the fetch about to run.
func (l *List) Begin(query string) Ticket {
	l.query = query
	l.latest++
	l.loading = true
	return l.latest
}

// Apply stores a fetch result. Results for superseded tickets are dropped
// and Apply reports false.
func (l *List) Apply(t Ticket, tasks []model.Task, err error) bool {
	if t != l.latest {
		return false
	}
	l.loading = false
	if err != nil {
		l.err = api.MessageOr(err, fetchFailed)
		return true
	}
	l.tasks = make([]model.Task, len(tasks))
	copy(l.tasks, tasks)
	l.err = ""
	return true
}

// Refresh runs a complete fetch synchronously.
func (l *List) Refresh(ctx context.Context, f Fetcher, query string) error {
	t := l.Begin(query)
	tasks, err := f.ListTasks(ctx, query)
	l.Apply(t, tasks, err)
	return err
}

func (l *List) SetSort(cfg SortConfig) { l.sort = cfg }

func (l *List) Toggle(k SortKey) { l.sort = l.sort.Toggle(k) }

// Sorted is the current collection in display order.
func (l *List) Sorted() []model.Task { return Sorted(l.tasks, l.sort) }

// Remove drops the task with the given id. It reports whether one was found.
func (l *List) Remove(id int) bool {
	for i := range l.tasks {
		if l.tasks[i].ID == id {
			l.tasks = append(l.tasks[:i:i], l.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteFailed records a failed backend delete without touching the collection.
func (l *List) DeleteFailed(err error) { l.err = api.MessageOr(err, deleteFailed) }

// Delete removes a task on the backend and then locally. Confirmation is the
// caller's job.
func (l *List) Delete(ctx context.Context, d Deleter, id int) error {
	if err := d.DeleteTask(ctx, id); err != nil {
		l.DeleteFailed(err)
		return err
	}
	l.Remove(id)
	return nil
}
