package tasklist

import (
	"strconv"

	"taskdesk/internal/model"
)

const (
	placeholder = "N/A"
	unassigned  = "Not Assigned"
)

// Row is one rendered line of the task table.
type Row struct {
	Index       int
	ID          int
	Title       string
	Description string
	Status      string
	Priority    string
	Assignee    string
	DueDate     string
	Completed   bool
}

// Cells returns the row in column order, index first.
func (r Row) Cells() []string {
	return []string{
		strconv.Itoa(r.Index),
		r.Title,
		r.Description,
		r.Status,
		r.Priority,
		r.Assignee,
		r.DueDate,
	}
}

// Headers pairs each sortable column with its label; the index column is not sortable.
var Headers = []struct {
	Key   SortKey
	Label string
}{
	{SortID, "#"},
	{SortTitle, "Title"},
	{SortDescription, "Description"},
	{SortStatus, "Status"},
	{SortPriority, "Priority"},
	{SortAssignee, "Assigned To"},
	{SortDueDate, "Due Date"},
}

// HeaderLabels renders the header row with the active sort marker.
func HeaderLabels(cfg SortConfig) []string {
	out := make([]string, 0, len(Headers))
	for _, h := range Headers {
		out = append(out, h.Label+cfg.Marker(h.Key))
	}
	return out
}

func RowsFor(tasks []model.Task) []Row {
	rows := make([]Row, 0, len(tasks))
	for i, t := range tasks {
		r := Row{
			Index:       i + 1,
			ID:          t.ID,
			Title:       t.Title,
			Description: placeholder,
			Status:      string(t.Status),
			Priority:    string(t.Priority),
			Assignee:    unassigned,
			DueDate:     placeholder,
			Completed:   t.Completed(),
		}
		if t.Description != nil {
			if ex := Excerpt(*t.Description); ex != "" {
				r.Description = ex
			}
		}
		if t.AssigneeName != nil && *t.AssigneeName != "" {
			r.Assignee = *t.AssigneeName
		}
		if t.DueDate != nil && t.DueDate.Date() != "" {
			r.DueDate = t.DueDate.Date()
		}
		rows = append(rows, r)
	}
	return rows
}

// Rows is the current collection rendered in sort order.
func (l *List) Rows() []Row { return RowsFor(l.Sorted()) }
