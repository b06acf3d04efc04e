package model

import "strings"

type Status string

const (
	StatusTodo       Status = "To-Do"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists the backend's task statuses in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusCompleted}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayName returns "First Last" when known, otherwise the email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}

type Task struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	DueDate      *Timestamp `json:"due_date"`
	CreatedAt    Timestamp  `json:"created_at"`
	OwnerID      int        `json:"owner_id"`
	AssigneeID   *int       `json:"assignee_id,omitempty"`
	AssigneeName *string    `json:"assignee_name,omitempty"`
}

func (t Task) Completed() bool { return t.Status == StatusCompleted }

// TaskInput is the create/update payload. Nil pointers are sent as JSON null.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	DueDate     *string  `json:"due_date"`
	AssigneeID  *int     `json:"assignee_id"`
}

type SignupInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}
