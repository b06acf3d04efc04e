package model

import (
	"fmt"
	"strings"
)

// ParseStatus accepts the backend labels plus a few shorthands typed on the
// command line ("todo", "doing", "done", ...).
func ParseStatus(s string) (Status, error) {
	switch normalizeLabel(s) {
	case "todo", "to-do":
		return StatusTodo, nil
	case "inprogress", "in-progress", "doing":
		return StatusInProgress, nil
	case "completed", "done":
		return StatusCompleted, nil
	case "":
		return "", fmt.Errorf("invalid status: empty")
	default:
		return "", fmt.Errorf("invalid status %q (expected one of: To-Do, In Progress, Completed)", strings.TrimSpace(s))
	}
}

func ParsePriority(s string) (Priority, error) {
	switch normalizeLabel(s) {
	case "low":
		return PriorityLow, nil
	case "medium", "med":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "":
		return "", fmt.Errorf("invalid priority: empty")
	default:
		return "", fmt.Errorf("invalid priority %q (expected one of: Low, Medium, High)", strings.TrimSpace(s))
	}
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	return strings.ReplaceAll(s, " ", "")
}
