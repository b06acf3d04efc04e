package tasklist

import (
	"fmt"
	"sort"
	"strings"

	"taskdesk/internal/model"
)

// SortKey names a sortable column. Each key has its own projection.
type SortKey int

const (
	SortID SortKey = iota
	SortTitle
	SortDescription
	SortStatus
	SortPriority
	SortAssignee
	SortDueDate
)

var SortKeys = []SortKey{SortID, SortTitle, SortDescription, SortStatus, SortPriority, SortAssignee, SortDueDate}

var sortKeyNames = map[SortKey]string{
	SortID:          "id",
	SortTitle:       "title",
	SortDescription: "description",
	SortStatus:      "status",
	SortPriority:    "priority",
	SortAssignee:    "assignee_name",
	SortDueDate:     "due_date",
}

func (k SortKey) String() string {
	if s, ok := sortKeyNames[k]; ok {
		return s
	}
	return fmt.Sprintf("SortKey(%d)", int(k))
}

// ParseSortKey accepts the wire names plus a few short aliases.
func ParseSortKey(s string) (SortKey, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "assignee", "assigned", "assigned_to":
		return SortAssignee, nil
	case "due":
		return SortDueDate, nil
	}
	for k, name := range sortKeyNames {
		if name == v {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown sort key %q (want one of: id, title, description, status, priority, assignee_name, due_date)", s)
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

type SortConfig struct {
	Key       SortKey
	Direction Direction
}

// Marker is the header indicator for column k.
func (c SortConfig) Marker(k SortKey) string {
	if c.Key != k {
		return ""
	}
	if c.Direction == Desc {
		return "↓"
	}
	return "↑"
}

// Toggle flips direction on the active key; a new key starts ascending.
func (c SortConfig) Toggle(k SortKey) SortConfig {
	if c.Key == k {
		if c.Direction == Asc {
			return SortConfig{Key: k, Direction: Desc}
		}
		return SortConfig{Key: k, Direction: Asc}
	}
	return SortConfig{Key: k, Direction: Asc}
}

type value struct {
	present bool
	num     int
	str     string
	isNum   bool
}

func num(n int) value    { return value{present: true, num: n, isNum: true} }
func str(s string) value { return value{present: true, str: strings.ToLower(s)} }

func strPtr(p *string) value {
	if p == nil {
		return value{}
	}
	return str(*p)
}

func project(k SortKey, t model.Task) value {
	switch k {
	case SortID:
		return num(t.ID)
	case SortTitle:
		return str(t.Title)
	case SortDescription:
		return strPtr(t.Description)
	case SortStatus:
		return str(string(t.Status))
	case SortPriority:
		return str(string(t.Priority))
	case SortAssignee:
		return strPtr(t.AssigneeName)
	case SortDueDate:
		if t.DueDate == nil {
			return value{}
		}
		return str(t.DueDate.String())
	default:
		return value{}
	}
}

// compare orders present values ascending; absent values are handled by the caller.
func compare(a, b value) int {
	if a.isNum && b.isNum {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}
	return strings.Compare(a.str, b.str)
}

// Sorted returns a sorted copy; the input slice is never reordered.
func Sorted(tasks []model.Task, cfg SortConfig) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := project(cfg.Key, out[i]), project(cfg.Key, out[j])
		switch {
		case !a.present && !b.present:
			return false
		case !a.present:
			return false
		case !b.present:
			return true
		}
		c := compare(a, b)
		if cfg.Direction == Desc {
			c = -c
		}
		return c < 0
	})
	return out
}
