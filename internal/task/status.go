// Package task defines the board's task records, their workflow statuses,
// and the markdown file format they are stored in.
package task

import (
	"fmt"
	"strings"
)

// Status is a workflow state. Each status owns one directory under the
// board root, and a record's file always lives in its status directory.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses returns every workflow status in board order.
func Statuses() []Status {
	return []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone}
}

// ParseStatus converts a string to a Status.
// Returns an error for unknown status strings.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusBacklog:
		return StatusBacklog, nil
	case StatusTodo:
		return StatusTodo, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusReview:
		return StatusReview, nil
	case StatusDone:
		return StatusDone, nil
	default:
		return "", fmt.Errorf("unknown status %q: valid statuses are backlog, todo, in-progress, review, done", s)
	}
}

// Valid reports whether s is a recognized workflow status.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Terminal reports whether s is the terminal "done" state.
func (s Status) Terminal() bool {
	return s == StatusDone
}

func (s Status) String() string {
	return string(s)
}
