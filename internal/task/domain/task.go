package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusHold       Status = "hold"
	StatusResolved   Status = "resolved"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusHold, StatusResolved}

// ErrInvalidStatus is returned by ParseStatus for values outside Statuses.
var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus returns the status for s. An empty value means StatusNew and the
// legacy value "progress" is read as StatusInProgress.
func ParseStatus(s string) (Status, error) {
	switch v := Status(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return StatusNew, nil
	case "progress":
		return StatusInProgress, nil
	case StatusNew, StatusInProgress, StatusHold, StatusResolved:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Label is the human readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusInProgress:
		return "In Progress"
	case StatusHold:
		return "Hold"
	case StatusResolved:
		return "Resolved"
	}
	return string(s)
}

// Task belongs to a task list. Sequence is unique per task list. AssigneeID is empty when unassigned.
type Task struct {
	ID         string
	TaskListID string
	Title      string
	Status     Status
	AssigneeID string
	Sequence   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t *Task) Validate() error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return errors.New("title is required")
	}
	if t.TaskListID == "" {
		return errors.New("task list is required")
	}
	if _, err := ParseStatus(string(t.Status)); err != nil {
		return err
	}
	if t.Sequence < 1 {
		return errors.New("sequence must be positive")
	}
	return nil
}

// FollowUp is an append-only comment on a task that records a status change and reassignment.
type FollowUp struct {
	ID           string
	TaskID       string
	AuthorID     string
	Message      string
	ToStatus     Status
	ToAssigneeID string
	CreatedAt    time.Time
}
