package domain

import (
	"errors"
	"strings"
	"time"
)

// TaskList is an ordered list of tasks inside a project. Sequence is unique per project.
type TaskList struct {
	ID        string
	ProjectID string
	Name      string
	Sequence  int
	CreatedAt time.Time
}

func (l *TaskList) Validate() error {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return errors.New("name is required")
	}
	if l.ProjectID == "" {
		return errors.New("project is required")
	}
	if l.Sequence < 1 {
		return errors.New("sequence must be positive")
	}
	return nil
}
