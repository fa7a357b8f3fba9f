package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"titan/internal/audit"
	"titan/internal/platform/sequence"
	"titan/internal/platform/usererr"
	projectdomain "titan/internal/project/domain"
	"titan/internal/tasklist/domain"
)

// TaskListRepo is the minimal task list repository needed by the service.
type TaskListRepo interface {
	MaxSequence(ctx context.Context, projectID string) (int, error)
	Create(ctx context.Context, l *domain.TaskList) error
}

// Service creates task lists.
type Service struct {
	lists TaskListRepo
	audit audit.AuditLogger
	now   func() time.Time
}

// NewService returns a task list service. auditLogger may be nil.
func NewService(lists TaskListRepo, auditLogger audit.AuditLogger) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Service{lists: lists, audit: auditLogger, now: func() time.Time { return time.Now().UTC() }}
}

// Create adds a task list named name to project under the next free sequence.
func (s *Service) Create(ctx context.Context, userID string, project *projectdomain.Project, name string) (*domain.TaskList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, usererr.New("name is required")
	}
	l := &domain.TaskList{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Name:      name,
		CreatedAt: s.now(),
	}
	current := func(ctx context.Context) (int, error) { return s.lists.MaxSequence(ctx, project.ID) }
	_, err := sequence.Assign(ctx, current, func(seq int) error {
		l.Sequence = seq
		if err := l.Validate(); err != nil {
			return usererr.Wrap(err)
		}
		return s.lists.Create(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, project.OrgID, userID, audit.ActionTaskListCreated, "project:"+project.Slug, l.Name)
	return l, nil
}
