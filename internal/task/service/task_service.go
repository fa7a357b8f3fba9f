package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"titan/internal/audit"
	"titan/internal/logger"
	"titan/internal/notify"
	orgdomain "titan/internal/organisation/domain"
	"titan/internal/platform/rbac"
	"titan/internal/platform/sequence"
	"titan/internal/platform/usererr"
	"titan/internal/policy/engine"
	projectdomain "titan/internal/project/domain"
	"titan/internal/task/domain"
	tasklistdomain "titan/internal/tasklist/domain"
	userdomain "titan/internal/user/domain"
)

// ErrNotAssignable is returned when the chosen assignee is not in any team of the project.
var ErrNotAssignable = errors.New("the assignee must be a member of one of the project's teams")

// TaskRepo is the minimal task repository needed by the service.
type TaskRepo interface {
	MaxSequence(ctx context.Context, taskListID string) (int, error)
	Create(ctx context.Context, t *domain.Task) error
	AppendFollowUp(ctx context.Context, f *domain.FollowUp) (*domain.Task, error)
	ListFollowUps(ctx context.Context, taskID string) ([]*domain.FollowUp, error)
}

// TeamRepo lists the members of the teams on a project's ACL.
type TeamRepo interface {
	ListMemberIDs(ctx context.Context, teamID string) ([]string, error)
}

// UserRepo is the minimal user repository needed by the service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*userdomain.User, error)
}

// AssignmentMailer notifies the assignee of a task.
type AssignmentMailer interface {
	SendAssignment(ctx context.Context, a notify.Assignment) error
}

// Location names the organisation, project and task list a task lives in.
type Location struct {
	Organisation *orgdomain.Organisation
	Project      *projectdomain.Project
	TaskList     *tasklistdomain.TaskList
}

// FollowUpView is a follow-up with its author resolved for display.
type FollowUpView struct {
	*domain.FollowUp
	Author   *userdomain.User
	Assignee *userdomain.User
}

// Service creates tasks and records follow-ups.
type Service struct {
	tasks    TaskRepo
	teams    TeamRepo
	users    UserRepo
	authz    engine.Authorizer
	mailer   AssignmentMailer
	audit    audit.AuditLogger
	log      *logger.Logger
	sanitize *bluemonday.Policy
	report   func(error)
	now      func() time.Time
}

// NewService returns a task service. auditLogger and log may be nil.
func NewService(tasks TaskRepo, teams TeamRepo, users UserRepo, authz engine.Authorizer, mailer AssignmentMailer, auditLogger audit.AuditLogger, log *logger.Logger) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		tasks:    tasks,
		teams:    teams,
		users:    users,
		authz:    authz,
		mailer:   mailer,
		audit:    auditLogger,
		log:      log.Named("task"),
		sanitize: bluemonday.UGCPolicy(),
		report:   func(err error) { sentry.CaptureException(err) },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AssignableUsers returns the members of every team on the project's ACL.
func (s *Service) AssignableUsers(ctx context.Context, project *projectdomain.Project) ([]*userdomain.User, error) {
	var ids []string
	for _, teamID := range project.TeamIDs() {
		members, err := s.teams.ListMemberIDs(ctx, teamID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, members...)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.users.ListByIDs(ctx, ids)
}

// Create adds a task to loc.TaskList under the next free sequence.
func (s *Service) Create(ctx context.Context, userID string, loc Location, title, status, assigneeID string) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, usererr.New("title is required")
	}
	st, err := domain.ParseStatus(status)
	if err != nil {
		return nil, usererr.Wrap(err)
	}
	if err := s.checkAssignee(ctx, userID, loc, assigneeID); err != nil {
		return nil, err
	}
	now := s.now()
	t := &domain.Task{
		ID:         uuid.New().String(),
		TaskListID: loc.TaskList.ID,
		Title:      title,
		Status:     st,
		AssigneeID: assigneeID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	current := func(ctx context.Context) (int, error) { return s.tasks.MaxSequence(ctx, loc.TaskList.ID) }
	_, err = sequence.Assign(ctx, current, func(seq int) error {
		t.Sequence = seq
		if err := t.Validate(); err != nil {
			return usererr.Wrap(err)
		}
		return s.tasks.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, loc.Organisation.ID, userID, audit.ActionTaskCreated, "project:"+loc.Project.Slug, t.Title)
	return t, nil
}

// AddFollowUp appends a comment to task that moves it to status and assigneeID, then
// mails the assignee. Delivery is best-effort: failures are logged and reported.
func (s *Service) AddFollowUp(ctx context.Context, author *userdomain.User, loc Location, task *domain.Task, message, status, assigneeID string) (*domain.Task, error) {
	st, err := domain.ParseStatus(status)
	if err != nil {
		return nil, usererr.Wrap(err)
	}
	if err := s.checkAssignee(ctx, author.ID, loc, assigneeID); err != nil {
		return nil, err
	}
	f := &domain.FollowUp{
		ID:           uuid.New().String(),
		TaskID:       task.ID,
		AuthorID:     author.ID,
		Message:      strings.TrimSpace(s.sanitize.Sanitize(message)),
		ToStatus:     st,
		ToAssigneeID: assigneeID,
		CreatedAt:    s.now(),
	}
	updated, err := s.tasks.AppendFollowUp(ctx, f)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, rbac.ErrForbidden
	}
	s.audit.LogEvent(ctx, loc.Organisation.ID, author.ID, audit.ActionFollowUpAdded, "project:"+loc.Project.Slug, updated.ID)
	if updated.AssigneeID != "" && updated.AssigneeID != author.ID {
		s.notify(ctx, author, loc, updated, f.Message)
	}
	return updated, nil
}

// FollowUps returns the follow-ups of task oldest first with authors and assignees resolved.
func (s *Service) FollowUps(ctx context.Context, task *domain.Task) ([]FollowUpView, error) {
	fs, err := s.tasks.ListFollowUps(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, f := range fs {
		ids = append(ids, f.AuthorID)
		if f.ToAssigneeID != "" {
			ids = append(ids, f.ToAssigneeID)
		}
	}
	byID := make(map[string]*userdomain.User)
	if len(ids) > 0 {
		users, err := s.users.ListByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			byID[u.ID] = u
		}
	}
	out := make([]FollowUpView, 0, len(fs))
	for _, f := range fs {
		out = append(out, FollowUpView{FollowUp: f, Author: byID[f.AuthorID], Assignee: byID[f.ToAssigneeID]})
	}
	return out, nil
}

func (s *Service) checkAssignee(ctx context.Context, userID string, loc Location, assigneeID string) error {
	if assigneeID == "" {
		return nil
	}
	users, err := s.AssignableUsers(ctx, loc.Project)
	if err != nil {
		return err
	}
	inTeam := false
	for _, u := range users {
		if u.ID == assigneeID {
			inTeam = true
			break
		}
	}
	allowed, err := s.authz.Allow(ctx, engine.ActionFollowUpAssignable,
		engine.Subject{UserID: userID, AssigneeInProjectTeam: inTeam},
		engine.Resource{Organisation: loc.Organisation.Slug, Project: loc.Project.Slug})
	if err != nil {
		return err
	}
	if !allowed {
		return usererr.Wrap(ErrNotAssignable)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, author *userdomain.User, loc Location, t *domain.Task, message string) {
	assignee, err := s.users.GetByID(ctx, t.AssigneeID)
	if err != nil || assignee == nil {
		s.log.Warn("assignee lookup failed", "task_id", t.ID, "assignee_id", t.AssigneeID, "error", err)
		return
	}
	err = s.mailer.SendAssignment(ctx, notify.Assignment{
		To:           assignee.Email,
		AuthorName:   author.DisplayName(),
		Organisation: loc.Organisation.Slug,
		Project:      loc.Project.Slug,
		TaskList:     loc.TaskList.Sequence,
		Task:         t.Sequence,
		Title:        t.Title,
		Status:       t.Status.Label(),
		Message:      message,
	})
	if err != nil {
		s.log.Warn("assignment email failed", "task_id", t.ID, "to", assignee.Email, "error", err)
		s.report(err)
	}
}
