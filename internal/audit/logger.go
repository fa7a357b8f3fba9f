package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"titan/internal/audit/domain"
	auditrepo "titan/internal/audit/repository"
	"titan/internal/logger"
)

// SentinelOrgID is the org_id used for audit events that have no organisation (e.g. registration).
const SentinelOrgID = "_system"

// Actions recorded by the services.
const (
	ActionOrganisationCreated = "organisation_created"
	ActionTeamCreated         = "team_created"
	ActionMemberInvited       = "member_invited"
	ActionMemberRemoved       = "member_removed"
	ActionProjectCreated      = "project_created"
	ActionInvitationSent      = "invitation_sent"
	ActionInvitationAccepted  = "invitation_accepted"
	ActionTaskListCreated     = "tasklist_created"
	ActionTaskCreated         = "task_created"
	ActionFollowUpAdded       = "followup_added"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         *logger.Logger
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown". log may be nil.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *logger.Logger) *Logger {
	if log == nil {
		log = logger.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log.Named("audit")}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn("failed to log event", "action", action, "resource", resource, "error", err)
	}
}

// Nop is an AuditLogger that records nothing.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, string, string, string, string) {}
