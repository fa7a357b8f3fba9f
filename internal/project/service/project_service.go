package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"titan/internal/audit"
	"titan/internal/notify"
	orgdomain "titan/internal/organisation/domain"
	"titan/internal/platform/rbac"
	"titan/internal/platform/slugs"
	"titan/internal/platform/usererr"
	"titan/internal/policy/engine"
	"titan/internal/project/domain"
	"titan/internal/security"
	teamdomain "titan/internal/team/domain"
	userdomain "titan/internal/user/domain"
)

var (
	ErrUnknownTeam        = errors.New("choose one of the organisation's teams")
	ErrInvalidInvitation  = errors.New("the invitation link is invalid or has expired")
	ErrInvitationMismatch = errors.New("the invitation was sent to a different email address")
	ErrInvitationNotSent  = errors.New("the invitation email could not be sent, try again later")
)

// ProjectRepo is the minimal project repository needed by the service.
type ProjectRepo interface {
	GetBySlug(ctx context.Context, orgID, slug string) (*domain.Project, error)
	Create(ctx context.Context, p *domain.Project) error
}

// TeamRepo is the minimal team repository needed by the service.
type TeamRepo interface {
	GetByID(ctx context.Context, id string) (*teamdomain.Team, error)
	GetByOrgAndName(ctx context.Context, orgID, name string) (*teamdomain.Team, error)
	ListByMember(ctx context.Context, userID string) ([]*teamdomain.Team, error)
	AddMember(ctx context.Context, teamID, userID string) (bool, error)
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

// OrganisationRepo resolves the organisation named by an invitation.
type OrganisationRepo interface {
	GetBySlug(ctx context.Context, slug string) (*orgdomain.Organisation, error)
}

// InvitationMailer sends the invitation email.
type InvitationMailer interface {
	SendInvitation(ctx context.Context, inv notify.Invitation) error
}

// Service creates projects and handles project invitations.
type Service struct {
	projects ProjectRepo
	teams    TeamRepo
	orgs     OrganisationRepo
	authz    engine.Authorizer
	tokens   *security.TokenProvider
	mailer   InvitationMailer
	audit    audit.AuditLogger
	now      func() time.Time
}

// NewService returns a project service. auditLogger may be nil.
func NewService(
	projects ProjectRepo,
	teams TeamRepo,
	orgs OrganisationRepo,
	authz engine.Authorizer,
	tokens *security.TokenProvider,
	mailer InvitationMailer,
	auditLogger audit.AuditLogger,
) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Service{
		projects: projects,
		teams:    teams,
		orgs:     orgs,
		authz:    authz,
		tokens:   tokens,
		mailer:   mailer,
		audit:    auditLogger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// MemberTeams returns the teams of org that userID belongs to; one of them must own a new project.
func (s *Service) MemberTeams(ctx context.Context, userID string, org *orgdomain.Organisation) ([]*teamdomain.Team, error) {
	teams, err := s.teams.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := teams[:0]
	for _, t := range teams {
		if t.OrgID == org.ID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Create creates a project in org whose ACL grants teamID the admin role.
// The user must belong to teamID.
func (s *Service) Create(ctx context.Context, userID string, org *orgdomain.Organisation, name, slug, teamID string) (*domain.Project, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil || team.OrgID != org.ID {
		return nil, usererr.Wrap(ErrUnknownTeam)
	}
	inTeam, err := s.teams.IsMember(ctx, team.ID, userID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.authz.Allow(ctx, engine.ActionProjectCreate,
		engine.Subject{UserID: userID, InTargetTeam: inTeam},
		engine.Resource{Organisation: org.Slug})
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, rbac.ErrPermissionDenied
	}
	if slug == "" {
		slug = slugs.Suggest(name)
	}
	p := &domain.Project{
		ID:        uuid.New().String(),
		OrgID:     org.ID,
		Name:      name,
		Slug:      slug,
		ACL:       []domain.ACLEntry{{TeamID: team.ID, Role: domain.RoleAdmin}},
		CreatedAt: s.now(),
	}
	if err := p.Validate(); err != nil {
		return nil, usererr.Wrap(err)
	}
	if err := s.projects.Create(ctx, p); err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			return nil, usererr.Wrap(err)
		}
		return nil, err
	}
	s.audit.LogEvent(ctx, org.ID, userID, audit.ActionProjectCreated, "project:"+p.Slug, "team:"+team.Name)
	return p, nil
}

// SlugAvailable reports whether slug is a valid project slug unused in org.
func (s *Service) SlugAvailable(ctx context.Context, org *orgdomain.Organisation, slug string) (bool, error) {
	if slugs.ValidateProject(slug) != nil {
		return false, nil
	}
	existing, err := s.projects.GetBySlug(ctx, org.ID, slug)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

// IsAdministrator reports whether userID administers project: a member of its admin
// team or of the organisation's Administrators team.
func (s *Service) IsAdministrator(ctx context.Context, userID string, org *orgdomain.Organisation, p *domain.Project) (bool, error) {
	if teamID := p.AdminTeamID(); teamID != "" {
		ok, err := s.teams.IsMember(ctx, teamID, userID)
		if err != nil || ok {
			return ok, err
		}
	}
	return rbac.IsOrgAdministrator(ctx, s.teams, org.ID, userID)
}

// Invite emails a signed invitation to join project. A failed delivery is returned
// to the caller since the invitation cannot be accepted without the link.
func (s *Service) Invite(ctx context.Context, inviter *userdomain.User, org *orgdomain.Organisation, p *domain.Project, email string) error {
	isAdmin, err := s.IsAdministrator(ctx, inviter.ID, org, p)
	if err != nil {
		return err
	}
	allowed, err := s.authz.Allow(ctx, engine.ActionProjectInvite,
		engine.Subject{UserID: inviter.ID, IsAdministrator: isAdmin},
		engine.Resource{Organisation: org.Slug, Project: p.Slug})
	if err != nil {
		return err
	}
	if !allowed {
		return rbac.ErrPermissionDenied
	}
	email = userdomain.NormalizeEmail(email)
	key, err := s.tokens.IssueInvitation(org.Slug, p.Slug, email, inviter.ID)
	if err != nil {
		return err
	}
	err = s.mailer.SendInvitation(ctx, notify.Invitation{
		To:           email,
		InviterName:  inviter.DisplayName(),
		Organisation: org.Slug,
		Project:      p.Slug,
		Key:          key,
	})
	if err != nil {
		return fmt.Errorf("send invitation: %v: %w", err, usererr.Wrap(ErrInvitationNotSent))
	}
	s.audit.LogEvent(ctx, org.ID, inviter.ID, audit.ActionInvitationSent, "project:"+p.Slug, "email:"+email)
	return nil
}

// AcceptInvitation adds user to the admin team of the project named by key.
func (s *Service) AcceptInvitation(ctx context.Context, user *userdomain.User, key string) (*orgdomain.Organisation, *domain.Project, error) {
	inv, err := s.tokens.ValidateInvitation(key)
	if err != nil {
		return nil, nil, usererr.Wrap(ErrInvalidInvitation)
	}
	if inv.Email != userdomain.NormalizeEmail(user.Email) {
		return nil, nil, usererr.Wrap(ErrInvitationMismatch)
	}
	org, err := s.orgs.GetBySlug(ctx, inv.Organisation)
	if err != nil {
		return nil, nil, err
	}
	if org == nil {
		return nil, nil, usererr.Wrap(ErrInvalidInvitation)
	}
	p, err := s.projects.GetBySlug(ctx, org.ID, inv.Project)
	if err != nil {
		return nil, nil, err
	}
	if p == nil || p.AdminTeamID() == "" {
		return nil, nil, usererr.Wrap(ErrInvalidInvitation)
	}
	added, err := s.teams.AddMember(ctx, p.AdminTeamID(), user.ID)
	if err != nil {
		return nil, nil, err
	}
	if added {
		s.audit.LogEvent(ctx, org.ID, user.ID, audit.ActionInvitationAccepted, "project:"+p.Slug, "")
	}
	return org, p, nil
}
