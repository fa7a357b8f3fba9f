package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"titan/internal/audit"
	"titan/internal/organisation/domain"
	"titan/internal/platform/rbac"
	"titan/internal/platform/slugs"
	"titan/internal/platform/usererr"
	"titan/internal/policy/engine"
	teamdomain "titan/internal/team/domain"
	userdomain "titan/internal/user/domain"
)

var (
	ErrUserNotFound  = errors.New("no user is registered with that email address")
	ErrAlreadyMember = errors.New("user is already an administrator of this organisation")
	ErrNotMember     = errors.New("user is not a member of this organisation")
	ErrSelfRemoval   = errors.New("you cannot remove yourself from the organisation")
)

// OrganisationRepo is the minimal organisation repository needed by the service.
type OrganisationRepo interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Organisation, error)
	Create(ctx context.Context, o *domain.Organisation) error
}

// TeamRepo is the minimal team repository needed by the service.
type TeamRepo interface {
	GetByOrgAndName(ctx context.Context, orgID, name string) (*teamdomain.Team, error)
	ListByOrganisation(ctx context.Context, orgID string) ([]*teamdomain.Team, error)
	Create(ctx context.Context, t *teamdomain.Team) error
	AddMember(ctx context.Context, teamID, userID string) (bool, error)
	RemoveFromOrganisation(ctx context.Context, orgID, userID string) (int, error)
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
	ListMemberIDs(ctx context.Context, teamID string) ([]string, error)
}

// UserRepo is the minimal user repository needed by the service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*userdomain.User, error)
}

// TeamMembers is a team with its members, as listed on the organisation page.
type TeamMembers struct {
	Team    *teamdomain.Team
	Members []*userdomain.User
}

// Overview is what the organisation page shows to userID.
type Overview struct {
	Organisation    *domain.Organisation
	Teams           []TeamMembers
	IsAdministrator bool
}

// Service creates organisations and manages their teams and members.
type Service struct {
	orgs  OrganisationRepo
	teams TeamRepo
	users UserRepo
	authz engine.Authorizer
	audit audit.AuditLogger
	now   func() time.Time
}

// NewService returns an organisation service. auditLogger may be nil.
func NewService(orgs OrganisationRepo, teams TeamRepo, users UserRepo, authz engine.Authorizer, auditLogger audit.AuditLogger) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Service{
		orgs:  orgs,
		teams: teams,
		users: users,
		authz: authz,
		audit: auditLogger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create creates an organisation and its Administrators team with userID as the only member.
// An empty slug is derived from name.
func (s *Service) Create(ctx context.Context, userID, name, slug string) (*domain.Organisation, error) {
	if slug == "" {
		slug = slugs.Suggest(name)
	}
	now := s.now()
	org := &domain.Organisation{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
	}
	if err := org.Validate(); err != nil {
		return nil, usererr.Wrap(err)
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			return nil, usererr.Wrap(err)
		}
		return nil, err
	}
	admins := &teamdomain.Team{
		ID:        uuid.New().String(),
		OrgID:     org.ID,
		Name:      teamdomain.AdministratorsTeam,
		CreatedAt: now,
	}
	if err := s.teams.Create(ctx, admins); err != nil {
		return nil, err
	}
	if _, err := s.teams.AddMember(ctx, admins.ID, userID); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, org.ID, userID, audit.ActionOrganisationCreated, "organisation:"+org.Slug, "")
	return org, nil
}

// SlugAvailable reports whether slug is a valid organisation slug no organisation uses yet.
func (s *Service) SlugAvailable(ctx context.Context, slug string) (bool, error) {
	if slugs.ValidateOrganisation(slug) != nil {
		return false, nil
	}
	existing, err := s.orgs.GetBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

// Overview lists the teams of org with their members.
func (s *Service) Overview(ctx context.Context, userID string, org *domain.Organisation) (*Overview, error) {
	teams, err := s.teams.ListByOrganisation(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	out := &Overview{Organisation: org, Teams: make([]TeamMembers, 0, len(teams))}
	for _, t := range teams {
		ids, err := s.teams.ListMemberIDs(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		members, err := s.users.ListByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if t.IsAdministrators() {
			for _, id := range ids {
				if id == userID {
					out.IsAdministrator = true
				}
			}
		}
		out.Teams = append(out.Teams, TeamMembers{Team: t, Members: members})
	}
	return out, nil
}

// AddTeam creates a team in org. Only administrators may add teams; the creator joins the team.
func (s *Service) AddTeam(ctx context.Context, userID string, org *domain.Organisation, name string) (*teamdomain.Team, error) {
	if err := s.authorize(ctx, engine.ActionTeamCreate, userID, org); err != nil {
		return nil, err
	}
	team := &teamdomain.Team{
		ID:        uuid.New().String(),
		OrgID:     org.ID,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := team.Validate(); err != nil {
		return nil, usererr.Wrap(err)
	}
	if err := s.teams.Create(ctx, team); err != nil {
		if errors.Is(err, teamdomain.ErrNameTaken) {
			return nil, usererr.Wrap(err)
		}
		return nil, err
	}
	if _, err := s.teams.AddMember(ctx, team.ID, userID); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, org.ID, userID, audit.ActionTeamCreated, "team:"+team.Name, "")
	return team, nil
}

// Invite adds the registered user with email to the Administrators team of org.
func (s *Service) Invite(ctx context.Context, userID string, org *domain.Organisation, email string) (*userdomain.User, error) {
	if err := s.authorize(ctx, engine.ActionOrgInvite, userID, org); err != nil {
		return nil, err
	}
	invitee, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}
	admins, err := s.teams.GetByOrgAndName(ctx, org.ID, teamdomain.AdministratorsTeam)
	if err != nil {
		return nil, err
	}
	if admins == nil {
		return nil, errors.New("organisation has no administrators team")
	}
	added, err := s.teams.AddMember(ctx, admins.ID, invitee.ID)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, usererr.Wrap(ErrAlreadyMember)
	}
	s.audit.LogEvent(ctx, org.ID, userID, audit.ActionMemberInvited, "user:"+invitee.ID, "")
	return invitee, nil
}

// RemoveMember removes the user with email from every team of org.
func (s *Service) RemoveMember(ctx context.Context, userID string, org *domain.Organisation, email string) error {
	if err := s.authorize(ctx, engine.ActionOrgRemoveMember, userID, org); err != nil {
		return err
	}
	member, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}
	if member.ID == userID {
		return usererr.Wrap(ErrSelfRemoval)
	}
	n, err := s.teams.RemoveFromOrganisation(ctx, org.ID, member.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return usererr.Wrap(ErrNotMember)
	}
	s.audit.LogEvent(ctx, org.ID, userID, audit.ActionMemberRemoved, "user:"+member.ID, "")
	return nil
}

func (s *Service) findUser(ctx context.Context, email string) (*userdomain.User, error) {
	u, err := s.users.GetByEmail(ctx, userdomain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, usererr.Wrap(ErrUserNotFound)
	}
	return u, nil
}

func (s *Service) authorize(ctx context.Context, action, userID string, org *domain.Organisation) error {
	isAdmin, err := rbac.IsOrgAdministrator(ctx, s.teams, org.ID, userID)
	if err != nil {
		return err
	}
	allowed, err := s.authz.Allow(ctx, action, engine.Subject{UserID: userID, IsAdministrator: isAdmin}, engine.Resource{Organisation: org.Slug})
	if err != nil {
		return err
	}
	if !allowed {
		return rbac.ErrPermissionDenied
	}
	return nil
}
