package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"titan/internal/notify"
	orgdomain "titan/internal/organisation/domain"
	orgrepo "titan/internal/organisation/repository"
	"titan/internal/platform/rbac"
	"titan/internal/platform/usererr"
	"titan/internal/policy/engine"
	"titan/internal/project/domain"
	projectrepo "titan/internal/project/repository"
	"titan/internal/security"
	teamdomain "titan/internal/team/domain"
	teamrepo "titan/internal/team/repository"
	userdomain "titan/internal/user/domain"
)

type fakeMailer struct {
	sent []notify.Invitation
	err  error
}

func (m *fakeMailer) SendInvitation(ctx context.Context, inv notify.Invitation) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, inv)
	return nil
}

type fixture struct {
	svc      *Service
	projects *projectrepo.MemoryRepository
	teams    *teamrepo.MemoryRepository
	mailer   *fakeMailer
	org      *orgdomain.Organisation
	devs     *teamdomain.Team
	admins   *teamdomain.Team
}

// newFixture builds organisation acme with an Administrators team (alice) and a
// Developers team (alice, bob). carol belongs to no team.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	authz, err := engine.NewOPAEvaluator(nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	orgs := orgrepo.NewMemoryRepository()
	f := &fixture{
		projects: projectrepo.NewMemoryRepository(),
		teams:    teamrepo.NewMemoryRepository(),
		mailer:   &fakeMailer{},
		org:      &orgdomain.Organisation{ID: "o1", Name: "Acme", Slug: "acme", CreatedAt: time.Now()},
		admins:   &teamdomain.Team{ID: "t-admins", OrgID: "o1", Name: teamdomain.AdministratorsTeam},
		devs:     &teamdomain.Team{ID: "t-devs", OrgID: "o1", Name: "Developers"},
	}
	if err := orgs.Create(ctx, f.org); err != nil {
		t.Fatalf("create org: %v", err)
	}
	for _, team := range []*teamdomain.Team{f.admins, f.devs} {
		if err := f.teams.Create(ctx, team); err != nil {
			t.Fatalf("create team: %v", err)
		}
	}
	for _, m := range [][2]string{{f.admins.ID, "alice"}, {f.devs.ID, "alice"}, {f.devs.ID, "bob"}} {
		if _, err := f.teams.AddMember(ctx, m[0], m[1]); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	f.svc = NewService(f.projects, f.teams, orgs, authz, tokens, f.mailer, nil)
	return f
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, "bob", f.org, "Web Site", "", f.devs.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Slug != "web-site" || p.AdminTeamID() != f.devs.ID || len(p.ACL) != 1 {
		t.Errorf("project = %+v", p)
	}

	testCases := []struct {
		name   string
		userID string
		slug   string
		teamID string
		want   error
	}{
		{"duplicate slug", "bob", "web-site", f.devs.ID, domain.ErrSlugTaken},
		{"not in team", "carol", "other", f.devs.ID, rbac.ErrPermissionDenied},
		{"unknown team", "bob", "other", "nope", ErrUnknownTeam},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.userID, f.org, "Other", tc.slug, tc.teamID)
			if !errors.Is(err, tc.want) {
				t.Errorf("Create = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMemberTeams(t *testing.T) {
	f := newFixture(t)
	teams, err := f.svc.MemberTeams(context.Background(), "bob", f.org)
	if err != nil {
		t.Fatalf("MemberTeams: %v", err)
	}
	if len(teams) != 1 || teams[0].ID != f.devs.ID {
		t.Errorf("MemberTeams = %v, want [Developers]", teams)
	}
}

func TestSlugAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, "alice", f.org, "Web", "web", f.devs.ID); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for slug, want := range map[string]bool{"web": false, "api": true, "projects": false, "Bad Slug": false} {
		got, err := f.svc.SlugAvailable(ctx, f.org, slug)
		if err != nil {
			t.Fatalf("SlugAvailable: %v", err)
		}
		if got != want {
			t.Errorf("SlugAvailable(%q) = %v, want %v", slug, got, want)
		}
	}
}

func TestInviteAndAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, "alice", f.org, "Web", "web", f.admins.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	alice := &userdomain.User{ID: "alice", Email: "alice@example.com", Name: "Alice"}
	bob := &userdomain.User{ID: "bob", Email: "bob@example.com"}
	carol := &userdomain.User{ID: "carol", Email: "carol@example.com"}

	if err := f.svc.Invite(ctx, bob, f.org, p, "carol@example.com"); !errors.Is(err, rbac.ErrPermissionDenied) {
		t.Errorf("Invite by non-admin = %v, want ErrPermissionDenied", err)
	}
	if err := f.svc.Invite(ctx, alice, f.org, p, "Carol@Example.com"); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(f.mailer.sent))
	}
	inv := f.mailer.sent[0]
	if inv.To != "carol@example.com" || inv.InviterName != "Alice" || inv.Project != "web" {
		t.Errorf("invitation = %+v", inv)
	}

	if _, _, err := f.svc.AcceptInvitation(ctx, bob, inv.Key); !errors.Is(err, ErrInvitationMismatch) {
		t.Errorf("Accept by other user = %v, want ErrInvitationMismatch", err)
	}
	if _, _, err := f.svc.AcceptInvitation(ctx, carol, "garbage"); !errors.Is(err, ErrInvalidInvitation) {
		t.Errorf("Accept garbage = %v, want ErrInvalidInvitation", err)
	}
	org, got, err := f.svc.AcceptInvitation(ctx, carol, inv.Key)
	if err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}
	if org.ID != f.org.ID || got.ID != p.ID {
		t.Errorf("accepted org/project = %s/%s", org.Slug, got.Slug)
	}
	if ok, _ := f.teams.IsMember(ctx, f.admins.ID, "carol"); !ok {
		t.Error("carol should join the project's admin team")
	}
}

func TestInvite_SendFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _ := f.svc.Create(ctx, "alice", f.org, "Web", "web", f.devs.ID)
	f.mailer.err = errors.New("mailgun: 401")

	err := f.svc.Invite(ctx, &userdomain.User{ID: "bob", Email: "bob@example.com"}, f.org, p, "dave@example.com")
	if !errors.Is(err, ErrInvitationNotSent) {
		t.Fatalf("Invite = %v, want ErrInvitationNotSent", err)
	}
	if !strings.Contains(err.Error(), "mailgun: 401") {
		t.Errorf("error %q should carry the delivery failure", err)
	}
	if msg, _ := usererr.Message(err); msg != ErrInvitationNotSent.Error() {
		t.Errorf("flash = %q, want %q", msg, ErrInvitationNotSent.Error())
	}
}
