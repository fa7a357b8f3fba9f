package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"titan/internal/logger"
	"titan/internal/notify"
	orgdomain "titan/internal/organisation/domain"
	"titan/internal/platform/usererr"
	"titan/internal/policy/engine"
	projectdomain "titan/internal/project/domain"
	"titan/internal/task/domain"
	taskrepo "titan/internal/task/repository"
	tasklistdomain "titan/internal/tasklist/domain"
	teamdomain "titan/internal/team/domain"
	teamrepo "titan/internal/team/repository"
	userdomain "titan/internal/user/domain"
	userrepo "titan/internal/user/repository"
)

type recordingMailer struct {
	sent []notify.Assignment
	err  error
}

func (m *recordingMailer) SendAssignment(ctx context.Context, a notify.Assignment) error {
	m.sent = append(m.sent, a)
	return m.err
}

type fixture struct {
	svc      *Service
	tasks    *taskrepo.MemoryRepository
	mailer   *recordingMailer
	loc      Location
	reported []error
	logs     *observer.ObservedLogs
	alice    *userdomain.User
}

// newFixture builds project web whose ACL names team devs (alice, bob); carol is in no team.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	authz, err := engine.NewOPAEvaluator(nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	teams := teamrepo.NewMemoryRepository()
	if err := teams.Create(ctx, &teamdomain.Team{ID: "devs", OrgID: "o1", Name: "Developers"}); err != nil {
		t.Fatalf("create team: %v", err)
	}
	users := userrepo.NewMemoryRepository()
	now := time.Now().UTC()
	for _, u := range []*userdomain.User{
		{ID: "alice", Email: "alice@example.com", Name: "Alice"},
		{ID: "bob", Email: "bob@example.com", Name: "Bob"},
		{ID: "carol", Email: "carol@example.com", Name: "Carol"},
	} {
		u.Status, u.CreatedAt, u.UpdatedAt = userdomain.UserStatusActive, now, now
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	for _, id := range []string{"alice", "bob"} {
		if _, err := teams.AddMember(ctx, "devs", id); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	core, logs := observer.New(zap.WarnLevel)
	f := &fixture{
		tasks:  taskrepo.NewMemoryRepository(),
		mailer: &recordingMailer{},
		logs:   logs,
		loc: Location{
			Organisation: &orgdomain.Organisation{ID: "o1", Slug: "acme"},
			Project: &projectdomain.Project{ID: "p1", OrgID: "o1", Slug: "web",
				ACL: []projectdomain.ACLEntry{{TeamID: "devs", Role: projectdomain.RoleAdmin}}},
			TaskList: &tasklistdomain.TaskList{ID: "l1", ProjectID: "p1", Name: "Sprint", Sequence: 2},
		},
	}
	f.alice, _ = users.GetByID(ctx, "alice")
	f.svc = NewService(f.tasks, teams, users, authz, f.mailer, nil, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})
	f.svc.report = func(err error) { f.reported = append(f.reported, err) }
	return f
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		task, err := f.svc.Create(ctx, "alice", f.loc, "Fix login", "", "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if task.Sequence != i || task.Status != domain.StatusNew {
			t.Errorf("task = %+v, want sequence %d status new", task, i)
		}
	}
	other := f.loc
	other.TaskList = &tasklistdomain.TaskList{ID: "l2", ProjectID: "p1", Sequence: 3}
	task, err := f.svc.Create(ctx, "alice", other, "Write docs", "progress", "bob")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Sequence != 1 || task.Status != domain.StatusInProgress || task.AssigneeID != "bob" {
		t.Errorf("task = %+v", task)
	}
}

func TestCreate_Rejects(t *testing.T) {
	f := newFixture(t)
	testCases := []struct {
		name, title, status, assignee string
		want                          error
	}{
		{"missing title", "  ", "new", "", nil},
		{"bad status", "Fix", "done", "", domain.ErrInvalidStatus},
		{"assignee outside project", "Fix", "new", "carol", ErrNotAssignable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), "alice", f.loc, tc.title, tc.status, tc.assignee)
			if _, ok := usererr.Message(err); !ok {
				t.Fatalf("Create = %v, want user-facing error", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("Create = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAddFollowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, err := f.svc.Create(ctx, "alice", f.loc, "Fix login", "new", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := f.svc.AddFollowUp(ctx, f.alice, f.loc, task, "Looks <b>bad</b><script>x()</script>", "hold", "bob")
	if err != nil {
		t.Fatalf("AddFollowUp: %v", err)
	}
	if updated.Status != domain.StatusHold || updated.AssigneeID != "bob" {
		t.Errorf("updated = %+v", updated)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(f.mailer.sent))
	}
	mail := f.mailer.sent[0]
	if mail.To != "bob@example.com" || mail.TaskList != 2 || mail.Task != 1 || mail.Status != "Hold" || mail.AuthorName != "Alice" {
		t.Errorf("assignment = %+v", mail)
	}
	if strings.Contains(mail.Message, "script") {
		t.Errorf("message not sanitized: %q", mail.Message)
	}

	views, err := f.svc.FollowUps(ctx, updated)
	if err != nil {
		t.Fatalf("FollowUps: %v", err)
	}
	if len(views) != 1 || views[0].Author.ID != "alice" || views[0].Assignee.ID != "bob" {
		t.Errorf("follow-ups = %+v", views)
	}

	// self-assignment sends nothing
	if _, err := f.svc.AddFollowUp(ctx, f.alice, f.loc, task, "mine", "in-progress", "alice"); err != nil {
		t.Fatalf("AddFollowUp: %v", err)
	}
	if len(f.mailer.sent) != 1 {
		t.Errorf("sent = %d after self-assignment, want 1", len(f.mailer.sent))
	}
}

func TestAddFollowUp_MailFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, _ := f.svc.Create(ctx, "alice", f.loc, "Fix login", "new", "")
	f.mailer.err = errors.New("mailgun down")

	if _, err := f.svc.AddFollowUp(ctx, f.alice, f.loc, task, "ping", "new", "bob"); err != nil {
		t.Fatalf("AddFollowUp: %v", err)
	}
	if len(f.reported) != 1 {
		t.Errorf("reported = %d, want 1", len(f.reported))
	}
	if f.logs.FilterMessage("assignment email failed").Len() != 1 {
		t.Error("expected a warning for the failed email")
	}
}

func TestAddFollowUp_UnknownTask(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddFollowUp(context.Background(), f.alice, f.loc, &domain.Task{ID: "missing"}, "x", "new", "")
	if err == nil {
		t.Fatal("AddFollowUp on a missing task should fail")
	}
}
