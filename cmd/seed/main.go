// seed inserts development sample data into the Postgres store. Run after migrate.
// Idempotent: skips everything if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"os"

	"titan/internal/config"
	"titan/internal/db"
	identityservice "titan/internal/identity/service"
	"titan/internal/logger"
	"titan/internal/notify"
	orgservice "titan/internal/organisation/service"
	"titan/internal/policy/engine"
	projectservice "titan/internal/project/service"
	"titan/internal/security"
	"titan/internal/store"
	taskdomain "titan/internal/task/domain"
	taskservice "titan/internal/task/service"
	tasklistservice "titan/internal/tasklist/service"
)

const (
	devUserEmail = "dev@example.com"
	memberEmail  = "member@example.com"
	devPassword  = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New("titan-seed", cfg.Env)
	defer func() { _ = log.Sync() }()
	if cfg.StoreDriver != config.StoreDriverPostgres {
		log.Fatal("seed needs STORE_DRIVER=postgres")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open database", "error", err)
	}
	defer conn.Close()

	if err := seed(context.Background(), cfg, store.NewPostgres(conn), log); err != nil {
		log.Fatal("seed failed", "error", err)
	}
}

func seed(ctx context.Context, cfg *config.Config, st *store.Store, log *logger.Logger) error {
	existing, err := st.Users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Info("seed already applied; skipping", "email", devUserEmail)
		return nil
	}

	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey, true)
	if err != nil {
		return err
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTL(), cfg.InvitationTTL())
	authz, err := engine.NewOPAEvaluator(nil)
	if err != nil {
		return err
	}
	mailer, err := notify.NewMailer(notify.NewLogSender(log), cfg.EmailSender, cfg.PublicURL, notify.Templates, "templates", log)
	if err != nil {
		return err
	}

	auth := identityservice.NewAuthService(st.Users, st.Identities, st.Sessions, security.NewHasher(cfg.BcryptCost), tokens)
	orgs := orgservice.NewService(st.Organisations, st.Teams, st.Users, authz, nil)
	projects := projectservice.NewService(st.Projects, st.Teams, st.Organisations, authz, tokens, mailer, nil)
	lists := tasklistservice.NewService(st.TaskLists, nil)
	tasks := taskservice.NewService(st.Tasks, st.Teams, st.Users, authz, mailer, nil, log)

	dev, err := auth.Register(ctx, devUserEmail, devPassword, "Dev User")
	if err != nil {
		return fmt.Errorf("register dev user: %w", err)
	}
	member, err := auth.Register(ctx, memberEmail, devPassword, "Member User")
	if err != nil {
		return fmt.Errorf("register member: %w", err)
	}

	org, err := orgs.Create(ctx, dev.ID, "Acme Dev", "acme")
	if err != nil {
		return fmt.Errorf("create organisation: %w", err)
	}
	team, err := orgs.AddTeam(ctx, dev.ID, org, "Engineering")
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	if _, err := st.Teams.AddMember(ctx, team.ID, member.ID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	p, err := projects.Create(ctx, dev.ID, org, "Website", "website", team.ID)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	list, err := lists.Create(ctx, dev.ID, p, "Launch")
	if err != nil {
		return fmt.Errorf("create task list: %w", err)
	}
	loc := taskservice.Location{Organisation: org, Project: p, TaskList: list}
	for _, title := range []string{"Write landing copy", "Set up analytics"} {
		if _, err := tasks.Create(ctx, dev.ID, loc, title, string(taskdomain.StatusNew), member.ID); err != nil {
			return fmt.Errorf("create task %q: %w", title, err)
		}
	}

	log.Info("seed completed", "dev_login", devUserEmail, "member_login", memberEmail, "password", devPassword)
	return nil
}
