// server serves the Titan web application over HTTP.
package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"titan/internal/audit"
	"titan/internal/config"
	"titan/internal/db"
	healthhandler "titan/internal/health/handler"
	identityhandler "titan/internal/identity/handler"
	identityservice "titan/internal/identity/service"
	"titan/internal/logger"
	"titan/internal/notify"
	orghandler "titan/internal/organisation/handler"
	orgservice "titan/internal/organisation/service"
	"titan/internal/policy/engine"
	projecthandler "titan/internal/project/handler"
	projectservice "titan/internal/project/service"
	"titan/internal/security"
	"titan/internal/server"
	"titan/internal/server/middleware"
	"titan/internal/store"
	taskhandler "titan/internal/task/handler"
	taskservice "titan/internal/task/service"
	tasklisthandler "titan/internal/tasklist/handler"
	tasklistservice "titan/internal/tasklist/service"
	telemetryotel "titan/internal/telemetry/otel"
	"titan/internal/web"
)

const serviceName = "titan"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(serviceName, cfg.Env)
	defer func() { _ = log.Sync() }()

	if err := serve(cfg, log); err != nil {
		log.Fatal("server exited", "error", err)
	}
}

func serve(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SentryDSN != "" {
		hostname, _ := os.Hostname()
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			ServerName:       hostname,
			Environment:      cfg.Env,
			Release:          version,
			TracesSampleRate: 0.1,
		}); err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("otel shutdown", "error", err)
		}
	}()

	checks := map[string]healthhandler.Checker{}
	var st *store.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		st = store.NewMemory()
	default:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer conn.Close()
		st = store.NewPostgres(conn)
		checks["database"] = pingChecker(conn)
	}

	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey, !cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("jwt keys: %w", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTL(), cfg.InvitationTTL())

	var policies map[string]string
	if cfg.AuthzPolicyFile != "" {
		if policies, err = engine.LoadPolicyFile(cfg.AuthzPolicyFile); err != nil {
			return fmt.Errorf("authz policy: %w", err)
		}
	}
	authz, err := engine.NewOPAEvaluator(policies)
	if err != nil {
		return fmt.Errorf("authz: %w", err)
	}
	checks["authz"] = authz

	var sender notify.Sender = notify.NewLogSender(log)
	if cfg.MailgunEnabled() {
		sender = notify.NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey)
	}
	mailer, err := notify.NewMailer(sender, cfg.EmailSender, cfg.PublicURL, notify.Templates, "templates", log)
	if err != nil {
		return err
	}

	cookieKey := []byte(cfg.CookieKey)
	if len(cookieKey) == 0 {
		log.Warn("COOKIE_KEY not set; sessions do not survive a restart")
		cookieKey = make([]byte, 32)
		if _, err := rand.Read(cookieKey); err != nil {
			return err
		}
	}
	site, err := web.NewSite(web.Templates, web.NewCookies(cookieKey, cfg.CookieSecure), log)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	auditLogger := audit.NewLogger(st.Audit, web.ClientIP, log)
	auth := identityservice.NewAuthService(st.Users, st.Identities, st.Sessions, security.NewHasher(cfg.BcryptCost), tokens)
	orgs := orgservice.NewService(st.Organisations, st.Teams, st.Users, authz, auditLogger)
	projects := projectservice.NewService(st.Projects, st.Teams, st.Organisations, authz, tokens, mailer, auditLogger)
	lists := tasklistservice.NewService(st.TaskLists, auditLogger)
	tasks := taskservice.NewService(st.Tasks, st.Teams, st.Users, authz, mailer, auditLogger, log)
	access := st.Access()

	handler := server.NewRouter(server.Deps{
		Site:           site,
		Auth:           auth,
		Identity:       identityhandler.NewHandler(auth, site),
		Organisations:  orghandler.NewHandler(orgs, access, site),
		Projects:       projecthandler.NewHandler(projects, access, site),
		TaskLists:      tasklisthandler.NewHandler(lists, access, site),
		Tasks:          taskhandler.NewHandler(tasks, access, site),
		Health:         healthhandler.NewServer(checks),
		Metrics:        middleware.NewMetrics(prometheus.DefaultRegisterer),
		MetricsHandler: promhttp.Handler(),
		Sentry:         cfg.SentryDSN != "",
		Log:            log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g := &run.Group{}
	g.Add(run.SignalHandler(ctx, os.Interrupt))
	g.Add(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		cancel()
	})

	err = g.Run()
	if errors.Is(err, run.SignalError{Signal: os.Interrupt}) {
		log.Info("shutting down", "reason", err)
		return nil
	}
	return err
}

func pingChecker(conn *sql.DB) healthhandler.Checker {
	return healthhandler.CheckerFunc(func(ctx context.Context) error {
		return conn.PingContext(ctx)
	})
}
