package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quickshift/internal/domain/admins"
	"quickshift/internal/domain/applications"
	"quickshift/internal/domain/audit"
	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/completions"
	"quickshift/internal/domain/employers"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/domain/notifications"
	"quickshift/internal/domain/ratings"
	"quickshift/internal/domain/users"
	"quickshift/internal/domain/webhooks"
	"quickshift/internal/platform/config"
	cryptoutil "quickshift/internal/platform/crypto"
	"quickshift/internal/platform/db"
	"quickshift/internal/platform/email"
	"quickshift/internal/platform/jobs"
	"quickshift/internal/platform/metrics"
	"quickshift/internal/platform/payments"
	"quickshift/internal/platform/ws"
	adminhandler "quickshift/internal/transport/http/handlers/admin"
	applicationshandler "quickshift/internal/transport/http/handlers/applications"
	audithandler "quickshift/internal/transport/http/handlers/audit"
	authhandler "quickshift/internal/transport/http/handlers/auth"
	completionshandler "quickshift/internal/transport/http/handlers/completions"
	employershandler "quickshift/internal/transport/http/handlers/employers"
	gigshandler "quickshift/internal/transport/http/handlers/gigs"
	notificationshandler "quickshift/internal/transport/http/handlers/notifications"
	ratingshandler "quickshift/internal/transport/http/handlers/ratings"
	usershandler "quickshift/internal/transport/http/handlers/users"
	webhookshandler "quickshift/internal/transport/http/handlers/webhooks"
	"quickshift/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Hub     *ws.Hub
	Metrics *metrics.Collector

	cancel context.CancelFunc
}

// New connects to Postgres, applies migrations and the seed, and assembles every service and route.
// Background workers start immediately and stop on Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}

	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	cryptoSvc, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key invalid: %w", err)
	}
	rules, err := applications.NewRuleEvaluator()
	if err != nil {
		pool.Close()
		return nil, err
	}
	if cfg.Platform.InstantApply.Rule != "" {
		if err := rules.Compile(cfg.Platform.InstantApply.Rule); err != nil {
			pool.Close()
			return nil, fmt.Errorf("instant apply rule invalid: %w", err)
		}
	}
	authz, err := auth.NewAuthorizer()
	if err != nil {
		pool.Close()
		return nil, err
	}

	collector := metrics.New()
	hub := ws.NewHub(collector)
	jobsSvc := jobs.New(jobs.NewStore(pool), collector)
	gateway := payments.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	mailer := email.New(ctx, cfg)

	authStore := auth.NewStore(pool)
	tokens := auth.NewTokenService(authStore, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authSvc := auth.NewService(authStore, tokens, cryptoSvc, cfg.PasswordResetTTL)

	notificationsSvc := notifications.New(notifications.NewStore(pool), mailer, cfg.EmailFrom, cfg.Platform.Notifications)
	notificationsSvc.SetPublisher(hub)
	notificationsSvc.SetJobs(jobsSvc)
	notificationsSvc.SetObserver(collector)

	usersSvc := users.NewService(users.NewStore(pool), gateway, tokens)
	employersSvc := employers.NewService(employers.NewStore(pool), gateway, tokens)
	adminsSvc := admins.NewService(admins.NewStore(pool))
	auditSvc := audit.New(pool)

	gigsSvc := gigs.NewService(gigs.NewStore(pool))
	gigsSvc.SetNotifier(notificationsSvc)
	gigsSvc.SetPublisher(notificationsSvc)

	applicationsSvc := applications.NewService(applications.NewStore(pool), gigsSvc, usersSvc, rules, applications.Options{
		Rule:               cfg.Platform.InstantApply.Rule,
		DefaultCoverLetter: cfg.Platform.InstantApply.DefaultCoverLetter,
	})
	applicationsSvc.SetNotifier(notificationsSvc)

	pricing := completions.Pricing{ServiceFeeRate: cfg.Platform.Pricing.ServiceFeeRate, TaxRate: cfg.Platform.Pricing.TaxRate}
	completionsSvc := completions.NewService(completions.NewStore(pool), gateway, gigsSvc, employersSvc, pricing, cfg.Platform.Pricing.Currency)
	completionsSvc.SetNotifier(notificationsSvc)
	completionsSvc.SetObserver(collector)

	ratingsSvc := ratings.NewService(ratings.NewStore(pool), gigsSvc)
	webhooksSvc := webhooks.NewService(webhooks.NewStore(pool), gateway, completionsSvc, usersSvc, jobsSvc)
	idempotency := middleware.NewIdempotencyStore(pool)

	if err := scheduleJobs(cfg, jobsSvc, completionsSvc, gigsSvc, tokens); err != nil {
		pool.Close()
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	if cfg.MetricsEnabled {
		router.Use(collector.Middleware)
	}
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc, tokens, usersSvc, employersSvc, adminsSvc, notificationsSvc, cfg.FrontendURL).RegisterRoutes(r)
		usershandler.NewHandler(usersSvc, authz, auditSvc, cfg.FrontendURL).RegisterRoutes(r)
		employershandler.NewHandler(employersSvc, gigsSvc).RegisterRoutes(r)
		gigshandler.NewHandler(gigsSvc, applicationsSvc, authz, idempotency, cfg.Platform.Notifications).RegisterRoutes(r)
		applicationshandler.NewHandler(applicationsSvc, authz).RegisterRoutes(r)
		completionshandler.NewHandler(completionsSvc, authz, idempotency).RegisterRoutes(r)
		ratingshandler.NewHandler(ratingsSvc, authz).RegisterRoutes(r)
		notificationshandler.NewHandler(notificationsSvc, hub, authz).RegisterRoutes(r)
		adminhandler.NewHandler(usersSvc, employersSvc, gigsSvc, completionsSvc, adminsSvc, auditSvc, collector, authz).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, authz).RegisterRoutes(r)
		webhookshandler.NewHandler(webhooksSvc).RegisterRoutes(r)
	})

	bgCtx, cancel := context.WithCancel(context.Background())
	go hub.Run(bgCtx)
	jobsSvc.Start(bgCtx)

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Jobs:    jobsSvc,
		Hub:     hub,
		Metrics: collector,
		cancel:  cancel,
	}, nil
}

func scheduleJobs(cfg config.Config, jobsSvc *jobs.Service, completionsSvc *completions.Service, gigsSvc *gigs.Service, tokens *auth.TokenService) error {
	expireAfter := time.Duration(cfg.Platform.Gigs.ExpireAfterHours) * time.Hour
	schedules := []struct {
		spec    string
		jobType string
		run     jobs.RunFunc
	}{
		{cfg.TransferRetrySchedule, jobs.JobTransferRetry, func(ctx context.Context) (any, error) {
			return completionsSvc.RetryAllFailed(ctx)
		}},
		{cfg.GigExpirySchedule, jobs.JobGigExpiry, func(ctx context.Context) (any, error) {
			n, err := gigsSvc.ExpireStale(ctx, expireAfter)
			return map[string]int64{"expired": n}, err
		}},
		{cfg.TokenPurgeSchedule, jobs.JobTokenPurge, func(ctx context.Context) (any, error) {
			n, err := tokens.PurgeExpired(ctx)
			return map[string]int64{"purged": n}, err
		}},
	}
	for _, s := range schedules {
		if err := jobsSvc.Schedule(s.spec, s.jobType, s.run); err != nil {
			return fmt.Errorf("schedule %s: %w", s.jobType, err)
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("QuickShift server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close stops background work and releases the pool.
func (a *App) Close() {
	a.cancel()
	a.Jobs.Stop()
	a.DB.Close()
}
