// Package app wires the microsite server runtime: config, logging, storage, HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	authapi "github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/auth/api"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/auth/magiclink"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/auth/session"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/directory"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/investor"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/mailer"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/metrics"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/registry"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/security/token"
)

// Store is a small app-level lifecycle abstraction for resources closed on shutdown.
type Store interface {
	Close(ctx context.Context) error
}

// resources owns the external connections. Stores built on them never close them.
type resources struct {
	pool  *pgxpool.Pool
	redis *redis.Client
	links magiclink.Store
}

func (r *resources) Close(_ context.Context) error {
	var errs []error
	if r.links != nil {
		errs = append(errs, r.links.Close())
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	if r.pool != nil {
		r.pool.Close()
	}
	return errors.Join(errs...)
}

// App is the microsite runtime: it owns HTTP server wiring and backing resources.
type App struct {
	cfg Config
	log Logger

	store *resources

	metrics  *metrics.Metrics
	auth     *authapi.Handler
	investor *investor.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	codec, err := session.NewCodec(sessCfg, log)
	if err != nil {
		return nil, err
	}
	authCfg, err := authapi.LoadConfigFromEnv(cfg.Production())
	if err != nil {
		return nil, fmt.Errorf("auth config: %w", err)
	}

	dir, err := directory.Load(cfg.DirectoryFile)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	res, err := openResources(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	linkKey, err := token.DeriveKey(sessCfg.Secret, token.PurposeMagicLink, 32)
	if err != nil {
		_ = res.Close(ctx)
		return nil, err
	}
	res.links, err = newLinkStore(res, linkKey, log)
	if err != nil {
		_ = res.Close(ctx)
		return nil, err
	}

	opts := []authapi.HandlerOption{
		authapi.WithProfiles(dir),
		authapi.WithMetrics(m),
	}
	sender, err := newSender(cfg, log)
	if err != nil {
		_ = res.Close(ctx)
		return nil, err
	}
	if sender != nil {
		opts = append(opts, authapi.WithSender(sender))
	}
	if res.pool != nil {
		opts = append(opts, authapi.WithAuditSink(authapi.NewPostgresAudit(res.pool, log)))
	}

	gate, err := newGate(cfg, res.pool, log)
	if err != nil {
		_ = res.Close(ctx)
		return nil, err
	}

	auth, err := authapi.NewHandler(log, authCfg, gate, res.links, codec, opts...)
	if err != nil {
		_ = res.Close(ctx)
		return nil, err
	}

	log.Info("app.configured",
		"env", cfg.Env,
		"directory_entries", dir.Len(),
		"db_enabled", res.pool != nil,
		"redis_enabled", res.redis != nil,
	)

	return &App{
		cfg:      cfg,
		log:      log,
		store:    res,
		metrics:  m,
		auth:     auth,
		investor: investor.NewHandler(log, dir),
	}, nil
}

// Close stops background work and releases backing resources. Run calls it on shutdown;
// callers that only use Handler must call it themselves.
func (a *App) Close(ctx context.Context) error {
	a.auth.Close()
	return a.store.Close(ctx)
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	a.registerHTTP(mux)

	// Outermost first: request id, logging, recover, security headers, CORS.
	var h http.Handler = mux
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithRecover(h, a.log)
	h = WithRequestLogging(h, a.log, a.metrics)
	h = WithRequestID(h)
	return h
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.auth.StartJanitors(nonZeroDuration(a.cfg.RateLimitSweepEvery, time.Minute))
	defer a.auth.Close()

	if p, ok := a.store.links.(linkPurger); ok {
		purgeCtx, stopPurge := context.WithCancel(ctx)
		defer stopPurge()
		go runLinkPurge(purgeCtx, p, nonZeroDuration(a.cfg.LinkPurgeEvery, 10*time.Minute), a.log)
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.store.pool != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.store.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// openResources connects to Postgres and Redis when configured, running migrations if asked.
func openResources(ctx context.Context, cfg Config, log Logger) (*resources, error) {
	res := &resources{}

	if cfg.DatabaseURL != "" {
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		res.pool = pool
		log.Info("db.enabled.postgres")

		if cfg.DBMigrate {
			if err := Migrate(ctx, pool); err != nil {
				_ = res.Close(ctx)
				return nil, err
			}
			log.Info("db.migrated")
		}
	}

	if cfg.RedisURL != "" {
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = res.Close(ctx)
			return nil, err
		}
		res.redis = client
		log.Info("redis.enabled")
	}

	return res, nil
}

// newLinkStore picks Redis, then Postgres, then process memory.
func newLinkStore(res *resources, hashKey []byte, log Logger) (magiclink.Store, error) {
	switch {
	case res.redis != nil:
		log.Info("magiclink.store", "backend", "redis")
		return magiclink.NewRedisStore(res.redis, magiclink.WithHashKey(hashKey))
	case res.pool != nil:
		log.Info("magiclink.store", "backend", "postgres")
		return magiclink.NewPostgresStore(res.pool, magiclink.WithHashKey(hashKey))
	default:
		log.Warn("magiclink.store", "backend", "memory", "note", "links do not survive restarts or span replicas")
		return magiclink.NewMemoryStore(magiclink.WithHashKey(hashKey))
	}
}

// newGate prefers the remote registry, then the investor_access table, then the static allowlist.
// Outside production a broken registry setting degrades to the next source; in production it
// fails startup.
func newGate(cfg Config, pool *pgxpool.Pool, log Logger) (*registry.Gate, error) {
	opts := []registry.GateOption{
		registry.WithLogger(log),
		registry.WithAttemptTimeout(cfg.RegistryTimeout),
		registry.WithRetries(uint64(max(cfg.RegistryRetries, 0)), registry.DefaultBaseDelay),
	}

	if cfg.RegistryURL != "" {
		lookup, err := registry.NewHTTPLookup(cfg.RegistryURL, cfg.RegistryToken, &http.Client{})
		if err != nil {
			if cfg.Production() {
				return nil, fmt.Errorf("%w: JBV_REGISTRY_URL: %w", ErrSecurityPolicy, err)
			}
			log.Error("registry.config.invalid", "err", err)
			return registry.NewGate(nil, opts...), nil
		}
		return registry.NewGate(lookup, opts...), nil
	}
	if cfg.RegistryDB {
		lookup, err := registry.NewPostgresLookup(pool)
		if err == nil {
			log.Info("registry.backend", "backend", "postgres")
			return registry.NewGate(lookup, opts...), nil
		}
		if cfg.Production() {
			return nil, fmt.Errorf("%w: JBV_REGISTRY_DB needs JBV_DATABASE_URL: %w", ErrSecurityPolicy, err)
		}
		log.Error("registry.config.invalid", "err", err, "note", "JBV_REGISTRY_DB needs JBV_DATABASE_URL")
	}
	if len(cfg.AuthorizedEmails) > 0 {
		return registry.NewGate(registry.NewStaticLookup(cfg.AuthorizedEmails), opts...), nil
	}

	if cfg.Production() {
		return nil, fmt.Errorf("%w: no investor registry configured", ErrSecurityPolicy)
	}
	log.Warn("registry.not_configured")
	return registry.NewGate(nil, opts...), nil
}

// newSender returns SMTP when configured, or the log sender outside production.
// An invalid SMTP setting is fatal in production and leaves no sender elsewhere.
func newSender(cfg Config, log Logger) (mailer.Sender, error) {
	if cfg.SMTPAddr != "" {
		s, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Addr:       cfg.SMTPAddr,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.SMTPFrom,
			Timeout:    cfg.SMTPTimeout,
			MaxRetries: uint64(max(cfg.SMTPRetries, 0)),
		}, log)
		if err != nil {
			if cfg.Production() {
				return nil, fmt.Errorf("%w: JBV_SMTP_ADDR/JBV_SMTP_FROM: %w", ErrSecurityPolicy, err)
			}
			log.Error("mailer.config.invalid", "err", err)
			return nil, nil
		}
		return s, nil
	}
	if cfg.Production() {
		return nil, fmt.Errorf("%w: JBV_SMTP_ADDR is required in production", ErrSecurityPolicy)
	}
	log.Warn("mailer.dev_log_sender")
	return mailer.NewLogSender(log), nil
}
