// Package app wires configuration into storage, sessions, and the HTTP
// server, and runs them until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Dan9191/secrets-board/internal/auth"
	"github.com/Dan9191/secrets-board/internal/config"
	"github.com/Dan9191/secrets-board/internal/feed"
	"github.com/Dan9191/secrets-board/internal/handler"
	"github.com/Dan9191/secrets-board/internal/integrations/google"
	"github.com/Dan9191/secrets-board/internal/metrics"
	"github.com/Dan9191/secrets-board/internal/middleware"
	"github.com/Dan9191/secrets-board/internal/notify"
	"github.com/Dan9191/secrets-board/internal/repository"
	"github.com/Dan9191/secrets-board/internal/service"
	"github.com/Dan9191/secrets-board/internal/session"
	"github.com/Dan9191/secrets-board/internal/view"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg     *config.Config
	log     *logrus.Logger
	repo    repository.Repository
	redis   *session.RedisStore
	sweeper *cron.Cron
	handler http.Handler
}

// New opens the configured backends and builds the router
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.repo = repo

	store, err := a.openSessionStore(ctx)
	if err != nil {
		a.repo.Close(ctx)
		return nil, err
	}

	var notifier service.Notifier
	if cfg.SMTPEnabled() {
		notifier = notify.NewSender(cfg, log)
	} else {
		log.Info("SMTP not configured, welcome mail disabled")
	}
	svc := service.NewService(repo, log, notifier)

	var provider auth.ExternalProvider
	if cfg.GoogleEnabled() {
		provider = google.NewClient(cfg, log)
	} else {
		log.Info("Google OAuth not configured, /auth/google disabled")
	}

	views, err := view.NewRenderer()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	m := metrics.New()
	sessions := session.NewManager(store, session.Options{
		CookieName: cfg.SessionCookieName,
		Secret:     cfg.SessionSecret,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.CookieSecure,
	})

	h := handler.NewHandler(handler.Deps{
		Service:  svc,
		Sessions: sessions,
		Views:    views,
		States:   auth.NewStateSigner(cfg.SessionSecret),
		Provider: provider,
		Metrics:  m,
		Feed: feed.Channel{
			Title:       "Secrets",
			SiteURL:     cfg.SiteURL,
			Description: "Posts shared on the secrets board",
		},
		Logger:        log,
		SecureCookies: cfg.CookieSecure,
	})
	a.handler = h.NewRouter(
		middleware.LoggingMiddleware(log),
		middleware.MetricsMiddleware(m),
		middleware.SessionMiddleware(sessions, svc, log),
	)

	return a, nil
}

func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		return repository.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StorePostgres:
		return repository.OpenPostgres(ctx, cfg.PostgresDSN)
	case config.StoreMemory:
		return repository.NewMemoryRepository(), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

func (a *App) openSessionStore(ctx context.Context) (session.Store, error) {
	if a.cfg.SessionStore == config.SessionRedis {
		rs, err := session.NewRedisStore(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = rs
		return rs, nil
	}

	ms := session.NewMemoryStore()
	sweeper, err := session.NewSweeper(ms, a.cfg.SessionSweepSchedule, a.log)
	if err != nil {
		return nil, err
	}
	a.sweeper = sweeper
	return ms, nil
}

// Handler returns the application's root HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully and
// releases every backend
func (a *App) Run(ctx context.Context) error {
	defer a.Close(context.Background())

	ln, err := net.Listen("tcp", ":"+a.cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", a.cfg.Port, err)
	}

	server := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if a.sweeper != nil {
		a.sweeper.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("Starting server on %s", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Close stops the sweeper and releases the store and session backends
func (a *App) Close(ctx context.Context) {
	if a.sweeper != nil {
		<-a.sweeper.Stop().Done()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(ctx); err != nil {
			a.log.WithError(err).Warn("Failed to close store")
		}
	}
}
