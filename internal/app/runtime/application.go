package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	app "github.com/icook-app/icook/internal/app"
	"github.com/icook-app/icook/internal/app/httpapi"
	"github.com/icook-app/icook/internal/app/storage"
	"github.com/icook-app/icook/internal/app/storage/memory"
	"github.com/icook-app/icook/internal/app/storage/postgres"
	"github.com/icook-app/icook/internal/config"
	"github.com/icook-app/icook/internal/middleware"
	"github.com/icook-app/icook/pkg/logger"
)

const limiterCleanupInterval = 5 * time.Minute

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *http.Server
	limiter    *middleware.RateLimiter
	db         *sqlx.DB
}

// NewLogger builds the root logger described by cfg.
func NewLogger(cfg config.LoggingConfig) *logger.Logger {
	return logger.New(logger.LoggingConfig{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		FilePrefix: cfg.FilePrefix,
	})
}

// NewApplication opens storage, applies migrations when configured and
// builds the HTTP server.
func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = NewLogger(cfg.Logging)
	}

	sessions, db, err := buildSessions(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure storage: %w", err)
	}

	application := app.New(sessions, app.Options{BcryptCost: cfg.Security.BcryptCost}, log.Named("app"))
	limiter := middleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, log.Named("ratelimit"))

	return &Application{
		cfg: cfg,
		log: log,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           Handler(application, cfg, limiter, log),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
		limiter: limiter,
		db:      db,
	}, nil
}

// Handler stacks the outer middleware around the API router.
func Handler(application *app.Application, cfg *config.Config, limiter *middleware.RateLimiter, log *logger.Logger) http.Handler {
	var h http.Handler = httpapi.NewHandler(application, log.Named("http"))
	h = limiter.Handler(h)
	h = middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins).Handler(h)
	return middleware.Recover(log.Named("http"))(h)
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (a *Application) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.httpServer.Addr, err)
	}
	return a.Serve(ctx, listener)
}

// Serve is Run over an existing listener.
func (a *Application) Serve(ctx context.Context, listener net.Listener) error {
	a.limiter.StartCleanup(ctx, limiterCleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", listener.Addr())
		if err := a.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and closes the connection pool.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	a.log.Info("shutdown complete")
	return nil
}

func buildSessions(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Sessions, *sqlx.DB, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("database.driver is memory; data will not survive a restart")
		return memory.New(), nil, nil
	}

	if cfg.Database.AutoMigrate {
		version, err := postgres.Migrate(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("version", version).Info("database schema up to date")
	}

	db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, postgres.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return postgres.NewSessions(db), db, nil
}
