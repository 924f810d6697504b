package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/webinarhub/internal/auth"
	"github.com/dukerupert/webinarhub/internal/config"
	"github.com/dukerupert/webinarhub/internal/database"
	"github.com/dukerupert/webinarhub/internal/email"
	"github.com/dukerupert/webinarhub/internal/handler"
	"github.com/dukerupert/webinarhub/internal/logging"
	"github.com/dukerupert/webinarhub/internal/metrics"
	"github.com/dukerupert/webinarhub/internal/oauth"
	"github.com/dukerupert/webinarhub/internal/registration"
	"github.com/dukerupert/webinarhub/internal/server"
	"github.com/dukerupert/webinarhub/internal/store"
	"github.com/dukerupert/webinarhub/internal/store/postgres"
)

type userStore interface {
	auth.UserStore
	auth.CredentialStore
}

type sessionStore interface {
	auth.SessionStore
	auth.SessionCreator
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// backend is one database driver's set of stores.
type backend struct {
	users         userStore
	sessions      sessionStore
	registrations registration.Store
	webinars      handler.WebinarReader
	categories    handler.CategoryLister
	ping          func(context.Context) error
	close         func()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "webinarhub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()
	logger.Info("database ready", "driver", cfg.DBDriver)

	codec, err := newCodec(cfg, logger)
	if err != nil {
		return err
	}

	var provider handler.OAuthProvider
	if cfg.GoogleEnabled() {
		g, err := oauth.NewGoogle(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			return err
		}
		provider = g
		logger.Info("google login enabled")
	}

	var confirmations handler.ConfirmationSender
	if cfg.EmailEnabled() {
		confirmations = email.NewClient(cfg.PostmarkServerToken, cfg.PostmarkFromEmail, cfg.BaseURL)
		logger.Info("registration confirmation emails enabled")
	}

	srv := server.New(server.Deps{
		Validator:      auth.NewValidator(codec, be.users, be.sessions, logger),
		Credentials:    auth.NewCredentials(be.users),
		Issuer:         auth.NewIssuer(codec, be.sessions, cfg.SessionTTL),
		Sessions:       be.sessions,
		Ledger:         registration.NewLedger(be.registrations),
		Webinars:       be.webinars,
		Categories:     be.categories,
		OAuth:          provider,
		Confirmations:  confirmations,
		Ping:           be.ping,
		RateLimit:      cfg.RateLimit,
		SecureCookies:  cfg.SecureCookies,
		AllowedOrigins: cfg.AllowedOrigins,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}, logger)

	go sweepSessions(ctx, be.sessions, cfg.SessionSweep, logger.With("component", "session_sweep"))
	go cleanupRateLimiter(ctx, srv, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webinarhub listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.DBDriver {
	case "postgres":
		pool, err := database.OpenPostgres(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &backend{
			users:         postgres.NewUserStore(pool),
			sessions:      postgres.NewSessionStore(pool),
			registrations: postgres.NewRegistrationStore(pool),
			webinars:      postgres.NewWebinarStore(pool),
			categories:    postgres.NewCategoryStore(pool),
			ping:          pool.Ping,
			close:         pool.Close,
		}, nil
	default:
		db, err := database.Open(cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &backend{
			users:         store.NewUserStore(db),
			sessions:      store.NewSessionStore(db),
			registrations: store.NewRegistrationStore(db),
			webinars:      store.NewWebinarStore(db),
			categories:    store.NewCategoryStore(db),
			ping:          db.PingContext,
			close:         func() { db.Close() },
		}, nil
	}
}

func newCodec(cfg *config.Config, logger *slog.Logger) (auth.Codec, error) {
	signed, err := auth.NewSignedCodec(cfg.TokenKey)
	if err != nil {
		return nil, err
	}
	if !cfg.LegacyTokens {
		return signed, nil
	}
	logger.Warn("accepting unsigned legacy session tokens; disable AUTH_LEGACY_TOKENS once old sessions have expired")
	return auth.NewFallbackCodec(signed, auth.LegacyCodec{}), nil
}

// sweepSessions deactivates sessions past their expiry on every tick.
func sweepSessions(ctx context.Context, sessions sessionStore, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeactivateExpired(ctx, time.Now())
			if err != nil {
				logger.Error("deactivate expired sessions", "error", err)
				continue
			}
			if n > 0 {
				metrics.SessionsSwept.Add(float64(n))
				logger.Info("deactivated expired sessions", "count", n)
			}
		}
	}
}

func cleanupRateLimiter(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.RateLimiter().Cleanup(10 * time.Minute)
			logger.Debug("rate limiter cleanup")
		}
	}
}
