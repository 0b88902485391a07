// Package app wires configuration, storage, services, and the HTTP server
// into a runnable identity service.
package app

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

	identityhttp "github.com/mantenix/identity/internal/identity/http"
	"github.com/mantenix/identity/internal/identity/mailer"
	"github.com/mantenix/identity/internal/identity/ratelimit"
	"github.com/mantenix/identity/internal/identity/service"
	"github.com/mantenix/identity/internal/identity/store"
	"github.com/mantenix/identity/internal/identity/store/drivers/postgres"
	"github.com/mantenix/identity/internal/identity/store/drivers/sqlite"
	"github.com/mantenix/identity/pkg/cryptox"
	"github.com/mantenix/identity/pkg/jwtx"
	"github.com/mantenix/identity/pkg/slogx"
)

// Application owns the long-lived pieces of the service.
type Application struct {
	cfg    Config
	logger *slog.Logger
	store  store.Store
	server *http.Server

	housekeeping *service.HousekeepingService
}

// New builds the full application from config. The caller owns Run/Shutdown.
func New(cfg Config) (*Application, error) {
	logger := slogx.New(slogx.Config{
		Service: cfg.Service,
		Version: cfg.Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if cfg.PepperPath != "" {
		cryptox.SetPepperPath(cfg.PepperPath)
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	keys, err := jwtx.GenerateKeyPair()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var m mailer.Mailer
	if cfg.MailRelayURL != "" {
		m, err = mailer.NewRelayMailer(cfg.MailRelayURL, cfg.MailRelayTimeout)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	} else {
		logger.Warn("no mail relay configured, invitation emails are logged only")
		m = &mailer.LogMailer{Logger: logger}
	}

	inviteLimiter := ratelimit.New(cfg.InviteLimitMax, cfg.InviteLimitWindow)
	authLimiter := ratelimit.New(cfg.AuthLimitMax, cfg.AuthLimitWindow)

	guard := &service.Guard{Store: st}
	handlers := &identityhttp.Handlers{
		Auth: &service.AuthService{
			Store:   st,
			Signer:  &jwtx.Signer{Key: keys.Private, Issuer: cfg.Issuer, TTL: cfg.SessionTTL},
			Limiter: authLimiter,
		},
		Invitations: &service.InvitationService{
			Store:           st,
			Mailer:          m,
			Guard:           guard,
			Limiter:         inviteLimiter,
			KeyScope:        cfg.InviteLimitScope,
			CallbackBaseURL: cfg.CallbackBaseURL,
			InviteTTL:       cfg.InviteTTL,
		},
		Profiles: &service.ProfileService{Store: st},
		Guard:    guard,
		Store:    st,
		Verifier: &jwtx.Verifier{Key: keys.Public, Issuer: cfg.Issuer},
	}

	app := &Application{
		cfg:    cfg,
		logger: logger,
		store:  st,
		housekeeping: &service.HousekeepingService{
			Limiters: []*ratelimit.Limiter{inviteLimiter, authLimiter},
			Interval: cfg.SweepInterval,
			Logger:   logger,
		},
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           identityhttp.NewRouter(handlers, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	if created, err := handlers.Profiles.SeedAdmin(
		context.Background(), cfg.SeedAdminEmail, cfg.SeedAdminPassword,
	); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("seed admin: %w", err)
	} else if created {
		logger.Info("seeded initial admin account")
	}

	return app, nil
}

func openStore(cfg Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.NewStore(cfg.DBDSN)
	default:
		return sqlite.NewStore(cfg.DBDSN)
	}
}

// Run serves HTTP until the context is cancelled or SIGINT/SIGTERM arrives,
// then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.housekeeping.Start()
	defer a.housekeeping.Stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return a.store.Close()
}
