package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/expressmart/identity/internal/identity/http"
	"github.com/expressmart/identity/internal/identity/notify"
	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/internal/identity/store"
	"github.com/expressmart/identity/internal/identity/store/drivers/sqlite"
	"github.com/expressmart/identity/pkg/cryptox"
	"github.com/expressmart/identity/pkg/jwtx"
	"github.com/expressmart/identity/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	signer jwtx.Signer
	keys   *jwtx.KeySet

	// Services
	sessionService      *service.SessionService
	invitationService   *service.InvitationService
	resetService        *service.ResetService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initKeys(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initKeys loads the Ed25519 signing key, or generates an ephemeral one
// when no key file is configured. Ephemeral keys invalidate all issued
// tokens on restart.
func (app *Application) initKeys() error {
	var (
		signer jwtx.Signer
		err    error
	)

	if app.cfg.SigningKeyFile != "" {
		pemKey, readErr := os.ReadFile(app.cfg.SigningKeyFile)
		if readErr != nil {
			return fmt.Errorf("failed to read signing key: %w", readErr)
		}
		signer, err = jwtx.NewSignerFromPEM("primary", pemKey)
		if err != nil {
			return fmt.Errorf("failed to load signing key: %w", err)
		}
		app.logger.Info("signing key loaded", "path", app.cfg.SigningKeyFile, "alg", signer.Alg())
	} else {
		signer, err = jwtx.NewEphemeralSigner()
		if err != nil {
			return fmt.Errorf("failed to generate signing key: %w", err)
		}
		app.logger.Warn("using ephemeral signing key, issued tokens will not survive a restart")
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return fmt.Errorf("failed to register signing key: %w", err)
	}

	app.signer = signer
	app.keys = keys
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	notifier := app.initNotifier()

	app.sessionService = &service.SessionService{
		Store:      app.db,
		Signer:     app.signer,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.invitationService = &service.InvitationService{
		Store:    app.db,
		Notifier: notifier,
		TTL:      app.cfg.InviteTTL,
		BaseURL:  app.cfg.BaseURL,
	}

	app.resetService = &service.ResetService{
		Store:    app.db,
		Notifier: notifier,
		TTL:      app.cfg.ResetTTL,
		BaseURL:  app.cfg.BaseURL,
		Policy: service.ResetPolicy{
			MaskUnknownEmail:      app.cfg.MaskUnknownEmail,
			RejectExpiredApproval: app.cfg.RejectExpiredApproval,
		},
	}

	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Token: app.cfg.BootstrapToken,
	}

	if app.cfg.HousekeepingInterval > 0 {
		app.housekeepingService = service.NewHousekeepingService(
			app.db,
			app.logger,
			app.cfg.HousekeepingInterval,
		)
	}
}

// initNotifier picks the outbound mail transport. Without an SMTP host
// notifications only land in the log, which suits dev and tests.
func (app *Application) initNotifier() notify.Sender {
	if app.cfg.SMTPHost == "" {
		app.logger.Info("no SMTP host configured, notifications go to the log")
		return notify.NewLogSender()
	}

	app.logger.Info("SMTP notifications enabled", "host", app.cfg.SMTPHost, "port", app.cfg.SMTPPort)
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
	})
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	verifier := jwtx.NewVerifier(app.keys, app.cfg.Issuer)

	router := httpapi.NewRouter(
		app.keys,
		verifier,
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.SessionService = app.sessionService
	router.InvitationService = app.invitationService
	router.ResetService = app.resetService
	router.BootstrapService = app.bootstrapService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
