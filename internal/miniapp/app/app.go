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

	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	httpapi "github.com/nebulavpn/miniapp/internal/miniapp/http"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
	"github.com/nebulavpn/miniapp/internal/miniapp/store/drivers/sqlite"
	"github.com/nebulavpn/miniapp/pkg/metricsx"
	"github.com/nebulavpn/miniapp/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the whole service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	gate    *gate.Gate
	metrics *metricsx.Metrics

	accountService      *service.AccountService
	inviteService       *service.InviteService
	catalogService      *service.CatalogService
	vpnService          *service.VPNService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized,
// migrations applied and the seed admin in place.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "miniapp",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metricsx.New("miniapp"),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.gate = gate.New(gate.Config{
		Secret:             []byte(cfg.BotToken),
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}, app.db)
	if cfg.InsecureSkipVerify {
		app.logger.Warn("init data signature verification is DISABLED")
	}

	app.initServices()

	ctx := slogx.WithContext(context.Background(), app.logger)
	if err := app.bootstrapService.Seed(ctx); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to seed admin account: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("miniapp service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

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

// Shutdown gracefully stops the server, the housekeeper and the
// database, in that order.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down miniapp service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("miniapp service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

func (app *Application) initServices() {
	app.accountService = &service.AccountService{Store: app.db}
	app.inviteService = &service.InviteService{
		Store: app.db,
		Gate:  app.gate,
		TTL:   app.cfg.InviteTTL,
	}
	app.catalogService = &service.CatalogService{Store: app.db}
	app.vpnService = &service.VPNService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{
		Store:           app.db,
		AdminTgID:       app.cfg.SeedAdminTgID,
		AdminName:       app.cfg.SeedAdminName,
		AdminUsername:   app.cfg.SeedAdminUsername,
		AdminBalanceRub: app.cfg.SeedAdminBalanceRub,
		AdminTariffID:   app.cfg.SeedAdminTariffID,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.gate, BuildVersion, app.db, app.logger, app.metrics)

	router.AccountService = app.accountService
	router.InviteService = app.inviteService
	router.CatalogService = app.catalogService
	router.VPNService = app.vpnService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
