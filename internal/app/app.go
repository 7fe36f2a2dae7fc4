package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/handlers"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/browser"
	"github.com/ternarybob/vigil/internal/services/events"
	"github.com/ternarybob/vigil/internal/services/login"
	"github.com/ternarybob/vigil/internal/services/otp"
	"github.com/ternarybob/vigil/internal/services/pacing"
	"github.com/ternarybob/vigil/internal/services/registry"
	"github.com/ternarybob/vigil/internal/services/scanner"
	"github.com/ternarybob/vigil/internal/services/session"
	badgerstorage "github.com/ternarybob/vigil/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Core services
	EventService    interfaces.EventService
	RegistryService *registry.Service
	PacingService   *pacing.Service
	OTPService      *otp.Service
	SessionService  *session.Service
	LoginService    *login.Service
	ScannerService  *scanner.Service

	// Browser is the single process resource shared by all scans
	Browser interfaces.Browser

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	ScanHandler    *handlers.ScanHandler
	TargetHandler  *handlers.TargetHandler
	SessionHandler *handlers.SessionHandler
	WSHandler      *handlers.WebSocketHandler

	scheduler *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initBrowser(); err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	app.initServices()
	app.initHandlers()

	if err := app.initScheduler(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	logger.Info().
		Int("targets", len(app.RegistryService.List())).
		Bool("headless", cfg.Browser.Headless).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badgerstorage.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initBrowser launches the shared browser process. The app owns its
// lifetime; scans only ever open and close pages.
func (a *App) initBrowser() error {
	b, err := browser.New(a.Config.Browser, a.Logger)
	if err != nil {
		return err
	}
	a.Browser = b
	return nil
}

func (a *App) initServices() {
	a.EventService = events.NewService(a.Logger)
	a.RegistryService = registry.NewService()
	a.PacingService = pacing.NewService(a.Config.Pacing, a.Logger)
	a.OTPService = otp.NewService(a.Config.OTP, a.Logger)
	a.SessionService = session.NewService(a.StorageManager.SessionStorage(), a.Config.Scanner, a.Logger)
	a.LoginService = login.NewService(a.OTPService, a.PacingService, a.SessionService, a.Config.OTP, a.Logger)
	a.ScannerService = scanner.NewService(
		a.RegistryService,
		a.LoginService,
		a.PacingService,
		a.Browser,
		a.StorageManager.ScanLogStorage(),
		a.EventService,
		a.Config.Scanner,
		a.Logger,
	)
}

func (a *App) initHandlers() {
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
	a.APIHandler = handlers.NewAPIHandler(a.StorageManager.ScanLogStorage(), a.Logger)
	a.ScanHandler = handlers.NewScanHandler(a.ScannerService, a.Logger)
	a.TargetHandler = handlers.NewTargetHandler(a.RegistryService, a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(a.SessionService, a.Logger)
}

// initScheduler starts the watchlist cron when a schedule is configured.
// Watchlist scans run unauthenticated: they only read public availability.
func (a *App) initScheduler() error {
	schedule := a.Config.Scanner.Schedule
	watchlist := a.Config.Scanner.Watchlist
	if schedule == "" || len(watchlist) == 0 {
		a.Logger.Debug().Msg("Watchlist scheduler disabled")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		a.Logger.Info().Int("targets", len(watchlist)).Msg("Scheduled watchlist scan starting")
		batch := a.ScannerService.ScanBatch(context.Background(), &models.BatchScanRequest{
			TargetIDs: watchlist,
			UserID:    "watchlist",
		})
		a.Logger.Info().
			Int("scanned", batch.Scanned).
			Int("found", batch.Found).
			Msg("Scheduled watchlist scan finished")
	})
	if err != nil {
		return fmt.Errorf("invalid watchlist schedule %q: %w", schedule, err)
	}

	c.Start()
	a.scheduler = c
	a.Logger.Info().
		Str("schedule", schedule).
		Int("targets", len(watchlist)).
		Msg("Watchlist scheduler started")
	return nil
}

// Close releases all application resources in reverse initialization order.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.Browser != nil {
		if err := a.Browser.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Browser close failed")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
			return err
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
