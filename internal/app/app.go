// Package app wires configuration, storage, clients, and services into one
// initialized core shared by every folio binary.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kineticrick/folio/internal/clients/eodhd"
	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/interfaces"
	"github.com/kineticrick/folio/internal/services/history"
	"github.com/kineticrick/folio/internal/services/importer"
	"github.com/kineticrick/folio/internal/services/prices"
	"github.com/kineticrick/folio/internal/storage"
	"github.com/kineticrick/folio/internal/storage/cache"
)

// App holds all initialized services, clients, and storage.
// It is the shared core used by cmd/folio-server, cmd/folio-sync, and
// cmd/folio-import.
type App struct {
	Config         *common.Config
	Logger         *common.Logger
	Storage        interfaces.StorageManager
	EODHDClient    interfaces.EODHDClient
	Cache          interfaces.Cache
	PriceFeed      interfaces.PriceFeed
	ImportService  interfaces.ImporterService
	HistoryService interfaces.HistoryService
	StartupTime    time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, clients, and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, FOLIO_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to binary directory
	if config.Storage.Events.Path != "" && !filepath.IsAbs(config.Storage.Events.Path) {
		config.Storage.Events.Path = filepath.Join(binDir, config.Storage.Events.Path)
	}
	if config.Storage.History.Path != "" && !filepath.IsAbs(config.Storage.History.Path) {
		config.Storage.History.Path = filepath.Join(binDir, config.Storage.History.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Clients.EODHD.APIKey == "" {
		logger.Warn().Msg("EODHD API key not configured - price sync will be unavailable")
	}
	eodhdClient := eodhd.NewClient(
		config.Clients.EODHD.APIKey,
		eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
		eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
		eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		eodhd.WithLogger(logger),
	)

	cacheService := cache.New()
	priceFeed := prices.NewService(eodhdClient, cacheService, config, logger)
	importService := importer.NewService(storageManager, config, logger)
	historyService := history.NewService(storageManager, priceFeed, cacheService, config, logger)

	logger.Info().
		Str("environment", config.Environment).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return &App{
		Config:         config,
		Logger:         logger,
		Storage:        storageManager,
		EODHDClient:    eodhdClient,
		Cache:          cacheService,
		PriceFeed:      priceFeed,
		ImportService:  importService,
		HistoryService: historyService,
		StartupTime:    time.Now(),
	}, nil
}

// Close stops the scheduler and releases storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
}
