// Package app wires configuration, storage and services into one process.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/roundup/internal/clients/eodhd"
	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/services/allocation"
	"github.com/bobmcallan/roundup/internal/services/executor"
	"github.com/bobmcallan/roundup/internal/services/ledger"
	"github.com/bobmcallan/roundup/internal/services/portfolio"
	"github.com/bobmcallan/roundup/internal/services/risk"
	"github.com/bobmcallan/roundup/internal/services/roundup"
	"github.com/bobmcallan/roundup/internal/storage"
)

// App holds all initialized services and clients.
type App struct {
	Config             *common.Config
	Logger             *common.Logger
	Storage            interfaces.StorageManager
	PriceSource        interfaces.PriceSource
	TransactionService interfaces.TransactionService
	PortfolioService   interfaces.PortfolioService
	AllocationService  interfaces.AllocationService
	RiskService        interfaces.RiskService
	LedgerService      interfaces.LedgerService
	ExecutorService    interfaces.ExecutorService
	AutoInvestor       *AutoInvestor
	StartupTime        time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration and initializes the application.
// configPath may be empty: ROUNDUP_CONFIG, then roundup.toml beside the binary,
// then config/roundup.toml are tried.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	binDir := getBinaryDir()
	if configPath == "" {
		configPath = os.Getenv("ROUNDUP_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "roundup.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/roundup.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Relative badger paths live beside the binary
	if p := config.Storage.Badger.Path; p != "" && !filepath.IsAbs(p) {
		config.Storage.Badger.Path = filepath.Join(binDir, p)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	logger.Debug().Str("config", configPath).Msg("Configuration loaded")

	return NewAppFromConfig(config, logger)
}

// NewAppFromConfig initializes storage and services from a loaded config.
func NewAppFromConfig(config *common.Config, logger *common.Logger) (*App, error) {
	start := time.Now()

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var prices interfaces.PriceSource
	if config.Pricing.EODHD.APIKey != "" {
		prices = eodhd.NewClientFromConfig(config.Pricing.EODHD, logger)
	} else {
		logger.Warn().Msg("EODHD API key not configured - configured reference prices will be used")
	}

	ledgerService := ledger.NewService(storageManager, logger)
	transactionService := roundup.NewService(storageManager, logger)
	portfolioService := portfolio.NewService(storageManager, logger)
	executorService := executor.NewService(storageManager, ledgerService, prices, config.Investing.Buckets, logger)

	a := &App{
		Config:             config,
		Logger:             logger,
		Storage:            storageManager,
		PriceSource:        prices,
		TransactionService: transactionService,
		PortfolioService:   portfolioService,
		AllocationService:  allocation.NewService(storageManager, logger),
		RiskService:        risk.NewService(storageManager, logger),
		LedgerService:      ledgerService,
		ExecutorService:    executorService,
		StartupTime:        start,
	}

	if config.AutoInvest.Enabled {
		a.AutoInvestor = NewAutoInvestor(config.AutoInvest, transactionService, portfolioService, executorService, logger)
		if err := a.AutoInvestor.Start(); err != nil {
			storageManager.Close()
			return nil, fmt.Errorf("failed to start auto-invest: %w", err)
		}
	}

	logger.Info().
		Str("storage", config.Storage.Backend).
		Bool("price_source", prices != nil).
		Bool("auto_invest", config.AutoInvest.Enabled).
		Dur("elapsed", time.Since(start)).
		Msg("Application initialized")
	return a, nil
}

// Close stops the scheduler and releases storage.
func (a *App) Close() error {
	if a.AutoInvestor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.AutoInvestor.Stop(ctx)
	}
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
