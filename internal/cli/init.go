// Package cli consolidates the initialization shared by cmd/carbonledger
// and cmd/carbonledger-worker.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"carbonledger/internal/config"
	"carbonledger/internal/filestore"
	applog "carbonledger/internal/log"
	"carbonledger/internal/storage"
	"carbonledger/internal/store"
)

// SetupLogger initializes structured logging and installs it as the
// process default.
func SetupLogger(component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are
// ignored; the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, exiting the process on
// validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Stores bundles the three persistence ports plus the close hook of the
// backend that provides them.
type Stores struct {
	Records  store.RecordStore
	Profiles store.ProfileStore
	Factors  store.FactorStore
	Close    func() error
}

// OpenStores selects and opens the configured persistence backend,
// exiting the process on failure.
func OpenStores(logger *applog.Logger, cfg *config.Config) Stores {
	switch cfg.DataBackend {
	case "file":
		fs, err := filestore.New(cfg.DataDir)
		if err != nil {
			logger.Error("Failed to initialize file store", "error", err, "dir", cfg.DataDir)
			os.Exit(1)
		}
		logger.Info("Initialized file backend", "dir", cfg.DataDir)
		return Stores{Records: fs, Profiles: fs, Factors: fs, Close: func() error { return nil }}
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
		return Stores{Records: repo, Profiles: repo, Factors: repo, Close: repo.Close}
	}
}
