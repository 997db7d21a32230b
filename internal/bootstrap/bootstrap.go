// Package bootstrap holds the start-up steps shared by the tourbook binaries.
package bootstrap

import (
	"fmt"
	"io"
	"os"

	"tourbook/internal/config"
	"tourbook/internal/database"
	"tourbook/internal/domain"
	"tourbook/internal/logging"
	"tourbook/internal/repository"

	"github.com/rs/zerolog"
)

const defaultConfigPath = "configs/config.yaml"

// ConfigPath returns $CONFIG_PATH or the default config location.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigPath
}

// LoadConfigAndLogger reads the config file and builds the root logger tagged
// with component. The closer releases the log file, if any.
func LoadConfigAndLogger(configPath, component string) (*config.Config, *zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, component)
	return cfg, logger, closer, nil
}

// OpenStore opens the configured backend. The *database.DB is nil unless the
// driver is sqlite.
func OpenStore(cfg config.DatabaseConfig, logger *zerolog.Logger) (domain.Store, *database.DB, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn().Msg("Using in-memory store, data is lost on exit")
		return repository.NewMemoryStore(), nil, nil
	case "sqlite", "":
		db, err := database.NewDB(cfg.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init database: %w", err)
		}
		return db, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
