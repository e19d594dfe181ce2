// Package providers contains dependency injection providers for the PaperMint server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/papermint/papermint-server/internal/config"
	"github.com/papermint/papermint-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	log.Info("Starting PaperMint Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"storage_path", cfg.Storage.BasePath,
		"remote_configured", cfg.Remote.BaseURL != "",
	)

	return log, nil
}
