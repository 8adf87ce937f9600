// Package app holds the long-lived services of one CLI invocation.
package app

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/JakeFAU/ogcards/internal/config"
	"github.com/JakeFAU/ogcards/internal/logging"
	"github.com/JakeFAU/ogcards/internal/metrics"
)

// App holds the shared services for a command: its configuration, the root
// logger and the run's metrics registry. It is built once before the command
// runs and closed afterwards.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewApp builds the services described by cfg.
func NewApp(cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init logger")
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}, nil
}

// GetConfig returns the validated configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the root logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetMetrics returns the run's collectors.
func (a *App) GetMetrics() *metrics.Metrics {
	return a.metrics
}

// Close flushes the logger.
func (a *App) Close() {
	// Sync on a terminal stderr commonly fails with ENOTTY/EINVAL; nothing
	// useful can be done about it at exit.
	_ = a.logger.Sync()
}
