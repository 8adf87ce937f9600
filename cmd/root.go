package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/ogcards/internal/app"
	"github.com/JakeFAU/ogcards/internal/config"
	"github.com/JakeFAU/ogcards/internal/logging"
	"github.com/JakeFAU/ogcards/internal/metrics"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the services commands use. It allows tests to inject a fake.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetMetrics() *metrics.Metrics
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(cfg config.Config) (App, error) {
	return app.NewApp(cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ogcards",
		Short: "Create Twitter cards / Open Graph images for your blog.",
		Long: `ogcards renders a social preview image for every published post of a
markdown blog. Each post's TOML frontmatter supplies the title and short
description, which are laid out by an HTML template in a headless browser
and saved as <post>.png next to the post.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs after flags are parsed and before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return errors.Wrap(err, "load config")
			}
			appInstance, err := newApp(cfg)
			if err != nil {
				return errors.Wrap(err, "initialize application services")
			}
			zap.ReplaceGlobals(appInstance.GetLogger())

			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().Bool("dev-logging", true, "human-readable console logs")
	cmd.PersistentFlags().String("log-level", "", "minimum log level (debug, info, warn, error)")

	cmd.AddCommand(newBuildCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the run; the
// build still completes its shutdown handshake before the process exits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fatal(err)
	}
}

// fatal logs err and exits non-zero, falling back to a console logger when
// the command failed before the application logger existed.
func fatal(err error) {
	logger := zap.L()
	if !logger.Core().Enabled(zapcore.FatalLevel) {
		fallback, buildErr := logging.New(logging.Options{Development: true})
		if buildErr != nil {
			fmt.Fprintf(os.Stderr, "ogcards: %v\n", err)
			os.Exit(1)
		}
		logger = fallback
	}
	fields := []zap.Field{zap.Error(err)}
	if hint := errors.FlattenHints(err); hint != "" {
		fields = append(fields, zap.String("hint", hint))
	}
	logger.Fatal("command execution failed", fields...)
}
