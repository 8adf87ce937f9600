// Package cmd defines and implements the CLI commands for the ogcards executable.
package cmd

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/ogcards/internal/config"
	"github.com/JakeFAU/ogcards/internal/frontmatter"
	"github.com/JakeFAU/ogcards/internal/metrics"
	"github.com/JakeFAU/ogcards/internal/pipeline"
	"github.com/JakeFAU/ogcards/internal/render"
	"github.com/JakeFAU/ogcards/internal/server"
)

// newBuildCmd creates and configures the 'build' subcommand.
func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the cards/images",
		Long: `Serves the template folder on 127.0.0.1, scans the blog folder for
markdown posts, and renders one PNG card per published post.`,
		Args: cobra.NoArgs,
		RunE: runBuildCommand,
	}

	f := cmd.Flags()
	f.IntP("port", "p", config.DefaultPort, "Port on which to serve the template")
	f.StringP("template-folder", "t", "", "Folder where the image template file is saved")
	f.StringP("blog-folder", "b", "", "Folder where the blog's md files are saved")
	f.StringP("chrome-path", "c", "", "Full file path of the chrome browser")
	f.Duration("job-timeout", 30*time.Second, "Upper bound for rendering a single card (0 disables)")
	return cmd
}

func runBuildCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	p := buildPipeline(appInstance.GetConfig(), appInstance.GetLogger(), appInstance.GetMetrics())
	if _, err := p.Run(cmd.Context()); err != nil {
		return errors.Wrap(err, "build cards")
	}
	return nil
}

func buildPipeline(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) *pipeline.Pipeline {
	scanner := frontmatter.NewScanner(logger.Named("scanner"), m)

	srv := server.New(server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		Root:              cfg.Paths.Templates,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}, logger.Named("server"), m)

	launcher := render.ChromeLauncher{
		ExecPath:     cfg.Browser.ExecPath,
		Headless:     cfg.Browser.Headless,
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
		Logger:       logger.Named("chromedp"),
	}
	renderer := render.New(render.Config{
		Selector:   cfg.Browser.ContainerSelector,
		JobTimeout: cfg.Browser.JobTimeout,
	}, launcher, logger.Named("renderer"), m)

	return pipeline.New(cfg.Paths.Posts, scanner, srv, renderer, logger.Named("pipeline"))
}
