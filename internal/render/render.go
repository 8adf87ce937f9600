// Package render turns render jobs into PNG cards by driving a browser page
// over the card template.
//
// Jobs run strictly one after another on a single page: the text injection
// and the screenshot of one job must not interleave with another's. A failed
// job is logged and skipped; only a browser that cannot be started stops the
// batch.
package render

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/JakeFAU/ogcards/internal/frontmatter"
	"github.com/JakeFAU/ogcards/internal/logging"
	"github.com/JakeFAU/ogcards/internal/metrics"
)

// DefaultContainerSelector matches the template element that is captured.
const DefaultContainerSelector = "#container"

// Steps of the per-job procedure, used in failure logs.
const (
	StepNavigate   = "navigate"
	StepInject     = "inject"
	StepLocate     = "locate"
	StepScreenshot = "screenshot"
	StepWrite      = "write"
)

// Config tunes the render loop.
type Config struct {
	// Selector is the container element whose border box is captured.
	Selector string
	// JobTimeout bounds each job; zero disables the bound.
	JobTimeout time.Duration
}

// Summary counts the outcome of one batch.
type Summary struct {
	Total    int
	Rendered int
	Failed   int
	Skipped  int
}

// Attempted is the number of jobs that were started.
func (s Summary) Attempted() int {
	return s.Rendered + s.Failed
}

// Renderer renders jobs with a browser obtained from its Launcher.
type Renderer struct {
	cfg      Config
	launcher Launcher
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New returns a Renderer.
func New(cfg Config, launcher Launcher, logger *zap.Logger, m *metrics.Metrics) *Renderer {
	if cfg.Selector == "" {
		cfg.Selector = DefaultContainerSelector
	}
	return &Renderer{
		cfg:      cfg,
		launcher: launcher,
		logger:   logging.OrNop(logger),
		metrics:  m,
	}
}

// Run renders jobs in order against the template served at baseURL. The
// returned error is non-nil only when the browser could not be acquired, in
// which case no job was attempted.
func (r *Renderer) Run(ctx context.Context, baseURL string, jobs []frontmatter.Job) (Summary, error) {
	summary := Summary{Total: len(jobs)}
	if len(jobs) == 0 {
		r.logger.Info("no cards to render")
		return summary, nil
	}

	browser, err := r.launcher.Launch(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "launch browser")
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			r.logger.Warn("failed to close browser", zap.Error(cerr))
		}
	}()

	page, err := browser.Page(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "acquire initial page")
	}

	for i, job := range jobs {
		if ctx.Err() != nil {
			summary.Skipped = len(jobs) - i
			for range summary.Skipped {
				r.metrics.ObserveRender(metrics.RenderSkipped, 0)
			}
			r.logger.Warn("render loop canceled", zap.Int("skipped", summary.Skipped), zap.Error(ctx.Err()))
			break
		}

		r.logger.Info("rendering card", zap.String("path", job.OutputPath))
		start := time.Now()
		step, err := r.renderJob(ctx, page, baseURL, job)
		elapsed := time.Since(start)
		if err != nil {
			summary.Failed++
			r.metrics.ObserveRender(metrics.RenderFailed, elapsed)
			r.logger.Error("failed to render card",
				zap.String("path", job.OutputPath),
				zap.String("source", job.Source),
				zap.String("step", step),
				zap.Error(err),
			)
			continue
		}
		summary.Rendered++
		r.metrics.ObserveRender(metrics.RenderSucceeded, elapsed)
		r.logger.Debug("card rendered", zap.String("path", job.OutputPath), zap.Duration("elapsed", elapsed))
	}
	return summary, nil
}

// renderJob runs the per-job procedure and reports the step that failed.
func (r *Renderer) renderJob(ctx context.Context, page Page, baseURL string, job frontmatter.Job) (string, error) {
	if r.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.JobTimeout)
		defer cancel()
	}

	if err := page.Navigate(ctx, baseURL); err != nil {
		return StepNavigate, errors.Wrapf(err, "navigate to %s", baseURL)
	}
	if err := page.Evaluate(ctx, InjectionScript(job.Title, job.Description)); err != nil {
		return StepInject, errors.Wrap(err, "inject card text")
	}
	box, err := page.BorderBox(ctx, r.cfg.Selector)
	if err != nil {
		return StepLocate, errors.Wrapf(err, "locate %s", r.cfg.Selector)
	}
	if box.Empty() {
		return StepLocate, errors.Newf("%s has an empty box (%gx%g)", r.cfg.Selector, box.Width, box.Height)
	}
	png, err := page.Screenshot(ctx, box)
	if err != nil {
		return StepScreenshot, errors.Wrap(err, "screenshot")
	}
	if err := writeImage(job.OutputPath, png); err != nil {
		return StepWrite, err
	}
	return "", nil
}
