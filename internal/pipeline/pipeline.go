// Package pipeline runs one card build: it scans posts, serves the template,
// and renders cards, ordering the two concurrent tasks with two handshakes.
//
//   - ready: the content server fires it once its socket is bound; the render
//     task waits for it before the first navigation.
//   - done: the render task fires it after every job was attempted (or the
//     browser could not start); the server waits for it before shutting down.
package pipeline

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/ogcards/internal/frontmatter"
	"github.com/JakeFAU/ogcards/internal/handshake"
	"github.com/JakeFAU/ogcards/internal/logging"
	"github.com/JakeFAU/ogcards/internal/render"
)

// Scanner produces the render jobs for a posts directory.
type Scanner interface {
	Scan(ctx context.Context, root string) []frontmatter.Job
}

// ContentServer serves the template until done fires.
type ContentServer interface {
	Run(ctx context.Context, ready, done *handshake.Signal) error
	// URL is the server's base URL; valid once ready fired.
	URL() string
}

// Renderer renders jobs against the served template.
type Renderer interface {
	Run(ctx context.Context, baseURL string, jobs []frontmatter.Job) (render.Summary, error)
}

// Result describes a finished build.
type Result struct {
	RunID   string
	Jobs    int
	Summary render.Summary
	// RenderErr is the batch-fatal renderer error, if any. It does not fail
	// the build: the handshake still completed.
	RenderErr error
	Elapsed   time.Duration
}

// Pipeline wires a Scanner, ContentServer and Renderer together.
type Pipeline struct {
	postsDir string
	scanner  Scanner
	server   ContentServer
	renderer Renderer
	logger   *zap.Logger
}

// New returns a Pipeline over the posts in postsDir.
func New(postsDir string, scanner Scanner, server ContentServer, renderer Renderer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		postsDir: postsDir,
		scanner:  scanner,
		server:   server,
		renderer: renderer,
		logger:   logging.OrNop(logger),
	}
}

// Run executes one build and returns once the content server has shut down.
// It fails when the server could not bind, shut down uncleanly, or a
// handshake was misused; individual card failures never fail the build.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}
	logger := p.logger.With(zap.String("run_id", res.RunID))

	ready := handshake.New("server ready")
	done := handshake.New("renders done")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.renderTask(gctx, logger, ready, done, &res)
	})
	g.Go(func() error {
		return p.server.Run(gctx, ready, done)
	})

	err := g.Wait()
	res.Elapsed = time.Since(start)
	if err != nil {
		logger.Error("build aborted", zap.Error(err), zap.Duration("elapsed", res.Elapsed))
		return res, err
	}
	logger.Info("build finished",
		zap.Int("jobs", res.Jobs),
		zap.Int("rendered", res.Summary.Rendered),
		zap.Int("failed", res.Summary.Failed),
		zap.Int("skipped", res.Summary.Skipped),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// renderTask scans, waits for ready, renders, and always fires done.
func (p *Pipeline) renderTask(
	ctx context.Context,
	logger *zap.Logger,
	ready, done *handshake.Signal,
	res *Result,
) (err error) {
	defer func() {
		if sendErr := done.Send(); sendErr != nil {
			err = errors.CombineErrors(err, sendErr)
		}
	}()

	jobs := p.scanner.Scan(ctx, p.postsDir)
	res.Jobs = len(jobs)
	logger.Info("posts scanned", zap.String("posts", p.postsDir), zap.Int("jobs", len(jobs)))

	if err := ready.Wait(ctx); err != nil {
		return errors.Wrap(err, "wait for content server")
	}

	summary, renderErr := p.renderer.Run(ctx, p.server.URL(), jobs)
	res.Summary = summary
	if renderErr != nil {
		res.RenderErr = renderErr
		logger.Error("no cards rendered", zap.Int("jobs", len(jobs)), zap.Error(renderErr))
	}
	return nil
}
