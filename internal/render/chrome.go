package render

import (
	"context"
	"math"
	"os"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/JakeFAU/ogcards/internal/logging"
)

// ChromeLauncher starts Chrome through chromedp.
type ChromeLauncher struct {
	ExecPath     string
	Headless     bool
	WindowWidth  int
	WindowHeight int
	Logger       *zap.Logger
}

// Launch starts the browser and attaches to its first tab.
func (l ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	if l.ExecPath == "" {
		return nil, errors.Wrap(ErrBrowserUnavailable, "no browser executable configured")
	}
	if _, err := os.Stat(l.ExecPath); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "browser executable %s", l.ExecPath), ErrBrowserUnavailable)
	}
	logger := logging.OrNop(l.Logger)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(l.ExecPath),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if !l.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if l.WindowWidth > 0 && l.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(l.WindowWidth, l.WindowHeight))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Warnf),
	)
	// The first Run starts the browser process and attaches to the initial tab.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, errors.Mark(errors.Wrap(err, "chromedp warmup"), ErrBrowserUnavailable)
	}

	return &chromeBrowser{
		tabCtx:        browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

type chromeBrowser struct {
	tabCtx        context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

func (b *chromeBrowser) Page(_ context.Context) (Page, error) {
	c := chromedp.FromContext(b.tabCtx)
	if c == nil || c.Target == nil {
		return nil, errors.Wrap(ErrBrowserUnavailable, "browser has no initial tab")
	}
	return &chromePage{tabCtx: b.tabCtx}, nil
}

// Close tears down the chromedp browser and allocator contexts.
func (b *chromeBrowser) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}

type chromePage struct {
	tabCtx context.Context
}

// run executes actions on the tab, bounded by ctx's deadline and
// cancellation. Deriving from the tab context (rather than creating a new
// chromedp context) interrupts only the actions, not the tab.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return errors.Wrap(err, "chromedp run")
	}
	return nil
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) Evaluate(ctx context.Context, expr string) error {
	return p.run(ctx, chromedp.Evaluate(expr, nil))
}

func (p *chromePage) BorderBox(ctx context.Context, selector string) (Region, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return Region{}, err
	}
	if len(nodes) == 0 {
		return Region{}, errors.Wrapf(ErrContainerNotFound, "selector %q", selector)
	}

	var model *dom.BoxModel
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		model, err = dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
		return err //nolint:wrapcheck // wrapped by run
	}))
	if err != nil {
		return Region{}, errors.Wrap(err, "get box model")
	}
	return quadRegion(model.Border)
}

func (p *chromePage) Screenshot(ctx context.Context, clip Region) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{
				X:      clip.X,
				Y:      clip.Y,
				Width:  clip.Width,
				Height: clip.Height,
				Scale:  1,
			}).
			WithFromSurface(true).
			Do(ctx)
		return err //nolint:wrapcheck // wrapped by run
	}))
	if err != nil {
		return nil, errors.Wrap(err, "capture screenshot")
	}
	return buf, nil
}

// quadRegion converts a DOM quad (four x,y corner pairs) to its bounding
// rectangle.
func quadRegion(q dom.Quad) (Region, error) {
	if len(q) != 8 {
		return Region{}, errors.Newf("box quad has %d coordinates, want 8", len(q))
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i < len(q); i += 2 {
		minX = math.Min(minX, q[i])
		maxX = math.Max(maxX, q[i])
		minY = math.Min(minY, q[i+1])
		maxY = math.Max(maxY, q[i+1])
	}
	return Region{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
