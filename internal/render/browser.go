package render

import (
	"context"

	"github.com/cockroachdb/errors"
)

var (
	// ErrBrowserUnavailable means the browser could not be started or its
	// first page could not be acquired. No job can run.
	ErrBrowserUnavailable = errors.New("browser unavailable")
	// ErrContainerNotFound means the template has no element matching the
	// container selector.
	ErrContainerNotFound = errors.New("container element not found")
)

// Region is a rectangle in CSS pixels relative to the viewport.
type Region struct {
	X, Y          float64
	Width, Height float64
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Launcher starts a browser.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser instance owned by one Renderer.
type Browser interface {
	// Page returns the browser's initial page.
	Page(ctx context.Context) (Page, error)
	Close() error
}

// Page is the single tab the renderer drives. Calls are never concurrent.
type Page interface {
	// Navigate loads url and returns once the load event fired.
	Navigate(ctx context.Context, url string) error
	// Evaluate runs a script and discards its result.
	Evaluate(ctx context.Context, expr string) error
	// BorderBox returns the border box of the first element matching selector.
	BorderBox(ctx context.Context, selector string) (Region, error)
	// Screenshot captures clip as PNG.
	Screenshot(ctx context.Context, clip Region) ([]byte, error)
}
