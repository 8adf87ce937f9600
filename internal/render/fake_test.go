package render

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// fakePage records calls and fails the steps configured in failOn, keyed by
// a substring of the injected script.
type fakePage struct {
	mu       sync.Mutex
	calls    []string
	scripts  []string
	current  string
	failOn   map[string]string
	box      Region
	png      []byte
	onNav    func(ctx context.Context, url string) error
	blockNav bool
}

func newFakePage() *fakePage {
	return &fakePage{
		failOn: map[string]string{},
		box:    Region{X: 8, Y: 8, Width: 1200, Height: 630},
		png:    []byte("\x89PNG fake"),
	}
}

func (p *fakePage) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakePage) failing(step string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for marker, s := range p.failOn {
		if s == step && strings.Contains(p.current, marker) {
			return true
		}
	}
	return false
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.record("navigate " + url)
	if p.blockNav {
		<-ctx.Done()
		return errors.Wrap(ctx.Err(), "navigate")
	}
	if p.onNav != nil {
		return p.onNav(ctx, url)
	}
	return nil
}

func (p *fakePage) Evaluate(_ context.Context, expr string) error {
	p.record("evaluate")
	p.mu.Lock()
	p.current = expr
	p.scripts = append(p.scripts, expr)
	p.mu.Unlock()
	if p.failing(StepInject) {
		return errors.New("ReferenceError: setText is not defined")
	}
	return nil
}

func (p *fakePage) BorderBox(_ context.Context, selector string) (Region, error) {
	p.record("box " + selector)
	if p.failing(StepLocate) {
		return Region{}, errors.Wrapf(ErrContainerNotFound, "selector %q", selector)
	}
	return p.box, nil
}

func (p *fakePage) Screenshot(_ context.Context, clip Region) ([]byte, error) {
	p.record("screenshot")
	if p.failing(StepScreenshot) {
		return nil, errors.New("capture failed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append(append([]byte(nil), p.png...), []byte(p.current)...), nil
}

type fakeBrowser struct {
	page    *fakePage
	pageErr error
	closed  bool
}

func (b *fakeBrowser) Page(context.Context) (Page, error) {
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

type fakeLauncher struct {
	browser  *fakeBrowser
	err      error
	launches int
}

func (l *fakeLauncher) Launch(context.Context) (Browser, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}
