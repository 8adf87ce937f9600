package render

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/ogcards/internal/frontmatter"
)

func TestQuadRegion(t *testing.T) {
	t.Parallel()

	got, err := quadRegion(dom.Quad{10, 20, 310, 20, 310, 220, 10, 220})
	require.NoError(t, err)
	assert.Equal(t, Region{X: 10, Y: 20, Width: 300, Height: 200}, got)

	_, err = quadRegion(dom.Quad{1, 2, 3})
	assert.Error(t, err)
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()
	stop := forwardCancel(parent, cancelChild)
	defer stop()

	cancelParent()
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("parent cancellation was not forwarded")
	}

	quiet, cancelQuiet := context.WithCancel(context.Background())
	untouched, cancelUntouched := context.WithCancel(context.Background())
	defer cancelUntouched()
	forwardCancel(quiet, cancelUntouched)()
	time.Sleep(20 * time.Millisecond)
	cancelQuiet()
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, untouched.Err(), "stopped forwarder still canceled")
}

func TestChromeLauncherRequiresExecutable(t *testing.T) {
	t.Parallel()

	_, err := ChromeLauncher{}.Launch(context.Background())
	assert.True(t, errors.Is(err, ErrBrowserUnavailable))

	_, err = ChromeLauncher{ExecPath: filepath.Join(t.TempDir(), "no-chrome")}.Launch(context.Background())
	assert.True(t, errors.Is(err, ErrBrowserUnavailable))
}

const cardTemplate = `<!doctype html>
<html><body style="margin:0">
<div id="container" style="width:400px;height:210px;background:#123">
  <h1 id="title"></h1><p id="subtitle"></p>
</div>
<script>
function setText(title, subtitle) {
  document.getElementById('title').textContent = title;
  document.getElementById('subtitle').textContent = subtitle;
}
function fitText() { document.body.dataset.fitted = 'yes'; }
</script>
</body></html>`

func chromePath(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("OGCARDS_CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("chrome unavailable")
	return ""
}

func TestChromeRenderer(t *testing.T) {
	execPath := chromePath(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, cardTemplate)
	}))
	defer srv.Close()

	dir := t.TempDir()
	launcher := ChromeLauncher{ExecPath: execPath, Headless: true, WindowWidth: 800, WindowHeight: 600}
	r := New(Config{JobTimeout: 15 * time.Second}, launcher, zap.NewNop(), nil)

	jobs := []frontmatter.Job{{
		Title:       "O'Brien's guide",
		Description: `back\slash and "quotes"`,
		OutputPath:  filepath.Join(dir, "card.png"),
	}}
	summary, err := r.Run(context.Background(), srv.URL, jobs)
	if err != nil {
		t.Skipf("chromedp unavailable: %v", err)
	}
	require.Equal(t, 1, summary.Rendered)

	data, err := os.ReadFile(filepath.Join(dir, "card.png"))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}
