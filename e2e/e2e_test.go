//go:build e2e

// Package e2e runs the locator, runner and dashboard against a real browser.
package e2e

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	wpbrowser "github.com/pushqa/wpregress/pkg/browser"
	"github.com/pushqa/wpregress/pkg/status"
)

const (
	longPollTimeout = 15 * time.Second
	navTimeout      = 10 * time.Second
)

var (
	pw      *playwright.Playwright
	browser playwright.Browser
	site    *httptest.Server // serves testdata as the site under test
)

func TestMain(m *testing.M) {
	code := 1
	defer func() {
		os.Exit(code)
	}()

	site = httptest.NewServer(http.FileServer(http.Dir("testdata")))
	defer site.Close()

	if err := setupPlaywright(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup playwright: %v\n", err)
		return
	}
	defer teardownPlaywright()

	code = m.Run()
}

func setupPlaywright() error {
	if err := wpbrowser.Install("chromium"); err != nil {
		return err
	}

	var err error
	pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("run playwright: %w", err)
	}

	headless := os.Getenv("E2E_HEADLESS") != "false"
	opts := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(headless)}
	if !headless {
		opts.SlowMo = playwright.Float(50)
	}
	browser, err = pw.Chromium.Launch(opts)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	return nil
}

func teardownPlaywright() {
	if browser != nil {
		_ = browser.Close()
	}
	if pw != nil {
		_ = pw.Stop()
	}
}

// newPage creates an isolated browser context and page for a test.
func newPage(t *testing.T) playwright.Page {
	t.Helper()

	ctx, err := browser.NewContext()
	require.NoError(t, err, "create browser context")
	page, err := ctx.NewPage()
	require.NoError(t, err, "create page")

	t.Cleanup(func() {
		_ = page.Close()
		_ = ctx.Close()
	})
	return page
}

// openFixture loads the admin fixture page in a fresh session.
func openFixture(t *testing.T) (*wpbrowser.Session, playwright.Page) {
	t.Helper()
	page := newPage(t)
	sess := wpbrowser.NewSessionFromPage(page, site.URL, navTimeout)
	require.NoError(t, sess.Navigate(t.Context(), "/admin.html"))
	return sess, page
}

// waitVisible waits for a selector to become visible.
func waitVisible(t *testing.T, page playwright.Page, selector string) {
	t.Helper()
	err := page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(longPollTimeout / time.Millisecond)),
	})
	require.NoError(t, err, "wait for %s to be visible", selector)
}

// waitText waits until the selector's text content equals want.
func waitText(t *testing.T, page playwright.Page, selector, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, err := page.Locator(selector).First().TextContent()
		return err == nil && got == want
	}, longPollTimeout, 100*time.Millisecond, "text of %s never became %q", selector, want)
}

// testLogger sends runner output to the test log.
type testLogger struct{ t *testing.T }

func (l testLogger) PrintPhase(phase status.Phase, format string, args ...any) {
	l.t.Logf("[%s] "+format, append([]any{phase}, args...)...)
}

func (l testLogger) Warn(format string, args ...any)  { l.t.Logf("[WARN] "+format, args...) }
func (l testLogger) Error(format string, args ...any) { l.t.Logf("[ERROR] "+format, args...) }
