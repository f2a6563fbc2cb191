// Package browser manages the playwright driver, a shared browser and isolated per-scenario sessions.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/pushqa/wpregress/pkg/locator"
)

// Config holds browser launch settings.
type Config struct {
	Browser             string // chromium, firefox or webkit
	Headless            bool
	SlowMoMs            int
	NavigationTimeoutMs int
	BaseURL             string // relative navigation targets are resolved against it
}

// Install downloads the playwright driver and the given browsers, all browsers if none given.
func Install(browsers ...string) error {
	opts := &playwright.RunOptions{}
	if len(browsers) > 0 {
		opts.Browsers = browsers
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("install playwright: %w", err)
	}
	return nil
}

// Launcher owns the playwright driver process and one browser instance.
type Launcher struct {
	cfg     Config
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Launch starts playwright and the configured browser.
func Launch(cfg Config) (*Launcher, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("run playwright: %w", err)
	}

	var bt playwright.BrowserType
	switch cfg.Browser {
	case "", "chromium":
		bt = pw.Chromium
	case "firefox":
		bt = pw.Firefox
	case "webkit":
		bt = pw.WebKit
	default:
		_ = pw.Stop()
		return nil, fmt.Errorf("unknown browser %q", cfg.Browser)
	}

	opts := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(cfg.Headless)}
	if cfg.SlowMoMs > 0 {
		opts.SlowMo = playwright.Float(float64(cfg.SlowMoMs))
	}
	b, err := bt.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch %s: %w", bt.Name(), err)
	}
	return &Launcher{cfg: cfg, pw: pw, browser: b}, nil
}

// NewSession creates an isolated browser context (own cookies and storage) with one page.
func (l *Launcher) NewSession() (*Session, error) {
	bctx, err := l.browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	navTimeout := time.Duration(l.cfg.NavigationTimeoutMs) * time.Millisecond
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &Session{bctx: bctx, page: page, baseURL: l.cfg.BaseURL, navTimeout: navTimeout}, nil
}

// Close shuts down the browser and the driver.
func (l *Launcher) Close() error {
	var errs []error
	if l.browser != nil {
		if err := l.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if l.pw != nil {
		if err := l.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Session is one browser context with a single page, used by one scenario at a time.
type Session struct {
	bctx       playwright.BrowserContext
	page       playwright.Page
	baseURL    string
	navTimeout time.Duration
}

// NewSessionFromPage wraps an existing page, used by e2e tests that manage their own contexts.
func NewSessionFromPage(page playwright.Page, baseURL string, navTimeout time.Duration) *Session {
	return &Session{page: page, baseURL: baseURL, navTimeout: navTimeout}
}

// Navigate loads ref, resolved against the base url, and waits for DOMContentLoaded.
// returns early with ctx error on cancellation; closing the session aborts the pending load.
func (s *Session) Navigate(ctx context.Context, ref string) error {
	target, err := ResolveURL(s.baseURL, ref)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		_, gerr := s.page.Goto(target, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(s.navTimeout.Milliseconds())),
		})
		done <- gerr
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("navigate to %s: %w", target, err)
		}
		return nil
	}
}

// Page returns the locator view of the session page.
func (s *Session) Page() locator.Page {
	return locator.NewPlaywrightPage(s.page)
}

// Close closes the browser context and its page.
func (s *Session) Close() error {
	if s.bctx == nil {
		return nil
	}
	if err := s.bctx.Close(); err != nil {
		return fmt.Errorf("close browser context: %w", err)
	}
	return nil
}

// ResolveURL resolves ref against base. absolute refs are returned unchanged,
// a ref without a base must be absolute.
func ResolveURL(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty url")
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	if r.IsAbs() {
		return r.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative url %q without base url", ref)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	if !b.IsAbs() {
		return "", fmt.Errorf("base url %q is not absolute", base)
	}
	// keep a base path like http://host/wp as a prefix for root-relative refs
	if strings.HasPrefix(ref, "/") && b.Path != "" && b.Path != "/" {
		r.Path = strings.TrimRight(b.Path, "/") + r.Path
	}
	return b.ResolveReference(r).String(), nil
}
