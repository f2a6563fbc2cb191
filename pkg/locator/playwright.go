package locator

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// readScript returns the value of form controls and trimmed text content of everything else.
const readScript = `el => (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA' || el.tagName === 'SELECT') ? el.value : (el.textContent || '').trim()`

// playwrightPage adapts a playwright page to Page.
type playwrightPage struct {
	page playwright.Page
}

// NewPlaywrightPage wraps a playwright page so the locator can drive it.
func NewPlaywrightPage(page playwright.Page) Page {
	return &playwrightPage{page: page}
}

// Element returns a lazy handle, nothing is resolved until WaitReady.
func (p *playwrightPage) Element(selector string) Element {
	return &playwrightElement{loc: p.page.Locator(selector)}
}

type playwrightElement struct {
	loc playwright.Locator
}

// WaitReady waits for a visible element. Locators are strict, so an ambiguous selector fails here;
// such a failure is reported as ErrAmbiguous when any of the matches is visible.
func (e *playwrightElement) WaitReady(timeout time.Duration) error {
	err := e.loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	})
	if err == nil {
		return nil
	}
	if total, visible := e.matches(); total > 1 && visible > 0 {
		return fmt.Errorf("wait visible: %w: %d matches, %d visible", ErrAmbiguous, total, visible)
	}
	return fmt.Errorf("wait visible: %w", err)
}

// maxVisibilityChecks bounds the per-match visibility checks after a strict mode failure.
const maxVisibilityChecks = 20

// matches counts elements matching the selector and how many of them are visible.
func (e *playwrightElement) matches() (total, visible int) {
	total, err := e.loc.Count()
	if err != nil || total < 2 {
		return total, 0
	}
	for i := range min(total, maxVisibilityChecks) {
		if ok, verr := e.loc.Nth(i).IsVisible(); verr == nil && ok {
			visible++
		}
	}
	return total, visible
}

// Click waits for the element to be enabled and stable, then clicks it.
func (e *playwrightElement) Click(timeout time.Duration) error {
	if err := e.loc.Click(playwright.LocatorClickOptions{Timeout: ms(timeout)}); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

// Fill waits for the element to be editable, then replaces its value.
func (e *playwrightElement) Fill(value string, timeout time.Duration) error {
	if err := e.loc.Fill(value, playwright.LocatorFillOptions{Timeout: ms(timeout)}); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	return nil
}

// Text reads the element value or its trimmed text content.
func (e *playwrightElement) Text(timeout time.Duration) (string, error) {
	v, err := e.loc.Evaluate(readScript, nil, playwright.LocatorEvaluateOptions{Timeout: ms(timeout)})
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("read: unexpected value type %T", v)
	}
	return s, nil
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
