// Package locator finds page elements through an ordered list of candidate selectors.
// Each candidate gets a bounded wait; the first one that resolves to a unique visible
// element wins and the requested action is performed on it. Per-candidate failures are
// recorded and never surface as errors, only the aggregate outcome does.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

//go:generate moq -out mocks/page.go -pkg mocks -skip-ensure -fmt goimports . Page Element

// DefaultTimeout is the per-candidate wait used when neither the request nor the locator sets one.
const DefaultTimeout = 3 * time.Second

// sentinel errors, checked with errors.Is.
var (
	ErrNotFound       = errors.New("element not found")
	ErrAmbiguous      = errors.New("selector matches several elements")
	ErrExhausted      = errors.New("all candidates exhausted")
	ErrActionFailed   = errors.New("action failed")
	ErrCanceled       = errors.New("locate canceled")
	ErrInvalidRequest = errors.New("invalid request")
)

// Action is the operation performed on the located element.
type Action string

// supported actions.
const (
	ActionClick   Action = "click"
	ActionFill    Action = "fill"
	ActionRead    Action = "read"
	ActionVisible Action = "visible"
)

// Outcome classifies how a Locate call ended.
type Outcome string

// outcome constants.
const (
	OutcomeFound        Outcome = "found"
	OutcomeExhausted    Outcome = "exhausted"
	OutcomeActionFailed Outcome = "action-failed"
	OutcomeCanceled     Outcome = "canceled"
	OutcomeInvalid      Outcome = "invalid"
)

// Page resolves selectors on a live page.
type Page interface {
	Element(selector string) Element
}

// Element is a lazily resolved handle for a single selector.
// WaitReady blocks until the selector matches exactly one visible element or the timeout passes.
// It returns an error wrapping ErrAmbiguous when several elements match and at least one is visible.
type Element interface {
	WaitReady(timeout time.Duration) error
	Click(timeout time.Duration) error
	Fill(value string, timeout time.Duration) error
	Text(timeout time.Duration) (string, error)
}

// Logger is the minimal logging interface used for debug traces.
type Logger interface {
	Print(format string, args ...any)
}

// Observer receives per-call measurements, used for metrics.
type Observer interface {
	Observe(action Action, res Result)
}

// Request describes a single locate-and-act call.
type Request struct {
	Candidates []string      // ordered, most specific first
	Action     Action        // what to do with the matched element
	Value      string        // text for ActionFill
	Timeout    time.Duration // per-candidate budget, zero means locator default
}

// Attempt records what happened with one candidate.
type Attempt struct {
	Selector string
	Err      error // nil for the matched candidate unless the action itself failed
	Duration time.Duration
}

// Result is the aggregate outcome of a Locate call.
// Attempted is always a prefix of the request candidates and, on success,
// Matched equals its last element.
type Result struct {
	Succeeded bool
	Matched   string
	Attempted []string
	Attempts  []Attempt
	Outcome   Outcome
	Text      string // payload of ActionRead
	Visible   bool   // payload of ActionVisible
	Elapsed   time.Duration
	Err       error
}

// Depth returns the 1-based position of the matched candidate, 0 if nothing matched.
func (r Result) Depth() int {
	if !r.Succeeded {
		return 0
	}
	return len(r.Attempted)
}

// Ambiguous returns the attempted selectors that failed because they matched several elements.
func (r Result) Ambiguous() []string {
	var res []string
	for _, a := range r.Attempts {
		if errors.Is(a.Err, ErrAmbiguous) {
			res = append(res, a.Selector)
		}
	}
	return res
}

// Locator runs candidate fallback. It holds no per-call state and is safe for concurrent use.
type Locator struct {
	timeout  time.Duration
	logger   Logger
	observer Observer
}

// Option configures a Locator.
type Option func(*Locator)

// WithTimeout sets the default per-candidate timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(l *Locator) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger enables debug tracing of candidate attempts.
func WithLogger(lg Logger) Option {
	return func(l *Locator) { l.logger = lg }
}

// WithObserver sets a hook called once per Locate with the final result.
func WithObserver(o Observer) Option {
	return func(l *Locator) { l.observer = o }
}

// New makes a Locator with the given options.
func New(opts ...Option) *Locator {
	l := &Locator{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Timeout returns the default per-candidate timeout.
func (l *Locator) Timeout() time.Duration { return l.timeout }

// Click clicks the first matching candidate.
func (l *Locator) Click(ctx context.Context, page Page, candidates []string) Result {
	return l.Locate(ctx, page, Request{Candidates: candidates, Action: ActionClick})
}

// Fill types value into the first matching candidate.
func (l *Locator) Fill(ctx context.Context, page Page, candidates []string, value string) Result {
	return l.Locate(ctx, page, Request{Candidates: candidates, Action: ActionFill, Value: value})
}

// Read returns text (or input value) of the first matching candidate in Result.Text.
func (l *Locator) Read(ctx context.Context, page Page, candidates []string) Result {
	return l.Locate(ctx, page, Request{Candidates: candidates, Action: ActionRead})
}

// IsVisible reports in Result.Visible whether any candidate resolves to a visible element.
func (l *Locator) IsVisible(ctx context.Context, page Page, candidates []string) Result {
	return l.Locate(ctx, page, Request{Candidates: candidates, Action: ActionVisible})
}

// Locate tries candidates in order and performs the action on the first one that becomes ready.
func (l *Locator) Locate(ctx context.Context, page Page, req Request) Result {
	start := time.Now()
	res := l.locate(ctx, page, req)
	res.Elapsed = time.Since(start)
	if l.observer != nil {
		l.observer.Observe(req.Action, res)
	}
	return res
}

func (l *Locator) locate(ctx context.Context, page Page, req Request) Result {
	res := Result{Attempted: []string{}}

	if err := validate(page, req); err != nil {
		res.Outcome = OutcomeInvalid
		res.Err = err
		return res
	}

	if len(req.Candidates) == 0 {
		res.Outcome = OutcomeExhausted
		res.Err = fmt.Errorf("%w: no candidates", ErrExhausted)
		return res
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = l.timeout
	}

	var lastErr error
	for _, sel := range req.Candidates {
		if err := ctx.Err(); err != nil {
			return canceled(res, err)
		}
		res.Attempted = append(res.Attempted, sel)

		attemptStart := time.Now()
		el := page.Element(sel)
		err := waitReady(ctx, el, timeout)
		if cerr := ctx.Err(); cerr != nil {
			res.Attempts = append(res.Attempts, Attempt{Selector: sel, Err: cerr, Duration: time.Since(attemptStart)})
			return canceled(res, cerr)
		}
		if err != nil {
			lastErr = err
			res.Attempts = append(res.Attempts, Attempt{Selector: sel, Err: fmt.Errorf("%w: %w", ErrNotFound, err),
				Duration: time.Since(attemptStart)})
			l.debug("candidate %q not ready after %v: %v", sel, time.Since(attemptStart).Round(time.Millisecond), err)
			continue
		}

		res.Matched = sel
		text, actErr := perform(el, req, timeout)
		res.Attempts = append(res.Attempts, Attempt{Selector: sel, Err: actErr, Duration: time.Since(attemptStart)})
		if actErr != nil {
			res.Outcome = OutcomeActionFailed
			res.Err = fmt.Errorf("%w: %s on %q: %w", ErrActionFailed, req.Action, sel, actErr)
			l.debug("candidate %q matched, %s failed: %v", sel, req.Action, actErr)
			return res
		}

		res.Succeeded = true
		res.Outcome = OutcomeFound
		res.Text = text
		res.Visible = req.Action == ActionVisible
		l.debug("candidate %q matched at depth %d", sel, len(res.Attempted))
		return res
	}

	res.Outcome = OutcomeExhausted
	res.Err = fmt.Errorf("%w: tried %s: %w", ErrExhausted, strings.Join(quoteAll(res.Attempted), ", "), lastErr)
	return res
}

// waitReady runs the blocking wait in a goroutine so an outer cancellation returns immediately.
// the abandoned wait ends on its own once its timeout passes.
func waitReady(ctx context.Context, el Element, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- el.WaitReady(timeout) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func perform(el Element, req Request, timeout time.Duration) (string, error) {
	switch req.Action {
	case ActionClick:
		return "", el.Click(timeout)
	case ActionFill:
		return "", el.Fill(req.Value, timeout)
	case ActionRead:
		return el.Text(timeout)
	case ActionVisible:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported action %q", req.Action)
	}
}

func validate(page Page, req Request) error {
	if page == nil {
		return fmt.Errorf("%w: nil page", ErrInvalidRequest)
	}
	switch req.Action {
	case ActionClick, ActionRead, ActionVisible:
	case ActionFill:
		if req.Value == "" {
			return fmt.Errorf("%w: fill requires a value", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, req.Action)
	}
	for i, c := range req.Candidates {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: empty candidate at position %d", ErrInvalidRequest, i)
		}
	}
	return nil
}

func canceled(res Result, cause error) Result {
	res.Outcome = OutcomeCanceled
	res.Matched = ""
	res.Err = fmt.Errorf("%w: %w", ErrCanceled, cause)
	return res
}

func quoteAll(ss []string) []string {
	res := make([]string, len(ss))
	for i, s := range ss {
		res[i] = fmt.Sprintf("%q", s)
	}
	return res
}

func (l *Locator) debug(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Print(format, args...)
}
