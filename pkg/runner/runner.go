// Package runner executes scenarios in isolated browser sessions and applies the step severity policy.
// the locator only reports found or not found; whether a miss fails the scenario is decided here.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pushqa/wpregress/pkg/locator"
	"github.com/pushqa/wpregress/pkg/metrics"
	"github.com/pushqa/wpregress/pkg/report"
	"github.com/pushqa/wpregress/pkg/scenario"
	"github.com/pushqa/wpregress/pkg/status"
)

//go:generate moq -out mocks/session.go -pkg mocks -skip-ensure -fmt goimports . Session
//go:generate moq -out mocks/logger.go -pkg mocks -skip-ensure -fmt goimports . Logger

// Session is a single isolated browser context used by one scenario.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Page() locator.Page
	Close() error
}

// SessionFactory creates a fresh session per scenario.
type SessionFactory func() (Session, error)

// Logger receives human-readable progress lines.
type Logger interface {
	PrintPhase(phase status.Phase, format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Listener receives structured run events, used by the dashboard.
type Listener interface {
	RunStarted(runID string, scenarios []*scenario.Scenario)
	ScenarioStarted(sc *scenario.Scenario)
	StepFinished(sc *scenario.Scenario, res report.StepResult)
	ScenarioFinished(res report.ScenarioResult)
	RunFinished(sum *report.Summary)
}

// Config holds run settings.
type Config struct {
	RunID            string // generated if empty
	BaseURL          string
	Browser          string
	Parallel         int           // max scenarios in flight, 1 if not positive
	CandidateTimeout time.Duration // locator default per-candidate wait
	StepTimeout      time.Duration // upper bound for one step
	ScenarioTimeout  time.Duration // upper bound for one scenario, unless the scenario sets its own
}

// Runner executes scenarios. A Runner may be reused for several runs, e.g. in watch mode.
type Runner struct {
	cfg       Config
	sessions  SessionFactory
	log       Logger
	loc       *locator.Locator
	listeners []Listener
	metrics   *metrics.Metrics
	trace     locator.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithListener adds a structured event listener.
func WithListener(l Listener) Option {
	return func(r *Runner) { r.listeners = append(r.listeners, l) }
}

// WithMetrics records locate, step and scenario metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithTrace logs every candidate attempt made by the locator.
func WithTrace(lg locator.Logger) Option {
	return func(r *Runner) { r.trace = lg }
}

// New creates a Runner.
func New(cfg Config, sessions SessionFactory, log Logger, opts ...Option) *Runner {
	if cfg.Parallel <= 0 {
		cfg.Parallel = 1
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 30 * time.Second
	}
	if cfg.ScenarioTimeout <= 0 {
		cfg.ScenarioTimeout = 5 * time.Minute
	}
	r := &Runner{cfg: cfg, sessions: sessions, log: log}
	for _, opt := range opts {
		opt(r)
	}

	locOpts := []locator.Option{locator.WithTimeout(cfg.CandidateTimeout)}
	if r.metrics != nil {
		locOpts = append(locOpts, locator.WithObserver(r.metrics))
	}
	if r.trace != nil {
		locOpts = append(locOpts, locator.WithLogger(r.trace))
	}
	r.loc = locator.New(locOpts...)
	return r
}

// Run executes scenarios with bounded parallelism and returns the summary.
// the summary is always returned; the error is the context error if the run was canceled.
func (r *Runner) Run(ctx context.Context, scenarios []*scenario.Scenario) (*report.Summary, error) {
	runID := r.cfg.RunID
	if runID == "" {
		runID = NewRunID()
	}

	sum := &report.Summary{
		RunID:     runID,
		BaseURL:   r.cfg.BaseURL,
		Browser:   r.cfg.Browser,
		Started:   time.Now(),
		Scenarios: make([]report.ScenarioResult, len(scenarios)),
	}
	for _, l := range r.listeners {
		l.RunStarted(runID, scenarios)
	}
	r.log.PrintPhase(status.PhaseSetup, "run %s: %d scenario(s), parallel %d, base url %s",
		runID, len(scenarios), r.cfg.Parallel, r.cfg.BaseURL)

	vars := map[string]string{"RUN_ID": runID, "BASE_URL": r.cfg.BaseURL}

	var g errgroup.Group
	g.SetLimit(r.cfg.Parallel)
	for i, sc := range scenarios {
		g.Go(func() error {
			sum.Scenarios[i] = r.runScenario(ctx, sc, vars)
			return nil
		})
	}
	_ = g.Wait() // scenario failures are results, not errors

	sum.Finalize(time.Now())
	for _, l := range r.listeners {
		l.RunFinished(sum)
	}
	return sum, ctx.Err()
}

// NewRunID returns a short unique run id.
func NewRunID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func (r *Runner) runScenario(ctx context.Context, sc *scenario.Scenario, runVars map[string]string) report.ScenarioResult {
	res := report.ScenarioResult{
		ID: sc.ID, Name: sc.Name, Feature: sc.Feature, Priority: sc.Priority, Path: sc.Path,
		Steps: make([]report.StepResult, 0, len(sc.Steps)), Started: time.Now(),
	}
	started := false
	finish := func() report.ScenarioResult {
		statuses := make([]status.StepStatus, len(res.Steps))
		for i, st := range res.Steps {
			statuses[i] = st.Status
		}
		res.Status = status.Aggregate(statuses)
		if res.Error != "" && res.Status == status.ScenarioPassed {
			res.Status = status.ScenarioFailed
		}
		res.Duration = time.Since(res.Started)
		r.scenarioFinished(res, started)
		return res
	}

	if ctx.Err() != nil {
		r.fillRemaining(&res, sc, 0, status.StepCanceled)
		return finish()
	}

	r.scenarioStarted(sc)
	started = true

	timeout := r.cfg.ScenarioTimeout
	if sc.TimeoutMs > 0 {
		timeout = time.Duration(sc.TimeoutMs) * time.Millisecond
	}
	scCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sess, err := r.sessions()
	if err != nil {
		res.Error = fmt.Sprintf("create session: %v", err)
		r.log.Error("scenario %s: %s", sc.Key(), res.Error)
		r.fillRemaining(&res, sc, 0, status.StepSkipped)
		return finish()
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.log.Warn("scenario %s: close session: %v", sc.Key(), cerr)
		}
	}()

	vars := make(map[string]string, len(runVars)+1)
	for k, v := range runVars {
		vars[k] = v
	}
	vars["SCENARIO_ID"] = sc.Key()

	if sc.Start != "" {
		if err := sess.Navigate(scCtx, scenario.Expand(sc.Start, vars)); err != nil {
			if ctx.Err() != nil {
				r.fillRemaining(&res, sc, 0, status.StepCanceled)
				return finish()
			}
			res.Error = fmt.Sprintf("open start page: %v", err)
			r.log.Error("scenario %s: %s", sc.Key(), res.Error)
			r.fillRemaining(&res, sc, 0, status.StepSkipped)
			return finish()
		}
	}

	for i, step := range sc.Steps {
		if ctx.Err() != nil {
			r.fillRemaining(&res, sc, i, status.StepCanceled)
			break
		}
		if scCtx.Err() != nil {
			res.Error = fmt.Sprintf("scenario timeout %v exceeded", timeout)
			r.fillRemaining(&res, sc, i, status.StepSkipped)
			break
		}

		sr := r.runStep(ctx, scCtx, sess, i, step.Expanded(vars))
		res.Steps = append(res.Steps, sr)
		r.stepFinished(sc, sr)

		if sr.Status == status.StepFailed || sr.Status == status.StepCanceled {
			rest := status.StepSkipped
			if sr.Status == status.StepCanceled {
				rest = status.StepCanceled
			}
			r.fillRemaining(&res, sc, i+1, rest)
			break
		}
	}
	return finish()
}

// runStep executes one step and classifies the outcome.
// runCtx is the whole-run context, used to tell user cancellation apart from timeouts.
func (r *Runner) runStep(runCtx, scCtx context.Context, sess Session, idx int, step scenario.Step) report.StepResult {
	sr := report.StepResult{Index: idx, Name: step.Label(idx), Action: step.Action, Optional: step.Optional}
	start := time.Now()

	stepCtx, cancel := context.WithTimeout(scCtx, r.cfg.StepTimeout)
	defer cancel()

	err := r.execute(stepCtx, sess, step, &sr)
	sr.Duration = time.Since(start)

	switch {
	case err == nil:
		sr.Status = status.StepPassed
	case runCtx.Err() != nil:
		sr.Status = status.StepCanceled
		sr.Error = "run canceled"
	default:
		switch {
		case scCtx.Err() != nil:
			err = fmt.Errorf("scenario timeout exceeded: %w", err)
		case stepCtx.Err() != nil:
			err = fmt.Errorf("step timeout %v exceeded: %w", r.cfg.StepTimeout, err)
		}
		sr.Error = err.Error()
		sr.Status = status.StepFailed
		if step.Optional {
			sr.Status = status.StepWarned
		}
	}
	return sr
}

// execute performs the step action, filling locator details into sr.
func (r *Runner) execute(ctx context.Context, sess Session, step scenario.Step, sr *report.StepResult) error {
	switch step.Action {
	case scenario.ActionNavigate:
		return sess.Navigate(ctx, step.URL)
	case scenario.ActionWait:
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(step.DurationMs) * time.Millisecond):
			return nil
		}
	}

	req := locator.Request{
		Candidates: step.Candidates,
		Action:     locatorAction(step.Action),
		Value:      step.Value,
		Timeout:    time.Duration(step.TimeoutMs) * time.Millisecond,
	}
	lres := r.loc.Locate(ctx, sess.Page(), req)
	sr.Outcome = string(lres.Outcome)
	sr.Matched = lres.Matched
	sr.Attempted = lres.Attempted
	sr.Depth = lres.Depth()
	sr.Text = lres.Text

	switch step.Action {
	case scenario.ActionExpectAbsent:
		switch {
		case lres.Succeeded:
			return fmt.Errorf("element unexpectedly visible: %q", lres.Matched)
		case errors.Is(lres.Err, locator.ErrExhausted):
			if amb := lres.Ambiguous(); len(amb) > 0 {
				return fmt.Errorf("element unexpectedly visible: %q matches several elements", amb[0])
			}
			sr.Matched, sr.Depth = "", 0
			return nil
		default:
			return lres.Err
		}
	case scenario.ActionExpectText:
		if lres.Err != nil {
			return lres.Err
		}
		if !strings.Contains(lres.Text, step.Expect) {
			return fmt.Errorf("text %s does not contain %q", strconv.Quote(truncate(lres.Text, 120)), step.Expect)
		}
		return nil
	default:
		return lres.Err
	}
}

func locatorAction(a scenario.Action) locator.Action {
	switch a {
	case scenario.ActionClick:
		return locator.ActionClick
	case scenario.ActionFill:
		return locator.ActionFill
	case scenario.ActionRead, scenario.ActionExpectText:
		return locator.ActionRead
	case scenario.ActionVisible, scenario.ActionExpectAbsent:
		return locator.ActionVisible
	default:
		return locator.Action(a)
	}
}

// fillRemaining appends results with the given status for steps from index from onward.
func (r *Runner) fillRemaining(res *report.ScenarioResult, sc *scenario.Scenario, from int, st status.StepStatus) {
	for i := from; i < len(sc.Steps); i++ {
		sr := report.StepResult{Index: i, Name: sc.Steps[i].Label(i), Action: sc.Steps[i].Action,
			Optional: sc.Steps[i].Optional, Status: st}
		res.Steps = append(res.Steps, sr)
		if r.metrics != nil {
			r.metrics.StepFinished(st)
		}
	}
}

func (r *Runner) scenarioStarted(sc *scenario.Scenario) {
	r.log.PrintPhase(status.PhaseScenario, "scenario %s started: %s", sc.Key(), sc.Name)
	if r.metrics != nil {
		r.metrics.ScenarioStarted()
	}
	for _, l := range r.listeners {
		l.ScenarioStarted(sc)
	}
}

func (r *Runner) stepFinished(sc *scenario.Scenario, sr report.StepResult) {
	detail := ""
	if sr.Matched != "" {
		detail = fmt.Sprintf(" via %q (depth %d)", sr.Matched, sr.Depth)
	}
	switch sr.Status {
	case status.StepFailed:
		r.log.Error("%s %s / %s: %s", sr.Status.Symbol(), sc.Key(), sr.Name, sr.Error)
	case status.StepWarned:
		r.log.Warn("%s %s / %s (optional): %s", sr.Status.Symbol(), sc.Key(), sr.Name, sr.Error)
	default:
		r.log.PrintPhase(status.PhaseStep, "%s %s / %s %s%s in %v", sr.Status.Symbol(), sc.Key(), sr.Name, sr.Status,
			detail, sr.Duration.Round(time.Millisecond))
	}
	if r.metrics != nil {
		r.metrics.StepFinished(sr.Status)
	}
	for _, l := range r.listeners {
		l.StepFinished(sc, sr)
	}
}

// scenarioFinished reports the result; started is false for scenarios canceled before they began.
func (r *Runner) scenarioFinished(res report.ScenarioResult, started bool) {
	r.log.PrintPhase(status.PhaseScenario, "scenario %s %s in %v", res.Key(), res.Status, res.Duration.Round(time.Millisecond))
	if r.metrics != nil && started {
		r.metrics.ScenarioFinished(res.Status, res.Duration)
	}
	for _, l := range r.listeners {
		l.ScenarioFinished(res)
	}
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
