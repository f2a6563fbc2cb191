package web

import (
	"fmt"
	"log"
	"time"

	"github.com/pushqa/wpregress/pkg/report"
	"github.com/pushqa/wpregress/pkg/runner"
	"github.com/pushqa/wpregress/pkg/scenario"
	"github.com/pushqa/wpregress/pkg/status"
)

// publisher accepts events for streaming.
type publisher interface {
	Publish(e Event) error
}

// Broadcaster wraps a runner.Logger and streams every line to dashboard clients.
// It also implements runner.Listener for structured run events.
// All calls are forwarded to the inner logger first; broadcast failures are logged and ignored.
type Broadcaster struct {
	inner runner.Logger
	pub   publisher
}

// NewBroadcaster creates a Broadcaster forwarding to inner and publishing to pub.
func NewBroadcaster(inner runner.Logger, pub publisher) *Broadcaster {
	return &Broadcaster{inner: inner, pub: pub}
}

// PrintPhase writes a line and broadcasts it.
func (b *Broadcaster) PrintPhase(phase status.Phase, format string, args ...any) {
	b.inner.PrintPhase(phase, format, args...)
	b.broadcast(NewTextEvent(EventOutput, phase, formatText(format, args...)))
}

// Warn writes a warning and broadcasts it.
func (b *Broadcaster) Warn(format string, args ...any) {
	b.inner.Warn(format, args...)
	b.broadcast(NewTextEvent(EventWarn, status.PhaseStep, formatText(format, args...)))
}

// Error writes an error and broadcasts it.
func (b *Broadcaster) Error(format string, args ...any) {
	b.inner.Error(format, args...)
	b.broadcast(NewTextEvent(EventError, status.PhaseStep, formatText(format, args...)))
}

// RunStarted announces the scenario list.
func (b *Broadcaster) RunStarted(runID string, scenarios []*scenario.Scenario) {
	infos := make([]ScenarioInfo, len(scenarios))
	for i, sc := range scenarios {
		infos[i] = scenarioInfo(sc)
	}
	b.broadcast(Event{Type: EventRunStart, Phase: status.PhaseSetup, RunID: runID, Scenarios: infos})
}

// ScenarioStarted announces a scenario entering execution.
func (b *Broadcaster) ScenarioStarted(sc *scenario.Scenario) {
	info := scenarioInfo(sc)
	b.broadcast(Event{Type: EventScenarioStart, Phase: status.PhaseScenario, Scenario: sc.Key(), Info: &info})
}

// StepFinished streams a step result.
func (b *Broadcaster) StepFinished(sc *scenario.Scenario, res report.StepResult) {
	b.broadcast(Event{Type: EventStep, Phase: status.PhaseStep, Scenario: sc.Key(), Step: &res})
}

// ScenarioFinished streams the scenario result, including steps that never ran.
func (b *Broadcaster) ScenarioFinished(res report.ScenarioResult) {
	b.broadcast(Event{Type: EventScenarioEnd, Phase: status.PhaseScenario, Scenario: res.Key(), Result: &res})
}

// RunFinished streams the run totals.
func (b *Broadcaster) RunFinished(sum *report.Summary) {
	totals := sum.Totals
	b.broadcast(Event{Type: EventRunEnd, Phase: status.PhaseSummary, RunID: sum.RunID, Totals: &totals})
}

func (b *Broadcaster) broadcast(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if err := b.pub.Publish(e); err != nil {
		log.Printf("[WARN] failed to broadcast event: %v", err)
	}
}

func scenarioInfo(sc *scenario.Scenario) ScenarioInfo {
	return ScenarioInfo{ID: sc.Key(), Name: sc.Name, Feature: sc.Feature, Steps: len(sc.Steps)}
}

func formatText(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
