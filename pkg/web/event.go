// Package web serves the live run dashboard: an SSE event stream, run state API and metrics.
package web

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pushqa/wpregress/pkg/report"
	"github.com/pushqa/wpregress/pkg/status"
)

// EventType represents the type of event being streamed.
type EventType string

// event types, used as SSE event names.
const (
	EventRunStart      EventType = "run_start"
	EventScenarioStart EventType = "scenario_start"
	EventStep          EventType = "step"
	EventScenarioEnd   EventType = "scenario_end"
	EventRunEnd        EventType = "run_end"
	EventOutput        EventType = "output"
	EventWarn          EventType = "warn"
	EventError         EventType = "error"
)

// ScenarioInfo describes a scenario in run_start and scenario_start events.
type ScenarioInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Feature string `json:"feature,omitempty"`
	Steps   int    `json:"steps"`
}

// Event is a single dashboard event. Seq is assigned by the Buffer and lets clients
// merge /api/history with the live stream without duplicates.
type Event struct {
	Seq       int64                  `json:"seq"`
	Type      EventType              `json:"type"`
	Phase     status.Phase           `json:"phase,omitempty"`
	RunID     string                 `json:"run_id,omitempty"`
	Scenario  string                 `json:"scenario,omitempty"` // scenario key
	Scenarios []ScenarioInfo         `json:"scenarios,omitempty"`
	Info      *ScenarioInfo          `json:"info,omitempty"`
	Step      *report.StepResult     `json:"step,omitempty"`
	Result    *report.ScenarioResult `json:"result,omitempty"` // scenario_end
	Totals    *report.Totals         `json:"totals,omitempty"`
	Text      string                 `json:"text,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewTextEvent creates an output, warn or error event.
func NewTextEvent(typ EventType, phase status.Phase, text string) Event {
	return Event{Type: typ, Phase: phase, Text: text, Timestamp: time.Now()}
}

// JSON returns the event encoded for the SSE data field.
func (e Event) JSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}
