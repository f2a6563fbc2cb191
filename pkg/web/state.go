package web

import (
	"time"

	"github.com/pushqa/wpregress/pkg/report"
	"github.com/pushqa/wpregress/pkg/status"
)

// ScenarioState is the live view of one scenario.
type ScenarioState struct {
	ScenarioInfo
	Running  bool                  `json:"running"`
	Status   status.ScenarioStatus `json:"status,omitempty"`
	Duration time.Duration         `json:"duration,omitempty"`
	Error    string                `json:"error,omitempty"`
	Steps    []report.StepResult   `json:"steps"`
}

// State is the live view of the latest run, rebuilt from buffered events.
type State struct {
	RunID     string          `json:"run_id"`
	Running   bool            `json:"running"`
	Started   time.Time       `json:"started,omitzero"`
	Finished  time.Time       `json:"finished,omitzero"`
	Scenarios []ScenarioState `json:"scenarios"`
	Totals    *report.Totals  `json:"totals,omitempty"`
	Warnings  int             `json:"warnings"`
	Errors    int             `json:"errors"`
	LastSeq   int64           `json:"last_seq"`
}

// Snapshot folds events into the state of the most recent run. A run_start resets everything before it.
func Snapshot(events []Event) State {
	st := State{Scenarios: []ScenarioState{}}
	pos := map[string]int{}

	get := func(key string) *ScenarioState {
		if i, ok := pos[key]; ok {
			return &st.Scenarios[i]
		}
		pos[key] = len(st.Scenarios)
		st.Scenarios = append(st.Scenarios, ScenarioState{ScenarioInfo: ScenarioInfo{ID: key}, Steps: []report.StepResult{}})
		return &st.Scenarios[len(st.Scenarios)-1]
	}

	for _, e := range events {
		st.LastSeq = e.Seq
		switch e.Type {
		case EventRunStart:
			st = State{RunID: e.RunID, Running: true, Started: e.Timestamp, Scenarios: []ScenarioState{}, LastSeq: e.Seq}
			pos = map[string]int{}
			for _, info := range e.Scenarios {
				get(info.ID).ScenarioInfo = info
			}
		case EventScenarioStart:
			sc := get(e.Scenario)
			if e.Info != nil {
				sc.ScenarioInfo = *e.Info
			}
			sc.Running = true
		case EventStep:
			if e.Step != nil {
				sc := get(e.Scenario)
				sc.Steps = append(sc.Steps, *e.Step)
			}
		case EventScenarioEnd:
			sc := get(e.Scenario)
			sc.Running = false
			if r := e.Result; r != nil {
				sc.Status, sc.Duration, sc.Error = r.Status, r.Duration, r.Error
				sc.Steps = r.Steps // includes skipped and canceled steps never streamed
			}
		case EventRunEnd:
			st.Running = false
			st.Finished = e.Timestamp
			st.Totals = e.Totals
		case EventWarn:
			st.Warnings++
		case EventError:
			st.Errors++
		}
	}
	return st
}
