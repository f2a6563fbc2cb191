package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushqa/wpregress/pkg/report"
	"github.com/pushqa/wpregress/pkg/status"
)

func TestSnapshot(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		st := Snapshot(nil)
		assert.False(t, st.Running)
		assert.Empty(t, st.Scenarios)
	})

	b := NewBuffer(100)
	add := func(e Event) { b.Add(e) }

	add(Event{Type: EventRunStart, RunID: "old", Scenarios: []ScenarioInfo{{ID: "X"}}})
	add(Event{Type: EventRunEnd})
	add(Event{Type: EventRunStart, RunID: "r2", Timestamp: time.Now(), Scenarios: []ScenarioInfo{
		{ID: "TC-1", Name: "login", Steps: 2}, {ID: "TC-2", Name: "menu", Steps: 1},
	}})
	add(Event{Type: EventScenarioStart, Scenario: "TC-1", Info: &ScenarioInfo{ID: "TC-1", Name: "login", Steps: 2}})
	add(Event{Type: EventStep, Scenario: "TC-1", Step: &report.StepResult{Index: 0, Status: status.StepPassed}})
	add(NewTextEvent(EventWarn, status.PhaseStep, "optional miss"))

	st := Snapshot(b.All())
	assert.Equal(t, "r2", st.RunID)
	assert.True(t, st.Running)
	require.Len(t, st.Scenarios, 2)
	assert.True(t, st.Scenarios[0].Running)
	assert.Len(t, st.Scenarios[0].Steps, 1)
	assert.Equal(t, "menu", st.Scenarios[1].Name)
	assert.False(t, st.Scenarios[1].Running)
	assert.Equal(t, 1, st.Warnings)
	assert.Equal(t, int64(6), st.LastSeq)

	add(Event{Type: EventScenarioEnd, Scenario: "TC-1", Result: &report.ScenarioResult{ID: "TC-1",
		Status: status.ScenarioFailed, Duration: time.Second, Steps: []report.StepResult{
			{Index: 0, Status: status.StepPassed}, {Index: 1, Status: status.StepFailed, Error: "exhausted"},
		}}})
	add(Event{Type: EventScenarioEnd, Scenario: "TC-2", Result: &report.ScenarioResult{ID: "TC-2",
		Status: status.ScenarioCanceled, Steps: []report.StepResult{{Index: 0, Status: status.StepCanceled}}}})
	add(Event{Type: EventRunEnd, Timestamp: time.Now(), Totals: &report.Totals{Scenarios: 2, Failed: 1, Canceled: 1}})

	st = Snapshot(b.All())
	assert.False(t, st.Running)
	assert.False(t, st.Finished.IsZero())
	require.NotNil(t, st.Totals)
	assert.Equal(t, 1, st.Totals.Failed)
	assert.Equal(t, status.ScenarioFailed, st.Scenarios[0].Status)
	assert.Len(t, st.Scenarios[0].Steps, 2)
	assert.Equal(t, status.ScenarioCanceled, st.Scenarios[1].Status)
	assert.Equal(t, status.StepCanceled, st.Scenarios[1].Steps[0].Status)
}
