// Package status defines shared execution-model types for wpregress.
// phase and outcome types used by runner, progress, report and web packages.
package status

// Phase represents execution phase for color coding.
type Phase string

// Phase constants for execution stages.
const (
	PhaseSetup    Phase = "setup"    // browser launch, config, scenario loading
	PhaseScenario Phase = "scenario" // scenario boundaries
	PhaseStep     Phase = "step"     // individual step output
	PhaseSummary  Phase = "summary"  // run summary
)

// StepStatus is the outcome of a single scenario step.
type StepStatus string

// step status constants.
const (
	StepPassed   StepStatus = "passed"   // step action succeeded
	StepFailed   StepStatus = "failed"   // required step failed, scenario fails
	StepWarned   StepStatus = "warned"   // optional step failed, scenario continues
	StepSkipped  StepStatus = "skipped"  // not executed because an earlier required step failed
	StepCanceled StepStatus = "canceled" // run was canceled while the step was pending or in flight
)

// ScenarioStatus is the aggregated outcome of a scenario.
type ScenarioStatus string

// scenario status constants.
const (
	ScenarioPassed   ScenarioStatus = "passed"
	ScenarioFailed   ScenarioStatus = "failed"
	ScenarioCanceled ScenarioStatus = "canceled"
)

// Symbol returns a short marker used in console and markdown output.
func (s StepStatus) Symbol() string {
	switch s {
	case StepPassed:
		return "✓"
	case StepFailed:
		return "✗"
	case StepWarned:
		return "!"
	case StepSkipped:
		return "-"
	case StepCanceled:
		return "⊘"
	default:
		return "?"
	}
}

// Aggregate computes the scenario status from its step statuses.
// any canceled step makes the scenario canceled, otherwise any failed step makes it failed.
func Aggregate(steps []StepStatus) ScenarioStatus {
	res := ScenarioPassed
	for _, s := range steps {
		switch s {
		case StepCanceled:
			return ScenarioCanceled
		case StepFailed:
			res = ScenarioFailed
		}
	}
	return res
}
