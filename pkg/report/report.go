// Package report aggregates scenario results into a run summary and writes it as JSON and Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pushqa/wpregress/pkg/git"
	"github.com/pushqa/wpregress/pkg/scenario"
	"github.com/pushqa/wpregress/pkg/status"
)

// StepResult is the outcome of a single step.
type StepResult struct {
	Index     int               `json:"index"`
	Name      string            `json:"name"`
	Action    scenario.Action   `json:"action"`
	Status    status.StepStatus `json:"status"`
	Optional  bool              `json:"optional,omitempty"`
	Outcome   string            `json:"outcome,omitempty"` // locator outcome for element steps
	Matched   string            `json:"matched,omitempty"`
	Attempted []string          `json:"attempted,omitempty"`
	Depth     int               `json:"depth,omitempty"` // 1-based position of the matched candidate
	Text      string            `json:"text,omitempty"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// Fallback reports whether the step matched a candidate other than the first.
func (s StepResult) Fallback() bool {
	return s.Depth > 1
}

// ScenarioResult is the outcome of a scenario.
type ScenarioResult struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Feature  string                `json:"feature,omitempty"`
	Priority scenario.Priority     `json:"priority,omitempty"`
	Path     string                `json:"path,omitempty"`
	Status   status.ScenarioStatus `json:"status"`
	Steps    []StepResult          `json:"steps"`
	Started  time.Time             `json:"started"`
	Duration time.Duration         `json:"duration"`
	Error    string                `json:"error,omitempty"` // setup failure (browser context, navigation)
}

// Key returns the id, falling back to the name.
func (r ScenarioResult) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Name
}

// FirstFailure returns the first failed step, nil if none.
func (r ScenarioResult) FirstFailure() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Status == status.StepFailed {
			return &r.Steps[i]
		}
	}
	return nil
}

// Totals are aggregated counters.
type Totals struct {
	Scenarios   int `json:"scenarios"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	Canceled    int `json:"canceled"`
	Steps       int `json:"steps"`
	StepsPassed int `json:"steps_passed"`
	StepsFailed int `json:"steps_failed"`
	StepsWarned int `json:"steps_warned"`
	StepsSkip   int `json:"steps_skipped"`
	StepsCancel int `json:"steps_canceled"`
	Fallbacks   int `json:"fallbacks"` // steps matched by a non-first candidate
}

// Summary is the full run report.
type Summary struct {
	RunID     string           `json:"run_id"`
	BaseURL   string           `json:"base_url"`
	Browser   string           `json:"browser"`
	Started   time.Time        `json:"started"`
	Finished  time.Time        `json:"finished"`
	Duration  time.Duration    `json:"duration"`
	Git       *git.Info        `json:"git,omitempty"`
	Totals    Totals           `json:"totals"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// Finalize recomputes totals and duration from scenario results.
func (s *Summary) Finalize(finished time.Time) {
	s.Finished = finished
	s.Duration = finished.Sub(s.Started)

	t := Totals{Scenarios: len(s.Scenarios)}
	for _, sc := range s.Scenarios {
		switch sc.Status {
		case status.ScenarioPassed:
			t.Passed++
		case status.ScenarioFailed:
			t.Failed++
		case status.ScenarioCanceled:
			t.Canceled++
		}
		for _, st := range sc.Steps {
			t.Steps++
			switch st.Status {
			case status.StepPassed:
				t.StepsPassed++
			case status.StepFailed:
				t.StepsFailed++
			case status.StepWarned:
				t.StepsWarned++
			case status.StepSkipped:
				t.StepsSkip++
			case status.StepCanceled:
				t.StepsCancel++
			}
			if st.Status == status.StepPassed && st.Fallback() {
				t.Fallbacks++
			}
		}
	}
	s.Totals = t
}

// OK reports whether every scenario passed.
func (s *Summary) OK() bool {
	return s.Totals.Failed == 0 && s.Totals.Canceled == 0
}

// FirstFailure returns a one-line description of the first failure, empty if none.
func (s *Summary) FirstFailure() string {
	for _, sc := range s.Scenarios {
		if sc.Error != "" {
			return fmt.Sprintf("%s: %s", sc.Key(), sc.Error)
		}
		if f := sc.FirstFailure(); f != nil {
			return fmt.Sprintf("%s / %s: %s", sc.Key(), f.Name, f.Error)
		}
	}
	return ""
}

// WriteJSON writes report-<run>.json into dir and returns its path.
func (s *Summary) WriteJSON(dir string) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(dir, s.filename("json"), data)
}

// WriteMarkdown writes report-<run>.md into dir and returns its path.
func (s *Summary) WriteMarkdown(dir string) (string, error) {
	return writeFile(dir, s.filename("md"), []byte(s.Markdown()))
}

// Load reads a JSON report written by WriteJSON.
func Load(path string) (*Summary, error) {
	data, err := os.ReadFile(path) //nolint:gosec // report path from reports dir
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &s, nil
}

func (s *Summary) filename(ext string) string {
	id := s.RunID
	if id == "" {
		id = s.Started.Format("20060102-150405")
	}
	return fmt.Sprintf("report-%s.%s", id, ext)
}

func writeFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return p, nil
}

// Markdown renders the summary as a markdown document.
func (s *Summary) Markdown() string {
	var b strings.Builder

	verdict := "PASSED"
	if !s.OK() {
		verdict = "FAILED"
	}
	fmt.Fprintf(&b, "# wpregress run %s: %s\n\n", s.RunID, verdict)
	fmt.Fprintf(&b, "- base url: %s\n", s.BaseURL)
	fmt.Fprintf(&b, "- browser: %s\n", s.Browser)
	fmt.Fprintf(&b, "- started: %s\n", s.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "- duration: %s\n", s.Duration.Round(time.Millisecond))
	if s.Git != nil && s.Git.Commit != "" {
		dirty := ""
		if s.Git.Dirty {
			dirty = " (dirty)"
		}
		fmt.Fprintf(&b, "- scenarios commit: %s on %s%s\n", s.Git.Short(), orDash(s.Git.Branch), dirty)
	}
	t := s.Totals
	fmt.Fprintf(&b, "- scenarios: %d passed, %d failed, %d canceled of %d\n", t.Passed, t.Failed, t.Canceled, t.Scenarios)
	fmt.Fprintf(&b, "- steps: %d passed, %d failed, %d warned, %d skipped, %d canceled; %d matched by fallback\n\n",
		t.StepsPassed, t.StepsFailed, t.StepsWarned, t.StepsSkip, t.StepsCancel, t.Fallbacks)

	b.WriteString("| scenario | feature | priority | status | duration |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, sc := range s.Scenarios {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", escape(sc.Key()), escape(orDash(sc.Feature)),
			orDash(string(sc.Priority)), sc.Status, sc.Duration.Round(time.Millisecond))
	}

	for _, sc := range s.Scenarios {
		if sc.Status == status.ScenarioPassed && !hasNotable(sc) {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", escape(sc.Key()))
		if sc.Error != "" {
			fmt.Fprintf(&b, "setup error: %s\n\n", escape(sc.Error))
		}
		b.WriteString("| # | step | status | matched | depth | error |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, st := range sc.Steps {
			fmt.Fprintf(&b, "| %d | %s | %s %s | %s | %s | %s |\n", st.Index+1, escape(st.Name), st.Status.Symbol(), st.Status,
				code(st.Matched), depth(st.Depth), escape(orDash(st.Error)))
		}
	}
	return b.String()
}

// hasNotable reports whether a passed scenario still has warnings or fallbacks worth listing.
func hasNotable(sc ScenarioResult) bool {
	for _, st := range sc.Steps {
		if st.Status == status.StepWarned || st.Fallback() {
			return true
		}
	}
	return false
}

func depth(d int) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", d)
}

func code(s string) string {
	if s == "" {
		return "-"
	}
	return "`" + escape(strings.ReplaceAll(s, "`", "'")) + "`"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// escape keeps table cells on one line and prevents pipe characters from splitting columns.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
