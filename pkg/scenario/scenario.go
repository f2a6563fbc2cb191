// Package scenario defines declarative regression scenarios loaded from YAML files.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by all validation errors.
var ErrInvalid = errors.New("invalid scenario")

// Action is the kind of work a step does.
type Action string

// step actions.
const (
	ActionNavigate     Action = "navigate"
	ActionClick        Action = "click"
	ActionFill         Action = "fill"
	ActionRead         Action = "read"
	ActionVisible      Action = "visible"
	ActionExpectText   Action = "expect_text"
	ActionExpectAbsent Action = "expect_absent"
	ActionWait         Action = "wait"
)

// UsesLocator reports whether the action resolves elements through candidates.
func (a Action) UsesLocator() bool {
	switch a {
	case ActionClick, ActionFill, ActionRead, ActionVisible, ActionExpectText, ActionExpectAbsent:
		return true
	default:
		return false
	}
}

// Priority ranks scenarios for reporting.
type Priority string

// priorities, from most to least important.
const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Step is a single scenario instruction.
type Step struct {
	Name       string   `yaml:"name" json:"name"`
	Action     Action   `yaml:"action" json:"action"`
	Candidates []string `yaml:"candidates,omitempty" json:"candidates,omitempty"`
	Value      string   `yaml:"value,omitempty" json:"value,omitempty"`
	URL        string   `yaml:"url,omitempty" json:"url,omitempty"`
	Expect     string   `yaml:"expect,omitempty" json:"expect,omitempty"`
	Optional   bool     `yaml:"optional,omitempty" json:"optional,omitempty"`
	TimeoutMs  int      `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`   // per-candidate override
	DurationMs int      `yaml:"duration_ms,omitempty" json:"duration_ms,omitempty"` // pause length for wait
}

// Label returns the step name or a generated one.
func (s Step) Label(idx int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step %d (%s)", idx+1, s.Action)
}

// Scenario is an ordered list of steps run in one browser context.
type Scenario struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Feature   string   `yaml:"feature,omitempty" json:"feature,omitempty"`
	Priority  Priority `yaml:"priority,omitempty" json:"priority,omitempty"`
	Start     string   `yaml:"start,omitempty" json:"start,omitempty"`
	TimeoutMs int      `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	Steps     []Step   `yaml:"steps" json:"steps"`

	Path string `yaml:"-" json:"path,omitempty"` // source file
}

// Key returns the id, falling back to the name.
func (s *Scenario) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Name
}

// Validate checks the scenario and returns all problems in one error wrapping ErrInvalid.
func (s *Scenario) Validate() error {
	var problems []string
	if s.ID == "" && s.Name == "" {
		problems = append(problems, "id or name is required")
	}
	switch s.Priority {
	case "", PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
	default:
		problems = append(problems, fmt.Sprintf("unknown priority %q", s.Priority))
	}
	if s.TimeoutMs < 0 {
		problems = append(problems, "timeout_ms must be non-negative")
	}
	if len(s.Steps) == 0 {
		problems = append(problems, "at least one step is required")
	}

	for i, st := range s.Steps {
		prefix := fmt.Sprintf("step %d", i+1)
		if st.Name != "" {
			prefix = fmt.Sprintf("step %d %q", i+1, st.Name)
		}
		if st.TimeoutMs < 0 {
			problems = append(problems, prefix+": timeout_ms must be non-negative")
		}
		if st.Action.UsesLocator() {
			if len(st.Candidates) == 0 {
				problems = append(problems, prefix+": at least one candidate is required")
			}
			if slices.ContainsFunc(st.Candidates, func(c string) bool { return strings.TrimSpace(c) == "" }) {
				problems = append(problems, prefix+": candidates must not be blank")
			}
		}
		switch st.Action {
		case ActionFill:
			if st.Value == "" {
				problems = append(problems, prefix+": fill requires value")
			}
		case ActionNavigate:
			if st.URL == "" {
				problems = append(problems, prefix+": navigate requires url")
			}
		case ActionExpectText:
			if st.Expect == "" {
				problems = append(problems, prefix+": expect_text requires expect")
			}
		case ActionWait:
			if st.DurationMs <= 0 {
				problems = append(problems, prefix+": wait requires positive duration_ms")
			}
		case ActionClick, ActionRead, ActionVisible, ActionExpectAbsent:
		case "":
			problems = append(problems, prefix+": action is required")
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown action %q", prefix, st.Action))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w %s: %s", ErrInvalid, s.Key(), strings.Join(problems, "; "))
}

// file is the on-disk shape: either a single scenario or a scenarios list.
type file struct {
	Scenario  `yaml:",inline"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load reads and validates scenarios from a YAML file.
func Load(p string) ([]*Scenario, error) {
	data, err := os.ReadFile(p) //nolint:gosec // path comes from cli args or scenarios dir
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	for _, sc := range res {
		sc.Path = p
	}
	return res, nil
}

// Parse decodes and validates scenarios from YAML bytes. unknown keys are rejected.
func Parse(data []byte) ([]*Scenario, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var res []*Scenario
	if len(f.Scenarios) > 0 {
		if len(f.Steps) > 0 || f.ID != "" || f.Name != "" {
			return nil, fmt.Errorf("%w: file mixes top-level scenario with scenarios list", ErrInvalid)
		}
		for i := range f.Scenarios {
			res = append(res, &f.Scenarios[i])
		}
	} else {
		sc := f.Scenario
		res = append(res, &sc)
	}

	var errs []error
	for _, sc := range res {
		if err := sc.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return res, nil
}

// IsScenarioFile reports whether the path has a scenario file extension.
func IsScenarioFile(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".yaml" || ext == ".yml"
}

// LoadDir loads all *.yaml and *.yml files under dir recursively, in lexical path order.
// hidden files and directories are skipped.
func LoadDir(dir string) ([]*Scenario, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsScenarioFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk scenarios dir %s: %w", dir, err)
	}
	slices.Sort(files)

	var res []*Scenario
	var errs []error
	for _, f := range files {
		scs, err := Load(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res = append(res, scs...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return res, nil
}

// LoadPaths loads scenarios from a mix of files and directories.
// duplicate keys are rejected so reports stay unambiguous.
func LoadPaths(paths ...string) ([]*Scenario, error) {
	var res []*Scenario
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		var scs []*Scenario
		if info.IsDir() {
			scs, err = LoadDir(p)
		} else {
			scs, err = Load(p)
		}
		if err != nil {
			return nil, err
		}
		res = append(res, scs...)
	}

	seen := map[string]string{}
	for _, sc := range res {
		if prev, ok := seen[sc.Key()]; ok {
			return nil, fmt.Errorf("%w: duplicate id %q in %s and %s", ErrInvalid, sc.Key(), prev, sc.Path)
		}
		seen[sc.Key()] = sc.Path
	}
	return res, nil
}

// Filter returns scenarios whose id, feature or name matches the glob pattern (case-insensitive).
// an empty pattern returns the input unchanged.
func Filter(list []*Scenario, pattern string) []*Scenario {
	if pattern == "" {
		return list
	}
	pattern = strings.ToLower(pattern)
	var res []*Scenario
	for _, sc := range list {
		for _, v := range []string{sc.ID, sc.Feature, sc.Name} {
			if v == "" {
				continue
			}
			if ok, err := path.Match(pattern, strings.ToLower(v)); err == nil && ok {
				res = append(res, sc)
				break
			}
		}
	}
	return res
}

// varRef matches ${NAME}, optionally escaped as $${NAME}.
var varRef = regexp.MustCompile(`\$?\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Expand replaces ${NAME} references using vars first, then the process environment.
// unknown variables expand to empty strings. Only the braced form is expanded, any other
// dollar sign is kept as is; $${NAME} yields a literal ${NAME}.
func Expand(s string, vars map[string]string) string {
	return varRef.ReplaceAllStringFunc(s, func(ref string) string {
		if strings.HasPrefix(ref, "$$") {
			return ref[1:]
		}
		key := ref[2 : len(ref)-1]
		if v, ok := vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}

// Expanded returns a copy of the step with value, url and expect expanded.
func (s Step) Expanded(vars map[string]string) Step {
	s.Value = Expand(s.Value, vars)
	s.URL = Expand(s.URL, vars)
	s.Expect = Expand(s.Expect, vars)
	return s
}
