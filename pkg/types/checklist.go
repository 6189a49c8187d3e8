package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StepStatus is the assessment state of one checklist step. The canonical
// wire forms are "pending", "Pass" and "Fail"; parsing accepts any casing.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepPass    StepStatus = "Pass"
	StepFail    StepStatus = "Fail"
)

// UnmarshalJSON normalizes the status to its canonical form. Unknown values
// are preserved as-is rather than rejected; the reviewer treats them as
// non-terminal.
func (s *StepStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch strings.ToLower(raw) {
	case "pending":
		*s = StepPending
	case "pass":
		*s = StepPass
	case "fail":
		*s = StepFail
	default:
		*s = StepStatus(raw)
	}
	return nil
}

// Terminal reports whether the status is a final pass/fail assessment.
func (s StepStatus) Terminal() bool {
	return s == StepPass || s == StepFail
}

// Step is one entry of a run's checklist. The step number is unique,
// 1-based, and stable for the life of the run; only status, reasoning and
// the evidence reference ever change.
type Step struct {
	Number       int        `json:"step_number"`
	Instructions string     `json:"step_instructions,omitempty"`
	Status       StepStatus `json:"status"`
	Reasoning    string     `json:"step_reasoning,omitempty"`
	ImagePath    string     `json:"image_path,omitempty"`
}

// Checklist is the ordered, fixed-cardinality list of test steps for a run.
type Checklist struct {
	Steps []Step `json:"steps"`
}

// ParseChecklist decodes a checklist and verifies it has at least one step
// with unique step numbers.
func ParseChecklist(data []byte) (Checklist, error) {
	var c Checklist
	if err := json.Unmarshal(data, &c); err != nil {
		return Checklist{}, fmt.Errorf("failed to decode checklist: %w", err)
	}
	if len(c.Steps) == 0 {
		return Checklist{}, fmt.Errorf("checklist has no steps")
	}
	seen := make(map[int]bool, len(c.Steps))
	for _, step := range c.Steps {
		if seen[step.Number] {
			return Checklist{}, fmt.Errorf("duplicate step number %d", step.Number)
		}
		seen[step.Number] = true
	}
	return c, nil
}

// Step returns the entry with the given step number, or nil.
func (c *Checklist) Step(number int) *Step {
	for i := range c.Steps {
		if c.Steps[i].Number == number {
			return &c.Steps[i]
		}
	}
	return nil
}

// SameShape reports whether other carries exactly the same set of step
// numbers as c. The reviewer enforces this for every refreshed checklist.
func (c *Checklist) SameShape(other *Checklist) bool {
	if len(c.Steps) != len(other.Steps) {
		return false
	}
	for _, step := range c.Steps {
		if other.Step(step.Number) == nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the checklist.
func (c *Checklist) Clone() Checklist {
	steps := make([]Step, len(c.Steps))
	copy(steps, c.Steps)
	return Checklist{Steps: steps}
}

// JSON renders the checklist with its wire field names.
func (c Checklist) JSON() ([]byte, error) {
	return json.Marshal(c)
}
