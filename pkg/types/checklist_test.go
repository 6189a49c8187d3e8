package types

import (
	"encoding/json"
	"testing"
)

func TestParseChecklist(t *testing.T) {
	payload := `{"steps":[
		{"step_number":1,"step_instructions":"Open the page","status":"pending"},
		{"step_number":2,"step_instructions":"Click the tab","status":"PASS","step_reasoning":"visible in screenshot"},
		{"step_number":3,"status":"fail"}
	]}`

	c, err := ParseChecklist([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(c.Steps))
	}

	// Status parsing is case-insensitive and canonicalizing.
	if c.Steps[0].Status != StepPending {
		t.Errorf("step 1 status = %q, want pending", c.Steps[0].Status)
	}
	if c.Steps[1].Status != StepPass {
		t.Errorf("step 2 status = %q, want Pass", c.Steps[1].Status)
	}
	if c.Steps[2].Status != StepFail {
		t.Errorf("step 3 status = %q, want Fail", c.Steps[2].Status)
	}
}

func TestParseChecklistRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty steps", `{"steps":[]}`},
		{"no steps field", `{}`},
		{"duplicate numbers", `{"steps":[{"step_number":1,"status":"pending"},{"step_number":1,"status":"pending"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseChecklist([]byte(tt.payload)); err == nil {
				t.Error("expected a parse error")
			}
		})
	}
}

func TestChecklistSameShape(t *testing.T) {
	base := Checklist{Steps: []Step{{Number: 1}, {Number: 2}, {Number: 3}}}

	same := Checklist{Steps: []Step{{Number: 3}, {Number: 1}, {Number: 2}}}
	if !base.SameShape(&same) {
		t.Error("reordered but equal step sets should be the same shape")
	}

	missing := Checklist{Steps: []Step{{Number: 1}, {Number: 2}}}
	if base.SameShape(&missing) {
		t.Error("a missing step should not be the same shape")
	}

	swapped := Checklist{Steps: []Step{{Number: 1}, {Number: 2}, {Number: 4}}}
	if base.SameShape(&swapped) {
		t.Error("a different step number should not be the same shape")
	}
}

func TestChecklistJSONRoundTrip(t *testing.T) {
	c := Checklist{Steps: []Step{{
		Number:       1,
		Instructions: "Open the page",
		Status:       StepPass,
		Reasoning:    "the page rendered",
		ImagePath:    "run/abc.png",
	}}}

	raw, err := c.JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	steps := decoded["steps"].([]any)
	step := steps[0].(map[string]any)
	for _, field := range []string{"step_number", "step_instructions", "status", "step_reasoning", "image_path"} {
		if _, ok := step[field]; !ok {
			t.Errorf("missing wire field %q", field)
		}
	}

	parsed, err := ParseChecklist(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Steps[0] != c.Steps[0] {
		t.Errorf("round trip changed the step: %+v", parsed.Steps[0])
	}
}

func TestChecklistCloneIsIndependent(t *testing.T) {
	c := Checklist{Steps: []Step{{Number: 1, Status: StepPending}}}
	clone := c.Clone()
	clone.Steps[0].Status = StepPass
	if c.Steps[0].Status != StepPending {
		t.Error("mutating the clone changed the original")
	}
}
