package types

import (
	"testing"
)

const sampleDecision = `{
	"id": "resp_123",
	"output": [
		{"type": "reasoning", "summary": [{"type": "summary_text", "text": "Clicking the login"}, {"type": "summary_text", "text": "button next."}]},
		{"type": "computer_call", "call_id": "call_1", "action": {"type": "click", "x": 100, "y": 200}},
		{"type": "message", "role": "assistant", "content": [{"type": "output_text", "text": "working on it"}]}
	]
}`

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision([]byte(sampleDecision))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "resp_123" {
		t.Errorf("expected id resp_123, got %q", d.ID)
	}

	call := d.ComputerCall()
	if call == nil {
		t.Fatal("expected a computer call")
	}
	if call.CallID != "call_1" || call.Action.Type != ActionClick {
		t.Errorf("unexpected computer call: %+v", call)
	}

	summaries := d.ReasoningSummaries()
	if len(summaries) != 1 || summaries[0] != "Clicking the login button next." {
		t.Errorf("unexpected summaries: %v", summaries)
	}

	if got := d.OutputText(); got != "working on it" {
		t.Errorf("unexpected output text: %q", got)
	}
}

func TestParseDecisionValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{`},
		{"missing id", `{"output":[]}`},
		{"computer call without call_id", `{"id":"r","output":[{"type":"computer_call","action":{"type":"click"}}]}`},
		{"computer call without action", `{"id":"r","output":[{"type":"computer_call","call_id":"c"}]}`},
		{"function call without name", `{"id":"r","output":[{"type":"function_call","call_id":"c"}]}`},
		{"message without role", `{"id":"r","output":[{"type":"message"}]}`},
		{"untagged item", `{"id":"r","output":[{"call_id":"c"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDecision([]byte(tt.payload)); err == nil {
				t.Error("expected a parse error")
			}
		})
	}
}

func TestDecisionMarkDone(t *testing.T) {
	payload := `{
		"id": "resp_9",
		"output": [
			{"type": "function_call", "call_id": "call_9", "name": "mark_done"},
			{"type": "computer_call", "call_id": "call_10", "action": {"type": "click", "x": 1, "y": 2}}
		]
	}`
	d, err := ParseDecision([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done := d.MarkDone()
	if done == nil {
		t.Fatal("expected a mark_done call")
	}
	if done.CallID != "call_9" {
		t.Errorf("expected call_9, got %q", done.CallID)
	}
}

func TestDecisionFirstSafetyCheck(t *testing.T) {
	payload := `{
		"id": "resp_5",
		"output": [{
			"type": "computer_call",
			"call_id": "call_5",
			"action": {"type": "click", "x": 1, "y": 2},
			"pending_safety_checks": [
				{"id": "sc1", "code": "malicious_instructions", "message": "first warning"},
				{"id": "sc2", "code": "irrelevant_domain", "message": "second warning"}
			]
		}]
	}`
	d, err := ParseDecision([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	check := d.ComputerCall().FirstSafetyCheck()
	if check == nil {
		t.Fatal("expected a safety check")
	}
	if check.Message != "first warning" {
		t.Errorf("expected the first warning only, got %q", check.Message)
	}
}

func TestDecisionAccessorsEmpty(t *testing.T) {
	d := &Decision{ID: "resp_0"}
	if d.ComputerCall() != nil || d.MarkDone() != nil || d.FirstMessage() != nil {
		t.Error("expected nil accessors on an empty decision")
	}
	if len(d.Messages()) != 0 || len(d.ReasoningSummaries()) != 0 {
		t.Error("expected empty collections on an empty decision")
	}
}
