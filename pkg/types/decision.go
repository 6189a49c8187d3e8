package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Output item type tags used by the decision oracle transport.
const (
	OutputComputerCall = "computer_call"
	OutputFunctionCall = "function_call"
	OutputMessage      = "message"
	OutputReasoning    = "reasoning"
)

// MarkDoneTool is the name of the function tool the oracle invokes to
// declare the task complete.
const MarkDoneTool = "mark_done"

// SafetyCheck is a pending safety warning attached to a computer call.
// A decision carrying one must not have its action executed.
type SafetyCheck struct {
	ID      string `json:"id,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ContentBlock is one block of message content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// SummaryBlock is one block of a reasoning summary.
type SummaryBlock struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// OutputItem is one entry of a decision's ordered output list. The Type tag
// selects which of the remaining fields are meaningful.
type OutputItem struct {
	Type string `json:"type"`

	// computer_call and function_call
	CallID string `json:"call_id,omitempty"`

	// computer_call
	Action              Action        `json:"action,omitempty"`
	PendingSafetyChecks []SafetyCheck `json:"pending_safety_checks,omitempty"`

	// function_call
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// message
	Role    string         `json:"role,omitempty"`
	Content []ContentBlock `json:"content,omitempty"`

	// reasoning
	Summary []SummaryBlock `json:"summary,omitempty"`
}

// validate checks the fields required by the item's type tag. Unknown tags
// are accepted so newer oracle output kinds pass through untouched.
func (it OutputItem) validate() error {
	switch it.Type {
	case "":
		return fmt.Errorf("output item missing type tag")
	case OutputComputerCall:
		if it.CallID == "" {
			return fmt.Errorf("computer_call missing call_id")
		}
		if it.Action.Type == "" {
			return fmt.Errorf("computer_call %s missing action", it.CallID)
		}
	case OutputFunctionCall:
		if it.CallID == "" {
			return fmt.Errorf("function_call missing call_id")
		}
		if it.Name == "" {
			return fmt.Errorf("function_call %s missing name", it.CallID)
		}
	case OutputMessage:
		if it.Role == "" {
			return fmt.Errorf("message output missing role")
		}
	}
	return nil
}

// Decision is the oracle's response to one round: a conversation handle and
// an ordered list of tagged output items.
type Decision struct {
	ID     string       `json:"id"`
	Output []OutputItem `json:"output"`
}

// ParseDecision decodes and validates a decision from transport JSON.
func ParseDecision(data []byte) (*Decision, error) {
	var d Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode decision: %w", err)
	}
	if d.ID == "" {
		return nil, fmt.Errorf("decision missing response id")
	}
	for i, it := range d.Output {
		if err := it.validate(); err != nil {
			return nil, fmt.Errorf("decision %s output[%d]: %w", d.ID, i, err)
		}
	}
	return &d, nil
}

// ComputerCall returns the first computer call in the output, or nil.
// At most one is expected per decision round.
func (d *Decision) ComputerCall() *OutputItem {
	return d.first(OutputComputerCall)
}

// MarkDone returns the first mark_done function call in the output, or nil.
func (d *Decision) MarkDone() *OutputItem {
	for i := range d.Output {
		it := &d.Output[i]
		if it.Type == OutputFunctionCall && it.Name == MarkDoneTool {
			return it
		}
	}
	return nil
}

// FirstMessage returns the first message item in the output, or nil.
func (d *Decision) FirstMessage() *OutputItem {
	return d.first(OutputMessage)
}

// Messages returns all message items in output order.
func (d *Decision) Messages() []OutputItem {
	var out []OutputItem
	for _, it := range d.Output {
		if it.Type == OutputMessage {
			out = append(out, it)
		}
	}
	return out
}

// ReasoningSummaries returns one joined summary string per reasoning item.
func (d *Decision) ReasoningSummaries() []string {
	var out []string
	for _, it := range d.Output {
		if it.Type != OutputReasoning {
			continue
		}
		parts := make([]string, 0, len(it.Summary))
		for _, s := range it.Summary {
			if s.Text != "" {
				parts = append(parts, s.Text)
			}
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, " "))
		}
	}
	return out
}

// OutputText joins the output_text blocks of all message items. This is the
// payload used when the oracle answers with structured JSON text instead of
// a tool call.
func (d *Decision) OutputText() string {
	var sb strings.Builder
	for _, msg := range d.Messages() {
		for _, block := range msg.Content {
			if block.Type == "output_text" && block.Text != "" {
				sb.WriteString(block.Text)
			}
		}
	}
	return sb.String()
}

// FirstSafetyCheck returns the first pending safety check on a computer
// call item, or nil. Only the first warning is surfaced even when several
// are present.
func (it *OutputItem) FirstSafetyCheck() *SafetyCheck {
	if len(it.PendingSafetyChecks) == 0 {
		return nil
	}
	return &it.PendingSafetyChecks[0]
}

func (d *Decision) first(typ string) *OutputItem {
	for i := range d.Output {
		if d.Output[i].Type == typ {
			return &d.Output[i]
		}
	}
	return nil
}
