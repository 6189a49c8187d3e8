package types

import (
	"encoding/json"
)

// ActionType identifies one kind of UI operation proposed by the decision
// oracle. The set is open-ended: unknown types survive parsing so that newer
// oracle capabilities degrade to a logged error at execution time instead of
// a transport failure.
type ActionType string

const (
	ActionClick       ActionType = "click"
	ActionDoubleClick ActionType = "double_click"
	ActionScroll      ActionType = "scroll"
	ActionKeypress    ActionType = "keypress"
	ActionDrag        ActionType = "drag"
	ActionTypeText    ActionType = "type"
	ActionWait        ActionType = "wait"
	ActionScreenshot  ActionType = "screenshot"
)

// Point is a single coordinate in a drag path.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Action is one UI operation. Exactly one action is produced per decision
// round; which fields are meaningful depends on Type.
type Action struct {
	Type   ActionType `json:"type"`
	X      float64    `json:"x,omitempty"`
	Y      float64    `json:"y,omitempty"`
	Button string     `json:"button,omitempty"`
	Keys   []string   `json:"keys,omitempty"`
	Path   []Point    `json:"path,omitempty"`
	Text   string     `json:"text,omitempty"`

	// Scroll deltas, resolved from either naming convention on parse.
	ScrollX float64 `json:"scroll_x,omitempty"`
	ScrollY float64 `json:"scroll_y,omitempty"`
}

// UnmarshalJSON resolves the two wire conventions for scroll deltas
// (scrollX/scrollY and scroll_x/scroll_y). Camel case wins when both are
// present.
func (a *Action) UnmarshalJSON(data []byte) error {
	type plain Action
	aux := struct {
		*plain
		CamelScrollX *float64 `json:"scrollX"`
		CamelScrollY *float64 `json:"scrollY"`
		SnakeScrollX *float64 `json:"scroll_x"`
		SnakeScrollY *float64 `json:"scroll_y"`
	}{plain: (*plain)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.CamelScrollX != nil:
		a.ScrollX = *aux.CamelScrollX
	case aux.SnakeScrollX != nil:
		a.ScrollX = *aux.SnakeScrollX
	}
	switch {
	case aux.CamelScrollY != nil:
		a.ScrollY = *aux.CamelScrollY
	case aux.SnakeScrollY != nil:
		a.ScrollY = *aux.SnakeScrollY
	}
	return nil
}

// IsClickFamily reports whether the action is considered state-changing
// enough to warrant a mid-flight checklist review.
func (a Action) IsClickFamily() bool {
	return a.Type == ActionClick || a.Type == ActionDoubleClick
}

// String returns the action payload as compact JSON for logging.
func (a Action) String() string {
	b, err := json.Marshal(a)
	if err != nil {
		return string(a.Type)
	}
	return string(b)
}
