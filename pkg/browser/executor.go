package browser

import (
	"context"
	"strings"
	"time"

	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/types"
)

// waitDelay is how long a wait action pauses.
var waitDelay = 2 * time.Second

// Executor applies oracle actions to a page. Execution failures are logged
// and swallowed: the follow-up screenshot shows the oracle what actually
// happened, and it decides how to proceed.
type Executor struct {
	log *logging.Logger
}

// NewExecutor creates an action executor.
func NewExecutor(log *logging.Logger) *Executor {
	return &Executor{log: log}
}

// Execute performs one action against the page.
func (e *Executor) Execute(ctx context.Context, page Page, action types.Action) {
	e.log.Debugf("handling action: %s", action)

	var err error
	switch action.Type {
	case types.ActionClick:
		err = page.Pointer().Click(action.X, action.Y, buttonOrDefault(action.Button))
	case types.ActionDoubleClick:
		err = page.Pointer().DoubleClick(action.X, action.Y, buttonOrDefault(action.Button))
	case types.ActionScroll:
		err = e.scroll(page, action)
	case types.ActionKeypress:
		err = e.keypress(page, action.Keys)
	case types.ActionDrag:
		err = e.drag(page, action.Path)
	case types.ActionTypeText:
		err = page.Keys().Type(action.Text)
	case types.ActionWait:
		select {
		case <-time.After(waitDelay):
		case <-ctx.Done():
			err = ctx.Err()
		}
	case types.ActionScreenshot:
		// The loop captures a screenshot after every round anyway.
	default:
		e.log.Errorf("unrecognized action: %s", action)
	}

	if err != nil {
		e.log.Errorf("error handling action %s: %v", action, err)
	}
}

func buttonOrDefault(button string) string {
	if button == "" {
		return "left"
	}
	return button
}

// scroll moves the pointer to the anchor point and scrolls the window by the
// resolved deltas.
func (e *Executor) scroll(page Page, action types.Action) error {
	if err := page.Pointer().Move(action.X, action.Y); err != nil {
		return err
	}
	_, err := page.Evaluate("([x, y]) => window.scrollBy(x, y)", []any{action.ScrollX, action.ScrollY})
	return err
}

// keypress holds recognized modifiers down, presses the main keys, then
// releases the modifiers in reverse order.
func (e *Executor) keypress(page Page, keys []string) error {
	if len(keys) == 0 {
		e.log.Warnf("no keys provided for keypress action")
		return nil
	}

	var modifiers, mainKeys []string
	for _, raw := range keys {
		switch strings.ToUpper(raw) {
		case "SHIFT":
			modifiers = append(modifiers, "Shift")
		case "CTRL":
			modifiers = append(modifiers, "Control")
		case "ALT":
			modifiers = append(modifiers, "Alt")
		case "META", "CMD":
			modifiers = append(modifiers, "Meta")
		default:
			mainKeys = append(mainKeys, raw)
		}
	}

	kb := page.Keys()
	for _, mod := range modifiers {
		if err := kb.Down(mod); err != nil {
			return err
		}
	}
	for _, key := range mainKeys {
		if err := kb.Press(mainKeyName(key)); err != nil {
			return err
		}
	}
	for i := len(modifiers) - 1; i >= 0; i-- {
		if err := kb.Up(modifiers[i]); err != nil {
			return err
		}
	}
	return nil
}

// mainKeyName maps common oracle spellings to the names the browser
// keyboard expects. Anything unrecognized passes through as-is.
func mainKeyName(key string) string {
	switch strings.ToUpper(key) {
	case "ENTER":
		return "Enter"
	case "SPACE":
		return " "
	case "PAGEDOWN":
		return "PageDown"
	case "PAGEUP":
		return "PageUp"
	}
	return key
}

// drag presses at the first point, moves through the rest, and releases.
func (e *Executor) drag(page Page, path []types.Point) error {
	if len(path) < 2 {
		e.log.Warnf("drag action requires a path with at least two points")
		return nil
	}

	mouse := page.Pointer()
	if err := mouse.Move(path[0].X, path[0].Y); err != nil {
		return err
	}
	if err := mouse.Down(); err != nil {
		return err
	}
	for _, point := range path[1:] {
		if err := mouse.Move(point.X, point.Y); err != nil {
			return err
		}
	}
	return mouse.Up()
}
