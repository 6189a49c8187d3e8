package browser

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePointer struct {
	calls []string
}

func (f *fakePointer) Move(x, y float64) error {
	f.calls = append(f.calls, fmt.Sprintf("move %.0f,%.0f", x, y))
	return nil
}

func (f *fakePointer) Click(x, y float64, button string) error {
	f.calls = append(f.calls, fmt.Sprintf("click %.0f,%.0f %s", x, y, button))
	return nil
}

func (f *fakePointer) DoubleClick(x, y float64, button string) error {
	f.calls = append(f.calls, fmt.Sprintf("dblclick %.0f,%.0f %s", x, y, button))
	return nil
}

func (f *fakePointer) Down() error {
	f.calls = append(f.calls, "down")
	return nil
}

func (f *fakePointer) Up() error {
	f.calls = append(f.calls, "up")
	return nil
}

type fakeKeys struct {
	calls []string
}

func (f *fakeKeys) Down(key string) error {
	f.calls = append(f.calls, "down "+key)
	return nil
}

func (f *fakeKeys) Up(key string) error {
	f.calls = append(f.calls, "up "+key)
	return nil
}

func (f *fakeKeys) Press(key string) error {
	f.calls = append(f.calls, "press "+key)
	return nil
}

func (f *fakeKeys) Type(text string) error {
	f.calls = append(f.calls, "type "+text)
	return nil
}

type fakePage struct {
	pointer fakePointer
	keys    fakeKeys

	evals   []string
	evalRet any
	content string
	url     string
	shots   [][]byte
	shotErr []error
}

func (f *fakePage) Navigate(url string) error {
	f.url = url
	return nil
}

func (f *fakePage) Screenshot() ([]byte, error) {
	if len(f.shotErr) > 0 {
		err := f.shotErr[0]
		f.shotErr = f.shotErr[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.shots) == 0 {
		return []byte("png"), nil
	}
	shot := f.shots[0]
	if len(f.shots) > 1 {
		f.shots = f.shots[1:]
	}
	return shot, nil
}

func (f *fakePage) Content() (string, error) {
	return f.content, nil
}

func (f *fakePage) Evaluate(expression string, arg ...any) (any, error) {
	f.evals = append(f.evals, fmt.Sprintf("%s %v", expression, arg))
	return f.evalRet, nil
}

func (f *fakePage) URL() string {
	return f.url
}

func (f *fakePage) SetViewportSize(width, height int) error {
	return nil
}

func (f *fakePage) Pointer() Pointer {
	return &f.pointer
}

func (f *fakePage) Keys() Keys {
	return &f.keys
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	log, _ := logging.NewLogger("browser-test")
	t.Cleanup(func() { log.Close() })
	return log
}

func TestExecuteClickDefaultsToLeftButton(t *testing.T) {
	page := &fakePage{}
	executor := NewExecutor(testLogger(t))

	executor.Execute(context.Background(), page, types.Action{Type: types.ActionClick, X: 10, Y: 20})
	executor.Execute(context.Background(), page, types.Action{Type: types.ActionClick, X: 5, Y: 6, Button: "right"})
	executor.Execute(context.Background(), page, types.Action{Type: types.ActionDoubleClick, X: 1, Y: 2})

	assert.Equal(t, []string{
		"click 10,20 left",
		"click 5,6 right",
		"dblclick 1,2 left",
	}, page.pointer.calls)
}

func TestExecuteKeypressModifierOrdering(t *testing.T) {
	page := &fakePage{}
	executor := NewExecutor(testLogger(t))

	executor.Execute(context.Background(), page, types.Action{
		Type: types.ActionKeypress,
		Keys: []string{"ctrl", "SHIFT", "a"},
	})

	assert.Equal(t, []string{
		"down Control",
		"down Shift",
		"press a",
		"up Shift",
		"up Control",
	}, page.keys.calls)
}

func TestExecuteKeypressAliases(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"enter", "press Enter"},
		{"SPACE", "press  "},
		{"pageDown", "press PageDown"},
		{"PAGEUP", "press PageUp"},
		{"Tab", "press Tab"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			page := &fakePage{}
			executor := NewExecutor(testLogger(t))
			executor.Execute(context.Background(), page, types.Action{
				Type: types.ActionKeypress,
				Keys: []string{tt.key},
			})
			require.Len(t, page.keys.calls, 1)
			assert.Equal(t, tt.want, page.keys.calls[0])
		})
	}
}

func TestExecuteKeypressCmdMapsToMeta(t *testing.T) {
	page := &fakePage{}
	executor := NewExecutor(testLogger(t))

	executor.Execute(context.Background(), page, types.Action{
		Type: types.ActionKeypress,
		Keys: []string{"CMD", "c"},
	})

	assert.Equal(t, []string{"down Meta", "press c", "up Meta"}, page.keys.calls)
}

func TestExecuteDrag(t *testing.T) {
	page := &fakePage{}
	executor := NewExecutor(testLogger(t))

	executor.Execute(context.Background(), page, types.Action{
		Type: types.ActionDrag,
		Path: []types.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}},
	})

	assert.Equal(t, []string{
		"move 1,2",
		"down",
		"move 3,4",
		"move 5,6",
		"up",
	}, page.pointer.calls)
}

func TestExecuteDragRequiresTwoPoints(t *testing.T) {
	page := &fakePage{}
	executor := NewExecutor(testLogger(t))

	executor.Execute(context.Background(), page, types.Action{
		Type: types.ActionDrag,
		Path: []types.Point{{X: 1, Y: 2}},
	})

	assert.Empty(t, page.pointer.calls)
}

func TestExecuteScrollMovesThenScrolls(t *testing.T) {
	page := &fakePage{}
	executor := NewExecutor(testLogger(t))

	executor.Execute(context.Background(), page, types.Action{
		Type: types.ActionScroll, X: 100, Y: 200, ScrollX: 0, ScrollY: 400,
	})

	assert.Equal(t, []string{"move 100,200"}, page.pointer.calls)
	require.Len(t, page.evals, 1)
	assert.Contains(t, page.evals[0], "scrollBy")
	assert.Contains(t, page.evals[0], "400")
}

func TestExecuteTypeText(t *testing.T) {
	page := &fakePage{}
	executor := NewExecutor(testLogger(t))

	executor.Execute(context.Background(), page, types.Action{Type: types.ActionTypeText, Text: "hello"})

	assert.Equal(t, []string{"type hello"}, page.keys.calls)
}

func TestExecuteWaitHonorsContext(t *testing.T) {
	old := waitDelay
	waitDelay = 5 * time.Second
	t.Cleanup(func() { waitDelay = old })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		NewExecutor(testLogger(t)).Execute(ctx, &fakePage{}, types.Action{Type: types.ActionWait})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait action did not honor cancellation")
	}
}

func TestExecuteUnknownActionIsSwallowed(t *testing.T) {
	page := &fakePage{}
	executor := NewExecutor(testLogger(t))

	executor.Execute(context.Background(), page, types.Action{Type: "hover"})

	assert.Empty(t, page.pointer.calls)
	assert.Empty(t, page.keys.calls)
}
