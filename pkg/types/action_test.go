package types

import (
	"encoding/json"
	"testing"
)

func TestActionScrollDeltaNaming(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantX   float64
		wantY   float64
	}{
		{
			name:    "snake case only",
			payload: `{"type":"scroll","x":10,"y":20,"scroll_x":5,"scroll_y":-3}`,
			wantX:   5,
			wantY:   -3,
		},
		{
			name:    "camel case only",
			payload: `{"type":"scroll","x":10,"y":20,"scrollX":7,"scrollY":9}`,
			wantX:   7,
			wantY:   9,
		},
		{
			name:    "camel wins over snake",
			payload: `{"type":"scroll","x":10,"y":20,"scrollX":1,"scrollY":2,"scroll_x":100,"scroll_y":200}`,
			wantX:   1,
			wantY:   2,
		},
		{
			name:    "no deltas",
			payload: `{"type":"scroll","x":10,"y":20}`,
			wantX:   0,
			wantY:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Action
			if err := json.Unmarshal([]byte(tt.payload), &a); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.ScrollX != tt.wantX || a.ScrollY != tt.wantY {
				t.Errorf("got deltas (%v, %v), want (%v, %v)", a.ScrollX, a.ScrollY, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestActionUnknownTypeSurvivesParsing(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"type":"hover","x":3,"y":4}`), &a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Type != "hover" {
		t.Errorf("expected type 'hover', got %q", a.Type)
	}
}

func TestActionIsClickFamily(t *testing.T) {
	tests := []struct {
		typ  ActionType
		want bool
	}{
		{ActionClick, true},
		{ActionDoubleClick, true},
		{ActionScroll, false},
		{ActionKeypress, false},
		{ActionTypeText, false},
		{ActionWait, false},
	}
	for _, tt := range tests {
		if got := (Action{Type: tt.typ}).IsClickFamily(); got != tt.want {
			t.Errorf("IsClickFamily(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestActionDragPathParsing(t *testing.T) {
	var a Action
	payload := `{"type":"drag","path":[{"x":1,"y":2},{"x":3,"y":4},{"x":5,"y":6}]}`
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Path) != 3 {
		t.Fatalf("expected 3 path points, got %d", len(a.Path))
	}
	if a.Path[2] != (Point{X: 5, Y: 6}) {
		t.Errorf("unexpected final point: %+v", a.Path[2])
	}
}
