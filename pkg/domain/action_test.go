package domain

import (
	"errors"
	"testing"
)

func TestBuildActionKnownType(t *testing.T) {
	act, err := BuildAction("add_component", map[string]any{
		"id":       "btn-1",
		"kind":     "button",
		"geometry": map[string]any{"x": 1.0, "y": 2.0, "width": 80.0, "height": 32.0},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	payload, ok := act.Payload.(AddComponentPayload)
	if !ok {
		t.Fatalf("payload type %T", act.Payload)
	}
	if payload.Kind != "button" || payload.Geometry.Width != 80 {
		t.Fatalf("payload not decoded: %+v", payload)
	}
}

func TestBuildActionUnknownType(t *testing.T) {
	_, err := BuildAction("explode", nil)
	var invalid InvalidActionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidActionError, got %v", err)
	}
}

func TestBuildActionUnknownField(t *testing.T) {
	_, err := BuildAction("delete_component", map[string]any{"id": "a", "cascade": true})
	var invalid InvalidActionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidActionError for unknown payload field, got %v", err)
	}
}

func TestNewActionValidatesPayload(t *testing.T) {
	cases := []struct {
		name    string
		typ     ActionType
		payload ActionPayload
	}{
		{"missing kind", ActionAddComponent, AddComponentPayload{}},
		{"negative geometry", ActionAddComponent, AddComponentPayload{Kind: "button", Geometry: BoundingBox{Width: -1}}},
		{"empty update", ActionUpdateComponent, UpdateComponentPayload{ID: "a"}},
		{"self parent", ActionMoveComponent, MoveComponentPayload{ID: "a", NewParentID: strptr("a")}},
		{"missing id", ActionDeleteComponent, DeleteComponentPayload{}},
		{"duplicate selection", ActionSetSelection, SetSelectionPayload{IDs: []string{"a", "a"}}},
		{"zero window", ActionUpdateWindow, UpdateWindowPayload{}},
		{"bad theme mode", ActionUpdateTheme, UpdateThemePayload{Theme: ThemeState{Mode: "sepia"}}},
		{"zero zoom", ActionUpdateCanvas, UpdateCanvasPayload{}},
		{"unnamed panel", ActionUpdatePanel, UpdatePanelPayload{}},
		{"unnamed project", ActionUpdateProject, UpdateProjectPayload{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewAction(tc.typ, tc.payload); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}

func TestNewActionAcceptsValidPayloads(t *testing.T) {
	valid := []struct {
		typ     ActionType
		payload ActionPayload
	}{
		{ActionAddComponent, AddComponentPayload{Kind: "text", Geometry: BoundingBox{Width: 10, Height: 10}}},
		{ActionUpdateComponent, UpdateComponentPayload{ID: "a", Properties: map[string]any{"x": 1}}},
		{ActionMoveComponent, MoveComponentPayload{ID: "a", NewParentID: strptr("b")}},
		{ActionSetSelection, SetSelectionPayload{}},
		{ActionUndo, UndoPayload{}},
		{ActionRedo, RedoPayload{}},
	}
	for _, tc := range valid {
		if _, err := NewAction(tc.typ, tc.payload); err != nil {
			t.Fatalf("%s: %v", tc.typ, err)
		}
	}
}

func TestIsHistoryExempt(t *testing.T) {
	undo, _ := NewAction(ActionUndo, UndoPayload{})
	if !undo.IsHistoryExempt() {
		t.Fatalf("undo must be history exempt")
	}
	add, _ := NewAction(ActionAddComponent, AddComponentPayload{Kind: "button"})
	if add.IsHistoryExempt() {
		t.Fatalf("forward actions are recorded in history")
	}
}
