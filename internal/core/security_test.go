package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"canvascore/pkg/domain"
)

func securityCheck(t *testing.T, payload domain.ActionPayload) error {
	t.Helper()
	mw := NewSecurityMiddleware()
	action := domain.Action{ID: "a1", Type: domain.ActionAddComponent, Payload: payload}
	return mw.Before(context.Background(), action, domain.NewAppState())
}

func TestIdentifierShapes(t *testing.T) {
	cases := []struct {
		id   string
		want bool // accepted
	}{
		{"btn-1", true},
		{"Root_Panel", true},
		{"a", true},
		{strings.Repeat("x", 64), true},
		{strings.Repeat("x", 65), false},
		{"-leading-dash", false},
		{"_leading-underscore", false},
		{"has space", false},
		{"dot.separated", false},
		{"../traversal", false},
		{"semi;colon", false},
	}
	for _, tc := range cases {
		err := securityCheck(t, domain.AddComponentPayload{
			ID: tc.id, Kind: "button",
			Geometry: domain.BoundingBox{Width: 1, Height: 1},
		})
		if tc.want && err != nil {
			t.Errorf("id %q rejected: %v", tc.id, err)
		}
		if !tc.want && err == nil {
			t.Errorf("id %q accepted", tc.id)
		}
	}
}

func TestPropertyKeysChecked(t *testing.T) {
	err := securityCheck(t, domain.AddComponentPayload{
		Kind:       "button",
		Geometry:   domain.BoundingBox{Width: 1, Height: 1},
		Properties: map[string]any{"on click": "boom"},
	})
	var serr domain.SecurityViolationError
	if !errors.As(err, &serr) || serr.Field != "properties" {
		t.Fatalf("expected properties violation, got %v", err)
	}
}

func TestEmptyAddIDIsGeneratedNotChecked(t *testing.T) {
	// An omitted id is filled with a uuid later; security must not reject it.
	if err := securityCheck(t, domain.AddComponentPayload{
		Kind: "button", Geometry: domain.BoundingBox{Width: 1, Height: 1},
	}); err != nil {
		t.Fatalf("empty id rejected: %v", err)
	}
	// Everywhere else an id is a reference, and empty never resolves.
	mw := NewSecurityMiddleware()
	action := domain.Action{Type: domain.ActionDeleteComponent, Payload: domain.DeleteComponentPayload{ID: ""}}
	var serr domain.SecurityViolationError
	if err := mw.Before(context.Background(), action, domain.NewAppState()); !errors.As(err, &serr) {
		t.Fatalf("empty delete id accepted: %v", err)
	}
}

func TestSelectionIDsChecked(t *testing.T) {
	mw := NewSecurityMiddleware()
	action := domain.Action{Type: domain.ActionSetSelection, Payload: domain.SetSelectionPayload{IDs: []string{"ok", "bad id"}}}
	err := mw.Before(context.Background(), action, domain.NewAppState())
	var serr domain.SecurityViolationError
	if !errors.As(err, &serr) {
		t.Fatalf("expected violation, got %v", err)
	}
}

func TestThemeOverrideKeysChecked(t *testing.T) {
	mw := NewSecurityMiddleware()
	action := domain.Action{Type: domain.ActionUpdateTheme, Payload: domain.UpdateThemePayload{
		Theme: domain.ThemeState{Mode: "dark", Overrides: map[string]string{"color/evil": "#000"}},
	}}
	if err := mw.Before(context.Background(), action, domain.NewAppState()); err == nil {
		t.Fatal("override key with slash accepted")
	}
}

func TestProjectFilePathTraversalRejected(t *testing.T) {
	mw := NewSecurityMiddleware()
	for _, path := range []string{"../../etc/passwd", "designs/..\\escape", "nul\x00byte"} {
		action := domain.Action{Type: domain.ActionUpdateProject, Payload: domain.UpdateProjectPayload{
			Project: domain.ProjectMeta{Name: "P", FilePath: path},
		}}
		err := mw.Before(context.Background(), action, domain.NewAppState())
		var serr domain.SecurityViolationError
		if !errors.As(err, &serr) {
			t.Errorf("path %q accepted", path)
		}
	}
	// Plain relative and absolute paths are fine.
	action := domain.Action{Type: domain.ActionUpdateProject, Payload: domain.UpdateProjectPayload{
		Project: domain.ProjectMeta{Name: "P", FilePath: "/home/dev/designs/app.canvas"},
	}}
	if err := mw.Before(context.Background(), action, domain.NewAppState()); err != nil {
		t.Fatalf("clean path rejected: %v", err)
	}
}
