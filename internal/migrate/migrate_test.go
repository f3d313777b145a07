package migrate

import (
	"encoding/json"
	"errors"
	"testing"

	"canvascore/pkg/domain"
)

const v1Snapshot = `{
	"schema_version": 1,
	"state": {
		"window": {"width": 1024, "height": 768},
		"theme": "dark",
		"panels": {"library": {"width": 280}},
		"components": [
			{"id": "root-1", "kind": "container", "children": ["btn-1"],
			 "geometry": {"x": 0, "y": 0, "w": 800, "h": 600}},
			{"id": "btn-1", "kind": "button", "parent_id": "root-1",
			 "properties": {"label": "Go"},
			 "geometry": {"x": 10, "y": 10, "w": 80, "h": 32}}
		],
		"selection": {"ids": ["btn-1"]},
		"canvas": {"zoom": 1.5},
		"project": {"name": "Demo", "created_at": "2024-03-01T10:00:00Z"}
	},
	"saved_at": "2024-03-02T09:00:00Z"
}`

func TestLoadMigratesV1ToCurrent(t *testing.T) {
	snap, err := Load([]byte(v1Snapshot))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.SchemaVersion != domain.CurrentSchemaVersion {
		t.Fatalf("schema version = %d, want %d", snap.SchemaVersion, domain.CurrentSchemaVersion)
	}
	btn, ok := snap.State.Components.Map["btn-1"]
	if !ok {
		t.Fatalf("component list was not lifted into the map form")
	}
	if btn.Geometry.Width != 80 || btn.Geometry.Height != 32 {
		t.Fatalf("geometry keys not renamed: %+v", btn.Geometry)
	}
	if len(snap.State.Components.Roots) != 1 || snap.State.Components.Roots[0] != "root-1" {
		t.Fatalf("roots = %v", snap.State.Components.Roots)
	}
	if snap.State.Theme.Mode != "dark" {
		t.Fatalf("theme not lifted: %+v", snap.State.Theme)
	}
	if !snap.State.Panels["library"].Visible {
		t.Fatalf("panel visibility default not applied")
	}
	if snap.State.Project.UpdatedAt.IsZero() {
		t.Fatalf("project updated_at not stamped")
	}
}

// Migration from current-1 must preserve unaffected sections verbatim.
func TestLoadPreservesUnaffectedSections(t *testing.T) {
	doc := map[string]any{
		"schema_version": domain.CurrentSchemaVersion - 1,
		"state": map[string]any{
			"window":     map[string]any{"width": 1920.0, "height": 1080.0, "maximized": true},
			"theme":      map[string]any{"mode": "light", "accent_hex": "#ff8800"},
			"panels":     map[string]any{},
			"components": map[string]any{"roots": []any{}, "map": map[string]any{}},
			"selection":  map[string]any{"ids": []any{"a", "b"}},
			"canvas":     map[string]any{"zoom": 2.0, "offset_x": 40.0},
			"project":    map[string]any{"name": "Keep"},
		},
	}
	raw, _ := json.Marshal(doc)
	snap, err := Load(raw)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.SchemaVersion != domain.CurrentSchemaVersion {
		t.Fatalf("schema version = %d", snap.SchemaVersion)
	}
	if snap.State.Window.Width != 1920 || !snap.State.Window.Maximized {
		t.Fatalf("window lost fields: %+v", snap.State.Window)
	}
	if snap.State.Theme.AccentHex != "#ff8800" {
		t.Fatalf("theme lost fields: %+v", snap.State.Theme)
	}
	if len(snap.State.Selection.IDs) != 2 {
		t.Fatalf("selection lost: %+v", snap.State.Selection)
	}
	if snap.State.Canvas.Zoom != 2 || snap.State.Canvas.OffsetX != 40 {
		t.Fatalf("canvas lost fields: %+v", snap.State.Canvas)
	}
}

func TestLoadCurrentVersionPassesThrough(t *testing.T) {
	snap := domain.Snapshot{SchemaVersion: domain.CurrentSchemaVersion, State: domain.NewAppState()}
	raw, _ := json.Marshal(snap)
	got, err := Load(raw)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.State.Canvas.Zoom != 1 {
		t.Fatalf("state altered on pass-through: %+v", got.State.Canvas)
	}
}

func TestLoadRejectsFutureVersion(t *testing.T) {
	raw := []byte(`{"schema_version": 99, "state": {}}`)
	_, err := Load(raw)
	var unsupported domain.UnsupportedSchemaVersionError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedSchemaVersionError, got %v", err)
	}
	if unsupported.Found != 99 {
		t.Fatalf("found = %d", unsupported.Found)
	}
}

func TestLoadRejectsMissingVersion(t *testing.T) {
	var unsupported domain.UnsupportedSchemaVersionError
	if _, err := Load([]byte(`{"state": {}}`)); !errors.As(err, &unsupported) {
		t.Fatalf("missing schema_version should be unsupported, got %v", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load([]byte(`{"schema_ver`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
