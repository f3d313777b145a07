// Package domain defines the application state tree, actions, change-sets,
// and error types shared by every layer of canvascore. It has no in-module
// dependencies; the store, middleware, history, synchronizer, and persistence
// layers all depend on it and never the reverse.
package domain

import "time"

// Section names the top-level branches of the state tree. Paths always start
// with one of these.
const (
	SectionWindow     = "window"
	SectionTheme      = "theme"
	SectionPanels     = "panels"
	SectionComponents = "components"
	SectionSelection  = "selection"
	SectionCanvas     = "canvas"
	SectionProject    = "project"
)

// AppState is the root of the document tree. The store replaces the root
// wholesale on every committed mutation; callers must treat any AppState
// value they receive as immutable.
type AppState struct {
	Window     WindowState      `json:"window"`
	Theme      ThemeState       `json:"theme"`
	Panels     map[string]Panel `json:"panels"`
	Components ComponentTree    `json:"components"`
	Selection  SelectionState   `json:"selection"`
	Canvas     CanvasState      `json:"canvas"`
	Project    ProjectMeta      `json:"project"`
}

// WindowState holds editor window geometry and chrome flags.
type WindowState struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Maximized  bool    `json:"maximized"`
	Fullscreen bool    `json:"fullscreen"`
}

// ThemeState selects the editor theme and per-token color overrides.
type ThemeState struct {
	Mode      string            `json:"mode"` // "light" | "dark" | "system"
	AccentHex string            `json:"accent_hex,omitempty"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

// Panel describes one dockable editor panel (library, properties, layers...).
type Panel struct {
	Visible bool    `json:"visible"`
	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
	Dock    string  `json:"dock,omitempty"` // "left" | "right" | "bottom" | "floating"
}

// ComponentTree stores every component node keyed by id plus the ordered
// list of root-level component ids.
type ComponentTree struct {
	Roots []string                 `json:"roots"`
	Map   map[string]ComponentNode `json:"map"`
}

// ComponentNode is a single visual component placed on the canvas.
type ComponentNode struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	ParentID   *string        `json:"parent_id,omitempty"`
	Children   []string       `json:"children,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Geometry   BoundingBox    `json:"geometry"`
}

// SelectionState tracks the currently selected component ids in click order.
type SelectionState struct {
	IDs []string `json:"ids,omitempty"`
}

// CanvasState holds viewport pan/zoom and grid settings.
type CanvasState struct {
	Zoom     float64 `json:"zoom"`
	OffsetX  float64 `json:"offset_x"`
	OffsetY  float64 `json:"offset_y"`
	GridSize float64 `json:"grid_size,omitempty"`
	ShowGrid bool    `json:"show_grid,omitempty"`
	Snap     bool    `json:"snap,omitempty"`
}

// ProjectMeta describes the open project document.
type ProjectMeta struct {
	Name      string    `json:"name"`
	FilePath  string    `json:"file_path,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewAppState returns the default state used for fresh documents and as the
// fallback when a persisted snapshot cannot be read.
func NewAppState() AppState {
	return AppState{
		Window: WindowState{Width: 1280, Height: 800},
		Theme:  ThemeState{Mode: "system"},
		Panels: map[string]Panel{
			"library":    {Visible: true, Width: 280, Dock: "left"},
			"properties": {Visible: true, Width: 320, Dock: "right"},
			"layers":     {Visible: true, Width: 280, Dock: "left"},
		},
		Components: ComponentTree{Roots: []string{}, Map: map[string]ComponentNode{}},
		Canvas:     CanvasState{Zoom: 1, GridSize: 8, ShowGrid: true, Snap: true},
		Project:    ProjectMeta{Name: "Untitled"},
	}
}

// Clone deep-copies the state tree so a transaction can mutate its copy
// without leaking writes into the committed version.
func (s AppState) Clone() AppState {
	out := s
	out.Theme.Overrides = cloneStringMap(s.Theme.Overrides)
	out.Panels = make(map[string]Panel, len(s.Panels))
	for name, p := range s.Panels {
		out.Panels[name] = p
	}
	out.Components = s.Components.Clone()
	out.Selection.IDs = append([]string(nil), s.Selection.IDs...)
	return out
}

// Clone deep-copies the component tree.
func (t ComponentTree) Clone() ComponentTree {
	out := ComponentTree{
		Roots: append([]string(nil), t.Roots...),
		Map:   make(map[string]ComponentNode, len(t.Map)),
	}
	for id, node := range t.Map {
		out.Map[id] = node.Clone()
	}
	return out
}

// Clone deep-copies a component node including its property bag.
func (n ComponentNode) Clone() ComponentNode {
	out := n
	if n.ParentID != nil {
		parent := *n.ParentID
		out.ParentID = &parent
	}
	out.Children = append([]string(nil), n.Children...)
	if n.Properties != nil {
		out.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			out.Properties[k] = CloneValue(v)
		}
	}
	return out
}

// IsDescendant reports whether candidate is id itself or any transitive
// child of id. Used by move validation to reject cyclic parent assignment.
func (t ComponentTree) IsDescendant(id, candidate string) bool {
	if id == candidate {
		return true
	}
	node, ok := t.Map[id]
	if !ok {
		return false
	}
	for _, child := range node.Children {
		if t.IsDescendant(child, candidate) {
			return true
		}
	}
	return false
}

// Descendants returns the ids of every transitive child of id in
// depth-first order, excluding id itself.
func (t ComponentTree) Descendants(id string) []string {
	var out []string
	node, ok := t.Map[id]
	if !ok {
		return out
	}
	for _, child := range node.Children {
		out = append(out, child)
		out = append(out, t.Descendants(child)...)
	}
	return out
}

// CloneValue deep-copies a JSON-compatible value (maps, slices, scalars).
// Unknown types are returned as-is; property bags are expected to hold only
// values that survive a JSON round trip.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
