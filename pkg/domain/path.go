package domain

import (
	"fmt"
	"strings"
)

// Path addresses a location in the state tree as a sequence of segments.
// The string form is dot-delimited, e.g. "components.map.btn-1.kind".
type Path []string

// ParsePath splits a dot-delimited path string into segments. Empty strings
// and empty segments yield a nil path.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	out := make(Path, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil
		}
		out = append(out, p)
	}
	return out
}

// NewPath builds a path from literal segments.
func NewPath(segments ...string) Path {
	return Path(segments)
}

// String renders the dot-delimited form.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// HasPrefix reports whether p begins with prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, seg := range prefix {
		if p[i] != seg {
			return false
		}
	}
	return true
}

// Related reports whether one path is an ancestor of (or equal to) the
// other. A write at an ancestor path changes every descendant, and a write
// at a descendant changes the subtree an ancestor subscription watches, so
// subscription matching treats both directions as a hit.
func (p Path) Related(other Path) bool {
	return p.HasPrefix(other) || other.HasPrefix(p)
}

// Equal reports segment-wise equality.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i, seg := range p {
		if other[i] != seg {
			return false
		}
	}
	return true
}

// Clone copies the path.
func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

// LookupPath resolves a path against the state tree. Whole sections and
// nodes are returned as deep copies so callers cannot mutate committed
// state. The second return is false when any segment does not resolve.
func LookupPath(state AppState, path Path) (any, bool) {
	if len(path) == 0 {
		return state.Clone(), true
	}
	switch path[0] {
	case SectionWindow:
		return lookupWindow(state.Window, path[1:])
	case SectionTheme:
		return lookupTheme(state.Theme, path[1:])
	case SectionPanels:
		return lookupPanels(state.Panels, path[1:])
	case SectionComponents:
		return lookupComponents(state.Components, path[1:])
	case SectionSelection:
		return lookupSelection(state.Selection, path[1:])
	case SectionCanvas:
		return lookupCanvas(state.Canvas, path[1:])
	case SectionProject:
		return lookupProject(state.Project, path[1:])
	default:
		return nil, false
	}
}

func lookupWindow(w WindowState, rest Path) (any, bool) {
	if len(rest) == 0 {
		return w, true
	}
	if len(rest) > 1 {
		return nil, false
	}
	switch rest[0] {
	case "width":
		return w.Width, true
	case "height":
		return w.Height, true
	case "maximized":
		return w.Maximized, true
	case "fullscreen":
		return w.Fullscreen, true
	}
	return nil, false
}

func lookupTheme(t ThemeState, rest Path) (any, bool) {
	if len(rest) == 0 {
		cp := t
		cp.Overrides = cloneStringMap(t.Overrides)
		return cp, true
	}
	switch rest[0] {
	case "mode":
		if len(rest) == 1 {
			return t.Mode, true
		}
	case "accent_hex":
		if len(rest) == 1 {
			return t.AccentHex, true
		}
	case "overrides":
		if len(rest) == 1 {
			return cloneStringMap(t.Overrides), true
		}
		if len(rest) == 2 {
			v, ok := t.Overrides[rest[1]]
			return v, ok
		}
	}
	return nil, false
}

func lookupPanels(panels map[string]Panel, rest Path) (any, bool) {
	if len(rest) == 0 {
		out := make(map[string]Panel, len(panels))
		for name, p := range panels {
			out[name] = p
		}
		return out, true
	}
	panel, ok := panels[rest[0]]
	if !ok {
		return nil, false
	}
	if len(rest) == 1 {
		return panel, true
	}
	if len(rest) > 2 {
		return nil, false
	}
	switch rest[1] {
	case "visible":
		return panel.Visible, true
	case "width":
		return panel.Width, true
	case "height":
		return panel.Height, true
	case "dock":
		return panel.Dock, true
	}
	return nil, false
}

func lookupComponents(tree ComponentTree, rest Path) (any, bool) {
	if len(rest) == 0 {
		return tree.Clone(), true
	}
	switch rest[0] {
	case "roots":
		if len(rest) == 1 {
			return append([]string(nil), tree.Roots...), true
		}
		return nil, false
	case "map":
		if len(rest) == 1 {
			return tree.Clone().Map, true
		}
		node, ok := tree.Map[rest[1]]
		if !ok {
			return nil, false
		}
		return lookupNode(node, rest[2:])
	}
	return nil, false
}

func lookupNode(node ComponentNode, rest Path) (any, bool) {
	if len(rest) == 0 {
		return node.Clone(), true
	}
	switch rest[0] {
	case "id":
		if len(rest) == 1 {
			return node.ID, true
		}
	case "kind":
		if len(rest) == 1 {
			return node.Kind, true
		}
	case "parent_id":
		if len(rest) == 1 {
			if node.ParentID == nil {
				return nil, true
			}
			return *node.ParentID, true
		}
	case "children":
		if len(rest) == 1 {
			return append([]string(nil), node.Children...), true
		}
	case "geometry":
		return lookupGeometry(node.Geometry, rest[1:])
	case "properties":
		if len(rest) == 1 {
			return CloneValue(node.Properties), true
		}
		return lookupValue(node.Properties, rest[1:])
	}
	return nil, false
}

func lookupSelection(sel SelectionState, rest Path) (any, bool) {
	if len(rest) == 0 {
		cp := sel
		cp.IDs = append([]string(nil), sel.IDs...)
		return cp, true
	}
	if len(rest) == 1 && rest[0] == "ids" {
		return append([]string(nil), sel.IDs...), true
	}
	return nil, false
}

func lookupCanvas(c CanvasState, rest Path) (any, bool) {
	if len(rest) == 0 {
		return c, true
	}
	if len(rest) > 1 {
		return nil, false
	}
	switch rest[0] {
	case "zoom":
		return c.Zoom, true
	case "offset_x":
		return c.OffsetX, true
	case "offset_y":
		return c.OffsetY, true
	case "grid_size":
		return c.GridSize, true
	case "show_grid":
		return c.ShowGrid, true
	case "snap":
		return c.Snap, true
	}
	return nil, false
}

func lookupProject(p ProjectMeta, rest Path) (any, bool) {
	if len(rest) == 0 {
		return p, true
	}
	if len(rest) > 1 {
		return nil, false
	}
	switch rest[0] {
	case "name":
		return p.Name, true
	case "file_path":
		return p.FilePath, true
	case "created_at":
		return p.CreatedAt, true
	case "updated_at":
		return p.UpdatedAt, true
	}
	return nil, false
}

func lookupGeometry(b BoundingBox, rest Path) (any, bool) {
	if len(rest) == 0 {
		return b, true
	}
	if len(rest) > 1 {
		return nil, false
	}
	switch rest[0] {
	case "x":
		return b.X, true
	case "y":
		return b.Y, true
	case "width":
		return b.Width, true
	case "height":
		return b.Height, true
	}
	return nil, false
}

// lookupValue walks a generic property value by map keys.
func lookupValue(v any, rest Path) (any, bool) {
	current := any(v)
	for _, seg := range rest {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return CloneValue(current), true
}

// ApplyChange writes a single change-set into the state tree in place. It is
// the structural setter used both for forward replay and for undo (via
// ChangeSet.Inverse). The set of addressable paths matches exactly what the
// action handlers emit; anything else is an error.
func ApplyChange(state *AppState, ch ChangeSet) error {
	path := ch.Path
	if len(path) == 0 {
		return fmt.Errorf("apply change: empty path")
	}
	switch path[0] {
	case SectionWindow:
		return applyWhole(path, ch, func(v WindowState) { state.Window = v })
	case SectionTheme:
		return applyWhole(path, ch, func(v ThemeState) { state.Theme = v })
	case SectionCanvas:
		return applyWhole(path, ch, func(v CanvasState) { state.Canvas = v })
	case SectionProject:
		return applyWhole(path, ch, func(v ProjectMeta) { state.Project = v })
	case SectionSelection:
		return applyWhole(path, ch, func(v SelectionState) { state.Selection = v })
	case SectionPanels:
		return applyPanel(state, ch)
	case SectionComponents:
		return applyComponents(state, ch)
	}
	return fmt.Errorf("apply change: unsupported path %q", path)
}

func applyWhole[T any](path Path, ch ChangeSet, set func(T)) error {
	if len(path) != 1 {
		return fmt.Errorf("apply change: unsupported path %q", path)
	}
	v, ok := ch.New.(T)
	if !ok {
		return fmt.Errorf("apply change: %q holds %T", path, ch.New)
	}
	set(v)
	return nil
}

func applyPanel(state *AppState, ch ChangeSet) error {
	if len(ch.Path) != 2 {
		return fmt.Errorf("apply change: unsupported path %q", ch.Path)
	}
	name := ch.Path[1]
	if ch.Kind == ChangeDelete {
		delete(state.Panels, name)
		return nil
	}
	panel, ok := ch.New.(Panel)
	if !ok {
		return fmt.Errorf("apply change: %q holds %T", ch.Path, ch.New)
	}
	if state.Panels == nil {
		state.Panels = map[string]Panel{}
	}
	state.Panels[name] = panel
	return nil
}

func applyComponents(state *AppState, ch ChangeSet) error {
	path := ch.Path
	if len(path) >= 2 && path[1] == "roots" && len(path) == 2 {
		roots, ok := ch.New.([]string)
		if !ok {
			return fmt.Errorf("apply change: %q holds %T", path, ch.New)
		}
		state.Components.Roots = append([]string(nil), roots...)
		return nil
	}
	if len(path) < 3 || path[1] != "map" {
		return fmt.Errorf("apply change: unsupported path %q", path)
	}
	id := path[2]
	if state.Components.Map == nil {
		state.Components.Map = map[string]ComponentNode{}
	}
	if len(path) == 3 {
		if ch.Kind == ChangeDelete {
			delete(state.Components.Map, id)
			return nil
		}
		node, ok := ch.New.(ComponentNode)
		if !ok {
			return fmt.Errorf("apply change: %q holds %T", path, ch.New)
		}
		state.Components.Map[id] = node.Clone()
		return nil
	}
	node, ok := state.Components.Map[id]
	if !ok {
		return fmt.Errorf("apply change: component %q not found", id)
	}
	switch path[3] {
	case "parent_id":
		if len(path) != 4 {
			break
		}
		switch v := ch.New.(type) {
		case nil:
			node.ParentID = nil
		case *string:
			node.ParentID = v
		case string:
			parent := v
			node.ParentID = &parent
		default:
			return fmt.Errorf("apply change: %q holds %T", path, ch.New)
		}
		state.Components.Map[id] = node
		return nil
	case "children":
		if len(path) != 4 {
			break
		}
		children, ok := ch.New.([]string)
		if !ok {
			return fmt.Errorf("apply change: %q holds %T", path, ch.New)
		}
		node.Children = append([]string(nil), children...)
		state.Components.Map[id] = node
		return nil
	case "geometry":
		if len(path) != 4 {
			break
		}
		bounds, ok := ch.New.(BoundingBox)
		if !ok {
			return fmt.Errorf("apply change: %q holds %T", path, ch.New)
		}
		node.Geometry = bounds
		state.Components.Map[id] = node
		return nil
	case "properties":
		if len(path) != 5 {
			break
		}
		key := path[4]
		if node.Properties == nil {
			node.Properties = map[string]any{}
		}
		if ch.Kind == ChangeDelete {
			delete(node.Properties, key)
		} else {
			node.Properties[key] = CloneValue(ch.New)
		}
		state.Components.Map[id] = node
		return nil
	}
	return fmt.Errorf("apply change: unsupported path %q", path)
}
