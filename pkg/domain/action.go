package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ActionType enumerates the closed set of intents the store understands.
type ActionType string

// Supported action types. Undo and redo flow through the same pipeline as
// forward actions but are never themselves recorded in history.
const (
	ActionAddComponent    ActionType = "add_component"
	ActionUpdateComponent ActionType = "update_component"
	ActionMoveComponent   ActionType = "move_component"
	ActionDeleteComponent ActionType = "delete_component"
	ActionSetSelection    ActionType = "set_selection"
	ActionUpdateWindow    ActionType = "update_window"
	ActionUpdateTheme     ActionType = "update_theme"
	ActionUpdateCanvas    ActionType = "update_canvas"
	ActionUpdatePanel     ActionType = "update_panel"
	ActionUpdateProject   ActionType = "update_project"
	ActionUndo            ActionType = "undo"
	ActionRedo            ActionType = "redo"
)

// Action is an immutable intent submitted to the store. Payloads are a
// closed set of typed variants validated at construction; an action that
// fails construction never reaches a handler.
type Action struct {
	ID      string
	Type    ActionType
	Time    time.Time
	Payload ActionPayload
}

// ActionPayload is implemented by exactly the payload structs below.
type ActionPayload interface {
	// Validate checks payload shape (required fields, value ranges). It
	// never consults store state; reference checks belong to validation
	// middleware.
	Validate() error

	isActionPayload()
}

// AddComponentPayload creates a new component node. ID is optional; the
// store generates one when empty. A nil or out-of-range Index appends to
// the parent's children (or roots); 0 prepends.
type AddComponentPayload struct {
	ID         string         `json:"id,omitempty"`
	Kind       string         `json:"kind"`
	ParentID   *string        `json:"parent_id,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Geometry   BoundingBox    `json:"geometry"`
	Index      *int           `json:"index,omitempty"`
}

func (p AddComponentPayload) isActionPayload() {}

// Validate checks required fields and geometry sanity.
func (p AddComponentPayload) Validate() error {
	if p.Kind == "" {
		return InvalidActionError{Type: string(ActionAddComponent), Reason: "kind is required"}
	}
	if !p.Geometry.IsValid() {
		return InvalidActionError{Type: string(ActionAddComponent), Reason: "geometry has negative or non-finite extents"}
	}
	return nil
}

// UpdateComponentPayload sets or removes properties and optionally replaces
// geometry on an existing component.
type UpdateComponentPayload struct {
	ID               string         `json:"id"`
	Properties       map[string]any `json:"properties,omitempty"`
	RemoveProperties []string       `json:"remove_properties,omitempty"`
	Geometry         *BoundingBox   `json:"geometry,omitempty"`
}

func (p UpdateComponentPayload) isActionPayload() {}

// Validate requires an id and at least one effect.
func (p UpdateComponentPayload) Validate() error {
	if p.ID == "" {
		return InvalidActionError{Type: string(ActionUpdateComponent), Reason: "id is required"}
	}
	if len(p.Properties) == 0 && len(p.RemoveProperties) == 0 && p.Geometry == nil {
		return InvalidActionError{Type: string(ActionUpdateComponent), Reason: "no properties, removals, or geometry provided"}
	}
	if p.Geometry != nil && !p.Geometry.IsValid() {
		return InvalidActionError{Type: string(ActionUpdateComponent), Reason: "geometry has negative or non-finite extents"}
	}
	return nil
}

// MoveComponentPayload reparents a component. A nil NewParentID moves it to
// the root level. A nil or out-of-range Index appends; 0 prepends.
type MoveComponentPayload struct {
	ID          string  `json:"id"`
	NewParentID *string `json:"new_parent_id,omitempty"`
	Index       *int    `json:"index,omitempty"`
}

func (p MoveComponentPayload) isActionPayload() {}

// Validate requires the moved id and rejects self-parenting outright.
func (p MoveComponentPayload) Validate() error {
	if p.ID == "" {
		return InvalidActionError{Type: string(ActionMoveComponent), Reason: "id is required"}
	}
	if p.NewParentID != nil && *p.NewParentID == p.ID {
		return InvalidActionError{Type: string(ActionMoveComponent), Reason: "component cannot be its own parent"}
	}
	return nil
}

// DeleteComponentPayload removes a component and all of its descendants.
type DeleteComponentPayload struct {
	ID string `json:"id"`
}

func (p DeleteComponentPayload) isActionPayload() {}

// Validate requires the id.
func (p DeleteComponentPayload) Validate() error {
	if p.ID == "" {
		return InvalidActionError{Type: string(ActionDeleteComponent), Reason: "id is required"}
	}
	return nil
}

// SetSelectionPayload replaces the selected component ids.
type SetSelectionPayload struct {
	IDs []string `json:"ids"`
}

func (p SetSelectionPayload) isActionPayload() {}

// Validate rejects duplicate ids within one selection.
func (p SetSelectionPayload) Validate() error {
	seen := make(map[string]struct{}, len(p.IDs))
	for _, id := range p.IDs {
		if id == "" {
			return InvalidActionError{Type: string(ActionSetSelection), Reason: "selection contains an empty id"}
		}
		if _, dup := seen[id]; dup {
			return InvalidActionError{Type: string(ActionSetSelection), Reason: fmt.Sprintf("duplicate id %q", id)}
		}
		seen[id] = struct{}{}
	}
	return nil
}

// UpdateWindowPayload replaces the window section.
type UpdateWindowPayload struct {
	Window WindowState `json:"window"`
}

func (p UpdateWindowPayload) isActionPayload() {}

// Validate rejects non-positive window extents.
func (p UpdateWindowPayload) Validate() error {
	if p.Window.Width <= 0 || p.Window.Height <= 0 {
		return InvalidActionError{Type: string(ActionUpdateWindow), Reason: "window extents must be positive"}
	}
	return nil
}

// UpdateThemePayload replaces the theme section.
type UpdateThemePayload struct {
	Theme ThemeState `json:"theme"`
}

func (p UpdateThemePayload) isActionPayload() {}

// Validate restricts mode to the known set.
func (p UpdateThemePayload) Validate() error {
	switch p.Theme.Mode {
	case "light", "dark", "system":
		return nil
	}
	return InvalidActionError{Type: string(ActionUpdateTheme), Reason: fmt.Sprintf("unknown theme mode %q", p.Theme.Mode)}
}

// UpdateCanvasPayload replaces the canvas section.
type UpdateCanvasPayload struct {
	Canvas CanvasState `json:"canvas"`
}

func (p UpdateCanvasPayload) isActionPayload() {}

// Validate bounds zoom to a sane range.
func (p UpdateCanvasPayload) Validate() error {
	if p.Canvas.Zoom <= 0 || p.Canvas.Zoom > 64 {
		return InvalidActionError{Type: string(ActionUpdateCanvas), Reason: "zoom must be in (0, 64]"}
	}
	return nil
}

// UpdatePanelPayload sets or removes a named panel. A nil Panel removes it.
type UpdatePanelPayload struct {
	Name  string `json:"name"`
	Panel *Panel `json:"panel,omitempty"`
}

func (p UpdatePanelPayload) isActionPayload() {}

// Validate requires the panel name.
func (p UpdatePanelPayload) Validate() error {
	if p.Name == "" {
		return InvalidActionError{Type: string(ActionUpdatePanel), Reason: "name is required"}
	}
	return nil
}

// UpdateProjectPayload replaces project metadata.
type UpdateProjectPayload struct {
	Project ProjectMeta `json:"project"`
}

func (p UpdateProjectPayload) isActionPayload() {}

// Validate requires a project name.
func (p UpdateProjectPayload) Validate() error {
	if p.Project.Name == "" {
		return InvalidActionError{Type: string(ActionUpdateProject), Reason: "project name is required"}
	}
	return nil
}

// UndoPayload carries no data.
type UndoPayload struct{}

func (UndoPayload) isActionPayload() {}

// Validate always passes.
func (UndoPayload) Validate() error { return nil }

// RedoPayload carries no data.
type RedoPayload struct{}

func (RedoPayload) isActionPayload() {}

// Validate always passes.
func (RedoPayload) Validate() error { return nil }

// payloadPrototype returns the zero payload for a type, or false for
// unknown types. This is the single place the closed set is enumerated for
// decoding.
func payloadPrototype(t ActionType) (ActionPayload, bool) {
	switch t {
	case ActionAddComponent:
		return AddComponentPayload{}, true
	case ActionUpdateComponent:
		return UpdateComponentPayload{}, true
	case ActionMoveComponent:
		return MoveComponentPayload{}, true
	case ActionDeleteComponent:
		return DeleteComponentPayload{}, true
	case ActionSetSelection:
		return SetSelectionPayload{}, true
	case ActionUpdateWindow:
		return UpdateWindowPayload{}, true
	case ActionUpdateTheme:
		return UpdateThemePayload{}, true
	case ActionUpdateCanvas:
		return UpdateCanvasPayload{}, true
	case ActionUpdatePanel:
		return UpdatePanelPayload{}, true
	case ActionUpdateProject:
		return UpdateProjectPayload{}, true
	case ActionUndo:
		return UndoPayload{}, true
	case ActionRedo:
		return RedoPayload{}, true
	}
	return nil, false
}

// NewAction wraps a typed payload after validating it. The store assigns
// the id and timestamp at dispatch when left zero.
func NewAction(t ActionType, payload ActionPayload) (Action, error) {
	if _, known := payloadPrototype(t); !known {
		return Action{}, InvalidActionError{Type: string(t), Reason: "unknown action type"}
	}
	if payload == nil {
		return Action{}, InvalidActionError{Type: string(t), Reason: "missing payload"}
	}
	if err := payload.Validate(); err != nil {
		return Action{}, err
	}
	return Action{Type: t, Payload: payload}, nil
}

// BuildAction decodes the external submission form {type, payload} into a
// typed, validated action. Unknown types and unknown payload fields fail
// with InvalidActionError.
func BuildAction(t string, payload map[string]any) (Action, error) {
	proto, known := payloadPrototype(ActionType(t))
	if !known {
		return Action{}, InvalidActionError{Type: t, Reason: "unknown action type"}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Action{}, InvalidActionError{Type: t, Reason: fmt.Sprintf("payload not encodable: %v", err)}
	}
	decoded, err := decodePayload(ActionType(t), proto, raw)
	if err != nil {
		return Action{}, err
	}
	return NewAction(ActionType(t), decoded)
}

func decodePayload(t ActionType, proto ActionPayload, raw []byte) (ActionPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	fail := func(err error) (ActionPayload, error) {
		return nil, InvalidActionError{Type: string(t), Reason: fmt.Sprintf("malformed payload: %v", err)}
	}
	switch proto.(type) {
	case AddComponentPayload:
		var p AddComponentPayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case UpdateComponentPayload:
		var p UpdateComponentPayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case MoveComponentPayload:
		var p MoveComponentPayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case DeleteComponentPayload:
		var p DeleteComponentPayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case SetSelectionPayload:
		var p SetSelectionPayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case UpdateWindowPayload:
		var p UpdateWindowPayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case UpdateThemePayload:
		var p UpdateThemePayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case UpdateCanvasPayload:
		var p UpdateCanvasPayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case UpdatePanelPayload:
		var p UpdatePanelPayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case UpdateProjectPayload:
		var p UpdateProjectPayload
		if err := dec.Decode(&p); err != nil {
			return fail(err)
		}
		return p, nil
	case UndoPayload:
		return UndoPayload{}, nil
	case RedoPayload:
		return RedoPayload{}, nil
	}
	return nil, InvalidActionError{Type: string(t), Reason: "unknown action type"}
}

// IsHistoryExempt reports whether the action must never be recorded in
// history (undo/redo replay themselves).
func (a Action) IsHistoryExempt() bool {
	return a.Type == ActionUndo || a.Type == ActionRedo
}
