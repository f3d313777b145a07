package core

import (
	"fmt"
	"reflect"
	"sort"

	"canvascore/pkg/domain"
	"github.com/google/uuid"
)

// applyAction mutates the proposed state for one validated action and
// returns the change-sets describing exactly what changed. Handlers declare
// their own changes; nothing here diffs whole trees. An empty change list
// means the action was a semantic no-op and nothing commits.
func applyAction(state *domain.AppState, action domain.Action, registry *PropertyRegistry) ([]domain.ChangeSet, error) {
	switch p := action.Payload.(type) {
	case domain.AddComponentPayload:
		return applyAddComponent(state, action.ID, p, registry), nil
	case domain.UpdateComponentPayload:
		return applyUpdateComponent(state, action.ID, p), nil
	case domain.MoveComponentPayload:
		return applyMoveComponent(state, action.ID, p), nil
	case domain.DeleteComponentPayload:
		return applyDeleteComponent(state, action.ID, p), nil
	case domain.SetSelectionPayload:
		return applyReplaceSection(state, action.ID, domain.SectionSelection,
			state.Selection, domain.SelectionState{IDs: append([]string(nil), p.IDs...)}), nil
	case domain.UpdateWindowPayload:
		return applyReplaceSection(state, action.ID, domain.SectionWindow, state.Window, p.Window), nil
	case domain.UpdateThemePayload:
		return applyReplaceSection(state, action.ID, domain.SectionTheme, state.Theme, p.Theme), nil
	case domain.UpdateCanvasPayload:
		return applyReplaceSection(state, action.ID, domain.SectionCanvas, state.Canvas, p.Canvas), nil
	case domain.UpdateProjectPayload:
		return applyReplaceSection(state, action.ID, domain.SectionProject, state.Project, p.Project), nil
	case domain.UpdatePanelPayload:
		return applyUpdatePanel(state, action.ID, p), nil
	}
	return nil, fmt.Errorf("no handler for action type %q", action.Type)
}

func newChange(actionID string, kind domain.ChangeKind, path domain.Path, oldValue, newValue any) domain.ChangeSet {
	return domain.ChangeSet{
		ActionID: actionID,
		Path:     path,
		Kind:     kind,
		Old:      oldValue,
		New:      newValue,
	}
}

func applyAddComponent(state *domain.AppState, actionID string, p domain.AddComponentPayload, registry *PropertyRegistry) []domain.ChangeSet {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	node := domain.ComponentNode{
		ID:         id,
		Kind:       p.Kind,
		Children:   []string{},
		Properties: registry.ApplyDefaults(p.Kind, p.Properties),
		Geometry:   p.Geometry,
	}
	if p.ParentID != nil {
		parent := *p.ParentID
		node.ParentID = &parent
	}

	changes := []domain.ChangeSet{
		newChange(actionID, ChangeCreate, domain.NewPath("components", "map", id), nil, node.Clone()),
	}
	if state.Components.Map == nil {
		state.Components.Map = map[string]domain.ComponentNode{}
	}
	state.Components.Map[id] = node

	if p.ParentID == nil {
		oldRoots := append([]string(nil), state.Components.Roots...)
		newRoots := insertAt(oldRoots, id, insertionIndex(p.Index))
		state.Components.Roots = newRoots
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "roots"), oldRoots, append([]string(nil), newRoots...)))
	} else {
		parent := state.Components.Map[*p.ParentID]
		oldChildren := append([]string(nil), parent.Children...)
		parent.Children = insertAt(oldChildren, id, insertionIndex(p.Index))
		state.Components.Map[*p.ParentID] = parent
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "map", *p.ParentID, "children"),
			oldChildren, append([]string(nil), parent.Children...)))
	}
	return changes
}

func applyUpdateComponent(state *domain.AppState, actionID string, p domain.UpdateComponentPayload) []domain.ChangeSet {
	node := state.Components.Map[p.ID]
	var changes []domain.ChangeSet

	if node.Properties == nil {
		node.Properties = map[string]any{}
	}
	keys := make([]string, 0, len(p.Properties))
	for key := range p.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := domain.CloneValue(p.Properties[key])
		oldValue, had := node.Properties[key]
		if had && reflect.DeepEqual(oldValue, value) {
			continue
		}
		kind := ChangeCreate
		var recordedOld any
		if had {
			kind = ChangeUpdate
			recordedOld = domain.CloneValue(oldValue)
		}
		node.Properties[key] = value
		changes = append(changes, newChange(actionID, kind,
			domain.NewPath("components", "map", p.ID, "properties", key),
			recordedOld, domain.CloneValue(value)))
	}
	for _, key := range p.RemoveProperties {
		oldValue, had := node.Properties[key]
		if !had {
			continue
		}
		delete(node.Properties, key)
		changes = append(changes, newChange(actionID, ChangeDelete,
			domain.NewPath("components", "map", p.ID, "properties", key),
			domain.CloneValue(oldValue), nil))
	}
	if p.Geometry != nil && *p.Geometry != node.Geometry {
		oldGeometry := node.Geometry
		node.Geometry = *p.Geometry
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "map", p.ID, "geometry"),
			oldGeometry, node.Geometry))
	}
	if len(changes) == 0 {
		return nil
	}
	state.Components.Map[p.ID] = node
	return changes
}

func applyMoveComponent(state *domain.AppState, actionID string, p domain.MoveComponentPayload) []domain.ChangeSet {
	node := state.Components.Map[p.ID]
	sameContainer := equalParent(node.ParentID, p.NewParentID)

	if sameContainer {
		// Reorder within the current container.
		if node.ParentID == nil {
			oldRoots := append([]string(nil), state.Components.Roots...)
			newRoots := insertAt(removeFrom(oldRoots, p.ID), p.ID, insertionIndex(p.Index))
			if equalStrings(oldRoots, newRoots) {
				return nil
			}
			state.Components.Roots = newRoots
			return []domain.ChangeSet{newChange(actionID, ChangeUpdate,
				domain.NewPath("components", "roots"), oldRoots, append([]string(nil), newRoots...))}
		}
		parent := state.Components.Map[*node.ParentID]
		oldChildren := append([]string(nil), parent.Children...)
		newChildren := insertAt(removeFrom(oldChildren, p.ID), p.ID, insertionIndex(p.Index))
		if equalStrings(oldChildren, newChildren) {
			return nil
		}
		parent.Children = newChildren
		state.Components.Map[*node.ParentID] = parent
		return []domain.ChangeSet{newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "map", *node.ParentID, "children"),
			oldChildren, append([]string(nil), newChildren...))}
	}

	var changes []domain.ChangeSet

	// Detach from the old container.
	if node.ParentID == nil {
		oldRoots := append([]string(nil), state.Components.Roots...)
		state.Components.Roots = removeFrom(oldRoots, p.ID)
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "roots"),
			oldRoots, append([]string(nil), state.Components.Roots...)))
	} else {
		oldParent := state.Components.Map[*node.ParentID]
		oldChildren := append([]string(nil), oldParent.Children...)
		oldParent.Children = removeFrom(oldChildren, p.ID)
		state.Components.Map[*node.ParentID] = oldParent
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "map", *node.ParentID, "children"),
			oldChildren, append([]string(nil), oldParent.Children...)))
	}

	// Attach to the new container.
	if p.NewParentID == nil {
		oldRoots := append([]string(nil), state.Components.Roots...)
		state.Components.Roots = insertAt(oldRoots, p.ID, insertionIndex(p.Index))
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "roots"),
			oldRoots, append([]string(nil), state.Components.Roots...)))
	} else {
		newParent := state.Components.Map[*p.NewParentID]
		oldChildren := append([]string(nil), newParent.Children...)
		newParent.Children = insertAt(oldChildren, p.ID, insertionIndex(p.Index))
		state.Components.Map[*p.NewParentID] = newParent
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "map", *p.NewParentID, "children"),
			oldChildren, append([]string(nil), newParent.Children...)))
	}

	oldParentID := clonePtr(node.ParentID)
	node.ParentID = clonePtr(p.NewParentID)
	state.Components.Map[p.ID] = node
	changes = append(changes, newChange(actionID, ChangeUpdate,
		domain.NewPath("components", "map", p.ID, "parent_id"),
		deref(oldParentID), deref(node.ParentID)))
	return changes
}

func applyDeleteComponent(state *domain.AppState, actionID string, p domain.DeleteComponentPayload) []domain.ChangeSet {
	tree := &state.Components
	node := tree.Map[p.ID]
	deleted := map[string]struct{}{p.ID: {}}
	var changes []domain.ChangeSet

	// Cascade to descendants. Recorded order is parents-first; undo applies
	// the inverses in reverse, recreating children before their ancestors'
	// references matter.
	changes = append(changes, newChange(actionID, ChangeDelete,
		domain.NewPath("components", "map", p.ID), node.Clone(), nil))
	for _, descID := range tree.Descendants(p.ID) {
		deleted[descID] = struct{}{}
		changes = append(changes, newChange(actionID, ChangeDelete,
			domain.NewPath("components", "map", descID), tree.Map[descID].Clone(), nil))
	}
	for id := range deleted {
		delete(tree.Map, id)
	}

	// Detach from the containing list.
	if node.ParentID == nil {
		oldRoots := append([]string(nil), tree.Roots...)
		tree.Roots = removeFrom(oldRoots, p.ID)
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "roots"),
			oldRoots, append([]string(nil), tree.Roots...)))
	} else if parent, ok := tree.Map[*node.ParentID]; ok {
		oldChildren := append([]string(nil), parent.Children...)
		parent.Children = removeFrom(oldChildren, p.ID)
		tree.Map[*node.ParentID] = parent
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("components", "map", *node.ParentID, "children"),
			oldChildren, append([]string(nil), parent.Children...)))
	}

	// Prune deleted ids from the selection.
	var kept []string
	pruned := false
	for _, id := range state.Selection.IDs {
		if _, gone := deleted[id]; gone {
			pruned = true
			continue
		}
		kept = append(kept, id)
	}
	if pruned {
		oldSelection := state.Selection
		state.Selection = domain.SelectionState{IDs: kept}
		changes = append(changes, newChange(actionID, ChangeUpdate,
			domain.NewPath("selection"), oldSelection, state.Selection))
	}
	return changes
}

// applyReplaceSection emits a single whole-section update, skipping
// no-op writes.
func applyReplaceSection[T any](state *domain.AppState, actionID, section string, oldValue, newValue T) []domain.ChangeSet {
	if reflect.DeepEqual(oldValue, newValue) {
		return nil
	}
	switch section {
	case domain.SectionWindow:
		state.Window = any(newValue).(domain.WindowState)
	case domain.SectionTheme:
		state.Theme = any(newValue).(domain.ThemeState)
	case domain.SectionCanvas:
		state.Canvas = any(newValue).(domain.CanvasState)
	case domain.SectionProject:
		state.Project = any(newValue).(domain.ProjectMeta)
	case domain.SectionSelection:
		state.Selection = any(newValue).(domain.SelectionState)
	}
	return []domain.ChangeSet{newChange(actionID, ChangeUpdate, domain.NewPath(section), oldValue, newValue)}
}

func applyUpdatePanel(state *domain.AppState, actionID string, p domain.UpdatePanelPayload) []domain.ChangeSet {
	existing, had := state.Panels[p.Name]
	if p.Panel == nil {
		if !had {
			return nil
		}
		delete(state.Panels, p.Name)
		return []domain.ChangeSet{newChange(actionID, ChangeDelete,
			domain.NewPath("panels", p.Name), existing, nil)}
	}
	if had && existing == *p.Panel {
		return nil
	}
	if state.Panels == nil {
		state.Panels = map[string]domain.Panel{}
	}
	state.Panels[p.Name] = *p.Panel
	if had {
		return []domain.ChangeSet{newChange(actionID, ChangeUpdate,
			domain.NewPath("panels", p.Name), existing, *p.Panel)}
	}
	return []domain.ChangeSet{newChange(actionID, ChangeCreate,
		domain.NewPath("panels", p.Name), nil, *p.Panel)}
}

// insertionIndex maps an optional payload index onto insertAt's convention:
// nil means append.
func insertionIndex(idx *int) int {
	if idx == nil {
		return -1
	}
	return *idx
}

func insertAt(list []string, id string, index int) []string {
	if index < 0 || index > len(list) {
		return append(list, id)
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, id)
	return append(out, list[index:]...)
}

func removeFrom(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != id {
			out = append(out, item)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
