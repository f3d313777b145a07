package core

import (
	"context"
	"fmt"

	"canvascore/pkg/domain"
)

// validationMiddleware checks action semantics against the committed state:
// referenced components must exist, target parents must allow children and
// must not create cycles, and declared properties must type-check against
// the registry.
type validationMiddleware struct {
	registry *PropertyRegistry
}

// NewValidationMiddleware constructs the semantic validator.
func NewValidationMiddleware(registry *PropertyRegistry) Middleware {
	if registry == nil {
		registry = NewDefaultPropertyRegistry()
	}
	return validationMiddleware{registry: registry}
}

func (validationMiddleware) Name() string { return "validation" }

func (m validationMiddleware) Before(_ context.Context, action domain.Action, state domain.AppState) error {
	tree := state.Components
	switch p := action.Payload.(type) {
	case domain.AddComponentPayload:
		if _, known := m.registry.Kind(p.Kind); !known {
			return domain.ValidationError{Rule: "known-kind", Subject: p.Kind, Reason: "unknown component kind"}
		}
		if p.ID != "" {
			if _, exists := tree.Map[p.ID]; exists {
				return domain.ValidationError{Rule: "unique-id", Subject: p.ID, Reason: "component already exists"}
			}
		}
		if p.ParentID != nil {
			if err := m.checkParent(tree, *p.ParentID); err != nil {
				return err
			}
		}
		return m.checkProperties(p.Kind, p.Properties)
	case domain.UpdateComponentPayload:
		node, ok := tree.Map[p.ID]
		if !ok {
			return domain.ValidationError{Rule: "component-exists", Subject: p.ID, Reason: "component not found"}
		}
		return m.checkProperties(node.Kind, p.Properties)
	case domain.MoveComponentPayload:
		if _, ok := tree.Map[p.ID]; !ok {
			return domain.ValidationError{Rule: "component-exists", Subject: p.ID, Reason: "component not found"}
		}
		if p.NewParentID != nil {
			if err := m.checkParent(tree, *p.NewParentID); err != nil {
				return err
			}
			// A node may not move under itself or any of its descendants.
			if tree.IsDescendant(p.ID, *p.NewParentID) {
				return domain.ValidationError{
					Rule:    "acyclic-parent",
					Subject: p.ID,
					Reason:  fmt.Sprintf("%q is the node itself or one of its descendants", *p.NewParentID),
				}
			}
		}
		return nil
	case domain.DeleteComponentPayload:
		if _, ok := tree.Map[p.ID]; !ok {
			return domain.ValidationError{Rule: "component-exists", Subject: p.ID, Reason: "component not found"}
		}
		return nil
	case domain.SetSelectionPayload:
		for _, id := range p.IDs {
			if _, ok := tree.Map[id]; !ok {
				return domain.ValidationError{Rule: "selection-exists", Subject: id, Reason: "component not found"}
			}
		}
		return nil
	case domain.UpdatePanelPayload:
		if p.Panel != nil {
			switch p.Panel.Dock {
			case "", "left", "right", "bottom", "floating":
			default:
				return domain.ValidationError{Rule: "panel-dock", Subject: p.Name, Reason: fmt.Sprintf("unknown dock %q", p.Panel.Dock)}
			}
		}
		return nil
	}
	return nil
}

func (validationMiddleware) After(context.Context, domain.Action, []domain.ChangeSet, domain.AppState) error {
	return nil
}

func (m validationMiddleware) checkParent(tree domain.ComponentTree, parentID string) error {
	parent, ok := tree.Map[parentID]
	if !ok {
		return domain.ValidationError{Rule: "parent-exists", Subject: parentID, Reason: "parent not found"}
	}
	spec, known := m.registry.Kind(parent.Kind)
	if known && !spec.AllowChildren {
		return domain.ValidationError{Rule: "parent-allows-children", Subject: parentID, Reason: fmt.Sprintf("kind %q cannot contain children", parent.Kind)}
	}
	return nil
}

func (m validationMiddleware) checkProperties(kind string, props map[string]any) error {
	for key, value := range props {
		if err := m.registry.ValidateProperty(kind, key, value); err != nil {
			return err
		}
	}
	return nil
}
