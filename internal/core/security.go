package core

import (
	"context"
	"regexp"
	"strings"

	"canvascore/pkg/domain"
)

// identifierPattern bounds component ids, panel names, and property keys to
// a shape that can never escape a tree path or a persistence key.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// securityMiddleware rejects actions whose payloads carry traversal-style
// strings or malformed identifiers. It runs first and short-circuits the
// pipeline: no state mutation, no history entry.
type securityMiddleware struct{}

// NewSecurityMiddleware constructs the security interceptor.
func NewSecurityMiddleware() Middleware { return securityMiddleware{} }

func (securityMiddleware) Name() string { return "security" }

func (securityMiddleware) Before(_ context.Context, action domain.Action, _ domain.AppState) error {
	switch p := action.Payload.(type) {
	case domain.AddComponentPayload:
		if p.ID != "" {
			if err := checkIdentifier("id", p.ID); err != nil {
				return err
			}
		}
		if err := checkIdentifier("kind", p.Kind); err != nil {
			return err
		}
		if p.ParentID != nil {
			if err := checkIdentifier("parent_id", *p.ParentID); err != nil {
				return err
			}
		}
		return checkPropertyKeys(p.Properties)
	case domain.UpdateComponentPayload:
		if err := checkIdentifier("id", p.ID); err != nil {
			return err
		}
		for _, key := range p.RemoveProperties {
			if err := checkIdentifier("remove_properties", key); err != nil {
				return err
			}
		}
		return checkPropertyKeys(p.Properties)
	case domain.MoveComponentPayload:
		if err := checkIdentifier("id", p.ID); err != nil {
			return err
		}
		if p.NewParentID != nil {
			return checkIdentifier("new_parent_id", *p.NewParentID)
		}
		return nil
	case domain.DeleteComponentPayload:
		return checkIdentifier("id", p.ID)
	case domain.SetSelectionPayload:
		for _, id := range p.IDs {
			if err := checkIdentifier("ids", id); err != nil {
				return err
			}
		}
		return nil
	case domain.UpdatePanelPayload:
		return checkIdentifier("name", p.Name)
	case domain.UpdateThemePayload:
		for key := range p.Theme.Overrides {
			if err := checkIdentifier("theme.overrides", key); err != nil {
				return err
			}
		}
		return nil
	case domain.UpdateProjectPayload:
		return checkFilePath("project.file_path", p.Project.FilePath)
	}
	return nil
}

func (securityMiddleware) After(context.Context, domain.Action, []domain.ChangeSet, domain.AppState) error {
	return nil
}

func checkIdentifier(field, value string) error {
	if !identifierPattern.MatchString(value) {
		return domain.SecurityViolationError{Field: field, Reason: "malformed identifier"}
	}
	return nil
}

func checkPropertyKeys(props map[string]any) error {
	for key := range props {
		if err := checkIdentifier("properties", key); err != nil {
			return err
		}
	}
	return nil
}

func checkFilePath(field, path string) error {
	if path == "" {
		return nil
	}
	if strings.Contains(path, "..") || strings.ContainsRune(path, 0) {
		return domain.SecurityViolationError{Field: field, Reason: "path traversal"}
	}
	return nil
}
