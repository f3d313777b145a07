package core

import (
	"fmt"

	"canvascore/pkg/domain"
)

// PropertyType constrains the values a declared component property accepts.
type PropertyType string

// Property value types. Undeclared properties are opaque and accept any
// JSON value; declared ones are type-checked at validation time.
const (
	PropertyString PropertyType = "string"
	PropertyNumber PropertyType = "number"
	PropertyBool   PropertyType = "bool"
	PropertyObject PropertyType = "object"
	PropertyList   PropertyType = "list"
	PropertyAny    PropertyType = "any"
)

// PropertySpec declares one property of a component kind.
type PropertySpec struct {
	Type    PropertyType
	Default any
}

// KindSpec declares a component kind: its known properties and whether it
// may contain children.
type KindSpec struct {
	Name          string
	Properties    map[string]PropertySpec
	AllowChildren bool
}

// PropertyRegistry owns the catalogue of component kinds. It is injected
// through StateContext rather than living in a package-level singleton so
// tests can build isolated instances.
type PropertyRegistry struct {
	kinds map[string]KindSpec
}

// NewPropertyRegistry returns an empty registry.
func NewPropertyRegistry() *PropertyRegistry {
	return &PropertyRegistry{kinds: make(map[string]KindSpec)}
}

// NewDefaultPropertyRegistry returns a registry with the built-in component
// catalogue.
func NewDefaultPropertyRegistry() *PropertyRegistry {
	r := NewPropertyRegistry()
	r.Register(KindSpec{Name: "container", AllowChildren: true, Properties: map[string]PropertySpec{
		"layout": {Type: PropertyString, Default: "column"},
		"gap":    {Type: PropertyNumber, Default: 0.0},
	}})
	r.Register(KindSpec{Name: "frame", AllowChildren: true, Properties: map[string]PropertySpec{
		"title": {Type: PropertyString, Default: ""},
	}})
	r.Register(KindSpec{Name: "button", Properties: map[string]PropertySpec{
		"label":    {Type: PropertyString, Default: "Button"},
		"disabled": {Type: PropertyBool, Default: false},
	}})
	r.Register(KindSpec{Name: "text", Properties: map[string]PropertySpec{
		"content": {Type: PropertyString, Default: ""},
		"size":    {Type: PropertyNumber, Default: 14.0},
	}})
	r.Register(KindSpec{Name: "image", Properties: map[string]PropertySpec{
		"src": {Type: PropertyString, Default: ""},
		"alt": {Type: PropertyString, Default: ""},
	}})
	r.Register(KindSpec{Name: "input", Properties: map[string]PropertySpec{
		"placeholder": {Type: PropertyString, Default: ""},
		"value":       {Type: PropertyString, Default: ""},
	}})
	return r
}

// Register adds or replaces a kind definition.
func (r *PropertyRegistry) Register(spec KindSpec) {
	r.kinds[spec.Name] = spec
}

// Kind returns the definition for a kind name.
func (r *PropertyRegistry) Kind(name string) (KindSpec, bool) {
	spec, ok := r.kinds[name]
	return spec, ok
}

// Kinds returns the number of registered kinds.
func (r *PropertyRegistry) Kinds() int {
	return len(r.kinds)
}

// ValidateProperty type-checks a property value against the kind's spec.
// Properties the kind does not declare are opaque and always pass.
func (r *PropertyRegistry) ValidateProperty(kind, key string, value any) error {
	spec, ok := r.kinds[kind]
	if !ok {
		return domain.ValidationError{Rule: "known-kind", Subject: kind, Reason: "unknown component kind"}
	}
	prop, declared := spec.Properties[key]
	if !declared {
		return nil
	}
	if !matchesPropertyType(prop.Type, value) {
		return domain.ValidationError{
			Rule:    "property-type",
			Subject: key,
			Reason:  fmt.Sprintf("%q expects %s, got %T", key, prop.Type, value),
		}
	}
	return nil
}

// ApplyDefaults fills declared properties that the caller omitted. The
// input map is not mutated.
func (r *PropertyRegistry) ApplyDefaults(kind string, props map[string]any) map[string]any {
	spec, ok := r.kinds[kind]
	out := make(map[string]any, len(props)+len(spec.Properties))
	for k, v := range props {
		out[k] = domain.CloneValue(v)
	}
	if !ok {
		return out
	}
	for key, prop := range spec.Properties {
		if _, present := out[key]; !present && prop.Default != nil {
			out[key] = domain.CloneValue(prop.Default)
		}
	}
	return out
}

func matchesPropertyType(t PropertyType, value any) bool {
	if value == nil {
		return true
	}
	switch t {
	case PropertyString:
		_, ok := value.(string)
		return ok
	case PropertyNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case PropertyBool:
		_, ok := value.(bool)
		return ok
	case PropertyObject:
		_, ok := value.(map[string]any)
		return ok
	case PropertyList:
		_, ok := value.([]any)
		return ok
	case PropertyAny:
		return true
	}
	return false
}
