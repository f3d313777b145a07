package core

import (
	"testing"
)

func TestDefaultRegistryCatalogue(t *testing.T) {
	r := NewDefaultPropertyRegistry()
	if r.Kinds() != 6 {
		t.Fatalf("kinds = %d, want 6", r.Kinds())
	}
	container, ok := r.Kind("container")
	if !ok || !container.AllowChildren {
		t.Fatalf("container = %+v, %v", container, ok)
	}
	button, ok := r.Kind("button")
	if !ok || button.AllowChildren {
		t.Fatalf("button = %+v, %v", button, ok)
	}
	if _, ok := r.Kind("hologram"); ok {
		t.Fatal("unknown kind resolved")
	}
}

func TestApplyDefaultsDoesNotMutateInput(t *testing.T) {
	r := NewDefaultPropertyRegistry()
	in := map[string]any{"label": "Save"}
	out := r.ApplyDefaults("button", in)
	if out["label"] != "Save" {
		t.Fatalf("explicit value lost: %v", out)
	}
	if out["disabled"] != false {
		t.Fatalf("default not applied: %v", out)
	}
	if len(in) != 1 {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestApplyDefaultsUnknownKindPassesThrough(t *testing.T) {
	r := NewDefaultPropertyRegistry()
	out := r.ApplyDefaults("hologram", map[string]any{"x": 1})
	if len(out) != 1 || out["x"] != 1 {
		t.Fatalf("out = %v", out)
	}
}

func TestValidatePropertyTypes(t *testing.T) {
	r := NewDefaultPropertyRegistry()
	cases := []struct {
		kind, key string
		value     any
		ok        bool
	}{
		{"button", "label", "Save", true},
		{"button", "label", 42, false},
		{"button", "disabled", true, true},
		{"button", "disabled", "yes", false},
		{"text", "size", 12.5, true},
		{"text", "size", 12, true}, // ints count as numbers
		{"text", "size", "big", false},
		{"button", "undeclared", struct{}{}, true}, // opaque
		{"button", "label", nil, true},             // nil clears any type
	}
	for _, tc := range cases {
		err := r.ValidateProperty(tc.kind, tc.key, tc.value)
		if tc.ok && err != nil {
			t.Errorf("%s.%s = %v rejected: %v", tc.kind, tc.key, tc.value, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s.%s = %v accepted", tc.kind, tc.key, tc.value)
		}
	}
}

func TestRegisterReplacesKind(t *testing.T) {
	r := NewPropertyRegistry()
	r.Register(KindSpec{Name: "widget", Properties: map[string]PropertySpec{
		"speed": {Type: PropertyNumber, Default: 1.0},
	}})
	r.Register(KindSpec{Name: "widget", AllowChildren: true})
	spec, _ := r.Kind("widget")
	if !spec.AllowChildren || len(spec.Properties) != 0 {
		t.Fatalf("replacement incomplete: %+v", spec)
	}
}
