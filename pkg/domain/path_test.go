package domain

import "testing"

func strptr(s string) *string { return &s }

func treeFixture() AppState {
	state := NewAppState()
	state.Components = ComponentTree{
		Roots: []string{"root-1"},
		Map: map[string]ComponentNode{
			"root-1": {
				ID: "root-1", Kind: "container", Children: []string{"btn-1"},
				Geometry: BoundingBox{Width: 800, Height: 600},
			},
			"btn-1": {
				ID: "btn-1", Kind: "button", ParentID: strptr("root-1"),
				Properties: map[string]any{"label": "Go", "style": map[string]any{"bold": true}},
				Geometry:   BoundingBox{X: 10, Y: 10, Width: 80, Height: 32},
			},
		},
	}
	return state
}

func TestParsePath(t *testing.T) {
	p := ParsePath("components.map.btn-1.kind")
	if len(p) != 4 || p[2] != "btn-1" {
		t.Fatalf("unexpected parse result: %v", p)
	}
	if ParsePath("") != nil {
		t.Fatalf("empty string should parse to nil")
	}
	if ParsePath("a..b") != nil {
		t.Fatalf("empty segment should parse to nil")
	}
	if got := NewPath("window", "width").String(); got != "window.width" {
		t.Fatalf("String() = %q", got)
	}
}

func TestPathRelated(t *testing.T) {
	a := ParsePath("components.map.A")
	if !a.Related(ParsePath("components.map.A.properties.width")) {
		t.Fatalf("descendant write should relate to ancestor subscription")
	}
	if !a.Related(ParsePath("components")) {
		t.Fatalf("ancestor write should relate to descendant subscription")
	}
	if a.Related(ParsePath("components.map.B")) {
		t.Fatalf("sibling paths must not relate")
	}
}

func TestLookupPath(t *testing.T) {
	state := treeFixture()
	cases := []struct {
		path string
		want any
	}{
		{"components.map.btn-1.kind", "button"},
		{"components.map.btn-1.properties.label", "Go"},
		{"components.map.btn-1.properties.style.bold", true},
		{"components.map.btn-1.geometry.width", 80.0},
		{"components.map.btn-1.parent_id", "root-1"},
		{"window.width", 1280.0},
		{"theme.mode", "system"},
		{"project.name", "Untitled"},
		{"canvas.zoom", 1.0},
		{"canvas.grid_size", 8.0},
		{"canvas.show_grid", true},
		{"project.file_path", ""},
	}
	for _, tc := range cases {
		got, ok := LookupPath(state, ParsePath(tc.path))
		if !ok {
			t.Fatalf("lookup %q: not found", tc.path)
		}
		if got != tc.want {
			t.Fatalf("lookup %q = %v (%T), want %v", tc.path, got, got, tc.want)
		}
	}
	if _, ok := LookupPath(state, ParsePath("components.map.ghost")); ok {
		t.Fatalf("missing component should not resolve")
	}
	if _, ok := LookupPath(state, ParsePath("nonsense.path")); ok {
		t.Fatalf("unknown section should not resolve")
	}
	if _, ok := LookupPath(state, ParsePath("canvas.bogus")); ok {
		t.Fatalf("unknown canvas field should not resolve")
	}
}

func TestLookupSelectionSection(t *testing.T) {
	state := treeFixture()
	state.Selection.IDs = []string{"btn-1"}

	got, ok := LookupPath(state, ParsePath("selection"))
	if !ok {
		t.Fatalf("selection section not found")
	}
	sel := got.(SelectionState)
	if len(sel.IDs) != 1 || sel.IDs[0] != "btn-1" {
		t.Fatalf("selection = %+v", sel)
	}
	// The returned ids must be a copy, not an alias.
	sel.IDs[0] = "mutated"
	if state.Selection.IDs[0] != "btn-1" {
		t.Fatalf("selection lookup aliases committed state")
	}

	ids, ok := LookupPath(state, ParsePath("selection.ids"))
	if !ok || len(ids.([]string)) != 1 {
		t.Fatalf("selection.ids = %v, %v", ids, ok)
	}
	if _, ok := LookupPath(state, ParsePath("selection.bogus")); ok {
		t.Fatalf("unknown selection field should not resolve")
	}
}

func TestLookupWholeCanvasAndProject(t *testing.T) {
	state := treeFixture()
	got, ok := LookupPath(state, ParsePath("canvas"))
	if !ok || got.(CanvasState).Zoom != 1 {
		t.Fatalf("canvas = %v, %v", got, ok)
	}
	proj, ok := LookupPath(state, ParsePath("project"))
	if !ok || proj.(ProjectMeta).Name != "Untitled" {
		t.Fatalf("project = %v, %v", proj, ok)
	}
	if _, ok := LookupPath(state, ParsePath("project.name.extra")); ok {
		t.Fatalf("over-long project path should not resolve")
	}
}

func TestLookupPathReturnsCopies(t *testing.T) {
	state := treeFixture()
	got, ok := LookupPath(state, ParsePath("components.map.btn-1"))
	if !ok {
		t.Fatalf("lookup failed")
	}
	node := got.(ComponentNode)
	node.Properties["label"] = "mutated"
	if state.Components.Map["btn-1"].Properties["label"] != "Go" {
		t.Fatalf("lookup result aliases committed state")
	}
}

func TestApplyChangeRoundTrip(t *testing.T) {
	state := treeFixture()
	ch := ChangeSet{
		Path: ParsePath("components.map.btn-1.properties.label"),
		Kind: ChangeUpdate,
		Old:  "Go",
		New:  "Stop",
	}
	if err := ApplyChange(&state, ch); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got, _ := LookupPath(state, ch.Path); got != "Stop" {
		t.Fatalf("forward apply: got %v", got)
	}
	if err := ApplyChange(&state, ch.Inverse()); err != nil {
		t.Fatalf("apply inverse: %v", err)
	}
	if got, _ := LookupPath(state, ch.Path); got != "Go" {
		t.Fatalf("inverse apply: got %v", got)
	}
}

func TestApplyChangeCreateDeleteNode(t *testing.T) {
	state := treeFixture()
	node := ComponentNode{ID: "img-1", Kind: "image", ParentID: strptr("root-1")}
	create := ChangeSet{Path: ParsePath("components.map.img-1"), Kind: ChangeCreate, New: node}
	if err := ApplyChange(&state, create); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := state.Components.Map["img-1"]; !ok {
		t.Fatalf("node not created")
	}
	if err := ApplyChange(&state, create.Inverse()); err != nil {
		t.Fatalf("inverse create: %v", err)
	}
	if _, ok := state.Components.Map["img-1"]; ok {
		t.Fatalf("inverse of create should delete the node")
	}
}

func TestApplyChangeRejectsUnknownPaths(t *testing.T) {
	state := treeFixture()
	bad := []string{"", "bogus", "components.map.btn-1.bogus", "window.width"}
	for _, p := range bad {
		ch := ChangeSet{Path: ParsePath(p), Kind: ChangeUpdate, New: 1.0}
		if err := ApplyChange(&state, ch); err == nil {
			t.Fatalf("expected error for path %q", p)
		}
	}
}

func TestIsDescendant(t *testing.T) {
	tree := treeFixture().Components
	if !tree.IsDescendant("root-1", "btn-1") {
		t.Fatalf("btn-1 is a descendant of root-1")
	}
	if !tree.IsDescendant("btn-1", "btn-1") {
		t.Fatalf("a node is its own descendant for cycle checks")
	}
	if tree.IsDescendant("btn-1", "root-1") {
		t.Fatalf("root-1 is not a descendant of btn-1")
	}
}

func TestDescendantsDepthFirst(t *testing.T) {
	tree := ComponentTree{
		Roots: []string{"a"},
		Map: map[string]ComponentNode{
			"a": {ID: "a", Children: []string{"b", "c"}},
			"b": {ID: "b", Children: []string{"d"}},
			"c": {ID: "c"},
			"d": {ID: "d"},
		},
	}
	got := tree.Descendants("a")
	want := []string{"b", "d", "c"}
	if len(got) != len(want) {
		t.Fatalf("descendants = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("descendants = %v, want %v", got, want)
		}
	}
}
