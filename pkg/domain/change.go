package domain

// ChangeKind classifies the mutation a ChangeSet describes.
type ChangeKind string

// Change kinds mirror CRUD semantics at a single tree path.
const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ChangeSet describes exactly one value that changed at one path during a
// dispatch. Handlers declare their own change-sets; the store never diffs
// whole trees. Old and New hold typed deep copies so a recorded change stays
// valid after later mutations.
type ChangeSet struct {
	ActionID string     `json:"action_id"`
	Path     Path       `json:"path"`
	Kind     ChangeKind `json:"kind"`
	Old      any        `json:"old,omitempty"`
	New      any        `json:"new,omitempty"`
}

// Inverse returns the change that undoes this one: old and new swap, and
// create/delete flip. Applying a change followed by its inverse is a no-op.
func (c ChangeSet) Inverse() ChangeSet {
	out := c
	out.Old, out.New = c.New, c.Old
	switch c.Kind {
	case ChangeCreate:
		out.Kind = ChangeDelete
	case ChangeDelete:
		out.Kind = ChangeCreate
	}
	return out
}

// ChangedPaths extracts the path of every change, preserving order and
// duplicates (the synchronizer de-duplicates per subscription).
func ChangedPaths(changes []ChangeSet) []Path {
	out := make([]Path, 0, len(changes))
	for _, ch := range changes {
		out = append(out, ch.Path.Clone())
	}
	return out
}

// DispatchResult reports a committed dispatch back to the caller.
type DispatchResult struct {
	Version uint64      `json:"version"`
	Paths   []Path      `json:"paths"`
	Changes []ChangeSet `json:"changes"`
}
