package domain

import (
	"context"
	"time"
)

// CurrentSchemaVersion is the snapshot schema produced by this build.
// Loaders upgrade older versions through the migration chain and reject
// newer ones.
const CurrentSchemaVersion = 3

// Snapshot is the persisted document format: the full state tree plus the
// schema version it was written with.
type Snapshot struct {
	SchemaVersion int       `json:"schema_version"`
	State         AppState  `json:"state"`
	SavedAt       time.Time `json:"saved_at"`
}

// SnapshotStore is the durable backend contract used by autosave and
// explicit save/load. Save persists the full snapshot; Load returns the raw
// JSON document as written (not typed) so the loader can run schema
// migration on documents produced by older builds. Load reports false when
// no snapshot exists yet.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context) (raw []byte, ok bool, err error)
	Close() error
}
