package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"canvascore/internal/blob"
	"canvascore/pkg/domain"
)

// SnapshotArchive writes point-in-time snapshot exports to blob storage
// under timestamped keys. Unlike the autosave snapshot (one mutable slot),
// archived exports are immutable and accumulate.
type SnapshotArchive struct {
	store  blob.Store
	prefix string
	clock  Clock
}

// NewSnapshotArchive wraps a blob store. An empty prefix defaults to
// "snapshots/".
func NewSnapshotArchive(store blob.Store, prefix string, clock Clock) *SnapshotArchive {
	if prefix == "" {
		prefix = "snapshots/"
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &SnapshotArchive{store: store, prefix: prefix, clock: clock}
}

// Export writes the snapshot as JSON under a timestamped key and returns
// the key.
func (a *SnapshotArchive) Export(ctx context.Context, snap domain.Snapshot) (string, error) {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", domain.StorageIOError{Op: "export", Err: err}
	}
	key := fmt.Sprintf("%s%s-v%d.json",
		a.prefix,
		a.clock.Now().UTC().Format("20060102T150405.000Z0700"),
		snap.SchemaVersion,
	)
	_, err = a.store.Put(ctx, key, bytes.NewReader(raw), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"schema_version": strconv.Itoa(snap.SchemaVersion),
			"saved_at":       snap.SavedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return "", domain.StorageIOError{Op: "export", Err: err}
	}
	return key, nil
}

// List returns the archived exports, oldest key first.
func (a *SnapshotArchive) List(ctx context.Context) ([]blob.Info, error) {
	infos, err := a.store.List(ctx, a.prefix)
	if err != nil {
		return nil, domain.StorageIOError{Op: "list", Err: err}
	}
	return infos, nil
}

// Fetch reads an archived export back, migrating old schema versions is the
// caller's concern (the raw bytes are returned untouched).
func (a *SnapshotArchive) Fetch(ctx context.Context, key string) ([]byte, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, domain.StorageIOError{Op: "fetch", Err: err}
	}
	defer func() { _ = rc.Close() }()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, domain.StorageIOError{Op: "fetch", Err: err}
	}
	return buf.Bytes(), nil
}

// PresignURL returns a time-limited download URL for an archived export,
// when the backend supports it.
func (a *SnapshotArchive) PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return a.store.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: expiry})
}
