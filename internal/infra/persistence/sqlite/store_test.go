package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"canvascore/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "state", "canvas.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadBeforeSaveReportsMissing(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Load(context.Background())
	if err != nil || ok {
		t.Fatalf("load = %v, %v", ok, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := domain.NewAppState()
	state.Project.Name = "Persisted"
	snap := domain.Snapshot{SchemaVersion: domain.CurrentSchemaVersion, State: state}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load = %v, %v", ok, err)
	}
	var got domain.Snapshot
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State.Project.Name != "Persisted" {
		t.Fatalf("project = %q", got.State.Project.Name)
	}
}

func TestSaveUpsertsSingleSlot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"One", "Two", "Three"} {
		state := domain.NewAppState()
		state.Project.Name = name
		if err := s.Save(ctx, domain.Snapshot{SchemaVersion: domain.CurrentSchemaVersion, State: state}); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}

	raw, _, _ := s.Load(ctx)
	var got domain.Snapshot
	_ = json.Unmarshal(raw, &got)
	if got.State.Project.Name != "Three" {
		t.Fatalf("project = %q", got.State.Project.Name)
	}
}

func TestReopenSeesPersistedSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canvas.db")

	first, err := NewStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	state := domain.NewAppState()
	state.Project.Name = "Durable"
	if err := first.Save(context.Background(), domain.Snapshot{SchemaVersion: domain.CurrentSchemaVersion, State: state}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()
	raw, ok, err := second.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("load = %v, %v", ok, err)
	}
	var got domain.Snapshot
	_ = json.Unmarshal(raw, &got)
	if got.State.Project.Name != "Durable" {
		t.Fatalf("project = %q", got.State.Project.Name)
	}
}
