package core

import (
	"strings"
	"testing"
	"time"

	"canvascore/pkg/domain"
)

func changeOfSize(actionID string, bytes int) domain.ChangeSet {
	return domain.ChangeSet{
		ActionID: actionID,
		Path:     domain.NewPath("components", "map", actionID),
		Kind:     ChangeUpdate,
		New:      strings.Repeat("x", bytes),
	}
}

func TestHistoryRecordAndCursor(t *testing.T) {
	h := NewHistoryManager(HistoryConfig{})
	now := time.Now()

	h.Record("first", now, []domain.ChangeSet{changeOfSize("a1", 8)})
	h.Record("second", now, []domain.ChangeSet{changeOfSize("a2", 8)})
	if !h.CanUndo() || h.Len() != 2 {
		t.Fatalf("len = %d, canUndo = %v", h.Len(), h.CanUndo())
	}

	entry, ok := h.PeekUndo()
	if !ok || entry.Description != "second" {
		t.Fatalf("peek undo = %+v, %v", entry, ok)
	}
	h.CommitUndo()
	if h.Len() != 1 || h.RedoLen() != 1 {
		t.Fatalf("after undo: len=%d redo=%d", h.Len(), h.RedoLen())
	}

	entry, ok = h.PeekRedo()
	if !ok || entry.Description != "second" {
		t.Fatalf("peek redo = %+v, %v", entry, ok)
	}
	h.CommitRedo()
	if h.Len() != 2 || h.RedoLen() != 0 {
		t.Fatalf("after redo: len=%d redo=%d", h.Len(), h.RedoLen())
	}
}

func TestHistoryRecordClearsRedo(t *testing.T) {
	h := NewHistoryManager(HistoryConfig{})
	now := time.Now()
	h.Record("first", now, []domain.ChangeSet{changeOfSize("a1", 8)})
	h.CommitUndo()
	if h.RedoLen() != 1 {
		t.Fatal("redo not staged")
	}
	h.Record("second", now, []domain.ChangeSet{changeOfSize("a2", 8)})
	if h.RedoLen() != 0 {
		t.Fatal("record kept the redo stack; history must stay linear")
	}
}

func TestHistoryEntryBudgetEvictsOldest(t *testing.T) {
	h := NewHistoryManager(HistoryConfig{MaxEntries: 3})
	now := time.Now()
	for _, id := range []string{"a", "b", "c", "d"} {
		h.Record(id, now, []domain.ChangeSet{changeOfSize(id, 8)})
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}
	entry, _ := h.PeekUndo()
	if entry.Description != "d" {
		t.Fatalf("newest = %q", entry.Description)
	}
	// Exhaust undo; the oldest surviving entry must be "b".
	h.CommitUndo()
	h.CommitUndo()
	entry, ok := h.PeekUndo()
	if !ok || entry.Description != "b" {
		t.Fatalf("oldest survivor = %+v, %v", entry, ok)
	}
}

func TestHistoryByteBudgetKeepsAtLeastOne(t *testing.T) {
	h := NewHistoryManager(HistoryConfig{MaxBytes: 256})
	now := time.Now()
	h.Record("big", now, []domain.ChangeSet{changeOfSize("a1", 4096)})
	if h.Len() != 1 {
		t.Fatalf("oversized entry evicted itself: len=%d", h.Len())
	}
	h.Record("big2", now, []domain.ChangeSet{changeOfSize("a2", 4096)})
	if h.Len() != 1 {
		t.Fatalf("byte budget not enforced: len=%d", h.Len())
	}
	entry, _ := h.PeekUndo()
	if entry.Description != "big2" {
		t.Fatalf("kept entry = %q, want newest", entry.Description)
	}
}

func TestHistoryBatchLifecycle(t *testing.T) {
	h := NewHistoryManager(HistoryConfig{})
	now := time.Now()

	id, err := h.StartBatch("drag", now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := h.StartBatch("nested", now); err == nil {
		t.Fatal("nested batch accepted")
	}
	if h.CanUndo() || h.CanRedo() {
		t.Fatal("undo/redo available during open batch")
	}

	h.Record("drag", now, []domain.ChangeSet{changeOfSize("a1", 8)})
	h.Record("drag", now, []domain.ChangeSet{changeOfSize("a2", 8)})

	if err := h.EndBatch("wrong-id"); err == nil {
		t.Fatal("mismatched batch id accepted")
	}
	if err := h.EndBatch(id); err != nil {
		t.Fatalf("end: %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("batch produced %d entries, want 1", h.Len())
	}
	entry, _ := h.PeekUndo()
	if len(entry.Changes) != 2 || entry.BatchID != id {
		t.Fatalf("batch entry = %+v", entry)
	}
}

func TestHistoryEmptyBatchLeavesNoEntry(t *testing.T) {
	h := NewHistoryManager(HistoryConfig{})
	id, _ := h.StartBatch("noop", time.Now())
	if err := h.EndBatch(id); err != nil {
		t.Fatalf("end: %v", err)
	}
	if h.Len() != 0 {
		t.Fatal("empty batch recorded an entry")
	}
}

func TestHistoryDropForAction(t *testing.T) {
	h := NewHistoryManager(HistoryConfig{})
	now := time.Now()
	h.Record("keep", now, []domain.ChangeSet{changeOfSize("a1", 8)})
	h.Record("staged", now, []domain.ChangeSet{changeOfSize("a2", 8)})

	h.DropForAction("a2")
	if h.Len() != 1 {
		t.Fatalf("len = %d, want 1", h.Len())
	}
	// Dropping an id that is not the newest entry must be a no-op.
	h.DropForAction("a9")
	if h.Len() != 1 {
		t.Fatalf("unrelated drop removed an entry")
	}

	// Inside a batch, only the failed action's changes are stripped.
	id, _ := h.StartBatch("drag", now)
	h.Record("drag", now, []domain.ChangeSet{changeOfSize("b1", 8)})
	h.Record("drag", now, []domain.ChangeSet{changeOfSize("b2", 8)})
	h.DropForAction("b2")
	if err := h.EndBatch(id); err != nil {
		t.Fatalf("end: %v", err)
	}
	entry, _ := h.PeekUndo()
	if len(entry.Changes) != 1 || entry.Changes[0].ActionID != "b1" {
		t.Fatalf("batch after drop = %+v", entry.Changes)
	}
}

func TestHistoryRecordIgnoresEmptyChanges(t *testing.T) {
	h := NewHistoryManager(HistoryConfig{})
	h.Record("noop", time.Now(), nil)
	if h.Len() != 0 {
		t.Fatal("empty change list recorded")
	}
}
