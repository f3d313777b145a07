package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"canvascore/pkg/domain"
	"github.com/google/uuid"
)

// HistoryEntry is the unit of undo: every change-set one dispatch (or one
// open batch) produced, in application order.
type HistoryEntry struct {
	Changes     []domain.ChangeSet
	Description string
	CreatedAt   time.Time
	BatchID     string
}

func (e HistoryEntry) estimatedBytes() int64 {
	// A rough JSON size is good enough for a cache budget.
	raw, err := json.Marshal(e.Changes)
	if err != nil {
		return 256
	}
	return int64(len(raw)) + 64
}

// HistoryConfig bounds the undo cache.
type HistoryConfig struct {
	MaxEntries int   // 0 means DefaultMaxHistoryEntries
	MaxBytes   int64 // 0 means DefaultMaxHistoryBytes
}

// Default history budgets. History is a bounded cache, not a durable log;
// evicting the oldest entries under pressure is expected.
const (
	DefaultMaxHistoryEntries = 200
	DefaultMaxHistoryBytes   = 16 << 20
)

// HistoryManager keeps the linear undo/redo deque. The store mutates it
// only inside the dispatch critical section; the mutex exists for the
// read-only accessors callers may hit concurrently.
type HistoryManager struct {
	mu         sync.Mutex
	cfg        HistoryConfig
	entries    []HistoryEntry // oldest first
	redo       []HistoryEntry // most recent undo last
	totalBytes int64

	batchOpen bool
	batchID   string
	batch     HistoryEntry
}

// NewHistoryManager constructs a manager with the given budgets.
func NewHistoryManager(cfg HistoryConfig) *HistoryManager {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxHistoryEntries
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxHistoryBytes
	}
	return &HistoryManager{cfg: cfg}
}

// Record appends the changes of one committed dispatch. While a batch is
// open the changes collapse into the pending batch entry instead. Any
// recorded change discards the redo stack (linear history, no branching).
func (h *HistoryManager) Record(description string, createdAt time.Time, changes []domain.ChangeSet) {
	if len(changes) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redo = nil
	if h.batchOpen {
		if h.batch.Description == "" {
			h.batch.Description = description
		}
		h.batch.Changes = append(h.batch.Changes, changes...)
		return
	}
	h.appendLocked(HistoryEntry{Changes: changes, Description: description, CreatedAt: createdAt})
}

// StartBatch opens a batch; all changes recorded until EndBatch collapse
// into a single entry so one undo reverts them all. Nested batches are not
// supported.
func (h *HistoryManager) StartBatch(description string, createdAt time.Time) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.batchOpen {
		return "", fmt.Errorf("batch %q already open", h.batchID)
	}
	h.batchOpen = true
	h.batchID = uuid.NewString()
	h.batch = HistoryEntry{Description: description, CreatedAt: createdAt, BatchID: h.batchID}
	return h.batchID, nil
}

// EndBatch closes the batch and commits it as one entry. An empty batch
// leaves history untouched.
func (h *HistoryManager) EndBatch(batchID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.batchOpen {
		return fmt.Errorf("no batch open")
	}
	if h.batchID != batchID {
		return fmt.Errorf("batch id mismatch: open %q, got %q", h.batchID, batchID)
	}
	h.batchOpen = false
	h.batchID = ""
	if len(h.batch.Changes) > 0 {
		h.appendLocked(h.batch)
	}
	h.batch = HistoryEntry{}
	return nil
}

// BatchOpen reports whether a batch is currently collecting changes.
func (h *HistoryManager) BatchOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.batchOpen
}

// PeekUndo returns the entry an undo would revert without moving the
// cursor. It reports false when there is nothing to undo or a batch is
// still open.
func (h *HistoryManager) PeekUndo() (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.batchOpen || len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// CommitUndo moves the newest entry onto the redo stack after the store has
// applied its inverse.
func (h *HistoryManager) CommitUndo() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return
	}
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	h.totalBytes -= last.estimatedBytes()
	h.redo = append(h.redo, last)
}

// PeekRedo returns the entry a redo would replay.
func (h *HistoryManager) PeekRedo() (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.batchOpen || len(h.redo) == 0 {
		return HistoryEntry{}, false
	}
	return h.redo[len(h.redo)-1], true
}

// CommitRedo moves the entry back onto the undo deque after the store has
// re-applied it.
func (h *HistoryManager) CommitRedo() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return
	}
	last := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.appendLocked(last)
}

// DropForAction removes the newest entry when it belongs to the given
// action. The store uses it to roll back the staged entry when a later
// middleware fails the dispatch. While a batch is open the action's changes
// are stripped from the pending batch instead.
func (h *HistoryManager) DropForAction(actionID string) {
	if actionID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.batchOpen {
		kept := h.batch.Changes[:0]
		for _, ch := range h.batch.Changes {
			if ch.ActionID != actionID {
				kept = append(kept, ch)
			}
		}
		h.batch.Changes = kept
		return
	}
	if len(h.entries) == 0 {
		return
	}
	last := h.entries[len(h.entries)-1]
	if len(last.Changes) == 0 || last.Changes[0].ActionID != actionID {
		return
	}
	h.entries = h.entries[:len(h.entries)-1]
	h.totalBytes -= last.estimatedBytes()
}

// Clear drops every undo and redo entry and abandons any open batch. The
// service calls it when a snapshot load replaces the state wholesale:
// entries recorded against the previous tree must never replay onto the
// loaded one.
func (h *HistoryManager) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.redo = nil
	h.totalBytes = 0
	h.batchOpen = false
	h.batchID = ""
	h.batch = HistoryEntry{}
}

// Len returns the number of undoable entries.
func (h *HistoryManager) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// RedoLen returns the number of redoable entries.
func (h *HistoryManager) RedoLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo)
}

// CanUndo reports whether an undo would have an effect.
func (h *HistoryManager) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.batchOpen && len(h.entries) > 0
}

// CanRedo reports whether a redo would have an effect.
func (h *HistoryManager) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.batchOpen && len(h.redo) > 0
}

// EstimatedBytes returns the current memory estimate for the undo deque.
func (h *HistoryManager) EstimatedBytes() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalBytes
}

func (h *HistoryManager) appendLocked(entry HistoryEntry) {
	h.entries = append(h.entries, entry)
	h.totalBytes += entry.estimatedBytes()
	// Evict oldest-first once either budget is exceeded. Keeping at least
	// one entry preserves the most recent undo even for oversized changes.
	for len(h.entries) > 1 && (len(h.entries) > h.cfg.MaxEntries || h.totalBytes > h.cfg.MaxBytes) {
		h.totalBytes -= h.entries[0].estimatedBytes()
		h.entries = h.entries[1:]
	}
}

// historyMiddleware records committed change-sets into the manager. Undo
// and redo flow through the pipeline like any action but are never
// themselves recorded.
type historyMiddleware struct {
	manager *HistoryManager
	clock   Clock
}

// NewHistoryMiddleware constructs the history recorder.
func NewHistoryMiddleware(manager *HistoryManager, clock Clock) Middleware {
	if clock == nil {
		clock = SystemClock{}
	}
	return historyMiddleware{manager: manager, clock: clock}
}

func (historyMiddleware) Name() string { return "history" }

func (historyMiddleware) Before(context.Context, domain.Action, domain.AppState) error {
	return nil
}

func (m historyMiddleware) After(_ context.Context, action domain.Action, changes []domain.ChangeSet, _ domain.AppState) error {
	if action.IsHistoryExempt() {
		return nil
	}
	m.manager.Record(string(action.Type), m.clock.Now(), changes)
	return nil
}
