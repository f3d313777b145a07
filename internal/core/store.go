package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"canvascore/pkg/domain"
	"github.com/google/uuid"
)

// Store is the single source of truth. Every mutation flows through
// Dispatch: middleware runs against the committed state, the handler
// mutates a clone, and the clone replaces the committed state atomically
// on success. Readers always see a fully committed version.
type Store struct {
	mu       sync.RWMutex
	sc       *StateContext
	pipeline *Pipeline
	history  *HistoryManager
	sync     *Synchronizer

	state   domain.AppState
	version uint64

	// notifying counts in-flight subscriber deliveries. Dispatch rejects
	// while it is non-zero so a callback can never re-enter the store.
	notifying atomic.Int32
}

// NewStore builds a store over an initial state. The spatial index is
// rebuilt from the component tree so a loaded snapshot is immediately
// queryable.
func NewStore(initial domain.AppState, sc *StateContext, pipeline *Pipeline, history *HistoryManager, synchronizer *Synchronizer) *Store {
	if sc == nil {
		sc = NewStateContext(nil, nil, nil, nil, nil)
	}
	if history == nil {
		history = NewHistoryManager(HistoryConfig{})
	}
	if synchronizer == nil {
		synchronizer = NewSynchronizer()
	}
	s := &Store{
		sc:       sc,
		pipeline: pipeline,
		history:  history,
		sync:     synchronizer,
		state:    initial.Clone(),
	}
	s.rebuildSpatial()
	return s
}

// State returns a deep copy of the committed state.
func (s *Store) State() domain.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Version returns the committed version counter. It starts at 0 and
// increments once per committed dispatch.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Get resolves a dot-delimited path against the committed state, returning
// a deep copy of the value.
func (s *Store) Get(path string) (any, bool) {
	p := domain.ParsePath(path)
	if p == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.LookupPath(s.state, p)
}

// History exposes the undo manager for inspection (CanUndo, budgets).
func (s *Store) History() *HistoryManager { return s.history }

// Subscribe registers a synchronizer callback. See Synchronizer.Subscribe.
func (s *Store) Subscribe(pattern string, fn Callback, filter Filter) (string, error) {
	return s.sync.Subscribe(pattern, fn, filter)
}

// Unsubscribe removes a subscription by id.
func (s *Store) Unsubscribe(id string) bool {
	return s.sync.Unsubscribe(id)
}

// Dispatch runs one action through the pipeline and commits the result.
// On any error the committed state is untouched. The zero-value result
// with a nil error means the action was a no-op.
//
// Subscribers are notified synchronously after the commit, outside the
// state lock, so callbacks may read (Get, State, Version). Dispatching
// from inside a callback is still rejected.
func (s *Store) Dispatch(ctx context.Context, action domain.Action) (domain.DispatchResult, error) {
	if s.notifying.Load() > 0 {
		return domain.DispatchResult{}, domain.InvalidActionError{
			Type:   string(action.Type),
			Reason: "dispatch from a subscription callback is not allowed",
		}
	}
	if action.Payload == nil {
		return domain.DispatchResult{}, domain.InvalidActionError{Type: string(action.Type), Reason: "missing payload"}
	}
	if err := action.Payload.Validate(); err != nil {
		return domain.DispatchResult{}, err
	}
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.Time.IsZero() {
		action.Time = s.sc.Clock.Now()
	}

	switch action.Type {
	case domain.ActionUndo:
		return s.replayHistory(ctx, action, true)
	case domain.ActionRedo:
		return s.replayHistory(ctx, action, false)
	}

	s.mu.Lock()
	res, err := s.dispatchLocked(ctx, action)
	s.mu.Unlock()
	if err != nil || len(res.Changes) == 0 {
		return res, err
	}
	s.notify(res.Version, action.Type, res.Changes)
	return res, nil
}

func (s *Store) dispatchLocked(ctx context.Context, action domain.Action) (domain.DispatchResult, error) {
	if err := s.pipeline.Before(ctx, action, s.state); err != nil {
		return domain.DispatchResult{}, err
	}

	next := s.state.Clone()
	changes, err := applyAction(&next, action, s.sc.Registry)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if len(changes) == 0 {
		return domain.DispatchResult{Version: s.version}, nil
	}

	if err := s.pipeline.After(ctx, action, changes, next); err != nil {
		// History may have recorded the staged entry before a later
		// middleware failed; drop it so undo never replays an
		// uncommitted change.
		s.history.DropForAction(action.ID)
		return domain.DispatchResult{}, err
	}

	s.commit(next, changes)
	return s.result(changes), nil
}

// replayHistory services undo and redo. Both flow through the pipeline like
// forward actions (so security and timing still apply) but are
// history-exempt; the cursor moves only after the replay commits.
func (s *Store) replayHistory(ctx context.Context, action domain.Action, undo bool) (domain.DispatchResult, error) {
	s.mu.Lock()
	res, err := s.replayLocked(ctx, action, undo)
	s.mu.Unlock()
	if err != nil || len(res.Changes) == 0 {
		return res, err
	}
	s.notify(res.Version, action.Type, res.Changes)
	return res, nil
}

func (s *Store) replayLocked(ctx context.Context, action domain.Action, undo bool) (domain.DispatchResult, error) {
	var (
		entry HistoryEntry
		ok    bool
	)
	if undo {
		entry, ok = s.history.PeekUndo()
	} else {
		entry, ok = s.history.PeekRedo()
	}
	if !ok {
		// Nothing to replay is a no-op, not an error.
		return domain.DispatchResult{Version: s.version}, nil
	}

	if err := s.pipeline.Before(ctx, action, s.state); err != nil {
		return domain.DispatchResult{}, err
	}

	changes := replayChanges(entry, undo)
	next := s.state.Clone()
	for _, ch := range changes {
		if err := domain.ApplyChange(&next, ch); err != nil {
			return domain.DispatchResult{}, fmt.Errorf("replay %s at %s: %w", ch.Kind, ch.Path, err)
		}
	}

	if err := s.pipeline.After(ctx, action, changes, next); err != nil {
		return domain.DispatchResult{}, err
	}

	s.commit(next, changes)
	if undo {
		s.history.CommitUndo()
	} else {
		s.history.CommitRedo()
	}
	return s.result(changes), nil
}

// replayChanges builds the change list a replay applies: undo inverts the
// entry's changes in reverse order, redo re-applies them as recorded.
func replayChanges(entry HistoryEntry, undo bool) []domain.ChangeSet {
	if !undo {
		return entry.Changes
	}
	out := make([]domain.ChangeSet, 0, len(entry.Changes))
	for i := len(entry.Changes) - 1; i >= 0; i-- {
		out = append(out, entry.Changes[i].Inverse())
	}
	return out
}

func (s *Store) commit(next domain.AppState, changes []domain.ChangeSet) {
	s.state = next
	s.version++
	s.updateSpatial(changes)
}

func (s *Store) result(changes []domain.ChangeSet) domain.DispatchResult {
	return domain.DispatchResult{
		Version: s.version,
		Paths:   domain.ChangedPaths(changes),
		Changes: changes,
	}
}

func (s *Store) notify(version uint64, actionType domain.ActionType, changes []domain.ChangeSet) {
	s.notifying.Add(1)
	defer s.notifying.Add(-1)
	s.sync.Notify(version, actionType, changes)
}

// updateSpatial folds committed changes into the index. Only node
// lifecycle and geometry changes matter; property and ordering changes do
// not move anything.
func (s *Store) updateSpatial(changes []domain.ChangeSet) {
	for _, ch := range changes {
		p := ch.Path
		switch {
		case len(p) == 3 && p[0] == "components" && p[1] == "map":
			id := p[2]
			switch ch.Kind {
			case ChangeCreate, ChangeUpdate:
				if node, ok := ch.New.(domain.ComponentNode); ok {
					s.sc.Spatial.Update(id, node.Geometry)
				}
			case ChangeDelete:
				s.sc.Spatial.Remove(id)
			}
		case len(p) == 4 && p[0] == "components" && p[1] == "map" && p[3] == "geometry":
			if bounds, ok := ch.New.(domain.BoundingBox); ok {
				s.sc.Spatial.Update(p[2], bounds)
			}
		}
	}
}

func (s *Store) rebuildSpatial() {
	bounds := make(map[string]domain.BoundingBox, len(s.state.Components.Map))
	for id, node := range s.state.Components.Map {
		bounds[id] = node.Geometry
	}
	s.sc.Spatial.Rebuild(bounds)
}

// Replace swaps in an entirely new state (snapshot load), resetting the
// version counter and rebuilding the spatial index. History is cleared by
// the caller; changes made before a load are not undoable across it.
func (s *Store) Replace(state domain.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.version++
	s.rebuildSpatial()
}
