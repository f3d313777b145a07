package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"canvascore/internal/migrate"
	"canvascore/internal/spatial"
	"canvascore/pkg/domain"
)

// Service is the embedding surface: one struct wiring the store, the
// middleware pipeline, history, persistence, and the synchronizer, with
// typed operations for every supported action.
type Service struct {
	sc       *StateContext
	store    *Store
	history  *HistoryManager
	sync     *Synchronizer
	snaps    domain.SnapshotStore
	saver    *Autosaver
	archive  *SnapshotArchive
	perfCfg  PerformanceConfig
	autoCfg  AutosaveConfig
	autosave bool

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Service at construction.
type Option func(*serviceOptions)

type serviceOptions struct {
	initial  *domain.AppState
	registry *PropertyRegistry
	index    *spatial.Index
	logger   Logger
	metrics  MetricsRecorder
	clock    Clock
	history  HistoryConfig
	perf     PerformanceConfig
	snaps    domain.SnapshotStore
	autosave bool
	autoCfg  AutosaveConfig
	archive  *SnapshotArchive
}

// WithInitialState seeds the store with a state other than the default.
func WithInitialState(state domain.AppState) Option {
	return func(o *serviceOptions) { s := state.Clone(); o.initial = &s }
}

// WithRegistry overrides the component kind catalogue.
func WithRegistry(r *PropertyRegistry) Option {
	return func(o *serviceOptions) { o.registry = r }
}

// WithSpatialIndex overrides the spatial index (cell size tuning).
func WithSpatialIndex(ix *spatial.Index) Option {
	return func(o *serviceOptions) { o.index = ix }
}

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(o *serviceOptions) { o.logger = l }
}

// WithMetrics sets the dispatch metrics sink.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithClock overrides time for tests.
func WithClock(c Clock) Option {
	return func(o *serviceOptions) { o.clock = c }
}

// WithHistoryLimits bounds the undo cache.
func WithHistoryLimits(cfg HistoryConfig) Option {
	return func(o *serviceOptions) { o.history = cfg }
}

// WithPerformance tunes the dispatch timing budgets.
func WithPerformance(cfg PerformanceConfig) Option {
	return func(o *serviceOptions) { o.perf = cfg }
}

// WithSnapshotStore enables persistence. Without one, SaveSnapshot and
// LoadSnapshot report an error and autosave stays off.
func WithSnapshotStore(s domain.SnapshotStore) Option {
	return func(o *serviceOptions) { o.snaps = s }
}

// WithAutosave enables debounced background saves into the snapshot store.
func WithAutosave(cfg AutosaveConfig) Option {
	return func(o *serviceOptions) { o.autosave = true; o.autoCfg = cfg }
}

// WithSnapshotArchive enables timestamped snapshot exports to blob storage.
func WithSnapshotArchive(a *SnapshotArchive) Option {
	return func(o *serviceOptions) { o.archive = a }
}

// NewService wires the full dispatch stack. The middleware order is fixed:
// security, validation, history, performance, logging, autosave.
func NewService(opts ...Option) (*Service, error) {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.autosave && o.snaps == nil {
		return nil, errors.New("autosave requires a snapshot store")
	}

	sc := NewStateContext(o.registry, o.index, o.logger, o.metrics, o.clock)
	history := NewHistoryManager(o.history)
	synchronizer := NewSynchronizer()

	svc := &Service{
		sc:      sc,
		history: history,
		sync:    synchronizer,
		snaps:   o.snaps,
		archive: o.archive,
		perfCfg: o.perf,
		autoCfg: o.autoCfg,
	}

	initial := domain.NewAppState()
	if o.initial != nil {
		initial = *o.initial
	}

	if o.autosave {
		svc.autosave = true
		svc.saver = NewAutosaver(o.autoCfg, o.snaps, svc.snapshotNow, sc.Logger)
	}

	pipeline := NewPipeline(
		NewSecurityMiddleware(),
		NewValidationMiddleware(sc.Registry),
		NewHistoryMiddleware(history, sc.Clock),
		NewPerformanceMiddleware(o.perf, sc.Logger, sc.Metrics, sc.Clock),
		NewLoggingMiddleware(sc.Logger),
		NewAutosaveMiddleware(svc.saver),
	)
	svc.store = NewStore(initial, sc, pipeline, history, synchronizer)
	return svc, nil
}

// Dispatch submits a pre-built action.
func (s *Service) Dispatch(ctx context.Context, action domain.Action) (domain.DispatchResult, error) {
	return s.store.Dispatch(ctx, action)
}

// Submit decodes the external {type, payload} form and dispatches it.
func (s *Service) Submit(ctx context.Context, actionType string, payload map[string]any) (domain.DispatchResult, error) {
	action, err := domain.BuildAction(actionType, payload)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	return s.store.Dispatch(ctx, action)
}

func (s *Service) dispatchPayload(ctx context.Context, t domain.ActionType, p domain.ActionPayload) (domain.DispatchResult, error) {
	action, err := domain.NewAction(t, p)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	return s.store.Dispatch(ctx, action)
}

// AddComponent creates a component node.
func (s *Service) AddComponent(ctx context.Context, p domain.AddComponentPayload) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionAddComponent, p)
}

// UpdateComponent sets or removes properties and geometry.
func (s *Service) UpdateComponent(ctx context.Context, p domain.UpdateComponentPayload) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionUpdateComponent, p)
}

// MoveComponent reparents or reorders a component.
func (s *Service) MoveComponent(ctx context.Context, p domain.MoveComponentPayload) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionMoveComponent, p)
}

// DeleteComponent removes a component and its descendants.
func (s *Service) DeleteComponent(ctx context.Context, p domain.DeleteComponentPayload) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionDeleteComponent, p)
}

// SetSelection replaces the selected ids.
func (s *Service) SetSelection(ctx context.Context, ids ...string) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionSetSelection, domain.SetSelectionPayload{IDs: ids})
}

// UpdateWindow replaces the window section.
func (s *Service) UpdateWindow(ctx context.Context, w domain.WindowState) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionUpdateWindow, domain.UpdateWindowPayload{Window: w})
}

// UpdateTheme replaces the theme section.
func (s *Service) UpdateTheme(ctx context.Context, t domain.ThemeState) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionUpdateTheme, domain.UpdateThemePayload{Theme: t})
}

// UpdateCanvas replaces the canvas section.
func (s *Service) UpdateCanvas(ctx context.Context, c domain.CanvasState) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionUpdateCanvas, domain.UpdateCanvasPayload{Canvas: c})
}

// UpdatePanel sets or removes a named panel.
func (s *Service) UpdatePanel(ctx context.Context, name string, panel *domain.Panel) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionUpdatePanel, domain.UpdatePanelPayload{Name: name, Panel: panel})
}

// UpdateProject replaces project metadata.
func (s *Service) UpdateProject(ctx context.Context, meta domain.ProjectMeta) (domain.DispatchResult, error) {
	return s.dispatchPayload(ctx, domain.ActionUpdateProject, domain.UpdateProjectPayload{Project: meta})
}

// Undo reverts the most recent history entry. It reports false when there
// was nothing to undo.
func (s *Service) Undo(ctx context.Context) (bool, error) {
	if !s.history.CanUndo() {
		return false, nil
	}
	_, err := s.dispatchPayload(ctx, domain.ActionUndo, domain.UndoPayload{})
	return err == nil, err
}

// Redo replays the most recently undone entry. It reports false when there
// was nothing to redo.
func (s *Service) Redo(ctx context.Context) (bool, error) {
	if !s.history.CanRedo() {
		return false, nil
	}
	_, err := s.dispatchPayload(ctx, domain.ActionRedo, domain.RedoPayload{})
	return err == nil, err
}

// CanUndo reports whether an undo would have an effect.
func (s *Service) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether a redo would have an effect.
func (s *Service) CanRedo() bool { return s.history.CanRedo() }

// StartBatch opens a history batch: every change until EndBatch collapses
// into one undo step.
func (s *Service) StartBatch(description string) (string, error) {
	return s.history.StartBatch(description, s.sc.Clock.Now())
}

// EndBatch closes a history batch.
func (s *Service) EndBatch(batchID string) error {
	return s.history.EndBatch(batchID)
}

// State returns a deep copy of the committed state.
func (s *Service) State() domain.AppState { return s.store.State() }

// Version returns the committed version counter.
func (s *Service) Version() uint64 { return s.store.Version() }

// Get resolves a dot-delimited path against the committed state.
func (s *Service) Get(path string) (any, bool) { return s.store.Get(path) }

// Subscribe registers a change callback for a dot-delimited path pattern.
func (s *Service) Subscribe(pattern string, fn Callback, filter Filter) (string, error) {
	return s.store.Subscribe(pattern, fn, filter)
}

// Unsubscribe removes a subscription by id.
func (s *Service) Unsubscribe(id string) bool { return s.store.Unsubscribe(id) }

// ComponentsAt returns the ids of components whose geometry contains the
// point, candidate-filtered by the spatial index.
func (s *Service) ComponentsAt(x, y float64) []string {
	return s.sc.Spatial.QueryPoint(x, y)
}

// ComponentsIn returns the ids of components intersecting (or, when
// fullyContained, entirely inside) the region.
func (s *Service) ComponentsIn(region domain.BoundingBox, fullyContained bool) []string {
	return s.sc.Spatial.QueryRegion(region, fullyContained)
}

// NearestComponents ranks components by distance from a point. A
// maxDistance of 0 means unbounded; limit caps the result count.
func (s *Service) NearestComponents(x, y, maxDistance float64, limit int) []spatial.Neighbor {
	return s.sc.Spatial.Nearest(x, y, maxDistance, limit)
}

func (s *Service) snapshotNow() domain.Snapshot {
	return domain.Snapshot{
		SchemaVersion: domain.CurrentSchemaVersion,
		State:         s.store.State(),
		SavedAt:       s.sc.Clock.Now(),
	}
}

// SaveSnapshot persists the committed state at the current schema version.
func (s *Service) SaveSnapshot(ctx context.Context) error {
	if s.snaps == nil {
		return errors.New("no snapshot store configured")
	}
	if err := s.snaps.Save(ctx, s.snapshotNow()); err != nil {
		return domain.StorageIOError{Op: "save", Err: err}
	}
	return nil
}

// LoadSnapshot replaces the committed state with the persisted snapshot,
// migrating older schema versions forward. Undo history is cleared: entries
// recorded before the load would replay against the wrong tree. A missing
// snapshot leaves the state untouched and reports false. A corrupted
// snapshot falls back to
// the default state with a warning rather than failing startup; snapshots
// from a future schema version are refused.
func (s *Service) LoadSnapshot(ctx context.Context) (bool, error) {
	if s.snaps == nil {
		return false, errors.New("no snapshot store configured")
	}
	raw, ok, err := s.snaps.Load(ctx)
	if err != nil {
		return false, domain.StorageIOError{Op: "load", Err: err}
	}
	if !ok {
		return false, nil
	}
	snap, err := migrate.Load(raw)
	if err != nil {
		var unsupported domain.UnsupportedSchemaVersionError
		if errors.As(err, &unsupported) {
			return false, err
		}
		s.sc.Logger.Warn("snapshot corrupted, starting from default state", "error", err.Error())
		s.store.Replace(domain.NewAppState())
		s.history.Clear()
		return true, nil
	}
	s.store.Replace(snap.State)
	s.history.Clear()
	return true, nil
}

// ExportSnapshot archives the current state to blob storage under a
// timestamped key and returns the key.
func (s *Service) ExportSnapshot(ctx context.Context) (string, error) {
	if s.archive == nil {
		return "", errors.New("no snapshot archive configured")
	}
	return s.archive.Export(ctx, s.snapshotNow())
}

// Flush forces a synchronous snapshot save, bypassing the autosave
// debounce.
func (s *Service) Flush(ctx context.Context) error {
	if s.saver != nil {
		return s.saver.Flush(ctx)
	}
	return s.SaveSnapshot(ctx)
}

// Close stops autosave (flushing dirty state) and closes the snapshot
// store. It is idempotent.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.saver != nil {
			if err := s.saver.Close(); err != nil {
				errs = append(errs, fmt.Errorf("autosaver: %w", err))
			}
		}
		if s.snaps != nil {
			if err := s.snaps.Close(); err != nil {
				errs = append(errs, fmt.Errorf("snapshot store: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
