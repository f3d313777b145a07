package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"canvascore/pkg/domain"
)

// AutosaveConfig tunes the debounced background persistence.
type AutosaveConfig struct {
	Interval        time.Duration // debounce window, default 30s
	ActionThreshold int           // save immediately after N dispatches, default 25
	MaxRetries      int           // retry attempts per save, default 5
	InitialBackoff  time.Duration // first retry delay, default 250ms
}

func (c AutosaveConfig) withDefaults() AutosaveConfig {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.ActionThreshold <= 0 {
		c.ActionThreshold = 25
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 250 * time.Millisecond
	}
	return c
}

// Autosaver schedules snapshot writes on a background goroutine. Saves are
// debounced, retried with exponential backoff on failure, and follow
// latest-wins semantics: a newer scheduled save supersedes an in-flight
// retry loop. It never blocks a dispatch.
type Autosaver struct {
	cfg      AutosaveConfig
	target   domain.SnapshotStore
	snapshot func() domain.Snapshot
	logger   Logger

	mu      sync.Mutex
	actions int
	timer   *time.Timer
	closed  bool

	gen  atomic.Uint64
	kick chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewAutosaver starts the background save loop. snapshot must return the
// current committed state; it is called at save time so the freshest
// version wins.
func NewAutosaver(cfg AutosaveConfig, target domain.SnapshotStore, snapshot func() domain.Snapshot, logger Logger) *Autosaver {
	if logger == nil {
		logger = NopLogger{}
	}
	a := &Autosaver{
		cfg:      cfg.withDefaults(),
		target:   target,
		snapshot: snapshot,
		logger:   logger,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// NoteDispatch records one committed dispatch. Every Nth dispatch saves
// immediately; otherwise a save is scheduled after the debounce interval.
func (a *Autosaver) NoteDispatch() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.actions++
	if a.actions >= a.cfg.ActionThreshold {
		a.actions = 0
		if a.timer != nil {
			a.timer.Stop()
			a.timer = nil
		}
		a.mu.Unlock()
		a.requestSave()
		return
	}
	if a.timer == nil {
		a.timer = time.AfterFunc(a.cfg.Interval, func() {
			a.mu.Lock()
			a.timer = nil
			a.actions = 0
			closed := a.closed
			a.mu.Unlock()
			if !closed {
				a.requestSave()
			}
		})
	}
	a.mu.Unlock()
}

// Flush saves the current snapshot synchronously, bypassing the debounce.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	a.actions = 0
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.gen.Add(1)
	if err := a.target.Save(ctx, a.snapshot()); err != nil {
		return domain.StorageIOError{Op: "flush", Err: err}
	}
	return nil
}

// Close stops the loop, flushing any pending dirty state first.
func (a *Autosaver) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	dirty := a.actions > 0 || a.timer != nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	close(a.stop)
	a.wg.Wait()
	if dirty {
		if err := a.target.Save(context.Background(), a.snapshot()); err != nil {
			return domain.StorageIOError{Op: "close", Err: err}
		}
	}
	return nil
}

func (a *Autosaver) requestSave() {
	a.gen.Add(1)
	select {
	case a.kick <- struct{}{}:
	default:
		// A save is already pending; it reads the snapshot at save time, so
		// the newer state wins anyway.
	}
}

func (a *Autosaver) run() {
	defer a.wg.Done()
	for {
		select {
		case <-a.stop:
			return
		case <-a.kick:
			a.save()
		}
	}
}

func (a *Autosaver) save() {
	startGen := a.gen.Load()
	snap := a.snapshot()
	backoff := a.cfg.InitialBackoff
	for attempt := 1; attempt <= a.cfg.MaxRetries; attempt++ {
		err := a.target.Save(context.Background(), snap)
		if err == nil {
			a.logger.Debug("autosave complete", "saved_at", snap.SavedAt)
			return
		}
		if a.gen.Load() != startGen {
			// Superseded by a newer scheduled save; the pending kick will
			// persist the fresher state.
			return
		}
		a.logger.Warn("autosave failed",
			"attempt", attempt,
			"error", domain.StorageIOError{Op: "autosave", Err: err}.Error(),
		)
		select {
		case <-a.stop:
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	a.logger.Error("autosave giving up after retries", "attempts", a.cfg.MaxRetries)
}

// autosaveMiddleware marks the document dirty after every committed
// dispatch that changed something.
type autosaveMiddleware struct {
	saver *Autosaver
}

// NewAutosaveMiddleware constructs the autosave interceptor. A nil saver
// makes it a no-op (no snapshot store configured).
func NewAutosaveMiddleware(saver *Autosaver) Middleware {
	return autosaveMiddleware{saver: saver}
}

func (autosaveMiddleware) Name() string { return "autosave" }

func (autosaveMiddleware) Before(context.Context, domain.Action, domain.AppState) error {
	return nil
}

func (m autosaveMiddleware) After(_ context.Context, _ domain.Action, changes []domain.ChangeSet, _ domain.AppState) error {
	if m.saver != nil && len(changes) > 0 {
		m.saver.NoteDispatch()
	}
	return nil
}
