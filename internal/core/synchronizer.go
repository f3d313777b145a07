package core

import (
	"fmt"
	"sync"

	"canvascore/pkg/domain"
	"github.com/google/uuid"
)

// Notification delivers the committed outcome of one dispatch to a
// subscriber: the new version and only the changes whose paths relate to
// the subscription pattern.
type Notification struct {
	Version    uint64
	ActionType domain.ActionType
	Paths      []domain.Path
	Changes    []domain.ChangeSet
}

// Callback receives notifications synchronously, in subscription
// registration order, after the dispatch that caused the change has
// committed. Callbacks may read the store but must not dispatch; the store
// rejects re-entrant dispatch.
type Callback func(Notification)

// Filter optionally narrows a subscription beyond path matching.
type Filter func(Notification) bool

type subscription struct {
	id      string
	pattern domain.Path
	fn      Callback
	filter  Filter
}

// Synchronizer fans committed changes out to path subscribers. Lifetime is
// explicit: every Subscribe must be paired with Unsubscribe; no weak
// references or callback identity tricks.
type Synchronizer struct {
	mu   sync.Mutex
	subs []subscription
}

// NewSynchronizer constructs an empty subscriber table.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Subscribe registers a callback for changes at or under pattern (and for
// ancestor writes covering it). An empty pattern matches every change. The
// returned id must be passed to Unsubscribe.
func (s *Synchronizer) Subscribe(pattern string, fn Callback, filter Filter) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("subscribe: nil callback")
	}
	path := domain.ParsePath(pattern)
	if pattern != "" && path == nil {
		return "", fmt.Errorf("subscribe: malformed pattern %q", pattern)
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.subs = append(s.subs, subscription{id: id, pattern: path, fn: fn, filter: filter})
	s.mu.Unlock()
	return id, nil
}

// Unsubscribe removes a subscription. It reports whether the id was known.
func (s *Synchronizer) Unsubscribe(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of live subscriptions.
func (s *Synchronizer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Notify delivers one committed dispatch to every matching subscriber, in
// registration order. Each subscriber sees only the changes that relate to
// its pattern, which bounds UI updates to the actual blast radius.
func (s *Synchronizer) Notify(version uint64, actionType domain.ActionType, changes []domain.ChangeSet) {
	s.mu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		matched := matchChanges(sub.pattern, changes)
		if len(matched) == 0 {
			continue
		}
		n := Notification{
			Version:    version,
			ActionType: actionType,
			Paths:      domain.ChangedPaths(matched),
			Changes:    matched,
		}
		if sub.filter != nil && !sub.filter(n) {
			continue
		}
		sub.fn(n)
	}
}

func matchChanges(pattern domain.Path, changes []domain.ChangeSet) []domain.ChangeSet {
	if len(pattern) == 0 {
		return changes
	}
	var out []domain.ChangeSet
	for _, ch := range changes {
		if ch.Path.Related(pattern) {
			out = append(out, ch)
		}
	}
	return out
}
