package core

import (
	"context"
	"fmt"

	"canvascore/pkg/domain"
)

// Middleware wraps every dispatch. Before runs against the committed state
// prior to mutation and may reject the action; After runs against the
// proposed state with the handler's change-sets and may fail the dispatch
// (strict performance mode), in which case the store rolls back.
type Middleware interface {
	Name() string
	Before(ctx context.Context, action domain.Action, state domain.AppState) error
	After(ctx context.Context, action domain.Action, changes []domain.ChangeSet, state domain.AppState) error
}

// Pipeline runs middleware in a fixed, explicit order:
// Security, Validation, History, Performance, Logging, Autosave.
type Pipeline struct {
	chain []Middleware
}

// NewPipeline builds a pipeline from the given middleware, preserving
// order.
func NewPipeline(chain ...Middleware) *Pipeline {
	return &Pipeline{chain: chain}
}

// Before runs the before hooks in order and stops at the first rejection.
func (p *Pipeline) Before(ctx context.Context, action domain.Action, state domain.AppState) error {
	for _, mw := range p.chain {
		if err := mw.Before(ctx, action, state); err != nil {
			return fmt.Errorf("%s: %w", mw.Name(), err)
		}
	}
	return nil
}

// After runs the after hooks in order and stops at the first failure.
func (p *Pipeline) After(ctx context.Context, action domain.Action, changes []domain.ChangeSet, state domain.AppState) error {
	for _, mw := range p.chain {
		if err := mw.After(ctx, action, changes, state); err != nil {
			return fmt.Errorf("%s: %w", mw.Name(), err)
		}
	}
	return nil
}
