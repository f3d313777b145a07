package core

import (
	"context"

	"canvascore/pkg/domain"
)

// loggingMiddleware is purely observational: one debug line per committed
// dispatch with the action type and blast radius.
type loggingMiddleware struct {
	logger Logger
}

// NewLoggingMiddleware constructs the logging interceptor.
func NewLoggingMiddleware(logger Logger) Middleware {
	if logger == nil {
		logger = NopLogger{}
	}
	return loggingMiddleware{logger: logger}
}

func (loggingMiddleware) Name() string { return "logging" }

func (loggingMiddleware) Before(context.Context, domain.Action, domain.AppState) error {
	return nil
}

func (m loggingMiddleware) After(_ context.Context, action domain.Action, changes []domain.ChangeSet, _ domain.AppState) error {
	m.logger.Debug("action applied",
		"action", string(action.Type),
		"action_id", action.ID,
		"changes", len(changes),
	)
	return nil
}
