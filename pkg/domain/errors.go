package domain

import "fmt"

// InvalidActionError rejects a malformed or unknown action before any state
// is touched.
type InvalidActionError struct {
	Type   string
	Reason string
}

func (e InvalidActionError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("invalid action: %s", e.Reason)
	}
	return fmt.Sprintf("invalid action %q: %s", e.Type, e.Reason)
}

// SecurityViolationError is returned by the security middleware and
// short-circuits the pipeline.
type SecurityViolationError struct {
	Field  string
	Reason string
}

func (e SecurityViolationError) Error() string {
	return fmt.Sprintf("security violation in %q: %s", e.Field, e.Reason)
}

// ValidationError reports a semantic rule violation (missing reference,
// cyclic parent assignment, bad property type).
type ValidationError struct {
	Rule    string
	Subject string
	Reason  string
}

func (e ValidationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Reason)
	}
	return fmt.Sprintf("validation failed (%s) on %q: %s", e.Rule, e.Subject, e.Reason)
}

// PerformanceBudgetError is raised only in strict mode when a dispatch
// exceeds the hard wall-time ceiling. The dispatch is rolled back.
type PerformanceBudgetError struct {
	ActionType string
	ElapsedMS  float64
	BudgetMS   float64
}

func (e PerformanceBudgetError) Error() string {
	return fmt.Sprintf("performance budget exceeded: %s took %.1fms (hard budget %.1fms)",
		e.ActionType, e.ElapsedMS, e.BudgetMS)
}

// UnsupportedSchemaVersionError is returned by the migration chain for
// snapshot versions it cannot upgrade.
type UnsupportedSchemaVersionError struct {
	Found   int
	Current int
}

func (e UnsupportedSchemaVersionError) Error() string {
	return fmt.Sprintf("unsupported snapshot schema version %d (current %d)", e.Found, e.Current)
}

// StorageIOError wraps persistence failures. Autosave retries these with
// backoff; they never fail the originating dispatch.
type StorageIOError struct {
	Op  string
	Err error
}

func (e StorageIOError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e StorageIOError) Unwrap() error { return e.Err }
