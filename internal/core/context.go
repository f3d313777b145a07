package core

import "canvascore/internal/spatial"

// StateContext bundles the collaborators a store and its middleware share:
// the component kind catalogue, the spatial index, and observability sinks.
// It is built once and injected explicitly, so two stores in one process
// (or one test) never share hidden state.
type StateContext struct {
	Registry *PropertyRegistry
	Spatial  *spatial.Index
	Logger   Logger
	Metrics  MetricsRecorder
	Clock    Clock
}

// NewStateContext fills in defaults for any nil collaborator.
func NewStateContext(registry *PropertyRegistry, index *spatial.Index, logger Logger, metrics MetricsRecorder, clock Clock) *StateContext {
	if registry == nil {
		registry = NewDefaultPropertyRegistry()
	}
	if index == nil {
		index = spatial.New(spatial.DefaultCellSize)
	}
	if logger == nil {
		logger = NopLogger{}
	}
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &StateContext{Registry: registry, Spatial: index, Logger: logger, Metrics: metrics, Clock: clock}
}
