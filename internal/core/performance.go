package core

import (
	"context"
	"time"

	"canvascore/pkg/domain"
)

// Default dispatch wall-time budgets. The soft budget only logs; the hard
// budget fails the dispatch when strict mode is on, which exists to catch
// runaway handlers in tests.
const (
	DefaultSoftBudget = 100 * time.Millisecond
	DefaultHardBudget = 1000 * time.Millisecond
)

// PerformanceConfig tunes the dispatch timing middleware.
type PerformanceConfig struct {
	SoftBudget time.Duration // 0 means DefaultSoftBudget
	HardBudget time.Duration // 0 means DefaultHardBudget
	Strict     bool
}

// performanceMiddleware measures before-to-after wall time for every
// dispatch, records it, and enforces the budgets. Dispatches are serialized
// by the store lock, so a single start field is safe.
type performanceMiddleware struct {
	cfg     PerformanceConfig
	logger  Logger
	metrics MetricsRecorder
	clock   Clock
	start   time.Time
}

// NewPerformanceMiddleware constructs the timing interceptor.
func NewPerformanceMiddleware(cfg PerformanceConfig, logger Logger, metrics MetricsRecorder, clock Clock) Middleware {
	if cfg.SoftBudget <= 0 {
		cfg.SoftBudget = DefaultSoftBudget
	}
	if cfg.HardBudget <= 0 {
		cfg.HardBudget = DefaultHardBudget
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
	return &performanceMiddleware{cfg: cfg, logger: logger, metrics: metrics, clock: clock}
}

func (*performanceMiddleware) Name() string { return "performance" }

func (m *performanceMiddleware) Before(_ context.Context, _ domain.Action, _ domain.AppState) error {
	m.start = m.clock.Now()
	return nil
}

func (m *performanceMiddleware) After(ctx context.Context, action domain.Action, _ []domain.ChangeSet, _ domain.AppState) error {
	elapsed := m.clock.Now().Sub(m.start)
	op := "dispatch:" + string(action.Type)
	if m.cfg.Strict && elapsed > m.cfg.HardBudget {
		m.metrics.Observe(ctx, op, false, elapsed)
		return domain.PerformanceBudgetError{
			ActionType: string(action.Type),
			ElapsedMS:  float64(elapsed) / float64(time.Millisecond),
			BudgetMS:   float64(m.cfg.HardBudget) / float64(time.Millisecond),
		}
	}
	m.metrics.Observe(ctx, op, true, elapsed)
	if elapsed > m.cfg.SoftBudget {
		m.logger.Warn("dispatch exceeded soft budget",
			"action", string(action.Type),
			"elapsed_ms", float64(elapsed)/float64(time.Millisecond),
			"budget_ms", float64(m.cfg.SoftBudget)/float64(time.Millisecond),
		)
	}
	return nil
}
