package core

import (
	"context"
	"expvar"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"canvascore/pkg/domain"
)

func TestExpvarRecorderAggregatesDispatches(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	svc := newTestService(t, WithMetrics(rec))
	ctx := context.Background()

	mustAdd(t, svc, domain.AddComponentPayload{ID: "n1", Kind: "text", Geometry: domain.BoundingBox{Width: 10, Height: 10}})
	if _, err := svc.SetSelection(ctx, "n1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	rec.Observe(ctx, "dispatch:add_component", false, 3*time.Millisecond)

	snap := rec.Snapshot()
	if got := snap.Results["dispatch:add_component"]["success"]; got != 1 {
		t.Fatalf("add_component successes = %d, results %+v", got, snap.Results)
	}
	if got := snap.Results["dispatch:add_component"]["error"]; got != 1 {
		t.Fatalf("add_component errors = %d, results %+v", got, snap.Results)
	}
	if got := snap.Results["dispatch:set_selection"]["success"]; got != 1 {
		t.Fatalf("set_selection successes = %d, results %+v", got, snap.Results)
	}
	if _, ok := snap.DurationsMS["dispatch:set_selection"]; !ok {
		t.Fatalf("set_selection duration missing: %+v", snap.DurationsMS)
	}
	if expvar.Get(rec.Name()) == nil {
		t.Fatalf("recorder %q not published", rec.Name())
	}
}

func TestExpvarRecorderIgnoresBlankOperation(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "", true, time.Millisecond)
	if snap := rec.Snapshot(); len(snap.Results) != 0 {
		t.Fatalf("blank operation recorded: %+v", snap.Results)
	}
}

func TestPrometheusRecorderExportsDispatchMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc := newTestService(t, WithMetrics(rec))

	mustAdd(t, svc, domain.AddComponentPayload{ID: "n1", Kind: "text", Geometry: domain.BoundingBox{Width: 10, Height: 10}})
	rec.Observe(context.Background(), "dispatch:add_component", false, 2*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	histogramSamples := uint64(0)
	for _, fam := range families {
		switch fam.GetName() {
		case "canvascore_dispatch_results_total":
			for _, m := range fam.GetMetric() {
				var op, status string
				for _, lp := range m.GetLabel() {
					switch lp.GetName() {
					case "operation":
						op = lp.GetValue()
					case "status":
						status = lp.GetValue()
					}
				}
				counts[op+"/"+status] = m.GetCounter().GetValue()
			}
		case "canvascore_dispatch_duration_seconds":
			for _, m := range fam.GetMetric() {
				histogramSamples += m.GetHistogram().GetSampleCount()
			}
		}
	}
	if counts["dispatch:add_component/success"] != 1 {
		t.Fatalf("success count = %v, all %v", counts["dispatch:add_component/success"], counts)
	}
	if counts["dispatch:add_component/error"] != 1 {
		t.Fatalf("error count = %v, all %v", counts["dispatch:add_component/error"], counts)
	}
	if histogramSamples < 2 {
		t.Fatalf("histogram samples = %d, want at least 2", histogramSamples)
	}
}

func TestPrometheusRecorderRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("duplicate registration accepted")
	}
}
