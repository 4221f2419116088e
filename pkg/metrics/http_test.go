package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/v1/orders", 201, 40*time.Millisecond)
	m.Observe("POST", "/api/v1/orders", 201, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := sampleValue(mfs, "http_requests_total", map[string]string{"status": "201"}); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 requests, got %f", got)
	}
	if got, err := sampleValue(mfs, "http_request_duration_seconds", map[string]string{"route": "/api/v1/orders"}); err != nil {
		t.Fatalf("fetch latency: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected latency sum > 0, got %f", got)
	}
}

func TestAssignmentAndOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	assign := NewAssignmentMetrics(reg)
	assign.IncOutcome("assigned")
	assign.IncOutcome("no_match")
	assign.IncOutcome("no_match")

	outbox := NewOutboxMetrics(reg)
	outbox.IncPublished("order_placed")
	outbox.IncFailed("order_placed", "")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, _ := sampleValue(mfs, "delivery_assignment_total", map[string]string{"outcome": "no_match"}); got != 2 {
		t.Fatalf("expected no_match=2, got %f", got)
	}
	if got, _ := sampleValue(mfs, "outbox_published_total", map[string]string{"event_type": "order_placed"}); got != 1 {
		t.Fatalf("expected published=1, got %f", got)
	}
	if got, _ := sampleValue(mfs, "outbox_failed_total", map[string]string{"reason": "unknown"}); got != 1 {
		t.Fatalf("expected failure with unknown reason, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)
	NewAssignmentMetrics(nil).IncOutcome("assigned")
	NewOutboxMetrics(nil).IncPublished("x")
	var m *CronJobMetrics
	m.IncSuccess("job", time.Now())
}
