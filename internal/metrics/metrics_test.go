package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if requestsTotal == nil || productsTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveRequestCounts(t *testing.T) {
	Init()

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("PRODUCT", "ok"))
	ObserveRequest("PRODUCT", "ok")
	ObserveRequest("PRODUCT", "ok")
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("PRODUCT", "ok"))

	if after-before != 2 {
		t.Errorf("requestsTotal delta = %v; want 2", after-before)
	}
}

func TestActiveWorkersGauge(t *testing.T) {
	Init()

	before := testutil.ToFloat64(activeWorkers)
	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	after := testutil.ToFloat64(activeWorkers)

	if after-before != 1 {
		t.Errorf("activeWorkers delta = %v; want 1", after-before)
	}
}

func TestObserveNotificationCounts(t *testing.T) {
	Init()

	before := testutil.ToFloat64(notificationsTotal.WithLabelValues("webhook", "error"))
	ObserveNotification("webhook", "error")
	after := testutil.ToFloat64(notificationsTotal.WithLabelValues("webhook", "error"))

	if after-before != 1 {
		t.Errorf("notificationsTotal delta = %v; want 1", after-before)
	}
}
