package observability

import (
	"testing"
	"time"

	"github.com/danmuck/espblink/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("node-a", "GET", "/health", 200, 12*time.Millisecond)
	RecordRegistrationAttempt("node-a", "sent")
	SetRegistered("node-a", true)
	SetActuatorActive("node-a", false)
	RecordCommand("node-a", "led")
	RecordFrameSent("node-a", true)
	RecordFrameSent("node-a", false)
	RecordFrameReceived("node-a")
	RecordEventDropped("node-a", "receive")
	RecordParseError("node-a")
}

func TestGaugesTrackLatestValue(t *testing.T) {
	testlog.Start(t)
	SetRegistered("node-gauge", false)
	if got := testutil.ToFloat64(registered.WithLabelValues("node-gauge")); got != 0 {
		t.Fatalf("expected registered=0, got %v", got)
	}
	SetRegistered("node-gauge", true)
	if got := testutil.ToFloat64(registered.WithLabelValues("node-gauge")); got != 1 {
		t.Fatalf("expected registered=1, got %v", got)
	}
}

func TestFrameSentSplitsByStatus(t *testing.T) {
	testlog.Start(t)
	RecordFrameSent("node-split", true)
	RecordFrameSent("node-split", false)
	RecordFrameSent("node-split", false)
	if got := testutil.ToFloat64(framesSent.WithLabelValues("node-split", "fail")); got != 2 {
		t.Fatalf("expected 2 failed sends, got %v", got)
	}
	if got := testutil.ToFloat64(framesSent.WithLabelValues("node-split", "ok")); got != 1 {
		t.Fatalf("expected 1 ok send, got %v", got)
	}
}
