package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/espblink/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func TestAdminRoutes(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	a := NewAdmin("node-admin", "127.0.0.1:0", nil, func() any {
		return map[string]any{"registered": true, "led": "high"}
	})

	rr := httptest.NewRecorder()
	a.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	a.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body["registered"] != true || body["led"] != "high" {
		t.Fatalf("unexpected status body: %#v", body)
	}

	RecordParseError("node-admin")
	rr = httptest.NewRecorder()
	a.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "espblink_protocol_parse_errors_total") {
		t.Fatalf("metrics missing parse error counter, status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `espblink_http_requests_total{method="GET",node="node-admin",path="/status",status="200"}`) {
		t.Fatalf("request metrics middleware did not record /status")
	}
}

func TestAdminStatusWithoutSource(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	a := NewAdmin("no-source", "127.0.0.1:0", []string{"http://example.test"}, nil)
	rr := httptest.NewRecorder()
	a.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAdminCORSPreflight(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	a := NewAdmin("cors", "127.0.0.1:0", []string{"http://example.test"}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := httptest.NewRecorder()
	a.Router().ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://example.test" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestAdminCORSPreflightAllowsAuthorization(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	a := NewAdmin("cors-auth", "127.0.0.1:0", []string{"http://example.test"}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/nodes/AA:BB:CC:DD:EE:FF/led/1", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	rr := httptest.NewRecorder()
	a.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rr.Code)
	}
	if got := strings.ToLower(rr.Header().Get("Access-Control-Allow-Headers")); !strings.Contains(got, "authorization") {
		t.Fatalf("authorization not allowed: %q", got)
	}
}

func TestAdminServeStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	a := NewAdmin("serve", "127.0.0.1:0", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
