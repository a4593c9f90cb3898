package central

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/espblink/internal/auth"
	"github.com/danmuck/espblink/internal/node"
	"github.com/danmuck/espblink/internal/radio"
	"github.com/danmuck/espblink/internal/radio/stub"
	"github.com/danmuck/espblink/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

var (
	centralAddr = net.HardwareAddr{0xcc, 0x7b, 0x5c, 0x4f, 0x98, 0x80}
	nodeAddr    = net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
)

type harness struct {
	central *Central
	cAdapt  *radio.Adapter
	runtime *node.Runtime
	led     *node.LED
	now     time.Time
}

func newHarness(t *testing.T, autoRegister bool) *harness {
	t.Helper()
	air := stub.NewAir()

	cAdapt := radio.NewAdapter(air.Attach(centralAddr), nil, 16)
	if err := cAdapt.Start(); err != nil {
		t.Fatalf("central start: %v", err)
	}
	c, err := New(Options{Transport: cAdapt, AutoRegister: autoRegister})
	if err != nil {
		t.Fatalf("new central: %v", err)
	}

	h := &harness{central: c, cAdapt: cAdapt, led: node.NewLED(), now: time.Unix(1000, 0)}
	nAdapt := radio.NewAdapter(air.Attach(nodeAddr), centralAddr, 16)
	if err := nAdapt.Start(); err != nil {
		t.Fatalf("node start: %v", err)
	}
	id, _ := node.NewIdentity(nodeAddr, "bench")
	n, err := node.New(node.Options{
		Identity: id,
		Central:  centralAddr,
		Sender:   nAdapt,
		Actuator: h.led,
		Clock:    func() time.Time { return h.now },
	})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	h.runtime = node.NewRuntime(n, nAdapt)
	return h
}

// pump lets both sides handle queued events.
func (h *harness) pump() {
	for i := 0; i < 4; i++ {
		h.drainCentral()
		h.runtime.Drain()
	}
}

func (h *harness) drainCentral() {
	for {
		select {
		case ev := <-h.cAdapt.Events():
			h.central.Dispatch(ev)
		default:
			return
		}
	}
}

func (h *harness) attempt() {
	h.now = h.now.Add(10*time.Second + time.Millisecond)
	h.runtime.Step(h.now)
	h.pump()
}

func TestAutoRegisterLatchesNode(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t, true)
	h.attempt()
	if !h.runtime.Node().Registered() {
		t.Fatalf("node should be registered")
	}
	if h.led.Level() != node.ActiveLevel {
		t.Fatalf("registration should light the LED")
	}
	nodes := h.central.Nodes()
	if len(nodes) != 1 || nodes[0].DeviceID != "bench" || !nodes[0].Approved || nodes[0].Registrations != 1 {
		t.Fatalf("unexpected node table: %+v", nodes)
	}
}

func TestPendingUntilApproved(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t, false)
	h.attempt()
	h.attempt()
	if h.runtime.Node().Registered() {
		t.Fatalf("pending response must not latch")
	}
	if n := h.central.Nodes(); len(n) != 1 || n[0].Registrations != 2 || n[0].Approved {
		t.Fatalf("unexpected node table: %+v", n)
	}
	if err := h.central.Approve(nodeAddr); err != nil {
		t.Fatalf("approve: %v", err)
	}
	h.pump()
	if !h.runtime.Node().Registered() {
		t.Fatalf("approval should latch the node")
	}
	if err := h.central.Approve(net.HardwareAddr{1, 2, 3, 4, 5, 6}); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}

func TestCommandDrivesLED(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t, true)
	h.attempt()

	if err := h.central.Command(nodeAddr, 1); err != nil {
		t.Fatalf("command: %v", err)
	}
	h.pump()
	if h.led.Level() != node.LevelLow {
		t.Fatalf("led=1 should turn the LED off")
	}
	if err := h.central.Command(nodeAddr, 0); err != nil {
		t.Fatalf("command: %v", err)
	}
	h.pump()
	if h.led.Level() != node.LevelHigh {
		t.Fatalf("led=0 should turn the LED on")
	}
	if rec := h.central.Nodes()[0]; rec.LastLED == nil || *rec.LastLED != 0 {
		t.Fatalf("unexpected last led: %+v", rec)
	}
}

func TestHandleFrameIgnoresNonRegister(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t, true)
	h.central.HandleFrame(nodeAddr, []byte("{not json"))
	h.central.HandleFrame(nodeAddr, []byte(`{"dst":"central","type":"command","payload":{"led":1}}`))
	h.central.HandleFrame(nodeAddr, []byte(`{"dst":"AA:BB:CC:DD:EE:00","type":"register","payload":{"id":"x"}}`))
	if n := len(h.central.Nodes()); n != 0 {
		t.Fatalf("expected no nodes, got %d", n)
	}
	if _, err := New(Options{}); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestRoutes(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	h := newHarness(t, true)
	h.attempt()

	r := gin.New()
	h.central.RegisterRoutes(r, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nodes", nil))
	var body struct {
		Nodes []NodeRecord `json:"nodes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode nodes: %v", err)
	}
	if len(body.Nodes) != 1 || body.Nodes[0].Address != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("unexpected nodes: %+v", body.Nodes)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/nodes/aa:bb:cc:dd:ee:ff/led/1", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rr.Code, rr.Body.String())
	}
	h.pump()
	if h.led.Level() != node.LevelLow {
		t.Fatalf("HTTP command did not reach the node")
	}

	for path, want := range map[string]int{
		"/nodes/central/led/1":            http.StatusBadRequest,
		"/nodes/aa:bb:cc:dd:ee:ff/led/on": http.StatusBadRequest,
		"/nodes/01:02:03:04:05:06/approve": http.StatusNotFound,
	} {
		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		if rr.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, rr.Code)
		}
	}
}

func TestRoutesRequireToken(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	h := newHarness(t, true)
	h.attempt()

	r := gin.New()
	h.central.RegisterRoutes(r, auth.StaticToken{Token: "s3cret"})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nodes", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("node list should stay open, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/nodes/aa:bb:cc:dd:ee:ff/led/1", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	h.pump()
	if h.led.Level() != node.ActiveLevel {
		t.Fatalf("rejected command must not reach the node")
	}

	req := httptest.NewRequest(http.MethodPost, "/nodes/aa:bb:cc:dd:ee:ff/led/1", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 with token, got %d", rr.Code)
	}
}
