package radio

import (
	"bytes"
	"fmt"
	"net"
	"sync"

	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/observability"
	"github.com/danmuck/espblink/internal/protocol"
	"github.com/danmuck/espblink/internal/protocol/frame"
)

// State is the adapter lifecycle. There is no way back to Uninitialized.
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

type EventKind int

const (
	EventReceive EventKind = iota + 1
	EventSendStatus
)

func (k EventKind) String() string {
	switch k {
	case EventReceive:
		return "receive"
	case EventSendStatus:
		return "send_status"
	default:
		return "unknown"
	}
}

// Event is a driver callback copied off the radio stack's goroutine.
// Receive events carry terminated, NUL-trimmed text in Data.
type Event struct {
	Kind   EventKind
	Peer   net.HardwareAddr
	Data   []byte
	Status SendStatus
}

// Adapter owns the radio driver and the single central peer entry. Callbacks
// only enqueue; everything else runs on the goroutine that drains Events.
type Adapter struct {
	driver  Driver
	central net.HardwareAddr
	events  chan Event

	mu    sync.RWMutex
	state State
	label string
}

func NewAdapter(driver Driver, central net.HardwareAddr, buffer int) *Adapter {
	if buffer <= 0 {
		buffer = 1
	}
	return &Adapter{
		driver:  driver,
		central: append(net.HardwareAddr(nil), central...),
		events:  make(chan Event, buffer),
		label:   "unknown",
	}
}

// Start initializes the radio stack, installs callbacks and adds the central
// as a peer when one is configured. Any failure is an ErrInitFailure: the
// node cannot run without its radio.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateReady {
		return nil
	}
	if err := a.driver.Init(); err != nil {
		logging.Errf("radio.Adapter.Start init err=%v", err)
		return fmt.Errorf("%w: %v", ErrInitFailure, err)
	}
	if addr := a.driver.Address(); len(addr) > 0 {
		a.label = protocol.FormatAddress(addr)
	}
	a.driver.OnSend(a.onSend)
	a.driver.OnReceive(a.onReceive)
	if len(a.central) > 0 {
		if err := a.driver.AddPeer(a.central); err != nil {
			logging.Errf("radio.Adapter.Start add_peer peer=%s err=%v", a.central, err)
			return fmt.Errorf("%w: add peer %s: %v", ErrInitFailure, a.central, err)
		}
	}
	a.state = StateReady
	logging.Infof("radio.Adapter.Start ready addr=%s central=%s", a.label, a.central)
	return nil
}

func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Adapter) Address() net.HardwareAddr {
	return a.driver.Address()
}

func (a *Adapter) Central() net.HardwareAddr {
	return append(net.HardwareAddr(nil), a.central...)
}

// Events yields receive and send-status events in arrival order.
func (a *Adapter) Events() <-chan Event {
	return a.events
}

// Send hands payload to the radio. It never reports an error to the caller:
// a frame that cannot be packed or queued surfaces as a failed send-status
// event, the same way an unacknowledged transmission does.
func (a *Adapter) Send(dst net.HardwareAddr, payload []byte) {
	if a.State() != StateReady {
		logging.Warnf("radio.Adapter.Send dropped dst=%s err=%v", dst, ErrNotReady)
		observability.RecordFrameSent(a.label, false)
		return
	}
	f, err := frame.Pack(payload)
	if err != nil {
		logging.Errf("radio.Adapter.Send pack dst=%s bytes=%d err=%v", dst, len(payload), err)
		a.enqueue(Event{Kind: EventSendStatus, Peer: copyAddr(dst), Status: SendFail})
		return
	}
	if err := a.driver.Send(dst, f); err != nil {
		logging.Warnf("radio.Adapter.Send driver dst=%s err=%v", dst, err)
		a.enqueue(Event{Kind: EventSendStatus, Peer: copyAddr(dst), Status: SendFail})
		return
	}
	logging.Debugf("radio.Adapter.Send queued dst=%s bytes=%d", dst, len(payload))
}

// HandleSendStatus applies the send-completion policy: success is logged,
// failure re-adds the peer so a later send can go through. The failed message
// itself is not retried.
func (a *Adapter) HandleSendStatus(ev Event) {
	observability.RecordFrameSent(a.label, ev.Status.OK())
	if ev.Status.OK() {
		logging.Debugf("radio.Adapter.HandleSendStatus delivered dst=%s", ev.Peer)
		return
	}
	logging.Warnf("radio.Adapter.HandleSendStatus failed dst=%s status=%d", ev.Peer, ev.Status)
	if len(ev.Peer) == 0 {
		return
	}
	if err := a.driver.AddPeer(ev.Peer); err != nil {
		logging.Errf("radio.Adapter.HandleSendStatus add_peer dst=%s err=%v", ev.Peer, err)
	}
}

// AddPeer adds a peer entry beyond the central, for a central that answers
// many nodes.
func (a *Adapter) AddPeer(addr net.HardwareAddr) error {
	if a.State() != StateReady {
		return ErrNotReady
	}
	return a.driver.AddPeer(addr)
}

func (a *Adapter) Close() error {
	return a.driver.Close()
}

func (a *Adapter) onSend(dst net.HardwareAddr, status SendStatus) {
	a.enqueue(Event{Kind: EventSendStatus, Peer: copyAddr(dst), Status: status})
}

func (a *Adapter) onReceive(src net.HardwareAddr, data []byte) {
	observability.RecordFrameReceived(a.label)
	logging.Tracef("radio.Adapter.onReceive src=%s bytes=%d", src, len(data))
	a.enqueue(Event{Kind: EventReceive, Peer: copyAddr(src), Data: frame.Unpack(data)})
}

// enqueue never blocks the radio stack; a full queue drops the event.
func (a *Adapter) enqueue(ev Event) {
	select {
	case a.events <- ev:
	default:
		observability.RecordEventDropped(a.label, ev.Kind.String())
		logging.Warnf("radio.Adapter.enqueue dropped kind=%s peer=%s", ev.Kind, ev.Peer)
	}
}

func copyAddr(addr net.HardwareAddr) net.HardwareAddr {
	return append(net.HardwareAddr(nil), addr...)
}

// SameAddr compares hardware addresses byte-wise.
func SameAddr(a, b net.HardwareAddr) bool {
	return len(a) > 0 && bytes.Equal(a, b)
}
