package radio

import (
	"errors"
	"net"

	"github.com/danmuck/espblink/internal/protocol/frame"
)

var (
	ErrInitFailure = errors.New("radio: init failure")
	ErrNotReady    = errors.New("radio: adapter not ready")
	ErrUnknownPeer = errors.New("radio: unknown peer")
)

// Broadcast is the all-nodes hardware address.
var Broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// SendStatus mirrors the radio stack's send-completion code: zero is success.
type SendStatus int

const (
	SendOK   SendStatus = 0
	SendFail SendStatus = 1
)

func (s SendStatus) OK() bool { return s == SendOK }

// SendFunc is invoked by a driver when a transmission completes.
type SendFunc func(dst net.HardwareAddr, status SendStatus)

// ReceiveFunc is invoked by a driver when a frame for this node arrives.
// data is only valid for the duration of the call.
type ReceiveFunc func(src net.HardwareAddr, data []byte)

// Driver wraps the point-to-point radio primitives.
//
// Send is fire-and-forget: a nil return means the frame was queued, and the
// outcome is reported later through the OnSend callback. Callbacks may run on
// any goroutine.
type Driver interface {
	Init() error
	Address() net.HardwareAddr
	AddPeer(addr net.HardwareAddr) error
	Send(dst net.HardwareAddr, f frame.Frame) error
	OnSend(fn SendFunc)
	OnReceive(fn ReceiveFunc)
	Close() error
}
