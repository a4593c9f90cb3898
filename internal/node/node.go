package node

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/observability"
	"github.com/danmuck/espblink/internal/protocol"
	"github.com/danmuck/espblink/internal/protocol/session"
)

var ErrInvalidOptions = errors.New("node: invalid options")

// Sender hands encoded envelopes to the transport. It never reports failure
// to the caller.
type Sender interface {
	Send(dst net.HardwareAddr, payload []byte)
}

type Options struct {
	Identity Identity
	// Central is the hardware address register envelopes are sent to.
	Central  net.HardwareAddr
	Sender   Sender
	Actuator Actuator
	Session  session.Config
	// Clock must be monotonic; defaults to time.Now.
	Clock func() time.Time
}

// Node is the registration state machine plus command dispatcher.
type Node struct {
	id       Identity
	central  net.HardwareAddr
	sender   Sender
	actuator Actuator
	cfg      session.Config
	now      func() time.Time
	label    string

	mu           sync.RWMutex
	state        RegistrationState
	lastAttempt  time.Time
	registeredAt time.Time
	attempts     uint64
	commands     uint64
	parseErrors  uint64
	ignored      uint64
}

func New(opts Options) (*Node, error) {
	if len(opts.Identity.Address) != 6 {
		return nil, fmt.Errorf("%w: identity address required", ErrInvalidOptions)
	}
	if len(opts.Central) != 6 {
		return nil, fmt.Errorf("%w: central address required", ErrInvalidOptions)
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("%w: sender required", ErrInvalidOptions)
	}
	if opts.Actuator == nil {
		opts.Actuator = NewLED()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	cfg := opts.Session.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Node{
		id:       opts.Identity,
		central:  append(net.HardwareAddr(nil), opts.Central...),
		sender:   opts.Sender,
		actuator: opts.Actuator,
		cfg:      cfg,
		now:      opts.Clock,
		label:    opts.Identity.String(),
		state:    StateUnregistered,
	}
	// boot counts as the last attempt, so the first register goes out one
	// interval after start.
	n.lastAttempt = n.now()
	observability.SetRegistered(n.label, false)
	observability.SetActuatorActive(n.label, n.actuator.Level() == ActiveLevel)
	logging.Infof("node.Node.New addr=%s device_id=%q central=%s", n.label, n.id.DeviceID, n.central)
	return n, nil
}

func (n *Node) Identity() Identity {
	return n.id
}

// HandleFrame decodes one received frame and routes it. Nothing here returns
// an error: parse failures are logged and dropped, frames for other
// addresses are ignored.
func (n *Node) HandleFrame(from net.HardwareAddr, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		n.mu.Lock()
		n.parseErrors++
		n.mu.Unlock()
		observability.RecordParseError(n.label)
		logging.Warnf("node.Node.HandleFrame parse from=%s err=%v", from, err)
		return
	}
	if !env.AddressedTo(n.id.Address) {
		n.mu.Lock()
		n.ignored++
		n.mu.Unlock()
		logging.Debugf("node.Node.HandleFrame ignore from=%s dst=%s type=%s", from, env.Destination, env.Type)
		return
	}
	logging.Debugf("node.Node.HandleFrame from=%s type=%s", from, env.Type)

	switch env.Type {
	case protocol.TypeRegisterResponse:
		n.handleRegisterResponse(env)
	case protocol.TypeCommand:
		n.handleCommand(env)
	default:
		logging.Debugf("node.Node.HandleFrame unhandled type=%s", env.Type)
	}
}

// Snapshot is a point-in-time view for the admin surface.
type Snapshot struct {
	Address      string    `json:"address"`
	DeviceID     string    `json:"device_id"`
	Central      string    `json:"central"`
	State        string    `json:"state"`
	Registered   bool      `json:"registered"`
	RegisteredAt time.Time `json:"registered_at,omitempty"`
	LastAttempt  time.Time `json:"last_attempt"`
	Attempts     uint64    `json:"attempts"`
	LED          string    `json:"led"`
	LEDActive    bool      `json:"led_active"`
	Commands     uint64    `json:"commands"`
	ParseErrors  uint64    `json:"parse_errors"`
	Ignored      uint64    `json:"ignored"`
}

func (n *Node) Snapshot() Snapshot {
	n.mu.RLock()
	defer n.mu.RUnlock()
	level := n.actuator.Level()
	return Snapshot{
		Address:      n.label,
		DeviceID:     n.id.DeviceID,
		Central:      protocol.FormatAddress(n.central),
		State:        n.state.String(),
		Registered:   n.state == StateRegistered,
		RegisteredAt: n.registeredAt,
		LastAttempt:  n.lastAttempt,
		Attempts:     n.attempts,
		LED:          level.String(),
		LEDActive:    level == ActiveLevel,
		Commands:     n.commands,
		ParseErrors:  n.parseErrors,
		Ignored:      n.ignored,
	}
}

func (n *Node) setLevel(level Level) {
	if err := n.actuator.Set(level); err != nil {
		logging.Errf("node.Node.setLevel level=%s err=%v", level, err)
		return
	}
	observability.SetActuatorActive(n.label, level == ActiveLevel)
}
