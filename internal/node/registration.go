package node

import (
	"time"

	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/observability"
	"github.com/danmuck/espblink/internal/protocol"
	"github.com/danmuck/espblink/internal/protocol/session"
)

type RegistrationState int

const (
	StateUnregistered RegistrationState = iota
	StateRegistered
)

func (s RegistrationState) String() string {
	if s == StateRegistered {
		return "registered"
	}
	return "unregistered"
}

func (n *Node) State() RegistrationState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *Node) Registered() bool {
	return n.State() == StateRegistered
}

// Tick sends a register envelope when unregistered and more than one
// RegisterInterval has passed since the last attempt. It reports whether an
// attempt was made.
func (n *Node) Tick(now time.Time) bool {
	n.mu.Lock()
	if n.state == StateRegistered || now.Sub(n.lastAttempt) <= n.cfg.RegisterInterval {
		n.mu.Unlock()
		return false
	}
	n.lastAttempt = now
	n.attempts++
	attempt := n.attempts
	n.mu.Unlock()

	data, err := session.EncodeRegistration(session.Registration{
		Address:  n.id.Address,
		DeviceID: n.id.DeviceID,
	})
	if err != nil {
		// timestamp stays reset so a bad identity does not spin
		observability.RecordRegistrationAttempt(n.label, "encode_error")
		logging.Errf("node.Node.Tick register encode attempt=%d err=%v", attempt, err)
		return true
	}
	observability.RecordRegistrationAttempt(n.label, "sent")
	logging.Infof("node.Node.Tick register attempt=%d central=%s", attempt, n.central)
	logging.Debugf("node.Node.Tick register frame=%s", data)
	n.sender.Send(n.central, data)
	return true
}

// handleRegisterResponse latches registration on "registered" and lights the
// LED. A repeated response lights it again.
func (n *Node) handleRegisterResponse(env protocol.Envelope) {
	if !session.AcceptedFor(env, n.id.Address) {
		if p, ok := env.Payload.(protocol.RegisterResponsePayload); ok {
			logging.Infof("node.Node.handleRegisterResponse status=%q not accepted", p.Status)
		}
		return
	}
	n.mu.Lock()
	first := n.state != StateRegistered
	if first {
		n.state = StateRegistered
		n.registeredAt = n.now()
	}
	n.mu.Unlock()

	n.setLevel(ActiveLevel)
	observability.SetRegistered(n.label, true)
	if first {
		logging.Infof("node.Node.handleRegisterResponse registered addr=%s src=%s", n.label, env.Source)
	} else {
		logging.Debugf("node.Node.handleRegisterResponse duplicate src=%s", env.Source)
	}
}
