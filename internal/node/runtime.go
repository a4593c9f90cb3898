package node

import (
	"context"
	"time"

	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/radio"
)

// Transport is the slice of radio.Adapter the runtime drives.
type Transport interface {
	Sender
	Start() error
	Events() <-chan radio.Event
	HandleSendStatus(ev radio.Event)
}

// Runtime is the device main loop: drain radio events, tick, sleep.
type Runtime struct {
	node      *Node
	transport Transport
}

func NewRuntime(n *Node, t Transport) *Runtime {
	return &Runtime{node: n, transport: t}
}

func (r *Runtime) Node() *Node {
	return r.node
}

// Run starts the transport and loops until ctx is done. A transport start
// failure is returned as is (radio.ErrInitFailure) so the caller can restart.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.transport.Start(); err != nil {
		return err
	}
	ticker := time.NewTicker(r.node.cfg.PollInterval)
	defer ticker.Stop()

	logging.Infof(
		"node.Runtime.Run start addr=%s poll=%s register_interval=%s",
		r.node.label,
		r.node.cfg.PollInterval,
		r.node.cfg.RegisterInterval,
	)
	for {
		select {
		case <-ctx.Done():
			logging.Infof("node.Runtime.Run shutdown registered=%v", r.node.Registered())
			return nil
		case <-ticker.C:
			r.Step(r.node.now())
		}
	}
}

// Step runs one loop iteration: every queued event, then one tick.
func (r *Runtime) Step(now time.Time) {
	r.Drain()
	r.node.Tick(now)
}

// Drain handles queued events without blocking and returns how many ran.
func (r *Runtime) Drain() int {
	handled := 0
	for {
		select {
		case ev := <-r.transport.Events():
			r.dispatch(ev)
			handled++
		default:
			return handled
		}
	}
}

func (r *Runtime) dispatch(ev radio.Event) {
	switch ev.Kind {
	case radio.EventReceive:
		r.node.HandleFrame(ev.Peer, ev.Data)
	case radio.EventSendStatus:
		r.transport.HandleSendStatus(ev)
	default:
		logging.Debugf("node.Runtime.dispatch unknown kind=%d", ev.Kind)
	}
}
