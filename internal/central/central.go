// Package central simulates the coordinating peer nodes register with. It
// answers register envelopes, tracks nodes it has heard from, and sends
// command envelopes on request.
package central

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/protocol"
	"github.com/danmuck/espblink/internal/protocol/session"
	"github.com/danmuck/espblink/internal/radio"
)

var (
	ErrUnknownNode    = errors.New("central: unknown node")
	ErrInvalidOptions = errors.New("central: invalid options")
)

// Transport is the slice of radio.Adapter the central drives.
type Transport interface {
	Start() error
	Address() net.HardwareAddr
	AddPeer(addr net.HardwareAddr) error
	Send(dst net.HardwareAddr, payload []byte)
	Events() <-chan radio.Event
	HandleSendStatus(ev radio.Event)
}

type Options struct {
	Transport Transport
	// AutoRegister answers every register with "registered". When false,
	// nodes wait in pending until Approve.
	AutoRegister bool
	Clock        func() time.Time
}

// NodeRecord is what the central knows about one node.
type NodeRecord struct {
	Address       string    `json:"address"`
	DeviceID      string    `json:"device_id"`
	Approved      bool      `json:"approved"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Registrations uint64    `json:"registrations"`
	LastLED       *int      `json:"last_led,omitempty"`
}

type Central struct {
	transport    Transport
	autoRegister bool
	now          func() time.Time

	mu    sync.RWMutex
	nodes map[string]*NodeRecord
}

func New(opts Options) (*Central, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("%w: transport required", ErrInvalidOptions)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Central{
		transport:    opts.Transport,
		autoRegister: opts.AutoRegister,
		now:          opts.Clock,
		nodes:        make(map[string]*NodeRecord),
	}, nil
}

// Run starts the transport and handles radio events until ctx is done.
func (c *Central) Run(ctx context.Context) error {
	if err := c.transport.Start(); err != nil {
		return err
	}
	logging.Infof("central.Central.Run start addr=%s auto_register=%v", c.transport.Address(), c.autoRegister)
	for {
		select {
		case <-ctx.Done():
			logging.Infof("central.Central.Run shutdown nodes=%d", len(c.Nodes()))
			return nil
		case ev := <-c.transport.Events():
			c.Dispatch(ev)
		}
	}
}

func (c *Central) Dispatch(ev radio.Event) {
	switch ev.Kind {
	case radio.EventReceive:
		c.HandleFrame(ev.Peer, ev.Data)
	case radio.EventSendStatus:
		c.transport.HandleSendStatus(ev)
	}
}

// HandleFrame accepts register envelopes addressed to the logical central.
// Everything else is logged and dropped.
func (c *Central) HandleFrame(from net.HardwareAddr, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		logging.Warnf("central.Central.HandleFrame parse from=%s err=%v", from, err)
		return
	}
	if env.Type != protocol.TypeRegister || env.Destination != protocol.Central {
		logging.Debugf("central.Central.HandleFrame ignore from=%s type=%s dst=%s", from, env.Type, env.Destination)
		return
	}
	reg, err := session.RegistrationFrom(env)
	if err != nil {
		logging.Warnf("central.Central.HandleFrame register from=%s err=%v", from, err)
		return
	}
	if !radio.SameAddr(reg.Address, from) {
		logging.Warnf("central.Central.HandleFrame src mismatch from=%s src=%s", from, reg.Address)
	}

	now := c.now()
	key := protocol.FormatAddress(from)
	c.mu.Lock()
	rec, ok := c.nodes[key]
	if !ok {
		rec = &NodeRecord{Address: key, FirstSeen: now}
		c.nodes[key] = rec
	}
	rec.DeviceID = reg.DeviceID
	rec.LastSeen = now
	rec.Registrations++
	if c.autoRegister {
		rec.Approved = true
	}
	approved := rec.Approved
	c.mu.Unlock()

	logging.Infof("central.Central.HandleFrame register node=%s device_id=%q new=%v", key, reg.DeviceID, !ok)
	status := protocol.StatusPending
	if approved {
		status = protocol.StatusRegistered
	}
	c.reply(from, status)
}

// Approve marks a pending node registered and tells it so.
func (c *Central) Approve(addr net.HardwareAddr) error {
	key := protocol.FormatAddress(addr)
	c.mu.Lock()
	rec, ok := c.nodes[key]
	if ok {
		rec.Approved = true
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, key)
	}
	c.reply(addr, protocol.StatusRegistered)
	return nil
}

// Command sends a led command. Nodes never acknowledge commands, so a nil
// return only means the frame was handed to the radio.
func (c *Central) Command(addr net.HardwareAddr, led int) error {
	data, err := session.EncodeCommand(session.Command{
		Central: c.transport.Address(),
		Node:    addr,
		LED:     &led,
	})
	if err != nil {
		return err
	}
	if err := c.transport.AddPeer(addr); err != nil {
		return fmt.Errorf("add peer %s: %w", addr, err)
	}
	key := protocol.FormatAddress(addr)
	c.mu.Lock()
	if rec, ok := c.nodes[key]; ok {
		v := led
		rec.LastLED = &v
	}
	c.mu.Unlock()
	logging.Infof("central.Central.Command node=%s led=%d", key, led)
	c.transport.Send(addr, data)
	return nil
}

// Nodes returns known nodes sorted by address.
func (c *Central) Nodes() []NodeRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]NodeRecord, 0, len(c.nodes))
	for _, rec := range c.nodes {
		cp := *rec
		if rec.LastLED != nil {
			v := *rec.LastLED
			cp.LastLED = &v
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (c *Central) reply(addr net.HardwareAddr, status string) {
	data, err := session.EncodeRegistrationResponse(session.RegistrationResponse{
		Central: c.transport.Address(),
		Node:    addr,
		Status:  status,
	})
	if err != nil {
		logging.Errf("central.Central.reply encode node=%s err=%v", addr, err)
		return
	}
	if err := c.transport.AddPeer(addr); err != nil {
		logging.Errf("central.Central.reply add_peer node=%s err=%v", addr, err)
		return
	}
	c.transport.Send(addr, data)
}
