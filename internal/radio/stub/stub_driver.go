package stub

import (
	"errors"
	"net"
	"sync"

	"github.com/danmuck/espblink/internal/protocol/frame"
	"github.com/danmuck/espblink/internal/radio"
)

var (
	ErrNotInitialized = errors.New("stub: driver not initialized")
	ErrForcedFailure  = errors.New("stub: forced failure")
)

// Transmission is one frame handed to Send.
type Transmission struct {
	Dst     net.HardwareAddr
	Payload []byte
}

// Driver implements an in-memory radio for host-side testing. Drivers that
// share an Air deliver frames to each other; a detached driver only records
// what it sends.
type Driver struct {
	mu          sync.Mutex
	addr        net.HardwareAddr
	air         *Air
	initErr     error
	initialized bool
	failSends   int
	peers       map[string]struct{}
	addPeers    int
	onSend      radio.SendFunc
	onReceive   radio.ReceiveFunc
	txLog       ringBuffer
}

func New(addr net.HardwareAddr) *Driver {
	return &Driver{
		addr:  append(net.HardwareAddr(nil), addr...),
		peers: make(map[string]struct{}),
	}
}

// FailInit makes the next Init return err.
func (d *Driver) FailInit(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initErr = err
}

// FailNextSends reports the next n transmissions as undelivered.
func (d *Driver) FailNextSends(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failSends = n
}

func (d *Driver) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initErr != nil {
		return d.initErr
	}
	d.initialized = true
	return nil
}

func (d *Driver) Address() net.HardwareAddr {
	return append(net.HardwareAddr(nil), d.addr...)
}

// AddPeer is idempotent, like the radio stack's peer table.
func (d *Driver) AddPeer(addr net.HardwareAddr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotInitialized
	}
	d.addPeers++
	d.peers[addr.String()] = struct{}{}
	return nil
}

// RemovePeer drops a peer entry so tests can exercise the re-add path.
func (d *Driver) RemovePeer(addr net.HardwareAddr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.peers, addr.String())
}

func (d *Driver) HasPeer(addr net.HardwareAddr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.peers[addr.String()]
	return ok
}

func (d *Driver) AddPeerCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addPeers
}

func (d *Driver) Send(dst net.HardwareAddr, f frame.Frame) error {
	d.mu.Lock()
	if !d.initialized {
		d.mu.Unlock()
		return ErrNotInitialized
	}
	if _, ok := d.peers[dst.String()]; !ok && !radio.SameAddr(dst, radio.Broadcast) {
		d.mu.Unlock()
		return radio.ErrUnknownPeer
	}
	data := f.Bytes()
	d.txLog.push(Transmission{Dst: append(net.HardwareAddr(nil), dst...), Payload: frame.Unpack(data)})
	forced := d.failSends > 0
	if forced {
		d.failSends--
	}
	onSend := d.onSend
	air := d.air
	d.mu.Unlock()

	// Callbacks run outside the lock; a receiver may answer synchronously.
	status := radio.SendOK
	switch {
	case forced:
		status = radio.SendFail
	case air != nil && !air.deliver(d.Address(), dst, data):
		status = radio.SendFail
	}
	if onSend != nil {
		onSend(dst, status)
	}
	return nil
}

func (d *Driver) OnSend(fn radio.SendFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onSend = fn
}

func (d *Driver) OnReceive(fn radio.ReceiveFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onReceive = fn
}

func (d *Driver) Close() error {
	d.mu.Lock()
	air := d.air
	d.initialized = false
	d.mu.Unlock()
	if air != nil {
		air.detach(d)
	}
	return nil
}

// Inject delivers data as if it arrived over the air from src.
func (d *Driver) Inject(src net.HardwareAddr, data []byte) bool {
	d.mu.Lock()
	fn := d.onReceive
	ready := d.initialized
	d.mu.Unlock()
	if fn == nil || !ready {
		return false
	}
	fn(append(net.HardwareAddr(nil), src...), data)
	return true
}

// Sent returns recorded transmissions, oldest first.
func (d *Driver) Sent() []Transmission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txLog.snapshot()
}

const ringCapacity = 64

type ringBuffer struct {
	data       [ringCapacity]Transmission
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(tx Transmission) {
	if rb.count == ringCapacity {
		// overwrite oldest to keep memory bounded
		rb.data[rb.tail] = Transmission{}
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = tx
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) snapshot() []Transmission {
	out := make([]Transmission, rb.count)
	i := rb.head
	for c := 0; c < rb.count; c++ {
		tx := rb.data[i]
		out[c] = Transmission{
			Dst:     append(net.HardwareAddr(nil), tx.Dst...),
			Payload: append([]byte(nil), tx.Payload...),
		}
		i = (i + 1) % ringCapacity
	}
	return out
}
