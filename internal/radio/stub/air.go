package stub

import (
	"net"
	"sync"

	"github.com/danmuck/espblink/internal/radio"
)

// Air connects stub drivers by hardware address.
type Air struct {
	mu     sync.Mutex
	radios map[string]*Driver
}

func NewAir() *Air {
	return &Air{radios: make(map[string]*Driver)}
}

// Attach creates a driver reachable at addr on this air.
func (a *Air) Attach(addr net.HardwareAddr) *Driver {
	d := New(addr)
	d.air = a
	a.mu.Lock()
	a.radios[d.addr.String()] = d
	a.mu.Unlock()
	return d
}

func (a *Air) detach(d *Driver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.radios[d.addr.String()] == d {
		delete(a.radios, d.addr.String())
	}
}

// deliver reports whether at least one receiver accepted the frame, which is
// what a link-layer ack means for a unicast send.
func (a *Air) deliver(src, dst net.HardwareAddr, data []byte) bool {
	a.mu.Lock()
	var targets []*Driver
	if radio.SameAddr(dst, radio.Broadcast) {
		for key, d := range a.radios {
			if key != src.String() {
				targets = append(targets, d)
			}
		}
	} else if d, ok := a.radios[dst.String()]; ok {
		targets = append(targets, d)
	}
	a.mu.Unlock()

	delivered := false
	for _, d := range targets {
		buf := append([]byte(nil), data...)
		if d.Inject(src, buf) {
			delivered = true
		}
	}
	return delivered
}
