// Package udp simulates the point-to-point radio on a host by multicasting
// fixed-size datagrams. Every datagram is dst MAC | src MAC | 200-byte frame;
// receivers keep frames addressed to them or to broadcast.
package udp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/protocol/frame"
	"github.com/danmuck/espblink/internal/radio"
)

const (
	DefaultGroup = "239.255.42.99:47474"
	headerSize   = 12
	DatagramSize = headerSize + frame.Size
)

var ErrClosed = errors.New("udp: driver closed")

type Config struct {
	Group     string
	Interface string
	// Address overrides the interface MAC. When both are empty a random
	// locally administered address is generated.
	Address net.HardwareAddr
}

type Driver struct {
	cfg Config

	mu        sync.Mutex
	addr      net.HardwareAddr
	group     *net.UDPAddr
	rx        *net.UDPConn
	tx        *net.UDPConn
	peers     map[string]struct{}
	onSend    radio.SendFunc
	onReceive radio.ReceiveFunc
	done      chan struct{}
	wg        sync.WaitGroup
}

func New(cfg Config) *Driver {
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	return &Driver{cfg: cfg, peers: make(map[string]struct{})}
}

func (d *Driver) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rx != nil {
		return nil
	}
	group, err := net.ResolveUDPAddr("udp4", d.cfg.Group)
	if err != nil {
		return fmt.Errorf("resolve group %q: %w", d.cfg.Group, err)
	}
	var iface *net.Interface
	if d.cfg.Interface != "" {
		iface, err = net.InterfaceByName(d.cfg.Interface)
		if err != nil {
			return fmt.Errorf("interface %q: %w", d.cfg.Interface, err)
		}
	}
	addr, err := pickAddress(d.cfg.Address, iface)
	if err != nil {
		return err
	}
	rx, err := net.ListenMulticastUDP("udp4", iface, group)
	if err != nil {
		return fmt.Errorf("listen %s: %w", group, err)
	}
	tx, err := net.DialUDP("udp4", nil, group)
	if err != nil {
		_ = rx.Close()
		return fmt.Errorf("dial %s: %w", group, err)
	}
	d.addr = addr
	d.group = group
	d.rx = rx
	d.tx = tx
	d.done = make(chan struct{})
	d.wg.Add(1)
	go d.readLoop(rx, d.done)
	logging.Infof("udp.Driver.Init group=%s addr=%s", group, addr)
	return nil
}

func (d *Driver) Address() net.HardwareAddr {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.addr == nil && len(d.cfg.Address) == 6 {
		return append(net.HardwareAddr(nil), d.cfg.Address...)
	}
	return append(net.HardwareAddr(nil), d.addr...)
}

func (d *Driver) AddPeer(addr net.HardwareAddr) error {
	if len(addr) != 6 {
		return fmt.Errorf("udp: peer address %q must be 6 bytes", addr)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[addr.String()] = struct{}{}
	return nil
}

// Send writes one datagram. UDP has no link ack, so a successful write is
// reported as delivered.
func (d *Driver) Send(dst net.HardwareAddr, f frame.Frame) error {
	d.mu.Lock()
	tx := d.tx
	src := d.addr
	_, known := d.peers[dst.String()]
	onSend := d.onSend
	d.mu.Unlock()
	if tx == nil {
		return ErrClosed
	}
	if !known && !radio.SameAddr(dst, radio.Broadcast) {
		return radio.ErrUnknownPeer
	}
	if len(dst) != 6 {
		return fmt.Errorf("udp: destination %q must be 6 bytes", dst)
	}

	buf := make([]byte, DatagramSize)
	copy(buf[0:6], dst)
	copy(buf[6:12], src)
	copy(buf[headerSize:], f.Data[:])

	status := radio.SendOK
	if _, err := tx.Write(buf); err != nil {
		logging.Warnf("udp.Driver.Send write dst=%s err=%v", dst, err)
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
	rx, tx, done := d.rx, d.tx, d.done
	d.rx, d.tx = nil, nil
	d.mu.Unlock()
	if rx == nil {
		return nil
	}
	close(done)
	err := errors.Join(rx.Close(), tx.Close())
	d.wg.Wait()
	return err
}

func (d *Driver) readLoop(conn *net.UDPConn, done <-chan struct{}) {
	defer d.wg.Done()
	buf := make([]byte, DatagramSize+64)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			logging.Warnf("udp.Driver.readLoop err=%v", err)
			continue
		}
		dst, src, payload, ok := splitDatagram(buf[:n])
		if !ok {
			logging.Debugf("udp.Driver.readLoop short datagram bytes=%d", n)
			continue
		}
		d.mu.Lock()
		own := d.addr
		fn := d.onReceive
		d.mu.Unlock()
		if radio.SameAddr(src, own) {
			continue
		}
		if !radio.SameAddr(dst, own) && !radio.SameAddr(dst, radio.Broadcast) {
			continue
		}
		if fn != nil {
			fn(src, payload)
		}
	}
}

func splitDatagram(b []byte) (dst, src net.HardwareAddr, payload []byte, ok bool) {
	if len(b) < headerSize+1 {
		return nil, nil, nil, false
	}
	dst = append(net.HardwareAddr(nil), b[0:6]...)
	src = append(net.HardwareAddr(nil), b[6:12]...)
	return dst, src, b[headerSize:], true
}

func pickAddress(override net.HardwareAddr, iface *net.Interface) (net.HardwareAddr, error) {
	if len(override) == 6 {
		return append(net.HardwareAddr(nil), override...), nil
	}
	if iface != nil && len(iface.HardwareAddr) == 6 {
		return append(net.HardwareAddr(nil), iface.HardwareAddr...), nil
	}
	addr := make(net.HardwareAddr, 6)
	if _, err := rand.Read(addr); err != nil {
		return nil, fmt.Errorf("random address: %w", err)
	}
	// locally administered, unicast
	addr[0] = (addr[0] | 0x02) &^ 0x01
	return addr, nil
}
