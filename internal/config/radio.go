package config

import (
	"net"

	"github.com/danmuck/espblink/internal/radio"
	"github.com/danmuck/espblink/internal/radio/stub"
	"github.com/danmuck/espblink/internal/radio/udp"
)

// Driver builds the configured radio driver. Stub drivers are attached to air
// when one is given, so in-process peers can reach each other.
func (r RadioConfig) Driver(addr net.HardwareAddr, air *stub.Air) radio.Driver {
	switch r.Transport {
	case TransportStub:
		if air != nil {
			return air.Attach(addr)
		}
		return stub.New(addr)
	default:
		return udp.New(udp.Config{
			Group:     r.UDPGroup,
			Interface: r.UDPInterface,
			Address:   addr,
		})
	}
}
