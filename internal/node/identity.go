package node

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/danmuck/espblink/internal/protocol"
)

const DefaultDeviceID = "ESP_Blink"

var ErrInvalidIdentity = errors.New("node: invalid identity")

// Identity is fixed for the lifetime of the process.
type Identity struct {
	Address  net.HardwareAddr
	DeviceID string
}

func NewIdentity(addr net.HardwareAddr, deviceID string) (Identity, error) {
	if len(addr) != 6 {
		return Identity{}, fmt.Errorf("%w: address %q must be 6 bytes", ErrInvalidIdentity, addr)
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}
	return Identity{
		Address:  append(net.HardwareAddr(nil), addr...),
		DeviceID: deviceID,
	}, nil
}

// String is the wire form of the address.
func (i Identity) String() string {
	return protocol.FormatAddress(i.Address)
}
