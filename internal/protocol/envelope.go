package protocol

import (
	"bytes"
	"fmt"
	"net"
	"strings"

	"github.com/danmuck/espblink/internal/protocol/frame"
	"github.com/danmuck/espblink/internal/protocol/schema"
)

const (
	Version = 1
	Name    = "espnow"

	// Central is the logical destination used for node->central traffic.
	Central = "central"

	// MaxEnvelopeSize keeps one byte of the radio buffer for the terminator.
	MaxEnvelopeSize = frame.MaxPayload
)

// MessageType identifies the envelope payload variant.
type MessageType string

const (
	TypeRegister         MessageType = schema.MsgRegister
	TypeRegisterResponse MessageType = schema.MsgRegisterResponse
	TypeCommand          MessageType = schema.MsgCommand
)

func (t MessageType) Valid() bool {
	return schema.Known(string(t))
}

// Registration statuses reported by the central.
const (
	StatusRegistered = "registered"
	StatusPending    = "pending"
)

// Payload is one of RegisterPayload, RegisterResponsePayload, CommandPayload.
type Payload interface {
	MessageType() MessageType
}

// RegisterPayload announces the device identifier.
type RegisterPayload struct {
	ID string `json:"id"`
}

func (RegisterPayload) MessageType() MessageType { return TypeRegister }

// RegisterResponsePayload is the central's answer to a register envelope.
type RegisterResponsePayload struct {
	Status string `json:"status"`
}

func (RegisterResponsePayload) MessageType() MessageType { return TypeRegisterResponse }

// Registered reports whether the central accepted the registration.
func (p RegisterResponsePayload) Registered() bool {
	return p.Status == StatusRegistered
}

// CommandPayload carries actuator commands. A nil LED means the
// command did not address the LED at all.
type CommandPayload struct {
	LED *int `json:"led,omitempty"`
}

func (CommandPayload) MessageType() MessageType { return TypeCommand }

// Envelope is the message exchanged between the node and the central.
type Envelope struct {
	Version     int
	Source      string
	Destination string
	Type        MessageType
	Protocol    string
	Payload     Payload
}

// AddressedTo reports whether the destination names addr.
func (e Envelope) AddressedTo(addr net.HardwareAddr) bool {
	dst, err := ParseAddress(e.Destination)
	if err != nil {
		return false
	}
	return bytes.Equal(dst, addr)
}

// FormatAddress renders a hardware address the way the radio firmware does.
func FormatAddress(addr net.HardwareAddr) string {
	return strings.ToUpper(addr.String())
}

// ParseAddress parses a colon-separated 6-byte hardware address in any
// case. Dash and dot notations are rejected: the firmware only prints
// AA:BB:CC:DD:EE:FF.
func ParseAddress(raw string) (net.HardwareAddr, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) != 17 || strings.Count(trimmed, ":") != 5 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	addr, err := net.ParseMAC(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	if len(addr) != 6 {
		return nil, fmt.Errorf("%w: %q is not 6 bytes", ErrInvalidAddress, raw)
	}
	return addr, nil
}
