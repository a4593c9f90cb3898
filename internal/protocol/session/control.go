package session

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/danmuck/espblink/internal/protocol"
)

var (
	ErrInvalidRegistration         = errors.New("session: invalid registration")
	ErrInvalidRegistrationResponse = errors.New("session: invalid registration response")
	ErrInvalidCommand              = errors.New("session: invalid command")
)

// Registration is the node->central session-start message.
type Registration struct {
	Address  net.HardwareAddr
	DeviceID string
}

func (r Registration) Validate() error {
	if len(r.Address) != 6 {
		return fmt.Errorf("%w: missing src address", ErrInvalidRegistration)
	}
	if strings.TrimSpace(r.DeviceID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRegistration)
	}
	return nil
}

// Envelope addresses the registration to the logical central.
func (r Registration) Envelope() protocol.Envelope {
	return protocol.Envelope{
		Version:     protocol.Version,
		Source:      protocol.FormatAddress(r.Address),
		Destination: protocol.Central,
		Type:        protocol.TypeRegister,
		Protocol:    protocol.Name,
		Payload:     protocol.RegisterPayload{ID: r.DeviceID},
	}
}

func EncodeRegistration(reg Registration) ([]byte, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return protocol.Encode(reg.Envelope())
}

// RegistrationFrom extracts a registration from a register envelope.
func RegistrationFrom(env protocol.Envelope) (Registration, error) {
	if env.Type != protocol.TypeRegister {
		return Registration{}, fmt.Errorf("%w: unexpected type %q", ErrInvalidRegistration, env.Type)
	}
	p, ok := env.Payload.(protocol.RegisterPayload)
	if !ok {
		return Registration{}, fmt.Errorf("%w: missing payload", ErrInvalidRegistration)
	}
	addr, err := protocol.ParseAddress(env.Source)
	if err != nil {
		return Registration{}, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}
	reg := Registration{Address: addr, DeviceID: p.ID}
	if err := reg.Validate(); err != nil {
		return Registration{}, err
	}
	return reg, nil
}

// RegistrationResponse is the central->node answer.
type RegistrationResponse struct {
	Central net.HardwareAddr
	Node    net.HardwareAddr
	Status  string
}

func (r RegistrationResponse) Validate() error {
	if len(r.Node) != 6 {
		return fmt.Errorf("%w: missing dst address", ErrInvalidRegistrationResponse)
	}
	if strings.TrimSpace(r.Status) == "" {
		return fmt.Errorf("%w: missing status", ErrInvalidRegistrationResponse)
	}
	return nil
}

func EncodeRegistrationResponse(resp RegistrationResponse) ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	env := protocol.Envelope{
		Destination: protocol.FormatAddress(resp.Node),
		Type:        protocol.TypeRegisterResponse,
		Payload:     protocol.RegisterResponsePayload{Status: resp.Status},
	}
	if len(resp.Central) == 6 {
		env.Source = protocol.FormatAddress(resp.Central)
	}
	return protocol.Encode(env)
}

// AcceptedFor reports whether env is a register_response addressed to own
// that carries the "registered" status.
func AcceptedFor(env protocol.Envelope, own net.HardwareAddr) bool {
	if env.Type != protocol.TypeRegisterResponse || !env.AddressedTo(own) {
		return false
	}
	p, ok := env.Payload.(protocol.RegisterResponsePayload)
	return ok && p.Registered()
}

// Command is a central->node actuator command.
type Command struct {
	Central net.HardwareAddr
	Node    net.HardwareAddr
	LED     *int
}

func EncodeCommand(cmd Command) ([]byte, error) {
	if len(cmd.Node) != 6 {
		return nil, fmt.Errorf("%w: missing dst address", ErrInvalidCommand)
	}
	env := protocol.Envelope{
		Destination: protocol.FormatAddress(cmd.Node),
		Type:        protocol.TypeCommand,
		Payload:     protocol.CommandPayload{LED: cmd.LED},
	}
	if len(cmd.Central) == 6 {
		env.Source = protocol.FormatAddress(cmd.Central)
	}
	return protocol.Encode(env)
}
