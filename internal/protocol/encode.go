package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/danmuck/espblink/internal/protocol/schema"
)

// wireEnvelope fixes the on-air key order.
type wireEnvelope struct {
	V        int             `json:"v"`
	Src      string          `json:"src"`
	Dst      string          `json:"dst"`
	Type     MessageType     `json:"type"`
	Protocol string          `json:"protocol"`
	Payload  json.RawMessage `json:"payload"`
}

// Encode renders env as wire text. It never truncates: an encoding larger
// than MaxEnvelopeSize fails with ErrEnvelopeTooLarge. Anything Encode
// accepts, Decode accepts and reads back to the same values.
func Encode(env Envelope) ([]byte, error) {
	if err := validateOutbound(&env); err != nil {
		return nil, err
	}
	payload, err := encodePayload(env)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(wireEnvelope{
		V:        env.Version,
		Src:      env.Source,
		Dst:      env.Destination,
		Type:     env.Type,
		Protocol: env.Protocol,
		Payload:  payload,
	})
	if err != nil {
		return nil, err
	}
	if len(out) > MaxEnvelopeSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrEnvelopeTooLarge, len(out), MaxEnvelopeSize)
	}
	return out, nil
}

func validateOutbound(env *Envelope) error {
	if env.Version == 0 {
		env.Version = Version
	}
	if env.Protocol == "" {
		env.Protocol = Name
	}
	if env.Version != Version {
		return fmt.Errorf("%w: v=%d", ErrUnsupportedVersion, env.Version)
	}
	if env.Protocol != Name {
		return fmt.Errorf("%w: %q", ErrProtocolMismatch, env.Protocol)
	}
	if !env.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if strings.TrimSpace(env.Destination) == "" {
		return fmt.Errorf("%w: missing dst", ErrInvalidEnvelope)
	}
	if env.Payload == nil {
		if env.Type != TypeCommand {
			return fmt.Errorf("%w: type=%s requires a payload", ErrInvalidEnvelope, env.Type)
		}
		env.Payload = CommandPayload{}
	}
	if env.Payload.MessageType() != env.Type {
		return fmt.Errorf("%w: type=%s payload=%s", ErrPayloadMismatch, env.Type, env.Payload.MessageType())
	}
	for name, text := range map[string]string{
		"src":     env.Source,
		"dst":     env.Destination,
		"payload": payloadText(env.Payload),
	} {
		if !isASCII(text) {
			return fmt.Errorf("%w: %s is not ascii", ErrInvalidEnvelope, name)
		}
	}
	return nil
}

// encodePayload marshals the payload and runs it through the inbound checks
// so the peer never receives something it would reject.
func encodePayload(env Envelope) (json.RawMessage, error) {
	raw, err := json.Marshal(env.Payload)
	if err != nil {
		return nil, err
	}
	fields, err := payloadFields(raw)
	if err == nil {
		if verr := schema.Validate(string(env.Type), fields); verr != nil {
			err = verr
		} else {
			_, err = decodePayload(env.Type, fields)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalidEnvelope, err)
	}
	return raw, nil
}

func payloadText(p Payload) string {
	switch v := p.(type) {
	case RegisterPayload:
		return v.ID
	case RegisterResponsePayload:
		return v.Status
	default:
		return ""
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
