package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/danmuck/espblink/internal/protocol/schema"
)

// inboundEnvelope uses pointers so absent keys can be told apart from zero values.
type inboundEnvelope struct {
	V        *int            `json:"v"`
	Src      *string         `json:"src"`
	Dst      *string         `json:"dst"`
	Type     *string         `json:"type"`
	Protocol *string         `json:"protocol"`
	Payload  json.RawMessage `json:"payload"`
}

// Decode parses wire text into an Envelope. Every failure is a *ParseError.
// Unknown keys are ignored. v, src, protocol and payload may be absent;
// type and dst may not.
func Decode(data []byte) (Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Envelope{}, parseErr("empty input", ErrMalformed)
	}
	var in inboundEnvelope
	if err := json.Unmarshal(data, &in); err != nil {
		return Envelope{}, parseErr("invalid json", fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	env := Envelope{Version: Version, Protocol: Name}
	if in.V != nil {
		if *in.V != Version {
			return Envelope{}, parseErr(fmt.Sprintf("v=%d", *in.V), ErrUnsupportedVersion)
		}
	}
	if in.Protocol != nil {
		if *in.Protocol != Name {
			return Envelope{}, parseErr(fmt.Sprintf("protocol=%q", *in.Protocol), ErrProtocolMismatch)
		}
	}
	if in.Type == nil {
		return Envelope{}, parseErr("type", ErrMissingField)
	}
	env.Type = MessageType(*in.Type)
	if !env.Type.Valid() {
		return Envelope{}, parseErr(fmt.Sprintf("type=%q", *in.Type), ErrUnknownType)
	}
	if in.Dst == nil {
		return Envelope{}, parseErr("dst", ErrMissingField)
	}
	env.Destination = *in.Dst
	if in.Src != nil {
		env.Source = *in.Src
	}

	fields, err := payloadFields(in.Payload)
	if err != nil {
		return Envelope{}, err
	}
	if err := schema.Validate(string(env.Type), fields); err != nil {
		return Envelope{}, parseErr("payload", err)
	}
	payload, err := decodePayload(env.Type, fields)
	if err != nil {
		return Envelope{}, err
	}
	env.Payload = payload
	return env, nil
}

func payloadFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]json.RawMessage{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, parseErr("payload is not an object", fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

func decodePayload(t MessageType, fields map[string]json.RawMessage) (Payload, error) {
	switch t {
	case TypeRegister:
		var p RegisterPayload
		if err := decodeString(fields, schema.FieldID, &p.ID); err != nil {
			return nil, err
		}
		return p, nil
	case TypeRegisterResponse:
		var p RegisterResponsePayload
		if err := decodeString(fields, schema.FieldStatus, &p.Status); err != nil {
			return nil, err
		}
		return p, nil
	case TypeCommand:
		var p CommandPayload
		raw, ok := fields[schema.FieldLED]
		if ok && !schema.IsNull(raw) {
			v, err := decodeSwitch(raw)
			if err != nil {
				return nil, parseErr("payload.led", err)
			}
			p.LED = &v
		}
		return p, nil
	default:
		return nil, parseErr(fmt.Sprintf("type=%q", t), ErrUnknownType)
	}
}

func decodeString(fields map[string]json.RawMessage, key string, out *string) error {
	raw, ok := fields[key]
	if !ok || schema.IsNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return parseErr("payload."+key, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	return nil
}

// decodeSwitch reads a bool-as-int value: integers pass through,
// true/false map to 1/0.
func decodeSwitch(raw json.RawMessage) (int, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrMalformed, string(raw))
	}
	return int(f), nil
}
