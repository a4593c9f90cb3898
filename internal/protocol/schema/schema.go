package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/danmuck/espblink/internal/logging"
)

// Message types from the envelope contract.
const (
	MsgRegister         = "register"
	MsgRegisterResponse = "register_response"
	MsgCommand          = "command"
)

// Payload keys from the envelope contract.
const (
	FieldID     = "id"
	FieldStatus = "status"
	FieldLED    = "led"
)

// Kind is the JSON shape accepted for a payload key.
type Kind uint8

const (
	KindString Kind = iota + 1
	// KindSwitch is a bool-as-int: a JSON number or boolean.
	KindSwitch
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

type Requirement struct {
	Key      string
	Kind     Kind
	Required bool
}

type ValidationError struct {
	MessageType string
	Field       string
	Reason      string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: type=%s: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: type=%s field=%s: %s", e.MessageType, e.Field, e.Reason)
}

var requirements = map[string][]Requirement{
	MsgRegister: {
		{Key: FieldID, Kind: KindString, Required: true},
	},
	MsgRegisterResponse: {
		{Key: FieldStatus, Kind: KindString, Required: true},
	},
	MsgCommand: {
		{Key: FieldLED, Kind: KindSwitch},
	},
}

// Known reports whether messageType is part of the contract.
func Known(messageType string) bool {
	_, ok := requirements[messageType]
	return ok
}

// Requirements returns the declared payload keys for messageType.
func Requirements(messageType string) []Requirement {
	reqs := requirements[messageType]
	out := make([]Requirement, len(reqs))
	copy(out, reqs)
	return out
}

// Validate enforces required keys and key kinds for a message type.
// Unknown keys are ignored.
func Validate(messageType string, fields map[string]json.RawMessage) error {
	reqs, ok := requirements[messageType]
	if !ok {
		logging.Debugf("schema.Validate unknown type=%q", messageType)
		return ValidationError{MessageType: messageType, Reason: "unknown message type"}
	}
	for _, req := range reqs {
		raw, found := fields[req.Key]
		if !found || IsNull(raw) {
			if req.Required {
				logging.Debugf("schema.Validate missing field type=%s field=%s", messageType, req.Key)
				return ValidationError{MessageType: messageType, Field: req.Key, Reason: "missing required field"}
			}
			continue
		}
		if got := kindOf(raw); !req.Kind.accepts(got) {
			logging.Debugf(
				"schema.Validate kind mismatch type=%s field=%s got=%s want=%s",
				messageType,
				req.Key,
				got,
				req.Kind,
			)
			return ValidationError{MessageType: messageType, Field: req.Key, Reason: "kind mismatch"}
		}
	}
	return nil
}

// IsNull reports whether raw is the JSON null literal.
func IsNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

type jsonKind uint8

const (
	jsonOther jsonKind = iota
	jsonString
	jsonNumber
	jsonBool
)

func (k jsonKind) String() string {
	switch k {
	case jsonString:
		return "string"
	case jsonNumber:
		return "number"
	case jsonBool:
		return "bool"
	default:
		return "other"
	}
}

func kindOf(raw json.RawMessage) jsonKind {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return jsonOther
	}
	switch c := trimmed[0]; {
	case c == '"':
		return jsonString
	case c == '-' || (c >= '0' && c <= '9'):
		return jsonNumber
	case c == 't' || c == 'f':
		return jsonBool
	default:
		return jsonOther
	}
}

func (k Kind) accepts(got jsonKind) bool {
	switch k {
	case KindString:
		return got == jsonString
	case KindSwitch:
		return got == jsonNumber || got == jsonBool
	default:
		return false
	}
}
