package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/danmuck/espblink/internal/protocol"
)

type Kind string

const (
	KindNode    Kind = "node"
	KindCentral Kind = "central"
)

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindNode, KindCentral:
		return k, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", raw)
	}
}

// Template renders the defaults for kind as a TOML document.
func Template(kind Kind) (string, error) {
	var doc any
	switch kind {
	case KindNode:
		doc = nodeFileFrom(DefaultNode())
	case KindCentral:
		doc = centralFileFrom(DefaultCentral())
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
	body, err := gotoml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", kind, err)
	}
	return fmt.Sprintf("# espblink %s config\n%s", kind, body), nil
}

func WriteTemplate(path string, kind Kind, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// ValidateFile rejects unknown keys, then loads the file to check values.
func ValidateFile(path string, kind Kind) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	var target any
	switch kind {
	case KindNode:
		target = &nodeFile{}
	case KindCentral:
		target = &centralFile{}
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
	dec := gotoml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		var strict *gotoml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w (%s):\n%s", ErrUnknownKey, path, strict.String())
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	switch kind {
	case KindNode:
		_, err = LoadNode(path)
	case KindCentral:
		_, err = LoadCentral(path)
	}
	return err
}

func nodeFileFrom(cfg Node) nodeFile {
	out := nodeFile{
		DeviceID:         cfg.DeviceID,
		CentralAddress:   protocol.FormatAddress(cfg.Central),
		RegisterInterval: cfg.Session.RegisterInterval.String(),
		PollInterval:     cfg.Session.PollInterval.String(),
		RestartDelay:     cfg.Session.RestartDelay.String(),
		EventBuffer:      cfg.Session.EventBuffer,
		Transport:        string(cfg.Radio.Transport),
		UDPGroup:         cfg.Radio.UDPGroup,
		UDPInterface:     cfg.Radio.UDPInterface,
		AdminListen:      cfg.AdminListen,
		CORSOrigins:      cfg.CORSOrigins,
		LogFile:          cfg.Log.Path,
		LogMaxSizeMB:     cfg.Log.MaxSizeMB,
	}
	if len(cfg.Address) == 6 {
		out.Address = protocol.FormatAddress(cfg.Address)
	}
	return out
}

func centralFileFrom(cfg Central) centralFile {
	return centralFile{
		Address:      protocol.FormatAddress(cfg.Address),
		Transport:    string(cfg.Radio.Transport),
		UDPGroup:     cfg.Radio.UDPGroup,
		UDPInterface: cfg.Radio.UDPInterface,
		EventBuffer:  cfg.Radio.EventBuffer,
		AdminListen:  cfg.AdminListen,
		CORSOrigins:  cfg.CORSOrigins,
		AdminToken:   cfg.AdminToken,
		AdminJWT:     cfg.AdminJWTSecret,
		AutoRegister: cfg.AutoRegister,
		LogFile:      cfg.Log.Path,
		LogMaxSizeMB: cfg.Log.MaxSizeMB,
	}
}
