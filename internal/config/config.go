package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/node"
	"github.com/danmuck/espblink/internal/protocol"
	"github.com/danmuck/espblink/internal/protocol/session"
	"github.com/danmuck/espblink/internal/radio/udp"
)

var (
	ErrInvalidConfig = errors.New("config: invalid config")
	ErrUnknownKey    = errors.New("config: unknown key")
)

// DefaultCentralAddress is the central the board firmware was flashed with.
var DefaultCentralAddress = net.HardwareAddr{0xcc, 0x7b, 0x5c, 0x4f, 0x98, 0x80}

type Transport string

const (
	TransportUDP  Transport = "udp"
	TransportStub Transport = "stub"
)

type RadioConfig struct {
	Transport    Transport
	UDPGroup     string
	UDPInterface string
	EventBuffer  int
}

// Node is the resolved espblink configuration.
type Node struct {
	DeviceID string
	// Address overrides the radio's own address when set.
	Address     net.HardwareAddr
	Central     net.HardwareAddr
	Session     session.Config
	Radio       RadioConfig
	AdminListen string
	CORSOrigins []string
	Log         logging.FileSink
}

func DefaultNode() Node {
	sess := session.DefaultConfig()
	return Node{
		DeviceID: node.DefaultDeviceID,
		Central:  append(net.HardwareAddr(nil), DefaultCentralAddress...),
		Session:  sess,
		Radio: RadioConfig{
			Transport:   TransportUDP,
			UDPGroup:    udp.DefaultGroup,
			EventBuffer: sess.EventBuffer,
		},
		Log: logging.FileSink{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 7},
	}
}

type nodeFile struct {
	DeviceID           string   `toml:"device_id"`
	Address            string   `toml:"address,omitempty"`
	CentralAddress     string   `toml:"central_address"`
	RegisterInterval   string   `toml:"register_interval"`
	RegisterIntervalMS int64    `toml:"register_interval_ms,omitempty"`
	PollInterval       string   `toml:"poll_interval"`
	RestartDelay       string   `toml:"restart_delay"`
	EventBuffer        int      `toml:"event_buffer"`
	Transport          string   `toml:"transport"`
	UDPGroup           string   `toml:"udp_group"`
	UDPInterface       string   `toml:"udp_interface,omitempty"`
	AdminListen        string   `toml:"admin_listen,omitempty"`
	CORSOrigins        []string `toml:"cors_origins,omitempty"`
	LogFile            string   `toml:"log_file,omitempty"`
	LogMaxSizeMB       int      `toml:"log_max_size_mb,omitempty"`
}

// LoadNode reads a node TOML file over DefaultNode. Only keys present in the
// file override defaults.
func LoadNode(path string) (Node, error) {
	cfg := DefaultNode()

	var raw nodeFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Node{}, fmt.Errorf("load node config: %w", err)
	}
	if err := applyNode(&cfg, raw, meta); err != nil {
		return Node{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Node{}, err
	}
	logging.Debugf("config.LoadNode path=%s device_id=%q transport=%s", path, cfg.DeviceID, cfg.Radio.Transport)
	return cfg, nil
}

func applyNode(cfg *Node, raw nodeFile, meta toml.MetaData) error {
	if meta.IsDefined("device_id") {
		if id := strings.TrimSpace(raw.DeviceID); id != "" {
			cfg.DeviceID = id
		}
	}
	if meta.IsDefined("address") {
		addr, err := parseOptionalAddress("address", raw.Address)
		if err != nil {
			return err
		}
		cfg.Address = addr
	}
	if meta.IsDefined("central_address") {
		addr, err := protocol.ParseAddress(strings.TrimSpace(raw.CentralAddress))
		if err != nil {
			return fmt.Errorf("%w: central_address: %v", ErrInvalidConfig, err)
		}
		cfg.Central = addr
	}
	if meta.IsDefined("register_interval") {
		d, err := parseDuration("register_interval", raw.RegisterInterval)
		if err != nil {
			return err
		}
		cfg.Session.RegisterInterval = d
	}
	if meta.IsDefined("register_interval_ms") {
		cfg.Session.RegisterInterval = time.Duration(raw.RegisterIntervalMS) * time.Millisecond
	}
	if meta.IsDefined("poll_interval") {
		d, err := parseDuration("poll_interval", raw.PollInterval)
		if err != nil {
			return err
		}
		cfg.Session.PollInterval = d
	}
	if meta.IsDefined("restart_delay") {
		d, err := parseDuration("restart_delay", raw.RestartDelay)
		if err != nil {
			return err
		}
		cfg.Session.RestartDelay = d
	}
	if meta.IsDefined("event_buffer") {
		cfg.Session.EventBuffer = raw.EventBuffer
		cfg.Radio.EventBuffer = raw.EventBuffer
	}
	if meta.IsDefined("transport") {
		cfg.Radio.Transport = Transport(strings.ToLower(strings.TrimSpace(raw.Transport)))
	}
	if meta.IsDefined("udp_group") {
		cfg.Radio.UDPGroup = strings.TrimSpace(raw.UDPGroup)
	}
	if meta.IsDefined("udp_interface") {
		cfg.Radio.UDPInterface = strings.TrimSpace(raw.UDPInterface)
	}
	if meta.IsDefined("admin_listen") {
		cfg.AdminListen = strings.TrimSpace(raw.AdminListen)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CORSOrigins)
	}
	if meta.IsDefined("log_file") {
		cfg.Log.Path = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("log_max_size_mb") {
		cfg.Log.MaxSizeMB = raw.LogMaxSizeMB
	}
	return nil
}

func (c Node) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(c.Central) != 6 {
		return fmt.Errorf("%w: central_address required", ErrInvalidConfig)
	}
	if c.Address != nil && len(c.Address) != 6 {
		return fmt.Errorf("%w: address must be 6 bytes", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DeviceID) == "" {
		return fmt.Errorf("%w: device_id required", ErrInvalidConfig)
	}
	return c.Radio.validate()
}

func (r RadioConfig) validate() error {
	switch r.Transport {
	case TransportUDP:
		if r.UDPGroup == "" {
			return fmt.Errorf("%w: udp_group required for udp transport", ErrInvalidConfig)
		}
	case TransportStub:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, r.Transport)
	}
	if r.EventBuffer <= 0 {
		return fmt.Errorf("%w: event_buffer must be positive", ErrInvalidConfig)
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, key, err)
	}
	return d, nil
}

func parseOptionalAddress(key, raw string) (net.HardwareAddr, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	addr, err := protocol.ParseAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return addr, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
