package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/protocol"
	"github.com/danmuck/espblink/internal/radio/udp"
)

// Central is the resolved centralsim configuration.
type Central struct {
	Address     net.HardwareAddr
	Radio       RadioConfig
	AdminListen string
	CORSOrigins []string

	// AdminToken guards the approve and command routes when set.
	AdminToken string

	// AdminJWTSecret, when set, also accepts HS256 bearer tokens.
	AdminJWTSecret string

	// AutoRegister answers every register with "registered".
	AutoRegister bool

	Log logging.FileSink
}

func DefaultCentral() Central {
	return Central{
		Address: append(net.HardwareAddr(nil), DefaultCentralAddress...),
		Radio: RadioConfig{
			Transport:   TransportUDP,
			UDPGroup:    udp.DefaultGroup,
			EventBuffer: 64,
		},
		AdminListen:  "127.0.0.1:7020",
		AutoRegister: true,
		Log:          logging.FileSink{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 7},
	}
}

type centralFile struct {
	Address      string   `toml:"address"`
	Transport    string   `toml:"transport"`
	UDPGroup     string   `toml:"udp_group"`
	UDPInterface string   `toml:"udp_interface,omitempty"`
	EventBuffer  int      `toml:"event_buffer"`
	AdminListen  string   `toml:"admin_listen"`
	CORSOrigins  []string `toml:"cors_origins,omitempty"`
	AdminToken   string   `toml:"admin_token,omitempty"`
	AdminJWT     string   `toml:"admin_jwt_secret,omitempty"`
	AutoRegister bool     `toml:"auto_register"`
	LogFile      string   `toml:"log_file,omitempty"`
	LogMaxSizeMB int      `toml:"log_max_size_mb,omitempty"`
}

func LoadCentral(path string) (Central, error) {
	cfg := DefaultCentral()

	var raw centralFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Central{}, fmt.Errorf("load central config: %w", err)
	}
	if meta.IsDefined("address") {
		addr, err := protocol.ParseAddress(strings.TrimSpace(raw.Address))
		if err != nil {
			return Central{}, fmt.Errorf("%w: address: %v", ErrInvalidConfig, err)
		}
		cfg.Address = addr
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
	if meta.IsDefined("event_buffer") {
		cfg.Radio.EventBuffer = raw.EventBuffer
	}
	if meta.IsDefined("admin_listen") {
		cfg.AdminListen = strings.TrimSpace(raw.AdminListen)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CORSOrigins)
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("admin_jwt_secret") {
		cfg.AdminJWTSecret = strings.TrimSpace(raw.AdminJWT)
	}
	if meta.IsDefined("auto_register") {
		cfg.AutoRegister = raw.AutoRegister
	}
	if meta.IsDefined("log_file") {
		cfg.Log.Path = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("log_max_size_mb") {
		cfg.Log.MaxSizeMB = raw.LogMaxSizeMB
	}
	if err := cfg.Validate(); err != nil {
		return Central{}, err
	}
	return cfg, nil
}

func (c Central) Validate() error {
	if len(c.Address) != 6 {
		return fmt.Errorf("%w: address required", ErrInvalidConfig)
	}
	return c.Radio.validate()
}
