package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/espblink/internal/testutil/testlog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadNodeDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadNode(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DeviceID != "ESP_Blink" {
		t.Fatalf("unexpected device id: %q", cfg.DeviceID)
	}
	if cfg.Central.String() != "cc:7b:5c:4f:98:80" {
		t.Fatalf("unexpected central: %s", cfg.Central)
	}
	if cfg.Session.RegisterInterval != 10*time.Second || cfg.Session.PollInterval != 100*time.Millisecond {
		t.Fatalf("unexpected timing: %+v", cfg.Session)
	}
	if cfg.Radio.Transport != TransportUDP || cfg.Address != nil || cfg.AdminListen != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadNodeOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
device_id = "kitchen"
address = "aa:bb:cc:dd:ee:ff"
central_address = "11:22:33:44:55:66"
register_interval = "3s"
poll_interval = "50ms"
restart_delay = "2s"
event_buffer = 8
transport = "STUB"
admin_listen = "127.0.0.1:7010"
cors_origins = ["http://localhost:3000", " "]
log_file = "/tmp/espblink.log"
log_max_size_mb = 5
`)
	cfg, err := LoadNode(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DeviceID != "kitchen" || cfg.Address.String() != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("unexpected identity: %+v", cfg)
	}
	if cfg.Central.String() != "11:22:33:44:55:66" {
		t.Fatalf("unexpected central: %s", cfg.Central)
	}
	if cfg.Session.RegisterInterval != 3*time.Second || cfg.Session.PollInterval != 50*time.Millisecond {
		t.Fatalf("unexpected timing: %+v", cfg.Session)
	}
	if cfg.Session.RestartDelay != 2*time.Second || cfg.Session.EventBuffer != 8 || cfg.Radio.EventBuffer != 8 {
		t.Fatalf("unexpected session: %+v", cfg.Session)
	}
	if cfg.Radio.Transport != TransportStub {
		t.Fatalf("unexpected transport: %q", cfg.Radio.Transport)
	}
	if cfg.AdminListen != "127.0.0.1:7010" || len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected admin: %q %+v", cfg.AdminListen, cfg.CORSOrigins)
	}
	if cfg.Log.Path != "/tmp/espblink.log" || cfg.Log.MaxSizeMB != 5 {
		t.Fatalf("unexpected log sink: %+v", cfg.Log)
	}
}

func TestLoadNodeRegisterIntervalMillis(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadNode(writeConfig(t, "register_interval_ms = 1200\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Session.RegisterInterval != 1200*time.Millisecond {
		t.Fatalf("unexpected interval: %v", cfg.Session.RegisterInterval)
	}
}

func TestLoadNodeRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"bad duration":  `register_interval = "abc"`,
		"zero interval": `register_interval = "0s"`,
		"bad central":   `central_address = "central"`,
		"bad address":   `address = "aa:bb"`,
		"bad transport": `transport = "lora"`,
		"empty group":   `udp_group = ""`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadNode(writeConfig(t, content)); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
	if _, err := LoadNode(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestLoadCentral(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadCentral(writeConfig(t, `
address = "cc:7b:5c:4f:98:81"
transport = "stub"
auto_register = false
admin_token = " s3cret "
admin_jwt_secret = "jwt-secret"
`))
	if err != nil {
		t.Fatalf("load central: %v", err)
	}
	if cfg.Address.String() != "cc:7b:5c:4f:98:81" || cfg.AutoRegister || cfg.Radio.Transport != TransportStub {
		t.Fatalf("unexpected central config: %+v", cfg)
	}
	if cfg.AdminToken != "s3cret" || cfg.AdminJWTSecret != "jwt-secret" {
		t.Fatalf("unexpected admin token: %q", cfg.AdminToken)
	}
	if cfg.AdminListen != "127.0.0.1:7020" {
		t.Fatalf("expected default admin listen, got %q", cfg.AdminListen)
	}
}

func TestTemplatesRoundTripThroughLoaders(t *testing.T) {
	testlog.Start(t)
	for _, kind := range []Kind{KindNode, KindCentral} {
		body, err := Template(kind)
		if err != nil {
			t.Fatalf("template %s: %v", kind, err)
		}
		if !strings.HasPrefix(body, "# espblink "+string(kind)) {
			t.Fatalf("unexpected template header: %q", body)
		}
		path := filepath.Join(t.TempDir(), string(kind)+".toml")
		if err := WriteTemplate(path, kind, false); err != nil {
			t.Fatalf("write template: %v", err)
		}
		if err := WriteTemplate(path, kind, false); err == nil {
			t.Fatalf("expected refusal to overwrite")
		}
		if err := ValidateFile(path, kind); err != nil {
			t.Fatalf("validate %s template: %v", kind, err)
		}
	}
	cfg, err := LoadNode(filepath.Join(t.TempDir(), "none.toml"))
	if err == nil {
		t.Fatalf("expected error, got %+v", cfg)
	}
}

func TestValidateFileRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, "device_id = \"x\"\nheartbeat = \"5s\"\n")
	if err := ValidateFile(path, KindNode); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if _, err := ParseKind("mirage"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestRadioDriverSelection(t *testing.T) {
	testlog.Start(t)
	addr := DefaultCentralAddress
	stubCfg := RadioConfig{Transport: TransportStub, EventBuffer: 1}
	if d := stubCfg.Driver(addr, nil); d.Address().String() != addr.String() {
		t.Fatalf("stub driver should carry the configured address, got %s", d.Address())
	}
	udpCfg := DefaultNode().Radio
	if d := udpCfg.Driver(addr, nil); d.Address().String() != addr.String() {
		t.Fatalf("udp driver should report the override address, got %s", d.Address())
	}
}
