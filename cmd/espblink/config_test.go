package main

import (
	"testing"
	"time"

	"github.com/danmuck/espblink/internal/config"
	"github.com/danmuck/espblink/internal/testutil/testlog"
)

func TestExampleConfig(t *testing.T) {
	testlog.Start(t)
	if err := config.ValidateFile("ex.config.toml", config.KindNode); err != nil {
		t.Fatalf("validate example: %v", err)
	}
	cfg, err := config.LoadNode("ex.config.toml")
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if cfg.DeviceID != "ESP_Blink" || cfg.Session.RegisterInterval != 10*time.Second {
		t.Fatalf("unexpected example config: %+v", cfg)
	}
	if cfg.AdminListen != "127.0.0.1:7010" {
		t.Fatalf("unexpected admin listen: %q", cfg.AdminListen)
	}
}
