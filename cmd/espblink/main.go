package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/espblink/internal/central"
	"github.com/danmuck/espblink/internal/config"
	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/node"
	"github.com/danmuck/espblink/internal/observability"
	"github.com/danmuck/espblink/internal/radio"
	"github.com/danmuck/espblink/internal/radio/stub"
)

// stubNodeAddress is used with the stub transport when no address is set.
var stubNodeAddress = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}

func main() {
	configPath := flag.String("config", "", "path to node config TOML (defaults when empty)")
	flag.Parse()

	cfg := config.DefaultNode()
	if *configPath != "" {
		loaded, err := config.LoadNode(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "espblink: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	logging.ConfigureRuntime(logging.WithFileSink(cfg.Log))

	if err := run(cfg); err != nil {
		if errors.Is(err, radio.ErrInitFailure) {
			restart(cfg.Session.RestartDelay, err)
		}
		fmt.Fprintf(os.Stderr, "espblink: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Node) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var air *stub.Air
	addr := cfg.Address
	if cfg.Radio.Transport == config.TransportStub {
		air = stub.NewAir()
		if addr == nil {
			addr = stubNodeAddress
		}
		if err := startLocalCentral(ctx, cfg, air); err != nil {
			return err
		}
	}

	adapter := radio.NewAdapter(cfg.Radio.Driver(addr, air), cfg.Central, cfg.Radio.EventBuffer)
	if err := adapter.Start(); err != nil {
		return err
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			logging.Warnf("espblink.run close radio err=%v", err)
		}
	}()

	id, err := node.NewIdentity(adapter.Address(), cfg.DeviceID)
	if err != nil {
		return err
	}
	led := node.NewLED()
	led.OnSet(func(level node.Level) {
		logging.Infof("espblink.led level=%s", level)
	})
	n, err := node.New(node.Options{
		Identity: id,
		Central:  cfg.Central,
		Sender:   adapter,
		Actuator: led,
		Session:  cfg.Session,
	})
	if err != nil {
		return err
	}

	if cfg.AdminListen != "" {
		admin := observability.NewAdmin(id.String(), cfg.AdminListen, cfg.CORSOrigins, func() any {
			return n.Snapshot()
		})
		go func() {
			if err := admin.Serve(ctx); err != nil {
				logging.Errf("espblink.run admin err=%v", err)
			}
		}()
	}
	return node.NewRuntime(n, adapter).Run(ctx)
}

// startLocalCentral answers registrations in-process for the stub transport.
func startLocalCentral(ctx context.Context, cfg config.Node, air *stub.Air) error {
	cAdapter := radio.NewAdapter(air.Attach(cfg.Central), nil, cfg.Radio.EventBuffer)
	c, err := central.New(central.Options{Transport: cAdapter, AutoRegister: true})
	if err != nil {
		return err
	}
	if err := cAdapter.Start(); err != nil {
		return err
	}
	go func() {
		if err := c.Run(ctx); err != nil {
			logging.Errf("espblink.startLocalCentral err=%v", err)
		}
	}()
	return nil
}

// restart re-executes the binary in place, the host analogue of a board
// reset after the radio stack fails to come up.
func restart(delay time.Duration, cause error) {
	logging.Errf("espblink.restart in=%s cause=%v", delay, cause)
	time.Sleep(delay)
	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "espblink: restart: %v\n", err)
		os.Exit(1)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "espblink: restart: %v\n", err)
		os.Exit(1)
	}
}
