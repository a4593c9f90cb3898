package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/espblink/internal/auth"
	"github.com/danmuck/espblink/internal/central"
	"github.com/danmuck/espblink/internal/config"
	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/observability"
	"github.com/danmuck/espblink/internal/radio"
)

func main() {
	configPath := flag.String("config", "", "path to central config TOML (defaults when empty)")
	flag.Parse()

	cfg := config.DefaultCentral()
	if *configPath != "" {
		loaded, err := config.LoadCentral(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "centralsim: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	logging.ConfigureRuntime(logging.WithFileSink(cfg.Log))

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "centralsim: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Central) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapter := radio.NewAdapter(cfg.Radio.Driver(cfg.Address, nil), nil, cfg.Radio.EventBuffer)
	defer func() {
		if err := adapter.Close(); err != nil {
			logging.Warnf("centralsim.run close radio err=%v", err)
		}
	}()
	c, err := central.New(central.Options{Transport: adapter, AutoRegister: cfg.AutoRegister})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- c.Run(ctx) }()
	if cfg.AdminListen != "" {
		admin := observability.NewAdmin("central", cfg.AdminListen, cfg.CORSOrigins, func() any {
			return map[string]any{"address": adapter.Address().String(), "nodes": c.Nodes()}
		})
		c.RegisterRoutes(admin.Router(), adminGuard(cfg))
		go func() { errCh <- admin.Serve(ctx) }()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// adminGuard is nil, leaving the routes open, when no credential is set.
func adminGuard(cfg config.Central) auth.Validator {
	var guard auth.AnyOf
	if cfg.AdminToken != "" {
		guard = append(guard, auth.StaticToken{Token: cfg.AdminToken})
	}
	if cfg.AdminJWTSecret != "" {
		guard = append(guard, auth.HMACToken{Secret: []byte(cfg.AdminJWTSecret)})
	}
	if len(guard) == 0 {
		return nil
	}
	return guard
}
