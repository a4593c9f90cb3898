package main

import (
	"flag"
	"os"

	"github.com/danmuck/espblink/internal/config"
	"github.com/danmuck/espblink/internal/logging"
)

func main() {
	kindFlag := flag.String("kind", "node", "config kind: node|central")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()
	logging.ConfigureRuntime()

	kind, err := config.ParseKind(*kindFlag)
	if err != nil {
		logging.Errf("configgen %v", err)
		os.Exit(1)
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(kind)
		}
		if err := config.ValidateFile(path, kind); err != nil {
			logging.Errf("configgen validate kind=%s path=%s err=%v", kind, path, err)
			os.Exit(1)
		}
		logging.Infof("configgen validated kind=%s path=%s", kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(kind)
	}
	if err := config.WriteTemplate(target, kind, *force); err != nil {
		logging.Errf("configgen write kind=%s path=%s err=%v", kind, target, err)
		os.Exit(1)
	}
	logging.Infof("configgen wrote kind=%s path=%s", kind, target)
}

func defaultPath(kind config.Kind) string {
	if kind == config.KindCentral {
		return "cmd/centralsim/config.toml"
	}
	return "cmd/espblink/config.toml"
}
