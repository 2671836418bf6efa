package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/game-tools/gsm-host-go/pkg/gameserver"
	"github.com/game-tools/gsm-host-go/pkg/gameserver/genericsrv"
	"github.com/game-tools/gsm-host-go/pkg/host"
	"github.com/game-tools/gsm-host-go/pkg/logging"
)

type flagOptions struct {
	Config string `long:"config" description:"path to host configuration file" required:"true"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	config, err := host.LoadConfigFromFile(opts.Config)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, cleanup, err := logging.NewZapLogger("module: gsm-host , ", logging.ZapOptions{
		Level:      config.Logging.Level,
		File:       config.Logging.File,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	logger.Infof("Using CONFIGURATION FILE: %s", opts.Config)

	registry := gameserver.NewTypeRegistry()
	if err := genericsrv.Register(registry, logger); err != nil {
		logger.Errorf("Failed to register server types: %v", err)
		os.Exit(1)
	}

	if err := host.Run(config, registry, logger); err != nil {
		logger.Errorf("Host failed: %v", err)
		os.Exit(1)
	}
}
