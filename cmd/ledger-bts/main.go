package main

import (
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/btsledger/ledger-bts-go/internal/logging"
	"github.com/btsledger/ledger-bts-go/pkg/config"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	transportFlag = &cli.StringFlag{
		Name:  "transport",
		Usage: "Device transport: hid, pcsc or emulator",
	}
	readerFlag = &cli.StringFlag{
		Name:  "reader",
		Usage: "PC/SC reader name substring",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Write JSON logs to this file instead of stderr",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log exchanged frames",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "ledger-bts",
		Usage: "Read keys from and sign with the BTS application of a Ledger device",
		Flags: []cli.Flag{
			configFileFlag,
			transportFlag,
			readerFlag,
			logFileFlag,
			verboseFlag,
		},
		Before: setup,
		After: func(*cli.Context) error {
			_ = zap.L().Sync()
			return nil
		},
		Commands: []*cli.Command{
			pubkeyCommand,
			signCommand,
			addressCommand,
			digestCommand,
			serveCommand,
			dumpConfigCommand,
		},
	}
}

// setup loads the configuration, applies the global flags on top of it and
// installs the logger.
func setup(ctx *cli.Context) error {
	cfg := config.Default()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := config.Load(file, &cfg); err != nil {
			return err
		}
	}

	if ctx.IsSet(transportFlag.Name) {
		cfg.Transport = ctx.String(transportFlag.Name)
	}
	if ctx.IsSet(readerFlag.Name) {
		cfg.Reader = ctx.String(readerFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		cfg.LogFile = ctx.String(logFileFlag.Name)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.BuildLogger(cfg.LogFile, ctx.Bool(verboseFlag.Name))
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)

	ctx.App.Metadata = map[string]interface{}{configKey: &cfg}
	return nil
}

const configKey = "config"

func loadedConfig(ctx *cli.Context) *config.Config {
	return ctx.App.Metadata[configKey].(*config.Config)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// waitForInterrupt blocks until SIGINT or SIGTERM.
func waitForInterrupt() {
	ch := make(chan os.Signal, 1)
	ossignal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer ossignal.Stop(ch)

	<-ch
}
