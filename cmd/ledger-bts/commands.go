package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/btsledger/ledger-bts-go/cmd/ledger-bts/server"
	"github.com/btsledger/ledger-bts-go/internal"
	"github.com/btsledger/ledger-bts-go/pkg/address"
	"github.com/btsledger/ledger-bts-go/pkg/config"
	"github.com/btsledger/ledger-bts-go/pkg/keycache"
	"github.com/btsledger/ledger-bts-go/pkg/signdata"
	"github.com/btsledger/ledger-bts-go/pkg/utils"
)

var (
	pathFlag = &cli.StringFlag{
		Name:  "path",
		Usage: "BIP32 derivation path, e.g. 44'/194'/0'/0/1",
	}
	payloadFlag = &cli.StringFlag{
		Name:  "payload",
		Usage: "Hex encoded signing payload",
	}
	payloadFileFlag = &cli.PathFlag{
		Name:  "payload-file",
		Usage: "File holding the raw signing payload",
	}

	pubkeyCommand = &cli.Command{
		Name:  "pubkey",
		Usage: "Read a public key and its address from the device",
		Flags: []cli.Flag{
			pathFlag,
			&cli.BoolFlag{Name: "display", Usage: "Show the address on the device"},
			&cli.BoolFlag{Name: "confirm", Usage: "Show the address on the device after reading it"},
		},
		Action: pubkey,
	}
	signCommand = &cli.Command{
		Name:   "sign",
		Usage:  "Sign a payload on the device",
		Flags:  []cli.Flag{pathFlag, payloadFlag, payloadFileFlag},
		Action: sign,
	}
	addressCommand = &cli.Command{
		Name:      "address",
		Usage:     "Derive the address of an uncompressed public key",
		ArgsUsage: "<public key hex>",
		Action:    deriveAddress,
	}
	digestCommand = &cli.Command{
		Name:   "digest",
		Usage:  "Print the digest the device signs for a payload",
		Flags:  []cli.Flag{payloadFlag, payloadFileFlag},
		Action: digest,
	}
	serveCommand = &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON-RPC API and the signals websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Usage: "host:port to listen"},
		},
		Action: serve,
	}
	dumpConfigCommand = &cli.Command{
		Name:   "dumpconfig",
		Usage:  "Print the effective configuration as TOML",
		Action: dumpConfig,
	}
)

func newDeviceContext(cfg *config.Config) (*internal.DeviceContext, error) {
	opener, err := internal.OpenerFor(cfg.Transport, cfg.Reader, cfg.EmulatorSeed)
	if err != nil {
		return nil, err
	}

	keys, err := keycache.NewStore(cfg.KeyCacheFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open key cache")
	}

	return internal.NewDeviceContext(opener,
		internal.WithKeyCache(keys),
		internal.WithLockFile(cfg.LockFile),
		internal.WithLogger(zap.L().Named("device")))
}

func pathOrDefault(ctx *cli.Context, def string) string {
	if ctx.IsSet(pathFlag.Name) {
		return ctx.String(pathFlag.Name)
	}
	return def
}

func readPayload(ctx *cli.Context) ([]byte, error) {
	switch {
	case ctx.IsSet(payloadFlag.Name) && ctx.IsSet(payloadFileFlag.Name):
		return nil, errors.New("--payload and --payload-file are exclusive")
	case ctx.IsSet(payloadFileFlag.Name):
		return os.ReadFile(ctx.Path(payloadFileFlag.Name))
	case ctx.IsSet(payloadFlag.Name):
		return utils.Xtob(ctx.String(payloadFlag.Name))
	default:
		return nil, errors.New("a payload is required")
	}
}

func pubkey(ctx *cli.Context) error {
	cfg := loadedConfig(ctx)
	dc, err := newDeviceContext(cfg)
	if err != nil {
		return err
	}
	defer dc.Stop()

	result, err := dc.GetPublicKey(ctx.Context, pathOrDefault(ctx, cfg.PublicKeyPath), ctx.Bool("display"), ctx.Bool("confirm"))
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.App.Writer, "PublicKey %s\n", result.PublicKey)
	fmt.Fprintf(ctx.App.Writer, "Address %s\n", result.Address)
	if result.Warning != nil {
		fmt.Fprintf(ctx.App.ErrWriter, "WARNING: %v\n", result.Warning)
	}

	return nil
}

func sign(ctx *cli.Context) error {
	cfg := loadedConfig(ctx)

	payload, err := readPayload(ctx)
	if err != nil {
		return err
	}

	dc, err := newDeviceContext(cfg)
	if err != nil {
		return err
	}
	defer dc.Stop()

	sig, err := dc.Sign(ctx.Context, pathOrDefault(ctx, cfg.SignPath), payload)
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, utils.Btox(sig.Bytes()))
	return nil
}

func deriveAddress(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected one public key argument")
	}

	pub, err := utils.Xtob(ctx.Args().First())
	if err != nil {
		return err
	}

	addr, err := address.Derive(pub)
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, address.Format(addr))
	return nil
}

func digest(ctx *cli.Context) error {
	payload, err := readPayload(ctx)
	if err != nil {
		return err
	}

	d, err := signdata.Digest(payload)
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, utils.Btox(d[:]))
	return nil
}

func serve(ctx *cli.Context) error {
	cfg := loadedConfig(ctx)
	if ctx.IsSet("address") {
		cfg.Address = ctx.String("address")
	}

	logger := zap.L()
	srv := server.NewServer(logger)
	srv.Setup()

	if err := srv.Listen(cfg.Address); err != nil {
		return errors.Wrap(err, "failed to start server")
	}

	logger.Info("ledger-bts server started", zap.String("address", srv.Address()))
	go srv.Serve()

	waitForInterrupt()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Stop(stopCtx)

	return nil
}

func dumpConfig(ctx *cli.Context) error {
	out, err := config.Dump(loadedConfig(ctx))
	if err != nil {
		return err
	}

	_, err = ctx.App.Writer.Write(out)
	return err
}
