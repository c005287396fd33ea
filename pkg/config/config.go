package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/btsledger/ledger-bts-go/pkg/ledger"
)

const (
	TransportHID      = "hid"
	TransportPCSC     = "pcsc"
	TransportEmulator = "emulator"
)

type Config struct {
	// Transport is one of "hid", "pcsc" or "emulator".
	Transport string
	// Reader selects a PC/SC reader by name substring.
	Reader string

	PublicKeyPath string
	SignPath      string

	KeyCacheFile string
	// LockFile guards the device against other processes. Empty disables it.
	LockFile string
	LogFile  string

	// Address is the listen address of the RPC server.
	Address string

	EmulatorSeed string
}

func Default() Config {
	dir := defaultDataDir()
	return Config{
		Transport:     TransportHID,
		PublicKeyPath: ledger.DefaultPublicKeyPath,
		SignPath:      ledger.DefaultSignPath,
		KeyCacheFile:  filepath.Join(dir, "keys.cbor"),
		LockFile:      filepath.Join(dir, "device.lock"),
		Address:       "127.0.0.1:0",
		EmulatorSeed:  "ledger-bts emulator",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ledger-bts")
	}
	return ".ledger-bts"
}

var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Load overlays the TOML file on cfg.
func Load(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	if err != nil {
		return err
	}

	return cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportHID, TransportPCSC, TransportEmulator:
		return nil
	}
	return errors.Errorf("unknown transport %q", c.Transport)
}

func Dump(cfg *Config) ([]byte, error) {
	return tomlSettings.Marshal(cfg)
}
