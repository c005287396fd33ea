package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0600))
	return file
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, TransportHID, cfg.Transport)
	assert.Equal(t, "48'/1'/1'/0'/0'", cfg.PublicKeyPath)
	assert.Equal(t, "44'/194'/0'/0/1", cfg.SignPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlay(t *testing.T) {
	file := writeConfig(t, `
Transport = "emulator"
SignPath = "44'/194'/1'/0/0"
EmulatorSeed = "seed"
`)

	cfg := Default()
	require.NoError(t, Load(file, &cfg))

	assert.Equal(t, TransportEmulator, cfg.Transport)
	assert.Equal(t, "44'/194'/1'/0/0", cfg.SignPath)
	assert.Equal(t, "seed", cfg.EmulatorSeed)
	assert.Equal(t, "48'/1'/1'/0'/0'", cfg.PublicKeyPath)
}

func TestLoadUnknownField(t *testing.T) {
	file := writeConfig(t, `Transprt = "hid"`)

	cfg := Default()
	err := Load(file, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Transprt")
}

func TestLoadUnknownTransport(t *testing.T) {
	file := writeConfig(t, `Transport = "bluetooth"`)

	cfg := Default()
	assert.Error(t, Load(file, &cfg))
}

func TestDumpLoad(t *testing.T) {
	cfg := Default()
	cfg.Reader = "Nano"

	out, err := Dump(&cfg)
	require.NoError(t, err)

	loaded := Config{}
	require.NoError(t, Load(writeConfig(t, string(out)), &loaded))
	assert.Equal(t, cfg, loaded)
}
