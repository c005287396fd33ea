package internal

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/btsledger/ledger-bts-go/pkg/config"
	"github.com/btsledger/ledger-bts-go/pkg/ledger"
	"github.com/btsledger/ledger-bts-go/pkg/transport/emulator"
	"github.com/btsledger/ledger-bts-go/pkg/transport/hid"
	"github.com/btsledger/ledger-bts-go/pkg/transport/pcsc"
)

// Transport is a device connection owned by a single session.
type Transport interface {
	ledger.Transport
	Close() error
}

// Opener opens a fresh Transport for every session.
type Opener struct {
	Kind string
	Open func(logger *zap.Logger) (Transport, error)
}

func HIDOpener() Opener {
	return Opener{
		Kind: config.TransportHID,
		Open: func(logger *zap.Logger) (Transport, error) {
			return hid.Open(logger)
		},
	}
}

func PCSCOpener(reader string) Opener {
	return Opener{
		Kind: config.TransportPCSC,
		Open: func(logger *zap.Logger) (Transport, error) {
			return pcsc.Open(reader, logger)
		},
	}
}

type sharedEmulator struct {
	*emulator.Emulator
}

func (sharedEmulator) Close() error {
	return nil
}

// EmulatorOpener hands the same emulator to every session. Closing a
// session does not close the emulator.
func EmulatorOpener(emu *emulator.Emulator) Opener {
	return Opener{
		Kind: config.TransportEmulator,
		Open: func(*zap.Logger) (Transport, error) {
			return sharedEmulator{emu}, nil
		},
	}
}

// OpenerFor builds the opener selected by kind.
func OpenerFor(kind, reader, seed string) (Opener, error) {
	switch kind {
	case config.TransportHID:
		return HIDOpener(), nil
	case config.TransportPCSC:
		return PCSCOpener(reader), nil
	case config.TransportEmulator:
		return EmulatorOpener(emulator.New([]byte(seed))), nil
	default:
		return Opener{}, errors.Errorf("unknown transport %q", kind)
	}
}
