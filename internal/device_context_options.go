package internal

import (
	"fmt"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/btsledger/ledger-bts-go/internal/logging"
	"github.com/btsledger/ledger-bts-go/pkg/keycache"
)

type Option func(*DeviceContext)

func WithKeyCache(store *keycache.Store) Option {
	return func(d *DeviceContext) {
		d.keys = store
	}
}

// WithLockFile serializes device access across processes through an
// advisory lock on path.
func WithLockFile(path string) Option {
	return func(d *DeviceContext) {
		if path == "" {
			d.lock = nil
			return
		}
		d.lock = flock.New(path)
	}
}

func WithLogging(enabled bool, filePath string) Option {
	return func(d *DeviceContext) {
		var logger *zap.Logger

		defer func() {
			zap.ReplaceGlobals(logger)
			d.logger = zap.L().Named("device")
		}()

		if !enabled {
			logger = zap.NewNop()
			return
		}

		var err error
		logger, err = logging.BuildLogger(filePath, true)
		if err != nil {
			fmt.Printf("failed to initialize log: %v\n", err)
			logger = zap.NewNop()
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *DeviceContext) {
		d.logger = logger
	}
}
