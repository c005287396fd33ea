package internal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/btsledger/ledger-bts-go/pkg/derivationpath"
	"github.com/btsledger/ledger-bts-go/pkg/keycache"
	"github.com/btsledger/ledger-bts-go/pkg/ledger"
	"github.com/btsledger/ledger-bts-go/signal"
)

var (
	ErrDeviceContextStopped = errors.New("device context stopped")
	ErrDeviceLocked         = errors.New("device is locked by another process")
)

// DeviceContext runs operations against a device one at a time. Each
// operation opens its own transport and closes it before returning.
type DeviceContext struct {
	opener Opener
	sem    *semaphore.Weighted
	lock   *flock.Flock
	keys   *keycache.Store
	logger *zap.Logger

	mu      sync.Mutex
	status  *Status
	stopped bool
}

func NewDeviceContext(opener Opener, opts ...Option) (*DeviceContext, error) {
	if opener.Open == nil {
		return nil, errors.New("transport opener is required")
	}

	d := &DeviceContext{
		opener: opener,
		sem:    semaphore.NewWeighted(1),
		logger: zap.L().Named("device"),
		status: NewStatus(opener.Kind),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.keys == nil {
		keys, err := keycache.NewStore("")
		if err != nil {
			return nil, err
		}
		d.keys = keys
	}

	if d.lock != nil {
		if err := os.MkdirAll(filepath.Dir(d.lock.Path()), lockFileMode); err != nil {
			return nil, errors.Wrap(err, "failed to create lock file directory")
		}
	}

	d.publishStatus()
	return d, nil
}

// session acquires the device, runs fn and releases the device whatever
// fn returns.
func (d *DeviceContext) session(ctx context.Context, fn func(app *ledger.App) error) error {
	if d.isStopped() {
		return ErrDeviceContextStopped
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "waiting for device")
	}
	defer d.sem.Release(1)

	if d.lock != nil {
		locked, err := d.lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return errors.Wrap(err, "waiting for device lock")
		}
		if !locked {
			return ErrDeviceLocked
		}
		defer func() {
			if err := d.lock.Unlock(); err != nil {
				d.logger.Error("failed to release device lock", zap.Error(err))
			}
		}()
	}

	d.setState(Connecting, nil)

	t, err := d.opener.Open(d.logger)
	if err != nil {
		d.logger.Error("failed to open transport", zap.String("transport", d.opener.Kind), zap.Error(err))
		d.setState(ConnectionError, err)
		return errors.Wrap(err, "failed to open transport")
	}
	defer func() {
		if err := t.Close(); err != nil {
			d.logger.Error("failed to close transport", zap.Error(err))
		}
	}()

	d.setState(Busy, nil)

	err = fn(ledger.NewApp(t, ledger.WithLogger(d.logger)))

	var transportErr *ledger.TransportError
	switch {
	case errors.As(err, &transportErr):
		d.setState(ConnectionError, err)
	case d.isStopped():
	default:
		if d.GetStatus().State == Busy {
			d.setState(Ready, nil)
		}
	}

	return err
}

// GetPublicKey reads the key at path. With confirm set the address is then
// shown on the device in a second exchange.
func (d *DeviceContext) GetPublicKey(ctx context.Context, path string, display, confirm bool) (*ledger.PublicKeyResult, error) {
	path = derivationpath.Normalize(path)
	if _, err := derivationpath.Parse(path); err != nil {
		return nil, err
	}

	var result *ledger.PublicKeyResult
	err := d.session(ctx, func(app *ledger.App) error {
		var err error
		result, err = app.GetPublicKey(path, display)
		if err != nil {
			return err
		}

		d.mu.Lock()
		d.status.Path = path
		d.status.Address = result.Address
		if result.Warning != nil {
			d.status.State = AddressMismatch
		}
		d.mu.Unlock()

		if result.Warning != nil {
			signal.Send(SignalAddressMismatch, result)
			d.publishStatus()
		}

		if confirm {
			return app.ConfirmAddress(path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	err = d.keys.Store(&keycache.Entry{
		Path:      path,
		PublicKey: result.PublicKey,
		Address:   result.Address,
		Verified:  result.Warning == nil,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		d.logger.Error("failed to store key", zap.String("path", path), zap.Error(err))
	}

	return result, nil
}

func (d *DeviceContext) Sign(ctx context.Context, path string, payload []byte) (*ledger.Signature, error) {
	path = derivationpath.Normalize(path)
	if _, err := derivationpath.Parse(path); err != nil {
		return nil, err
	}

	var sig *ledger.Signature
	err := d.session(ctx, func(app *ledger.App) error {
		var err error
		sig, err = app.Sign(path, payload)
		return err
	})
	if err != nil {
		return nil, err
	}

	return sig, nil
}

// KnownAddresses lists the keys read so far, ordered by path.
func (d *DeviceContext) KnownAddresses() []keycache.Entry {
	return d.keys.List()
}

func (d *DeviceContext) GetStatus() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.status
}

// Stop rejects further operations. An operation in progress runs to
// completion.
func (d *DeviceContext) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.status.Reset()
	d.status.State = Stopped
	d.mu.Unlock()

	d.publishStatus()
}

func (d *DeviceContext) isStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

func (d *DeviceContext) setState(state State, err error) {
	d.mu.Lock()
	d.status.State = state
	d.status.Error = ""
	if err != nil {
		d.status.Error = err.Error()
	}
	d.mu.Unlock()

	d.publishStatus()
}

func (d *DeviceContext) publishStatus() {
	status := d.GetStatus()
	d.logger.Info("status changed", zap.Any("status", status))
	signal.Send(SignalStatusChanged, status)
}
