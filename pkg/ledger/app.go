package ledger

import (
	"encoding/hex"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/btsledger/ledger-bts-go/pkg/address"
	"github.com/btsledger/ledger-bts-go/pkg/derivationpath"
	"github.com/btsledger/ledger-bts-go/pkg/utils"
)

// App drives the BTS application on a device through a Transport.
type App struct {
	transport Transport
	logger    *zap.Logger
}

type AppOption func(*App)

func WithLogger(logger *zap.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

func NewApp(t Transport, opts ...AppOption) *App {
	a := &App{
		transport: t,
		logger:    zap.L().Named("ledger"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type PublicKeyResult struct {
	Path      string          `json:"path"`
	PublicKey utils.HexString `json:"publicKey"`
	// Address is the device-reported address, authoritative for signing.
	Address  string                  `json:"address"`
	Computed string                  `json:"computed"`
	Warning  *AddressMismatchWarning `json:"warning,omitempty"`
}

func (a *App) exchange(t Transport) Transport {
	return &loggingTransport{t: t, logger: a.logger}
}

// GetPublicKey reads the key at path. A host/device address mismatch is
// reported in the result, not as an error.
func (a *App) GetPublicKey(path string, display bool) (*PublicKeyResult, error) {
	binaryPath, err := derivationpath.Encode(path)
	if err != nil {
		return nil, err
	}

	selector := byte(P1Silent)
	if display {
		selector = P1Display
	}

	frames, err := BuildGetPublicKeyFrames(selector, binaryPath)
	if err != nil {
		return nil, err
	}

	replies, err := Run(frames, a.exchange(a.transport))
	if err != nil {
		return nil, err
	}

	resp, err := ParsePublicKey(replies[0])
	if err != nil {
		return nil, err
	}

	computed, err := address.Derive(resp.PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "device returned an invalid public key")
	}

	result := &PublicKeyResult{
		Path:      path,
		PublicKey: resp.PublicKey,
		Address:   resp.Address,
		Computed:  address.Format(computed),
	}

	if !address.Matches(computed, resp.Address) {
		result.Warning = &AddressMismatchWarning{
			Computed: result.Computed,
			Reported: resp.Address,
		}
		a.logger.Warn("address mismatch",
			zap.String("path", path),
			zap.String("computed", result.Computed),
			zap.String("reported", resp.Address))
	}

	return result, nil
}

// ConfirmAddress asks the device to display the address at path. The reply
// carries nothing the host needs and is dropped once its status is checked.
func (a *App) ConfirmAddress(path string) error {
	binaryPath, err := derivationpath.Encode(path)
	if err != nil {
		return err
	}

	frames, err := BuildGetPublicKeyFrames(P1Display, binaryPath)
	if err != nil {
		return err
	}

	_, err = Run(frames, a.exchange(a.transport))
	return err
}

// Sign streams payload to the device and returns the signature carried by
// the reply to the last frame.
func (a *App) Sign(path string, payload []byte) (*Signature, error) {
	binaryPath, err := derivationpath.Encode(path)
	if err != nil {
		return nil, err
	}

	frames, err := BuildSignFrames(binaryPath, payload)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("signing", zap.String("path", path), zap.Int("payload", len(payload)), zap.Int("frames", len(frames)))

	replies, err := Run(frames, a.exchange(a.transport))
	if err != nil {
		return nil, err
	}

	return ParseSignature(replies[len(replies)-1])
}

type loggingTransport struct {
	t      Transport
	logger *zap.Logger
}

func (l *loggingTransport) Exchange(command []byte) ([]byte, error) {
	l.logger.Debug("=>", zap.String("apdu", hex.EncodeToString(command)))
	reply, err := l.t.Exchange(command)
	if err != nil {
		l.logger.Debug("<= failed", zap.Error(err))
		return nil, err
	}
	l.logger.Debug("<=", zap.String("apdu", hex.EncodeToString(reply)))
	return reply, nil
}
