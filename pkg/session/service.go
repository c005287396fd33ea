package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/btsledger/ledger-bts-go/internal"
	"github.com/btsledger/ledger-bts-go/pkg/config"
	"github.com/btsledger/ledger-bts-go/pkg/keycache"
	"github.com/btsledger/ledger-bts-go/pkg/ledger"
	"github.com/btsledger/ledger-bts-go/pkg/signdata"
	"github.com/btsledger/ledger-bts-go/pkg/utils"
)

var (
	errLedgerServiceNotStarted = errors.New("ledger service not started")
	errLedgerServiceStarted    = errors.New("ledger service already started")
)

type LedgerService struct {
	mu            sync.Mutex
	deviceContext *internal.DeviceContext
}

func (s *LedgerService) started() (*internal.DeviceContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceContext == nil {
		return nil, errLedgerServiceNotStarted
	}
	return s.deviceContext, nil
}

type StartRequest struct {
	Transport    string `json:"transport" validate:"omitempty,oneof=hid pcsc emulator"`
	Reader       string `json:"reader"`
	EmulatorSeed string `json:"emulatorSeed"`
	KeyCacheFile string `json:"keyCacheFile"`
	LockFile     string `json:"lockFile"`
	LogEnabled   bool   `json:"logEnabled"`
	LogFilePath  string `json:"logFilePath"`
}

func (s *LedgerService) Start(args *StartRequest, reply *struct{}) error {
	if err := validateRequest(args); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deviceContext != nil {
		return errLedgerServiceStarted
	}

	defaults := config.Default()
	if args.Transport == "" {
		args.Transport = defaults.Transport
	}
	if args.EmulatorSeed == "" {
		args.EmulatorSeed = defaults.EmulatorSeed
	}

	opener, err := internal.OpenerFor(args.Transport, args.Reader, args.EmulatorSeed)
	if err != nil {
		return err
	}

	keys, err := keycache.NewStore(args.KeyCacheFile)
	if err != nil {
		return errors.Wrap(err, "failed to open key cache")
	}

	opts := []internal.Option{
		internal.WithKeyCache(keys),
		internal.WithLockFile(args.LockFile),
	}
	if args.LogEnabled {
		opts = append(opts, internal.WithLogging(true, args.LogFilePath))
	}

	s.deviceContext, err = internal.NewDeviceContext(opener, opts...)
	return err
}

func (s *LedgerService) Stop(args *struct{}, reply *struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deviceContext == nil {
		return nil
	}

	s.deviceContext.Stop()
	s.deviceContext = nil
	return nil
}

// GetStatus should not be really used, as Status is pushed with `status-changed` signal.
// But it's handy to have for debugging purposes.
func (s *LedgerService) GetStatus(args *struct{}, reply *internal.Status) error {
	dc, err := s.started()
	if err != nil {
		return err
	}

	*reply = dc.GetStatus()
	return nil
}

type GetPublicKeyRequest struct {
	Path    string `json:"path" validate:"omitempty,derivationpath"`
	Display bool   `json:"display"`
	Confirm bool   `json:"confirm"`
}

func (s *LedgerService) GetPublicKey(args *GetPublicKeyRequest, reply *ledger.PublicKeyResult) error {
	dc, err := s.started()
	if err != nil {
		return err
	}

	if err := validateRequest(args); err != nil {
		return err
	}

	if args.Path == "" {
		args.Path = ledger.DefaultPublicKeyPath
	}

	result, err := dc.GetPublicKey(context.Background(), args.Path, args.Display, args.Confirm)
	if err != nil {
		return err
	}

	*reply = *result
	return nil
}

type SignRequest struct {
	Path    string          `json:"path" validate:"omitempty,derivationpath"`
	Payload utils.HexString `json:"payload"`
}

type SignResponse struct {
	Signature utils.HexString `json:"signature"`
	V         byte            `json:"v"`
	R         utils.HexString `json:"r"`
	S         utils.HexString `json:"s"`
}

func (s *LedgerService) Sign(args *SignRequest, reply *SignResponse) error {
	dc, err := s.started()
	if err != nil {
		return err
	}

	if err := validateRequest(args); err != nil {
		return err
	}

	if args.Path == "" {
		args.Path = ledger.DefaultSignPath
	}

	sig, err := dc.Sign(context.Background(), args.Path, args.Payload)
	if err != nil {
		return err
	}

	reply.Signature = sig.Bytes()
	reply.V = sig.V
	reply.R = sig.R
	reply.S = sig.S
	return nil
}

type KnownAddressesResponse struct {
	Keys []keycache.Entry `json:"keys"`
}

func (s *LedgerService) KnownAddresses(args *struct{}, reply *KnownAddressesResponse) error {
	dc, err := s.started()
	if err != nil {
		return err
	}

	reply.Keys = dc.KnownAddresses()
	return nil
}

type DigestRequest struct {
	Payload utils.HexString `json:"payload"`
}

type DigestResponse struct {
	Digest utils.HexString `json:"digest"`
}

// Digest does not need a device and works before Start.
func (s *LedgerService) Digest(args *DigestRequest, reply *DigestResponse) error {
	digest, err := signdata.Digest(args.Payload)
	if err != nil {
		return err
	}

	reply.Digest = digest[:]
	return nil
}
