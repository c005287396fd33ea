// Package emulator implements the BTS device application in software. It
// answers the same frames as the device and is used by tests, the CLI
// "emulator" transport and the example.
package emulator

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"
	"github.com/status-im/keycard-go/apdu"
	"go.uber.org/zap"

	"github.com/btsledger/ledger-bts-go/pkg/address"
	"github.com/btsledger/ledger-bts-go/pkg/ledger"
	"github.com/btsledger/ledger-bts-go/pkg/signdata"
)

var ErrClosed = errors.New("emulator closed")

type signSession struct {
	key    *btcec.PrivateKey
	stream *signdata.Stream
}

type Emulator struct {
	mu        sync.Mutex
	seed      []byte
	logger    *zap.Logger
	reported  string
	failAt    int
	failErr   error
	exchanges int
	session   *signSession
	closed    bool
}

type Option func(*Emulator)

// WithReportedAddress makes the device report addr instead of the address
// of the requested key.
func WithReportedAddress(addr string) Option {
	return func(e *Emulator) {
		e.reported = addr
	}
}

// FailAt makes the n-th exchange (1 based) fail with err before reaching
// the application.
func FailAt(n int, err error) Option {
	return func(e *Emulator) {
		e.failAt = n
		e.failErr = err
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Emulator) {
		e.logger = logger
	}
}

func New(seed []byte, opts ...Option) *Emulator {
	e := &Emulator{
		seed:   append([]byte(nil), seed...),
		logger: zap.L().Named("emulator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PrivateKey derives the key the emulator uses for a binary path.
func (e *Emulator) PrivateKey(path []byte) *btcec.PrivateKey {
	h := sha256.New()
	h.Write(e.seed)
	h.Write(path)
	key, _ := btcec.PrivKeyFromBytes(h.Sum(nil))
	return key
}

func (e *Emulator) Exchanges() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exchanges
}

func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.session = nil
	return nil
}

func (e *Emulator) Exchange(raw []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	e.exchanges++
	if e.failAt == e.exchanges {
		return nil, e.failErr
	}

	data, sw := e.handle(raw)
	reply := make([]byte, len(data), len(data)+2)
	copy(reply, data)
	return binary.BigEndian.AppendUint16(reply, sw), nil
}

func (e *Emulator) handle(raw []byte) ([]byte, uint16) {
	if len(raw) < 4 || (len(raw) > 4 && int(raw[4]) != len(raw)-5) {
		return nil, ledger.SwWrongLength
	}

	cmd, err := apdu.ParseCommand(raw)
	if err != nil {
		return nil, ledger.SwWrongLength
	}

	switch {
	case cmd.Cla == ledger.ClaGetPublicKey && cmd.Ins == ledger.InsGetPublicKey:
		return e.getPublicKey(cmd)
	case cmd.Cla == ledger.ClaSign && cmd.Ins == ledger.InsSign:
		return e.sign(cmd)
	case cmd.Cla == ledger.ClaGetPublicKey || cmd.Cla == ledger.ClaSign:
		return nil, ledger.SwInsNotSupported
	}

	return nil, ledger.SwClaNotSupported
}

func splitPath(data []byte) ([]byte, []byte, bool) {
	if len(data) < 1 {
		return nil, nil, false
	}

	size := 1 + int(data[0])*4
	if len(data) < size {
		return nil, nil, false
	}

	return data[1:size], data[size:], true
}

func (e *Emulator) getPublicKey(cmd *apdu.Command) ([]byte, uint16) {
	if cmd.P1 != ledger.P1Silent && cmd.P1 != ledger.P1Display {
		return nil, ledger.SwInvalidParameters
	}

	path, rest, ok := splitPath(cmd.Data)
	if !ok || len(rest) != 0 {
		return nil, ledger.SwWrongData
	}

	pub := e.PrivateKey(path).PubKey().SerializeUncompressed()
	addr, err := address.Derive(pub)
	if err != nil {
		return nil, ledger.SwWrongData
	}

	reported := address.Format(addr)
	if e.reported != "" {
		reported = e.reported
	}

	e.logger.Debug("public key", zap.Binary("path", path), zap.String("address", reported), zap.Bool("display", cmd.P1 == ledger.P1Display))

	out := make([]byte, 0, 2+len(pub)+len(reported))
	out = append(out, byte(len(pub)))
	out = append(out, pub...)
	out = append(out, byte(len(reported)))
	return append(out, reported...), ledger.SwOK
}

func (e *Emulator) sign(cmd *apdu.Command) ([]byte, uint16) {
	var chunk []byte

	switch cmd.P1 {
	case ledger.P1FirstChunk:
		path, rest, ok := splitPath(cmd.Data)
		if !ok {
			e.session = nil
			return nil, ledger.SwWrongData
		}
		e.session = &signSession{
			key:    e.PrivateKey(path),
			stream: signdata.NewStream(),
		}
		chunk = rest
	case ledger.P1NextChunk:
		if e.session == nil {
			return nil, ledger.SwConditionsNotMet
		}
		chunk = cmd.Data
	default:
		return nil, ledger.SwInvalidParameters
	}

	done, err := e.session.stream.Feed(chunk)
	if err != nil {
		e.logger.Debug("rejecting payload", zap.Error(err))
		e.session = nil
		return nil, ledger.SwWrongData
	}

	if !done {
		return nil, ledger.SwOK
	}

	session := e.session
	e.session = nil

	digest, err := session.stream.Digest()
	if err != nil {
		return nil, ledger.SwWrongData
	}

	sig, err := ecdsa.SignCompact(session.key, digest[:], true)
	if err != nil {
		return nil, ledger.SwConditionsNotMet
	}

	e.logger.Debug("signed",
		zap.String("contract", session.stream.Contract()),
		zap.String("action", session.stream.Action()))

	return sig, ledger.SwOK
}
