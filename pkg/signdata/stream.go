package signdata

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/pkg/errors"
)

type fieldKind int

const (
	fieldChainID fieldKind = iota
	fieldExpiration
	fieldRefBlockNum
	fieldRefBlockPrefix
	fieldMaxNetUsageWords
	fieldMaxCPUUsageMs
	fieldDelaySec
	fieldContextFreeActions
	fieldActions
	fieldActionAccount
	fieldActionName
	fieldAuthorizations
	fieldAuthorizationActor
	fieldAuthorizationPermission
	fieldActionDataSize
	fieldActionData
	fieldExtensions
	fieldContextFreeData
	fieldDone
)

var ErrStreamFinished = errors.New("signing payload already complete")

// Stream consumes a signing payload chunk by chunk, the way the device
// does, and reports when the last field of the flat transaction map has
// been hashed. Only the field values are hashed.
type Stream struct {
	state          fieldKind
	pending        []byte
	hash           hash.Hash
	authorizations uint32
	authIndex      uint32
	fields         int
	account        uint64
	action         uint64
}

func NewStream() *Stream {
	return &Stream{hash: sha256.New()}
}

// Feed hashes every complete field in chunk plus previously buffered bytes.
// It returns true once the payload is complete.
func (s *Stream) Feed(chunk []byte) (bool, error) {
	if s.state == fieldDone {
		return true, ErrStreamFinished
	}

	s.pending = append(s.pending, chunk...)

	for s.state != fieldDone {
		length, consumed, ok, err := decodeHeader(s.pending)
		if err != nil {
			return false, err
		}

		if !ok || uint64(len(s.pending)-consumed) < uint64(length) {
			return false, nil
		}

		value := s.pending[consumed : consumed+int(length)]
		if err := s.process(value); err != nil {
			return false, errors.Wrapf(err, "field %d", s.fields)
		}

		s.hash.Write(value)
		s.pending = s.pending[consumed+int(length):]
		s.fields++
	}

	if len(s.pending) > 0 {
		return true, ErrStreamFinished
	}

	return true, nil
}

func (s *Stream) process(value []byte) error {
	switch s.state {
	case fieldContextFreeActions, fieldExtensions:
		n, err := unpackCount(value)
		if err != nil {
			return err
		}
		if n != 0 {
			return fmt.Errorf("expected empty list, got %d entries", n)
		}
	case fieldActions:
		n, err := unpackCount(value)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("expected exactly one action, got %d", n)
		}
	case fieldActionAccount, fieldActionName:
		name, err := unpackName(value)
		if err != nil {
			return err
		}
		if s.state == fieldActionAccount {
			s.account = name
		} else {
			s.action = name
		}
	case fieldAuthorizations:
		n, err := unpackCount(value)
		if err != nil {
			return err
		}
		s.authorizations = n
		s.authIndex = 0
		if n == 0 {
			s.state = fieldActionDataSize
			return nil
		}
	case fieldAuthorizationPermission:
		s.authIndex++
		if s.authIndex != s.authorizations {
			s.state = fieldAuthorizationActor
			return nil
		}
	}

	s.state++
	return nil
}

func unpackCount(value []byte) (uint32, error) {
	n, read, err := UnpackVaruint32(value)
	if err != nil {
		return 0, err
	}
	if read != len(value) {
		return 0, ErrMalformedPayload
	}
	return n, nil
}

func unpackName(value []byte) (uint64, error) {
	if len(value) != 8 {
		return 0, fmt.Errorf("name must be 8 bytes, got %d", len(value))
	}
	var name uint64
	for i := 7; i >= 0; i-- {
		name = name<<8 | uint64(value[i])
	}
	return name, nil
}

func (s *Stream) Done() bool {
	return s.state == fieldDone
}

// Contract and Action return the names of the action being signed.
func (s *Stream) Contract() string {
	return NameToString(s.account)
}

func (s *Stream) Action() string {
	return NameToString(s.action)
}

func (s *Stream) Digest() ([32]byte, error) {
	if !s.Done() {
		return [32]byte{}, errors.New("signing payload incomplete")
	}

	var out [32]byte
	copy(out[:], s.hash.Sum(nil))
	return out, nil
}
