package ledger

import (
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"

	"github.com/btsledger/ledger-bts-go/pkg/utils"
)

type PublicKeyResponse struct {
	PublicKey utils.HexString `json:"publicKey"`
	Address   string          `json:"address"`
}

// ParsePublicKey reads a [L][key][A][address] reply.
func ParsePublicKey(raw []byte) (*PublicKeyResponse, error) {
	if len(raw) < 1 {
		return nil, &TruncatedResponseError{Want: 1, Got: len(raw)}
	}

	keyLength := int(raw[0])
	offset := 1 + keyLength
	if len(raw) < offset+1 {
		return nil, &TruncatedResponseError{Want: offset + 1, Got: len(raw)}
	}

	addressLength := int(raw[offset])
	end := offset + 1 + addressLength
	if len(raw) < end {
		return nil, &TruncatedResponseError{Want: end, Got: len(raw)}
	}

	key := make([]byte, keyLength)
	copy(key, raw[1:offset])

	return &PublicKeyResponse{
		PublicKey: key,
		Address:   string(raw[offset+1 : end]),
	}, nil
}

// Signature is a compact recoverable signature. V is 27 + recovery id,
// plus 4 when the signing key is compressed.
type Signature struct {
	V byte            `json:"v"`
	R utils.HexString `json:"r"`
	S utils.HexString `json:"s"`
}

// ParseSignature reads the 65 byte V|R|S reply to the last sign frame.
func ParseSignature(raw []byte) (*Signature, error) {
	if len(raw) < SignatureLength {
		return nil, &TruncatedResponseError{Want: SignatureLength, Got: len(raw)}
	}

	if len(raw) > SignatureLength {
		return nil, errors.Errorf("unexpected signature length %d", len(raw))
	}

	sig := &Signature{
		V: raw[0],
		R: make([]byte, 32),
		S: make([]byte, 32),
	}
	copy(sig.R, raw[1:33])
	copy(sig.S, raw[33:65])

	return sig, nil
}

func (s *Signature) Bytes() []byte {
	out := make([]byte, 0, SignatureLength)
	out = append(out, s.V)
	out = append(out, s.R...)
	return append(out, s.S...)
}

// RecoverPublicKey returns the uncompressed key that produced the signature
// over digest.
func (s *Signature) RecoverPublicKey(digest []byte) ([]byte, error) {
	key, _, err := ecdsa.RecoverCompact(s.Bytes(), digest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to recover public key")
	}
	return key.SerializeUncompressed(), nil
}
