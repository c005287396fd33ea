package address

import (
	"bytes"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

// Prefix is the chain tag shown in front of BTS addresses.
const Prefix = "BTS"

const (
	uncompressedLength = 65
	compressedLength   = 33
	checksumLength     = 4

	tagEven = 0x02
	tagOdd  = 0x03
)

var (
	ErrInvalidPublicKey = errors.New("public key must be 65 bytes")
	ErrInvalidAddress   = errors.New("invalid address encoding")
	ErrInvalidChecksum  = errors.New("address checksum mismatch")
)

// Compress selects the 0x02/0x03 prefix from the parity of the last byte
// of an uncompressed key and keeps the X coordinate.
func Compress(pub []byte) ([]byte, error) {
	if len(pub) != uncompressedLength {
		return nil, ErrInvalidPublicKey
	}

	compressed := make([]byte, compressedLength)
	compressed[0] = tagEven
	if pub[uncompressedLength-1]&1 == 1 {
		compressed[0] = tagOdd
	}
	copy(compressed[1:], pub[1:33])

	return compressed, nil
}

func checksum(compressed []byte) []byte {
	h := ripemd160.New()
	h.Write(compressed)
	return h.Sum(nil)[:checksumLength]
}

// Derive computes the address of an uncompressed public key, without the
// chain prefix.
func Derive(pub []byte) (string, error) {
	compressed, err := Compress(pub)
	if err != nil {
		return "", err
	}

	payload := append(compressed, checksum(compressed)...)
	return base58.Encode(payload), nil
}

// Format renders an address for display.
func Format(addr string) string {
	return Prefix + addr
}

// Matches reports whether the address reported by the device is the
// computed one, with or without the chain prefix.
func Matches(computed, reported string) bool {
	return reported == computed || reported == Prefix+computed
}

// Parse decodes an address, with or without prefix, verifies its checksum
// and returns the compressed public key.
func Parse(addr string) ([]byte, error) {
	payload := base58.Decode(strings.TrimPrefix(addr, Prefix))
	if len(payload) != compressedLength+checksumLength {
		payload = base58.Decode(addr)
	}
	if len(payload) != compressedLength+checksumLength {
		return nil, ErrInvalidAddress
	}

	compressed := payload[:compressedLength]
	if compressed[0] != tagEven && compressed[0] != tagOdd {
		return nil, ErrInvalidAddress
	}

	if !bytes.Equal(checksum(compressed), payload[compressedLength:]) {
		return nil, ErrInvalidChecksum
	}

	return compressed, nil
}

// FromCompressed returns the uncompressed form of a compressed key.
func FromCompressed(compressed []byte) ([]byte, error) {
	key, err := btcec.ParsePubKey(compressed)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return key.SerializeUncompressed(), nil
}

// ValidatePublicKey checks that pub is a point on secp256k1.
func ValidatePublicKey(pub []byte) error {
	if _, err := crypto.UnmarshalPubkey(pub); err != nil {
		return ErrInvalidPublicKey
	}
	return nil
}
