package address

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexMustDecode(str string) []byte {
	out, _ := hex.DecodeString(str)
	return out
}

var (
	// secp256k1 generator, private key 1
	generatorKey = hexMustDecode("0479be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8")
	// private key 9, odd Y
	oddKey = hexMustDecode("04acd484e2f0c7f65309ad178a9f559abde09796974c57e714c35f110dfc27ccbecc338921b0a7d9fd64380971763b61e9add888a4375f8e0f05cc262ac64f9c37")
)

func TestDeriveGolden(t *testing.T) {
	scenarios := []struct {
		name    string
		pub     []byte
		address string
	}{
		{"even", generatorKey, "5p78kHbL33Rn3JWkTWRE2B9uz6gy4r1KbfAKLNQGE3ovMBS5bu"},
		{"odd", oddKey, "89MF8DDT5vH8zUmvwHj6Wcrh7ZQVcaHWLdsz5cUxEMmnGBi5G7"},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			addr, err := Derive(s.pub)
			require.NoError(t, err)
			assert.Equal(t, s.address, addr)
			assert.Equal(t, "BTS"+s.address, Format(addr))
		})
	}
}

func TestDeriveDeterministic(t *testing.T) {
	a, err := Derive(generatorKey)
	require.NoError(t, err)
	b, err := Derive(generatorKey)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompressParity(t *testing.T) {
	pub := make([]byte, len(generatorKey))
	copy(pub, generatorKey)

	compressed, err := Compress(pub)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), compressed[0])
	assert.Equal(t, hexMustDecode("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"), compressed)

	pub[64] ^= 1
	compressed, err = Compress(pub)
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), compressed[0])
	assert.Equal(t, generatorKey[1:33], compressed[1:])
}

func TestDeriveInvalidKey(t *testing.T) {
	_, err := Derive(generatorKey[:64])
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = Derive(append(generatorKey, 0x00))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestDeriveIgnoresTagByte(t *testing.T) {
	untagged := append([]byte{0x00}, generatorKey[1:]...)
	addr, err := Derive(untagged)
	require.NoError(t, err)
	assert.Equal(t, "5p78kHbL33Rn3JWkTWRE2B9uz6gy4r1KbfAKLNQGE3ovMBS5bu", addr)
}

func TestMatches(t *testing.T) {
	addr, err := Derive(generatorKey)
	require.NoError(t, err)

	assert.True(t, Matches(addr, addr))
	assert.True(t, Matches(addr, "BTS"+addr))
	assert.False(t, Matches(addr, "EOS"+addr))
	assert.False(t, Matches(addr, "BTS5p78kHbL33Rn3JWkTWRE2B9uz6gy4r1KbfAKLNQGE3ovMBS5bv"))
}

func TestParse(t *testing.T) {
	compressed, err := Parse("BTS89MF8DDT5vH8zUmvwHj6Wcrh7ZQVcaHWLdsz5cUxEMmnGBi5G7")
	require.NoError(t, err)
	assert.Equal(t, hexMustDecode("03acd484e2f0c7f65309ad178a9f559abde09796974c57e714c35f110dfc27ccbe"), compressed)

	uncompressed, err := FromCompressed(compressed)
	require.NoError(t, err)
	assert.Equal(t, oddKey, uncompressed)

	compressed, err = Parse("5p78kHbL33Rn3JWkTWRE2B9uz6gy4r1KbfAKLNQGE3ovMBS5bu")
	require.NoError(t, err)
	assert.Equal(t, generatorKey[1:33], compressed[1:])
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("BTS5p78kHbL33Rn3JWkTWRE2B9uz6gy4r1KbfAKLNQGE3ovMBS5bv")
	assert.ErrorIs(t, err, ErrInvalidChecksum)

	_, err = Parse("BTS0OIl")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestValidatePublicKey(t *testing.T) {
	assert.NoError(t, ValidatePublicKey(generatorKey))
	assert.NoError(t, ValidatePublicKey(oddKey))

	notOnCurve := make([]byte, len(generatorKey))
	copy(notOnCurve, generatorKey)
	notOnCurve[64] ^= 1
	assert.ErrorIs(t, ValidatePublicKey(notOnCurve), ErrInvalidPublicKey)
}
