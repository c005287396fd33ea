package signdata

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexMustDecode(str string) []byte {
	out, _ := hex.DecodeString(str)
	return out
}

// A transfer captured from the device test script.
var samplePayload = hexMustDecode("0420999999999999999999999999999999999999999999999999999999999999999904045b30dc9a04023ca8040495ae4f7104010004010004010004010004010104085530ea000000000004089ab864229a9e400004010104085530ea000000000004083232eda80000000004016604660000000000ea305500fc7566d15cfd4501000000010002ed0a3156276d5116973957e1cecf39034b0175f8ec897c0b562349a3b9f8e56a0100000001000000010002ed0a3156276d5116973957e1cecf39034b0175f8ec897c0b562349a3b9f8e56a0100000004010004200000000000000000000000000000000000000000000000000000000000000000")

const sampleDigest = "50965bc67e0de527edf3d03314c83498d5cdf01c9e9eb9f4a877d9213ccf71e5"

func samplePayloadBuilder() *Builder {
	return NewBuilder().
		Bytes(bytes.Repeat([]byte{0x11}, 32)).
		Uint32(0x5b30dc9a).
		Uint16(0x3ca8).
		Uint32(0x95ae4f71).
		Varuint32(0).
		Uint8(0).
		Varuint32(0).
		Varuint32(0).
		Varuint32(1).
		Name("eosio.token").
		Name("transfer").
		Varuint32(2).
		Name("alice").
		Name("active").
		Name("bob").
		Name("owner").
		Varuint32(4).
		Bytes([]byte{1, 2, 3, 4}).
		Varuint32(0).
		Bytes(make([]byte, 32))
}

func TestDecodeSample(t *testing.T) {
	fields, err := Decode(samplePayload)
	require.NoError(t, err)
	require.Len(t, fields, 18)

	assert.Len(t, fields[0], 32)
	assert.Equal(t, hexMustDecode("5b30dc9a"), fields[1])
	assert.Len(t, fields[15], 102)
}

func TestDigestSample(t *testing.T) {
	digest, err := Digest(samplePayload)
	require.NoError(t, err)
	assert.Equal(t, sampleDigest, hex.EncodeToString(digest[:]))
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte{0x05, 0x01, 0x00})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Decode([]byte{0x04, 0x05, 0x00})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Decode([]byte{0x04})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Decode([]byte{0x04, 0x85, 0, 0, 0, 0, 1})
	assert.ErrorIs(t, err, ErrFieldTooLong)
}

func TestLongFormLength(t *testing.T) {
	value := bytes.Repeat([]byte{0xab}, 300)
	payload := NewBuilder().Bytes(value).Payload()

	assert.Equal(t, hexMustDecode("0482012c"), payload[:4])

	fields, err := Decode(payload)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, value, fields[0])

	payload = NewBuilder().Bytes(bytes.Repeat([]byte{0}, 200)).Payload()
	assert.Equal(t, hexMustDecode("0481c8"), payload[:3])
}

func TestVaruint32(t *testing.T) {
	scenarios := []struct {
		value    uint32
		expected string
	}{
		{0, "00"},
		{1, "01"},
		{127, "7f"},
		{128, "8001"},
		{300, "ac02"},
		{0xffffffff, "ffffffff0f"},
	}

	for _, s := range scenarios {
		packed := PackVaruint32(s.value)
		assert.Equal(t, s.expected, hex.EncodeToString(packed))

		v, n, err := UnpackVaruint32(packed)
		require.NoError(t, err)
		assert.Equal(t, s.value, v)
		assert.Equal(t, len(packed), n)
	}

	_, _, err := UnpackVaruint32(hexMustDecode("ffffffff1f"))
	assert.ErrorIs(t, err, ErrVaruintOverflow)

	_, _, err = UnpackVaruint32(hexMustDecode("80"))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNames(t *testing.T) {
	scenarios := []struct {
		name     string
		expected string
	}{
		{"eosio", "5530ea0000000000"},
		{"active", "3232eda800000000"},
		{"transfer", "cdcd3c2d57000000"},
		{"eosio.token", "5530ea033482a600"},
	}

	for _, s := range scenarios {
		value := StringToName(s.name)
		assert.Equal(t, s.expected, hex.EncodeToString([]byte{
			byte(value >> 56), byte(value >> 48), byte(value >> 40), byte(value >> 32),
			byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value),
		}))
		assert.Equal(t, s.name, NameToString(value))
	}

	// On the wire the value is little endian.
	field := NewBuilder().Name("eosio").Payload()
	assert.Equal(t, "04080000000000ea3055", hex.EncodeToString(field))
}

func TestStreamSample(t *testing.T) {
	stream := NewStream()

	var done bool
	var err error
	for i := 0; i < len(samplePayload); i += 64 {
		end := i + 64
		if end > len(samplePayload) {
			end = len(samplePayload)
		}

		require.False(t, done)
		done, err = stream.Feed(samplePayload[i:end])
		require.NoError(t, err)
	}

	require.True(t, done)
	digest, err := stream.Digest()
	require.NoError(t, err)
	assert.Equal(t, sampleDigest, hex.EncodeToString(digest[:]))
}

func TestStreamBuilderPayload(t *testing.T) {
	payload := samplePayloadBuilder().Payload()

	stream := NewStream()
	for i := 0; i < len(payload)-1; i++ {
		done, err := stream.Feed(payload[i : i+1])
		require.NoError(t, err)
		require.False(t, done, "complete at byte %d", i)
	}

	done, err := stream.Feed(payload[len(payload)-1:])
	require.NoError(t, err)
	require.True(t, done)

	assert.Equal(t, "eosio.token", stream.Contract())
	assert.Equal(t, "transfer", stream.Action())

	streamed, err := stream.Digest()
	require.NoError(t, err)
	whole, err := Digest(payload)
	require.NoError(t, err)
	assert.Equal(t, whole, streamed)
}

func TestStreamRejectsMultipleActions(t *testing.T) {
	payload := NewBuilder().
		Bytes(make([]byte, 32)).
		Uint32(0).Uint16(0).Uint32(0).
		Varuint32(0).Uint8(0).Varuint32(0).
		Varuint32(0).
		Varuint32(2).
		Payload()

	_, err := NewStream().Feed(payload)
	assert.Error(t, err)
}

func TestStreamTrailingBytes(t *testing.T) {
	stream := NewStream()
	done, err := stream.Feed(append(append([]byte(nil), samplePayload...), 0x04, 0x00))
	assert.True(t, done)
	assert.ErrorIs(t, err, ErrStreamFinished)

	_, err = stream.Feed([]byte{0x04})
	assert.ErrorIs(t, err, ErrStreamFinished)
}

func TestStreamIncompleteDigest(t *testing.T) {
	stream := NewStream()
	done, err := stream.Feed(samplePayload[:100])
	require.NoError(t, err)
	assert.False(t, done)

	_, err = stream.Digest()
	assert.Error(t, err)
}
