package signdata

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// TagOctetString is the only tag the device accepts in a signing payload.
const TagOctetString = 0x04

var (
	ErrMalformedPayload = errors.New("malformed signing payload")
	ErrFieldTooLong     = errors.New("field longer than 2^32-1 bytes")
)

// Builder appends DER octet string fields to a signing payload.
type Builder struct {
	buf bytes.Buffer
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Bytes(value []byte) *Builder {
	b.buf.WriteByte(TagOctetString)
	b.buf.Write(encodeLength(len(value)))
	b.buf.Write(value)
	return b
}

func (b *Builder) Uint8(v uint8) *Builder {
	return b.Bytes([]byte{v})
}

func (b *Builder) Uint16(v uint16) *Builder {
	return b.Bytes(binary.LittleEndian.AppendUint16(nil, v))
}

func (b *Builder) Uint32(v uint32) *Builder {
	return b.Bytes(binary.LittleEndian.AppendUint32(nil, v))
}

func (b *Builder) Uint64(v uint64) *Builder {
	return b.Bytes(binary.LittleEndian.AppendUint64(nil, v))
}

func (b *Builder) Varuint32(v uint32) *Builder {
	return b.Bytes(PackVaruint32(v))
}

// Name appends an account or action name packed to its 64 bit form.
func (b *Builder) Name(name string) *Builder {
	return b.Uint64(StringToName(name))
}

func (b *Builder) Payload() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

func encodeLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}

	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], uint32(n))
	i := 0
	for i < 3 && raw[i] == 0 {
		i++
	}
	return append([]byte{0x80 | byte(4-i)}, raw[i:]...)
}

// decodeHeader reads a tag and DER length from the front of data. ok is
// false when more bytes are needed.
func decodeHeader(data []byte) (length uint32, consumed int, ok bool, err error) {
	if len(data) < 2 {
		return 0, 0, false, nil
	}

	if data[0] != TagOctetString {
		return 0, 0, false, ErrMalformedPayload
	}

	first := data[1]
	if first < 0x80 {
		return uint32(first), 2, true, nil
	}

	n := int(first & 0x7f)
	if n == 0 || n > 4 {
		return 0, 0, false, ErrFieldTooLong
	}

	if len(data) < 2+n {
		return 0, 0, false, nil
	}

	for _, b := range data[2 : 2+n] {
		length = length<<8 | uint32(b)
	}

	return length, 2 + n, true, nil
}

// Decode splits a payload into the values of its fields.
func Decode(payload []byte) ([][]byte, error) {
	fields := make([][]byte, 0)

	for len(payload) > 0 {
		length, consumed, ok, err := decodeHeader(payload)
		if err != nil {
			return nil, err
		}

		if !ok || uint64(len(payload)-consumed) < uint64(length) {
			return nil, ErrMalformedPayload
		}

		payload = payload[consumed:]
		fields = append(fields, payload[:length])
		payload = payload[length:]
	}

	return fields, nil
}

// Digest is the SHA-256 over the concatenated field values, tags and lengths
// excluded. This is the hash the device signs.
func Digest(payload []byte) ([32]byte, error) {
	fields, err := Decode(payload)
	if err != nil {
		return [32]byte{}, err
	}

	h := sha256.New()
	for _, f := range fields {
		h.Write(f)
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
