package signdata

import "errors"

var ErrVaruintOverflow = errors.New("varuint32 overflow")

// PackVaruint32 encodes v as LEB128, seven bits per byte.
func PackVaruint32(v uint32) []byte {
	out := make([]byte, 0, 5)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func UnpackVaruint32(data []byte) (uint32, int, error) {
	var v uint32
	for i, b := range data {
		if i == 5 || (i == 4 && b > 0x0f) {
			return 0, 0, ErrVaruintOverflow
		}

		v |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrMalformedPayload
}

const nameLength = 13

func charToSymbol(c byte) uint64 {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 6
	case c >= '1' && c <= '5':
		return uint64(c-'1') + 1
	}
	return 0
}

// StringToName packs an account name (a-z, 1-5 and '.', up to 13 chars)
// into 64 bits.
func StringToName(s string) uint64 {
	var value uint64
	for i := 0; i < nameLength; i++ {
		var c uint64
		if i < len(s) {
			c = charToSymbol(s[i])
		}

		if i < nameLength-1 {
			value |= (c & 0x1f) << (64 - 5*(uint(i)+1))
		} else {
			value |= c & 0x0f
		}
	}
	return value
}

const nameCharmap = ".12345abcdefghijklmnopqrstuvwxyz"

func NameToString(value uint64) string {
	out := make([]byte, nameLength)
	tmp := value
	for i := 0; i < nameLength; i++ {
		var c byte
		if i == 0 {
			c = nameCharmap[tmp&0x0f]
			tmp >>= 4
		} else {
			c = nameCharmap[tmp&0x1f]
			tmp >>= 5
		}
		out[nameLength-1-i] = c
	}

	end := len(out)
	for end > 0 && out[end-1] == '.' {
		end--
	}
	return string(out[:end])
}
