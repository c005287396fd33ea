package derivationpath

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	tokenSeparator = "/"
	tokenHardened  = "'"

	hardenedStart = 0x80000000 // 2^31
	segmentSize   = 4
)

// Path is a sequence of derivation indexes, hardened ones carrying bit 31.
type Path []uint32

// MalformedPathError is returned when a path string or its binary form
// cannot be decoded. It is raised before any device contact.
type MalformedPathError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *MalformedPathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("malformed derivation path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("malformed derivation path %q at segment %q: %s", e.Path, e.Segment, e.Reason)
}

// Parse reads a path such as "44'/194'/0'/0/1". The empty string is the
// empty path.
func Parse(str string) (Path, error) {
	path := make(Path, 0)
	if str == "" {
		return path, nil
	}

	for _, token := range strings.Split(str, tokenSeparator) {
		segment, err := parseSegment(token)
		if err != nil {
			return nil, &MalformedPathError{Path: str, Segment: token, Reason: err.Error()}
		}
		path = append(path, segment)
	}

	return path, nil
}

func parseSegment(token string) (uint32, error) {
	hardened := strings.HasSuffix(token, tokenHardened)
	digits := strings.TrimSuffix(token, tokenHardened)

	if digits == "" {
		return 0, fmt.Errorf("expected number")
	}

	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("expected number, got %q", c)
		}
	}

	i, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("index out of range")
	}

	if i >= hardenedStart {
		return 0, fmt.Errorf("index must be lower than 2^31, got %d", i)
	}

	if hardened {
		i += hardenedStart
	}

	return uint32(i), nil
}

// Normalize folds compatibility characters (full-width digits, slashes and
// apostrophes) to ASCII and trims surrounding space, so that paths typed
// into a UI can be handed to Parse.
func Normalize(str string) string {
	return strings.TrimSpace(norm.NFKC.String(str))
}

// Encode parses str and returns its binary form.
func Encode(str string) ([]byte, error) {
	path, err := Parse(str)
	if err != nil {
		return nil, err
	}
	return path.Bytes(), nil
}

// Decode is the inverse of Path.Bytes.
func Decode(data []byte) (Path, error) {
	if len(data)%segmentSize != 0 {
		return nil, &MalformedPathError{
			Path:   fmt.Sprintf("%x", data),
			Reason: fmt.Sprintf("binary length %d is not a multiple of %d", len(data), segmentSize),
		}
	}

	path := make(Path, len(data)/segmentSize)
	for i := range path {
		path[i] = binary.BigEndian.Uint32(data[i*segmentSize:])
	}

	return path, nil
}

func (p Path) Bytes() []byte {
	out := make([]byte, len(p)*segmentSize)
	for i, segment := range p {
		binary.BigEndian.PutUint32(out[i*segmentSize:], segment)
	}
	return out
}

func (p Path) Hardened(i int) bool {
	return p[i]&hardenedStart != 0
}

func (p Path) String() string {
	tokens := make([]string, len(p))
	for i, segment := range p {
		tokens[i] = strconv.FormatUint(uint64(segment&^hardenedStart), 10)
		if p.Hardened(i) {
			tokens[i] += tokenHardened
		}
	}
	return strings.Join(tokens, tokenSeparator)
}
