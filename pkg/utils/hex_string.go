package utils

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// HexString is a byte slice carried as a hex string in JSON.
type HexString []byte

func (s HexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(Btox(s))
}

// UnmarshalJSON accepts plain or 0x prefixed hex.
func (s *HexString) UnmarshalJSON(data []byte) error {
	var x string
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}

	b, err := Xtob(x)
	if err != nil {
		return err
	}

	*s = b
	return nil
}

func (s HexString) String() string {
	return Btox(s)
}

func Btox(bytes []byte) string {
	return hex.EncodeToString(bytes)
}

func Xtob(str string) ([]byte, error) {
	str = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(str), "0x"), "0X")
	b, err := hex.DecodeString(str)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex string")
	}
	return b, nil
}
