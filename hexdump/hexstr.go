package hexdump

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidHexString is returned for empty or malformed hexadecimal input.
var ErrInvalidHexString = errors.New("invalid hexadecimal input string")

func trimPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

// Encode renders data as an uppercase hex string prefixed with 0x.
func Encode(data []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(data))
}

// Decode parses a hex string with an optional 0x/0X prefix.
// Empty input, odd length and non-hex digits are rejected.
func Decode(s string) ([]byte, error) {
	digits := trimPrefix(strings.TrimSpace(s))
	if digits == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHexString, s)
	}
	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidHexString, s, err)
	}
	return data, nil
}

// FormatAddress renders addr as 0x followed by uppercase hex digits.
func FormatAddress(addr uint64) string {
	return fmt.Sprintf("0x%X", addr)
}

// ParseAddress parses a hex address with an optional 0x/0X prefix.
func ParseAddress(s string) (uint64, error) {
	digits := trimPrefix(strings.TrimSpace(s))
	if digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHexString, s)
	}
	addr, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHexString, s)
	}
	return addr, nil
}
