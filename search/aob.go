// Package search finds byte patterns in the memory of an opened process.
package search

import (
	"bytes"
	"fmt"
	"strings"

	"vmpatch/hexdump"
)

// AOB (Array of Bytes) represents a pattern to search for in memory
type AOB struct {
	Pattern []byte // The byte pattern to search for
	Mask    []byte // 0xFF means exact match and 0x00 means wildcard
}

// NewAOB pairs pattern with mask. A nil mask matches every byte exactly.
func NewAOB(pattern, mask []byte) (AOB, error) {
	if len(pattern) == 0 {
		return AOB{}, fmt.Errorf("empty pattern")
	}
	if mask == nil {
		mask = bytes.Repeat([]byte{0xFF}, len(pattern))
	}
	if len(pattern) != len(mask) {
		return AOB{}, fmt.Errorf("mask length (%d) doesn't match pattern length (%d)", len(mask), len(pattern))
	}
	return AOB{Pattern: pattern, Mask: mask}, nil
}

// ParseAOB parses a hex pattern where "??" is a wildcard byte, e.g.
// "74 05 ?? 90" or "0x7405??90". Spaces are ignored.
func ParseAOB(s string) (AOB, error) {
	digits := strings.Join(strings.Fields(s), "")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits = digits[2:]
	}
	if digits == "" || len(digits)%2 != 0 {
		return AOB{}, fmt.Errorf("%w: %q", hexdump.ErrInvalidHexString, s)
	}

	pattern := make([]byte, 0, len(digits)/2)
	mask := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		pair := digits[i : i+2]
		if pair == "??" {
			pattern = append(pattern, 0)
			mask = append(mask, 0)
			continue
		}
		b, err := hexdump.Decode(pair)
		if err != nil {
			return AOB{}, fmt.Errorf("%w: %q", hexdump.ErrInvalidHexString, s)
		}
		pattern = append(pattern, b[0])
		mask = append(mask, 0xFF)
	}

	return NewAOB(pattern, mask)
}

// Len is the number of bytes the pattern spans.
func (aob AOB) Len() int {
	return len(aob.Pattern)
}

func (aob AOB) String() string {
	parts := make([]string, len(aob.Pattern))
	for i, b := range aob.Pattern {
		if aob.Mask[i] == 0 {
			parts[i] = "??"
		} else {
			parts[i] = fmt.Sprintf("%02X", b)
		}
	}
	return strings.Join(parts, " ")
}

// Matches returns the offsets in data where the pattern occurs.
func (aob AOB) Matches(data []byte) []int {
	if len(data) < len(aob.Pattern) {
		return nil
	}

	var matches []int
	for i := 0; i <= len(data)-len(aob.Pattern); i++ {
		matched := true
		for j := range aob.Pattern {
			if data[i+j]&aob.Mask[j] != aob.Pattern[j]&aob.Mask[j] {
				matched = false
				break
			}
		}
		if matched {
			matches = append(matches, i)
		}
	}
	return matches
}
