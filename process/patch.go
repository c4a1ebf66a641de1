package process

import (
	"bytes"

	"vmpatch/hexdump"
)

// PatchState is the outcome of a read-only Check.
type PatchState int

const (
	// PatchStateExpected means the target holds the expected bytes and can be patched.
	PatchStateExpected PatchState = iota
	// PatchStateApplied means the target already holds the replacement bytes.
	PatchStateApplied
)

func (s PatchState) String() string {
	switch s {
	case PatchStateExpected:
		return "expected"
	case PatchStateApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Patch replaces expected with replacement at addr.
//
// The pages are made readable, writable and executable first. The current
// bytes must equal expected; if they already equal replacement the call fails
// with ErrAlreadyPatched. After the write the range is read back and must
// equal replacement.
//
// The target is not suspended, so another thread may change the range between
// the pre-check read and the write.
func Patch(mem Memory, expected, replacement []byte, addr ProcessMemoryAddress) error {
	if len(replacement) != len(expected) {
		return &PatchError{Kind: ErrSizeMismatch}
	}

	r := NewAddressRange(addr, ProcessMemorySize(len(replacement)))

	if err := mem.SetProtection(ProtectionAll, r); err != nil {
		return err
	}

	original, err := mem.ReadBytes(r)
	if err != nil {
		return err
	}

	if bytes.Equal(original, replacement) {
		return &PatchError{Kind: ErrAlreadyPatched}
	}

	if !bytes.Equal(original, expected) {
		return &PatchError{Kind: ErrMemoryNotExpected, Actual: original, Expected: expected}
	}

	if err := mem.WriteBytes(replacement, r); err != nil {
		return err
	}

	final, err := mem.ReadBytes(r)
	if err != nil {
		return err
	}

	if !bytes.Equal(final, replacement) {
		return &PatchError{Kind: ErrMemoryNotPatched, Actual: final}
	}

	return nil
}

// PatchHex is Patch with both byte sequences given as hex strings.
func PatchHex(mem Memory, expectedHex, replacementHex string, addr ProcessMemoryAddress) error {
	expected, err := hexdump.Decode(expectedHex)
	if err != nil {
		return err
	}
	replacement, err := hexdump.Decode(replacementHex)
	if err != nil {
		return err
	}
	return Patch(mem, expected, replacement, addr)
}

// Check reads the range Patch would touch and reports which of the two byte
// sequences it holds. It changes neither protections nor memory.
func Check(mem Memory, expected, replacement []byte, addr ProcessMemoryAddress) (PatchState, error) {
	if len(replacement) != len(expected) {
		return 0, &PatchError{Kind: ErrSizeMismatch}
	}

	current, err := mem.ReadBytes(NewAddressRange(addr, ProcessMemorySize(len(replacement))))
	if err != nil {
		return 0, err
	}

	switch {
	case bytes.Equal(current, replacement):
		return PatchStateApplied, nil
	case bytes.Equal(current, expected):
		return PatchStateExpected, nil
	default:
		return 0, &PatchError{Kind: ErrMemoryNotExpected, Actual: current, Expected: expected}
	}
}
