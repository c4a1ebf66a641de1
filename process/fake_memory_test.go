package process

import "fmt"

// fakeMemory is an in-memory Memory starting at base.
type fakeMemory struct {
	base ProcessMemoryAddress
	data []byte
	prot Protection

	calls []string

	// dropWrites makes WriteBytes report success without storing anything.
	dropWrites bool
	protErr    error
}

func newFakeMemory(base ProcessMemoryAddress, data []byte) *fakeMemory {
	return &fakeMemory{base: base, data: append([]byte(nil), data...), prot: ProtectionRead | ProtectionExecute}
}

func (m *fakeMemory) bounds(r AddressRange) (int, int, error) {
	if r.Start < m.base || int(r.Start-m.base)+int(r.Size) > len(m.data) {
		return 0, 0, &OSError{Op: "fake " + r.String(), Kind: ErrInvalidAddress}
	}
	lo := int(r.Start - m.base)
	return lo, lo + int(r.Size), nil
}

func (m *fakeMemory) SetProtection(prot Protection, r AddressRange) error {
	m.calls = append(m.calls, fmt.Sprintf("protect %s", prot))
	if m.protErr != nil {
		return m.protErr
	}
	m.prot = prot
	return nil
}

func (m *fakeMemory) ReadBytes(r AddressRange) ([]byte, error) {
	m.calls = append(m.calls, "read")
	lo, hi, err := m.bounds(r)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), m.data[lo:hi]...), nil
}

func (m *fakeMemory) WriteBytes(data []byte, r AddressRange) error {
	m.calls = append(m.calls, "write")
	if len(data) < int(r.Size) {
		return &OSError{Op: "fake write", Kind: ErrInvalidAddress}
	}
	lo, hi, err := m.bounds(r)
	if err != nil {
		return err
	}
	if !m.prot.Has(ProtectionWrite) {
		return NewOSError("fake write", 13) // EACCES
	}
	if !m.dropWrites {
		copy(m.data[lo:hi], data)
	}
	return nil
}
