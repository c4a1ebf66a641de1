package process

import "vmpatch/hexdump"

// Memory is the memory access layer of an opened address space.
// Every call blocks in the OS and reads or writes the target's live memory.
type Memory interface {
	// SetProtection changes the protection of the pages covering r to exactly prot.
	SetProtection(prot Protection, r AddressRange) error

	// ReadBytes copies r out of the target. It returns exactly r.Size bytes.
	ReadBytes(r AddressRange) ([]byte, error)

	// WriteBytes overwrites r with the first r.Size bytes of data.
	// data must hold at least r.Size bytes.
	WriteBytes(data []byte, r AddressRange) error
}

// AddressSpace is a privileged handle to a target process's memory together
// with the location of its main executable image.
type AddressSpace interface {
	Memory

	// GetPID returns the process ID
	GetPID() ProcessID

	// BaseAddress is where the main executable image is mapped.
	BaseAddress() ProcessMemoryAddress

	// ASLROffset is BaseAddress minus the image's default base address.
	ASLROffset() ProcessMemoryAddress

	// Close releases the handle.
	Close() error
}

// WriteHex decodes hexString and writes it to r.
func WriteHex(mem Memory, hexString string, r AddressRange) error {
	data, err := hexdump.Decode(hexString)
	if err != nil {
		return err
	}
	return mem.WriteBytes(data, r)
}
