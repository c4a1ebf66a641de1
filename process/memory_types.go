package process

import (
	"fmt"
	"strings"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) String() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) String() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// AddressRange is a contiguous byte range in the target's address space.
type AddressRange struct {
	Start ProcessMemoryAddress
	Size  ProcessMemorySize
}

// NewAddressRange returns the range of size bytes starting at start.
func NewAddressRange(start ProcessMemoryAddress, size ProcessMemorySize) AddressRange {
	return AddressRange{Start: start, Size: size}
}

// AddressRangeFromTo returns the inclusive range [start, end].
// end must be strictly greater than start.
func AddressRangeFromTo(start, end ProcessMemoryAddress) (AddressRange, error) {
	if end <= start {
		return AddressRange{}, fmt.Errorf("range %s-%s: end must exceed start: %w", start, end, ErrInvalidArgument)
	}
	return AddressRange{Start: start, Size: ProcessMemorySize(end-start) + 1}, nil
}

// End returns the last address covered by the range.
func (r AddressRange) End() ProcessMemoryAddress {
	if r.Size == 0 {
		return r.Start
	}
	return r.Start + ProcessMemoryAddress(r.Size) - 1
}

// Contains reports whether addr falls within the range.
func (r AddressRange) Contains(addr ProcessMemoryAddress) bool {
	return r.Size > 0 && addr >= r.Start && addr <= r.End()
}

// PageAligned widens the range to whole pages of the given size.
func (r AddressRange) PageAligned(pageSize uint64) AddressRange {
	start := uint64(r.Start) &^ (pageSize - 1)
	end := uint64(r.Start) + uint64(r.Size)
	end = (end + pageSize - 1) &^ (pageSize - 1)
	return AddressRange{Start: ProcessMemoryAddress(start), Size: ProcessMemorySize(end - start)}
}

func (r AddressRange) String() string {
	return fmt.Sprintf("%s-%s (%s)", r.Start, r.End(), r.Size)
}

// Protection is the set of access rights applied to a range of pages.
type Protection uint8

const (
	ProtectionNone    Protection = 0
	ProtectionRead    Protection = 1 << 0
	ProtectionWrite   Protection = 1 << 1
	ProtectionExecute Protection = 1 << 2

	ProtectionAll = ProtectionRead | ProtectionWrite | ProtectionExecute
)

// Has reports whether every right in other is present in p.
func (p Protection) Has(other Protection) bool {
	return p&other == other
}

// String renders the set in /proc/<pid>/maps style, e.g. "r-x".
func (p Protection) String() string {
	var sb strings.Builder
	for _, b := range []struct {
		bit Protection
		ch  byte
	}{{ProtectionRead, 'r'}, {ProtectionWrite, 'w'}, {ProtectionExecute, 'x'}} {
		if p.Has(b.bit) {
			sb.WriteByte(b.ch)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// ParseProtection parses the permission column of /proc/<pid>/maps.
func ParseProtection(perms string) Protection {
	var p Protection
	if len(perms) > 0 && perms[0] == 'r' {
		p |= ProtectionRead
	}
	if len(perms) > 1 && perms[1] == 'w' {
		p |= ProtectionWrite
	}
	if len(perms) > 2 && perms[2] == 'x' {
		p |= ProtectionExecute
	}
	return p
}
