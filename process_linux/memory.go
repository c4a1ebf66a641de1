//go:build linux

package process_linux

import (
	"errors"
	"io"
	"os"

	"vmpatch/process"
	"vmpatch/process/memory_map"
)

// memoryIO moves bytes between a local buffer and the target's address space.
type memoryIO interface {
	readAt(b []byte, addr process.ProcessMemoryAddress) (int, error)
	writeAt(b []byte, addr process.ProcessMemoryAddress) (int, error)
}

// procMemIO reads and writes through the /proc/<pid>/mem handle.
type procMemIO struct {
	f *os.File
}

func (m procMemIO) readAt(b []byte, addr process.ProcessMemoryAddress) (int, error) {
	n, err := m.f.ReadAt(b, int64(addr))
	if err != nil {
		return n, procMemError("pread /proc/pid/mem", err)
	}
	return n, nil
}

func (m procMemIO) writeAt(b []byte, addr process.ProcessMemoryAddress) (int, error) {
	n, err := m.f.WriteAt(b, int64(addr))
	if err != nil {
		return n, procMemError("pwrite /proc/pid/mem", err)
	}
	return n, nil
}

// procMemError maps a failed transfer on /proc/<pid>/mem. The file yields
// zero bytes once the target's address space is gone, which os.File reports
// as io.EOF on reads and io.ErrUnexpectedEOF on writes.
func procMemError(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &process.OSError{Op: op, Kind: process.ErrProcessNotFound}
	}
	return process.ErrorFrom(op, err)
}

// ReadBytes reads memory from the process in the specified range. The range
// must lie within the target's mappings.
func (p *LinuxProcess) ReadBytes(r process.AddressRange) ([]byte, error) {
	if r.Size == 0 {
		return []byte{}, nil
	}
	if err := p.checkMapped(r); err != nil {
		return nil, err
	}

	data := make([]byte, r.Size)
	n, err := p.io.readAt(data, r.Start)
	if err != nil {
		return nil, err
	}

	if n != len(data) {
		return nil, &process.OSError{Op: "read " + r.String(), Kind: process.ErrInvalidAddress}
	}

	return data, nil
}

// checkMapped fails unless r lies within the target's current mappings, so no
// buffer is allocated for a range that cannot be read.
func (p *LinuxProcess) checkMapped(r process.AddressRange) error {
	op := "read " + r.String()
	if uint64(r.Start)+uint64(r.Size) < uint64(r.Start) {
		return &process.OSError{Op: op, Kind: process.ErrInvalidAddress}
	}

	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(p.pid))
	if err != nil {
		return process.ErrorFrom(op, err)
	}
	// An exited process that has not been reaped has no mappings left.
	if len(mm) == 0 {
		return &process.OSError{Op: op, Kind: process.ErrProcessNotFound}
	}
	if !memory_map.Covers(uint64(r.Start), uint64(r.Size), mm) {
		return &process.OSError{Op: op, Kind: process.ErrInvalidAddress}
	}
	return nil
}

// WriteBytes writes the first r.Size bytes of data to the process memory
func (p *LinuxProcess) WriteBytes(data []byte, r process.AddressRange) error {
	if len(data) < int(r.Size) {
		return &process.OSError{Op: "write " + r.String(), Kind: process.ErrInvalidAddress}
	}
	if r.Size == 0 {
		return nil
	}

	n, err := p.io.writeAt(data[:r.Size], r.Start)
	if err != nil {
		return err
	}

	if n != int(r.Size) {
		return &process.OSError{Op: "write " + r.String(), Kind: process.ErrInvalidAddress}
	}

	return nil
}

// SetProtection changes the protection of the pages covering r
func (p *LinuxProcess) SetProtection(prot process.Protection, r process.AddressRange) error {
	pages := r.PageAligned(p.pageSize)
	if pages.Size == 0 {
		return nil
	}

	if p.self {
		return mprotectLocal(pages, prot)
	}
	return mprotectRemote(p.pid, pages, prot)
}
