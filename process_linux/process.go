//go:build linux

// Package process_linux implements process.AddressSpace on Linux using
// /proc/<pid>/mem as the privileged handle.
package process_linux

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"syscall"

	"vmpatch/process"
	"vmpatch/process/memory_map"
)

// LinuxProcess implements the process.AddressSpace interface for Linux systems.
//
// A LinuxProcess is either fully initialized or not returned at all.
// ReadBytes may be called from several goroutines at once; nothing else may.
type LinuxProcess struct {
	pid    process.ProcessID
	mem    *os.File
	io     memoryIO
	access AccessMode
	self   bool

	exe         string
	image       imageInfo
	baseAddress process.ProcessMemoryAddress
	defaultBase process.ProcessMemoryAddress
	aslrOffset  process.ProcessMemoryAddress
	pageSize    uint64
}

var _ process.AddressSpace = (*LinuxProcess)(nil)

// Open attaches to pid, locates its main executable image and computes the
// ASLR offset. The steps run in that order and the first failure is returned.
func Open(pid process.ProcessID, opts ...Option) (*LinuxProcess, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	mem, err := attach(pid)
	if err != nil {
		return nil, err
	}

	p := &LinuxProcess{
		pid:      pid,
		mem:      mem,
		access:   o.access,
		self:     pid == process.CurrentProcessID(),
		pageSize: uint64(os.Getpagesize()),
	}
	switch o.access {
	case AccessVM:
		p.io = vmIO{pid: pid}
	default:
		p.io = procMemIO{f: mem}
	}

	if err := p.init(); err != nil {
		mem.Close()
		return nil, err
	}

	return p, nil
}

func (p *LinuxProcess) init() error {
	exe, base, err := findMainImage(p.pid)
	if err != nil {
		return err
	}

	image, err := readImage(p.io, base)
	if err != nil {
		return fmt.Errorf("get image size at %s: %w", base, err)
	}

	defaultBase, err := image.defaultBaseFor(runtime.GOARCH, p.pageSize, base)
	if err != nil {
		return fmt.Errorf("get image size at %s: %w", base, err)
	}

	p.exe = exe
	p.image = image
	p.baseAddress = base
	p.defaultBase = defaultBase
	p.aslrOffset = base - defaultBase
	return nil
}

// attach opens the target's memory file. pid < 0 never names a process.
func attach(pid process.ProcessID) (*os.File, error) {
	if pid < 0 {
		return nil, process.NewOSError("attach", syscall.ESRCH)
	}

	mem, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		return nil, process.ErrorFrom("attach", err)
	}
	return mem, nil
}

// findMainImage returns the executable path and the start of its lowest
// file-offset-0 mapping.
func findMainImage(pid process.ProcessID) (string, process.ProcessMemoryAddress, error) {
	exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return "", 0, process.ErrorFrom("find main image", err)
	}

	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(pid))
	if err != nil {
		return "", 0, process.ErrorFrom("find main image", err)
	}

	item, ok := memory_map.FindImage(exe, mm)
	if !ok {
		return "", 0, &process.OSError{Op: "find main image " + exe, Kind: process.ErrInvalidAddress}
	}

	return exe, process.ProcessMemoryAddress(item.Address), nil
}

// Close releases the memory handle. Further calls return nil.
func (p *LinuxProcess) Close() error {
	if p.mem == nil {
		return nil
	}
	err := p.mem.Close()
	p.mem = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	return p.pid
}

func (p *LinuxProcess) BaseAddress() process.ProcessMemoryAddress {
	return p.baseAddress
}

func (p *LinuxProcess) ASLROffset() process.ProcessMemoryAddress {
	return p.aslrOffset
}

// DefaultBaseAddress is where the image would be mapped without randomization.
func (p *LinuxProcess) DefaultBaseAddress() process.ProcessMemoryAddress {
	return p.defaultBase
}

// ImageSize is the span of the image's loadable segments.
func (p *LinuxProcess) ImageSize() process.ProcessMemorySize {
	return p.image.size
}

// IsPIE reports whether the image is position independent.
func (p *LinuxProcess) IsPIE() bool {
	return p.image.pie
}

func (p *LinuxProcess) ExecutablePath() string {
	return p.exe
}

func (p *LinuxProcess) Access() AccessMode {
	return p.access
}

// GetMemoryMap returns the current regions backed by the main executable.
func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(p.pid))
	if err != nil {
		return nil, process.ErrorFrom("read memory map", err)
	}
	return memory_map.ImageRegions(p.exe, mm), nil
}
