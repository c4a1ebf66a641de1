//go:build linux

package process_linux

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
	"unsafe"

	"vmpatch/process"
	"vmpatch/process/memory_map"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var accessModes = []AccessMode{AccessProcMem, AccessVM}

func openSelf(t *testing.T, mode AccessMode) *LinuxProcess {
	t.Helper()
	p, err := Open(process.CurrentProcessID(), WithAccess(mode))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

// mapPage returns one anonymous page of the test process with the given protection.
func mapPage(t *testing.T, prot int) ([]byte, process.ProcessMemoryAddress) {
	t.Helper()
	page, err := unix.Mmap(-1, 0, os.Getpagesize(), prot, unix.MAP_ANON|unix.MAP_PRIVATE)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Mprotect(page, unix.PROT_READ|unix.PROT_WRITE)
		unix.Munmap(page)
	})
	return page, process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&page[0])))
}

func TestOpenNotFound(t *testing.T) {
	_, err := Open(-1)
	assert.ErrorIs(t, err, process.ErrProcessNotFound)

	_, err = Open(0x3FFFFFFF)
	assert.ErrorIs(t, err, process.ErrProcessNotFound)
}

func TestOpenSelf(t *testing.T) {
	for _, mode := range accessModes {
		t.Run(string(mode), func(t *testing.T) {
			assert := assert.New(t)
			p := openSelf(t, mode)

			assert.Equal(process.CurrentProcessID(), p.GetPID())
			assert.Equal(mode, p.Access())
			assert.GreaterOrEqual(p.BaseAddress(), p.DefaultBaseAddress())
			assert.Equal(p.BaseAddress()-p.DefaultBaseAddress(), p.ASLROffset())
			assert.Greater(p.ImageSize(), process.ProcessMemorySize(0))

			exe, err := os.Executable()
			require.NoError(t, err)
			assert.Equal(exe, p.ExecutablePath())

			magic, err := p.ReadBytes(process.NewAddressRange(p.BaseAddress(), 4))
			if assert.NoError(err) {
				assert.Equal([]byte{0x7F, 'E', 'L', 'F'}, magic)
			}

			regions, err := p.GetMemoryMap()
			if assert.NoError(err) && assert.NotEmpty(regions) {
				assert.Equal(uint64(p.BaseAddress()), regions[0].Address)
			}
		})
	}
}

func TestClose(t *testing.T) {
	p, err := Open(process.CurrentProcessID())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}

func TestReadWriteSelf(t *testing.T) {
	for _, mode := range accessModes {
		t.Run(string(mode), func(t *testing.T) {
			assert := assert.New(t)
			p := openSelf(t, mode)
			page, addr := mapPage(t, unix.PROT_READ|unix.PROT_WRITE)

			r := process.NewAddressRange(addr+8, 4)
			assert.NoError(p.WriteBytes([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0xFF}, r))
			assert.Equal([]byte{0xDE, 0xAD, 0xBE, 0xEF}, page[8:12])
			assert.Equal(byte(0), page[12], "only r.Size bytes are written")

			data, err := p.ReadBytes(r)
			if assert.NoError(err) {
				assert.Equal([]byte{0xDE, 0xAD, 0xBE, 0xEF}, data)
			}

			assert.NoError(process.WriteHex(p, "0x0102", process.NewAddressRange(addr, 2)))
			assert.Equal([]byte{1, 2}, page[:2])
		})
	}
}

func TestReadWriteErrors(t *testing.T) {
	for _, mode := range accessModes {
		t.Run(string(mode), func(t *testing.T) {
			assert := assert.New(t)
			p := openSelf(t, mode)
			_, addr := mapPage(t, unix.PROT_READ|unix.PROT_WRITE)

			data, err := p.ReadBytes(process.NewAddressRange(addr, 0))
			assert.NoError(err)
			assert.Empty(data)

			_, err = p.ReadBytes(process.NewAddressRange(0, 4))
			assert.ErrorIs(err, process.ErrInvalidAddress)

			err = p.WriteBytes([]byte{1}, process.NewAddressRange(addr, 2))
			assert.ErrorIs(err, process.ErrInvalidAddress)

			err = p.WriteBytes([]byte{1, 2}, process.NewAddressRange(0, 2))
			assert.ErrorIs(err, process.ErrInvalidAddress)

			_, err = p.ReadBytes(process.NewAddressRange(p.BaseAddress(), process.ProcessMemorySize(^uint(0)>>1)))
			assert.ErrorIs(err, process.ErrInvalidAddress)

			_, err = p.ReadBytes(process.NewAddressRange(^process.ProcessMemoryAddress(0)-1, 16))
			assert.ErrorIs(err, process.ErrInvalidAddress)
		})
	}
}

// procState returns the state letter from /proc/<pid>/stat.
func procState(pid int) string {
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return ""
	}
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 {
		return ""
	}
	fields := strings.Fields(string(stat[i+1:]))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func TestExitedTarget(t *testing.T) {
	for _, mode := range accessModes {
		t.Run(string(mode), func(t *testing.T) {
			assert := assert.New(t)
			cmd, _ := startNamed(t)
			pid := cmd.Process.Pid

			p, err := Open(process.ProcessID(pid), WithAccess(mode))
			if errors.Is(err, process.ErrPermissionDenied) {
				t.Skipf("cannot attach to child: %v", err)
			}
			require.NoError(t, err)
			defer p.Close()
			base := p.BaseAddress()

			// Killed but not reaped, the child stays a zombie without an address space.
			require.NoError(t, cmd.Process.Kill())
			require.Eventually(t, func() bool {
				return procState(pid) == "Z"
			}, 5*time.Second, 10*time.Millisecond)

			_, err = p.ReadBytes(process.NewAddressRange(base, 4))
			assert.ErrorIs(err, process.ErrProcessNotFound)

			err = p.WriteBytes([]byte{0x7F}, process.NewAddressRange(base, 1))
			assert.ErrorIs(err, process.ErrProcessNotFound)
			var oe *process.OSError
			assert.ErrorAs(err, &oe)
		})
	}
}

func pagePerms(t *testing.T, addr process.ProcessMemoryAddress) string {
	t.Helper()
	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(os.Getpid())
	require.NoError(t, err)
	region := memory_map.GetMemoryRegionForAddress(uint64(addr), mm)
	require.NotNil(t, region)
	return region.Perms[:3]
}

func TestSetProtectionSelf(t *testing.T) {
	assert := assert.New(t)
	p := openSelf(t, AccessVM)
	_, addr := mapPage(t, unix.PROT_READ|unix.PROT_WRITE)

	assert.NoError(p.SetProtection(process.ProtectionRead, process.NewAddressRange(addr+10, 1)))
	assert.Equal("r--", pagePerms(t, addr))

	// process_vm_writev honours page protection.
	err := p.WriteBytes([]byte{1}, process.NewAddressRange(addr, 1))
	assert.ErrorIs(err, process.ErrInvalidAddress)

	assert.NoError(p.SetProtection(process.ProtectionAll, process.NewAddressRange(addr, 1)))
	assert.Equal("rwx", pagePerms(t, addr))
	assert.NoError(p.WriteBytes([]byte{1}, process.NewAddressRange(addr, 1)))
}

func TestPatchSelf(t *testing.T) {
	for _, mode := range accessModes {
		t.Run(string(mode), func(t *testing.T) {
			assert := assert.New(t)
			p := openSelf(t, mode)
			page, addr := mapPage(t, unix.PROT_READ|unix.PROT_WRITE)
			copy(page[0x20:], []byte{0x74, 0x05})
			require.NoError(t, unix.Mprotect(page, unix.PROT_READ))

			target := addr + 0x20
			assert.NoError(process.Patch(p, []byte{0x74, 0x05}, []byte{0x90, 0x90}, target))
			assert.Equal([]byte{0x90, 0x90}, page[0x20:0x22])

			err := process.Patch(p, []byte{0x74, 0x05}, []byte{0x90, 0x90}, target)
			assert.ErrorIs(err, process.ErrAlreadyPatched)

			err = process.Patch(p, []byte{0x11, 0x22}, []byte{0x33, 0x44}, target)
			assert.ErrorIs(err, process.ErrMemoryNotExpected)
			assert.Equal([]byte{0x90, 0x90}, page[0x20:0x22])

			state, err := process.Check(p, []byte{0x74, 0x05}, []byte{0x90, 0x90}, target)
			assert.NoError(err)
			assert.Equal(process.PatchStateApplied, state)
		})
	}
}

func TestParseAccessMode(t *testing.T) {
	assert := assert.New(t)

	for in, want := range map[string]AccessMode{"": AccessProcMem, "procmem": AccessProcMem, "vm": AccessVM} {
		got, err := ParseAccessMode(in)
		assert.NoError(err)
		assert.Equal(want, got)
	}
	_, err := ParseAccessMode("ptrace")
	assert.Error(err)
}
