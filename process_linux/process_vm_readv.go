//go:build linux

package process_linux

import (
	"unsafe"

	"vmpatch/process"

	"golang.org/x/sys/unix"
)

// vmIO reads and writes with process_vm_readv/process_vm_writev. It only needs
// the PID, but access is checked by the kernel on every call.
type vmIO struct {
	pid process.ProcessID
}

// process_vm_readv uses the process_vm_readv syscall to read memory from another process
func process_vm_readv(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	// Create iovec for local buffer
	localIov := unix.Iovec{Base: &localBuf[0]}
	localIov.SetLen(len(localBuf))

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, process.NewOSError("process_vm_readv", errno)
	}

	return int(n), nil
}

func (m vmIO) readAt(b []byte, addr process.ProcessMemoryAddress) (int, error) {
	return process_vm_readv(m.pid, b, addr)
}
