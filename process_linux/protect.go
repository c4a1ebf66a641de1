//go:build linux

package process_linux

import (
	"vmpatch/process"

	"golang.org/x/sys/unix"
)

func protToUnix(prot process.Protection) int {
	flags := unix.PROT_NONE
	if prot.Has(process.ProtectionRead) {
		flags |= unix.PROT_READ
	}
	if prot.Has(process.ProtectionWrite) {
		flags |= unix.PROT_WRITE
	}
	if prot.Has(process.ProtectionExecute) {
		flags |= unix.PROT_EXEC
	}
	return flags
}

// mprotectLocal changes protection in the calling process. pages must be
// page aligned.
func mprotectLocal(pages process.AddressRange, prot process.Protection) error {
	_, _, errno := unix.Syscall(unix.SYS_MPROTECT, uintptr(pages.Start), uintptr(pages.Size), uintptr(protToUnix(prot)))
	if errno != 0 {
		return process.NewOSError("mprotect "+pages.String(), errno)
	}
	return nil
}
