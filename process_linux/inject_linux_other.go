//go:build linux && !amd64

package process_linux

import (
	"runtime"

	"vmpatch/process"
)

func mprotectRemote(pid process.ProcessID, pages process.AddressRange, prot process.Protection) error {
	return &process.OSError{Op: "remote mprotect on " + runtime.GOARCH, Kind: process.ErrNotSupported}
}
