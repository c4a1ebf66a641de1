//go:build linux

package process_linux

import "fmt"

// AccessMode selects how bytes are moved in and out of the target.
type AccessMode string

const (
	// AccessProcMem uses pread/pwrite on /proc/<pid>/mem. Like a debugger, it
	// is not stopped by page protection.
	AccessProcMem AccessMode = "procmem"

	// AccessVM uses process_vm_readv/process_vm_writev, which honour page
	// protection.
	AccessVM AccessMode = "vm"
)

// ParseAccessMode accepts "procmem", "vm" or "" (procmem).
func ParseAccessMode(s string) (AccessMode, error) {
	switch AccessMode(s) {
	case "", AccessProcMem:
		return AccessProcMem, nil
	case AccessVM:
		return AccessVM, nil
	default:
		return "", fmt.Errorf("unknown access mode %q", s)
	}
}

type options struct {
	access AccessMode
}

func defaultOptions() options {
	return options{access: AccessProcMem}
}

// Option configures Open.
type Option func(*options)

// WithAccess selects the memory access backend.
func WithAccess(mode AccessMode) Option {
	return func(o *options) {
		o.access = mode
	}
}
