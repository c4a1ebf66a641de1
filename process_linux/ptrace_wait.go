//go:build linux

package process_linux

import (
	"vmpatch/process"

	"golang.org/x/sys/unix"
)

// waitStopped waits for the stop that follows PTRACE_ATTACH.
func waitStopped(pid int) error {
	for {
		var ws unix.WaitStatus
		if _, err := unix.Wait4(pid, &ws, unix.WALL, nil); err != nil {
			return process.ErrorFrom("wait", err)
		}
		if ws.Exited() || ws.Signaled() {
			return process.NewOSError("wait", unix.ESRCH)
		}
		if ws.Stopped() {
			return nil
		}
	}
}

// waitTrap resumes the tracee past unrelated stops until it hits the
// breakpoint that ends an injected stub. Other signals delivered meanwhile
// are suppressed; a fault inside the stub aborts.
func waitTrap(pid int) error {
	for {
		var ws unix.WaitStatus
		if _, err := unix.Wait4(pid, &ws, unix.WALL, nil); err != nil {
			return process.ErrorFrom("wait", err)
		}
		if ws.Exited() || ws.Signaled() {
			return process.NewOSError("wait", unix.ESRCH)
		}
		if ws.Stopped() {
			switch ws.StopSignal() {
			case unix.SIGTRAP:
				return nil
			case unix.SIGSEGV, unix.SIGBUS, unix.SIGILL:
				return &process.OSError{Op: "injected syscall faulted with " + ws.StopSignal().String(), Kind: process.ErrAborted}
			}
		}
		if err := unix.PtraceCont(pid, 0); err != nil {
			return process.ErrorFrom("ptrace cont", err)
		}
	}
}
