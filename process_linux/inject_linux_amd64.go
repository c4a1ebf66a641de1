//go:build linux && amd64

package process_linux

import (
	"fmt"
	"runtime"

	"vmpatch/process"

	"golang.org/x/sys/unix"
)

// syscall; int3
var syscallStub = []byte{0x0f, 0x05, 0xcc}

// mprotectRemote runs mprotect inside the target by stopping its main thread
// and executing a syscall instruction at the thread's current PC.
func mprotectRemote(pid process.ProcessID, pages process.AddressRange, prot process.Protection) error {
	ret, err := remoteSyscall(int(pid), unix.SYS_MPROTECT, uint64(pages.Start), uint64(pages.Size), uint64(protToUnix(prot)))
	if err != nil {
		return err
	}
	if errno := syscallErrno(ret); errno != 0 {
		return process.NewOSError("remote mprotect "+pages.String(), errno)
	}
	return nil
}

// syscallErrno decodes a raw syscall return value.
func syscallErrno(ret uint64) unix.Errno {
	if v := int64(ret); v < 0 && v >= -4095 {
		return unix.Errno(-v)
	}
	return 0
}

// remoteSyscall executes syscall nr with up to three arguments in the
// stopped target and returns the raw value of rax. The original code and
// registers are restored before detaching.
func remoteSyscall(pid int, nr uint64, a1, a2, a3 uint64) (ret uint64, err error) {
	// All ptrace requests must come from the thread that attached.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := unix.PtraceAttach(pid); err != nil {
		return 0, process.ErrorFrom("ptrace attach", err)
	}
	defer func() {
		if derr := unix.PtraceDetach(pid); derr != nil && err == nil {
			err = process.ErrorFrom("ptrace detach", derr)
		}
	}()

	if err := waitStopped(pid); err != nil {
		return 0, err
	}

	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(pid, &regs); err != nil {
		return 0, process.ErrorFrom("ptrace getregs", err)
	}
	defer func() {
		if rerr := unix.PtraceSetRegs(pid, &regs); rerr != nil && err == nil {
			err = process.ErrorFrom("ptrace setregs", rerr)
		}
	}()

	pc := uintptr(regs.PC())
	orig := make([]byte, len(syscallStub))
	if _, err := unix.PtracePeekData(pid, pc, orig); err != nil {
		return 0, process.ErrorFrom(fmt.Sprintf("ptrace peek 0x%X", pc), err)
	}
	if _, err := unix.PtracePokeData(pid, pc, syscallStub); err != nil {
		return 0, process.ErrorFrom(fmt.Sprintf("ptrace poke 0x%X", pc), err)
	}
	defer func() {
		if _, perr := unix.PtracePokeData(pid, pc, orig); perr != nil && err == nil {
			err = process.ErrorFrom(fmt.Sprintf("ptrace restore 0x%X", pc), perr)
		}
	}()

	call := regs
	call.Rax = nr
	call.Rdi = a1
	call.Rsi = a2
	call.Rdx = a3
	// Keep the kernel from treating the stop as an interrupted syscall to restart.
	call.Orig_rax = ^uint64(0)
	if err := unix.PtraceSetRegs(pid, &call); err != nil {
		return 0, process.ErrorFrom("ptrace setregs", err)
	}

	if err := unix.PtraceCont(pid, 0); err != nil {
		return 0, process.ErrorFrom("ptrace cont", err)
	}
	if err := waitTrap(pid); err != nil {
		return 0, err
	}

	if err := unix.PtraceGetRegs(pid, &call); err != nil {
		return 0, process.ErrorFrom("ptrace getregs", err)
	}

	return call.Rax, nil
}
