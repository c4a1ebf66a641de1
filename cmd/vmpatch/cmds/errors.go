package cmds

import (
	"errors"
	"fmt"
	"os"

	"vmpatch/process"
)

const (
	exitOK      = 0
	exitFailure = 1
	// exitUsage is EX_USAGE from sysexits.h.
	exitUsage = 64
)

var (
	errNotPrivileged = errors.New("you have to run this as root")
	errDeclined      = errors.New("patch declined")
)

// usageError marks a malformed command line.
type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

func usagef(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

var geteuid = os.Geteuid

// checkPrivilege refuses to touch another process's memory without root.
func checkPrivilege(pid process.ProcessID) error {
	if pid == process.CurrentProcessID() || geteuid() == 0 {
		return nil
	}
	return fmt.Errorf("process %d: %w", pid, errNotPrivileged)
}
