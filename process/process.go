// Package process provides the OS-neutral types, error taxonomy and the
// verified patch protocol used to inspect and modify another process's memory.
package process

import (
	"errors"
	"fmt"
	"syscall"

	"vmpatch/hexdump"
)

var (
	// ErrProcessNotFound is returned when the target process does not exist.
	ErrProcessNotFound = errors.New("process not found")

	// ErrPermissionDenied is returned when the caller may not access the target's memory.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidAddress is returned when a read or write produced an unusable
	// result or the supplied buffer is too short for the range.
	ErrInvalidAddress = errors.New("invalid address")

	ErrInvalidArgument  = errors.New("invalid argument")
	ErrResourceShortage = errors.New("resource shortage")

	// ErrAborted is returned when image size discovery cannot produce a result.
	ErrAborted = errors.New("aborted")

	// ErrNotSupported is what every unmapped OS status collapses to.
	ErrNotSupported = errors.New("not supported")

	ErrInvalidHexString = hexdump.ErrInvalidHexString

	ErrSizeMismatch      = errors.New("expected memory and patched memory should have the same size")
	ErrAlreadyPatched    = errors.New("memory already patched")
	ErrMemoryNotExpected = errors.New("memory different to the expected")
	ErrMemoryNotPatched  = errors.New("memory not patched")

	ErrPidNotFoundForProcessName = errors.New("process identifier unknown")
)

// MapErrno translates an OS status code into one of the error kinds above.
func MapErrno(errno syscall.Errno) error {
	switch errno {
	case syscall.ESRCH, syscall.ENOENT:
		return ErrProcessNotFound
	case syscall.EPERM, syscall.EACCES:
		return ErrPermissionDenied
	case syscall.EFAULT, syscall.EIO, syscall.ENXIO:
		return ErrInvalidAddress
	case syscall.EINVAL:
		return ErrInvalidArgument
	case syscall.ENOMEM, syscall.EAGAIN:
		return ErrResourceShortage
	default:
		return ErrNotSupported
	}
}

// OSError is a failed OS-facing call. Errno is zero when the failure was
// detected without an OS status, e.g. a short read.
type OSError struct {
	Op    string
	Kind  error
	Errno syscall.Errno
}

// NewOSError builds an OSError whose kind is derived from errno.
func NewOSError(op string, errno syscall.Errno) *OSError {
	return &OSError{Op: op, Kind: MapErrno(errno), Errno: errno}
}

// ErrorFrom converts err into an *OSError when it carries an errno, and
// returns it unchanged otherwise.
func ErrorFrom(op string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OSError
	if errors.As(err, &oe) {
		return err
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return NewOSError(op, errno)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (e *OSError) Error() string {
	if e.Errno == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v (errno %d: %s)", e.Op, e.Kind, int(e.Errno), e.Errno.Error())
}

func (e *OSError) Unwrap() []error {
	if e.Errno == 0 {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Errno}
}

// PatchError is a failure of the patch protocol. Actual and Expected are set
// for the kinds that carry them.
type PatchError struct {
	Kind     error
	Actual   []byte
	Expected []byte
}

func (e *PatchError) Error() string {
	switch e.Kind {
	case ErrMemoryNotExpected:
		return fmt.Sprintf("%v. Original: %s vs. Expected: %s", e.Kind, hexdump.Encode(e.Actual), hexdump.Encode(e.Expected))
	case ErrMemoryNotPatched:
		return fmt.Sprintf("%v: %s", e.Kind, hexdump.Encode(e.Actual))
	default:
		return e.Kind.Error()
	}
}

func (e *PatchError) Unwrap() error {
	return e.Kind
}

// NameNotFoundError is returned by a ProcessResolver when nothing matches.
type NameNotFoundError struct {
	Name string
}

func (e *NameNotFoundError) Error() string {
	return fmt.Sprintf("process identifier of %s unknown", e.Name)
}

func (e *NameNotFoundError) Unwrap() error {
	return ErrPidNotFoundForProcessName
}
