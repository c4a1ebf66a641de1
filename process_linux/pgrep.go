//go:build linux

package process_linux

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"vmpatch/process"
)

// maxCommLen is the length the kernel truncates a process name (comm) to.
const maxCommLen = 15

// PgrepResolver resolves process names with `pgrep -i -x` and applies the
// same policy as ProcResolver: the oldest match, never the calling process.
// pgrep only sees comm, so names longer than comm can hold are resolved by
// scanning /proc instead.
type PgrepResolver struct {
	// Path to pgrep, looked up on PATH when empty.
	Path string
}

var _ process.ProcessResolver = PgrepResolver{}

func (r PgrepResolver) Resolve(name string) (process.ProcessID, error) {
	if name == "" {
		return 0, &process.NameNotFoundError{Name: name}
	}
	if len(name) > maxCommLen {
		return ProcResolver{}.Resolve(name)
	}

	path := r.Path
	if path == "" {
		var err error
		if path, err = exec.LookPath("pgrep"); err != nil {
			return 0, fmt.Errorf("pgrep: %w", err)
		}
	}

	out, err := exec.Command(path, "-i", "-x", "--", regexp.QuoteMeta(name)).Output()
	if err != nil {
		var exitErr *exec.ExitError
		// pgrep exits with 1 when no process matched.
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return 0, &process.NameNotFoundError{Name: name}
		}
		return 0, fmt.Errorf("pgrep %s: %w", name, err)
	}

	selfPID := os.Getpid()
	var best *candidate
	for _, field := range bytes.Fields(out) {
		pid, err := strconv.Atoi(string(field))
		if err != nil || pid <= 0 || pid == selfPID {
			continue
		}
		// The process may have exited since pgrep listed it.
		start, err := procStartTime(filepath.Join("/proc", strconv.Itoa(pid)))
		if err != nil {
			continue
		}
		c := candidate{pid: pid, start: start}
		if c.before(best) {
			best = &c
		}
	}

	if best == nil {
		return 0, &process.NameNotFoundError{Name: name}
	}
	return process.ProcessID(best.pid), nil
}

// ResolverKind names a ProcessResolver implementation.
type ResolverKind string

const (
	ResolverAuto  ResolverKind = "auto"
	ResolverPgrep ResolverKind = "pgrep"
	ResolverProc  ResolverKind = "proc"
)

// NewResolver returns the resolver for kind. Auto prefers pgrep when it is
// installed and falls back to scanning /proc.
func NewResolver(kind ResolverKind) (process.ProcessResolver, error) {
	switch kind {
	case "", ResolverAuto:
		if path, err := exec.LookPath("pgrep"); err == nil {
			return PgrepResolver{Path: path}, nil
		}
		return ProcResolver{}, nil
	case ResolverPgrep:
		return PgrepResolver{}, nil
	case ResolverProc:
		return ProcResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown resolver %q", kind)
	}
}
