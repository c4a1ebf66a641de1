//go:build linux

package process_linux

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vmpatch/process"
)

// ProcResolver resolves process names by scanning /proc. The calling
// process is never returned.
type ProcResolver struct {
	// Root is the procfs mount point, /proc when empty.
	Root string
}

var _ process.ProcessResolver = ProcResolver{}

func (r ProcResolver) root() string {
	if r.Root == "" {
		return "/proc"
	}
	return r.Root
}

type candidate struct {
	pid   int
	start uint64
}

// before reports whether c started before o, breaking ties on the lower pid.
// Every candidate is before nil.
func (c candidate) before(o *candidate) bool {
	return o == nil || c.start < o.start || (c.start == o.start && c.pid < o.pid)
}

// Resolve returns the oldest process whose comm or executable basename
// equals name, ignoring case.
func (r ProcResolver) Resolve(name string) (process.ProcessID, error) {
	if name == "" {
		return 0, &process.NameNotFoundError{Name: name}
	}

	entries, err := os.ReadDir(r.root())
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", r.root(), err)
	}

	selfPID := os.Getpid()
	var best *candidate

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}
		if pid == selfPID {
			continue // skip ourselves
		}

		dir := filepath.Join(r.root(), e.Name())
		if !r.matches(dir, name) {
			continue
		}

		// The process may have exited since the directory was listed.
		start, err := procStartTime(dir)
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

func (r ProcResolver) matches(dir, name string) bool {
	comm, _ := os.ReadFile(filepath.Join(dir, "comm"))
	if strings.EqualFold(string(bytesTrimNL(comm)), name) {
		return true
	}

	// Resolve /proc/<pid>/exe symlink; may fail if zombie or permission
	exe, _ := os.Readlink(filepath.Join(dir, "exe"))
	exe = strings.TrimSuffix(exe, " (deleted)")
	return exe != "" && strings.EqualFold(filepath.Base(exe), name)
}

// procStartTime returns field 22 of /proc/<pid>/stat, the start time in
// clock ticks since boot.
func procStartTime(dir string) (uint64, error) {
	stat, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return 0, err
	}

	// comm may contain spaces and parentheses; fields resume after the last ')'.
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 {
		return 0, errors.New("malformed stat")
	}
	fields := strings.Fields(string(stat[i+1:]))
	// fields[0] is field 3 (state), so field 22 is fields[19].
	if len(fields) < 20 {
		return 0, errors.New("short stat")
	}
	return strconv.ParseUint(fields[19], 10, 64)
}

func bytesTrimNL(b []byte) []byte {
	// Trim trailing '\n' if present (comm has a newline).
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}

// ProcessInfo contains basic information about a process
type ProcessInfo struct {
	PID     process.ProcessID
	Name    string // Process name from /proc/[pid]/comm
	Exe     string // Path to the executable
	State   string // Process state (R, S, D, Z, etc.)
	Threads int    // Number of threads
}

// GetProcessInfo reads what /proc exposes about pid.
func GetProcessInfo(pid process.ProcessID) (*ProcessInfo, error) {
	procPath := fmt.Sprintf("/proc/%d", pid)

	nameBytes, err := os.ReadFile(filepath.Join(procPath, "comm"))
	if err != nil {
		return nil, process.ErrorFrom("read process name", err)
	}

	info := &ProcessInfo{PID: pid, Name: string(bytesTrimNL(nameBytes))}

	// Some processes don't have an exe (e.g., kernel threads)
	info.Exe, _ = os.Readlink(filepath.Join(procPath, "exe"))

	statusBytes, err := os.ReadFile(filepath.Join(procPath, "status"))
	if err != nil {
		return info, nil
	}
	for _, line := range strings.Split(string(statusBytes), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "State":
			info.State = value
		case "Threads":
			info.Threads, _ = strconv.Atoi(value)
		}
	}

	return info, nil
}
