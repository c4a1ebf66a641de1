//go:build !linux

package cmds

import (
	"fmt"
	"runtime"

	"vmpatch/process"
)

func openTarget(pid process.ProcessID, access string) (target, error) {
	return nil, fmt.Errorf("open process %d on %s: %w", pid, runtime.GOOS, process.ErrNotSupported)
}

func newResolver(kind string) (process.ProcessResolver, error) {
	return process.ResolverFunc(func(name string) (process.ProcessID, error) {
		return 0, fmt.Errorf("resolve %s on %s: %w", name, runtime.GOOS, process.ErrNotSupported)
	}), nil
}

func describeProcess(pid process.ProcessID) (processFacts, error) {
	return processFacts{}, fmt.Errorf("describe process %d on %s: %w", pid, runtime.GOOS, process.ErrNotSupported)
}
