//go:build linux

package cmds

import (
	"vmpatch/process"
	"vmpatch/process_linux"
)

func openTarget(pid process.ProcessID, access string) (target, error) {
	mode, err := process_linux.ParseAccessMode(access)
	if err != nil {
		return nil, err
	}
	p, err := process_linux.Open(pid, process_linux.WithAccess(mode))
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newResolver(kind string) (process.ProcessResolver, error) {
	return process_linux.NewResolver(process_linux.ResolverKind(kind))
}

func describeProcess(pid process.ProcessID) (processFacts, error) {
	info, err := process_linux.GetProcessInfo(pid)
	if err != nil {
		return processFacts{}, err
	}
	return processFacts{name: info.Name, state: info.State, threads: info.Threads}, nil
}
