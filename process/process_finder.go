package process

import "strconv"

// ProcessResolver maps a process name to a process identifier.
//
// Implementations pick the oldest matching process (earliest start time,
// lowest PID on a tie) and compare names exactly, ignoring case. When nothing
// matches they return a *NameNotFoundError.
type ProcessResolver interface {
	Resolve(name string) (ProcessID, error)
}

// ResolverFunc adapts a function to ProcessResolver.
type ResolverFunc func(name string) (ProcessID, error)

func (f ResolverFunc) Resolve(name string) (ProcessID, error) {
	return f(name)
}

// ResolveTarget turns a command line process argument into a PID.
// "-" is the calling process; a decimal number is taken as a PID; anything
// else is looked up with resolver.
func ResolveTarget(input string, resolver ProcessResolver) (ProcessID, error) {
	if input == "-" {
		return CurrentProcessID(), nil
	}
	if pid, err := strconv.Atoi(input); err == nil {
		return ProcessID(pid), nil
	}
	return resolver.Resolve(input)
}
