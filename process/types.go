package process

import "os"

// ProcessID represents a unique identifier for a process
type ProcessID int

// CurrentProcessID returns the identifier of the calling process.
func CurrentProcessID() ProcessID {
	return ProcessID(os.Getpid())
}
