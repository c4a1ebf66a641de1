//go:build linux

package process_linux

import (
	"os"
	"testing"
	"time"
)

const helperEnv = "VMPATCH_HELPER_PROCESS"

func TestMain(m *testing.M) {
	// Child processes for the resolver and remote tests idle here.
	if os.Getenv(helperEnv) == "1" {
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(m.Run())
}
