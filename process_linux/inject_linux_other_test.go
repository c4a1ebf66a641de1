//go:build linux && !amd64

package process_linux

import (
	"testing"

	"vmpatch/process"

	"github.com/stretchr/testify/assert"
)

func TestRemoteProtectionNotSupported(t *testing.T) {
	err := mprotectRemote(1, process.NewAddressRange(0x1000, 0x1000), process.ProtectionAll)
	assert.ErrorIs(t, err, process.ErrNotSupported)
}
