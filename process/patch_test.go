package process

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeBase ProcessMemoryAddress = 0x1000

func TestPatch(t *testing.T) {
	assert := assert.New(t)

	mem := newFakeMemory(fakeBase, []byte{0x55, 0x48, 0x89, 0xE5, 0x90})
	err := Patch(mem, []byte{0x48, 0x89}, []byte{0x90, 0x90}, fakeBase+1)
	if assert.NoError(err) {
		assert.Equal([]byte{0x55, 0x90, 0x90, 0xE5, 0x90}, mem.data)
		assert.Equal([]string{"protect rwx", "read", "write", "read"}, mem.calls)
	}
}

func TestPatchAlreadyPatched(t *testing.T) {
	assert := assert.New(t)

	mem := newFakeMemory(fakeBase, []byte{0x90, 0x90})
	err := Patch(mem, []byte{0x74, 0x05}, []byte{0x90, 0x90}, fakeBase)

	assert.ErrorIs(err, ErrAlreadyPatched)
	assert.Equal([]byte{0x90, 0x90}, mem.data)
	assert.NotContains(mem.calls, "write")
}

func TestPatchMemoryNotExpected(t *testing.T) {
	assert := assert.New(t)

	mem := newFakeMemory(fakeBase, []byte{0xAA, 0xBB})
	err := Patch(mem, []byte{0x74, 0x05}, []byte{0x90, 0x90}, fakeBase)

	assert.ErrorIs(err, ErrMemoryNotExpected)
	var perr *PatchError
	if assert.True(errors.As(err, &perr)) {
		assert.Equal([]byte{0xAA, 0xBB}, perr.Actual)
		assert.Equal([]byte{0x74, 0x05}, perr.Expected)
	}
	assert.Equal("memory different to the expected. Original: 0xAABB vs. Expected: 0x7405", err.Error())
	assert.Equal([]byte{0xAA, 0xBB}, mem.data)
	assert.NotContains(mem.calls, "write")
}

func TestPatchMemoryNotPatched(t *testing.T) {
	assert := assert.New(t)

	mem := newFakeMemory(fakeBase, []byte{0x74, 0x05})
	mem.dropWrites = true
	err := Patch(mem, []byte{0x74, 0x05}, []byte{0x90, 0x90}, fakeBase)

	assert.ErrorIs(err, ErrMemoryNotPatched)
	var perr *PatchError
	if assert.True(errors.As(err, &perr)) {
		assert.Equal([]byte{0x74, 0x05}, perr.Actual)
	}
}

func TestPatchSizeMismatch(t *testing.T) {
	assert := assert.New(t)

	mem := newFakeMemory(fakeBase, []byte{0x74, 0x05})
	err := Patch(mem, []byte{0x74, 0x05}, []byte{0x90}, fakeBase)

	assert.ErrorIs(err, ErrSizeMismatch)
	assert.Empty(mem.calls, "no memory access before the size check")
}

func TestPatchProtectionFailure(t *testing.T) {
	assert := assert.New(t)

	mem := newFakeMemory(fakeBase, []byte{0x74, 0x05})
	mem.protErr = NewOSError("mprotect", 1) // EPERM
	err := Patch(mem, []byte{0x74, 0x05}, []byte{0x90, 0x90}, fakeBase)

	assert.ErrorIs(err, ErrPermissionDenied)
	assert.Equal([]string{"protect rwx"}, mem.calls)
	assert.Equal([]byte{0x74, 0x05}, mem.data)
}

func TestPatchInvalidAddress(t *testing.T) {
	mem := newFakeMemory(fakeBase, []byte{0x74, 0x05})
	err := Patch(mem, []byte{0x74, 0x05}, []byte{0x90, 0x90}, fakeBase+0x100)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestPatchRevert(t *testing.T) {
	require := require.New(t)

	mem := newFakeMemory(fakeBase, []byte{0x74, 0x05})
	require.NoError(Patch(mem, []byte{0x74, 0x05}, []byte{0x90, 0x90}, fakeBase))
	require.NoError(Patch(mem, []byte{0x90, 0x90}, []byte{0x74, 0x05}, fakeBase))
	require.Equal([]byte{0x74, 0x05}, mem.data)
}

func TestPatchHex(t *testing.T) {
	assert := assert.New(t)

	mem := newFakeMemory(fakeBase, []byte{0x74, 0x05})
	assert.NoError(PatchHex(mem, "0x7405", "9090", fakeBase))
	assert.Equal([]byte{0x90, 0x90}, mem.data)

	mem = newFakeMemory(fakeBase, []byte{0x74, 0x05})
	assert.ErrorIs(PatchHex(mem, "74G5", "9090", fakeBase), ErrInvalidHexString)
	assert.ErrorIs(PatchHex(mem, "7405", "", fakeBase), ErrInvalidHexString)
	assert.Empty(mem.calls)
}

func TestCheck(t *testing.T) {
	assert := assert.New(t)

	mem := newFakeMemory(fakeBase, []byte{0x74, 0x05})
	state, err := Check(mem, []byte{0x74, 0x05}, []byte{0x90, 0x90}, fakeBase)
	assert.NoError(err)
	assert.Equal(PatchStateExpected, state)

	state, err = Check(mem, []byte{0x90, 0x90}, []byte{0x74, 0x05}, fakeBase)
	assert.NoError(err)
	assert.Equal(PatchStateApplied, state)

	_, err = Check(mem, []byte{0x11, 0x22}, []byte{0x33, 0x44}, fakeBase)
	assert.ErrorIs(err, ErrMemoryNotExpected)

	_, err = Check(mem, []byte{0x11}, []byte{0x33, 0x44}, fakeBase)
	assert.ErrorIs(err, ErrSizeMismatch)

	assert.Equal([]string{"read", "read", "read"}, mem.calls)
	assert.Equal([]byte{0x74, 0x05}, mem.data)
}

func TestWriteHex(t *testing.T) {
	assert := assert.New(t)

	mem := newFakeMemory(fakeBase, []byte{0, 0, 0, 0})
	mem.prot = ProtectionAll
	assert.NoError(WriteHex(mem, "0xDEADBEEF", NewAddressRange(fakeBase, 4)))
	assert.Equal([]byte{0xDE, 0xAD, 0xBE, 0xEF}, mem.data)

	assert.ErrorIs(WriteHex(mem, "abc", NewAddressRange(fakeBase, 2)), ErrInvalidHexString)
	assert.ErrorIs(WriteHex(mem, "00", NewAddressRange(fakeBase, 2)), ErrInvalidAddress)
}
