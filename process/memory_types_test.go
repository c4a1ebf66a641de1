package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressRange(t *testing.T) {
	assert := assert.New(t)

	r := NewAddressRange(0x1000, 0x10)
	assert.Equal(ProcessMemoryAddress(0x100F), r.End())
	assert.True(r.Contains(0x1000))
	assert.True(r.Contains(0x100F))
	assert.False(r.Contains(0x1010))
	assert.False(r.Contains(0xFFF))
	assert.Equal("0x1000-0x100F (16 bytes)", r.String())

	empty := NewAddressRange(0x1000, 0)
	assert.False(empty.Contains(0x1000))
}

func TestAddressRangeFromTo(t *testing.T) {
	assert := assert.New(t)

	r, err := AddressRangeFromTo(0x1000, 0x1003)
	if assert.NoError(err) {
		assert.Equal(ProcessMemorySize(4), r.Size)
		assert.Equal(ProcessMemoryAddress(0x1003), r.End())
	}

	_, err = AddressRangeFromTo(0x1000, 0x1000)
	assert.ErrorIs(err, ErrInvalidArgument)
	_, err = AddressRangeFromTo(0x1000, 0x0FFF)
	assert.ErrorIs(err, ErrInvalidArgument)
}

func TestPageAligned(t *testing.T) {
	assert := assert.New(t)

	r := NewAddressRange(0x1FFE, 4).PageAligned(0x1000)
	assert.Equal(NewAddressRange(0x1000, 0x2000), r)

	r = NewAddressRange(0x3000, 0x1000).PageAligned(0x1000)
	assert.Equal(NewAddressRange(0x3000, 0x1000), r)

	r = NewAddressRange(0x3000, 0).PageAligned(0x1000)
	assert.Equal(ProcessMemorySize(0), r.Size)
}

func TestProtection(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("rwx", ProtectionAll.String())
	assert.Equal("r-x", (ProtectionRead | ProtectionExecute).String())
	assert.Equal("---", ProtectionNone.String())

	assert.Equal(ProtectionRead|ProtectionExecute, ParseProtection("r-xp"))
	assert.Equal(ProtectionAll, ParseProtection("rwxs"))
	assert.Equal(ProtectionNone, ParseProtection("---p"))
	assert.Equal(ProtectionNone, ParseProtection(""))

	assert.True(ProtectionAll.Has(ProtectionWrite))
	assert.False(ProtectionRead.Has(ProtectionRead | ProtectionWrite))
}
