//go:build linux

package memory_map

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMaps = `7ffff7dc3000-7ffff7deb000 r--p 00000000 fd:01 1835     /usr/lib/x86_64-linux-gnu/libc.so.6
555555554000-555555556000 r--p 00000000 fd:01 2345     /usr/bin/my program
555555556000-55555555a000 r-xp 00002000 fd:01 2345     /usr/bin/my program
55555555a000-55555557b000 rw-p 00000000 00:00 0        [heap]
7ffffffde000-7ffffffff000 rw-p 00000000 00:00 0
7ffff7fc3000-7ffff7fc5000 r--p 00000000 fd:01 4242     /opt/two  spaces/app  v2
garbage line
zzzz-1000 r--p 00000000 00:00 0
`

func TestParseMemoryMap(t *testing.T) {
	require := require.New(t)

	mm, err := ParseMemoryMap(strings.NewReader(sampleMaps))
	require.NoError(err)
	require.Len(mm, 6)

	require.Equal(uint64(0x555555554000), mm[0].Address)
	require.Equal(uint(0x2000), mm[0].Size)
	require.Equal("/usr/bin/my program", mm[0].Path)

	require.Equal(uint64(0x2000), mm[1].Offset)
	require.Equal("r-xp", mm[1].Perms)

	require.Equal("[heap]", mm[2].Path)
	require.Equal("/opt/two  spaces/app  v2", mm[4].Path)
	require.Equal("", mm[5].Path)
}

func TestSplitMapsLine(t *testing.T) {
	assert := assert.New(t)

	fields, path := splitMapsLine("00400000-00401000 r-xp 00000000 08:01 17   /tmp/a  b ")
	assert.Equal([]string{"00400000-00401000", "r-xp", "00000000", "08:01", "17"}, fields)
	assert.Equal("/tmp/a  b ", path)

	fields, path = splitMapsLine("00400000-00401000 rw-p 00000000 00:00 0")
	assert.Len(fields, 5)
	assert.Empty(path)

	fields, _ = splitMapsLine("garbage line")
	assert.Len(fields, 2)
}

func TestReadMemoryMapSelf(t *testing.T) {
	assert := assert.New(t)

	mm, err := NewLinuxMemoryMap().ReadMemoryMap(os.Getpid())
	require.NoError(t, err)
	assert.NotEmpty(mm)

	exe, err := os.Executable()
	require.NoError(t, err)
	_, ok := FindImage(exe, mm)
	assert.True(ok, "test binary %s should be mapped", exe)
}
