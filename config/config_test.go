package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	require := require.New(t)

	c, err := Parse([]byte("access: vm\nverbose: true\nbytes-per-line: 32\n"))
	require.NoError(err)
	require.Equal("vm", c.Access)
	require.Equal("auto", c.Resolver)
	require.Equal("auto", c.Color)
	require.True(c.Verbose)
	require.Equal(32, c.BytesPerLine)
}

func TestParseRejects(t *testing.T) {
	for _, doc := range []string{
		"access: ptrace\n",
		"resolver: ps\n",
		"color: sometimes\n",
		"bytes-per-line: -1\n",
		"unknown-key: 1\n",
		"access: [\n",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoad(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only drives the config dir on linux")
	}
	assert := assert.New(t)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	c, err := Load("")
	assert.NoError(err, "missing default file")
	assert.Equal(Default(), c)

	_, err = Load(filepath.Join(dir, "nope.yml"))
	assert.Error(err, "missing explicit file")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vmpatch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vmpatch", "config.yml"), []byte("resolver: proc\ncolor: never\n"), 0o644))

	c, err = Load("")
	if assert.NoError(err) {
		assert.Equal("proc", c.Resolver)
		assert.Equal("never", c.Color)
		assert.Equal("procmem", c.Access)
	}
}
