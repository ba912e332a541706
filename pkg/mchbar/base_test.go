//go:build linux

package mchbar

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBase(t *testing.T) {
	cases := []struct {
		name string
		raw  uint64
		want uint64
		err  error
	}{
		{"enabled", 0x00000000FEDC0001, 0xFEDC0000, nil},
		{"low bits masked", 0x00000000FEDC0FFF, 0xFEDC0000, nil},
		{"above 4G", 0x0000001FE0000001, 0x1FE0000000, nil},
		{"disabled", 0x00000000FEDC0000, 0, ErrDisabled},
		{"enabled but zero", 0x0000000000000001, 0, ErrZeroBase},
		{"only low bits", 0x0000000000000FFF, 0, ErrZeroBase},
		{"all zero", 0, 0, ErrDisabled},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			base, err := parseBase(c.raw)
			if c.err != nil {
				assert.ErrorIs(t, err, c.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, base)
		})
	}
}

// writeConfig builds a synthetic 256-byte config space with the given
// value at offset 0x48.
func writeConfig(t *testing.T, reg uint64) string {
	t.Helper()
	buf := make([]byte, 256)
	binary.LittleEndian.PutUint64(buf[baseRegOffset:], reg)
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestResolveBase(t *testing.T) {
	base, err := ResolveBase(writeConfig(t, 0x00000000FEDC0001))
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFEDC0000), base)
}

func TestResolveBase_Disabled(t *testing.T) {
	_, err := ResolveBase(writeConfig(t, 0x00000000FEDC0000))
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestResolveBase_MissingConfig(t *testing.T) {
	_, err := ResolveBase(filepath.Join(t.TempDir(), "config"))
	assert.Error(t, err)
}

func TestResolveBase_ShortConfig(t *testing.T) {
	// legacy config spaces can be truncated; a read short of 8 bytes at
	// 0x48 must fail, not return a partial value
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, make([]byte, 0x4C), 0o644))
	_, err := ResolveBase(path)
	assert.Error(t, err)
}
