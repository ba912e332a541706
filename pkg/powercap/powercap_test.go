//go:build linux

package powercap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klasnalol/Limits-droper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeZone(t *testing.T) (*Controller, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, zone)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pl1File), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pl2File), nil, 0o644))
	return NewAt(root), dir
}

func TestWrite(t *testing.T) {
	c, dir := fakeZone(t)

	require.NoError(t, c.Write(types.Watts(55).Micro(), types.Watts(157).Micro()))

	pl1, err := os.ReadFile(filepath.Join(dir, pl1File))
	require.NoError(t, err)
	assert.Equal(t, "55000000", string(pl1))

	pl2, err := os.ReadFile(filepath.Join(dir, pl2File))
	require.NoError(t, err)
	assert.Equal(t, "157000000", string(pl2))
}

func TestWrite_RejectsZero(t *testing.T) {
	c, dir := fakeZone(t)

	assert.Error(t, c.Write(0, 157_000_000))
	assert.Error(t, c.Write(55_000_000, 0))

	// nothing may have been written on the reject path
	pl1, err := os.ReadFile(filepath.Join(dir, pl1File))
	require.NoError(t, err)
	assert.Empty(t, pl1)
}

func TestWrite_MissingZone(t *testing.T) {
	c := NewAt(t.TempDir())
	assert.Error(t, c.Write(55_000_000, 157_000_000))
}
