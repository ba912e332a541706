//go:build linux

package pci

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDevice(t *testing.T, root, addr, vendor, class string) {
	t.Helper()
	dir := filepath.Join(root, addr)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor"), []byte(vendor+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "class"), []byte(class+"\n"), 0o644))
}

func TestFindHostBridge_Conventional(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "0000:00:00.0", "0x8086", "0x060000")
	writeDevice(t, root, "0000:00:02.0", "0x8086", "0x030000") // iGPU, wrong class

	d, err := findHostBridge(root)
	require.NoError(t, err)
	assert.Equal(t, "0000:00:00.0", d.Addr)
	assert.Equal(t, uint32(0x8086), d.Vendor)
	assert.Equal(t, filepath.Join(root, "0000:00:00.0", "config"), d.ConfigPath())
}

func TestFindHostBridge_ScansWhenConventionalMismatch(t *testing.T) {
	root := t.TempDir()
	// 00:00.0 exists but is not a host bridge on this (synthetic) box.
	writeDevice(t, root, "0000:00:00.0", "0x1022", "0x060000")
	writeDevice(t, root, "0000:00:01.0", "0x8086", "0x060400") // PCI bridge, wrong subclass
	writeDevice(t, root, "0000:00:1f.0", "0x8086", "0x060100") // ISA bridge
	writeDevice(t, root, "0000:ff:00.0", "0x8086", "0x060001") // host bridge, nonzero prog-if

	d, err := findHostBridge(root)
	require.NoError(t, err)
	assert.Equal(t, "0000:ff:00.0", d.Addr)
}

func TestFindHostBridge_IgnoresUnreadableDevices(t *testing.T) {
	root := t.TempDir()
	// directory without vendor/class files must be skipped, not fatal
	require.NoError(t, os.MkdirAll(filepath.Join(root, "0000:00:03.0"), 0o755))
	writeDevice(t, root, "0000:00:04.0", "0x8086", "0x060000")

	d, err := findHostBridge(root)
	require.NoError(t, err)
	assert.Equal(t, "0000:00:04.0", d.Addr)
}

func TestFindHostBridge_NotFound(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "0000:00:00.0", "0x10de", "0x030000")

	_, err := findHostBridge(root)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindHostBridge_EmptyListing(t *testing.T) {
	_, err := findHostBridge(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadHexFile_BadContent(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "0000:00:00.0", "garbage", "0x060000")

	_, err := findHostBridge(root)
	assert.ErrorIs(t, err, ErrNotFound)
}
