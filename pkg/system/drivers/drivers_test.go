//go:build linux

package drivers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeNodes(t *testing.T, withMSR, withMem bool, modules string) {
	t.Helper()
	dir := t.TempDir()

	mod := filepath.Join(dir, "modules")
	require.NoError(t, os.WriteFile(mod, []byte(modules), 0o644))

	msrPath := filepath.Join(dir, "msr")
	memPath := filepath.Join(dir, "mem")
	if withMSR {
		require.NoError(t, os.WriteFile(msrPath, nil, 0o644))
	}
	if withMem {
		require.NoError(t, os.WriteFile(memPath, nil, 0o644))
	}

	oldMod, oldMSR, oldMem := procModules, msrNode, memNode
	procModules, msrNode, memNode = mod, msrPath, memPath
	t.Cleanup(func() { procModules, msrNode, memNode = oldMod, oldMSR, oldMem })
}

func TestDetect_Full(t *testing.T) {
	fakeNodes(t, true, true, "msr 16384 0 - Live 0x0000000000000000\n")

	mode, detail, err := Detect()
	require.NoError(t, err)
	assert.Equal(t, Full, mode)
	assert.Contains(t, detail, "present")
}

func TestDetect_MSRNodeMissingModuleNotLoaded(t *testing.T) {
	fakeNodes(t, false, true, "kvm_intel 425984 0 - Live 0x0000000000000000\n")

	mode, detail, err := Detect()
	require.NoError(t, err)
	assert.Equal(t, MemOnly, mode)
	assert.Contains(t, detail, "modprobe msr")
}

func TestDetect_MSRNodeMissingModuleLoaded(t *testing.T) {
	fakeNodes(t, false, true, "msr 16384 0 - Live 0x0000000000000000\n")

	mode, detail, err := Detect()
	require.NoError(t, err)
	assert.Equal(t, MemOnly, mode)
	assert.Contains(t, detail, "although the msr module is loaded")
}

func TestDetect_None(t *testing.T) {
	fakeNodes(t, false, false, "")

	mode, _, err := Detect()
	require.NoError(t, err)
	assert.Equal(t, None, mode)
}

func TestDetect_MSROnly(t *testing.T) {
	fakeNodes(t, true, false, "")

	mode, detail, err := Detect()
	require.NoError(t, err)
	assert.Equal(t, MSROnly, mode)
	assert.Contains(t, detail, "missing")
}

func TestModuleLoaded_ExactNameOnly(t *testing.T) {
	fakeNodes(t, false, false, "msr_extra 1 0 - Live 0x0\nnot_msr 1 0 - Live 0x0\n")

	loaded, err := moduleLoaded("msr")
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "msr + devmem", Full.String())
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "msr only", MSROnly.String())
	assert.Equal(t, "devmem only", MemOnly.String())
}
