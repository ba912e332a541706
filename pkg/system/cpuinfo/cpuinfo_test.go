//go:build linux

package cpuinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCPUInfo = `processor	: 0
vendor_id	: GenuineIntel
cpu family	: 6
model		: 154
model name	: 12th Gen Intel(R) Core(TM) i7-12700H
stepping	: 3
microcode	: 0x430
cache size	: 24576 KB
physical id	: 0
core id		: 0

processor	: 1
vendor_id	: GenuineIntel
model name	: should not overwrite first block
physical id	: 0
core id		: 0

processor	: 2
physical id	: 0
core id		: 4

processor	: 3
physical id	: 0
core id		: 8
`

func fakeSystem(t *testing.T, cpuinfo string, freqKHz map[string]string) {
	t.Helper()
	dir := t.TempDir()

	info := filepath.Join(dir, "cpuinfo")
	require.NoError(t, os.WriteFile(info, []byte(cpuinfo), 0o644))

	sysRoot := filepath.Join(dir, "cpu")
	for name, val := range freqKHz {
		cpuDir, file := filepath.Split(name)
		freqDir := filepath.Join(sysRoot, cpuDir, "cpufreq")
		require.NoError(t, os.MkdirAll(freqDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(freqDir, file), []byte(val+"\n"), 0o644))
	}

	oldInfo, oldRoot := procCPUInfo, cpuSysRoot
	procCPUInfo, cpuSysRoot = info, sysRoot
	t.Cleanup(func() { procCPUInfo, cpuSysRoot = oldInfo, oldRoot })
}

func TestRead(t *testing.T) {
	fakeSystem(t, sampleCPUInfo, map[string]string{
		"cpu0/cpuinfo_min_freq": "400000",
		"cpu0/cpuinfo_max_freq": "4700000",
	})

	info, err := Read()
	require.NoError(t, err)

	assert.Equal(t, "GenuineIntel", info.Vendor)
	assert.Equal(t, "12th Gen Intel(R) Core(TM) i7-12700H", info.ModelName)
	assert.Equal(t, "6", info.Family)
	assert.Equal(t, "154", info.Model)
	assert.Equal(t, "3", info.Stepping)
	assert.Equal(t, "0x430", info.Microcode)
	assert.Equal(t, "24576 KB", info.CacheSize)

	assert.Equal(t, 4, info.LogicalCPUs)
	assert.Equal(t, 3, info.PhysicalCores) // core ids 0 (SMT pair), 4, 8
	assert.Equal(t, 1, info.Packages)

	assert.Equal(t, 400.0, info.MinMHz)
	assert.Equal(t, 4700.0, info.MaxMHz)
}

func TestRead_NoTopologyFields(t *testing.T) {
	fakeSystem(t, "processor\t: 0\nvendor_id\t: GenuineIntel\n", nil)

	info, err := Read()
	require.NoError(t, err)
	assert.Equal(t, 1, info.LogicalCPUs)
	assert.Equal(t, 1, info.Packages) // assume one package when sysfs is silent
	assert.Zero(t, info.PhysicalCores)
	assert.Zero(t, info.MinMHz)
}

func TestRead_MissingFile(t *testing.T) {
	fakeSystem(t, "", nil)
	require.NoError(t, os.Remove(procCPUInfo))

	_, err := Read()
	assert.Error(t, err)
}

func TestCurrentMHz(t *testing.T) {
	fakeSystem(t, sampleCPUInfo, map[string]string{
		"cpu0/scaling_cur_freq": "3200000",
		"cpu1/cpuinfo_cur_freq": "1500000",
	})

	assert.Equal(t, 3200.0, CurrentMHz(0))
	assert.Equal(t, 1500.0, CurrentMHz(1)) // falls back past missing scaling file
	assert.Zero(t, CurrentMHz(7))
}

func TestCurrentMHz_BadContent(t *testing.T) {
	fakeSystem(t, sampleCPUInfo, map[string]string{
		"cpu0/scaling_cur_freq": "not-a-number",
	})
	assert.Zero(t, CurrentMHz(0))
}

func TestReadKHzToMHz_Negative(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "freq")
	require.NoError(t, os.WriteFile(path, []byte("-5\n"), 0o644))
	assert.Zero(t, readKHzToMHz(path))
}
