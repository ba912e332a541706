//go:build linux

package cpuinfo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Overridable roots so tests can feed synthetic files (same trick the
// rest of pkg/system uses).
var (
	procCPUInfo = "/proc/cpuinfo"
	cpuSysRoot  = "/sys/devices/system/cpu"
)

// Info summarizes CPU identification and topology for the status
// report. String fields stay empty when /proc/cpuinfo omits them.
type Info struct {
	Vendor    string
	ModelName string
	Family    string
	Model     string
	Stepping  string
	Microcode string
	CacheSize string

	LogicalCPUs   int
	PhysicalCores int
	Packages      int

	MinMHz float64
	MaxMHz float64
}

// Read parses /proc/cpuinfo plus cpu0's cpufreq limits. Identification
// strings come from the first processor block; counts from all blocks.
func Read() (Info, error) {
	f, err := os.Open(procCPUInfo)
	if err != nil {
		return Info{}, fmt.Errorf("cpuinfo: open %s: %w", procCPUInfo, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var info Info
	packages := make(map[int]struct{})
	cores := make(map[string]struct{})
	pkgID, coreID := -1, -1
	flush := func() {
		if pkgID >= 0 && coreID >= 0 {
			packages[pkgID] = struct{}{}
			cores[fmt.Sprintf("%d:%d", pkgID, coreID)] = struct{}{}
		}
		pkgID, coreID = -1, -1
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "processor":
			info.LogicalCPUs++
			flush()
			continue
		case "physical id":
			if v, err := strconv.Atoi(value); err == nil {
				pkgID = v
			}
			continue
		case "core id":
			if v, err := strconv.Atoi(value); err == nil {
				coreID = v
			}
			continue
		}

		if info.LogicalCPUs != 1 {
			continue // identification strings from the first block only
		}
		switch key {
		case "vendor_id":
			info.Vendor = value
		case "model name":
			info.ModelName = value
		case "cpu family":
			info.Family = value
		case "model":
			info.Model = value
		case "stepping":
			info.Stepping = value
		case "microcode":
			info.Microcode = value
		case "cache size":
			info.CacheSize = value
		}
	}
	if err := sc.Err(); err != nil {
		return Info{}, fmt.Errorf("cpuinfo: scan %s: %w", procCPUInfo, err)
	}
	flush()

	info.Packages = len(packages)
	info.PhysicalCores = len(cores)
	if info.Packages == 0 && info.LogicalCPUs > 0 {
		info.Packages = 1
	}

	info.MinMHz = readKHzToMHz(filepath.Join(cpuSysRoot, "cpu0", "cpufreq", "cpuinfo_min_freq"))
	info.MaxMHz = readKHzToMHz(filepath.Join(cpuSysRoot, "cpu0", "cpufreq", "cpuinfo_max_freq"))
	return info, nil
}

// CurrentMHz returns one logical CPU's instantaneous frequency,
// preferring the scaling governor's view. Zero when unavailable.
func CurrentMHz(cpu int) float64 {
	base := filepath.Join(cpuSysRoot, fmt.Sprintf("cpu%d", cpu), "cpufreq")
	if mhz := readKHzToMHz(filepath.Join(base, "scaling_cur_freq")); mhz > 0 {
		return mhz
	}
	return readKHzToMHz(filepath.Join(base, "cpuinfo_cur_freq"))
}

func readKHzToMHz(path string) float64 {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	khz, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil || khz <= 0 {
		return 0
	}
	return float64(khz) / 1000.0
}
