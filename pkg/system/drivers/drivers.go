//go:build linux

package drivers

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Mode says which privileged register interfaces this system exposes.
type Mode int

const (
	None    Mode = iota // neither interface reachable
	MSROnly             // /dev/cpu/*/msr only
	MemOnly             // /dev/mem only
	Full                // both available
)

func (m Mode) String() string {
	switch m {
	case MSROnly:
		return "msr only"
	case MemOnly:
		return "devmem only"
	case Full:
		return "msr + devmem"
	default:
		return "none"
	}
}

// Overridable paths for tests.
var (
	procModules = "/proc/modules"
	msrNode     = "/dev/cpu/0/msr"
	memNode     = "/dev/mem"
)

// Detect reports the available interfaces and a human-readable detail
// string. When the MSR node is missing, the detail says whether loading
// the msr module would help, so the operator gets an actionable hint
// before any deeper operation fails.
func Detect() (Mode, string, error) {
	msrOK := exists(msrNode)
	memOK := exists(memNode)

	var notes []string
	if msrOK {
		notes = append(notes, msrNode+" present")
	} else if loaded, err := moduleLoaded("msr"); err == nil && loaded {
		notes = append(notes, msrNode+" missing although the msr module is loaded")
	} else {
		notes = append(notes, msrNode+" missing (try: modprobe msr)")
	}
	if memOK {
		notes = append(notes, memNode+" present")
	} else {
		notes = append(notes, memNode+" missing")
	}
	detail := strings.Join(notes, "; ")

	switch {
	case msrOK && memOK:
		return Full, detail, nil
	case msrOK:
		return MSROnly, detail, nil
	case memOK:
		return MemOnly, detail, nil
	default:
		return None, detail, nil
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// moduleLoaded scans /proc/modules for an exact module name match.
func moduleLoaded(name string) (bool, error) {
	f, err := os.Open(procModules)
	if err != nil {
		return false, fmt.Errorf("drivers: open %s: %w", procModules, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == name {
			return true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return false, fmt.Errorf("drivers: scan %s: %w", procModules, err)
	}
	return false, nil
}
