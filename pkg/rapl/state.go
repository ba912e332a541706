package rapl

import (
	"fmt"
	"strings"

	"github.com/klasnalol/Limits-droper/pkg/types"
)

// Target selects which power-limit register(s) an operation touches.
type Target int

const (
	TargetMSR Target = iota + 1
	TargetMMIO
	TargetBoth
)

func (t Target) String() string {
	switch t {
	case TargetMSR:
		return "msr"
	case TargetMMIO:
		return "mmio"
	case TargetBoth:
		return "both"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// ParseTarget accepts the CLI spellings of a write target.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "msr":
		return TargetMSR, nil
	case "mmio":
		return TargetMMIO, nil
	case "both":
		return TargetBoth, nil
	default:
		return 0, fmt.Errorf("rapl: unknown target %q (want msr, mmio or both)", s)
	}
}

// State is one coherent read of everything a write decision needs: the
// unit scale and both registers' raw values. The two registers are
// never assumed equal; each carries its own opaque bits.
type State struct {
	PowerUnit int
	UnitWatts float64
	MSR       uint64
	MMIO      uint64
}

// Raw returns the register value for a single target.
func (s State) Raw(t Target) uint64 {
	if t == TargetMMIO {
		return s.MMIO
	}
	return s.MSR
}

// RegisterAccess is the privileged capability the workflow runs
// against. Direct implements it in-process against /dev nodes;
// helper.Client implements it over a privileged subprocess; tests use
// fakes. Implementations are not required to be safe for concurrent
// use - the system assumes one in-flight hardware operation.
type RegisterAccess interface {
	// State reads the power unit and both registers; any failure makes
	// the whole read fail, because a write decision needs all of it.
	State() (State, error)

	// WriteRegister stores a full 64-bit value into one register.
	// Target must be TargetMSR or TargetMMIO.
	WriteRegister(t Target, val uint64) error

	// WritePowercap mirrors the limits into the kernel's software
	// power-cap layer, in microwatts.
	WritePowercap(pl1, pl2 types.Microwatts) error

	Close() error
}
