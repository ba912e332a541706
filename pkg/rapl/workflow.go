package rapl

import (
	"errors"
	"fmt"

	"github.com/klasnalol/Limits-droper/pkg/types"
)

// Plan is the previewed outcome of a limit change: the converted unit
// values and the exact post-write register values, each computed
// against that register's own last-read raw value. The preview is the
// same whether the caller confirms interactively or applies unattended.
type Plan struct {
	State State

	PL1Units uint16
	PL2Units uint16

	NextMSR  uint64
	NextMMIO uint64

	PL1Micro types.Microwatts
	PL2Micro types.Microwatts
}

// NewPlan converts the requested watts and previews both registers.
// ErrOutOfRange rejects the whole operation before anything is touched.
func NewPlan(st State, pl1, pl2 types.Watts) (Plan, error) {
	u1, err := WattsToUnits(float64(pl1), st.UnitWatts)
	if err != nil {
		return Plan{}, fmt.Errorf("PL1: %w", err)
	}
	u2, err := WattsToUnits(float64(pl2), st.UnitWatts)
	if err != nil {
		return Plan{}, fmt.Errorf("PL2: %w", err)
	}
	return Plan{
		State:    st,
		PL1Units: u1,
		PL2Units: u2,
		NextMSR:  EncodeLimits(st.MSR, u1, u2),
		NextMMIO: EncodeLimits(st.MMIO, u1, u2),
		PL1Micro: pl1.Micro(),
		PL2Micro: pl2.Micro(),
	}, nil
}

// Result carries per-target outcomes of one apply. On the write-both
// path partial success is reported per target, never merged into one
// pass/fail verdict.
type Result struct {
	MSRWritten      bool
	MMIOWritten     bool
	PowercapWritten bool

	MSRErr      error
	MMIOErr     error
	PowercapErr error
}

// Err collapses the outcomes for callers that only need an exit code.
func (r Result) Err() error {
	return errors.Join(r.MSRErr, r.MMIOErr, r.PowercapErr)
}

// Apply writes the planned values to the selected target(s). Targets
// are independent best-effort: a failure on one does not stop the
// other. The powercap mirror runs last and its failure does not undo
// register writes already performed. Nothing is retried.
func Apply(acc RegisterAccess, plan Plan, target Target, powercap bool) Result {
	var res Result
	if target == TargetMSR || target == TargetBoth {
		res.MSRErr = acc.WriteRegister(TargetMSR, plan.NextMSR)
		res.MSRWritten = res.MSRErr == nil
	}
	if target == TargetMMIO || target == TargetBoth {
		res.MMIOErr = acc.WriteRegister(TargetMMIO, plan.NextMMIO)
		res.MMIOWritten = res.MMIOErr == nil
	}
	if powercap {
		res.PowercapErr = acc.WritePowercap(plan.PL1Micro, plan.PL2Micro)
		res.PowercapWritten = res.PowercapErr == nil
	}
	return res
}

// Direction selects the source register of a sync.
type Direction int

const (
	MSRToMMIO Direction = iota + 1
	MMIOToMSR
)

func (d Direction) String() string {
	switch d {
	case MSRToMMIO:
		return "msr-to-mmio"
	case MMIOToMSR:
		return "mmio-to-msr"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts the CLI spellings of a sync direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "msr-to-mmio":
		return MSRToMMIO, nil
	case "mmio-to-msr":
		return MMIOToMSR, nil
	default:
		return 0, fmt.Errorf("rapl: unknown direction %q (want msr-to-mmio or mmio-to-msr)", s)
	}
}

// SyncPlan resolves a sync direction against a state read: which
// register gets written, and with what value. The value is the source
// register's full raw — no per-field decode, the point is to force the
// two registers into bit-exact agreement.
func SyncPlan(st State, dir Direction) (Target, uint64, error) {
	switch dir {
	case MSRToMMIO:
		return TargetMMIO, st.MSR, nil
	case MMIOToMSR:
		return TargetMSR, st.MMIO, nil
	default:
		return 0, 0, fmt.Errorf("rapl: unknown sync direction %d", dir)
	}
}

// Sync reads fresh state and copies one register's raw value verbatim
// into the other. Returns the value that was copied.
func Sync(acc RegisterAccess, dir Direction) (uint64, error) {
	st, err := acc.State()
	if err != nil {
		return 0, err
	}
	dst, val, err := SyncPlan(st, dir)
	if err != nil {
		return 0, err
	}
	return val, acc.WriteRegister(dst, val)
}
