package helper

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

// Request argv forms understood by the privileged helper.
const (
	ReqRead          = "--read"
	ReqWriteMSR      = "--write-msr"
	ReqWriteMMIO     = "--write-mmio"
	ReqWritePowercap = "--write-powercap"
)

// Response keys of a read-state reply. All four are required.
const (
	KeyPowerUnit = "POWER_UNIT"
	KeyUnitWatts = "UNIT_WATTS"
	KeyMSR       = "MSR"
	KeyMMIO      = "MMIO"
)

// ErrInconsistentState indicates a read-state reply with missing,
// unknown or garbled keys. An incomplete read means the unit scale or
// register values cannot be trusted for any subsequent write, so
// nothing is defaulted silently.
var ErrInconsistentState = errors.New("helper: inconsistent state response")

// EncodeState renders the newline-delimited KEY=VALUE reply emitted by
// the helper's read-state command.
func EncodeState(st rapl.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%d\n", KeyPowerUnit, st.PowerUnit)
	fmt.Fprintf(&b, "%s=%g\n", KeyUnitWatts, st.UnitWatts)
	fmt.Fprintf(&b, "%s=%s\n", KeyMSR, types.Hex64(st.MSR))
	fmt.Fprintf(&b, "%s=%s\n", KeyMMIO, types.Hex64(st.MMIO))
	return b.String()
}

// ParseState is the strict inverse of EncodeState. It also cross-checks
// that UNIT_WATTS agrees with 2^-POWER_UNIT, since a helper/client
// version skew there would corrupt every conversion downstream.
func ParseState(out string) (rapl.State, error) {
	vals := make(map[string]string, 4)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return rapl.State{}, fmt.Errorf("%w: malformed line %q", ErrInconsistentState, line)
		}
		switch k {
		case KeyPowerUnit, KeyUnitWatts, KeyMSR, KeyMMIO:
		default:
			return rapl.State{}, fmt.Errorf("%w: unknown key %q", ErrInconsistentState, k)
		}
		if _, dup := vals[k]; dup {
			return rapl.State{}, fmt.Errorf("%w: duplicate key %q", ErrInconsistentState, k)
		}
		vals[k] = v
	}

	get := func(key string) (string, error) {
		v, ok := vals[key]
		if !ok {
			return "", fmt.Errorf("%w: missing %s", ErrInconsistentState, key)
		}
		return v, nil
	}

	var st rapl.State

	s, err := get(KeyPowerUnit)
	if err != nil {
		return rapl.State{}, err
	}
	if st.PowerUnit, err = strconv.Atoi(s); err != nil {
		return rapl.State{}, fmt.Errorf("%w: bad %s %q", ErrInconsistentState, KeyPowerUnit, s)
	}

	if s, err = get(KeyUnitWatts); err != nil {
		return rapl.State{}, err
	}
	if st.UnitWatts, err = strconv.ParseFloat(s, 64); err != nil {
		return rapl.State{}, fmt.Errorf("%w: bad %s %q", ErrInconsistentState, KeyUnitWatts, s)
	}

	if s, err = get(KeyMSR); err != nil {
		return rapl.State{}, err
	}
	if st.MSR, err = types.ParseHex64(s); err != nil {
		return rapl.State{}, fmt.Errorf("%w: bad %s %q", ErrInconsistentState, KeyMSR, s)
	}

	if s, err = get(KeyMMIO); err != nil {
		return rapl.State{}, err
	}
	if st.MMIO, err = types.ParseHex64(s); err != nil {
		return rapl.State{}, fmt.Errorf("%w: bad %s %q", ErrInconsistentState, KeyMMIO, s)
	}

	want, err := rapl.UnitWatts(st.PowerUnit)
	if err != nil {
		return rapl.State{}, fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}
	if math.Abs(want-st.UnitWatts) > 1e-12 {
		return rapl.State{}, fmt.Errorf("%w: %s=%g disagrees with %s=%d",
			ErrInconsistentState, KeyUnitWatts, st.UnitWatts, KeyPowerUnit, st.PowerUnit)
	}
	return st, nil
}
