package rapl

import (
	"fmt"
	"math"
)

const (
	// MaxUnits is the ceiling of the 15-bit power-limit unit fields.
	MaxUnits = 0x7FFF

	unitsMask     = uint32(0x7FFF)
	powerUnitMask = uint64(0xF)
)

// DecodeLimits extracts the PL1 (bits 14:0) and PL2 (bits 46:32) unit
// fields from a raw power-limit register value. The layout is identical
// for the MSR and the MCHBAR mirror.
func DecodeLimits(raw uint64) (pl1, pl2 uint16) {
	return uint16(uint32(raw) & unitsMask), uint16(uint32(raw>>32) & unitsMask)
}

// EncodeLimits replaces only the two 15-bit unit fields of raw. The
// other 49 bits (enable, clamp, time window) pass through verbatim from
// the value most recently read off the same register.
func EncodeLimits(raw uint64, pl1, pl2 uint16) uint64 {
	lo := uint32(raw)&^unitsMask | uint32(pl1)&unitsMask
	hi := uint32(raw>>32)&^unitsMask | uint32(pl2)&unitsMask
	return uint64(hi)<<32 | uint64(lo)
}

// PowerUnitFromMSR extracts the power-unit exponent (bits 3:0) from a
// raw MSR_RAPL_POWER_UNIT value.
func PowerUnitFromMSR(raw uint64) int { return int(raw & powerUnitMask) }

// UnitWatts converts the exponent to the watts-per-unit scale, 2^-n.
// A non-positive exponent means the scale could not be determined and
// no conversion in the session can be trusted.
func UnitWatts(powerUnit int) (float64, error) {
	if powerUnit <= 0 || powerUnit > 15 {
		return 0, fmt.Errorf("%w: exponent %d", ErrBadPowerUnit, powerUnit)
	}
	return 1.0 / float64(uint64(1)<<powerUnit), nil
}

// WattsToUnits converts operator-requested watts to hardware units,
// rounding to nearest.
func WattsToUnits(watts, unitWatts float64) (uint16, error) {
	if unitWatts <= 0 || math.IsNaN(unitWatts) {
		return 0, fmt.Errorf("%w: scale %g W/unit", ErrBadPowerUnit, unitWatts)
	}
	u := math.Round(watts / unitWatts)
	if !(u >= 1 && u <= MaxUnits) {
		return 0, fmt.Errorf("%.3f W is %g units: %w", watts, u, ErrOutOfRange)
	}
	return uint16(u), nil
}

// UnitsToWatts is the inverse scale, used for display.
func UnitsToWatts(units uint16, unitWatts float64) float64 {
	return float64(units) * unitWatts
}
