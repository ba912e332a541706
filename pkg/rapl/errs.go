package rapl

import "errors"

var (
	// ErrOutOfRange indicates requested watts converted to a unit count
	// of zero or beyond the 15-bit field ceiling. Zero is rejected
	// outright: a zero limit silently disables enforcement in a way
	// indistinguishable from a conversion bug.
	ErrOutOfRange = errors.New("rapl: power limit out of range")

	// ErrBadPowerUnit indicates the unit scale read from the CPU is
	// indeterminate; no conversion is trustworthy in that session.
	ErrBadPowerUnit = errors.New("rapl: indeterminate power unit")
)
