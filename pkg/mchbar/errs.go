package mchbar

import "errors"

var (
	// ErrDisabled indicates the MCHBAR enable bit is clear in the host
	// bridge's base address register.
	ErrDisabled = errors.New("mchbar: disabled")

	// ErrZeroBase indicates the register decoded to a zero base address.
	ErrZeroBase = errors.New("mchbar: zero base address")

	// ErrAccessDenied indicates insufficient privilege for /dev/mem or
	// the config space file (typically: not running as root).
	ErrAccessDenied = errors.New("mchbar: access denied")

	// ErrOutOfWindow indicates a register offset beyond the mapped span.
	ErrOutOfWindow = errors.New("mchbar: offset outside mapped window")

	// ErrReadOnly indicates a write on a window opened for inspection.
	ErrReadOnly = errors.New("mchbar: window is read-only")
)
