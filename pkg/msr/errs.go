package msr

import "errors"

var (
	// ErrAccessDenied indicates insufficient privilege for the register
	// file. Actionable: run as root, or load the msr kernel module.
	ErrAccessDenied = errors.New("msr: access denied")

	// ErrShortTransfer indicates a transfer moved fewer than 8 bytes on
	// an otherwise-permitted register file (driver or hardware trouble).
	ErrShortTransfer = errors.New("msr: short transfer")
)
