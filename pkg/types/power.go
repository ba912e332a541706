package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Watts is a float64 wrapper representing electrical power in watts.
type Watts float64

func (w Watts) String() string { return fmt.Sprintf("%.2f W", float64(w)) }

// Micro returns the value in microwatts, rounded to the nearest integer.
// This is the unit the kernel powercap interface consumes.
func (w Watts) Micro() Microwatts {
	return Microwatts(math.Round(float64(w) * 1e6))
}

// Microwatts is a uint64 wrapper for kernel powercap limit values.
type Microwatts uint64

func (uw Microwatts) Watts() Watts { return Watts(float64(uw) / 1e6) }

func (uw Microwatts) String() string { return fmt.Sprintf("%d uW", uint64(uw)) }

// Hex64 formats a 64-bit register value the way every surface of the
// tool prints it: zero-padded 0x-prefixed hex.
func Hex64(v uint64) string { return fmt.Sprintf("0x%016x", v) }

// ParseHex64 parses a 64-bit register value in 0x-prefixed or bare
// hex. Bare digit strings are taken as hex to match the register-dump
// convention of the line protocol.
func ParseHex64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("types: empty register value")
	}
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		s = rest
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("types: bad register value %q: %w", s, err)
	}
	return v, nil
}
