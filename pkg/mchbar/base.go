//go:build linux

package mchbar

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

const (
	// baseRegOffset is where the host bridge exposes the MCHBAR base
	// address register in PCI configuration space.
	baseRegOffset = 0x48

	baseEnableBit = uint64(1)
	baseAddrMask  = ^uint64(0xFFF)
)

// ResolveBase reads the 64-bit MCHBAR base address register at config
// offset 0x48 and returns the page-aligned physical base. Bit 0 is the
// enable flag; the low 12 bits are masked off the address.
//
// The base is not stable across boots, so this must be called fresh on
// every run, never persisted.
func ResolveBase(configPath string) (uint64, error) {
	f, err := os.Open(configPath)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return 0, fmt.Errorf("mchbar: open %s: %w", configPath, ErrAccessDenied)
		}
		return 0, fmt.Errorf("mchbar: open %s: %w", configPath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var b [8]byte
	n, err := f.ReadAt(b[:], baseRegOffset)
	if err != nil {
		return 0, fmt.Errorf("mchbar: read config +0x%x: %w", baseRegOffset, err)
	}
	if n != len(b) {
		return 0, fmt.Errorf("mchbar: short read at config +0x%x (%d bytes)", baseRegOffset, n)
	}
	return parseBase(binary.LittleEndian.Uint64(b[:]))
}

func parseBase(raw uint64) (uint64, error) {
	if raw&baseEnableBit == 0 {
		return 0, fmt.Errorf("mchbar: register 0x%016x: %w", raw, ErrDisabled)
	}
	base := raw & baseAddrMask
	if base == 0 {
		return 0, fmt.Errorf("mchbar: register 0x%016x: %w", raw, ErrZeroBase)
	}
	return base, nil
}
