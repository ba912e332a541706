//go:build linux

package msr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Model-specific register addresses used by the power-limit tooling.
// These are stable across the supported platform family.
const (
	RaplPowerUnit = 0x606 // MSR_RAPL_POWER_UNIT
	PkgPowerLimit = 0x610 // MSR_PKG_POWER_LIMIT
)

// devPattern is a var so tests can point Open at a regular file.
var devPattern = "/dev/cpu/%d/msr"

// Device is an open per-logical-CPU register file. Reads and writes are
// positioned at the register's numeric address. Not safe for concurrent
// use; exactly one in-flight operation is assumed.
type Device struct {
	f   *os.File
	cpu int
}

// Open opens the register file for the given logical CPU (the package
// registers are mirrored on every logical CPU, so cpu 0 is the usual
// choice). A permission failure maps to ErrAccessDenied so callers can
// tell "run as root / modprobe msr" apart from hardware trouble.
func Open(cpu int) (*Device, error) {
	path := fmt.Sprintf(devPattern, cpu)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("msr: open %s: %w", path, ErrAccessDenied)
		}
		return nil, fmt.Errorf("msr: open %s: %w", path, err)
	}
	return &Device{f: f, cpu: cpu}, nil
}

// Read returns the 64-bit value of the register at addr.
func (d *Device) Read(addr uint32) (uint64, error) {
	var b [8]byte
	n, err := d.f.ReadAt(b[:], int64(addr))
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return 0, fmt.Errorf("msr: read cpu%d 0x%x: %w", d.cpu, addr, ErrAccessDenied)
		}
		return 0, fmt.Errorf("msr: read cpu%d 0x%x: %w", d.cpu, addr, err)
	}
	if n != len(b) {
		return 0, fmt.Errorf("msr: read cpu%d 0x%x got %d bytes: %w", d.cpu, addr, n, ErrShortTransfer)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Write stores a 64-bit value into the register at addr. Failed writes
// are never retried here; the caller decides how to recover.
func (d *Device) Write(addr uint32, val uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], val)
	n, err := d.f.WriteAt(b[:], int64(addr))
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("msr: write cpu%d 0x%x: %w", d.cpu, addr, ErrAccessDenied)
		}
		return fmt.Errorf("msr: write cpu%d 0x%x: %w", d.cpu, addr, err)
	}
	if n != len(b) {
		return fmt.Errorf("msr: write cpu%d 0x%x put %d bytes: %w", d.cpu, addr, n, ErrShortTransfer)
	}
	return nil
}

// Close releases the register file. Safe to call more than once.
func (d *Device) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
