//go:build linux

package mchbar

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// WindowSize is the mapped span. 2 MiB comfortably covers the 0x59xx
	// register block and keeps the mapping page aligned.
	WindowSize = 2 << 20

	// Package RAPL register offsets within the window.
	PkgPowerLimit   = 0x59A0
	PkgEnergyStatus = 0x59B0
	PkgPowerInfo    = 0x59C0
	PkgPerfStatus   = 0x59E0
)

// devMem is a var so tests can map a regular file instead.
var devMem = "/dev/mem"

// Window is a mapped view of the MCHBAR register block. The 64-bit
// registers behind it do not support atomic 64-bit transfers, so all
// accesses are composed from 32-bit halves. A Window is not safe for
// concurrent use.
type Window struct {
	f        *os.File
	mem      []byte
	writable bool
}

// Open maps WindowSize bytes of physical memory starting at base.
// Inspection-only callers should pass writable=false to keep the
// mapping PROT_READ. Close must be called on every path.
func Open(base uint64, writable bool) (*Window, error) {
	flag := os.O_RDONLY
	prot := unix.PROT_READ
	if writable {
		flag = os.O_RDWR
		prot |= unix.PROT_WRITE
	}
	f, err := os.OpenFile(devMem, flag|unix.O_SYNC, 0)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("mchbar: open %s: %w", devMem, ErrAccessDenied)
		}
		return nil, fmt.Errorf("mchbar: open %s: %w", devMem, err)
	}

	mem, err := unix.Mmap(int(f.Fd()), int64(base), WindowSize, prot, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mchbar: mmap 0x%x: %w", base, err)
	}
	return &Window{f: f, mem: mem, writable: writable}, nil
}

// Read64 composes a 64-bit register value from two 32-bit reads at
// off and off+4.
func (w *Window) Read64(off uint32) (uint64, error) {
	if err := w.bounds(off); err != nil {
		return 0, err
	}
	lo := binary.LittleEndian.Uint32(w.mem[off:])
	hi := binary.LittleEndian.Uint32(w.mem[off+4:])
	return uint64(lo) | uint64(hi)<<32, nil
}

// Write64 stores the low word first, then the high word; that is the
// acceptance order the hardware was verified with. The high word is
// read back afterwards to fence the store pair.
func (w *Window) Write64(off uint32, v uint64) error {
	if !w.writable {
		return ErrReadOnly
	}
	if err := w.bounds(off); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(w.mem[off:], uint32(v))
	binary.LittleEndian.PutUint32(w.mem[off+4:], uint32(v>>32))
	_ = binary.LittleEndian.Uint32(w.mem[off+4:])
	return nil
}

// Register is one named entry of a package RAPL block dump.
type Register struct {
	Name string
	Off  uint32
	Val  uint64
	Err  error
}

// ReadRAPLBlock dumps the four package RAPL registers of the window,
// best effort per register.
func (w *Window) ReadRAPLBlock() []Register {
	regs := []Register{
		{Name: "PKG_POWER_LIMIT", Off: PkgPowerLimit},
		{Name: "PKG_ENERGY_STATUS", Off: PkgEnergyStatus},
		{Name: "PKG_POWER_INFO", Off: PkgPowerInfo},
		{Name: "PKG_PERF_STATUS", Off: PkgPerfStatus},
	}
	for i := range regs {
		regs[i].Val, regs[i].Err = w.Read64(regs[i].Off)
	}
	return regs
}

func (w *Window) bounds(off uint32) error {
	if int64(off)+8 > int64(len(w.mem)) {
		return fmt.Errorf("%w: 0x%x", ErrOutOfWindow, off)
	}
	return nil
}

// Close releases the mapping, then the file descriptor. Safe to call
// once on every exit path.
func (w *Window) Close() error {
	var errs []error
	if w.mem != nil {
		if err := unix.Munmap(w.mem); err != nil {
			errs = append(errs, fmt.Errorf("mchbar: munmap: %w", err))
		}
		w.mem = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mchbar: close: %w", err))
		}
		w.f = nil
	}
	return errors.Join(errs...)
}
