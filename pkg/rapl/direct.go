//go:build linux

package rapl

import (
	"errors"
	"fmt"

	"github.com/klasnalol/Limits-droper/pkg/mchbar"
	"github.com/klasnalol/Limits-droper/pkg/msr"
	"github.com/klasnalol/Limits-droper/pkg/pci"
	"github.com/klasnalol/Limits-droper/pkg/powercap"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

// Direct is the in-process RegisterAccess over the real device nodes.
// It owns one MSR file and one MCHBAR mapping for the lifetime of a
// session; Close releases both on every exit path.
type Direct struct {
	dev *msr.Device
	win *mchbar.Window
	pc  *powercap.Controller

	// BridgeAddr and Base record how the MMIO side was located, for
	// operator-facing diagnostics.
	BridgeAddr string
	Base       uint64
}

// OpenDirect locates the host bridge, resolves the MCHBAR base fresh
// (never cached across runs) and opens both transports. writable
// selects a PROT_WRITE mapping; inspection-only callers pass false.
func OpenDirect(cpu int, writable bool) (*Direct, error) {
	bridge, err := pci.FindHostBridge()
	if err != nil {
		return nil, err
	}
	base, err := mchbar.ResolveBase(bridge.ConfigPath())
	if err != nil {
		return nil, err
	}
	dev, err := msr.Open(cpu)
	if err != nil {
		return nil, err
	}
	win, err := mchbar.Open(base, writable)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return &Direct{
		dev:        dev,
		win:        win,
		pc:         powercap.New(),
		BridgeAddr: bridge.Addr,
		Base:       base,
	}, nil
}

// State reads the unit scale and both registers; the full apply
// workflow requires every piece, so the first failure aborts the read.
func (d *Direct) State() (State, error) {
	unitRaw, err := d.dev.Read(msr.RaplPowerUnit)
	if err != nil {
		return State{}, err
	}
	pu := PowerUnitFromMSR(unitRaw)
	uw, err := UnitWatts(pu)
	if err != nil {
		return State{}, err
	}
	msrRaw, err := d.dev.Read(msr.PkgPowerLimit)
	if err != nil {
		return State{}, err
	}
	mmioRaw, err := d.win.Read64(mchbar.PkgPowerLimit)
	if err != nil {
		return State{}, err
	}
	return State{PowerUnit: pu, UnitWatts: uw, MSR: msrRaw, MMIO: mmioRaw}, nil
}

// Inspection is a best-effort read for display: each register carries
// its own error so a dead transport does not hide the live one.
type Inspection struct {
	PowerUnit int
	UnitWatts float64
	UnitErr   error

	MSR    uint64
	MSRErr error

	MMIO    uint64
	MMIOErr error
}

// Inspect reads everything independently. Only inspection may use
// this; writes go through State, which insists on a complete read.
func (d *Direct) Inspect() Inspection {
	var ins Inspection
	unitRaw, err := d.dev.Read(msr.RaplPowerUnit)
	if err == nil {
		ins.PowerUnit = PowerUnitFromMSR(unitRaw)
		ins.UnitWatts, ins.UnitErr = UnitWatts(ins.PowerUnit)
	} else {
		ins.UnitErr = err
	}
	ins.MSR, ins.MSRErr = d.dev.Read(msr.PkgPowerLimit)
	ins.MMIO, ins.MMIOErr = d.win.Read64(mchbar.PkgPowerLimit)
	return ins
}

// MMIORegisters dumps the raw package RAPL block of the mapped window
// for the status report.
func (d *Direct) MMIORegisters() []mchbar.Register {
	return d.win.ReadRAPLBlock()
}

func (d *Direct) WriteRegister(t Target, val uint64) error {
	switch t {
	case TargetMSR:
		return d.dev.Write(msr.PkgPowerLimit, val)
	case TargetMMIO:
		return d.win.Write64(mchbar.PkgPowerLimit, val)
	default:
		return fmt.Errorf("rapl: invalid write target %s", t)
	}
}

func (d *Direct) WritePowercap(pl1, pl2 types.Microwatts) error {
	return d.pc.Write(pl1, pl2)
}

func (d *Direct) Close() error {
	return errors.Join(d.dev.Close(), d.win.Close())
}
