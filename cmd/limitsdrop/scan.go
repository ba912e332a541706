//go:build linux

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klasnalol/Limits-droper/pkg/mchbar"
	"github.com/klasnalol/Limits-droper/pkg/msr"
	"github.com/klasnalol/Limits-droper/pkg/pci"
	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

// Enable bits of the two limit halves (bit 15 of each 32-bit word).
const (
	pl1Enable = uint64(1) << 15
	pl2Enable = uint64(1) << 47
)

type scanOpts struct {
	pl1   float64
	pl2   float64
	units []uint
	any   bool
}

func newScanCmd(g *globalOpts) *cobra.Command {
	var o scanOpts
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Sweep the MCHBAR window for matching power-limit values",
		Long: `scan maps the MCHBAR window read-only and reports every 64-bit value
whose two 15-bit limit fields match the requested PL1/PL2. Useful for
locating the mirror register on an untested chipset generation. Watt
requests are converted with the live unit scale from MSR 0x606; --units
matches raw unit fields instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(g, o)
		},
	}
	cmd.Flags().Float64Var(&o.pl1, "pl1", 0, "PL1 to look for, in watts")
	cmd.Flags().Float64Var(&o.pl2, "pl2", 0, "PL2 to look for, in watts")
	cmd.Flags().UintSliceVar(&o.units, "units", nil, "match raw unit fields U1,U2 instead of watts")
	cmd.Flags().BoolVar(&o.any, "any", false, "match even when the enable bits are clear")
	return cmd
}

func runScan(g *globalOpts, o scanOpts) error {
	bridge, err := pci.FindHostBridge()
	if err != nil {
		return err
	}
	base, err := mchbar.ResolveBase(bridge.ConfigPath())
	if err != nil {
		return err
	}

	var u1, u2 uint16
	switch {
	case len(o.units) == 2:
		if o.units[0] == 0 || o.units[0] > rapl.MaxUnits || o.units[1] == 0 || o.units[1] > rapl.MaxUnits {
			return fmt.Errorf("--units values must be in 1..%d", rapl.MaxUnits)
		}
		u1, u2 = uint16(o.units[0]), uint16(o.units[1])
	case len(o.units) != 0:
		return fmt.Errorf("--units wants exactly two values, got %d", len(o.units))
	case o.pl1 <= 0 || o.pl2 <= 0:
		return fmt.Errorf("scan needs --pl1/--pl2 in watts or --units U1,U2")
	default:
		u1, u2, err = unitsFromWatts(g.cpu, o.pl1, o.pl2)
		if err != nil {
			return err
		}
	}

	win, err := mchbar.Open(base, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = win.Close()
	}()

	enable := "required"
	if o.any {
		enable = "ignored"
	}
	fmt.Printf("Scanning %d MiB at MCHBAR 0x%x for PL1=0x%04x PL2=0x%04x (enable bits %s)\n",
		mchbar.WindowSize>>20, base, u1, u2, enable)

	matches := 0
	for off := uint32(0); off+8 <= mchbar.WindowSize; off += 8 {
		v, err := win.Read64(off)
		if err != nil {
			return err
		}
		pl1, pl2 := rapl.DecodeLimits(v)
		if pl1 != u1 || pl2 != u2 {
			continue
		}
		if !o.any && (v&pl1Enable == 0 || v&pl2Enable == 0) {
			continue
		}
		fmt.Printf("  +0x%06x  %s\n", off, types.Hex64(v))
		matches++
	}
	if matches == 0 {
		fmt.Println("No matches.")
	} else {
		fmt.Printf("%d match(es).\n", matches)
	}
	return nil
}

// unitsFromWatts reads the live unit scale and converts both requests.
func unitsFromWatts(cpu int, pl1, pl2 float64) (uint16, uint16, error) {
	dev, err := msr.Open(cpu)
	if err != nil {
		return 0, 0, err
	}
	unitRaw, err := dev.Read(msr.RaplPowerUnit)
	if cerr := dev.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, 0, err
	}
	uw, err := rapl.UnitWatts(rapl.PowerUnitFromMSR(unitRaw))
	if err != nil {
		return 0, 0, err
	}
	u1, err := rapl.WattsToUnits(pl1, uw)
	if err != nil {
		return 0, 0, fmt.Errorf("PL1: %w", err)
	}
	u2, err := rapl.WattsToUnits(pl2, uw)
	if err != nil {
		return 0, 0, fmt.Errorf("PL2: %w", err)
	}
	return u1, u2, nil
}
