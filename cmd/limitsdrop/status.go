//go:build linux

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klasnalol/Limits-droper/pkg/helper"
	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/klasnalol/Limits-droper/pkg/system/cpuinfo"
	"github.com/klasnalol/Limits-droper/pkg/system/drivers"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

func newStatusCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current PL1/PL2 limits from both registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(g)
		},
	}
}

func runStatus(g *globalOpts) error {
	printCPUSummary(g.cpu)

	if g.helperPath != "" {
		st, err := helper.NewClient(g.helperPath).State()
		if err != nil {
			return err
		}
		fmt.Printf("Power unit: 2^-%d (%g W/unit)\n", st.PowerUnit, st.UnitWatts)
		tw := newTable()
		registerLine(tw, "MSR 0x610", st.MSR, st.UnitWatts)
		registerLine(tw, "MMIO 0x59A0", st.MMIO, st.UnitWatts)
		return tw.Flush()
	}

	if mode, detail, err := drivers.Detect(); err == nil {
		fmt.Printf("Interfaces: %s (%s)\n", mode, detail)
	}

	d, err := rapl.OpenDirect(g.cpu, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = d.Close()
	}()

	fmt.Printf("Host bridge: %s, MCHBAR base 0x%x\n", d.BridgeAddr, d.Base)

	// Inspection is best-effort per register: one dead transport must
	// not hide the live one.
	ins := d.Inspect()
	if ins.UnitErr != nil && ins.MSRErr != nil && ins.MMIOErr != nil {
		return fmt.Errorf("status: %w", errors.Join(ins.UnitErr, ins.MSRErr, ins.MMIOErr))
	}

	if ins.UnitErr != nil {
		fmt.Printf("Power unit: unreadable (%v); raw values only\n", ins.UnitErr)
	} else {
		fmt.Printf("Power unit: 2^-%d (%g W/unit)\n", ins.PowerUnit, ins.UnitWatts)
	}

	tw := newTable()
	printReg := func(label string, raw uint64, err error) {
		if err != nil {
			fmt.Fprintf(tw, "%s\tunreadable: %v\n", label, err)
			return
		}
		if ins.UnitErr != nil {
			pl1, pl2 := rapl.DecodeLimits(raw)
			fmt.Fprintf(tw, "%s\t%s\tPL1 %d u\tPL2 %d u\n", label, types.Hex64(raw), pl1, pl2)
			return
		}
		registerLine(tw, label, raw, ins.UnitWatts)
	}
	printReg("MSR 0x610", ins.MSR, ins.MSRErr)
	printReg("MMIO 0x59A0", ins.MMIO, ins.MMIOErr)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Println("MCHBAR package RAPL block:")
	tw = newTable()
	for _, r := range d.MMIORegisters() {
		if r.Err != nil {
			fmt.Fprintf(tw, "  +0x%04x\t%s\tunreadable: %v\n", r.Off, r.Name, r.Err)
			continue
		}
		fmt.Fprintf(tw, "  +0x%04x\t%s\t%s\n", r.Off, r.Name, types.Hex64(r.Val))
	}
	return tw.Flush()
}

// printCPUSummary is decorative; a missing /proc/cpuinfo never fails
// the status command.
func printCPUSummary(cpu int) {
	info, err := cpuinfo.Read()
	if err != nil {
		return
	}
	tw := newTable()
	if info.ModelName != "" {
		fmt.Fprintf(tw, "CPU\t%s\n", info.ModelName)
	}
	if info.Family != "" {
		fmt.Fprintf(tw, "Signature\tfamily %s model %s stepping %s\n",
			info.Family, info.Model, info.Stepping)
	}
	fmt.Fprintf(tw, "Topology\t%d logical / %d cores / %d package(s)\n",
		info.LogicalCPUs, info.PhysicalCores, info.Packages)
	if info.MaxMHz > 0 {
		line := fmt.Sprintf("%.0f-%.0f MHz", info.MinMHz, info.MaxMHz)
		if cur := cpuinfo.CurrentMHz(cpu); cur > 0 {
			line += fmt.Sprintf(", cpu%d now %.0f MHz", cpu, cur)
		}
		fmt.Fprintf(tw, "Frequency\t%s\n", line)
	}
	_ = tw.Flush()
}
