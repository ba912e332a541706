//go:build linux

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klasnalol/Limits-droper/pkg/profile"
	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

func newProfileCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Apply or snapshot saved limit profiles",
	}
	cmd.AddCommand(newProfileApplyCmd(g), newProfileSaveCmd(g))
	return cmd
}

func newProfileApplyCmd(g *globalOpts) *cobra.Command {
	var (
		target   string
		powercap bool
		yes      bool
	)
	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Load a profile and run the limit workflow with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileApply(g, args[0], target, powercap, yes)
		},
	}
	cmd.Flags().StringVar(&target, "target", "both", "register(s) to write: msr, mmio or both")
	cmd.Flags().BoolVar(&powercap, "powercap", false, "also mirror the limits into /sys/class/powercap")
	cmd.Flags().BoolVar(&yes, "yes", false, "apply without asking for confirmation")
	return cmd
}

func runProfileApply(g *globalOpts, path, targetStr string, powercap, yes bool) error {
	p, err := profile.Load(path)
	if err != nil {
		return err
	}
	target, err := rapl.ParseTarget(targetStr)
	if err != nil {
		return err
	}

	// Ratio and offset fields are carried in profiles for tools that
	// write them; here they are surfaced, never applied.
	if p.CoreOffsetMV != 0 {
		q := rapl.QuantizeOffsetMV(p.CoreOffsetMV)
		if rapl.OffsetRounded(p.CoreOffsetMV, q) {
			fmt.Printf("Note: core offset %.4f mV snaps to %.4f mV on the hardware grid; not applied here.\n",
				p.CoreOffsetMV, q)
		} else {
			fmt.Printf("Note: profile carries a core offset (%.4f mV); not applied here.\n", p.CoreOffsetMV)
		}
	}
	if p.PRatio != 0 || p.ERatio != 0 {
		fmt.Println("Note: profile carries core ratios; not applied here.")
	}

	return applyLimits(g, types.Watts(p.PL1Watts), types.Watts(p.PL2Watts), target, powercap, yes)
}

func newProfileSaveCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "save FILE",
		Short: "Snapshot the current MSR limits into a profile file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileSave(g, args[0])
		},
	}
}

func runProfileSave(g *globalOpts, path string) error {
	acc, err := openAccess(g, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = acc.Close()
	}()

	st, err := acc.State()
	if err != nil {
		return err
	}
	pl1, pl2 := rapl.DecodeLimits(st.MSR)
	p := &profile.Profile{
		PL1Watts: rapl.UnitsToWatts(pl1, st.UnitWatts),
		PL2Watts: rapl.UnitsToWatts(pl2, st.UnitWatts),
	}
	if err := p.Save(path); err != nil {
		return err
	}
	fmt.Printf("Saved PL1 %s / PL2 %s to %s\n",
		types.Watts(p.PL1Watts), types.Watts(p.PL2Watts), path)
	return nil
}
