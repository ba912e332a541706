//go:build linux

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

type setOpts struct {
	pl1      float64
	pl2      float64
	target   string
	powercap bool
	yes      bool
}

func newSetCmd(g *globalOpts) *cobra.Command {
	var o setOpts
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Rewrite the PL1/PL2 limit fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(g, o)
		},
	}
	cmd.Flags().Float64Var(&o.pl1, "pl1", 0, "long-term power limit in watts")
	cmd.Flags().Float64Var(&o.pl2, "pl2", 0, "short-term power limit in watts")
	cmd.Flags().StringVar(&o.target, "target", "both", "register(s) to write: msr, mmio or both")
	cmd.Flags().BoolVar(&o.powercap, "powercap", false, "also mirror the limits into /sys/class/powercap")
	cmd.Flags().BoolVar(&o.yes, "yes", false, "apply without asking for confirmation")
	_ = cmd.MarkFlagRequired("pl1")
	_ = cmd.MarkFlagRequired("pl2")
	return cmd
}

func runSet(g *globalOpts, o setOpts) error {
	target, err := rapl.ParseTarget(o.target)
	if err != nil {
		return err
	}
	return applyLimits(g, types.Watts(o.pl1), types.Watts(o.pl2), target, o.powercap, o.yes)
}

// applyLimits is the read-convert-preview-confirm-write workflow shared
// by set and profile apply. The preview is printed identically whether
// or not the operator is asked.
func applyLimits(g *globalOpts, pl1, pl2 types.Watts, target rapl.Target, powercap, yes bool) error {
	acc, err := openAccess(g, true)
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
	plan, err := rapl.NewPlan(st, pl1, pl2)
	if err != nil {
		return err
	}

	fmt.Printf("Power unit: 2^-%d (%g W/unit)\n", st.PowerUnit, st.UnitWatts)
	fmt.Printf("Request: PL1 %s -> %d u (%s), PL2 %s -> %d u (%s)\n",
		pl1, plan.PL1Units, types.Watts(rapl.UnitsToWatts(plan.PL1Units, st.UnitWatts)),
		pl2, plan.PL2Units, types.Watts(rapl.UnitsToWatts(plan.PL2Units, st.UnitWatts)))

	tw := newTable()
	if target == rapl.TargetMSR || target == rapl.TargetBoth {
		fmt.Fprintf(tw, "MSR 0x610\t%s\t->\t%s\n", types.Hex64(st.MSR), types.Hex64(plan.NextMSR))
	}
	if target == rapl.TargetMMIO || target == rapl.TargetBoth {
		fmt.Fprintf(tw, "MMIO 0x59A0\t%s\t->\t%s\n", types.Hex64(st.MMIO), types.Hex64(plan.NextMMIO))
	}
	if powercap {
		fmt.Fprintf(tw, "powercap\tPL1 %s\tPL2 %s\n", plan.PL1Micro, plan.PL2Micro)
	}
	_ = tw.Flush()

	if !yes && !confirm("Apply?") {
		fmt.Println("Canceled, nothing written.")
		return nil
	}

	res := rapl.Apply(acc, plan, target, powercap)
	reportResult(res, target, powercap)
	if res.Err() != nil {
		return errors.New("apply finished with failures")
	}
	return nil
}

func reportResult(res rapl.Result, target rapl.Target, powercap bool) {
	line := func(label string, written bool, err error) {
		if err != nil {
			fmt.Printf("%s: FAILED: %v\n", label, err)
		} else if written {
			fmt.Printf("%s: written\n", label)
		}
	}
	if target == rapl.TargetMSR || target == rapl.TargetBoth {
		line("MSR 0x610", res.MSRWritten, res.MSRErr)
	}
	if target == rapl.TargetMMIO || target == rapl.TargetBoth {
		line("MMIO 0x59A0", res.MMIOWritten, res.MMIOErr)
	}
	if powercap {
		line("powercap", res.PowercapWritten, res.PowercapErr)
	}
}
