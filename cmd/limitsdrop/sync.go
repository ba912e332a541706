//go:build linux

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

func newSyncCmd(g *globalOpts) *cobra.Command {
	var (
		direction string
		yes       bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy one register's raw value verbatim onto the other",
		Long: `sync forces the MSR and the MCHBAR mirror into bit-exact agreement by
copying the full 64-bit source register onto the destination. No fields
are decoded or adjusted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(g, direction, yes)
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "", "copy direction: msr-to-mmio or mmio-to-msr")
	cmd.Flags().BoolVar(&yes, "yes", false, "apply without asking for confirmation")
	_ = cmd.MarkFlagRequired("direction")
	return cmd
}

func runSync(g *globalOpts, direction string, yes bool) error {
	dir, err := rapl.ParseDirection(direction)
	if err != nil {
		return err
	}

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
	dst, val, err := rapl.SyncPlan(st, dir)
	if err != nil {
		return err
	}

	fmt.Printf("%s: write %s to %s (currently %s)\n",
		dir, types.Hex64(val), dst, types.Hex64(st.Raw(dst)))
	if !yes && !confirm("Copy?") {
		fmt.Println("Canceled, nothing written.")
		return nil
	}
	if err := acc.WriteRegister(dst, val); err != nil {
		return err
	}
	fmt.Printf("%s: written\n", dst)
	return nil
}
