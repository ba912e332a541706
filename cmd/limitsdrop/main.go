//go:build linux

package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/klasnalol/Limits-droper/pkg/helper"
	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

type globalOpts struct {
	cpu        int
	helperPath string
}

func main() {
	var g globalOpts

	root := &cobra.Command{
		Use:   "limitsdrop",
		Short: "Inspect and override Intel package power limits",
		Long: `limitsdrop reads and rewrites the package RAPL power limits (PL1/PL2)
through both hardware surfaces: the MSR file (MSR_PKG_POWER_LIMIT, 0x610)
and the MCHBAR MMIO mirror at offset 0x59A0, which firmware on some
machines keeps rewriting behind the OS's back. Only the two 15-bit limit
fields are ever changed; every other bit is preserved from the value
last read off the same register.

Root (or a privileged helper via --helper) is required for anything
beyond argument parsing.

Examples:
  limitsdrop status
  limitsdrop set --pl1 35 --pl2 45 --target both --powercap
  limitsdrop sync --direction mmio-to-msr --yes
  limitsdrop scan --pl1 55 --pl2 157`,
		SilenceUsage: true,
	}

	root.PersistentFlags().IntVar(&g.cpu, "cpu", 0, "logical CPU whose MSR device file is used")
	root.PersistentFlags().StringVar(&g.helperPath, "helper", "",
		"run privileged operations through this helper binary instead of direct device access")

	root.AddCommand(
		newStatusCmd(&g),
		newSetCmd(&g),
		newSyncCmd(&g),
		newScanCmd(&g),
		newHelperCmd(&g),
		newProfileCmd(&g),
	)

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// openAccess picks the privileged capability: a helper subprocess when
// --helper is set, direct device access otherwise.
func openAccess(g *globalOpts, writable bool) (rapl.RegisterAccess, error) {
	if g.helperPath != "" {
		return helper.NewClient(g.helperPath), nil
	}
	return rapl.OpenDirect(g.cpu, writable)
}

// confirm prints the prompt and reads one line from stdin. Anything but
// an explicit yes declines.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(sc.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

// registerLine renders one register's raw value with decoded limits.
func registerLine(tw *tabwriter.Writer, label string, raw uint64, unitWatts float64) {
	pl1, pl2 := rapl.DecodeLimits(raw)
	fmt.Fprintf(tw, "%s\t%s\tPL1 %d u (%s)\tPL2 %d u (%s)\n",
		label, types.Hex64(raw),
		pl1, types.Watts(rapl.UnitsToWatts(pl1, unitWatts)),
		pl2, types.Watts(rapl.UnitsToWatts(pl2, unitWatts)))
}
