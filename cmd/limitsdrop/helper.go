//go:build linux

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/klasnalol/Limits-droper/pkg/helper"
	"github.com/klasnalol/Limits-droper/pkg/powercap"
	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

func newHelperCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "helper (--read | --write-msr HEX | --write-mmio HEX | --write-powercap PL1_UW PL2_UW)",
		Short: "Serve one privileged request on the helper line protocol",
		Long: `helper is the server side of the privileged split: an unprivileged
front end execs it (typically via pkexec or a setuid wrapper) and parses
the KEY=VALUE reply on stdout. One request per invocation.`,
		// The request tokens are the wire form, not cobra flags.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHelper(g, args)
		},
	}
}

func runHelper(g *globalOpts, args []string) error {
	if len(args) == 0 {
		return errors.New("helper: missing request")
	}

	switch req := args[0]; req {
	case helper.ReqRead:
		if len(args) != 1 {
			return fmt.Errorf("helper: %s takes no arguments", req)
		}
		d, err := rapl.OpenDirect(g.cpu, false)
		if err != nil {
			return err
		}
		defer func() {
			_ = d.Close()
		}()
		st, err := d.State()
		if err != nil {
			return err
		}
		_, err = os.Stdout.WriteString(helper.EncodeState(st))
		return err

	case helper.ReqWriteMSR, helper.ReqWriteMMIO:
		if len(args) != 2 {
			return fmt.Errorf("helper: %s wants exactly one register value", req)
		}
		val, err := types.ParseHex64(args[1])
		if err != nil {
			return err
		}
		target := rapl.TargetMSR
		if req == helper.ReqWriteMMIO {
			target = rapl.TargetMMIO
		}
		d, err := rapl.OpenDirect(g.cpu, true)
		if err != nil {
			return err
		}
		defer func() {
			_ = d.Close()
		}()
		return d.WriteRegister(target, val)

	case helper.ReqWritePowercap:
		if len(args) != 3 {
			return fmt.Errorf("helper: %s wants PL1_UW PL2_UW", req)
		}
		pl1, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("helper: bad PL1 microwatts %q: %w", args[1], err)
		}
		pl2, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("helper: bad PL2 microwatts %q: %w", args[2], err)
		}
		return powercap.New().Write(types.Microwatts(pl1), types.Microwatts(pl2))

	default:
		return fmt.Errorf("helper: unknown request %q", req)
	}
}
