//go:build linux

package powercap

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klasnalol/Limits-droper/pkg/types"
)

const (
	// DefaultRoot is the kernel powercap class directory.
	DefaultRoot = "/sys/class/powercap"

	// zone is the package-level intel-rapl domain; constraint 0 is the
	// long-term (PL1) limit, constraint 1 the short-term (PL2) one.
	zone = "intel-rapl:0"

	pl1File = "constraint_0_power_limit_uw"
	pl2File = "constraint_1_power_limit_uw"
)

// Controller writes the software power-cap mirror. This is a parallel,
// best-effort layer next to the hardware registers; its failures never
// undo register writes.
type Controller struct {
	root string
}

func New() *Controller { return &Controller{root: DefaultRoot} }

// NewAt uses an alternate class root (tests).
func NewAt(root string) *Controller { return &Controller{root: root} }

// Write stores both limits, PL1 first. Zero values are rejected before
// anything is written.
func (c *Controller) Write(pl1, pl2 types.Microwatts) error {
	if pl1 == 0 || pl2 == 0 {
		return fmt.Errorf("powercap: zero limit (pl1=%d pl2=%d)", pl1, pl2)
	}
	if err := c.writeValue(pl1File, pl1); err != nil {
		return err
	}
	return c.writeValue(pl2File, pl2)
}

func (c *Controller) writeValue(name string, v types.Microwatts) error {
	path := filepath.Join(c.root, zone, name)
	// sysfs attributes exist already; plain O_WRONLY, no create/trunc
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("powercap: open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.WriteString(strconv.FormatUint(uint64(v), 10)); err != nil {
		return fmt.Errorf("powercap: write %s: %w", path, err)
	}
	return nil
}
