//go:build linux

package pci

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultRoot is the sysfs PCI device listing.
	DefaultRoot = "/sys/bus/pci/devices"

	// IntelVendorID is the PCI vendor id of the host bridges this tool
	// knows how to talk to.
	IntelVendorID = 0x8086

	// Host bridge class code is 0x0600xx; the low byte is a programming
	// interface and ignored for matching.
	hostBridgeClass = 0x060000
	classMask       = 0xFFFF00

	// conventionalAddr is bus 0, device 0, function 0 in domain 0, where
	// the host bridge sits on every platform this was verified on.
	conventionalAddr = "0000:00:00.0"
)

// Device identifies one PCI device's sysfs directory. Only the
// identification fields needed for host-bridge matching are read;
// config space itself is left to the caller.
type Device struct {
	Addr   string // domain:bus:dev.fn, e.g. 0000:00:00.0
	Vendor uint32
	Class  uint32

	path string
}

// ConfigPath returns the device's configuration-space file.
func (d *Device) ConfigPath() string { return filepath.Join(d.path, "config") }

func (d *Device) isIntelHostBridge() bool {
	return d.Vendor == IntelVendorID && d.Class&classMask == hostBridgeClass
}

// FindHostBridge locates the Intel host bridge that owns the MCHBAR
// base register. The conventional 0000:00:00.0 address is checked
// first; if it does not identify as an Intel host bridge, every device
// in the listing is inspected and the first match wins.
//
// The result is resolved fresh on every call and must not be cached
// across process runs.
func FindHostBridge() (*Device, error) {
	return findHostBridge(DefaultRoot)
}

func findHostBridge(root string) (*Device, error) {
	if d, err := readDevice(root, conventionalAddr); err == nil && d.isIntelHostBridge() {
		return d, nil
	}

	ents, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("pci: list %s: %w", root, err)
	}
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		d, err := readDevice(root, name)
		if err != nil {
			// devices without readable vendor/class are not candidates
			continue
		}
		if d.isIntelHostBridge() {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

func readDevice(root, addr string) (*Device, error) {
	p := filepath.Join(root, addr)
	vendor, err := readHexFile(filepath.Join(p, "vendor"))
	if err != nil {
		return nil, err
	}
	class, err := readHexFile(filepath.Join(p, "class"))
	if err != nil {
		return nil, err
	}
	return &Device{Addr: addr, Vendor: vendor, Class: class, path: p}, nil
}

// readHexFile parses a single 0x-prefixed hex value, the format sysfs
// uses for vendor/device/class attributes.
func readHexFile(path string) (uint32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("pci: parse %s: %w", path, err)
	}
	return uint32(v), nil
}
