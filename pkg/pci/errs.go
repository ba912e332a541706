package pci

import "errors"

// ErrNotFound indicates that no Intel host-bridge-class device exists
// in the PCI device listing.
var ErrNotFound = errors.New("pci: intel host bridge not found")
