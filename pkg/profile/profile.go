package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrBadLimits rejects non-positive or implausibly large watt
	// values before they reach any conversion.
	ErrBadLimits = errors.New("profile: bad power limits")

	// ErrBadRatio rejects ratio multipliers outside the 8-bit range the
	// turbo mailbox accepts (0 means unset).
	ErrBadRatio = errors.New("profile: bad core ratio")
)

// The original UI refuses requests above this as fat-fingered input.
const maxWatts = 5000

// Profile is one saved operator configuration. Ratio and offset fields
// are zero when the profile does not touch them.
type Profile struct {
	PL1Watts     float64 `json:"pl1_watts"`
	PL2Watts     float64 `json:"pl2_watts"`
	PRatio       int     `json:"p_ratio,omitempty"`
	ERatio       int     `json:"e_ratio,omitempty"`
	CoreOffsetMV float64 `json:"core_offset_mv,omitempty"`
}

func (p *Profile) Validate() error {
	if p.PL1Watts <= 0 || p.PL2Watts <= 0 || p.PL1Watts > maxWatts || p.PL2Watts > maxWatts {
		return fmt.Errorf("%w: pl1=%g pl2=%g", ErrBadLimits, p.PL1Watts, p.PL2Watts)
	}
	if p.PRatio < 0 || p.PRatio > 255 || p.ERatio < 0 || p.ERatio > 255 {
		return fmt.Errorf("%w: p=%d e=%d", ErrBadRatio, p.PRatio, p.ERatio)
	}
	return nil
}

// Load reads and validates a profile file.
func Load(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// Save writes the profile via a temp file in the target directory and
// renames it into place, so a crash never leaves a torn profile.
func (p *Profile) Save(path string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: encode: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".profile-*")
	if err != nil {
		return fmt.Errorf("profile: temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("profile: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("profile: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("profile: rename into %s: %w", path, err)
	}
	return nil
}
