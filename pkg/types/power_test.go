package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatts_Micro_Rounds(t *testing.T) {
	assert.Equal(t, Microwatts(55_000_000), Watts(55).Micro())
	assert.Equal(t, Microwatts(125_000), Watts(0.125).Micro())
	// rounding, not truncation
	assert.Equal(t, Microwatts(2), Watts(1.5e-6).Micro())
}

func TestMicrowatts_RoundTrip(t *testing.T) {
	uw := Watts(157).Micro()
	assert.InDelta(t, 157.0, float64(uw.Watts()), 1e-9)
}

func TestHex64_Format(t *testing.T) {
	assert.Equal(t, "0x00000004e80001b8", Hex64(0x00000004E80001B8))
	assert.Equal(t, "0x0000000000000000", Hex64(0))
}

func TestParseHex64(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"0x00000004e80001b8", 0x00000004E80001B8, true},
		{"0X1B8", 0x1B8, true},
		{"1b8", 0x1B8, true},
		{"123", 0x123, true}, // bare digits are hex, not decimal
		{" 0x10 ", 0x10, true},
		{"", 0, false},
		{"0xzz", 0, false},
		{"not hex", 0, false},
	}
	for _, c := range cases {
		got, err := ParseHex64(c.in)
		if !c.ok {
			assert.Error(t, err, "input %q", c.in)
			continue
		}
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}
