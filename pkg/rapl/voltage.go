package rapl

import "math"

// The core voltage offset mailbox steps in 1/1.024 mV increments
// (~0.977 mV). Requested offsets snap to that grid.
const (
	offsetScale = 1.024

	// Below this delta the quantized value is indistinguishable from the
	// request for display purposes.
	reportEpsilonMV = 0.0005
)

// QuantizeOffsetMV snaps a requested core voltage offset (mV) to the
// hardware step grid.
func QuantizeOffsetMV(mv float64) float64 {
	return math.Round(mv*offsetScale) / offsetScale
}

// OffsetRounded reports whether quantization moved the requested value
// far enough that the operator should be shown both numbers.
func OffsetRounded(requested, quantized float64) bool {
	return math.Abs(requested-quantized) >= reportEpsilonMV
}
