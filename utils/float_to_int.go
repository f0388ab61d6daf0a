package utils

// FloatToInt scales x from [-1, 1] to a signed integer sample of the given
// bit depth. Values outside the range are clamped.
func FloatToInt(x float64, bitDepth int) int {
	// Clamp and scale
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Use max-1 for the positive side to avoid overflow
	peak := float64(int64(1)<<(bitDepth-1) - 1)

	return int(x * peak)
}
