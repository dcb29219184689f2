package audio

import "math"

// RMS returns the root mean square of the samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// VolumeLevel returns the RMS level clamped to [0, 1].
func VolumeLevel(samples []float32) float64 {
	return min(RMS(samples), 1)
}

// IsSilent reports whether no sample reaches threshold in magnitude.
func IsSilent(samples []float32, threshold float64) bool {
	return Peak(samples) < threshold
}
