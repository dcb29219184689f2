package pipeline

import "math"

// normalizePeak is the peak amplitude windows are scaled to.
const normalizePeak = 0.8

// Preprocess applies a first-difference high-pass filter blended with the
// dry signal, then scales the result to a peak of 0.8. The input is not
// modified.
func Preprocess(samples []float32) []float32 {
	out := make([]float32, len(samples))
	if len(samples) == 0 {
		return out
	}

	prev := samples[0]
	for i, x := range samples {
		diff := x - prev
		prev = x
		out[i] = diff*0.95 + x*0.05
	}

	var peak float64
	for _, v := range out {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak > 0 {
		scale := float32(normalizePeak / peak)
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}
