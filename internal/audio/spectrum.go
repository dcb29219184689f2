package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// SpectrumSize is the FFT length used for visualisation.
	SpectrumSize = 1024
	// SpectrumBins is the number of positive-frequency bins reported.
	SpectrumBins = SpectrumSize / 2
)

// Spectrum holds dB magnitudes of the positive-frequency FFT bins.
type Spectrum struct {
	Frequencies []float64 // Hz, one per bin
	Magnitudes  []float64 // dB
}

// Analyzer computes spectra with a reusable FFT plan. It is not safe for
// concurrent use.
type Analyzer struct {
	fft   *fourier.FFT
	seq   []float64
	coeff []complex128
}

// NewAnalyzer creates an Analyzer for SpectrumSize-point transforms.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		fft: fourier.NewFFT(SpectrumSize),
		seq: make([]float64, SpectrumSize),
	}
}

// Compute returns the spectrum of the first SpectrumSize samples, zero
// padding shorter input.
func (a *Analyzer) Compute(samples []float32, sampleRate int) Spectrum {
	n := copyFloat64(a.seq, samples)
	for i := n; i < len(a.seq); i++ {
		a.seq[i] = 0
	}
	a.coeff = a.fft.Coefficients(a.coeff, a.seq)

	spec := Spectrum{
		Frequencies: make([]float64, SpectrumBins),
		Magnitudes:  make([]float64, SpectrumBins),
	}
	for k := 0; k < SpectrumBins; k++ {
		spec.Frequencies[k] = float64(k) * float64(sampleRate) / SpectrumSize
		spec.Magnitudes[k] = 20 * math.Log10(cmplx.Abs(a.coeff[k])+1e-6)
	}
	return spec
}

// PeakFrequency returns the frequency of the loudest bin, ignoring DC.
func (s Spectrum) PeakFrequency() float64 {
	best := 1
	for k := 2; k < len(s.Magnitudes); k++ {
		if s.Magnitudes[k] > s.Magnitudes[best] {
			best = k
		}
	}
	if best >= len(s.Frequencies) {
		return 0
	}
	return s.Frequencies[best]
}

// Waveform returns the last n samples, left-padded with zeros when fewer
// are available.
func Waveform(samples []float32, n int) []float32 {
	out := make([]float32, n)
	if len(samples) >= n {
		copy(out, samples[len(samples)-n:])
	} else {
		copy(out[n-len(samples):], samples)
	}
	return out
}

func copyFloat64(dst []float64, src []float32) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = float64(src[i])
	}
	return n
}
