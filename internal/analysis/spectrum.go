package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

var ErrShortSeries = errors.New("analysis: series too short")

// Spectrum is the one-sided power spectrum of a real series. Power[i] is
// the magnitude at Freqs[i] hertz.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum removes the mean of data and transforms it. sampleRate is
// in samples per second.
func PowerSpectrum(data []float64, sampleRate float64) (Spectrum, error) {
	n := len(data)
	if n < 4 {
		return Spectrum{}, ErrShortSeries
	}

	mean := stat.Mean(data, nil)
	centered := make([]float64, n)
	for i, v := range data {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	half := n / 2
	s := Spectrum{
		Freqs: make([]float64, half),
		Power: make([]float64, half),
	}
	for i := 0; i < half; i++ {
		s.Freqs[i] = float64(i) * sampleRate / float64(n)
		s.Power[i] = cmplx.Abs(coeffs[i])
	}
	return s, nil
}

// Dominant returns the strongest non-DC component.
func (s Spectrum) Dominant() (freq, power float64) {
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > power {
			freq, power = s.Freqs[i], s.Power[i]
		}
	}
	return freq, power
}

// SampleRate estimates samples per second from recorded timestamps.
func SampleRate(times []float64) float64 {
	n := len(times)
	if n < 2 || times[n-1] <= times[0] {
		return 0
	}
	return float64(n-1) / (times[n-1] - times[0])
}
