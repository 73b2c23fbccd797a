package tone

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/asorsynth/asor-core/dsp/core"
)

const minSignalLength = 16

// Result holds a single-tone analysis.
type Result struct {
	FrequencyHz float64
	Level       float64 // fundamental amplitude, linear
	LeveldB     float64
	RMS         float64
}

// Analyze windows the signal, transforms it and locates the dominant
// spectral peak with parabolic interpolation between bins.
func Analyze(signal []float64, sampleRate float64) (Result, error) {
	if len(signal) < minSignalLength {
		return Result{}, fmt.Errorf("tone: signal too short: %d samples (need >= %d)", len(signal), minSignalLength)
	}
	if sampleRate <= 0 {
		return Result{}, fmt.Errorf("tone: sample rate must be > 0: %f", sampleRate)
	}

	rms := math.Sqrt(vecmath.DotProduct(signal, signal) / float64(len(signal)))

	fftSize := nextPow2(len(signal))
	in := make([]complex128, fftSize)
	windowSum := 0.0
	for i, s := range signal {
		// Hann window.
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(len(signal)-1)))
		in[i] = complex(s*w, 0)
		windowSum += w
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Result{}, fmt.Errorf("tone: fft plan: %w", err)
	}
	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return Result{}, fmt.Errorf("tone: fft: %w", err)
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for i := 0; i < bins; i++ {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}
	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	// Skip DC and Nyquist when hunting the peak.
	peak := 1
	for i := 2; i < bins-1; i++ {
		if mag[i] > mag[peak] {
			peak = i
		}
	}

	// Parabolic interpolation around the peak bin.
	delta := 0.0
	if peak > 1 && peak < bins-2 {
		a, b, c := mag[peak-1], mag[peak], mag[peak+1]
		if denom := a - 2*b + c; denom != 0 {
			delta = 0.5 * (a - c) / denom
		}
	}

	level := 2 * mag[peak] / windowSum
	return Result{
		FrequencyHz: (float64(peak) + delta) * sampleRate / float64(fftSize),
		Level:       level,
		LeveldB:     core.LinearToDB(level),
		RMS:         rms,
	}, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
