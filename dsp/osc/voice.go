package osc

import (
	"fmt"
	"math"
)

// Waveform identifies an oscillator shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WavePulse

	waveformCount // sentinel for validation
)

var waveformNames = [waveformCount]string{"Sine", "Saw", "Pulse"}

// String returns the name of the waveform.
func (w Waveform) String() string {
	if w.Valid() {
		return waveformNames[w]
	}
	return fmt.Sprintf("Waveform(%d)", w)
}

// Valid reports whether w is a known waveform.
func (w Waveform) Valid() bool {
	return w >= 0 && w < waveformCount
}

// voice is one synthesis voice. Phase runs in [0, 1) and wraps.
type voice struct {
	waveform   Waveform
	frequency  float64
	pulseWidth float64
	amplitude  float64
	phase      float64
}

// next returns the current sample and advances the phase by one step.
func (v *voice) next(sampleRate float64) float64 {
	s := v.sample() * v.amplitude

	v.phase += v.frequency / sampleRate
	for v.phase >= 1 {
		v.phase -= 1
	}

	return s
}

func (v *voice) sample() float64 {
	switch v.waveform {
	case WaveSaw:
		return 2*v.phase - 1
	case WavePulse:
		if v.phase < v.pulseWidth {
			return 1
		}
		return -1
	default:
		return math.Sin(2 * math.Pi * v.phase)
	}
}
