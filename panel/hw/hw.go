package hw

import "errors"

// ErrNoReading reports that a converter produced no usable value this
// cycle. Callers treat it as transient and keep the previous value.
var ErrNoReading = errors.New("hw: no reading")

// OutputPin is a single digital output.
type OutputPin interface {
	Set(high bool)
}

// InputPin is a single digital input.
type InputPin interface {
	Get() bool
}

// ADC reads one analog channel and returns a raw count.
type ADC interface {
	// Read returns the current conversion for channel, or ErrNoReading
	// when the converter has nothing valid to report.
	Read(channel int) (int, error)

	// Resolution returns the maximum raw count (full scale).
	Resolution() int
}
