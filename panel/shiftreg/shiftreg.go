package shiftreg

import (
	"fmt"

	"github.com/asorsynth/asor-core/panel/hw"
)

// BitOrder selects which end of the word leaves the chain first.
type BitOrder int

const (
	MSBFirst BitOrder = iota
	LSBFirst
)

// In reads a chain of parallel-in shift registers.
type In struct {
	load  hw.OutputPin
	clock hw.OutputPin
	data  hw.InputPin
	bits  int
	order BitOrder
}

// NewIn creates a reader for a chain carrying bits input lines.
func NewIn(load, clock hw.OutputPin, data hw.InputPin, bits int, order BitOrder) (*In, error) {
	if bits <= 0 || bits > 32 {
		return nil, fmt.Errorf("shiftreg: input bit count must be in 1..32: %d", bits)
	}
	in := &In{load: load, clock: clock, data: data, bits: bits, order: order}
	in.load.Set(true)
	in.clock.Set(false)
	return in, nil
}

// Read latches the parallel inputs and shifts out one full word.
func (in *In) Read() uint32 {
	// Low pulse captures the parallel inputs.
	in.load.Set(false)
	in.load.Set(true)

	var word uint32
	for i := 0; i < in.bits; i++ {
		bit := in.data.Get()
		if in.order == MSBFirst {
			word <<= 1
			if bit {
				word |= 1
			}
		} else if bit {
			word |= 1 << i
		}
		in.clock.Set(true)
		in.clock.Set(false)
	}
	return word
}

// OutOption configures an Out driver.
type OutOption func(*Out)

// WithInvertedOutputs flips every bit before shifting, for loads that
// are active low (common-anode LEDs).
func WithInvertedOutputs() OutOption {
	return func(o *Out) {
		o.invert = true
	}
}

// Out drives a chain of latched output shift registers.
type Out struct {
	data   hw.OutputPin
	clock  hw.OutputPin
	latch  hw.OutputPin
	bits   int
	order  BitOrder
	invert bool
}

// NewOut creates a driver for a chain carrying bits output lines.
func NewOut(data, clock, latch hw.OutputPin, bits int, order BitOrder, opts ...OutOption) (*Out, error) {
	if bits <= 0 || bits > 32 {
		return nil, fmt.Errorf("shiftreg: output bit count must be in 1..32: %d", bits)
	}
	out := &Out{data: data, clock: clock, latch: latch, bits: bits, order: order}
	for _, opt := range opts {
		if opt != nil {
			opt(out)
		}
	}
	out.clock.Set(false)
	out.latch.Set(false)
	return out, nil
}

// Bits returns the chain width.
func (o *Out) Bits() int {
	return o.bits
}

// Write shifts word into the chain and latches it to the outputs in one
// commit, so intermediate shift states never reach the pins.
func (o *Out) Write(word uint32) {
	if o.invert {
		word = ^word
	}

	o.latch.Set(false)
	for i := 0; i < o.bits; i++ {
		var bit bool
		if o.order == MSBFirst {
			bit = word&(1<<(o.bits-1-i)) != 0
		} else {
			bit = word&(1<<i) != 0
		}
		o.data.Set(bit)
		o.clock.Set(true)
		o.clock.Set(false)
	}
	o.latch.Set(true)
	o.latch.Set(false)
}
