package hw

import "fmt"

// SimPin is an in-memory digital pin recording its level and the number
// of transitions driven onto it.
type SimPin struct {
	level       bool
	transitions int
}

// Set drives the pin.
func (p *SimPin) Set(high bool) {
	if p.level != high {
		p.transitions++
	}
	p.level = high
}

// Get returns the pin level.
func (p *SimPin) Get() bool {
	return p.level
}

// Transitions returns how many level changes the pin has seen.
func (p *SimPin) Transitions() int {
	return p.transitions
}

// SimADC is an in-memory analog converter with per-channel values and
// optional failure injection.
type SimADC struct {
	resolution int
	values     []int
	failing    map[int]bool
}

// NewSimADC creates a converter with the given channel count and full
// scale count.
func NewSimADC(channels, resolution int) *SimADC {
	return &SimADC{
		resolution: resolution,
		values:     make([]int, channels),
		failing:    make(map[int]bool),
	}
}

// SetValue stores the raw count returned for channel.
func (a *SimADC) SetValue(channel, value int) {
	a.values[channel] = value
}

// FailChannel makes Read return ErrNoReading for channel until cleared.
func (a *SimADC) FailChannel(channel int, fail bool) {
	a.failing[channel] = fail
}

// Read implements ADC.
func (a *SimADC) Read(channel int) (int, error) {
	if channel < 0 || channel >= len(a.values) {
		return 0, fmt.Errorf("hw: adc channel out of range: %d (have %d)", channel, len(a.values))
	}
	if a.failing[channel] {
		return 0, ErrNoReading
	}
	return a.values[channel], nil
}

// Resolution implements ADC.
func (a *SimADC) Resolution() int {
	return a.resolution
}

// SimShiftIn simulates a chain of parallel-in shift registers. A low
// pulse on the load pin captures Inputs into the shift stage; each
// rising clock edge shifts the next bit toward the serial output.
type SimShiftIn struct {
	Inputs uint32
	bits   int

	shift     uint32
	lastLoad  bool
	lastClock bool
}

// NewSimShiftIn creates a chain holding bits input lines.
func NewSimShiftIn(bits int) *SimShiftIn {
	return &SimShiftIn{bits: bits, lastLoad: true}
}

// LoadPin returns the latch control input. Driving it low captures the
// parallel inputs.
func (s *SimShiftIn) LoadPin() OutputPin {
	return simFunc(func(high bool) {
		if !high && s.lastLoad {
			s.shift = s.Inputs
		}
		s.lastLoad = high
	})
}

// ClockPin returns the shift clock input. Each rising edge moves the
// next bit to the serial output.
func (s *SimShiftIn) ClockPin() OutputPin {
	return simFunc(func(high bool) {
		if high && !s.lastClock {
			s.shift <<= 1
		}
		s.lastClock = high
	})
}

// DataPin returns the serial output, presenting the highest-order
// remaining bit.
func (s *SimShiftIn) DataPin() InputPin {
	return simInputFunc(func() bool {
		return s.shift&(1<<(s.bits-1)) != 0
	})
}

// SimShiftOut simulates a chain of serial-in latched output registers.
// Bits are clocked in on rising edges; a rising latch edge copies the
// shift stage to the outputs.
type SimShiftOut struct {
	bits int

	dataPin   SimPin
	shift     uint32
	image     uint32
	commits   int
	lastClock bool
	lastLatch bool
}

// NewSimShiftOut creates a chain driving bits output lines.
func NewSimShiftOut(bits int) *SimShiftOut {
	return &SimShiftOut{bits: bits}
}

// DataPin returns the serial data input. Its level is sampled on each
// rising clock edge.
func (s *SimShiftOut) DataPin() OutputPin {
	return &s.dataPin
}

// ClockPin returns the shift clock input.
func (s *SimShiftOut) ClockPin() OutputPin {
	return simFunc(func(high bool) {
		if high && !s.lastClock {
			s.shift = (s.shift << 1) & ((1 << s.bits) - 1)
			if s.dataPin.Get() {
				s.shift |= 1
			}
		}
		s.lastClock = high
	})
}

// LatchPin returns the storage clock input. A rising edge publishes the
// shift stage.
func (s *SimShiftOut) LatchPin() OutputPin {
	return simFunc(func(high bool) {
		if high && !s.lastLatch {
			s.image = s.shift
			s.commits++
		}
		s.lastLatch = high
	})
}

// Image returns the currently latched output word.
func (s *SimShiftOut) Image() uint32 {
	return s.image
}

// CommitCount returns how many latch edges have published outputs.
func (s *SimShiftOut) CommitCount() int {
	return s.commits
}

type simFunc func(high bool)

func (f simFunc) Set(high bool) { f(high) }

type simInputFunc func() bool

func (f simInputFunc) Get() bool { return f() }
