package led

import (
	"fmt"
	"time"
)

// Defaults for the animation timing.
const (
	DefaultTickPeriod   = 20 * time.Millisecond
	DefaultSlowInterval = 500 * time.Millisecond
	DefaultFastInterval = 100 * time.Millisecond
)

// State is what an LED is asked to do.
type State int

const (
	Off State = iota
	On
	Blink
)

// Speed selects the blink rate.
type Speed int

const (
	Slow Speed = iota
	Fast
)

// Colour addresses a dual-colour LED pair.
type Colour int

const (
	ColourOff Colour = iota
	Red
	Green
	Yellow    // both dies lit
	Alternate // red and green in antiphase, blink only
)

// Writer commits one LED word to the hardware.
type Writer interface {
	Write(word uint32)
	Bits() int
}

// Option configures an Animator.
type Option func(*Animator)

// WithTickPeriod declares the period Tick is called at.
func WithTickPeriod(d time.Duration) Option {
	return func(a *Animator) {
		if d > 0 {
			a.tickPeriod = d
		}
	}
}

// WithBlinkIntervals overrides the slow and fast half-periods.
func WithBlinkIntervals(slow, fast time.Duration) Option {
	return func(a *Animator) {
		if slow > 0 {
			a.slowInterval = slow
		}
		if fast > 0 {
			a.fastInterval = fast
		}
	}
}

type ledState struct {
	state     State
	speed     Speed
	antiphase bool
	phase     bool
	countdown int
}

// Animator owns the desired state of every LED and drives the output
// chain. It is driven from a single goroutine.
type Animator struct {
	out  Writer
	leds []ledState

	tickPeriod   time.Duration
	slowInterval time.Duration
	fastInterval time.Duration

	lastImage uint32
	wrote     bool
}

// NewAnimator creates an animator for count LEDs on the given chain.
func NewAnimator(out Writer, count int, opts ...Option) (*Animator, error) {
	if out == nil {
		return nil, fmt.Errorf("led: writer required")
	}
	if count <= 0 || count > out.Bits() {
		return nil, fmt.Errorf("led: led count must be in 1..%d: %d", out.Bits(), count)
	}

	a := &Animator{
		out:          out,
		leds:         make([]ledState, count),
		tickPeriod:   DefaultTickPeriod,
		slowInterval: DefaultSlowInterval,
		fastInterval: DefaultFastInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Count returns the number of LEDs.
func (a *Animator) Count() int {
	return len(a.leds)
}

// TickPeriod returns the declared tick period.
func (a *Animator) TickPeriod() time.Duration {
	return a.tickPeriod
}

// SetTickPeriod re-declares the period Tick is called at, so blink
// intervals stay wall-clock accurate when the caller's loop period
// differs from the default. Running countdowns pick up the new scale on
// their next phase flip.
func (a *Animator) SetTickPeriod(d time.Duration) {
	if d > 0 {
		a.tickPeriod = d
	}
}

func (a *Animator) checkIndex(idx int) error {
	if idx < 0 || idx >= len(a.leds) {
		return fmt.Errorf("led: index out of range: %d (have %d leds)", idx, len(a.leds))
	}
	return nil
}

// intervalTicks converts a blink half-period to whole ticks, at least 1.
func (a *Animator) intervalTicks(sp Speed) int {
	iv := a.slowInterval
	if sp == Fast {
		iv = a.fastInterval
	}
	n := int(iv / a.tickPeriod)
	if n < 1 {
		n = 1
	}
	return n
}

// Set switches one LED on or off.
func (a *Animator) Set(idx int, st State) error {
	if err := a.checkIndex(idx); err != nil {
		return err
	}
	if st == Blink {
		return a.SetBlink(idx, Slow)
	}
	a.leds[idx] = ledState{state: st}
	return nil
}

// SetBlink puts one LED into blink mode at the given speed, starting in
// the lit phase.
func (a *Animator) SetBlink(idx int, sp Speed) error {
	if err := a.checkIndex(idx); err != nil {
		return err
	}
	a.leds[idx] = ledState{
		state:     Blink,
		speed:     sp,
		phase:     true,
		countdown: a.intervalTicks(sp),
	}
	return nil
}

// SetDuo drives a dual-colour pair. Pair p occupies LED indices 2p
// (red die) and 2p+1 (green die). Alternate is only meaningful with
// Blink and lights the dies in antiphase.
func (a *Animator) SetDuo(pair int, c Colour, st State) error {
	red, green := 2*pair, 2*pair+1
	if err := a.checkIndex(red); err != nil {
		return err
	}
	if err := a.checkIndex(green); err != nil {
		return err
	}
	if c == Alternate && st != Blink {
		return fmt.Errorf("led: alternate colour requires blink state")
	}

	redOn := c == Red || c == Yellow || c == Alternate
	greenOn := c == Green || c == Yellow || c == Alternate

	set := func(idx int, on, anti bool) {
		if !on {
			a.leds[idx] = ledState{}
			return
		}
		if st == Blink {
			a.leds[idx] = ledState{
				state:     Blink,
				speed:     Slow,
				antiphase: anti,
				phase:     true,
				countdown: a.intervalTicks(Slow),
			}
			return
		}
		a.leds[idx] = ledState{state: st}
	}
	set(red, redOn, false)
	set(green, greenOn, c == Alternate)
	return nil
}

// Tick advances every blink phase by one period and writes the output
// word if it changed.
func (a *Animator) Tick() {
	var image uint32
	for i := range a.leds {
		l := &a.leds[i]
		lit := false
		switch l.state {
		case On:
			lit = true
		case Blink:
			l.countdown--
			if l.countdown <= 0 {
				l.phase = !l.phase
				l.countdown = a.intervalTicks(l.speed)
			}
			lit = l.phase != l.antiphase
		}
		if lit {
			image |= uint32(1) << i
		}
	}

	if a.wrote && image == a.lastImage {
		return
	}
	a.out.Write(image)
	a.lastImage = image
	a.wrote = true
}
