package knob

import (
	"errors"
	"fmt"
	"math"

	"github.com/asorsynth/asor-core/panel/hw"
)

const (
	// DefaultHysteresis is the raw-count dead band around the last
	// accepted reading.
	DefaultHysteresis = 50

	// DefaultCatchWindow is how close (normalized) the physical position
	// must come to a recalled value before the knob goes live again.
	DefaultCatchWindow = 0.05

	// PatchSlots is the number of snapshot slots.
	PatchSlots = 8
)

// Target receives published parameter values in [0, 1].
type Target interface {
	Set(value float64)
}

// TargetFunc adapts a function to the Target interface.
type TargetFunc func(value float64)

// Set implements Target.
func (f TargetFunc) Set(value float64) { f(value) }

// Binding ties a knob to a converter channel. Invert flips the reading,
// for potentiometers wired with the wiper sense reversed.
type Binding struct {
	Channel int
	Invert  bool
}

// Option configures a Surface.
type Option func(*Surface)

// WithHysteresis sets the raw-count dead band.
func WithHysteresis(counts int) Option {
	return func(s *Surface) {
		if counts >= 0 {
			s.hysteresis = counts
		}
	}
}

// WithCatchWindow sets the normalized distance at which a chasing knob
// goes live.
func WithCatchWindow(window float64) Option {
	return func(s *Surface) {
		if window > 0 {
			s.catchWindow = window
		}
	}
}

// WithButtonState supplies the held-state query used for virtual knob
// triggers.
func WithButtonState(held func(button int) bool) Option {
	return func(s *Surface) {
		s.buttonHeld = held
	}
}

// WithNotify registers a callback invoked after every published change.
func WithNotify(fn func(index int, value float64)) Option {
	return func(s *Surface) {
		s.notify = fn
	}
}

type knobState struct {
	binding   Binding
	bound     bool
	target    Target
	raw       int
	valid     bool
	value     float64
	published bool
	chasing   bool
}

type link struct {
	physical int
	virtual  int
	trigger  int
	active   bool
}

// Surface owns all knob state. It is driven from a single goroutine;
// Poll, Snapshot and Recall must not race.
type Surface struct {
	adc         hw.ADC
	knobs       []knobState
	links       []link
	hysteresis  int
	catchWindow float64
	buttonHeld  func(button int) bool
	notify      func(index int, value float64)

	patches [PatchSlots][]float64
}

// NewSurface creates a surface with count knobs over the converter.
func NewSurface(adc hw.ADC, count int, opts ...Option) (*Surface, error) {
	if adc == nil {
		return nil, fmt.Errorf("knob: adc required")
	}
	if count <= 0 {
		return nil, fmt.Errorf("knob: knob count must be > 0: %d", count)
	}
	if adc.Resolution() <= 0 {
		return nil, fmt.Errorf("knob: adc resolution must be > 0: %d", adc.Resolution())
	}

	s := &Surface{
		adc:         adc,
		knobs:       make([]knobState, count),
		hysteresis:  DefaultHysteresis,
		catchWindow: DefaultCatchWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Count returns the number of knobs, physical and virtual.
func (s *Surface) Count() int {
	return len(s.knobs)
}

func (s *Surface) checkIndex(idx int) error {
	if idx < 0 || idx >= len(s.knobs) {
		return fmt.Errorf("knob: index out of range: %d (have %d knobs)", idx, len(s.knobs))
	}
	return nil
}

// Bind ties knob idx to a converter channel.
func (s *Surface) Bind(idx int, b Binding) error {
	if err := s.checkIndex(idx); err != nil {
		return err
	}
	if b.Channel < 0 {
		return fmt.Errorf("knob: channel must be >= 0: %d", b.Channel)
	}
	s.knobs[idx].binding = b
	s.knobs[idx].bound = true
	return nil
}

// RegisterParameter routes knob idx's published values to target.
func (s *Surface) RegisterParameter(idx int, target Target) error {
	if err := s.checkIndex(idx); err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("knob: target required")
	}
	s.knobs[idx].target = target
	return nil
}

// LinkVirtual makes the physical knob drive the virtual knob while the
// trigger button is held. The virtual knob must stay unbound; it reads
// through the physical knob's channel but keeps its own Invert flag,
// hysteresis state and chase state.
func (s *Surface) LinkVirtual(physical, virtual, triggerButton int) error {
	if err := s.checkIndex(physical); err != nil {
		return err
	}
	if err := s.checkIndex(virtual); err != nil {
		return err
	}
	if physical == virtual {
		return fmt.Errorf("knob: virtual knob must differ from physical: %d", physical)
	}
	if !s.knobs[physical].bound {
		return fmt.Errorf("knob: physical knob %d is not bound", physical)
	}
	if s.knobs[virtual].bound {
		return fmt.Errorf("knob: virtual knob %d must not have its own channel", virtual)
	}
	if s.buttonHeld == nil {
		return fmt.Errorf("knob: virtual links need a button state source")
	}
	s.links = append(s.links, link{physical: physical, virtual: virtual, trigger: triggerButton})
	return nil
}

// Value returns knob idx's currently published value.
func (s *Surface) Value(idx int) (float64, error) {
	if err := s.checkIndex(idx); err != nil {
		return 0, err
	}
	return s.knobs[idx].value, nil
}

// Poll reads every bound channel once and publishes accepted changes.
// A converter reporting hw.ErrNoReading keeps the previous value; other
// converter errors abort the sweep.
func (s *Surface) Poll() error {
	for i := range s.knobs {
		if !s.knobs[i].bound {
			continue
		}

		raw, err := s.adc.Read(s.knobs[i].binding.Channel)
		if errors.Is(err, hw.ErrNoReading) {
			continue
		}
		if err != nil {
			return fmt.Errorf("knob %d: %w", i, err)
		}

		s.feed(s.route(i), raw)
	}
	return nil
}

// route resolves which knob the physical knob's reading drives this
// cycle. Switching layers re-arms chasing on the newly active knob so
// the stored value never jumps to the stale physical position.
func (s *Surface) route(physical int) int {
	for li := range s.links {
		l := &s.links[li]
		if l.physical != physical {
			continue
		}
		active := s.buttonHeld(l.trigger)
		if active != l.active {
			l.active = active
			if active {
				s.armChase(l.virtual)
			} else {
				s.armChase(l.physical)
			}
		}
		if active {
			return l.virtual
		}
	}
	return physical
}

// armChase protects a knob's stored value from the stale physical
// position. A knob that never published has nothing to protect and goes
// live on its first reading.
func (s *Surface) armChase(idx int) {
	k := &s.knobs[idx]
	k.chasing = k.published
	k.valid = false
}

// feed runs one raw reading through the hysteresis gate and, when the
// knob is chasing, the catch logic.
func (s *Surface) feed(idx, raw int) {
	k := &s.knobs[idx]

	if k.valid && abs(raw-k.raw) <= s.hysteresis {
		return
	}
	k.raw = raw
	k.valid = true

	live := float64(raw) / float64(s.adc.Resolution())
	if k.binding.Invert {
		live = 1 - live
	}

	if k.chasing {
		if math.Abs(live-k.value) > s.catchWindow {
			return
		}
		k.chasing = false
		live = (live + k.value) / 2
	}

	s.publish(idx, live)
}

func (s *Surface) publish(idx int, value float64) {
	k := &s.knobs[idx]
	k.value = value
	k.published = true
	if k.target != nil {
		k.target.Set(value)
	}
	if s.notify != nil {
		s.notify(idx, value)
	}
}

func checkSlot(slot int) error {
	if slot < 0 || slot >= PatchSlots {
		return fmt.Errorf("knob: patch slot out of range: %d (have %d slots)", slot, PatchSlots)
	}
	return nil
}

// Snapshot stores every knob's published value into a patch slot.
func (s *Surface) Snapshot(slot int) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	p := make([]float64, len(s.knobs))
	for i := range s.knobs {
		p[i] = s.knobs[i].value
	}
	s.patches[slot] = p
	return nil
}

// Recall publishes a stored patch and arms chasing on every bound knob,
// so stale physical positions cannot yank recalled values.
func (s *Surface) Recall(slot int) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	p := s.patches[slot]
	if p == nil {
		return fmt.Errorf("knob: patch slot %d is empty", slot)
	}

	for i := range s.knobs {
		s.publish(i, p[i])
		s.knobs[i].chasing = true
		s.knobs[i].valid = false
	}
	return nil
}

// SlotUsed reports whether a patch slot holds a snapshot.
func (s *Surface) SlotUsed(slot int) bool {
	return slot >= 0 && slot < PatchSlots && s.patches[slot] != nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
