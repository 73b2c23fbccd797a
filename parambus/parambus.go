package parambus

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Slot holds one parameter value. Load and Store are wait-free and safe
// from any goroutine.
type Slot struct {
	bits atomic.Uint64
}

// NewSlot creates a slot holding an initial value.
func NewSlot(initial float64) *Slot {
	s := &Slot{}
	s.Store(initial)
	return s
}

// Store publishes a new value.
func (s *Slot) Store(v float64) {
	s.bits.Store(math.Float64bits(v))
}

// Load returns the most recently stored value.
func (s *Slot) Load() float64 {
	return math.Float64frombits(s.bits.Load())
}

// Set implements the knob target interface.
func (s *Slot) Set(v float64) {
	s.Store(v)
}

// Flag is a one-shot notification. Raise may be called any number of
// times; Consume reports and clears it atomically, so each raise batch
// is observed exactly once.
type Flag struct {
	set atomic.Bool
}

// Raise marks the flag.
func (f *Flag) Raise() {
	f.set.Store(true)
}

// Consume clears the flag and reports whether it was raised.
func (f *Flag) Consume() bool {
	return f.set.Swap(false)
}

// Bus groups named slots so wiring code can look parameters up by name.
type Bus struct {
	slots map[string]*Slot
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{slots: make(map[string]*Slot)}
}

// Define registers a named slot with an initial value. Redefining a
// name is an error; lookups after wiring would silently split.
func (b *Bus) Define(name string, initial float64) (*Slot, error) {
	if name == "" {
		return nil, fmt.Errorf("parambus: slot name required")
	}
	if _, ok := b.slots[name]; ok {
		return nil, fmt.Errorf("parambus: slot already defined: %q", name)
	}
	s := NewSlot(initial)
	b.slots[name] = s
	return s, nil
}

// Slot returns a named slot.
func (b *Bus) Slot(name string) (*Slot, error) {
	s, ok := b.slots[name]
	if !ok {
		return nil, fmt.Errorf("parambus: unknown slot: %q", name)
	}
	return s, nil
}

// Names returns the defined slot names, unordered.
func (b *Bus) Names() []string {
	names := make([]string, 0, len(b.slots))
	for name := range b.slots {
		names = append(names, name)
	}
	return names
}
