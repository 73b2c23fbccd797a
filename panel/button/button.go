package button

import (
	"fmt"
	"time"
)

// DefaultLongPressThreshold separates short taps from long holds.
const DefaultLongPressThreshold = time.Second

// Press classifies a completed button press.
type Press int

const (
	Short Press = iota
	Long
)

// String returns the press kind name.
func (p Press) String() string {
	switch p {
	case Short:
		return "Short"
	case Long:
		return "Long"
	default:
		return fmt.Sprintf("Press(%d)", p)
	}
}

// Reader produces one scan word per call. Bit i high means button i+1
// is currently held.
type Reader interface {
	Read() uint32
}

// Handler receives classified press events. Indices are 1-based to
// match the panel silkscreen.
type Handler interface {
	OnButton(index int, press Press)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(index int, press Press)

// OnButton implements Handler.
func (f HandlerFunc) OnButton(index int, press Press) {
	f(index, press)
}

// Option configures a Matrix.
type Option func(*Matrix)

// WithLongPressThreshold sets the hold duration above which a press is
// classified as long. A hold of exactly d is still short.
func WithLongPressThreshold(d time.Duration) Option {
	return func(m *Matrix) {
		if d > 0 {
			m.longPress = d
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Matrix) {
		if now != nil {
			m.now = now
		}
	}
}

// Matrix scans a button reader and reports exactly one classified event
// per press, on release. It is driven from a single goroutine.
type Matrix struct {
	reader    Reader
	handler   Handler
	buttons   int
	longPress time.Duration
	now       func() time.Time

	last    uint32
	pressed [32]time.Time
}

// NewMatrix creates a scanner for buttons lines.
func NewMatrix(reader Reader, buttons int, handler Handler, opts ...Option) (*Matrix, error) {
	if reader == nil {
		return nil, fmt.Errorf("button: reader required")
	}
	if buttons <= 0 || buttons > 32 {
		return nil, fmt.Errorf("button: button count must be in 1..32: %d", buttons)
	}
	if handler == nil {
		return nil, fmt.Errorf("button: handler required")
	}

	m := &Matrix{
		reader:    reader,
		handler:   handler,
		buttons:   buttons,
		longPress: DefaultLongPressThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Scan reads the current button word and emits events for completed
// presses. A press is classified on the falling edge: hold times beyond
// the threshold report Long, everything up to and including it Short.
func (m *Matrix) Scan() {
	word := m.reader.Read()
	changed := word ^ m.last
	m.last = word

	if changed == 0 {
		return
	}

	now := m.now()
	for i := 0; i < m.buttons; i++ {
		bit := uint32(1) << i
		if changed&bit == 0 {
			continue
		}
		if word&bit != 0 {
			m.pressed[i] = now
			continue
		}

		held := now.Sub(m.pressed[i])
		press := Short
		if held > m.longPress {
			press = Long
		}
		m.handler.OnButton(i+1, press)
	}
}

// Held reports whether button index (1-based) is currently down.
func (m *Matrix) Held(index int) bool {
	if index < 1 || index > m.buttons {
		return false
	}
	return m.last&(uint32(1)<<(index-1)) != 0
}
