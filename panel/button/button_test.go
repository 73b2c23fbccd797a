package button

import (
	"testing"
	"time"
)

type wordReader struct{ word uint32 }

func (r *wordReader) Read() uint32 { return r.word }

type event struct {
	index int
	press Press
}

type recorder struct{ events []event }

func (r *recorder) OnButton(index int, press Press) {
	r.events = append(r.events, event{index, press})
}

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMatrix(t *testing.T, buttons int) (*Matrix, *wordReader, *recorder, *fakeClock) {
	t.Helper()
	r := &wordReader{}
	rec := &recorder{}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	m, err := NewMatrix(r, buttons, rec, WithClock(clk.now))
	if err != nil {
		t.Fatalf("NewMatrix() error: %v", err)
	}
	return m, r, rec, clk
}

func TestPressClassification(t *testing.T) {
	tests := []struct {
		name string
		hold time.Duration
		want Press
	}{
		{"quick tap", 50 * time.Millisecond, Short},
		{"just under threshold", 900 * time.Millisecond, Short},
		{"just over threshold", 1200 * time.Millisecond, Long},
		{"exactly threshold", time.Second, Short},
		{"one tick past threshold", time.Second + time.Nanosecond, Long},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, r, rec, clk := newTestMatrix(t, 8)

			r.word = 1 << 2
			m.Scan()
			clk.advance(tt.hold)
			r.word = 0
			m.Scan()

			if len(rec.events) != 1 {
				t.Fatalf("got %d events, want 1", len(rec.events))
			}
			if rec.events[0].index != 3 {
				t.Fatalf("index = %d, want 3", rec.events[0].index)
			}
			if rec.events[0].press != tt.want {
				t.Fatalf("press = %v, want %v", rec.events[0].press, tt.want)
			}
		})
	}
}

func TestEventFiresExactlyOnce(t *testing.T) {
	m, r, rec, clk := newTestMatrix(t, 8)

	r.word = 1
	for i := 0; i < 10; i++ {
		m.Scan() // held across many scans
		clk.advance(10 * time.Millisecond)
	}
	r.word = 0
	m.Scan()
	m.Scan()
	m.Scan()

	if len(rec.events) != 1 {
		t.Fatalf("got %d events, want exactly 1", len(rec.events))
	}
}

func TestSimultaneousPresses(t *testing.T) {
	m, r, rec, clk := newTestMatrix(t, 8)

	r.word = 0b101
	m.Scan()
	clk.advance(2 * time.Second)
	r.word = 0b100 // release button 1, keep button 3 held
	m.Scan()
	clk.advance(10 * time.Millisecond)
	r.word = 0
	m.Scan()

	if len(rec.events) != 2 {
		t.Fatalf("got %d events, want 2", len(rec.events))
	}
	if rec.events[0].index != 1 || rec.events[0].press != Long {
		t.Fatalf("first event = %+v, want button 1 long", rec.events[0])
	}
	if rec.events[1].index != 3 || rec.events[1].press != Long {
		t.Fatalf("second event = %+v, want button 3 long", rec.events[1])
	}
}

func TestHeld(t *testing.T) {
	m, r, _, _ := newTestMatrix(t, 8)

	r.word = 1 << 4
	m.Scan()
	if !m.Held(5) {
		t.Fatal("button 5 should be held")
	}
	if m.Held(1) || m.Held(0) || m.Held(9) {
		t.Fatal("no other button should report held")
	}
}

func TestNewMatrixValidation(t *testing.T) {
	rec := &recorder{}
	if _, err := NewMatrix(nil, 8, rec); err == nil {
		t.Fatal("expected error for nil reader")
	}
	if _, err := NewMatrix(&wordReader{}, 0, rec); err == nil {
		t.Fatal("expected error for zero buttons")
	}
	if _, err := NewMatrix(&wordReader{}, 8, nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestPressString(t *testing.T) {
	if Short.String() != "Short" || Long.String() != "Long" {
		t.Fatal("unexpected press names")
	}
}
