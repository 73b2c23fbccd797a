package led

import (
	"testing"
	"time"
)

type fakeChain struct {
	bits   int
	image  uint32
	writes int
}

func (f *fakeChain) Write(word uint32) {
	f.image = word
	f.writes++
}

func (f *fakeChain) Bits() int { return f.bits }

func newTestAnimator(t *testing.T, leds int, opts ...Option) (*Animator, *fakeChain) {
	t.Helper()
	chain := &fakeChain{bits: 16}
	a, err := NewAnimator(chain, leds, opts...)
	if err != nil {
		t.Fatalf("NewAnimator() error: %v", err)
	}
	return a, chain
}

func TestStaticStates(t *testing.T) {
	a, chain := newTestAnimator(t, 8)
	if err := a.Set(0, On); err != nil {
		t.Fatal(err)
	}
	if err := a.Set(3, On); err != nil {
		t.Fatal(err)
	}
	a.Tick()
	if chain.image != 0b1001 {
		t.Fatalf("image = %#08b, want %#08b", chain.image, uint32(0b1001))
	}

	a.Set(0, Off)
	a.Tick()
	if chain.image != 0b1000 {
		t.Fatalf("image = %#08b, want %#08b", chain.image, uint32(0b1000))
	}
}

func TestWriteOnChangeOnly(t *testing.T) {
	a, chain := newTestAnimator(t, 8)
	a.Set(0, On)

	a.Tick()
	for i := 0; i < 50; i++ {
		a.Tick()
	}
	if chain.writes != 1 {
		t.Fatalf("static panel caused %d writes, want 1", chain.writes)
	}
}

func TestBlinkTiming(t *testing.T) {
	// 20 ms tick, 100 ms half-period: 5 ticks lit, then 5 dark.
	a, chain := newTestAnimator(t, 8,
		WithTickPeriod(20*time.Millisecond),
		WithBlinkIntervals(500*time.Millisecond, 100*time.Millisecond))
	if err := a.SetBlink(0, Fast); err != nil {
		t.Fatal(err)
	}

	lit := 0
	for i := 0; i < 10; i++ {
		a.Tick()
		if chain.image&1 != 0 {
			lit++
		}
	}
	if lit < 4 || lit > 6 {
		t.Fatalf("fast blink lit %d of 10 ticks, want about half", lit)
	}

	// Slow blink has not flipped yet after the same 10 ticks.
	b, chain2 := newTestAnimator(t, 8,
		WithTickPeriod(20*time.Millisecond),
		WithBlinkIntervals(500*time.Millisecond, 100*time.Millisecond))
	b.SetBlink(0, Slow)
	for i := 0; i < 10; i++ {
		b.Tick()
	}
	if chain2.image&1 == 0 {
		t.Fatal("slow blink flipped within 10 ticks")
	}
}

func TestSetTickPeriodRescalesIntervals(t *testing.T) {
	a, _ := newTestAnimator(t, 8)
	if got := a.intervalTicks(Slow); got != 25 {
		t.Fatalf("intervalTicks(Slow) = %d at 20ms ticks, want 25", got)
	}

	a.SetTickPeriod(100 * time.Millisecond)
	if a.TickPeriod() != 100*time.Millisecond {
		t.Fatalf("TickPeriod() = %v, want 100ms", a.TickPeriod())
	}
	if got := a.intervalTicks(Slow); got != 5 {
		t.Fatalf("intervalTicks(Slow) = %d at 100ms ticks, want 5", got)
	}

	a.SetTickPeriod(0)
	if a.TickPeriod() != 100*time.Millisecond {
		t.Fatal("zero period must be ignored")
	}
}

func TestDuoColours(t *testing.T) {
	tests := []struct {
		name   string
		colour Colour
		want   uint32
	}{
		{"red", Red, 0b01},
		{"green", Green, 0b10},
		{"yellow", Yellow, 0b11},
		{"off", ColourOff, 0b00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, chain := newTestAnimator(t, 8)
			if err := a.SetDuo(0, tt.colour, On); err != nil {
				t.Fatalf("SetDuo() error: %v", err)
			}
			a.Tick()
			if chain.image != tt.want {
				t.Fatalf("image = %#02b, want %#02b", chain.image, tt.want)
			}
		})
	}
}

func TestDuoAlternate(t *testing.T) {
	a, chain := newTestAnimator(t, 8,
		WithTickPeriod(20*time.Millisecond),
		WithBlinkIntervals(100*time.Millisecond, 20*time.Millisecond))
	if err := a.SetDuo(0, Alternate, Blink); err != nil {
		t.Fatalf("SetDuo() error: %v", err)
	}

	// Exactly one die lit at any time, and both get their turn.
	seen := map[uint32]bool{}
	for i := 0; i < 20; i++ {
		a.Tick()
		img := chain.image & 0b11
		if img != 0b01 && img != 0b10 {
			t.Fatalf("tick %d: image = %#02b, want one die lit", i, img)
		}
		seen[img] = true
	}
	if !seen[0b01] || !seen[0b10] {
		t.Fatalf("alternate never toggled: seen %v", seen)
	}
}

func TestDuoAlternateRequiresBlink(t *testing.T) {
	a, _ := newTestAnimator(t, 8)
	if err := a.SetDuo(0, Alternate, On); err == nil {
		t.Fatal("expected error for alternate without blink")
	}
}

func TestValidation(t *testing.T) {
	chain := &fakeChain{bits: 8}
	if _, err := NewAnimator(nil, 8); err == nil {
		t.Fatal("expected error for nil writer")
	}
	if _, err := NewAnimator(chain, 0); err == nil {
		t.Fatal("expected error for zero leds")
	}
	if _, err := NewAnimator(chain, 9); err == nil {
		t.Fatal("expected error for more leds than chain bits")
	}

	a, _ := newTestAnimator(t, 4)
	if err := a.Set(4, On); err == nil {
		t.Fatal("expected error for index out of range")
	}
	if err := a.SetDuo(2, Red, On); err == nil {
		t.Fatal("expected error for duo pair out of range")
	}
}
