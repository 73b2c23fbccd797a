package osc

import (
	"math"
	"testing"

	"github.com/asorsynth/asor-core/dsp/core"
)

func newTestBank(t *testing.T, voices int, opts ...Option) *Bank {
	t.Helper()
	opts = append([]Option{WithVoices(voices)}, opts...)
	b, err := NewBank(nil, opts...)
	if err != nil {
		t.Fatalf("NewBank() error: %v", err)
	}
	return b
}

func TestWaveformString(t *testing.T) {
	tests := []struct {
		w    Waveform
		want string
	}{
		{WaveSine, "Sine"},
		{WaveSaw, "Saw"},
		{WavePulse, "Pulse"},
		{Waveform(42), "Waveform(42)"},
	}
	for _, tt := range tests {
		if got := tt.w.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPhaseAdvance(t *testing.T) {
	const (
		freq  = 440.0
		rate  = 48000.0
		calls = 1000
	)

	b := newTestBank(t, 1)
	if err := b.SetFrequency(0, freq); err != nil {
		t.Fatalf("SetFrequency() error: %v", err)
	}

	for i := 0; i < calls; i++ {
		b.ProcessSample()
	}

	want := math.Mod(calls*freq/rate, 1.0)
	got, err := b.Phase(0)
	if err != nil {
		t.Fatalf("Phase() error: %v", err)
	}
	if !core.NearlyEqual(got, want, 1e-9) {
		t.Fatalf("phase after %d samples = %v, want %v", calls, got, want)
	}
}

func TestDeterminism(t *testing.T) {
	render := func() []float64 {
		b := newTestBank(t, 4)
		if err := b.SetCloud(220, 0.5, 0.3, 1); err != nil {
			t.Fatalf("SetCloud() error: %v", err)
		}
		out := make([]float64, 256)
		for i := range out {
			out[i] = b.ProcessSample()
		}
		return out
	}

	a := render()
	b := render()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestWaveformShapes(t *testing.T) {
	t.Run("saw ramps", func(t *testing.T) {
		b := newTestBank(t, 1)
		if err := b.SetWaveform(0, WaveSaw); err != nil {
			t.Fatal(err)
		}
		if err := b.SetFrequency(0, 480); err != nil {
			t.Fatal(err)
		}
		// First sample is at phase 0: saw value -1, scaled by mix and gain.
		got := b.ProcessSample()
		want := core.Clamp(-1*0.2, -1, 1)
		if !core.NearlyEqual(got, want, 1e-12) {
			t.Fatalf("saw at phase 0 = %v, want %v", got, want)
		}
	})

	t.Run("pulse duty", func(t *testing.T) {
		b := newTestBank(t, 1)
		if err := b.SetFrequency(0, 4800); err != nil { // period of 10 samples
			t.Fatal(err)
		}
		if err := b.SetPulseWidth(0, 0.3); err != nil {
			t.Fatal(err)
		}
		high := 0
		for i := 0; i < 10; i++ {
			if b.ProcessSample() > 0 {
				high++
			}
		}
		if high != 3 {
			t.Fatalf("pulse with 0.3 duty spent %d of 10 samples high, want 3", high)
		}
	})

	t.Run("sine peak", func(t *testing.T) {
		b := newTestBank(t, 1)
		if err := b.SetWaveform(0, WaveSine); err != nil {
			t.Fatal(err)
		}
		if err := b.SetFrequency(0, 12000); err != nil { // quarter cycle per sample
			t.Fatal(err)
		}
		b.ProcessSample() // phase 0
		got := b.ProcessSample()
		if !core.NearlyEqual(got, 0.2, 1e-12) {
			t.Fatalf("sine at phase 0.25 = %v, want 0.2", got)
		}
	})
}

func TestConfigurationErrors(t *testing.T) {
	b := newTestBank(t, 2)

	if err := b.SetFrequency(2, 440); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
	if err := b.SetFrequency(-1, 440); err == nil {
		t.Fatal("expected error for negative index")
	}
	if err := b.SetFrequency(0, 0); err == nil {
		t.Fatal("expected error for zero frequency")
	}
	if err := b.SetWaveform(0, Waveform(99)); err == nil {
		t.Fatal("expected error for invalid waveform")
	}
	if err := b.SetCloud(0, 0.5, 0.5, 1); err == nil {
		t.Fatal("expected error for zero base frequency")
	}

	// Failed writes leave the voice untouched.
	if got := b.voices[0].frequency; got != 440 {
		t.Fatalf("frequency after rejected writes = %v, want 440", got)
	}
}

func TestPulseWidthClamp(t *testing.T) {
	b := newTestBank(t, 1)
	if err := b.SetPulseWidth(0, 0.01); err != nil {
		t.Fatal(err)
	}
	if got := b.voices[0].pulseWidth; got != 0.1 {
		t.Fatalf("pulse width = %v, want clamp to 0.1", got)
	}
	if err := b.SetPulseWidth(0, 0.99); err != nil {
		t.Fatal(err)
	}
	if got := b.voices[0].pulseWidth; got != 0.9 {
		t.Fatalf("pulse width = %v, want clamp to 0.9", got)
	}
}

func TestSetCloudSpread(t *testing.T) {
	const (
		voices = 10
		base   = 130.81
	)

	b := newTestBank(t, voices)
	if err := b.SetCloud(base, 1, 1, 1); err != nil {
		t.Fatalf("SetCloud() error: %v", err)
	}

	// Full spread across 10 voices covers the configured 2-semitone span
	// symmetrically: outermost voices sit at +-1 semitone.
	wantLow := base * math.Exp2(-1.0/12)
	wantHigh := base * math.Exp2(1.0/12)
	if got := b.voices[0].frequency; !core.NearlyEqual(got, wantLow, 1e-9) {
		t.Fatalf("voice 0 frequency = %v, want %v", got, wantLow)
	}
	if got := b.voices[voices-1].frequency; !core.NearlyEqual(got, wantHigh, 1e-9) {
		t.Fatalf("voice %d frequency = %v, want %v", voices-1, got, wantHigh)
	}

	// Detune ratios are symmetric about the base.
	for i := 0; i < voices/2; i++ {
		lo := b.voices[i].frequency / base
		hi := b.voices[voices-1-i].frequency / base
		if !core.NearlyEqual(lo*hi, 1, 1e-9) {
			t.Fatalf("voices %d/%d ratios not symmetric: %v * %v != 1", i, voices-1-i, lo, hi)
		}
	}

	// Pulse widths spread around 0.5 by the same normalized index.
	if got := b.voices[0].pulseWidth; !core.NearlyEqual(got, 0.5-0.5*pulseWidthSpan, 1e-12) {
		t.Fatalf("voice 0 pulse width = %v", got)
	}
	if got := b.voices[voices-1].pulseWidth; !core.NearlyEqual(got, 0.5+0.5*pulseWidthSpan, 1e-12) {
		t.Fatalf("voice %d pulse width = %v", voices-1, got)
	}
}

func TestSetCloudSingleVoice(t *testing.T) {
	b := newTestBank(t, 1)
	if err := b.SetCloud(440, 1, 1, 1); err != nil {
		t.Fatalf("SetCloud() error: %v", err)
	}
	if got := b.voices[0].frequency; got != 440 {
		t.Fatalf("single voice frequency = %v, want 440 (no detune)", got)
	}
	if got := b.voices[0].pulseWidth; got != 0.5 {
		t.Fatalf("single voice pulse width = %v, want 0.5", got)
	}
}

func TestRenderBlockMatchesProcessSample(t *testing.T) {
	mk := func() *Bank {
		b := newTestBank(t, 5)
		if err := b.SetCloud(220, 0.7, 0.4, 0.8); err != nil {
			t.Fatal(err)
		}
		return b
	}

	perSample := mk()
	want := make([]float64, 96)
	for i := range want {
		want[i] = perSample.ProcessSample()
	}

	blocked := mk()
	got := make([]float64, 96)
	blocked.RenderBlock(got)

	for i := range want {
		if !core.NearlyEqual(got[i], want[i], 1e-12) {
			t.Fatalf("sample %d: block %v != per-sample %v", i, got[i], want[i])
		}
	}
}

func TestBalanceCrossfade(t *testing.T) {
	// With balance 0 the output is the centre voice alone; detuned outer
	// voices must not contribute.
	b := newTestBank(t, 3)
	if err := b.SetCloud(480, 1, 0, 0); err != nil {
		t.Fatal(err)
	}
	solo := newTestBank(t, 1)
	if err := solo.SetFrequency(0, 480); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 64; i++ {
		got := b.ProcessSample()
		want := solo.ProcessSample()
		if !core.NearlyEqual(got, want, 1e-12) {
			t.Fatalf("sample %d: balance-0 output %v, centre voice %v", i, got, want)
		}
	}
}

func BenchmarkRenderBlock(b *testing.B) {
	bank, err := NewBank(nil, WithVoices(10))
	if err != nil {
		b.Fatal(err)
	}
	if err := bank.SetCloud(220, 0.5, 0.5, 1); err != nil {
		b.Fatal(err)
	}
	dst := make([]float64, 96)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bank.RenderBlock(dst)
	}
}
