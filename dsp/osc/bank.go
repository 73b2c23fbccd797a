package osc

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/asorsynth/asor-core/dsp/core"
)

const (
	defaultVoices             = 10
	defaultOutputGain         = 0.2
	defaultMaxDetuneSemitones = 2.0

	minPulseWidth = 0.1
	maxPulseWidth = 0.9

	// Pulse-width spread around the 50% duty centre in cloud mode.
	pulseWidthSpan = 0.4
)

// Option configures a Bank.
type Option func(*Bank)

// WithVoices sets the number of synthesis voices.
func WithVoices(n int) Option {
	return func(b *Bank) {
		if n > 0 {
			b.voices = make([]voice, n)
		}
	}
}

// WithOutputGain sets the fixed post-mix output gain.
func WithOutputGain(gain float64) Option {
	return func(b *Bank) {
		if gain > 0 {
			b.gain = gain
		}
	}
}

// WithMaxDetuneSemitones sets the total tuning span, in semitones, that a
// cloud detune spread of 1.0 covers.
func WithMaxDetuneSemitones(semitones float64) Option {
	return func(b *Bank) {
		if semitones > 0 {
			b.maxDetuneSemitones = semitones
		}
	}
}

// Bank owns a fixed set of voices and mixes them to one mono output.
// It is not safe for concurrent use: parameter writes and sample
// rendering must come from the same goroutine.
type Bank struct {
	cfg                core.ProcessorConfig
	voices             []voice
	gain               float64
	maxDetuneSemitones float64
	balance            float64

	// Block-render scratch, sized once at construction so the render
	// path never allocates.
	scratch []float64
	sum     []float64
	centre  []float64
}

// NewBank creates a configured oscillator bank. All voices start as pulse
// waves at 440 Hz, 50% duty, full amplitude, phase zero.
func NewBank(coreOpts []core.ProcessorOption, opts ...Option) (*Bank, error) {
	cfg := core.ApplyProcessorOptions(coreOpts...)
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("osc: sample rate must be > 0: %f", cfg.SampleRate)
	}

	b := &Bank{
		cfg:                cfg,
		voices:             make([]voice, defaultVoices),
		gain:               defaultOutputGain,
		maxDetuneSemitones: defaultMaxDetuneSemitones,
		balance:            1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	for i := range b.voices {
		b.voices[i] = voice{
			waveform:   WavePulse,
			frequency:  440,
			pulseWidth: 0.5,
			amplitude:  1,
		}
	}

	b.scratch = make([]float64, cfg.BlockSize)
	b.sum = make([]float64, cfg.BlockSize)
	b.centre = make([]float64, cfg.BlockSize)

	return b, nil
}

// Config returns the bank's processor configuration.
func (b *Bank) Config() core.ProcessorConfig {
	return b.cfg
}

// Voices returns the number of voices.
func (b *Bank) Voices() int {
	return len(b.voices)
}

func (b *Bank) checkIndex(idx int) error {
	if idx < 0 || idx >= len(b.voices) {
		return fmt.Errorf("osc: voice index out of range: %d (have %d voices)", idx, len(b.voices))
	}
	return nil
}

// SetFrequency sets one voice's base frequency in Hz.
func (b *Bank) SetFrequency(idx int, hz float64) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	if hz <= 0 {
		return fmt.Errorf("osc: frequency must be > 0: %f", hz)
	}
	b.voices[idx].frequency = hz
	return nil
}

// SetPulseWidth sets one voice's pulse duty cycle, clamped to [0.1, 0.9].
// The value only affects pulse-wave voices.
func (b *Bank) SetPulseWidth(idx int, duty float64) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	b.voices[idx].pulseWidth = core.Clamp(duty, minPulseWidth, maxPulseWidth)
	return nil
}

// SetWaveform sets one voice's waveform.
func (b *Bank) SetWaveform(idx int, w Waveform) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	if !w.Valid() {
		return fmt.Errorf("osc: invalid waveform: %d", w)
	}
	b.voices[idx].waveform = w
	return nil
}

// SetAmplitude sets one voice's amplitude, clamped to [0, 1].
func (b *Bank) SetAmplitude(idx int, amp float64) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	b.voices[idx].amplitude = core.Clamp(amp, 0, 1)
	return nil
}

// Frequency returns one voice's current frequency in Hz.
func (b *Bank) Frequency(idx int) (float64, error) {
	if err := b.checkIndex(idx); err != nil {
		return 0, err
	}
	return b.voices[idx].frequency, nil
}

// CentreFrequency returns the least-detuned voice's frequency in Hz.
func (b *Bank) CentreFrequency() float64 {
	return b.voices[b.centreIndex()].frequency
}

// Phase returns one voice's current phase in [0, 1).
func (b *Bank) Phase(idx int) (float64, error) {
	if err := b.checkIndex(idx); err != nil {
		return 0, err
	}
	return b.voices[idx].phase, nil
}

// SetCloud configures all voices as a unison cloud around baseHz.
//
// Voice i is detuned by 2^(((i-(N-1)/2)/(N-1)) * detuneSpread * maxSemitones/12)
// and its pulse width offset symmetrically around 0.5 by the same
// normalized index scaled with pwSpread. balance crossfades the centre
// voice (0) against the full cloud mix (1).
func (b *Bank) SetCloud(baseHz, detuneSpread, pwSpread, balance float64) error {
	if baseHz <= 0 {
		return fmt.Errorf("osc: cloud base frequency must be > 0: %f", baseHz)
	}

	detuneSpread = core.Clamp(detuneSpread, 0, 1)
	pwSpread = core.Clamp(pwSpread, 0, 1)
	b.balance = core.Clamp(balance, 0, 1)

	n := len(b.voices)
	for i := range b.voices {
		norm := 0.0
		if n > 1 {
			norm = (float64(i) - float64(n-1)/2) / float64(n-1)
		}

		ratio := math.Exp2(norm * detuneSpread * b.maxDetuneSemitones / 12)
		b.voices[i].frequency = baseHz * ratio
		b.voices[i].pulseWidth = core.Clamp(0.5+norm*pwSpread*pulseWidthSpan, minPulseWidth, maxPulseWidth)
	}
	return nil
}

// centreIndex returns the index of the least-detuned voice.
func (b *Bank) centreIndex() int {
	return (len(b.voices) - 1) / 2
}

// ProcessSample advances every voice by one step and returns the mixed
// output sample, clamped to [-1, 1].
func (b *Bank) ProcessSample() float64 {
	sum := 0.0
	centre := 0.0
	ci := b.centreIndex()

	for i := range b.voices {
		s := b.voices[i].next(b.cfg.SampleRate)
		if i == ci {
			centre = s
		}
		sum += s
	}

	mix := sum / float64(len(b.voices))
	out := b.balance*mix + (1-b.balance)*centre
	return core.Clamp(out*b.gain, -1, 1)
}

// RenderBlock fills dst with mixed output samples. Blocks up to the
// configured block size render without allocating; larger requests grow
// the internal scratch buffers first.
func (b *Bank) RenderBlock(dst []float64) {
	n := len(dst)
	if n == 0 {
		return
	}
	if n > len(b.scratch) {
		b.scratch = make([]float64, n)
		b.sum = make([]float64, n)
		b.centre = make([]float64, n)
	}

	sum := b.sum[:n]
	scratch := b.scratch[:n]
	centre := b.centre[:n]
	for i := range sum {
		sum[i] = 0
	}

	ci := b.centreIndex()
	for vi := range b.voices {
		v := &b.voices[vi]
		for i := range scratch {
			scratch[i] = v.next(b.cfg.SampleRate)
		}
		if vi == ci {
			copy(centre, scratch)
		}
		vecmath.AddBlockInPlace(sum, scratch)
	}

	vecmath.ScaleBlockInPlace(sum, 1/float64(len(b.voices)))
	for i := range dst {
		out := b.balance*sum[i] + (1-b.balance)*centre[i]
		dst[i] = core.Clamp(out*b.gain, -1, 1)
	}
}
