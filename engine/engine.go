package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/asorsynth/asor-core/dsp/osc"
	"github.com/asorsynth/asor-core/panel/button"
	"github.com/asorsynth/asor-core/panel/knob"
	"github.com/asorsynth/asor-core/panel/led"
	"github.com/asorsynth/asor-core/parambus"
	"github.com/asorsynth/asor-core/stream"
)

// Bus slot names published by the engine.
const (
	SlotFrequency  = "frequency"
	SlotDetune     = "detune"
	SlotPulseWidth = "pulsewidth"
	SlotBalance    = "balance"
)

const (
	// BaseFrequencyHz is the lowest octave's pitch (C3).
	BaseFrequencyHz = 130.81

	// OctaveSteps is how many octaves the frequency control spans.
	OctaveSteps = 6

	defaultControlPeriod = 10 * time.Millisecond
	defaultUIPeriod      = 20 * time.Millisecond

	// Send failures are expected while the network flaps; log one line
	// per burst instead of one per packet.
	sendErrorLogEvery = 500
)

// Sink receives every rendered block, for local monitoring. The slice
// is reused by the next render; implementations must copy what they
// keep.
type Sink interface {
	Push(block []float64)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSurface attaches the knob surface scanned by the control loop.
func WithSurface(s *knob.Surface) Option {
	return func(e *Engine) { e.surface = s }
}

// WithButtons attaches the button matrix scanned by the control loop.
func WithButtons(m *button.Matrix) Option {
	return func(e *Engine) { e.buttons = m }
}

// WithLEDs attaches the LED animator driven by the UI loop.
func WithLEDs(a *led.Animator) Option {
	return func(e *Engine) { e.leds = a }
}

// WithMonitor attaches a local audio sink fed from the audio loop.
func WithMonitor(s Sink) Option {
	return func(e *Engine) { e.monitor = s }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithControlPeriod overrides the control loop period.
func WithControlPeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.controlPeriod = d
		}
	}
}

// WithUIPeriod overrides the UI loop period.
func WithUIPeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.uiPeriod = d
		}
	}
}

// Engine owns the three loops and their shared state.
type Engine struct {
	log       *log.Logger
	bank      *osc.Bank
	enc       *stream.Encoder
	transport stream.Transport
	surface   *knob.Surface
	buttons   *button.Matrix
	leds      *led.Animator
	monitor   Sink

	bus       *parambus.Bus
	changed   parambus.Flag
	frequency *parambus.Slot
	detune    *parambus.Slot
	pulse     *parambus.Slot
	balance   *parambus.Slot

	audioPeriod   time.Duration
	controlPeriod time.Duration
	uiPeriod      time.Duration

	audioStats   JitterStats
	controlStats JitterStats
	uiStats      JitterStats

	// Closure queues keep each loop's state single-writer: ops runs on
	// the control loop, uiOps on the UI loop.
	ops   chan func()
	uiOps chan func()

	block      []float64
	activeSlot int
	sendErrs   int
}

// New creates an engine around a bank, encoder and transport. The
// encoder's block size must match the bank's.
func New(bank *osc.Bank, enc *stream.Encoder, transport stream.Transport, opts ...Option) (*Engine, error) {
	if bank == nil || enc == nil || transport == nil {
		return nil, fmt.Errorf("engine: bank, encoder and transport required")
	}
	cfg := bank.Config()
	if enc.BlockSize() != cfg.BlockSize {
		return nil, fmt.Errorf("engine: encoder block size %d does not match bank block size %d",
			enc.BlockSize(), cfg.BlockSize)
	}

	e := &Engine{
		log:           log.Default(),
		bank:          bank,
		enc:           enc,
		transport:     transport,
		bus:           parambus.NewBus(),
		audioPeriod:   time.Duration(float64(cfg.BlockSize) / cfg.SampleRate * float64(time.Second)),
		controlPeriod: defaultControlPeriod,
		uiPeriod:      defaultUIPeriod,
		ops:           make(chan func(), 64),
		uiOps:         make(chan func(), 64),
		block:         make([]float64, cfg.BlockSize),
		activeSlot:    -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	var err error
	defaults := []struct {
		name    string
		slot    **parambus.Slot
		initial float64
	}{
		{SlotFrequency, &e.frequency, 0},
		{SlotDetune, &e.detune, 0},
		{SlotPulseWidth, &e.pulse, 0},
		{SlotBalance, &e.balance, 1},
	}
	for _, d := range defaults {
		if *d.slot, err = e.bus.Define(d.name, d.initial); err != nil {
			return nil, err
		}
	}

	// First audio tick applies the initial slot values.
	e.changed.Raise()

	// Blink cadences are declared in wall-clock time; keep the animator
	// scaled to the loop actually ticking it.
	if e.leds != nil {
		e.leds.SetTickPeriod(e.uiPeriod)
	}

	return e, nil
}

// MarkChanged tells the audio loop to recompute the oscillator settings
// from the bus slots on its next tick. Safe from any goroutine.
func (e *Engine) MarkChanged() {
	e.changed.Raise()
}

// AttachPanel wires panel components built after the engine, which
// happens when the knobs bind to the engine's own bus slots. Must be
// called before Run.
func (e *Engine) AttachPanel(s *knob.Surface, m *button.Matrix, a *led.Animator) {
	e.surface = s
	e.buttons = m
	e.leds = a
	if a != nil {
		a.SetTickPeriod(e.uiPeriod)
	}
}

// Bus exposes the parameter slots, for knob wiring and remote control.
func (e *Engine) Bus() *parambus.Bus {
	return e.bus
}

// Bank returns the oscillator bank. Mutations outside the audio loop
// must go through Do.
func (e *Engine) Bank() *osc.Bank {
	return e.bank
}

// AudioPeriod returns the packet cadence.
func (e *Engine) AudioPeriod() time.Duration {
	return e.audioPeriod
}

// Do queues fn onto the control loop, where it may touch control-owned
// state (surface, patch slots) without racing the scan.
func (e *Engine) Do(fn func()) {
	select {
	case e.ops <- fn:
	default:
		e.log.Printf("[control] op queue full, dropping request")
	}
}

// doUI queues fn onto the UI loop.
func (e *Engine) doUI(fn func()) {
	select {
	case e.uiOps <- fn:
	default:
	}
}

// OctaveFrequency quantizes a normalized control value to one of the
// OctaveSteps octaves above BaseFrequencyHz.
func OctaveFrequency(v float64) float64 {
	idx := int(v * OctaveSteps)
	if idx >= OctaveSteps {
		idx = OctaveSteps - 1
	}
	if idx < 0 {
		idx = 0
	}
	return BaseFrequencyHz * math.Exp2(float64(idx))
}

// audioTick renders, encodes and sends one block. Oscillator settings
// are recomputed only when the changed flag was raised since the last
// tick. Send failures are counted and rate-limit logged; they must not
// stop the stream.
func (e *Engine) audioTick(time.Time) error {
	if e.changed.Consume() {
		hz := OctaveFrequency(e.frequency.Load())
		if err := e.bank.SetCloud(hz, e.detune.Load(), e.pulse.Load(), e.balance.Load()); err != nil {
			return err
		}
	}

	e.bank.RenderBlock(e.block)

	pkt, err := e.enc.EncodeBlock(e.block)
	if err != nil {
		return err
	}
	if err := e.transport.Send(pkt); err != nil {
		if e.sendErrs%sendErrorLogEvery == 0 {
			e.log.Printf("[audio] send failed (%d so far): %v", e.sendErrs+1, err)
		}
		e.sendErrs++
	}

	if e.monitor != nil {
		e.monitor.Push(e.block)
	}
	return nil
}

// controlTick drains queued requests, then scans the panel.
func (e *Engine) controlTick(time.Time) error {
	for {
		select {
		case fn := <-e.ops:
			fn()
			continue
		default:
		}
		break
	}

	if e.surface != nil {
		if err := e.surface.Poll(); err != nil {
			return fmt.Errorf("engine: %w", err)
		}
	}
	if e.buttons != nil {
		e.buttons.Scan()
	}
	return nil
}

// uiTick applies queued LED changes and advances the animation.
func (e *Engine) uiTick(time.Time) error {
	for {
		select {
		case fn := <-e.uiOps:
			fn()
			continue
		default:
		}
		break
	}

	if e.leds != nil {
		e.leds.Tick()
	}
	return nil
}

// OnButton maps panel buttons to patch slots: a short press recalls,
// a long press saves. Runs on the control loop via the button scan.
func (e *Engine) OnButton(index int, press button.Press) {
	slot := index - 1
	if press == button.Long {
		e.savePatch(slot)
		return
	}
	e.recallPatch(slot)
}

// SavePatch queues a patch save onto the control loop. Safe from any
// goroutine.
func (e *Engine) SavePatch(slot int) {
	e.Do(func() { e.savePatch(slot) })
}

// RecallPatch queues a patch recall onto the control loop. Safe from
// any goroutine.
func (e *Engine) RecallPatch(slot int) {
	e.Do(func() { e.recallPatch(slot) })
}

func (e *Engine) savePatch(slot int) {
	if e.surface == nil {
		return
	}
	if err := e.surface.Snapshot(slot); err != nil {
		e.log.Printf("[control] save patch %d: %v", slot, err)
		return
	}
	e.activeSlot = slot
	e.log.Printf("[control] saved patch %d", slot)
	e.refreshPatchLEDs()
}

func (e *Engine) recallPatch(slot int) {
	if e.surface == nil {
		return
	}
	if err := e.surface.Recall(slot); err != nil {
		e.log.Printf("[control] recall patch %d: %v", slot, err)
		return
	}
	e.activeSlot = slot
	e.log.Printf("[control] recalled patch %d", slot)
	e.refreshPatchLEDs()
}

// refreshPatchLEDs mirrors the patch slots onto the first LED bank:
// used slots lit, the active slot blinking.
func (e *Engine) refreshPatchLEDs() {
	if e.leds == nil {
		return
	}

	states := make([]led.State, knob.PatchSlots)
	for i := range states {
		if e.surface.SlotUsed(i) {
			states[i] = led.On
		}
	}
	active := e.activeSlot

	e.doUI(func() {
		for i, st := range states {
			if i >= e.leds.Count() {
				break
			}
			if i == active {
				e.leds.SetBlink(i, led.Slow)
				continue
			}
			e.leds.Set(i, st)
		}
	})
}

// Stats returns the timing summaries of all three loops.
func (e *Engine) Stats() (audio, control, ui JitterReport) {
	return e.audioStats.Snapshot(), e.controlStats.Snapshot(), e.uiStats.Snapshot()
}

// Run drives the loops until ctx ends or one of them fails.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.log.Printf("[engine] starting: audio %v, control %v, ui %v",
		e.audioPeriod, e.controlPeriod, e.uiPeriod)

	type loop struct {
		name   string
		period time.Duration
		stats  *JitterStats
		fn     func(time.Time) error
	}
	loops := []loop{
		{"audio", e.audioPeriod, &e.audioStats, e.audioTick},
		{"control", e.controlPeriod, &e.controlStats, e.controlTick},
		{"ui", e.uiPeriod, &e.uiStats, e.uiTick},
	}

	errc := make(chan error, len(loops))
	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(l loop) {
			defer wg.Done()
			if err := RunPeriodic(ctx, l.period, l.stats, l.fn); err != nil {
				errc <- fmt.Errorf("%s loop: %w", l.name, err)
				cancel()
			}
		}(l)
	}
	wg.Wait()

	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}
