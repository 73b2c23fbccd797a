// Package main is the entry point for the asord synthesizer daemon.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/asorsynth/asor-core/control"
	"github.com/asorsynth/asor-core/dsp/core"
	"github.com/asorsynth/asor-core/dsp/osc"
	"github.com/asorsynth/asor-core/engine"
	"github.com/asorsynth/asor-core/measure/tone"
	"github.com/asorsynth/asor-core/monitor"
	"github.com/asorsynth/asor-core/panel/button"
	"github.com/asorsynth/asor-core/panel/hw"
	"github.com/asorsynth/asor-core/panel/knob"
	"github.com/asorsynth/asor-core/panel/led"
	"github.com/asorsynth/asor-core/panel/shiftreg"
	"github.com/asorsynth/asor-core/stream"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	sampleRate  float64
	blockSize   int
	voices      int
	groupAddr   string
	streamPort  int
	rtpFraming  bool
	dither      bool
	listenAddr  string
	withMonitor bool

	controlAddr string

	toneFreq     float64
	toneDetune   float64
	tonePW       float64
	toneBalance  float64
	toneDuration float64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "asord",
	Short: "Modular synthesizer node: oscillator cloud, panel scan, multicast audio",
	Long: `asord renders a detunable oscillator cloud and streams it as 24-bit
PCM multicast packets while scanning the control panel. Remote nodes and
sequencers reach it over OSC.

Examples:
  asord run
  asord run --rtp --monitor
  asord tone --freq 261.63 --detune 0.4
  asord set detune 0.7 --addr 192.168.4.17:9000`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the synthesizer loops and stream to the multicast group",
	RunE:  runDaemon,
}

var toneCmd = &cobra.Command{
	Use:   "tone",
	Short: "Render the oscillator cloud offline and analyze the result",
	RunE:  runTone,
}

var setCmd = &cobra.Command{
	Use:   "set <parameter> <value>",
	Short: "Set a parameter on a running node over OSC",
	Args:  cobra.ExactArgs(2),
	RunE:  runSet,
}

var recallCmd = &cobra.Command{
	Use:   "recall <slot>",
	Short: "Recall a patch slot on a running node",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecall,
}

var saveCmd = &cobra.Command{
	Use:   "save <slot>",
	Short: "Save the current values to a patch slot on a running node",
	Args:  cobra.ExactArgs(1),
	RunE:  runSave,
}

func init() {
	rootCmd.PersistentFlags().Float64Var(&sampleRate, "sample-rate", core.DefaultSampleRate, "sample rate in Hz")
	rootCmd.PersistentFlags().IntVar(&blockSize, "block-size", core.DefaultBlockSize, "samples per packet")
	rootCmd.PersistentFlags().IntVar(&voices, "voices", 10, "oscillator voices")

	runCmd.Flags().StringVar(&groupAddr, "group", "", "multicast group override (default derived from the node address)")
	runCmd.Flags().IntVar(&streamPort, "port", stream.DefaultPort, "stream UDP port")
	runCmd.Flags().BoolVar(&rtpFraming, "rtp", false, "prefix packets with an RTP-style header")
	runCmd.Flags().BoolVar(&dither, "dither", false, "apply triangular dither before 24-bit quantization")
	runCmd.Flags().StringVar(&listenAddr, "listen", fmt.Sprintf(":%d", control.DefaultPort), "OSC control listen address")
	runCmd.Flags().BoolVar(&withMonitor, "monitor", false, "play the rendered stream on the local sound device")

	toneCmd.Flags().Float64Var(&toneFreq, "freq", engine.BaseFrequencyHz, "cloud base frequency in Hz")
	toneCmd.Flags().Float64Var(&toneDetune, "detune", 0.5, "detune spread 0..1")
	toneCmd.Flags().Float64Var(&tonePW, "pw", 0.5, "pulse width spread 0..1")
	toneCmd.Flags().Float64Var(&toneBalance, "balance", 1, "cloud/centre balance 0..1")
	toneCmd.Flags().Float64Var(&toneDuration, "duration", 0.5, "render length in seconds")

	for _, c := range []*cobra.Command{setCmd, recallCmd, saveCmd} {
		c.Flags().StringVar(&controlAddr, "addr", fmt.Sprintf("127.0.0.1:%d", control.DefaultPort), "node control address")
	}

	rootCmd.AddCommand(runCmd, toneCmd, setCmd, recallCmd, saveCmd)
}

func newBank() (*osc.Bank, error) {
	return osc.NewBank(
		[]core.ProcessorOption{
			core.WithSampleRate(sampleRate),
			core.WithBlockSize(blockSize),
		},
		osc.WithVoices(voices),
	)
}

// shiftButton is held to reach the knob surface's second layer. Its
// presses never reach the patch handler.
const shiftButton = 8

// shiftFiltered drops the shift button's own press events so holding it
// for the second knob layer cannot save or recall a patch.
func shiftFiltered(eng *engine.Engine) button.Handler {
	return button.HandlerFunc(func(index int, press button.Press) {
		if index == shiftButton {
			return
		}
		eng.OnButton(index, press)
	})
}

// simPanel bundles the simulated board with the panel stack built on it.
type simPanel struct {
	adc     *hw.SimADC
	buttons *hw.SimShiftIn
	leds    *hw.SimShiftOut

	surface  *knob.Surface
	matrix   *button.Matrix
	animator *led.Animator
}

// buildPanel wires simulated shift registers and converter into the
// panel stack, mirroring the control board layout: three pots (pulse
// width rides the detune pot while the shift button is held), eight
// buttons, sixteen LEDs behind an inverted output chain.
func buildPanel(eng *engine.Engine) (*simPanel, error) {
	p := &simPanel{
		adc:     hw.NewSimADC(4, 4095),
		buttons: hw.NewSimShiftIn(8),
		leds:    hw.NewSimShiftOut(16),
	}

	surface, err := knob.NewSurface(p.adc, 4,
		knob.WithNotify(func(int, float64) { eng.MarkChanged() }),
		knob.WithButtonState(func(b int) bool {
			return p.matrix != nil && p.matrix.Held(b)
		}))
	if err != nil {
		return nil, err
	}
	p.surface = surface

	bindings := []struct {
		slot    string
		binding knob.Binding
	}{
		{engine.SlotFrequency, knob.Binding{Channel: 0, Invert: true}},
		{engine.SlotDetune, knob.Binding{Channel: 1}},
		{engine.SlotBalance, knob.Binding{Channel: 2}},
	}
	for i, b := range bindings {
		if err := surface.Bind(i, b.binding); err != nil {
			return nil, err
		}
		slot, err := eng.Bus().Slot(b.slot)
		if err != nil {
			return nil, err
		}
		if err := surface.RegisterParameter(i, slot); err != nil {
			return nil, err
		}
	}

	// Knob 3 is the virtual pulse-width layer behind the shift button.
	pwSlot, err := eng.Bus().Slot(engine.SlotPulseWidth)
	if err != nil {
		return nil, err
	}
	if err := surface.RegisterParameter(3, pwSlot); err != nil {
		return nil, err
	}
	if err := surface.LinkVirtual(1, 3, shiftButton); err != nil {
		return nil, err
	}

	reader, err := shiftreg.NewIn(p.buttons.LoadPin(), p.buttons.ClockPin(), p.buttons.DataPin(), 8, shiftreg.MSBFirst)
	if err != nil {
		return nil, err
	}
	p.matrix, err = button.NewMatrix(reader, 8, shiftFiltered(eng))
	if err != nil {
		return nil, err
	}

	writer, err := shiftreg.NewOut(p.leds.DataPin(), p.leds.ClockPin(), p.leds.LatchPin(),
		16, shiftreg.MSBFirst, shiftreg.WithInvertedOutputs())
	if err != nil {
		return nil, err
	}
	p.animator, err = led.NewAnimator(writer, 16)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

	group, err := resolveGroup()
	if err != nil {
		return err
	}
	sender, err := stream.NewSender(group)
	if err != nil {
		return err
	}
	defer sender.Close()
	logger.Printf("[stream] publishing to %v", group)

	bank, err := newBank()
	if err != nil {
		return err
	}

	encOpts := []stream.Option{}
	if rtpFraming {
		encOpts = append(encOpts, stream.WithRTPFraming())
	}
	if dither {
		encOpts = append(encOpts, stream.WithDither(uint64(os.Getpid())))
	}
	enc, err := stream.NewEncoder(blockSize, encOpts...)
	if err != nil {
		return err
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if withMonitor {
		mon, err := monitor.NewMonitor(int(sampleRate))
		if err != nil {
			return err
		}
		defer mon.Close()
		mon.Start()
		engOpts = append(engOpts, engine.WithMonitor(mon))
	}

	eng, err := engine.New(bank, enc, sender, engOpts...)
	if err != nil {
		return err
	}

	panel, err := buildPanel(eng)
	if err != nil {
		return err
	}
	eng.AttachPanel(panel.surface, panel.matrix, panel.animator)

	srv, err := control.NewServer(listenAddr, eng, control.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Printf("[osc] server: %v", err)
			stop()
		}
	}()

	err = eng.Run(ctx)

	audio, ctl, ui := eng.Stats()
	logger.Printf("[engine] audio loop: %d cycles, jitter mean %v max %v, %d overruns",
		audio.Cycles, audio.Mean, audio.Max, audio.Overruns)
	logger.Printf("[engine] control loop: %d cycles, jitter mean %v max %v",
		ctl.Cycles, ctl.Mean, ctl.Max)
	logger.Printf("[engine] ui loop: %d cycles, jitter mean %v max %v",
		ui.Cycles, ui.Mean, ui.Max)
	return err
}

func resolveGroup() (*net.UDPAddr, error) {
	if groupAddr != "" {
		addr, err := net.ResolveUDPAddr("udp4", groupAddr)
		if err != nil {
			return nil, fmt.Errorf("resolve group %s: %w", groupAddr, err)
		}
		return addr, nil
	}
	ip, err := stream.LocalUnicastIP()
	if err != nil {
		return nil, err
	}
	return stream.DeriveGroup(ip, streamPort)
}

func runTone(cmd *cobra.Command, args []string) error {
	bank, err := newBank()
	if err != nil {
		return err
	}
	if err := bank.SetCloud(toneFreq, toneDetune, tonePW, toneBalance); err != nil {
		return err
	}

	n := int(toneDuration * sampleRate)
	if n < 1024 {
		n = 1024
	}
	rendered := make([]float64, n)
	for i := range rendered {
		rendered[i] = bank.ProcessSample()
	}

	r, err := tone.Analyze(rendered, sampleRate)
	if err != nil {
		return err
	}

	fmt.Printf("rendered  %d samples (%d voices, base %.2f Hz)\n", n, voices, toneFreq)
	fmt.Printf("detected  %.2f Hz\n", r.FrequencyHz)
	fmt.Printf("level     %.4f (%.1f dB)\n", r.Level, r.LeveldB)
	fmt.Printf("rms       %.4f\n", r.RMS)
	return nil
}

func dialControl() (*control.Client, error) {
	return control.Dial(controlAddr)
}

func runSet(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("parse value %q: %w", args[1], err)
	}
	c, err := dialControl()
	if err != nil {
		return err
	}
	defer c.Close()
	return c.SetParameter(args[0], value)
}

func runRecall(cmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("parse slot %q: %w", args[0], err)
	}
	c, err := dialControl()
	if err != nil {
		return err
	}
	defer c.Close()
	return c.RecallPatch(slot)
}

func runSave(cmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("parse slot %q: %w", args[0], err)
	}
	c, err := dialControl()
	if err != nil {
		return err
	}
	defer c.Close()
	return c.SavePatch(slot)
}
