//go:build !headless

package monitor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ebitengine/oto/v3"
)

const defaultRingSamples = 8192

// Monitor plays pushed blocks through the default sound device.
type Monitor struct {
	ctx    *oto.Context
	player *oto.Player
	queue  *ring
	frame  []float32
}

// NewMonitor opens the sound device at the given sample rate.
func NewMonitor(sampleRate int) (*Monitor, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("monitor: sample rate must be > 0: %d", sampleRate)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("monitor: open sound device: %w", err)
	}
	<-ready

	m := &Monitor{
		ctx:   ctx,
		queue: newRing(defaultRingSamples),
	}
	m.player = ctx.NewPlayer(m)
	return m, nil
}

// Push queues one rendered block. Safe to call from the audio loop; the
// block is copied.
func (m *Monitor) Push(block []float64) {
	m.queue.push(block)
}

// Read implements io.Reader for the playback engine: little-endian
// float32 frames, silence on underrun.
func (m *Monitor) Read(p []byte) (int, error) {
	samples := len(p) / 4
	if len(m.frame) < samples {
		m.frame = make([]float32, samples)
	}
	frame := m.frame[:samples]
	m.queue.read(frame)

	for i, s := range frame {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return samples * 4, nil
}

// Start begins playback.
func (m *Monitor) Start() {
	m.player.Play()
}

// Stop pauses playback.
func (m *Monitor) Stop() {
	m.player.Pause()
}

// Close stops playback and releases the player.
func (m *Monitor) Close() error {
	return m.player.Close()
}
