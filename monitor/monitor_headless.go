//go:build headless

package monitor

import "fmt"

const defaultRingSamples = 8192

// Monitor accepts pushed blocks and discards them.
type Monitor struct {
	queue *ring
}

// NewMonitor creates a no-output monitor.
func NewMonitor(sampleRate int) (*Monitor, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("monitor: sample rate must be > 0: %d", sampleRate)
	}
	return &Monitor{queue: newRing(defaultRingSamples)}, nil
}

// Push queues one rendered block.
func (m *Monitor) Push(block []float64) {
	m.queue.push(block)
}

// Start is a no-op.
func (m *Monitor) Start() {}

// Stop is a no-op.
func (m *Monitor) Stop() {}

// Close is a no-op.
func (m *Monitor) Close() error { return nil }
