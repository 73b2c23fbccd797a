package monitor

import "sync"

// ring is a fixed-capacity sample queue between the audio loop and the
// playback callback. When the consumer falls behind the oldest samples
// are dropped; the monitor is a convenience, never a backpressure
// source on the render loop.
type ring struct {
	mu   sync.Mutex
	buf  []float32
	r    int
	w    int
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float32, capacity)}
}

func (q *ring) push(block []float64) {
	q.mu.Lock()
	for _, s := range block {
		if q.size == len(q.buf) {
			// Drop the oldest sample.
			q.r = (q.r + 1) % len(q.buf)
			q.size--
		}
		q.buf[q.w] = float32(s)
		q.w = (q.w + 1) % len(q.buf)
		q.size++
	}
	q.mu.Unlock()
}

// read fills dst with queued samples and zero-fills the remainder on
// underrun. Returns how many real samples were copied.
func (q *ring) read(dst []float32) int {
	q.mu.Lock()
	n := len(dst)
	if n > q.size {
		n = q.size
	}
	for i := 0; i < n; i++ {
		dst[i] = q.buf[q.r]
		q.r = (q.r + 1) % len(q.buf)
	}
	q.size -= n
	q.mu.Unlock()

	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return n
}

func (q *ring) buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
