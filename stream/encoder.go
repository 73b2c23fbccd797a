package stream

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

const (
	// BytesPerSample is the L24 sample width on the wire.
	BytesPerSample = 3

	// HeaderSize is the length of the optional RTP-style prefix.
	HeaderSize = 12

	l24Scale = 8388607.0 // 2^23 - 1

	headerVersion     = 0x80 // V=2, P=0, X=0, CC=0
	headerPayloadType = 0x60 // M=0, PT=96 (dynamic)
)

// Option configures an Encoder.
type Option func(*Encoder)

// WithRTPFraming prefixes every packet with a 12-byte header carrying a
// big-endian sequence number and a timestamp advancing by one block of
// samples per packet.
func WithRTPFraming() Option {
	return func(e *Encoder) {
		e.rtp = true
	}
}

// WithDither enables triangular-PDF dither of one quantization step
// before the 24-bit conversion, seeded deterministically. Without it
// samples are truncated toward zero.
func WithDither(seed uint64) Option {
	return func(e *Encoder) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// Encoder packs fixed-size sample blocks into reusable packet buffers.
// Not safe for concurrent use; the audio loop owns it.
type Encoder struct {
	blockSize int
	rtp       bool
	seq       uint16
	timestamp uint32
	rng       *rand.Rand
	buf       []byte
}

// NewEncoder creates an encoder for blocks of blockSize samples.
func NewEncoder(blockSize int, opts ...Option) (*Encoder, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("stream: block size must be > 0: %d", blockSize)
	}

	e := &Encoder{blockSize: blockSize}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.buf = make([]byte, e.PacketSize())
	return e, nil
}

// BlockSize returns the configured samples-per-packet count.
func (e *Encoder) BlockSize() int {
	return e.blockSize
}

// PacketSize returns the byte length of one encoded packet.
func (e *Encoder) PacketSize() int {
	n := e.blockSize * BytesPerSample
	if e.rtp {
		n += HeaderSize
	}
	return n
}

// EncodeBlock packs one block into the encoder's internal packet buffer
// and returns it. Inputs are expected pre-clamped to [-1, 1]; values
// beyond the 24-bit range are a caller bug and are not re-clamped here.
// The returned slice is reused by the next call.
func (e *Encoder) EncodeBlock(samples []float64) ([]byte, error) {
	if len(samples) != e.blockSize {
		return nil, fmt.Errorf("stream: block has %d samples, want %d", len(samples), e.blockSize)
	}

	offset := 0
	if e.rtp {
		e.buf[0] = headerVersion
		e.buf[1] = headerPayloadType
		binary.BigEndian.PutUint16(e.buf[2:4], e.seq)
		binary.BigEndian.PutUint32(e.buf[4:8], e.timestamp)
		for i := 8; i < HeaderSize; i++ {
			e.buf[i] = 0
		}
		e.seq++
		e.timestamp += uint32(e.blockSize)
		offset = HeaderSize
	}

	for _, s := range samples {
		v := e.quantize(s)
		e.buf[offset] = byte(v >> 16)
		e.buf[offset+1] = byte(v >> 8)
		e.buf[offset+2] = byte(v)
		offset += BytesPerSample
	}

	return e.buf, nil
}

// quantize converts one sample to a signed 24-bit value. The plain path
// truncates toward zero; with dither enabled a triangular-PDF offset of
// up to one step is added and the result rounded.
func (e *Encoder) quantize(s float64) int32 {
	scaled := s * l24Scale
	if e.rng == nil {
		return int32(scaled)
	}

	// TPDF: sum of two uniform draws in [-0.5, 0.5).
	d := (e.rng.Float64() - 0.5) + (e.rng.Float64() - 0.5)
	scaled += d
	if scaled < 0 {
		return int32(scaled - 0.5)
	}
	return int32(scaled + 0.5)
}

// DecodeBlock interprets an L24 payload (without header) back into
// normalized samples. Intended for receivers and round-trip tests.
func DecodeBlock(payload []byte) ([]float64, error) {
	if len(payload)%BytesPerSample != 0 {
		return nil, fmt.Errorf("stream: payload length %d is not a multiple of %d", len(payload), BytesPerSample)
	}

	out := make([]float64, len(payload)/BytesPerSample)
	for i := range out {
		o := i * BytesPerSample
		v := int32(uint32(payload[o])<<16 | uint32(payload[o+1])<<8 | uint32(payload[o+2]))
		if v&0x800000 != 0 {
			v -= 1 << 24
		}
		out[i] = float64(v) / l24Scale
	}
	return out, nil
}

// StripHeader splits an RTP-framed packet into its header fields and
// payload.
func StripHeader(packet []byte) (seq uint16, timestamp uint32, payload []byte, err error) {
	if len(packet) < HeaderSize {
		return 0, 0, nil, fmt.Errorf("stream: packet too short for header: %d bytes", len(packet))
	}
	if packet[0] != headerVersion || packet[1] != headerPayloadType {
		return 0, 0, nil, fmt.Errorf("stream: unexpected header bytes %#02x %#02x", packet[0], packet[1])
	}
	seq = binary.BigEndian.Uint16(packet[2:4])
	timestamp = binary.BigEndian.Uint32(packet[4:8])
	return seq, timestamp, packet[HeaderSize:], nil
}
