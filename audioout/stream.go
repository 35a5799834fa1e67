// Package audioout connects a synth engine to a sound device.
package audioout

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-additive/synth"
)

// Stream adapts an engine to io.Reader, producing interleaved float32
// little-endian frames. Device callbacks pull from it; the engine pointer is
// swapped atomically so the read path never locks.
type Stream struct {
	engine   atomic.Pointer[synth.Engine]
	channels int
	buf      []float32
}

// NewStream creates a stream with the given device channel count.
func NewStream(channels int) *Stream {
	if channels < 1 {
		channels = 1
	}
	return &Stream{
		channels: channels,
		buf:      make([]float32, 4096),
	}
}

// Channels returns the device channel count.
func (s *Stream) Channels() int { return s.channels }

// Attach selects the engine to render from. nil detaches and plays silence.
func (s *Stream) Attach(e *synth.Engine) { s.engine.Store(e) }

// Read renders whole frames into p.
func (s *Stream) Read(p []byte) (int, error) {
	frameBytes := 4 * s.channels
	frames := len(p) / frameBytes
	e := s.engine.Load()
	if e == nil || frames == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := frames * s.channels
	if len(s.buf) < n {
		s.buf = make([]float32, n)
	}
	samples := s.buf[:n]
	e.RenderInterleaved(samples, s.channels)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}
