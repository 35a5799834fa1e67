package analysis

import "github.com/cwbudde/algo-additive/dsp"

// Source produces one sample per call, like synth.Mixer.Tick.
type Source interface {
	Tick() float32
}

// Skipper is a Source that can jump ahead without rendering.
type Skipper interface {
	Source
	Skip(n int)
}

// Scope keeps the most recent samples of a signal for display and spectrum
// analysis. It is owned by one goroutine.
type Scope struct {
	ring *dsp.Ring
	snap []float32
}

// NewScope creates a scope remembering size samples.
func NewScope(size int) *Scope {
	if size <= 0 {
		size = DefaultFFTSize
	}
	return &Scope{ring: dsp.NewRing(size)}
}

// Size returns the scope length.
func (s *Scope) Size() int { return s.ring.Size() }

// Write appends a block of samples.
func (s *Scope) Write(block []float32) { s.ring.WriteBlock(block) }

// Pump ticks src n times and records every sample.
func (s *Scope) Pump(src Source, n int) {
	for i := 0; i < n; i++ {
		s.ring.Write(src.Tick())
	}
}

// Follow advances src by n samples, recording only the last Size of them.
// Display loops use it to keep a mirror in step with elapsed time. A Skipper
// jumps over the unrecorded part in one call.
func (s *Scope) Follow(src Source, n int) {
	skip := n - s.Size()
	if skip > 0 {
		if sk, ok := src.(Skipper); ok {
			sk.Skip(skip)
		} else {
			for i := 0; i < skip; i++ {
				src.Tick()
			}
		}
		n -= skip
	}
	s.Pump(src, n)
}

// Snapshot returns the scope contents ordered oldest to newest. The slice is
// reused by the next call.
func (s *Scope) Snapshot() []float32 {
	s.snap = s.ring.Snapshot(s.snap)
	return s.snap
}

// Levels returns peak and RMS of the current contents.
func (s *Scope) Levels() (peak, rms float64) {
	snap := s.Snapshot()
	return dsp.Peak(snap), dsp.RMS(snap)
}

// Reset forgets every sample.
func (s *Scope) Reset() { s.ring.Reset() }
