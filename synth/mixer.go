package synth

import dspcore "github.com/cwbudde/algo-dsp/dsp/core"

// DefaultPolyphony is the number of voices the mixer pre-allocates room for.
const DefaultPolyphony = 32

// Mixer owns the live voices and turns them into one mono sample per tick.
// It is not safe for concurrent use: the audio goroutine owns it and every
// outside change arrives as a Command.
//
// Voice ids are a caller contract. A PlayHold for an id that is still alive
// retunes that voice instead of starting a second one, so two distinct notes
// must never share an id while both are sounding.
type Mixer struct {
	sampleRate  int
	sampleCount uint64
	voices      []*Voice
	free        []*Voice
	outputGain  float32
	dynamics    Dynamics
}

// NewMixer creates a mixer rendering at sampleRate.
func NewMixer(sampleRate int, maxPolyphony int) *Mixer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if maxPolyphony <= 0 {
		maxPolyphony = DefaultPolyphony
	}
	return &Mixer{
		sampleRate: sampleRate,
		voices:     make([]*Voice, 0, maxPolyphony),
		free:       make([]*Voice, 0, maxPolyphony),
		outputGain: 1,
		dynamics:   UnityDynamics(),
	}
}

// SampleRate returns the construction-time sample rate.
func (m *Mixer) SampleRate() int { return m.sampleRate }

// SampleCount returns the number of ticks rendered so far.
func (m *Mixer) SampleCount() uint64 { return m.sampleCount }

// VoiceCount returns the number of live voices.
func (m *Mixer) VoiceCount() int { return len(m.voices) }

// OutputGain returns the master volume.
func (m *Mixer) OutputGain() float32 { return m.outputGain }

// Dynamics returns the bus stage currently applied.
func (m *Mixer) Dynamics() Dynamics { return m.dynamics }

// Voice looks up a live voice by id.
func (m *Mixer) Voice(id uint64) (*Voice, bool) {
	for _, v := range m.voices {
		if v.id == id {
			return v, true
		}
	}
	return nil, false
}

// ApplyCommand mutates mixer state. It never fails: unknown ids and repeated
// releases are no-ops. A PlayHold for a live id retunes that voice in place,
// keeping its age and phases; callers pick fresh ids for new notes.
func (m *Mixer) ApplyCommand(cmd Command) {
	switch cmd.Kind {
	case CmdPlayHold:
		m.playHold(cmd.ID, cmd.Descriptor)
	case CmdRelease:
		if v, ok := m.Voice(cmd.ID); ok {
			v.release(m.sampleCount)
		}
	case CmdSetOutputGain:
		if isFinite(cmd.Gain) {
			m.outputGain = maxf(cmd.Gain, 0)
		}
	}
}

func (m *Mixer) playHold(id uint64, desc SoundDescriptor) {
	m.dynamics = NewDynamics(desc)
	if v, ok := m.Voice(id); ok {
		v.retune(desc)
		return
	}
	var v *Voice
	if n := len(m.free); n > 0 {
		v = m.free[n-1]
		m.free[n-1] = nil
		m.free = m.free[:n-1]
		v.reset(id, desc, m.sampleCount, m.sampleRate)
	} else {
		v = newVoice(id, desc, m.sampleCount, m.sampleRate)
	}
	m.voices = append(m.voices, v)
}

// Tick renders one output sample, then drops voices whose release finished.
func (m *Mixer) Tick() float32 {
	m.sampleCount++

	var acc float32
	for _, v := range m.voices {
		acc += v.Tick()
	}
	acc = float32(dspcore.FlushDenormals(float64(acc)))

	out := m.dynamics.Compress(acc) * m.dynamics.OutputGain * m.outputGain
	if !isFinite(out) {
		out = 0
	}
	out = m.dynamics.Clip(out)

	m.collect()
	return out
}

// collect swap-removes finished voices; order is irrelevant to the mix.
func (m *Mixer) collect() {
	for i := 0; i < len(m.voices); {
		v := m.voices[i]
		if !v.ShouldRemove() {
			i++
			continue
		}
		last := len(m.voices) - 1
		m.voices[i] = m.voices[last]
		m.voices[last] = nil
		m.voices = m.voices[:last]
		m.free = append(m.free, v)
	}
}

// Skip advances the clock, every voice and the collector by n samples
// without producing output. Its cost does not depend on n.
func (m *Mixer) Skip(n int) {
	if n <= 0 {
		return
	}
	m.sampleCount += uint64(n)
	for _, v := range m.voices {
		v.skip(uint64(n))
	}
	m.collect()
}

// Process renders len(out) samples into out.
func (m *Mixer) Process(out []float32) {
	for i := range out {
		out[i] = m.Tick()
	}
}

// Reset silences the mixer by dropping every voice. The sample counter keeps
// running.
func (m *Mixer) Reset() {
	for i, v := range m.voices {
		m.free = append(m.free, v)
		m.voices[i] = nil
	}
	m.voices = m.voices[:0]
}
