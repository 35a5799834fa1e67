package synth

import "fmt"

// DefaultSampleRate is used when an engine is built with a non-positive rate.
const DefaultSampleRate = 44100

// SoundDescriptor is the full timbre, envelope and dynamics snapshot carried by
// a PlayHold command. It is a value type: every command owns its own copy.
type SoundDescriptor struct {
	Fundamental     float32 // Hz
	Harmonics       int
	RolloffExponent float32

	Attack       float32 // seconds
	Decay        float32 // seconds
	SustainLevel float32 // 0..1
	Release      float32 // seconds

	DetuneCents  float32
	UnisonVoices int

	PreGainDB float32

	CompressUpThresholdDB   float32
	CompressUpRatio         float32
	CompressDownThresholdDB float32
	CompressDownRatio       float32

	OutputGainDB float32
	// HardClipDB lowers the final limiter below unity when set.
	HardClipDB *float32
}

// NewDefaultDescriptor returns the knob defaults of the synth front panel for
// the given fundamental.
func NewDefaultDescriptor(fundamental float32) SoundDescriptor {
	return SoundDescriptor{
		Fundamental:             fundamental,
		Harmonics:               3,
		RolloffExponent:         2.0,
		Attack:                  0.1,
		Decay:                   0.1,
		SustainLevel:            0.5,
		Release:                 0.1,
		DetuneCents:             0.0,
		UnisonVoices:            2,
		PreGainDB:               -20.0,
		CompressUpThresholdDB:   -100.0,
		CompressUpRatio:         1.0,
		CompressDownThresholdDB: 0.0,
		CompressDownRatio:       1.0,
		OutputGainDB:            0.0,
	}
}

// Validate reports the first malformed field. It is meant for the control
// boundary (presets, knobs); the engine itself only clamps.
func (d SoundDescriptor) Validate() error {
	switch {
	case !isFinite(d.Fundamental) || d.Fundamental <= 0:
		return fmt.Errorf("fundamental must be > 0")
	case d.Harmonics < 1:
		return fmt.Errorf("harmonics must be >= 1")
	case d.UnisonVoices < 1:
		return fmt.Errorf("unison_voices must be >= 1")
	case !isFinite(d.RolloffExponent):
		return fmt.Errorf("rolloff_exponent must be finite")
	case !isFinite(d.Attack) || d.Attack < 0:
		return fmt.Errorf("attack must be >= 0")
	case !isFinite(d.Decay) || d.Decay < 0:
		return fmt.Errorf("decay must be >= 0")
	case !isFinite(d.Release) || d.Release < 0:
		return fmt.Errorf("release must be >= 0")
	case !isFinite(d.SustainLevel) || d.SustainLevel < 0 || d.SustainLevel > 1:
		return fmt.Errorf("sustain_level must be in [0,1]")
	case !isFinite(d.DetuneCents):
		return fmt.Errorf("detune_cents must be finite")
	case !isFinite(d.PreGainDB) || !isFinite(d.OutputGainDB):
		return fmt.Errorf("gains must be finite")
	case !isFinite(d.CompressUpRatio) || d.CompressUpRatio < 1:
		return fmt.Errorf("compress_up_ratio must be >= 1")
	case !isFinite(d.CompressDownRatio) || d.CompressDownRatio < 1:
		return fmt.Errorf("compress_down_ratio must be >= 1")
	case !isFinite(d.CompressUpThresholdDB) || !isFinite(d.CompressDownThresholdDB):
		return fmt.Errorf("compressor thresholds must be finite")
	case d.HardClipDB != nil && (!isFinite(*d.HardClipDB) || *d.HardClipDB > 0):
		return fmt.Errorf("hard_clip_db must be <= 0")
	}
	return nil
}

// Sanitized clamps every field into the range the engine can render without
// dividing by zero or producing non-finite output. An in-range HardClipDB
// keeps the caller's pointer; an out-of-range one is replaced by a copy.
func (d SoundDescriptor) Sanitized() SoundDescriptor {
	out := d.sanitizeScalars()
	if clip, ok := d.clipDB(); ok && clip != *d.HardClipDB {
		out.HardClipDB = &clip
	}
	return out
}

// sanitizeScalars clamps the value fields and leaves HardClipDB alone. It
// never allocates, so the mixer can call it while applying commands.
func (d SoundDescriptor) sanitizeScalars() SoundDescriptor {
	out := d
	if out.Harmonics < 1 {
		out.Harmonics = 1
	}
	if out.UnisonVoices < 1 {
		out.UnisonVoices = 1
	}
	if !isFinite(out.Fundamental) || out.Fundamental < 0 {
		out.Fundamental = 0
	}
	out.RolloffExponent = finiteOr(out.RolloffExponent, 0)
	out.Attack = maxf(finiteOr(out.Attack, 0), 0)
	out.Decay = maxf(finiteOr(out.Decay, 0), 0)
	out.Release = maxf(finiteOr(out.Release, 0), 0)
	out.SustainLevel = clampf(finiteOr(out.SustainLevel, 0), 0, 1)
	out.DetuneCents = finiteOr(out.DetuneCents, 0)
	out.PreGainDB = finiteOr(out.PreGainDB, 0)
	out.OutputGainDB = finiteOr(out.OutputGainDB, 0)
	out.CompressUpThresholdDB = finiteOr(out.CompressUpThresholdDB, -100)
	out.CompressDownThresholdDB = finiteOr(out.CompressDownThresholdDB, 0)
	out.CompressUpRatio = maxf(finiteOr(out.CompressUpRatio, 1), 1)
	out.CompressDownRatio = maxf(finiteOr(out.CompressDownRatio, 1), 1)
	return out
}

// clipDB returns the hard clip level clamped to at most 0 dB.
func (d SoundDescriptor) clipDB() (float32, bool) {
	if d.HardClipDB == nil {
		return 0, false
	}
	return minf(finiteOr(*d.HardClipDB, 0), 0), true
}

// PartialCount is the size of the oscillator bank the descriptor needs.
func (d SoundDescriptor) PartialCount() int {
	h, u := d.Harmonics, d.UnisonVoices
	if h < 1 {
		h = 1
	}
	if u < 1 {
		u = 1
	}
	return h * u
}
