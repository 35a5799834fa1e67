package synth

// ADSR holds envelope times in seconds and the sustain level.
type ADSR struct {
	Attack  float32
	Decay   float32
	Sustain float32
	Release float32
}

// Envelope extracts the ADSR part of a descriptor.
func (d SoundDescriptor) Envelope() ADSR {
	return ADSR{Attack: d.Attack, Decay: d.Decay, Sustain: d.SustainLevel, Release: d.Release}
}

// Stage is a voice lifecycle stage.
type Stage int

const (
	StageAttack Stage = iota
	StageDecay
	StageSustain
	StageRelease
	StageDead
)

func (s Stage) String() string {
	switch s {
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	case StageDead:
		return "dead"
	}
	return "unknown"
}

// Amplitude evaluates the envelope at age samples after note on. releasedAt
// is the voice age at which Release arrived, or nil while the key is held.
//
// The released branch evaluates the held envelope at releasedAt and ramps it
// linearly to zero over the release time. A zero-length stage jumps straight
// to its target.
func Amplitude(env ADSR, age uint64, sampleRate int, releasedAt *uint64) float32 {
	if releasedAt != nil {
		r := secondsToSamples(env.Release, sampleRate)
		if r == 0 {
			return 0
		}
		var elapsed uint64
		if age > *releasedAt {
			elapsed = age - *releasedAt
		}
		if elapsed >= r {
			return 0
		}
		base := Amplitude(env, *releasedAt, sampleRate, nil)
		return maxf(0, lerp(base, 0, float32(float64(elapsed)/float64(r))))
	}

	a := secondsToSamples(env.Attack, sampleRate)
	d := secondsToSamples(env.Decay, sampleRate)
	s := clampf(env.Sustain, 0, 1)

	if a > 0 && age <= a {
		return float32(float64(age) / float64(a))
	}
	if d > 0 && age <= a+d {
		return lerp(1, s, float32(float64(age-a)/float64(d)))
	}
	return s
}

// StageAt reports which lifecycle stage the envelope is in.
func StageAt(env ADSR, age uint64, sampleRate int, releasedAt *uint64) Stage {
	if releasedAt != nil {
		var elapsed uint64
		if age > *releasedAt {
			elapsed = age - *releasedAt
		}
		if elapsed >= secondsToSamples(env.Release, sampleRate) {
			return StageDead
		}
		return StageRelease
	}
	a := secondsToSamples(env.Attack, sampleRate)
	d := secondsToSamples(env.Decay, sampleRate)
	switch {
	case age < a:
		return StageAttack
	case age < a+d:
		return StageDecay
	}
	return StageSustain
}
