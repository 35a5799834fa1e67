package synth

import "math"

const twoPi = 2 * math.Pi

// Voice is one sounding note: a bank of unison*harmonics sine partials sharing
// one envelope.
type Voice struct {
	id         uint64
	sampleRate int
	desc       SoundDescriptor
	env        ADSR

	birth         uint64 // mixer sample count at note on
	age           uint64 // samples since note on
	releaseSample uint64 // mixer sample count at release
	releaseAge    uint64 // age at release
	released      bool
	releaseLen    uint64 // release time in samples

	harmonics int
	unison    int
	phases    []float32 // [unison][harmonics], each in [0,1)
	incs      []float32 // phase increment per partial per sample
	gains     []float32 // static gain per partial
	scratch   []float32
}

func newVoice(id uint64, desc SoundDescriptor, birth uint64, sampleRate int) *Voice {
	v := &Voice{}
	v.reset(id, desc, birth, sampleRate)
	return v
}

// reset re-arms a voice for a new note, reusing its bank storage when large
// enough.
func (v *Voice) reset(id uint64, desc SoundDescriptor, birth uint64, sampleRate int) {
	v.id = id
	v.sampleRate = sampleRate
	v.birth = birth
	v.age = 0
	v.releaseSample = 0
	v.releaseAge = 0
	v.released = false
	v.harmonics = 0
	v.unison = 0
	v.phases = v.phases[:0]
	v.provision(desc.sanitizeScalars())
}

// retune adopts a new descriptor without touching age or the phases of
// partials that exist in both layouts.
func (v *Voice) retune(desc SoundDescriptor) {
	v.provision(desc.sanitizeScalars())
}

func (v *Voice) provision(desc SoundDescriptor) {
	v.desc = desc
	v.env = desc.Envelope()
	v.releaseLen = secondsToSamples(desc.Release, v.sampleRate)

	h, u := desc.Harmonics, desc.UnisonVoices
	n := h * u
	if h != v.harmonics || u != v.unison {
		v.relayout(h, u)
	}

	if cap(v.incs) < n {
		v.incs = make([]float32, n)
		v.gains = make([]float32, n)
	}
	v.incs = v.incs[:n]
	v.gains = v.gains[:n]

	ratio := centsToRatio(desc.DetuneCents)
	pre := DBToLinear(desc.PreGainDB)
	unisonGain := 1.0 / float32(u)
	sr := float32(v.sampleRate)

	detune := float32(1)
	for ui := 0; ui < u; ui++ {
		for hi := 0; hi < h; hi++ {
			idx := ui*h + hi
			partial := float32(hi + 1)
			v.incs[idx] = desc.Fundamental * partial * detune / sr
			roll := float32(math.Pow(float64(partial), -float64(desc.RolloffExponent)))
			v.gains[idx] = unisonGain * roll * pre
		}
		detune *= ratio
	}
}

// relayout resizes the phase table to h harmonics by u unison copies, carrying
// over the phase of every (unison, harmonic) pair present before and after.
func (v *Voice) relayout(h, u int) {
	n := h * u
	oldH, oldU := v.harmonics, v.unison
	old := v.phases

	if cap(v.scratch) < len(old) {
		v.scratch = make([]float32, len(old))
	}
	saved := v.scratch[:len(old)]
	copy(saved, old)

	if cap(v.phases) < n {
		v.phases = make([]float32, n)
	}
	v.phases = v.phases[:n]
	for i := range v.phases {
		v.phases[i] = 0
	}
	for ui := 0; ui < u && ui < oldU; ui++ {
		for hi := 0; hi < h && hi < oldH; hi++ {
			v.phases[ui*h+hi] = saved[ui*oldH+hi]
		}
	}
	v.harmonics = h
	v.unison = u
}

// ID returns the caller-assigned voice id.
func (v *Voice) ID() uint64 { return v.id }

// Descriptor returns the latest applied descriptor.
func (v *Voice) Descriptor() SoundDescriptor { return v.desc }

// Age returns the number of samples rendered since note on.
func (v *Voice) Age() uint64 { return v.age }

// BirthSample returns the mixer sample count at note on.
func (v *Voice) BirthSample() uint64 { return v.birth }

// ReleaseSample returns the mixer sample count at which Release arrived.
func (v *Voice) ReleaseSample() (uint64, bool) { return v.releaseSample, v.released }

// Released reports whether the key has been let go.
func (v *Voice) Released() bool { return v.released }

func (v *Voice) release(at uint64) {
	if v.released {
		return
	}
	if at < v.birth {
		at = v.birth
	}
	v.released = true
	v.releaseSample = at
	v.releaseAge = at - v.birth
}

func (v *Voice) releasedAt() *uint64 {
	if !v.released {
		return nil
	}
	return &v.releaseAge
}

// Stage reports the current lifecycle stage.
func (v *Voice) Stage() Stage {
	return StageAt(v.env, v.age, v.sampleRate, v.releasedAt())
}

// ShouldRemove reports whether the release stage has run its full length.
func (v *Voice) ShouldRemove() bool {
	if !v.released {
		return false
	}
	return v.age-v.releaseAge >= v.releaseLen
}

// skip advances age and phases by n samples without rendering them.
func (v *Voice) skip(n uint64) {
	v.age += n
	for i, p := range v.phases {
		x := float64(p) + float64(v.incs[i])*float64(n)
		v.phases[i] = float32(x - math.Floor(x))
	}
}

// Tick advances every partial by one sample and returns the voice output.
func (v *Voice) Tick() float32 {
	v.age++
	env := Amplitude(v.env, v.age, v.sampleRate, v.releasedAt())

	var acc float32
	phases := v.phases
	incs := v.incs[:len(phases)]
	gains := v.gains[:len(phases)]
	for i := range phases {
		p := phases[i] + incs[i]
		if p >= 1 {
			p -= float32(int(p))
		}
		phases[i] = p
		acc += gains[i] * float32(math.Sin(twoPi*float64(p)))
	}
	return acc * env
}
