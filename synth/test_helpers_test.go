package synth

import "math"

const testSampleRate = 44100

// pureSine is a single un-detuned partial held at full level with every
// dynamics stage at unity.
func pureSine(f float32) SoundDescriptor {
	return SoundDescriptor{
		Fundamental:  f,
		Harmonics:    1,
		UnisonVoices: 1,
		SustainLevel: 1,
	}
}

func render(m *Mixer, n int) []float32 {
	out := make([]float32, n)
	m.Process(out)
	return out
}

// zeroCrossings returns the indices i where samples[i-1] and samples[i] have
// opposite signs.
func zeroCrossings(samples []float32) []int {
	var idx []int
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			idx = append(idx, i)
		}
	}
	return idx
}

func peakAbs(samples []float32) float64 {
	var p float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > p {
			p = a
		}
	}
	return p
}

func approxEqual(a, b float32, tol float64) bool {
	return math.Abs(float64(a-b)) <= tol
}

func u64(v uint64) *uint64 { return &v }
