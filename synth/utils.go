package synth

import (
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// DBToLinear converts decibels to a linear amplitude factor.
func DBToLinear(db float32) float32 {
	return float32(dspcore.DBToLinear(float64(db)))
}

// LinearToDB converts a linear amplitude to decibels. Non-positive input maps
// to -Inf.
func LinearToDB(v float32) float32 {
	if v <= 0 {
		return float32(math.Inf(-1))
	}
	return float32(dspcore.LinearToDB(float64(v)))
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// centsToRatio returns the frequency multiplier for a detune in cents.
func centsToRatio(cents float32) float32 {
	if cents == 0 {
		return 1
	}
	return pow2Approx(cents / 1200.0)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

func finiteOr(x, fallback float32) float32 {
	if isFinite(x) {
		return x
	}
	return fallback
}

func maxf(a float32, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a float32, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// secondsToSamples rounds to the nearest sample so float32 knob values such
// as 0.01 s do not lose a sample to truncation.
func secondsToSamples(seconds float32, sampleRate int) uint64 {
	if seconds <= 0 || !isFinite(seconds) {
		return 0
	}
	return uint64(math.Round(float64(seconds) * float64(sampleRate)))
}
