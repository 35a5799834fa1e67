package analysis

import (
	"math"

	"github.com/cwbudde/algo-additive/dsp"
)

const (
	envFrame = 256
	envHop   = 128
	// compareFFTSize bounds the spectral resolution used by Compare.
	compareFFTSize = 4096
)

// Metrics describes how far a rendered note is from a reference recording.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	BandRMSEDB      float64 `json:"band_rmse_db"`
	PitchErrorCents float64 `json:"pitch_error_cents"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare aligns candidate to reference and scores the difference in level
// envelope, spectral shape, pitch and decay rate. Score is in [0,1], lower
// is closer. Both signals are RMS normalized first, so overall gain does not
// count.
func Compare(reference, candidate []float32, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	if sampleRate <= 0 {
		return m
	}

	ref := normalizeRMS(trimLeadingSilence(reference, 1e-6), 0.1)
	cand := normalizeRMS(trimLeadingSilence(candidate, 1e-6), 0.1)
	if len(ref) == 0 || len(cand) == 0 {
		return m
	}

	maxLag := min(sampleRate/20, len(ref)-1, len(cand)-1)
	lag := 0
	if maxLag > 0 {
		lag = estimateLag(ref, cand, maxLag)
	}
	m.LagSamples = lag

	refA, candA := alignByLag(ref, cand, lag)
	n := min(len(refA), len(candA), sampleRate*12)
	if n < envFrame {
		return m
	}
	refA, candA = refA[:n], candA[:n]
	m.AlignedFrames = n

	refEnv := rmsEnvelope(refA, envFrame, envHop)
	candEnv := rmsEnvelope(candA, envFrame, envHop)
	var envSum float64
	for i := range refEnv {
		d := dsp.LinToDB(refEnv[i]) - dsp.LinToDB(candEnv[i])
		envSum += d * d
	}
	m.EnvelopeRMSEDB = math.Sqrt(envSum / float64(len(refEnv)))

	size := compareFFTSize
	for size > n && size > 256 {
		size /= 2
	}
	if a, err := NewAnalyzer(size, sampleRate); err == nil {
		rs := a.Average(refA, size/2)
		cs := a.Average(candA, size/2)
		m.SpectralRMSEDB = spectralRMSEDB(rs, cs, -90)
		m.BandRMSEDB = bandRMSEDB(rs.Bands(DefaultBands), cs.Bands(DefaultBands))
		rf, cf := rs.PeakFrequency(), cs.PeakFrequency()
		if rf > 0 && cf > 0 {
			m.PitchErrorCents = math.Abs(1200 * math.Log2(cf/rf))
		}
	}

	hopSec := float64(envHop) / float64(sampleRate)
	m.RefDecayDBPerS = decaySlopeDBPerS(refEnv, hopSec)
	m.CandDecayDBPerS = decaySlopeDBPerS(candEnv, hopSec)
	if isFinite(m.RefDecayDBPerS) && isFinite(m.CandDecayDBPerS) {
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
	}

	envNorm := clamp01(m.EnvelopeRMSEDB / 30)
	specNorm := clamp01(m.SpectralRMSEDB / 30)
	bandNorm := clamp01(m.BandRMSEDB / 20)
	pitchNorm := clamp01(m.PitchErrorCents / 100)
	decNorm := clamp01(m.DecayDiffDBPerS / 40)
	m.Score = clamp01(0.30*envNorm + 0.25*specNorm + 0.15*bandNorm + 0.15*pitchNorm + 0.15*decNorm)
	m.Similarity = clamp01(math.Exp(-4 * m.Score))
	return m
}

func trimLeadingSilence(x []float32, threshold float32) []float32 {
	for i, v := range x {
		if v > threshold || v < -threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float32, target float64) []float32 {
	if len(x) == 0 {
		return nil
	}
	out := make([]float32, len(x))
	r := dsp.RMS(x)
	if r <= 1e-12 {
		copy(out, x)
		return out
	}
	g := float32(target / r)
	for i, v := range x {
		out[i] = v * g
	}
	return out
}

// estimateLag finds the shift of cand against ref, within maxLag, that
// maximizes their correlation. Positive means ref starts later.
func estimateLag(ref, cand []float32, maxLag int) int {
	step := 2
	if len(ref) > 200000 || len(cand) > 200000 {
		step = 4
	}
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		if s := dotAtLag(ref, cand, lag, step); s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func dotAtLag(a, b []float32, lag, step int) float64 {
	ai, bi := 0, 0
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	var sum float64
	for i := 0; i < n; i += step {
		sum += float64(a[ai+i]) * float64(b[bi+i])
	}
	return sum
}

func alignByLag(ref, cand []float32, lag int) ([]float32, []float32) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	if -lag >= len(cand) {
		return nil, nil
	}
	return ref, cand[-lag:]
}

func rmsEnvelope(x []float32, frame, hop int) []float64 {
	if len(x) < frame {
		return nil
	}
	out := make([]float64, 1+(len(x)-frame)/hop)
	for i := range out {
		out[i] = dsp.RMS(x[i*hop : i*hop+frame])
	}
	return out
}

// spectralRMSEDB compares two spectra bin by bin, flooring both at floorDB so
// that inaudible bins do not dominate.
func spectralRMSEDB(a, b Spectrum, floorDB float64) float64 {
	n := min(len(a.DB), len(b.DB))
	if n < 2 {
		return 0
	}
	var sum float64
	for k := 1; k < n; k++ {
		d := math.Max(a.DB[k], floorDB) - math.Max(b.DB[k], floorDB)
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}

func bandRMSEDB(a, b []BandLevel) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i].LevelDB - b[i].LevelDB
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// decaySlopeDBPerS fits a line to the envelope from its peak down to 60 dB
// below it.
func decaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak := math.Inf(-1)
	peakIdx := 0
	for i, v := range env {
		if db := dsp.LinToDB(v); db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	if start >= len(env)-4 {
		return math.NaN()
	}

	end := len(env)
	for i := start; i < len(env); i++ {
		if dsp.LinToDB(env[i]) < peak-60 {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := dsp.LinToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
