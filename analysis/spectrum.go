package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-additive/dsp"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

// DefaultFFTSize matches the scope length used by the live display.
const DefaultFFTSize = 8192

// Band is a named frequency range used for coarse level summaries.
type Band struct {
	Name string  `json:"name"`
	LoHz float64 `json:"lo_hz"`
	HiHz float64 `json:"hi_hz"`
}

// DefaultBands splits the audible range the way a mixing engineer would.
var DefaultBands = []Band{
	{"sub-bass", 20, 100},
	{"bass", 100, 300},
	{"low-mid", 300, 1000},
	{"mid", 1000, 3000},
	{"hi-mid", 3000, 6000},
	{"high", 6000, 12000},
	{"air", 12000, 20000},
}

// BandLevel is the mean power of one band in dB.
type BandLevel struct {
	Band
	LevelDB float64 `json:"level_db"`
}

// Spectrum is a single-sided magnitude spectrum in dB relative to a
// full-scale sine.
type Spectrum struct {
	SampleRate int       `json:"sample_rate"`
	BinHz      float64   `json:"bin_hz"`
	DB         []float64 `json:"db"`
}

// Analyzer computes Blackman-windowed spectra of fixed-size frames. It reuses
// its buffers and is not safe for concurrent use.
type Analyzer struct {
	size       int
	sampleRate int
	window     []float64
	gain       float64
	forward    func(dst []complex128, src []float64)
	in         []float64
	spec       []complex128
	out        Spectrum
}

// NewAnalyzer plans a real FFT of size points.
func NewAnalyzer(size, sampleRate int) (*Analyzer, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("fft size must be a power of two >= 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0")
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	a := &Analyzer{
		size:       size,
		sampleRate: sampleRate,
		window:     window.Generate(window.TypeBlackman, size, window.WithPeriodic()),
		gain:       2 / (float64(size) * window.Info(window.TypeBlackman).CoherentGain),
		forward: func(dst []complex128, src []float64) {
			plan.Forward(dst, src)
		},
		in:   make([]float64, size),
		spec: make([]complex128, size/2+1),
	}
	a.out = Spectrum{
		SampleRate: sampleRate,
		BinHz:      float64(sampleRate) / float64(size),
		DB:         make([]float64, size/2+1),
	}
	return a, nil
}

// Size returns the frame length.
func (a *Analyzer) Size() int { return a.size }

// Analyze windows frame and returns its spectrum. Short frames are zero
// padded; longer ones use their last Size samples. The returned Spectrum
// shares storage with the analyzer until the next call.
func (a *Analyzer) Analyze(frame []float32) Spectrum {
	if len(frame) > a.size {
		frame = frame[len(frame)-a.size:]
	}
	for i := range a.in {
		var x float64
		if i < len(frame) {
			x = float64(frame[i])
		}
		a.in[i] = x * a.window[i]
	}
	a.forward(a.spec, a.in)
	for k, c := range a.spec {
		a.out.DB[k] = dsp.LinToDB(cmplx.Abs(c) * a.gain)
	}
	return a.out
}

// PeakBin returns the loudest bin above DC.
func (s Spectrum) PeakBin() int {
	best := 1
	for k := 2; k < len(s.DB); k++ {
		if s.DB[k] > s.DB[best] {
			best = k
		}
	}
	return best
}

// PeakFrequency refines the loudest bin with a parabolic fit over the dB
// values of its neighbours.
func (s Spectrum) PeakFrequency() float64 {
	k := s.PeakBin()
	if k <= 0 || k >= len(s.DB)-1 {
		return float64(k) * s.BinHz
	}
	l, c, r := s.DB[k-1], s.DB[k], s.DB[k+1]
	den := l - 2*c + r
	offset := 0.0
	if math.Abs(den) > 1e-12 {
		offset = 0.5 * (l - r) / den
	}
	return (float64(k) + offset) * s.BinHz
}

// Bands summarizes the spectrum as mean power per band.
func (s Spectrum) Bands(bands []Band) []BandLevel {
	out := make([]BandLevel, 0, len(bands))
	for _, b := range bands {
		loK := int(b.LoHz / s.BinHz)
		hiK := int(b.HiHz / s.BinHz)
		if loK < 1 {
			loK = 1
		}
		if hiK >= len(s.DB) {
			hiK = len(s.DB) - 1
		}
		if loK > hiK {
			continue
		}
		var pow float64
		for k := loK; k <= hiK; k++ {
			m := math.Pow(10, s.DB[k]/20)
			pow += m * m
		}
		pow /= float64(hiK - loK + 1)
		out = append(out, BandLevel{Band: b, LevelDB: 10 * math.Log10(math.Max(pow, 1e-24))})
	}
	return out
}

// Columns downsamples the spectrum to width display columns, mapping each
// column to a height in [0,1] where 1 is 0 dB and 0 is floorDB. Each column
// takes the loudest bin it covers.
func (s Spectrum) Columns(width int, floorDB float64) []float64 {
	if width <= 0 || len(s.DB) == 0 || floorDB >= 0 {
		return nil
	}
	out := make([]float64, width)
	per := float64(len(s.DB)) / float64(width)
	for c := range out {
		lo := int(float64(c) * per)
		hi := int(float64(c+1) * per)
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(s.DB) {
			hi = len(s.DB)
		}
		best := floorDB
		for k := lo; k < hi; k++ {
			if s.DB[k] > best {
				best = s.DB[k]
			}
		}
		h := 1 - best/floorDB
		if h < 0 {
			h = 0
		}
		if h > 1 {
			h = 1
		}
		out[c] = h
	}
	return out
}

// Average returns the power-averaged spectrum of every hop-spaced frame in
// signal. A signal shorter than one frame is analysed zero padded. The result
// owns its storage.
func (a *Analyzer) Average(signal []float32, hop int) Spectrum {
	if hop < 1 {
		hop = a.size / 2
	}
	pow := make([]float64, a.size/2+1)
	frames := 0
	for pos := 0; pos == 0 || pos+a.size <= len(signal); pos += hop {
		end := pos + a.size
		if end > len(signal) {
			end = len(signal)
		}
		s := a.Analyze(signal[pos:end])
		for k, db := range s.DB {
			m := math.Pow(10, db/20)
			pow[k] += m * m
		}
		frames++
	}
	out := Spectrum{
		SampleRate: a.sampleRate,
		BinHz:      a.out.BinHz,
		DB:         make([]float64, len(pow)),
	}
	for k, p := range pow {
		out.DB[k] = 10 * math.Log10(math.Max(p/float64(frames), 1e-24))
	}
	return out
}
