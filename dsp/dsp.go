package dsp

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/delay"
)

// Ring is a fixed-size circular sample buffer over an algo-dsp delay line.
// Writes overwrite the oldest sample once the buffer is full.
type Ring struct {
	line   *delay.Line
	size   int
	filled int
}

// NewRing creates a ring holding size samples.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	line, _ := delay.New(size)
	return &Ring{line: line, size: size}
}

// Size returns the capacity in samples.
func (r *Ring) Size() int { return r.size }

// Len returns how many samples have been written, capped at Size.
func (r *Ring) Len() int { return r.filled }

// Write appends one sample.
func (r *Ring) Write(sample float32) {
	r.line.Write(float64(sample))
	if r.filled < r.size {
		r.filled++
	}
}

// WriteBlock appends every sample of block in order.
func (r *Ring) WriteBlock(block []float32) {
	for _, s := range block {
		r.Write(s)
	}
}

// Read returns the sample written n writes ago; Read(1) is the newest.
func (r *Ring) Read(n int) float32 {
	return float32(r.line.Read(n))
}

// Snapshot copies the ring into dst ordered oldest to newest. dst is grown
// when shorter than Size.
func (r *Ring) Snapshot(dst []float32) []float32 {
	if cap(dst) < r.size {
		dst = make([]float32, r.size)
	}
	dst = dst[:r.size]
	for i := range dst {
		dst[i] = r.Read(r.size - i)
	}
	return dst
}

// Reset clears the ring.
func (r *Ring) Reset() {
	r.line.Reset()
	r.filled = 0
}

// Peak returns the largest absolute sample value.
func Peak(x []float32) float64 {
	var p float64
	for _, v := range x {
		if a := math.Abs(float64(v)); a > p {
			p = a
		}
	}
	return p
}

// RMS returns the root mean square of x.
func RMS(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(x)))
}

// LinToDB converts a linear magnitude to dB with a -240 dB floor.
func LinToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return dspcore.LinearToDB(x)
}

// FloatToPCM16 converts [-1,1] floats to signed 16-bit samples, clipping
// anything outside the range.
func FloatToPCM16(dst []int16, src []float32) []int16 {
	if cap(dst) < len(src) {
		dst = make([]int16, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		switch {
		case s >= 1:
			dst[i] = math.MaxInt16
		case s <= -1:
			dst[i] = -math.MaxInt16
		default:
			dst[i] = int16(s * math.MaxInt16)
		}
	}
	return dst
}
