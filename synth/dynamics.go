package synth

import "math"

// Dynamics is the master bus stage: upward compression below one threshold,
// downward compression above another, make-up gain and a hard clip.
// Thresholds are held as linear amplitudes.
type Dynamics struct {
	UpThreshold   float32
	UpRatio       float32
	DownThreshold float32
	DownRatio     float32
	OutputGain    float32
	Ceiling       float32
}

// NewDynamics converts the dB settings of a descriptor into a bus stage.
func NewDynamics(d SoundDescriptor) Dynamics {
	ceiling := float32(1)
	if clip, ok := d.clipDB(); ok {
		ceiling = minf(DBToLinear(clip), 1)
	}
	d = d.sanitizeScalars()
	return Dynamics{
		UpThreshold:   DBToLinear(d.CompressUpThresholdDB),
		UpRatio:       d.CompressUpRatio,
		DownThreshold: DBToLinear(d.CompressDownThresholdDB),
		DownRatio:     d.CompressDownRatio,
		OutputGain:    DBToLinear(d.OutputGainDB),
		Ceiling:       ceiling,
	}
}

// UnityDynamics passes the signal through untouched apart from the clip.
func UnityDynamics() Dynamics {
	return Dynamics{UpThreshold: 0, UpRatio: 1, DownThreshold: 1, DownRatio: 1, OutputGain: 1, Ceiling: 1}
}

// Compress applies the two compressors. Both curves meet the identity at
// their threshold so the transfer function stays continuous.
func (s Dynamics) Compress(x float32) float32 {
	mag := x
	sign := float32(1)
	if mag < 0 {
		mag = -mag
		sign = -1
	}
	switch {
	case mag > s.DownThreshold && s.DownRatio > 1:
		mag = s.DownThreshold + (mag-s.DownThreshold)/s.DownRatio
	case mag < s.UpThreshold && s.UpRatio > 1 && mag > 0:
		// Output level in dB moves toward the threshold by 1/ratio.
		mag = s.UpThreshold * float32(math.Pow(float64(mag/s.UpThreshold), 1/float64(s.UpRatio)))
	}
	return sign * mag
}

// Clip limits x to the configured ceiling.
func (s Dynamics) Clip(x float32) float32 {
	c := s.Ceiling
	if c <= 0 || c > 1 || !isFinite(c) {
		c = 1
	}
	return clampf(x, -c, c)
}
