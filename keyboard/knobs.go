package keyboard

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-additive/preset"
	"github.com/cwbudde/algo-additive/synth"
)

// Knob names; they match the preset JSON keys.
const (
	KnobHarmonics     = "harmonics"
	KnobRolloff       = "rolloff_exponent"
	KnobAttack        = "attack"
	KnobDecay         = "decay"
	KnobSustain       = "sustain_level"
	KnobRelease       = "release"
	KnobDetune        = "detune_cents"
	KnobUnison        = "unison_voices"
	KnobPreGain       = "pre_gain_db"
	KnobUpThreshold   = "compress_up_threshold_db"
	KnobUpRatio       = "compress_up_ratio"
	KnobDownThreshold = "compress_down_threshold_db"
	KnobDownRatio     = "compress_down_ratio"
	KnobOutputGain    = "output_gain_db"
	KnobVolume        = "volume"
)

// Knob is one front panel control.
type Knob struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
}

func (k *Knob) set(v float64) float64 {
	if math.IsNaN(v) {
		return k.Value
	}
	k.Value = math.Max(k.Min, math.Min(k.Max, v))
	return k.Value
}

// Knobs holds the current panel state. Integer parameters are rounded when a
// descriptor is built.
type Knobs struct {
	list  []Knob
	index map[string]int
}

// NewKnobs returns the panel at its defaults.
func NewKnobs() *Knobs {
	d := synth.NewDefaultDescriptor(0)
	list := []Knob{
		{Name: KnobHarmonics, Default: float64(d.Harmonics), Min: 1, Max: 30, Step: 1},
		{Name: KnobRolloff, Default: float64(d.RolloffExponent), Min: 0, Max: 5, Step: 0.1},
		{Name: KnobAttack, Default: float64(d.Attack), Min: 0, Max: 3, Step: 0.01},
		{Name: KnobDecay, Default: float64(d.Decay), Min: 0, Max: 3, Step: 0.01},
		{Name: KnobSustain, Default: float64(d.SustainLevel), Min: 0, Max: 1, Step: 0.05},
		{Name: KnobRelease, Default: float64(d.Release), Min: 0, Max: 3, Step: 0.01},
		{Name: KnobDetune, Default: float64(d.DetuneCents), Min: 0, Max: 99, Step: 1},
		{Name: KnobUnison, Default: float64(d.UnisonVoices), Min: 1, Max: 9, Step: 1},
		{Name: KnobPreGain, Default: float64(d.PreGainDB), Min: -30, Max: 10, Step: 1},
		{Name: KnobUpThreshold, Default: float64(d.CompressUpThresholdDB), Min: -100, Max: 10, Step: 1},
		{Name: KnobUpRatio, Default: float64(d.CompressUpRatio), Min: 1, Max: 8, Step: 0.1},
		{Name: KnobDownThreshold, Default: float64(d.CompressDownThresholdDB), Min: -30, Max: 20, Step: 1},
		{Name: KnobDownRatio, Default: float64(d.CompressDownRatio), Min: 1, Max: 8, Step: 0.1},
		{Name: KnobOutputGain, Default: float64(d.OutputGainDB), Min: -30, Max: 10, Step: 1},
		{Name: KnobVolume, Default: 1, Min: 0, Max: 2, Step: 0.05},
	}
	k := &Knobs{list: list, index: make(map[string]int, len(list))}
	for i := range k.list {
		k.list[i].Value = k.list[i].Default
		k.index[k.list[i].Name] = i
	}
	return k
}

// List returns a copy of every knob in panel order.
func (k *Knobs) List() []Knob {
	return append([]Knob(nil), k.list...)
}

// Get returns the value of a knob.
func (k *Knobs) Get(name string) (float64, bool) {
	i, ok := k.index[name]
	if !ok {
		return 0, false
	}
	return k.list[i].Value, true
}

// Set clamps v into the knob range and returns the stored value.
func (k *Knobs) Set(name string, v float64) (float64, error) {
	i, ok := k.index[name]
	if !ok {
		return 0, fmt.Errorf("unknown knob %q", name)
	}
	return k.list[i].set(v), nil
}

// Nudge moves a knob by steps increments of its step size.
func (k *Knobs) Nudge(name string, steps int) (float64, error) {
	i, ok := k.index[name]
	if !ok {
		return 0, fmt.Errorf("unknown knob %q", name)
	}
	kn := &k.list[i]
	return kn.set(kn.Value + float64(steps)*kn.Step), nil
}

// Reset returns every knob to its default.
func (k *Knobs) Reset() {
	for i := range k.list {
		k.list[i].Value = k.list[i].Default
	}
}

func (k *Knobs) f32(name string) float32 {
	return float32(k.list[k.index[name]].Value)
}

func (k *Knobs) intv(name string) int {
	return int(math.Round(k.list[k.index[name]].Value))
}

// Volume is the linear master gain carried by SetOutputGain.
func (k *Knobs) Volume() float32 { return k.f32(KnobVolume) }

// Descriptor snapshots the panel into a descriptor for fundamental f.
func (k *Knobs) Descriptor(f float32) synth.SoundDescriptor {
	return synth.SoundDescriptor{
		Fundamental:             f,
		Harmonics:               k.intv(KnobHarmonics),
		RolloffExponent:         k.f32(KnobRolloff),
		Attack:                  k.f32(KnobAttack),
		Decay:                   k.f32(KnobDecay),
		SustainLevel:            k.f32(KnobSustain),
		Release:                 k.f32(KnobRelease),
		DetuneCents:             k.f32(KnobDetune),
		UnisonVoices:            k.intv(KnobUnison),
		PreGainDB:               k.f32(KnobPreGain),
		CompressUpThresholdDB:   k.f32(KnobUpThreshold),
		CompressUpRatio:         k.f32(KnobUpRatio),
		CompressDownThresholdDB: k.f32(KnobDownThreshold),
		CompressDownRatio:       k.f32(KnobDownRatio),
		OutputGainDB:            k.f32(KnobOutputGain),
	}
}

// Apply loads a preset's template and volume into the panel, clamping each
// value into range.
func (k *Knobs) Apply(p *preset.Preset) {
	if p == nil {
		return
	}
	s := p.Sound
	vals := map[string]float64{
		KnobHarmonics:     float64(s.Harmonics),
		KnobRolloff:       float64(s.RolloffExponent),
		KnobAttack:        float64(s.Attack),
		KnobDecay:         float64(s.Decay),
		KnobSustain:       float64(s.SustainLevel),
		KnobRelease:       float64(s.Release),
		KnobDetune:        float64(s.DetuneCents),
		KnobUnison:        float64(s.UnisonVoices),
		KnobPreGain:       float64(s.PreGainDB),
		KnobUpThreshold:   float64(s.CompressUpThresholdDB),
		KnobUpRatio:       float64(s.CompressUpRatio),
		KnobDownThreshold: float64(s.CompressDownThresholdDB),
		KnobDownRatio:     float64(s.CompressDownRatio),
		KnobOutputGain:    float64(s.OutputGainDB),
		KnobVolume:        float64(p.Volume),
	}
	for name, v := range vals {
		k.list[k.index[name]].set(v)
	}
}

// Preset captures the panel as a preset.
func (k *Knobs) Preset() *preset.Preset {
	return &preset.Preset{
		Sound:  k.Descriptor(0),
		Volume: k.Volume(),
	}
}
