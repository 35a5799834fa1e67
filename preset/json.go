package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cwbudde/algo-additive/synth"
)

// MaxNote is the highest note index a per-note override may target.
const MaxNote = 127

// Preset is a sound template plus master volume and per-note tweaks.
type Preset struct {
	// Sound is applied to every note; its Fundamental is replaced per note.
	Sound   synth.SoundDescriptor
	Volume  float32
	PerNote map[int]*NoteParams
}

// NoteParams overrides part of the template for one note.
type NoteParams struct {
	Fundamental float32
	PreGainDB   *float32
	DetuneCents *float32
}

// File is the JSON schema for sound presets.
type File struct {
	Harmonics               *int                   `json:"harmonics"`
	RolloffExponent         *float32               `json:"rolloff_exponent"`
	Attack                  *float32               `json:"attack"`
	Decay                   *float32               `json:"decay"`
	SustainLevel            *float32               `json:"sustain_level"`
	Release                 *float32               `json:"release"`
	DetuneCents             *float32               `json:"detune_cents"`
	UnisonVoices            *int                   `json:"unison_voices"`
	PreGainDB               *float32               `json:"pre_gain_db"`
	CompressUpThresholdDB   *float32               `json:"compress_up_threshold_db"`
	CompressUpRatio         *float32               `json:"compress_up_ratio"`
	CompressDownThresholdDB *float32               `json:"compress_down_threshold_db"`
	CompressDownRatio       *float32               `json:"compress_down_ratio"`
	OutputGainDB            *float32               `json:"output_gain_db"`
	HardClipDB              *float32               `json:"hard_clip_db"`
	Volume                  *float32               `json:"volume"`
	PerNote                 map[string]NoteSetting `json:"per_note"`
}

// NoteSetting is a partial note override entry in a preset file.
type NoteSetting struct {
	Fundamental *float32 `json:"fundamental"`
	PreGainDB   *float32 `json:"pre_gain_db"`
	DetuneCents *float32 `json:"detune_cents"`
}

// Default returns the front panel defaults at unity volume.
func Default() *Preset {
	return &Preset{
		Sound:  synth.NewDefaultDescriptor(0),
		Volume: 1,
	}
}

// Descriptor builds the PlayHold descriptor for note at frequency f.
func (p *Preset) Descriptor(note int, f float32) synth.SoundDescriptor {
	d := p.Sound
	d.Fundamental = f
	if p.Sound.HardClipDB != nil {
		clip := *p.Sound.HardClipDB
		d.HardClipDB = &clip
	}
	np := p.PerNote[note]
	if np == nil {
		return d
	}
	if np.Fundamental > 0 {
		d.Fundamental = np.Fundamental
	}
	if np.PreGainDB != nil {
		d.PreGainDB = *np.PreGainDB
	}
	if np.DetuneCents != nil {
		d.DetuneCents = *np.DetuneCents
	}
	return d
}

// LoadJSON loads a preset JSON file and applies it on top of the defaults.
func LoadJSON(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p := Default()
	if err := ApplyFile(p, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// SaveJSON writes p as a complete preset file.
func SaveJSON(path string, p *Preset) error {
	if p == nil {
		return fmt.Errorf("nil preset")
	}
	b, err := json.MarshalIndent(ToFile(p), "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ToFile expands p into a file with every field set.
func ToFile(p *Preset) *File {
	s := p.Sound
	f := &File{
		Harmonics:               &s.Harmonics,
		RolloffExponent:         &s.RolloffExponent,
		Attack:                  &s.Attack,
		Decay:                   &s.Decay,
		SustainLevel:            &s.SustainLevel,
		Release:                 &s.Release,
		DetuneCents:             &s.DetuneCents,
		UnisonVoices:            &s.UnisonVoices,
		PreGainDB:               &s.PreGainDB,
		CompressUpThresholdDB:   &s.CompressUpThresholdDB,
		CompressUpRatio:         &s.CompressUpRatio,
		CompressDownThresholdDB: &s.CompressDownThresholdDB,
		CompressDownRatio:       &s.CompressDownRatio,
		OutputGainDB:            &s.OutputGainDB,
		HardClipDB:              s.HardClipDB,
	}
	vol := p.Volume
	f.Volume = &vol
	if len(p.PerNote) > 0 {
		f.PerNote = make(map[string]NoteSetting, len(p.PerNote))
		for note, np := range p.PerNote {
			if np == nil {
				continue
			}
			ns := NoteSetting{PreGainDB: np.PreGainDB, DetuneCents: np.DetuneCents}
			if np.Fundamental > 0 {
				fund := np.Fundamental
				ns.Fundamental = &fund
			}
			f.PerNote[strconv.Itoa(note)] = ns
		}
	}
	return f
}

// ApplyFile applies a parsed preset file onto an existing preset.
func ApplyFile(dst *Preset, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}
	s := &dst.Sound

	if f.Harmonics != nil {
		if *f.Harmonics < 1 {
			return fmt.Errorf("harmonics must be >= 1")
		}
		s.Harmonics = *f.Harmonics
	}
	if f.UnisonVoices != nil {
		if *f.UnisonVoices < 1 {
			return fmt.Errorf("unison_voices must be >= 1")
		}
		s.UnisonVoices = *f.UnisonVoices
	}
	if f.RolloffExponent != nil {
		s.RolloffExponent = *f.RolloffExponent
	}
	if f.Attack != nil {
		if *f.Attack < 0 {
			return fmt.Errorf("attack must be >= 0")
		}
		s.Attack = *f.Attack
	}
	if f.Decay != nil {
		if *f.Decay < 0 {
			return fmt.Errorf("decay must be >= 0")
		}
		s.Decay = *f.Decay
	}
	if f.SustainLevel != nil {
		if *f.SustainLevel < 0 || *f.SustainLevel > 1 {
			return fmt.Errorf("sustain_level must be in [0,1]")
		}
		s.SustainLevel = *f.SustainLevel
	}
	if f.Release != nil {
		if *f.Release < 0 {
			return fmt.Errorf("release must be >= 0")
		}
		s.Release = *f.Release
	}
	if f.DetuneCents != nil {
		s.DetuneCents = *f.DetuneCents
	}
	if f.PreGainDB != nil {
		s.PreGainDB = *f.PreGainDB
	}
	if f.CompressUpThresholdDB != nil {
		s.CompressUpThresholdDB = *f.CompressUpThresholdDB
	}
	if f.CompressUpRatio != nil {
		if *f.CompressUpRatio < 1 {
			return fmt.Errorf("compress_up_ratio must be >= 1")
		}
		s.CompressUpRatio = *f.CompressUpRatio
	}
	if f.CompressDownThresholdDB != nil {
		s.CompressDownThresholdDB = *f.CompressDownThresholdDB
	}
	if f.CompressDownRatio != nil {
		if *f.CompressDownRatio < 1 {
			return fmt.Errorf("compress_down_ratio must be >= 1")
		}
		s.CompressDownRatio = *f.CompressDownRatio
	}
	if f.OutputGainDB != nil {
		s.OutputGainDB = *f.OutputGainDB
	}
	if f.HardClipDB != nil {
		if *f.HardClipDB > 0 {
			return fmt.Errorf("hard_clip_db must be <= 0")
		}
		clip := *f.HardClipDB
		s.HardClipDB = &clip
	}
	if f.Volume != nil {
		if *f.Volume < 0 {
			return fmt.Errorf("volume must be >= 0")
		}
		dst.Volume = *f.Volume
	}

	// Catch non-finite values the range checks above let through.
	probe := *s
	probe.Fundamental = 1
	if err := probe.Validate(); err != nil {
		return err
	}

	if len(f.PerNote) == 0 {
		return nil
	}
	if dst.PerNote == nil {
		dst.PerNote = make(map[int]*NoteParams)
	}

	keys := make([]string, 0, len(f.PerNote))
	for k := range f.PerNote {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		note, err := strconv.Atoi(k)
		if err != nil || note < 0 || note > MaxNote {
			return fmt.Errorf("invalid per_note key %q (expected 0..%d)", k, MaxNote)
		}
		override := f.PerNote[k]
		np, ok := dst.PerNote[note]
		if !ok || np == nil {
			np = &NoteParams{}
			dst.PerNote[note] = np
		}
		if override.Fundamental != nil {
			if *override.Fundamental <= 0 {
				return fmt.Errorf("per_note[%d].fundamental must be > 0", note)
			}
			np.Fundamental = *override.Fundamental
		}
		if override.PreGainDB != nil {
			v := *override.PreGainDB
			np.PreGainDB = &v
		}
		if override.DetuneCents != nil {
			v := *override.DetuneCents
			np.DetuneCents = &v
		}
	}
	return nil
}
