package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-additive/keyboard"
)

// defaultFitKnobs shape the timbre and envelope. Gain knobs are left out
// because Compare normalizes level.
const defaultFitKnobs = "harmonics,rolloff_exponent,attack,decay,sustain_level,release,detune_cents,unison_voices"

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

var intKnobs = map[string]bool{
	keyboard.KnobHarmonics: true,
	keyboard.KnobUnison:    true,
}

// parseFitKnobs resolves a comma-separated knob list against the panel
// ranges.
func parseFitKnobs(raw string, panel *keyboard.Knobs) ([]knobDef, error) {
	byName := make(map[string]keyboard.Knob)
	for _, k := range panel.List() {
		byName[k.Name] = k
	}
	var defs []knobDef
	seen := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		k, ok := byName[s]
		if !ok {
			return nil, fmt.Errorf("unknown knob %q", s)
		}
		seen[s] = true
		defs = append(defs, knobDef{Name: s, Min: k.Min, Max: k.Max, IsInt: intKnobs[s]})
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no knobs to fit")
	}
	return defs, nil
}

// initCandidate reads the starting point from the panel.
func initCandidate(panel *keyboard.Knobs, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i, d := range defs {
		v, _ := panel.Get(d.Name)
		vals[i] = d.clamp(v)
	}
	return candidate{Vals: vals}
}

func (d knobDef) clamp(v float64) float64 {
	v = math.Max(d.Min, math.Min(d.Max, v))
	if d.IsInt {
		v = math.Round(v)
	}
	return v
}

// decode maps an optimizer position in [0,1]^n onto knob values.
func decode(defs []knobDef, pos []float64) candidate {
	vals := make([]float64, len(defs))
	for i, d := range defs {
		vals[i] = d.clamp(d.Min + pos[i]*(d.Max-d.Min))
	}
	return candidate{Vals: vals}
}

func encode(defs []knobDef, c candidate) []float64 {
	pos := make([]float64, len(defs))
	for i, d := range defs {
		if span := d.Max - d.Min; span > 0 {
			pos[i] = (c.Vals[i] - d.Min) / span
		}
	}
	return pos
}

// applyCandidate returns a copy of base with the candidate values set.
func applyCandidate(base *keyboard.Knobs, defs []knobDef, c candidate) *keyboard.Knobs {
	out := keyboard.NewKnobs()
	for _, k := range base.List() {
		out.Set(k.Name, k.Value)
	}
	for i, d := range defs {
		out.Set(d.Name, c.Vals[i])
	}
	return out
}

func candidateKnobs(defs []knobDef, c candidate) map[string]float64 {
	out := make(map[string]float64, len(defs))
	for i, d := range defs {
		out[d.Name] = c.Vals[i]
	}
	return out
}
