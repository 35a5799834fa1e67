package preset

import (
	"os"
	"path/filepath"
	"testing"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadJSONAppliesGlobalAndPerNote(t *testing.T) {
	path := writePreset(t, `{
  "harmonics": 8,
  "rolloff_exponent": 1.5,
  "attack": 0.02,
  "sustain_level": 0.8,
  "unison_voices": 3,
  "detune_cents": 7,
  "compress_down_threshold_db": -6,
  "compress_down_ratio": 4,
  "hard_clip_db": -1,
  "volume": 0.7,
  "per_note": {
    "12": {
      "fundamental": 221.5,
      "pre_gain_db": -12
    }
  }
}`)

	p, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	s := p.Sound
	if s.Harmonics != 8 || s.RolloffExponent != 1.5 || s.UnisonVoices != 3 || s.DetuneCents != 7 {
		t.Fatalf("oscillator fields mismatch: %+v", s)
	}
	if s.Attack != 0.02 || s.SustainLevel != 0.8 || s.Decay != 0.1 {
		t.Fatalf("envelope fields mismatch: %+v", s)
	}
	if s.CompressDownThresholdDB != -6 || s.CompressDownRatio != 4 {
		t.Fatalf("compressor fields mismatch: %+v", s)
	}
	if s.HardClipDB == nil || *s.HardClipDB != -1 {
		t.Fatalf("hard clip mismatch: %v", s.HardClipDB)
	}
	if p.Volume != 0.7 {
		t.Fatalf("volume mismatch: %f", p.Volume)
	}

	d := p.Descriptor(12, 220)
	if d.Fundamental != 221.5 || d.PreGainDB != -12 || d.DetuneCents != 7 {
		t.Fatalf("per-note override not applied: %+v", d)
	}
	if d.HardClipDB == s.HardClipDB {
		t.Fatalf("descriptor must not share the template clip pointer")
	}
	other := p.Descriptor(3, 130.8)
	if other.Fundamental != 130.8 || other.PreGainDB != s.PreGainDB {
		t.Fatalf("untouched note changed: %+v", other)
	}
}

func TestLoadJSONRejectsInvalidNoteKey(t *testing.T) {
	path := writePreset(t, `{"per_note": {"x": {"pre_gain_db": -3}}}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for invalid note key")
	}
}

func TestLoadJSONRejectsInvalidRanges(t *testing.T) {
	cases := map[string]string{
		"sustain":     `{"sustain_level": 1.2}`,
		"harmonics":   `{"harmonics": 0}`,
		"ratio":       `{"compress_up_ratio": 0.5}`,
		"clip":        `{"hard_clip_db": 3}`,
		"volume":      `{"volume": -1}`,
		"fundamental": `{"per_note": {"5": {"fundamental": 0}}}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadJSON(writePreset(t, content)); err == nil {
				t.Fatalf("expected error for %s", content)
			}
		})
	}
}

func TestSaveJSONRoundTripsThroughLoad(t *testing.T) {
	p := Default()
	p.Sound.Harmonics = 5
	p.Sound.Release = 0.4
	p.Volume = 0.5
	gain := float32(-3)
	p.PerNote = map[int]*NoteParams{7: {Fundamental: 165, PreGainDB: &gain}}

	path := filepath.Join(t.TempDir(), "nested", "saved.json")
	if err := SaveJSON(path, p); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if got.Sound.Harmonics != 5 || got.Sound.Release != 0.4 || got.Volume != 0.5 {
		t.Fatalf("saved preset mismatch: %+v vol=%f", got.Sound, got.Volume)
	}
	np := got.PerNote[7]
	if np == nil || np.Fundamental != 165 || np.PreGainDB == nil || *np.PreGainDB != -3 {
		t.Fatalf("per-note mismatch: %+v", np)
	}
}

func TestRenderNoteStopsAfterRelease(t *testing.T) {
	const sr = 8000
	p := Default()
	p.Sound.Release = 0.1
	out := RenderNote(p, 0, 220, 0.2, 10, sr)
	want := int(0.2*sr) + int(0.1*sr)
	if len(out) < want || len(out) > want+128 {
		t.Fatalf("rendered %d frames, want about %d", len(out), want)
	}

	capped := RenderNote(p, 0, 220, 5, 0.5, sr)
	if len(capped) != sr/2 {
		t.Fatalf("capped render: %d frames, want %d", len(capped), sr/2)
	}
}
