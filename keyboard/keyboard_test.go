package keyboard

import (
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-additive/preset"
	"github.com/cwbudde/algo-additive/synth"
)

type recordingSink struct {
	cmds []synth.Command
	cap  int
}

func (s *recordingSink) Push(cmd synth.Command) bool {
	if s.cap > 0 && len(s.cmds) >= s.cap {
		return false
	}
	s.cmds = append(s.cmds, cmd)
	return true
}

func TestKeyRowsOverlap(t *testing.T) {
	tests := []struct {
		key  Key
		want int
	}{
		{"z", 0}, {".", 8},
		{KeyCapsLock, 6}, {"a", 7}, {"'", 17},
		{KeyTab, 13}, {"q", 14}, {"]", 25},
		{KeyEscape, 20}, {"1", 21}, {"7", 27},
	}
	for _, tc := range tests {
		got, ok := NoteForKey(tc.key)
		if !ok || got != tc.want {
			t.Fatalf("key %q: got=%d ok=%v want=%d", tc.key, got, ok, tc.want)
		}
	}
	if _, ok := NoteForKey("8"); ok {
		t.Fatalf("key 8 must be unmapped")
	}
	for _, k := range Keys() {
		n, _ := NoteForKey(k)
		if n < 0 || n >= NoteCount {
			t.Fatalf("key %q maps outside the note range: %d", k, n)
		}
	}
}

func TestKeyFromRune(t *testing.T) {
	if k, ok := KeyFromRune('Q'); !ok || k != "q" {
		t.Fatalf("upper case: got=%q ok=%v", k, ok)
	}
	if k, ok := KeyFromRune('\t'); !ok || k != KeyTab {
		t.Fatalf("tab: got=%q ok=%v", k, ok)
	}
	if k, ok := KeyFromRune(0x1b); !ok || k != KeyEscape {
		t.Fatalf("escape: got=%q ok=%v", k, ok)
	}
	if _, ok := KeyFromRune('9'); ok {
		t.Fatalf("9 must be unmapped")
	}
}

func TestNoteFrequency(t *testing.T) {
	if f := NoteFrequency(0); f != 110 {
		t.Fatalf("note 0: got=%f", f)
	}
	if f := NoteFrequency(12); math.Abs(float64(f)-220) > 1e-3 {
		t.Fatalf("note 12: got=%f", f)
	}
	if f := NoteFrequency(27); math.Abs(float64(f)-110*math.Pow(2, 27.0/12)) > 1e-2 {
		t.Fatalf("note 27: got=%f", f)
	}
}

func TestVoiceIDDistinctPerStrike(t *testing.T) {
	seen := make(map[uint64]Key)
	keys := Keys()
	for note := 0; note <= 127; note++ {
		keys = append(keys, NoteKey(note))
	}
	for _, k := range keys {
		for presses := uint32(0); presses < 16; presses++ {
			id := VoiceID(k, presses)
			if prev, dup := seen[id]; dup {
				t.Fatalf("id collision between %q and %q at press %d", prev, k, presses)
			}
			seen[id] = k
		}
	}
	if VoiceID("a", 3) != VoiceID("a", 3) {
		t.Fatalf("VoiceID must be deterministic")
	}
}

func TestControllerSameNoteOnTwoKeys(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(sink, nil, 44100)
	// m and capslock both play note 6.
	if !c.KeyDown("m", time.Second) || !c.KeyDown(KeyCapsLock, 2*time.Second) {
		t.Fatalf("KeyDown rejected")
	}
	idM, idCaps := sink.cmds[0].ID, sink.cmds[1].ID
	if idM == idCaps {
		t.Fatalf("keys sharing note 6 got the same id %d", idM)
	}
	if n := c.Mirror().VoiceCount(); n != 2 {
		t.Fatalf("mirror voices: got=%d want=2", n)
	}
	if held := c.Held(); len(held) != 2 {
		t.Fatalf("held notes: %+v", held)
	}

	c.KeyUp("m", 3*time.Second)
	if v, ok := c.Mirror().Voice(idCaps); !ok || v.Released() {
		t.Fatalf("releasing m must leave capslock sounding")
	}
	if v, _ := c.Mirror().Voice(idM); v == nil || !v.Released() {
		t.Fatalf("m voice not released")
	}

	c.KeyUp(KeyCapsLock, 4*time.Second)
	hist := c.History(0)
	if len(hist) != 2 || hist[0].Note != 6 || hist[1].Note != 6 || hist[1].Start != 2*time.Second {
		t.Fatalf("history: %+v", hist)
	}
}

func TestKnobsClampAndBuildDescriptor(t *testing.T) {
	k := NewKnobs()
	d := k.Descriptor(220)
	def := synth.NewDefaultDescriptor(220)
	if d != def {
		t.Fatalf("default knobs differ from default descriptor:\n got=%+v\nwant=%+v", d, def)
	}

	if v, _ := k.Set(KnobSustain, 3); v != 1 {
		t.Fatalf("sustain not clamped: %f", v)
	}
	if v, _ := k.Set(KnobHarmonics, 4.6); v != 4.6 {
		t.Fatalf("harmonics stored: %f", v)
	}
	if got := k.Descriptor(220).Harmonics; got != 5 {
		t.Fatalf("harmonics rounded: got=%d want=5", got)
	}
	if _, err := k.Set("nope", 1); err == nil {
		t.Fatalf("expected error for unknown knob")
	}
	if v, _ := k.Nudge(KnobUnison, -10); v != 1 {
		t.Fatalf("nudge below minimum: %f", v)
	}
	if err := k.Descriptor(220).Validate(); err != nil {
		t.Fatalf("knob descriptor invalid: %v", err)
	}

	k.Reset()
	if v, _ := k.Get(KnobSustain); v != float64(def.SustainLevel) {
		t.Fatalf("reset sustain: %f", v)
	}
}

func TestKnobsPresetRoundTrip(t *testing.T) {
	p := preset.Default()
	p.Sound.Harmonics = 12
	p.Sound.Attack = 0.5
	p.Sound.CompressDownRatio = 20
	p.Volume = 0.25

	k := NewKnobs()
	k.Apply(p)
	got := k.Preset()
	if got.Sound.Harmonics != 12 || got.Sound.Attack != 0.5 || got.Volume != 0.25 {
		t.Fatalf("preset not applied: %+v vol=%f", got.Sound, got.Volume)
	}
	if got.Sound.CompressDownRatio != 8 {
		t.Fatalf("out-of-range ratio must clamp to 8, got %f", got.Sound.CompressDownRatio)
	}
}

func TestControllerPressRelease(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(sink, nil, 44100)

	if !c.KeyDown("a", time.Second) {
		t.Fatalf("KeyDown a rejected")
	}
	if c.KeyDown("a", time.Second) {
		t.Fatalf("repeat KeyDown must be ignored")
	}
	if c.KeyDown("9", time.Second) {
		t.Fatalf("unmapped key accepted")
	}
	if len(sink.cmds) != 1 || sink.cmds[0].Kind != synth.CmdPlayHold {
		t.Fatalf("expected one PlayHold, got %v", sink.cmds)
	}
	first := sink.cmds[0]
	if first.ID != VoiceID("a", 0) || first.Descriptor.Fundamental != NoteFrequency(7) {
		t.Fatalf("PlayHold mismatch: %v", first)
	}
	if held := c.Held(); len(held) != 1 || held[0].Note != 7 {
		t.Fatalf("held notes: %+v", held)
	}
	if c.Mirror().VoiceCount() != 1 {
		t.Fatalf("mirror mixer did not start the voice")
	}

	if !c.KeyUp("a", 2*time.Second) {
		t.Fatalf("KeyUp a rejected")
	}
	if c.KeyUp("a", 2*time.Second) {
		t.Fatalf("second KeyUp must be ignored")
	}
	if rel := sink.cmds[1]; rel.Kind != synth.CmdRelease || rel.ID != first.ID {
		t.Fatalf("release mismatch: %v", rel)
	}
	if v, _ := c.Mirror().Voice(first.ID); v == nil || !v.Released() {
		t.Fatalf("mirror voice not released")
	}
	hist := c.History(0)
	if len(hist) != 1 || hist[0].Note != 7 || hist[0].Start != time.Second || hist[0].End != 2*time.Second {
		t.Fatalf("history: %+v", hist)
	}
	if len(c.History(3*time.Second)) != 0 {
		t.Fatalf("history filter ignored since")
	}

	c.KeyDown("a", 3*time.Second)
	if again := sink.cmds[2]; again.ID == first.ID || again.ID != VoiceID("a", 1) {
		t.Fatalf("second strike must get a fresh id: %v", again)
	}
}

func TestControllerToggleAndReleaseAll(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(sink, nil, 44100)
	c.Toggle("z", 0)
	c.Toggle("x", 0)
	c.Toggle("z", time.Second)
	if held := c.Held(); len(held) != 1 || held[0].Key != "x" {
		t.Fatalf("held after toggles: %+v", held)
	}
	if n := c.ReleaseAll(2 * time.Second); n != 1 {
		t.Fatalf("ReleaseAll released %d", n)
	}
	if len(c.Held()) != 0 {
		t.Fatalf("notes still held")
	}
	if len(c.History(0)) != 2 {
		t.Fatalf("history length: %d", len(c.History(0)))
	}
}

func TestControllerRetuneAndVolume(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(sink, nil, 44100)
	c.KeyDown("q", 0)
	c.Knobs().Set(KnobHarmonics, 9)
	if n := c.Retune(); n != 1 {
		t.Fatalf("retuned %d notes", n)
	}
	last := sink.cmds[len(sink.cmds)-1]
	if last.Kind != synth.CmdPlayHold || last.ID != sink.cmds[0].ID || last.Descriptor.Harmonics != 9 {
		t.Fatalf("retune command: %v harmonics=%d", last, last.Descriptor.Harmonics)
	}
	if c.Mirror().VoiceCount() != 1 {
		t.Fatalf("retune must not add voices")
	}

	if g := c.SetVolume(5); g != 2 {
		t.Fatalf("volume clamp: got=%f", g)
	}
	last = sink.cmds[len(sink.cmds)-1]
	if last.Kind != synth.CmdSetOutputGain || last.Gain != 2 {
		t.Fatalf("volume command: %v", last)
	}
	if c.Mirror().OutputGain() != 2 {
		t.Fatalf("mirror gain: %f", c.Mirror().OutputGain())
	}
}

func TestControllerCountsRefusedCommands(t *testing.T) {
	sink := &recordingSink{cap: 2}
	c := NewController(sink, nil, 44100)
	for _, k := range []Key{"z", "x", "c", "v"} {
		c.KeyDown(k, 0)
	}
	if c.Dropped() != 2 {
		t.Fatalf("dropped: got=%d want=2", c.Dropped())
	}
	if c.Mirror().VoiceCount() != 4 {
		t.Fatalf("mirror must see every command, voices=%d", c.Mirror().VoiceCount())
	}
}

func TestControllerHistoryIsBounded(t *testing.T) {
	c := NewController(&recordingSink{}, nil, 44100)
	for i := 0; i < DefaultHistoryLimit+10; i++ {
		at := time.Duration(i) * time.Millisecond
		c.KeyDown("m", at)
		c.KeyUp("m", at+time.Microsecond)
	}
	hist := c.History(0)
	if len(hist) != DefaultHistoryLimit {
		t.Fatalf("history length: got=%d want=%d", len(hist), DefaultHistoryLimit)
	}
	if hist[0].Start != 10*time.Millisecond {
		t.Fatalf("oldest entries not evicted: %v", hist[0].Start)
	}
}
