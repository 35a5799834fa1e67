package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/preset"
	"github.com/cwbudde/algo-additive/synth"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		in   string
		want []action
	}{
		{"z", []action{{Kind: actNote, Key: "z"}}},
		{"Q", []action{{Kind: actNote, Key: "q"}}},
		{"\t", []action{{Kind: actNote, Key: keyboard.KeyTab}}},
		{"\x1b", []action{{Kind: actNote, Key: keyboard.KeyEscape}}},
		{"\x1b[A\x1b[C", []action{{Kind: actKnobPrev}, {Kind: actNudgeUp}}},
		{" 9=", []action{{Kind: actReleaseAll}, {Kind: actKnobPrev}, {Kind: actNudgeUp}}},
		{"\x13/", []action{{Kind: actSave}, {Kind: actResetKnobs}}},
		{"a\x03z", []action{{Kind: actNote, Key: "a"}, {Kind: actQuit}}},
		{"8`", nil},
	}
	for _, tt := range tests {
		got := parseInput([]byte(tt.in))
		if len(got) != len(tt.want) {
			t.Fatalf("parseInput(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("parseInput(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func newTestSession(t *testing.T) (*session, *synth.CommandQueue) {
	t.Helper()
	q := synth.NewCommandQueue(64)
	ctrl := keyboard.NewController(q, keyboard.NewKnobs(), 44100)
	return &session{ctrl: ctrl, start: time.Now()}, q
}

func TestSessionTogglesAndReleases(t *testing.T) {
	s, q := newTestSession(t)
	s.handle(action{Kind: actNote, Key: "z"})
	s.handle(action{Kind: actNote, Key: "x"})
	if len(s.ctrl.Held()) != 2 {
		t.Fatalf("held %d notes, want 2", len(s.ctrl.Held()))
	}
	s.handle(action{Kind: actNote, Key: "z"})
	if len(s.ctrl.Held()) != 1 {
		t.Fatalf("toggle did not release")
	}
	s.handle(action{Kind: actReleaseAll})
	if len(s.ctrl.Held()) != 0 {
		t.Fatalf("release all left notes held")
	}
	if q.Len() != 4 {
		t.Fatalf("queued %d commands, want 4", q.Len())
	}
	if s.handle(action{Kind: actQuit}) {
		t.Fatalf("quit did not stop the session")
	}
}

func TestSessionKnobSelectionWraps(t *testing.T) {
	s, _ := newTestSession(t)
	count := len(s.ctrl.Knobs().List())
	s.handle(action{Kind: actKnobPrev})
	if s.selected != count-1 {
		t.Fatalf("selected %d, want %d", s.selected, count-1)
	}
	s.handle(action{Kind: actKnobNext})
	if s.selected != 0 {
		t.Fatalf("selected %d, want 0", s.selected)
	}
}

func TestSessionNudgeRetunesHeldNotes(t *testing.T) {
	s, q := newTestSession(t)
	s.handle(action{Kind: actNote, Key: "z"})
	before, _ := s.ctrl.Knobs().Get(s.knob().Name)
	s.handle(action{Kind: actNudgeUp})
	after, _ := s.ctrl.Knobs().Get(s.knob().Name)
	if after <= before {
		t.Fatalf("%s did not increase: %g -> %g", s.knob().Name, before, after)
	}
	q.Pop()
	cmd, ok := q.Pop()
	if !ok || cmd.Kind != synth.CmdPlayHold || cmd.Descriptor.Harmonics != int(after) {
		t.Fatalf("retune command = %v", cmd)
	}
}

func TestSessionSavesPreset(t *testing.T) {
	s, _ := newTestSession(t)
	s.handle(action{Kind: actSave})
	if !strings.Contains(s.message, "no preset path") {
		t.Fatalf("message = %q", s.message)
	}

	s.presetPath = filepath.Join(t.TempDir(), "p.json")
	s.ctrl.Knobs().Set(keyboard.KnobAttack, 0.5)
	s.handle(action{Kind: actSave})
	p, err := preset.LoadJSON(s.presetPath)
	if err != nil {
		t.Fatalf("LoadJSON: %v (message %q)", err, s.message)
	}
	if p.Sound.Attack != 0.5 {
		t.Fatalf("attack = %g, want 0.5", p.Sound.Attack)
	}
}

func TestSpectrumLine(t *testing.T) {
	got := spectrumLine([]float64{0, 0.5, 1, 2})
	if got != " ▄██" {
		t.Fatalf("spectrumLine = %q", got)
	}
}
