package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cwbudde/algo-additive/analysis"
	"github.com/cwbudde/algo-additive/audioout"
	"github.com/cwbudde/algo-additive/dsp"
	"github.com/cwbudde/algo-additive/internal/config"
	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/preset"
	"github.com/cwbudde/algo-additive/synth"
)

const refreshInterval = 50 * time.Millisecond

func main() {
	cfg := config.Load()
	sampleRate := flag.Int("sample-rate", cfg.SampleRate, "Output sample rate in Hz")
	bufferFrames := flag.Int("buffer-frames", cfg.BufferFrames, "Device buffer size in frames")
	presetPath := flag.String("preset", cfg.Preset, "Preset JSON loaded at start and written by ctrl-s")
	flag.Parse()
	cfg.SampleRate = *sampleRate
	cfg.BufferFrames = *bufferFrames
	cfg.Preset = *presetPath
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	knobs := keyboard.NewKnobs()
	knobs.Set(keyboard.KnobVolume, cfg.OutputGain)
	if cfg.Preset != "" {
		if _, err := os.Stat(cfg.Preset); err == nil {
			p, err := preset.LoadJSON(cfg.Preset)
			if err != nil {
				log.Fatalf("preset: %v", err)
			}
			knobs.Apply(p)
		}
	}

	engine := synth.NewEngine(cfg.SampleRate, cfg.Polyphony, cfg.QueueCapacity)
	player, err := audioout.NewPlayer(cfg.SampleRate, 1, cfg.BufferFrames)
	if err != nil {
		log.Fatalf("audio: %v", err)
	}
	defer player.Close()
	player.Attach(engine)
	player.Start()

	ctrl := keyboard.NewController(engine.Queue(), knobs, cfg.SampleRate)
	ctrl.SetVolume(float64(knobs.Volume()))

	analyzer, err := analysis.NewAnalyzer(cfg.ScopeSize, cfg.SampleRate)
	if err != nil {
		log.Fatalf("analyzer: %v", err)
	}
	scope := analysis.NewScope(cfg.ScopeSize)

	tty := newTerminal()
	if err := tty.Start(); err != nil {
		log.Fatalf("terminal: %v", err)
	}
	defer tty.Stop()

	s := &session{ctrl: ctrl, presetPath: cfg.Preset, start: time.Now()}
	fmt.Print(help)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case chunk := <-tty.C:
			for _, a := range parseInput(chunk) {
				if !s.handle(a) {
					fmt.Print("\r\n\r\n")
					return
				}
			}
		case now := <-ticker.C:
			// The mirror mixer follows the audio thread in wall-clock time.
			n := int(now.Sub(last).Seconds() * float64(cfg.SampleRate))
			last = now
			scope.Follow(ctrl.Mirror(), n)
			peak, _ := scope.Levels()
			spec := analyzer.Analyze(scope.Snapshot())
			status := statusLine(s.knob(), ctrl.Held(), ctrl.Mirror().VoiceCount(), dsp.LinToDB(peak), ctrl.Dropped()+engine.Queue().Dropped())
			if s.message != "" {
				status = s.message
				s.message = ""
			}
			fmt.Print(frame(spec, tty.Width(80), status))
		}
	}
}

// session is the interactive state driven from the main loop.
type session struct {
	ctrl       *keyboard.Controller
	presetPath string
	selected   int
	start      time.Time
	message    string
}

func (s *session) knob() keyboard.Knob {
	list := s.ctrl.Knobs().List()
	return list[s.selected]
}

// handle applies one action. It returns false when the user quits.
func (s *session) handle(a action) bool {
	at := time.Since(s.start)
	knobs := s.ctrl.Knobs()
	count := len(knobs.List())
	switch a.Kind {
	case actQuit:
		s.ctrl.ReleaseAll(at)
		return false
	case actNote:
		s.ctrl.Toggle(a.Key, at)
	case actReleaseAll:
		s.ctrl.ReleaseAll(at)
	case actKnobPrev:
		s.selected = (s.selected + count - 1) % count
	case actKnobNext:
		s.selected = (s.selected + 1) % count
	case actNudgeDown, actNudgeUp:
		steps := 1
		if a.Kind == actNudgeDown {
			steps = -1
		}
		name := s.knob().Name
		v, _ := knobs.Nudge(name, steps)
		if name == keyboard.KnobVolume {
			s.ctrl.SetVolume(v)
		} else {
			s.ctrl.Retune()
		}
	case actResetKnobs:
		knobs.Reset()
		s.ctrl.SetVolume(float64(knobs.Volume()))
		s.ctrl.Retune()
	case actSave:
		if s.presetPath == "" {
			s.message = "no preset path set (-preset)"
			break
		}
		if err := preset.SaveJSON(s.presetPath, knobs.Preset()); err != nil {
			s.message = "save failed: " + err.Error()
		} else {
			s.message = "saved " + s.presetPath
		}
	}
	return true
}
