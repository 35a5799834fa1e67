package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/preset"
	"github.com/cwbudde/algo-additive/synth"
)

const blockSize = 128

// event is a command due at an absolute sample frame.
type event struct {
	Frame int
	Cmd   synth.Command
}

func parseNotes(s string) ([]noteSpec, error) {
	var out []noteSpec
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid note %q", field)
		}
		if n < 0 || n > preset.MaxNote {
			return nil, fmt.Errorf("note %d out of range [0,%d]", n, preset.MaxNote)
		}
		out = append(out, noteSpec{Note: n, Frequency: keyboard.NoteFrequency(n)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return out, nil
}

// schedule turns notes into PlayHold/Release pairs. Repeated notes get
// distinct ids the way repeated key presses do.
func schedule(p *preset.Preset, notes []noteSpec, hold, step float64, sampleRate int) []event {
	presses := make(map[int]uint32)
	events := make([]event, 0, 2*len(notes))
	for i, n := range notes {
		start := int(float64(i) * step * float64(sampleRate))
		end := start + int(hold*float64(sampleRate))

		id := keyboard.VoiceID(keyboard.NoteKey(n.Note), presses[n.Note])
		presses[n.Note]++

		events = append(events,
			event{Frame: start, Cmd: synth.PlayHold(id, p.Descriptor(n.Note, n.Frequency))},
			event{Frame: end, Cmd: synth.Release(id)},
		)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Frame < events[j].Frame })
	return events
}

// render plays events through e and stops once every voice has finished its
// release, or at maxFrames.
func render(e *synth.Engine, events []event, maxFrames int) []float32 {
	out := make([]float32, 0, maxFrames)
	block := make([]float32, blockSize)
	frame := 0
	next := 0
	for frame < maxFrames {
		for next < len(events) && events[next].Frame <= frame {
			e.Queue().Push(events[next].Cmd)
			next++
		}

		n := blockSize
		if next < len(events) && events[next].Frame-frame < n {
			n = events[next].Frame - frame
		}
		if frame+n > maxFrames {
			n = maxFrames - frame
		}

		e.Render(block[:n])
		out = append(out, block[:n]...)
		frame += n

		if next == len(events) && e.Mixer().VoiceCount() == 0 {
			break
		}
	}
	return out
}
