package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-additive/dsp"
	"github.com/cwbudde/algo-additive/internal/wavio"
	"github.com/cwbudde/algo-additive/preset"
	"github.com/cwbudde/algo-additive/synth"
)

func main() {
	notesFlag := flag.String("notes", "12", "Comma-separated note indices (0 = 110 Hz, 12 per octave)")
	freq := flag.Float64("freq", 0, "Play a single tone at this frequency instead of -notes")
	hold := flag.Float64("hold", 1.0, "Seconds each note is held before release")
	step := flag.Float64("step", 0, "Seconds between note starts (0 plays a chord)")
	maxDuration := flag.Float64("max-duration", 20.0, "Upper bound on the rendered length in seconds")
	sampleRate := flag.Int("sample-rate", 44100, "Render sample rate in Hz")
	channels := flag.Int("channels", 1, "Output channels (the voice is duplicated)")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	p := preset.Default()
	if *presetPath != "" {
		var err error
		p, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}

	var notes []noteSpec
	if *freq > 0 {
		notes = []noteSpec{{Note: -1, Frequency: float32(*freq)}}
	} else {
		parsed, err := parseNotes(*notesFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		notes = parsed
	}

	if *channels < 1 || *channels > 2 {
		fmt.Fprintf(os.Stderr, "Error: channels must be 1 or 2\n")
		os.Exit(1)
	}

	events := schedule(p, notes, *hold, *step, *sampleRate)
	fmt.Printf("Rendering %d note(s) at %d Hz (preset: %s)...\n", len(notes), *sampleRate, presetName(*presetPath))

	e := synth.NewEngine(*sampleRate, synth.DefaultPolyphony, synth.DefaultQueueCapacity)
	e.Queue().Push(synth.SetOutputGain(p.Volume))
	mono := render(e, events, int(*maxDuration*float64(*sampleRate)))

	frames := len(mono)
	out := mono
	if *channels > 1 {
		out = make([]float32, frames**channels)
		for i, s := range mono {
			for c := 0; c < *channels; c++ {
				out[i**channels+c] = s
			}
		}
	}

	if err := wavio.WriteInterleaved(*output, out, *sampleRate, *channels); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}

	peak := dsp.Peak(mono)
	fmt.Printf("Successfully wrote %s (%d frames, %.3fs, peak %.1f dBFS)\n",
		*output, frames, float64(frames)/float64(*sampleRate), dsp.LinToDB(peak))
}

func presetName(path string) string {
	if path == "" {
		return "default"
	}
	return path
}

// noteSpec is one note to play. Note is -1 for a raw frequency.
type noteSpec struct {
	Note      int
	Frequency float32
}
