package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-additive/analysis"
	"github.com/cwbudde/algo-additive/dsp"
	"github.com/cwbudde/algo-additive/internal/wavio"
	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/preset"
)

func main() {
	input := flag.String("input", "", "WAV to analyse (renders -note when empty)")
	refPath := flag.String("reference", "", "Reference WAV to compare against (optional)")
	presetPath := flag.String("preset", "", "Preset used when rendering (optional)")
	note := flag.Int("note", 12, "Note index rendered when -input is empty")
	hold := flag.Float64("hold", 1.0, "Seconds the rendered note is held")
	sampleRate := flag.Int("sample-rate", 44100, "Render sample rate in Hz")
	fftSize := flag.Int("fft-size", 4096, "FFT size (power of two)")
	flag.Parse()

	var signal []float32
	sr := *sampleRate
	if *input != "" {
		var err error
		signal, sr, err = wavio.ReadMono(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "input: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Input: %s, %d frames @ %d Hz (%.2fs)\n", *input, len(signal), sr, float64(len(signal))/float64(sr))
	} else {
		p := preset.Default()
		if *presetPath != "" {
			var err error
			p, err = preset.LoadJSON(*presetPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "preset: %v\n", err)
				os.Exit(1)
			}
		}
		signal = preset.RenderNote(p, *note, keyboard.NoteFrequency(*note), *hold, *hold+30, sr)
		fmt.Printf("Rendered note %d (%.2f Hz): %d frames @ %d Hz (%.2fs)\n",
			*note, keyboard.NoteFrequency(*note), len(signal), sr, float64(len(signal))/float64(sr))
	}

	var ref []float32
	if *refPath != "" {
		raw, refRate, err := wavio.ReadMono(*refPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reference: %v\n", err)
			os.Exit(1)
		}
		ref, err = wavio.Resample(raw, refRate, sr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reference: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Reference: %s, %d frames @ %d Hz\n", *refPath, len(raw), refRate)
	}

	a, err := analysis.NewAnalyzer(*fftSize, sr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyzer: %v\n", err)
		os.Exit(1)
	}

	peak := dsp.Peak(signal)
	fmt.Printf("Peak %.4f (%.1f dBFS), RMS %.1f dBFS\n", peak, dsp.LinToDB(peak), dsp.LinToDB(dsp.RMS(signal)))
	whole := a.Average(signal, *fftSize/2)
	fmt.Printf("Dominant frequency: %.2f Hz\n\n", whole.PeakFrequency())

	for _, r := range report(a, signal, ref, sr, defaultWindows) {
		fmt.Printf("--- %s (%d frames) ---\n", r.Window.Name, r.Frames)
		for _, b := range r.Bands {
			if ref == nil {
				fmt.Printf("  %-10s %6.1f dB\n", b.Name, b.LevelDB)
				continue
			}
			marker := ""
			if d := b.DiffDB; d > 10 || d < -10 {
				marker = " <<<"
			}
			fmt.Printf("  %-10s %6.1f dB  ref=%6.1f dB  diff=%+5.1f dB%s\n", b.Name, b.LevelDB, b.RefDB, b.DiffDB, marker)
		}
		fmt.Println()
	}
}
