package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-additive/internal/wavio"
	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/preset"
)

func main() {
	referencePath := flag.String("reference", "", "Reference WAV of a single held note")
	presetPath := flag.String("preset", "", "Starting preset JSON (optional)")
	outputPreset := flag.String("output-preset", "out/fitted.json", "Path to write the fitted preset")
	reportPath := flag.String("report", "", "Report JSON path (default: <output-preset>.report.json)")
	knobsFlag := flag.String("knobs", defaultFitKnobs, "Comma-separated panel knobs to fit")
	note := flag.Int("note", 12, "Note index of the reference (0 = 110 Hz)")
	hold := flag.Float64("hold", 1.0, "Seconds the reference note is held before release")
	sampleRate := flag.Int("sample-rate", 22050, "Analysis sample rate (reference is resampled)")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 60, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in the report")
	workers := flag.String("workers", "1", "Parallel workers running independent Mayfly rounds (number or 'auto')")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	if *referencePath == "" {
		die("-reference is required")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *note < 0 || *note > preset.MaxNote {
		die("note must be in [0,%d]", preset.MaxNote)
	}
	*reportEvery = max(*reportEvery, 1)
	*mayflyPop = max(*mayflyPop, 2)
	*mayflyRoundEvals = max(*mayflyRoundEvals, *mayflyPop*2)
	*topK = max(*topK, 1)
	parsedWorkers, err := parseWorkersFlag(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}
	if parsedWorkers == 0 {
		parsedWorkers = runtime.NumCPU()
	}
	if *reportPath == "" {
		*reportPath = strings.TrimSuffix(*outputPreset, ".json") + ".report.json"
	}

	raw, refRate, err := wavio.ReadMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err := wavio.Resample(raw, refRate, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}

	base := keyboard.NewKnobs()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
		base.Apply(p)
	}
	defs, err := parseFitKnobs(*knobsFlag, base)
	if err != nil {
		die("invalid -knobs: %v", err)
	}

	variant := strings.ToLower(*mayflyVariant)
	cfg := &fitConfig{
		reference:   ref,
		sampleRate:  *sampleRate,
		note:        *note,
		hold:        *hold,
		base:        base,
		defs:        defs,
		start:       initCandidate(base, defs),
		variant:     variant,
		pop:         *mayflyPop,
		roundEvals:  *mayflyRoundEvals,
		maxEvals:    *maxEvals,
		timeBudget:  time.Duration(*timeBudget * float64(time.Second)),
		workers:     parsedWorkers,
		seed:        *seed,
		topK:        *topK,
		reportEvery: *reportEvery,
	}
	fmt.Printf("Fitting %d knobs to %s (note %d, %d Hz, %d worker(s))\n", len(defs), *referencePath, *note, *sampleRate, parsedWorkers)

	res, err := runFit(cfg)
	if err != nil {
		die("fit failed: %v", err)
	}

	report := runReport{
		ReferencePath: *referencePath,
		PresetPath:    *presetPath,
		SampleRate:    *sampleRate,
		Note:          *note,
		HoldSec:       *hold,
		MayflyVariant: variant,
	}
	if err := writeOutputs(*outputPreset, *reportPath, base, defs, res, report); err != nil {
		die("failed to write outputs: %v", err)
	}
	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n",
		res.evals, res.elapsed.Seconds(), res.bestMetrics.Score, res.bestMetrics.Similarity*100, variant)
	fmt.Printf("Wrote %s and %s\n", *outputPreset, *reportPath)
}

func parseWorkersFlag(raw string) (int, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("expected a number or 'auto', got %q", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("workers must be >= 1")
	}
	return n, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
