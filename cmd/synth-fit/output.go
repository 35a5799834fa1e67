package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-additive/analysis"
	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/preset"
)

type runReport struct {
	ReferencePath  string             `json:"reference_path"`
	PresetPath     string             `json:"preset_path,omitempty"`
	OutputPreset   string             `json:"output_preset"`
	SampleRate     int                `json:"sample_rate"`
	Note           int                `json:"note"`
	HoldSec        float64            `json:"hold_seconds"`
	DurationSec    float64            `json:"elapsed_seconds"`
	Evaluations    int                `json:"evaluations"`
	MayflyVariant  string             `json:"mayfly_variant"`
	BestScore      float64            `json:"best_score"`
	BestSimilarity float64            `json:"best_similarity"`
	BestMetrics    analysis.Metrics   `json:"best_metrics"`
	BestKnobs      map[string]float64 `json:"best_knobs"`
	TopCandidates  []topCandidate     `json:"top_candidates,omitempty"`
}

// writeOutputs saves the fitted panel as a preset and the run report next
// to it.
func writeOutputs(outputPreset, reportPath string, base *keyboard.Knobs, defs []knobDef, res *fitResult, report runReport) error {
	fitted := applyCandidate(base, defs, res.best)
	if err := preset.SaveJSON(outputPreset, fitted.Preset()); err != nil {
		return err
	}
	report.OutputPreset = outputPreset
	report.DurationSec = res.elapsed.Seconds()
	report.Evaluations = res.evals
	report.BestScore = res.bestMetrics.Score
	report.BestSimilarity = res.bestMetrics.Similarity
	report.BestMetrics = res.bestMetrics
	report.BestKnobs = candidateKnobs(defs, res.best)
	report.TopCandidates = res.top
	return writeJSON(reportPath, report)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
