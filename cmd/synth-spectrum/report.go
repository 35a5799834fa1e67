package main

import "github.com/cwbudde/algo-additive/analysis"

// timeWindow is a slice of the note's life, in milliseconds.
type timeWindow struct {
	Name    string
	StartMs float64
	EndMs   float64
}

var defaultWindows = []timeWindow{
	{"attack (0-20ms)", 0, 20},
	{"early (20-100ms)", 20, 100},
	{"sustain (100-500ms)", 100, 500},
	{"decay (0.5-2s)", 500, 2000},
	{"late (2-4s)", 2000, 4000},
}

type bandRow struct {
	analysis.BandLevel
	RefDB  float64
	DiffDB float64
}

type windowReport struct {
	Window timeWindow
	Frames int
	Bands  []bandRow
}

// report computes band levels of signal per time window, with differences
// against ref when it is non-nil. Windows past the end are skipped.
func report(a *analysis.Analyzer, signal, ref []float32, sampleRate int, windows []timeWindow) []windowReport {
	hop := a.Size() / 2
	var out []windowReport
	for _, w := range windows {
		start := int(w.StartMs / 1000 * float64(sampleRate))
		end := int(w.EndMs / 1000 * float64(sampleRate))
		seg := clip(signal, start, end)
		if len(seg) == 0 {
			continue
		}
		levels := a.Average(seg, hop).Bands(analysis.DefaultBands)

		var refLevels []analysis.BandLevel
		if ref != nil {
			if refSeg := clip(ref, start, end); len(refSeg) > 0 {
				refLevels = a.Average(refSeg, hop).Bands(analysis.DefaultBands)
			}
		}

		r := windowReport{Window: w, Frames: frameCount(len(seg), a.Size(), hop)}
		for i, l := range levels {
			row := bandRow{BandLevel: l}
			if i < len(refLevels) {
				row.RefDB = refLevels[i].LevelDB
				row.DiffDB = l.LevelDB - row.RefDB
			}
			r.Bands = append(r.Bands, row)
		}
		out = append(out, r)
	}
	return out
}

func clip(x []float32, start, end int) []float32 {
	if end > len(x) {
		end = len(x)
	}
	if start >= end {
		return nil
	}
	return x[start:end]
}

func frameCount(n, size, hop int) int {
	if n <= size {
		return 1
	}
	return (n-size)/hop + 1
}
