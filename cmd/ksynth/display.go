package main

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-additive/analysis"
	"github.com/cwbudde/algo-additive/keyboard"
)

const floorDB = -96

var bars = []rune(" ▁▂▃▄▅▆▇█")

// spectrumLine renders column heights in [0,1] as block characters.
func spectrumLine(cols []float64) string {
	var sb strings.Builder
	for _, h := range cols {
		i := int(h*float64(len(bars)-1) + 0.5)
		if i < 0 {
			i = 0
		}
		if i >= len(bars) {
			i = len(bars) - 1
		}
		sb.WriteRune(bars[i])
	}
	return sb.String()
}

// statusLine summarises the panel and what is sounding.
func statusLine(k keyboard.Knob, held []keyboard.HeldNote, voices int, peakDB float64, dropped uint64) string {
	notes := make([]string, 0, len(held))
	for _, h := range held {
		notes = append(notes, fmt.Sprintf("%d", h.Note))
	}
	return fmt.Sprintf("%s=%.3g [%g..%g]  held:%s  voices:%d  peak:%.1fdB  dropped:%d",
		k.Name, k.Value, k.Min, k.Max, strings.Join(notes, ","), voices, peakDB, dropped)
}

// frame draws the two display rows, returning the cursor to the first.
func frame(spec analysis.Spectrum, width int, status string) string {
	cols := spec.Columns(width, floorDB)
	if len(status) > width {
		status = status[:width]
	}
	return "\r\x1b[K" + spectrumLine(cols) + "\r\n\x1b[K" + status + "\x1b[1A\r"
}

const help = "ksynth: letter rows play notes (press again to release)\r\n" +
	"  space release all   9/0 or up/down select knob   -/= or left/right adjust\r\n" +
	"  / reset knobs   ctrl-s save preset   ctrl-c quit\r\n\r\n"
