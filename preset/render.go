package preset

import "github.com/cwbudde/algo-additive/synth"

// RenderNote plays note at frequency f through a fresh engine, releases it
// after hold seconds and renders until the voice is gone or maxSeconds have
// elapsed. The result is mono.
func RenderNote(p *Preset, note int, f float32, hold, maxSeconds float64, sampleRate int) []float32 {
	const block = 128
	e := synth.NewEngine(sampleRate, synth.DefaultPolyphony, synth.DefaultQueueCapacity)
	e.Queue().Push(synth.SetOutputGain(p.Volume))
	e.Queue().Push(synth.PlayHold(1, p.Descriptor(note, f)))

	limit := int(maxSeconds * float64(sampleRate))
	holdFrames := min(int(hold*float64(sampleRate)), limit)
	out := make([]float32, holdFrames, holdFrames+sampleRate)
	e.Render(out)
	e.Queue().Push(synth.Release(1))

	buf := make([]float32, block)
	for len(out) < limit {
		n := min(block, limit-len(out))
		e.Render(buf[:n])
		out = append(out, buf[:n]...)
		if e.Mixer().VoiceCount() == 0 {
			break
		}
	}
	return out
}
