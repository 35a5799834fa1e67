package synth

// Engine binds a Mixer to its command queue for use inside an audio callback.
// The control goroutine only touches Queue(); everything else belongs to the
// goroutine calling Render.
type Engine struct {
	mixer *Mixer
	queue *CommandQueue
	apply func(Command)
	mono  []float32
}

// NewEngine creates an engine at sampleRate with room for maxPolyphony voices
// and a command queue of queueCapacity entries.
func NewEngine(sampleRate, maxPolyphony, queueCapacity int) *Engine {
	m := NewMixer(sampleRate, maxPolyphony)
	return &Engine{
		mixer: m,
		queue: NewCommandQueue(queueCapacity),
		apply: m.ApplyCommand,
	}
}

// Queue returns the producer side handed to the control goroutine.
func (e *Engine) Queue() *CommandQueue { return e.queue }

// Mixer returns the mixer. Only the rendering goroutine may use it.
func (e *Engine) Mixer() *Mixer { return e.mixer }

// SampleRate returns the rendering rate.
func (e *Engine) SampleRate() int { return e.mixer.sampleRate }

// Render drains every pending command, then fills out with mono samples.
func (e *Engine) Render(out []float32) {
	e.queue.Drain(e.apply)
	e.mixer.Process(out)
}

// RenderInterleaved fills an interleaved buffer with channels copies of each
// mono sample. A trailing partial frame is zeroed.
func (e *Engine) RenderInterleaved(out []float32, channels int) {
	if channels <= 1 {
		e.Render(out)
		return
	}
	e.queue.Drain(e.apply)
	frames := len(out) / channels
	for f := 0; f < frames; f++ {
		s := e.mixer.Tick()
		frame := out[f*channels : (f+1)*channels]
		for c := range frame {
			frame[c] = s
		}
	}
	for i := frames * channels; i < len(out); i++ {
		out[i] = 0
	}
}

// Process renders numFrames mono samples into an internal buffer that is
// reused across calls. The slice is valid until the next call.
func (e *Engine) Process(numFrames int) []float32 {
	if cap(e.mono) < numFrames {
		e.mono = make([]float32, numFrames)
	}
	out := e.mono[:numFrames]
	e.Render(out)
	return out
}
