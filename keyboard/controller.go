package keyboard

import (
	"sort"
	"time"

	"github.com/cwbudde/algo-additive/synth"
)

// DefaultHistoryLimit bounds the number of finished notes remembered.
const DefaultHistoryLimit = 512

// CommandSink receives commands for the audio goroutine.
type CommandSink interface {
	Push(cmd synth.Command) bool
}

// HeldNote is a key that is currently down.
type HeldNote struct {
	Key        Key                   `json:"key"`
	Note       int                   `json:"note"`
	ID         uint64                `json:"id"`
	Start      time.Duration         `json:"start"`
	Descriptor synth.SoundDescriptor `json:"-"`
}

// NoteEvent is a finished note for the piano roll.
type NoteEvent struct {
	Note  int           `json:"note"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Controller turns key transitions into engine commands. It is the single
// producer of the engine's command queue and must be driven from one
// goroutine.
//
// Every command is also applied to a private mirror mixer so that displays
// can analyse what is playing without touching the audio goroutine's state.
type Controller struct {
	sink    CommandSink
	knobs   *Knobs
	mirror  *synth.Mixer
	held    map[uint64]HeldNote
	byKey   map[Key]uint64
	presses map[Key]uint32
	history []NoteEvent
	limit   int
	dropped uint64
}

// NewController creates a controller feeding sink. sampleRate sizes the
// mirror mixer and should match the engine's.
func NewController(sink CommandSink, knobs *Knobs, sampleRate int) *Controller {
	if knobs == nil {
		knobs = NewKnobs()
	}
	return &Controller{
		sink:    sink,
		knobs:   knobs,
		mirror:  synth.NewMixer(sampleRate, synth.DefaultPolyphony),
		held:    make(map[uint64]HeldNote),
		byKey:   make(map[Key]uint64),
		presses: make(map[Key]uint32),
		limit:   DefaultHistoryLimit,
	}
}

// Knobs returns the panel the controller snapshots on every key press.
func (c *Controller) Knobs() *Knobs { return c.knobs }

// Mirror returns the control-side copy of the mixer. Tick it to obtain the
// signal for scopes and spectra.
func (c *Controller) Mirror() *synth.Mixer { return c.mirror }

// Dropped returns how many commands the sink refused.
func (c *Controller) Dropped() uint64 { return c.dropped }

func (c *Controller) send(cmd synth.Command) {
	c.mirror.ApplyCommand(cmd)
	if c.sink != nil && !c.sink.Push(cmd) {
		c.dropped++
	}
}

// KeyDown starts the note mapped to k. It returns false when k is unmapped
// or already held.
func (c *Controller) KeyDown(k Key, at time.Duration) bool {
	note, ok := NoteForKey(k)
	if !ok {
		return false
	}
	if _, down := c.byKey[k]; down {
		return false
	}
	id := VoiceID(k, c.presses[k])
	d := c.knobs.Descriptor(NoteFrequency(note))
	c.held[id] = HeldNote{Key: k, Note: note, ID: id, Start: at, Descriptor: d}
	c.byKey[k] = id
	c.send(synth.PlayHold(id, d))
	return true
}

// KeyUp releases the note held on k. It returns false when k was not down.
func (c *Controller) KeyUp(k Key, at time.Duration) bool {
	id, down := c.byKey[k]
	if !down {
		return false
	}
	delete(c.byKey, k)
	c.presses[k]++
	if h, ok := c.held[id]; ok {
		delete(c.held, id)
		c.record(NoteEvent{Note: h.Note, Start: h.Start, End: at})
	}
	c.send(synth.Release(id))
	return true
}

// Toggle presses k when it is up and releases it when it is down. Terminals
// report key presses only, so interactive front ends latch notes this way.
func (c *Controller) Toggle(k Key, at time.Duration) bool {
	if _, down := c.byKey[k]; down {
		return c.KeyUp(k, at)
	}
	return c.KeyDown(k, at)
}

// ReleaseAll lets go of every held key.
func (c *Controller) ReleaseAll(at time.Duration) int {
	keys := make([]Key, 0, len(c.byKey))
	for k := range c.byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		c.KeyUp(k, at)
	}
	return len(keys)
}

// Retune re-sends every held note with the current knob values. Voices keep
// their phase and envelope position.
func (c *Controller) Retune() int {
	for _, h := range c.Held() {
		h.Descriptor = c.knobs.Descriptor(NoteFrequency(h.Note))
		c.held[h.ID] = h
		c.send(synth.PlayHold(h.ID, h.Descriptor))
	}
	return len(c.held)
}

// SetVolume updates the volume knob and sends the clamped value.
func (c *Controller) SetVolume(v float64) float32 {
	stored, _ := c.knobs.Set(KnobVolume, v)
	gain := float32(stored)
	c.send(synth.SetOutputGain(gain))
	return gain
}

func (c *Controller) record(ev NoteEvent) {
	c.history = append(c.history, ev)
	if over := len(c.history) - c.limit; over > 0 {
		c.history = append(c.history[:0], c.history[over:]...)
	}
}

// Held returns the held notes ordered by note then start time.
func (c *Controller) Held() []HeldNote {
	out := make([]HeldNote, 0, len(c.held))
	for _, h := range c.held {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Note != out[j].Note {
			return out[i].Note < out[j].Note
		}
		return out[i].Start < out[j].Start
	})
	return out
}

// History returns finished notes that ended at or after since, oldest first.
func (c *Controller) History(since time.Duration) []NoteEvent {
	var out []NoteEvent
	for _, ev := range c.history {
		if ev.End >= since {
			out = append(out, ev)
		}
	}
	return out
}
