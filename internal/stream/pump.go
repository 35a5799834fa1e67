package stream

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cwbudde/algo-additive/dsp"
	"github.com/cwbudde/algo-additive/synth"
)

// FrameDuration is the length of one network frame.
const FrameDuration = 20 * time.Millisecond

// Format describes the PCM frames handed to listeners.
type Format struct {
	SampleRate int
	Channels   int
}

// FrameSize returns samples per channel in one frame.
func (f Format) FrameSize() int {
	return f.SampleRate * int(FrameDuration/time.Millisecond) / 1000
}

// FrameSamples returns interleaved samples in one frame.
func (f Format) FrameSamples() int { return f.FrameSize() * f.Channels }

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be > 0")
	}
	if f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2")
	}
	return nil
}

// Pump renders the engine frame by frame in real time and sends int16
// frames to out. It is the engine's only consumer and closes out on return.
func Pump(ctx context.Context, e *synth.Engine, channels int, out chan<- []int16) error {
	defer close(out)

	format := Format{SampleRate: e.SampleRate(), Channels: channels}
	if err := format.Validate(); err != nil {
		return err
	}

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	block := make([]float32, format.FrameSamples())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		e.RenderInterleaved(block, channels)
		frame := dsp.FloatToPCM16(nil, block)

		select {
		case <-ctx.Done():
			return nil
		case out <- frame:
		}
	}
}

// SamplesToBytes encodes frames as signed 16-bit little-endian PCM.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
