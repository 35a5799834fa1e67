//go:build headless

package audioout

import (
	"fmt"

	"github.com/cwbudde/algo-additive/synth"
)

// Player stands in for the device on machines without audio hardware. It
// keeps the stream but nothing pulls from it.
type Player struct {
	stream  *Stream
	started bool
}

// NewPlayer returns a silent player.
func NewPlayer(sampleRate, channels, bufferFrames int) (*Player, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0")
	}
	return &Player{stream: NewStream(channels)}, nil
}

func (p *Player) Attach(e *synth.Engine) { p.stream.Attach(e) }

func (p *Player) Start() { p.started = true }

func (p *Player) Stop() { p.started = false }

func (p *Player) Close() error {
	p.started = false
	p.stream.Attach(nil)
	return nil
}

func (p *Player) IsStarted() bool { return p.started }
