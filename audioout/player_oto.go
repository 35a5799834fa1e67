//go:build !headless

package audioout

import (
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/algo-additive/synth"
	"github.com/ebitengine/oto/v3"
)

// Player plays a Stream on the default output device.
type Player struct {
	ctx     *oto.Context
	player  *oto.Player
	stream  *Stream
	started bool
	mutex   sync.Mutex // setup and control only; never taken on the read path
}

// NewPlayer opens the device. bufferFrames sets the device latency.
func NewPlayer(sampleRate, channels, bufferFrames int) (*Player, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0")
	}
	stream := NewStream(channels)
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: stream.Channels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(bufferFrames) * time.Second / time.Duration(sampleRate),
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	return &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(stream),
		stream: stream,
	}, nil
}

// Attach selects the engine the device pulls from.
func (p *Player) Attach(e *synth.Engine) {
	p.stream.Attach(e)
}

// Start begins playback.
func (p *Player) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.started && p.player != nil {
		p.player.Play()
		p.started = true
	}
}

// Stop pauses playback.
func (p *Player) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.started && p.player != nil {
		p.player.Pause()
		p.started = false
	}
}

// Close releases the device player.
func (p *Player) Close() error {
	p.Stop()
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.stream.Attach(nil)
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	return err
}

// IsStarted reports whether the device is playing.
func (p *Player) IsStarted() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.started
}
