package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwbudde/algo-additive/internal/config"
	"github.com/cwbudde/algo-additive/internal/stream"
	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/preset"
	"github.com/cwbudde/algo-additive/synth"
)

//go:embed index.html
var indexHTML []byte

func main() {
	cfg := config.Load()
	port := flag.Int("port", cfg.Port, "HTTP port")
	sampleRate := flag.Int("sample-rate", 48000, "Stream sample rate in Hz (Opus needs 8/12/16/24/48 kHz)")
	channels := flag.Int("channels", 1, "Stream channels")
	presetPath := flag.String("preset", cfg.Preset, "Preset JSON loaded at start and written by /api/preset/save")
	flag.Parse()
	cfg.Port = *port
	cfg.SampleRate = *sampleRate
	cfg.Preset = *presetPath
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	knobs := keyboard.NewKnobs()
	knobs.Set(keyboard.KnobVolume, cfg.OutputGain)
	if cfg.Preset != "" {
		if _, err := os.Stat(cfg.Preset); err == nil {
			p, err := preset.LoadJSON(cfg.Preset)
			if err != nil {
				log.Fatalf("preset: %v", err)
			}
			knobs.Apply(p)
			log.Printf("Loaded preset %s", cfg.Preset)
		}
	}

	engine := synth.NewEngine(cfg.SampleRate, cfg.Polyphony, cfg.QueueCapacity)
	format := stream.Format{SampleRate: cfg.SampleRate, Channels: *channels}
	if err := format.Validate(); err != nil {
		log.Fatalf("stream: %v", err)
	}

	broadcaster := stream.NewBroadcaster()
	frames := make(chan []int16, 8)
	go func() {
		if err := stream.Pump(ctx, engine, format.Channels, frames); err != nil {
			log.Printf("Pump stopped: %v", err)
		}
	}()
	go broadcaster.Run(ctx, frames)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	})
	mux.Handle("/stream", stream.NewPCMHandler(broadcaster, format))

	peers := func() int { return 0 }
	webrtcHandler, err := stream.NewWebRTCHandler(broadcaster, format)
	if err != nil {
		log.Printf("WebRTC disabled: %v", err)
	} else {
		mux.Handle("/offer", webrtcHandler)
		peers = webrtcHandler.PeerCount
		defer webrtcHandler.Close()
	}

	ctrl := keyboard.NewController(engine.Queue(), knobs, cfg.SampleRate)
	ctrl.SetVolume(float64(knobs.Volume()))
	a, err := newAPI(ctrl, cfg.ScopeSize, cfg.SampleRate, cfg.Preset, engineStats{
		queue:   engine.Queue(),
		peers:   peers,
		listens: broadcaster.ListenerCount,
	})
	if err != nil {
		log.Fatalf("api: %v", err)
	}
	a.routes(mux)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("synth-serve live on %s (%d Hz, %d ch)", addr, format.SampleRate, format.Channels)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
