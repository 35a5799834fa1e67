package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cwbudde/algo-additive/synth"
)

// Config holds runtime settings shared by the commands, loaded from
// environment variables. Command-line flags override individual fields.
type Config struct {
	SampleRate    int
	QueueCapacity int
	Polyphony     int
	BufferFrames  int     // device buffer size in frames
	Preset        string  // preset JSON path, empty for the defaults
	Port          int     // synth-serve HTTP port
	OutputGain    float64 // initial master volume (linear)
	ScopeSize     int     // samples kept for the spectrum display
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		SampleRate:    envInt("SYNTH_SAMPLE_RATE", synth.DefaultSampleRate),
		QueueCapacity: envInt("SYNTH_QUEUE_CAPACITY", synth.DefaultQueueCapacity),
		Polyphony:     envInt("SYNTH_POLYPHONY", synth.DefaultPolyphony),
		BufferFrames:  envInt("SYNTH_BUFFER_FRAMES", 512),
		Preset:        envStr("SYNTH_PRESET", ""),
		Port:          envInt("SYNTH_PORT", 8080),
		OutputGain:    envFloat("SYNTH_OUTPUT_GAIN", 1.0),
		ScopeSize:     envInt("SYNTH_SCOPE_SIZE", 8192),
	}
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample rate must be > 0")
	case c.QueueCapacity < 1:
		return fmt.Errorf("queue capacity must be >= 1")
	case c.Polyphony < 1:
		return fmt.Errorf("polyphony must be >= 1")
	case c.BufferFrames < 1:
		return fmt.Errorf("buffer frames must be >= 1")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port must be in 1..65535")
	case c.OutputGain < 0:
		return fmt.Errorf("output gain must be >= 0")
	case c.ScopeSize < 2 || c.ScopeSize&(c.ScopeSize-1) != 0:
		return fmt.Errorf("scope size must be a power of two >= 2")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
