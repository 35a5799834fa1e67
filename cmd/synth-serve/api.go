package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cwbudde/algo-additive/analysis"
	"github.com/cwbudde/algo-additive/dsp"
	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/preset"
	"github.com/cwbudde/algo-additive/synth"
)

// Stats are counters read from other goroutines. Every method must be safe
// for concurrent use.
type Stats interface {
	Queued() int
	QueueDropped() uint64
	Listeners() int
	Peers() int
}

// api serializes HTTP requests onto the controller, which makes the request
// handlers collectively the queue's single producer.
type api struct {
	mu         sync.Mutex
	ctrl       *keyboard.Controller
	scope      *analysis.Scope
	analyzer   *analysis.Analyzer
	sampleRate int
	presetPath string
	stats      Stats
	start      time.Time
	synced     time.Time
	now        func() time.Time
}

func newAPI(ctrl *keyboard.Controller, scopeSize, sampleRate int, presetPath string, stats Stats) (*api, error) {
	analyzer, err := analysis.NewAnalyzer(scopeSize, sampleRate)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &api{
		ctrl:       ctrl,
		scope:      analysis.NewScope(scopeSize),
		analyzer:   analyzer,
		sampleRate: sampleRate,
		presetPath: presetPath,
		stats:      stats,
		start:      now,
		synced:     now,
		now:        time.Now,
	}, nil
}

// sync advances the mirror to the current time. Callers hold mu.
func (a *api) sync() time.Duration {
	now := a.now()
	n := int(now.Sub(a.synced).Seconds() * float64(a.sampleRate))
	if n > 0 {
		a.scope.Follow(a.ctrl.Mirror(), n)
		a.synced = a.synced.Add(time.Duration(n) * time.Second / time.Duration(a.sampleRate))
	}
	return now.Sub(a.start)
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/key", a.handleKey)
	mux.HandleFunc("/api/release-all", a.handleReleaseAll)
	mux.HandleFunc("/api/knobs", a.handleKnobs)
	mux.HandleFunc("/api/knobs/reset", a.handleKnobsReset)
	mux.HandleFunc("/api/preset", a.handlePreset)
	mux.HandleFunc("/api/preset/save", a.handlePresetSave)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/spectrum", a.handleSpectrum)
	mux.HandleFunc("/api/history", a.handleHistory)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (a *api) handleKey(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Key    string `json:"key"`
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	k := keyboard.Key(req.Key)
	if _, ok := keyboard.NoteForKey(k); !ok {
		http.Error(w, "unmapped key", http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	at := a.sync()
	var changed bool
	switch req.Action {
	case "down":
		changed = a.ctrl.KeyDown(k, at)
	case "up":
		changed = a.ctrl.KeyUp(k, at)
	case "toggle", "":
		changed = a.ctrl.Toggle(k, at)
	default:
		http.Error(w, "action must be down, up or toggle", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "changed": changed, "held": a.ctrl.Held()})
}

func (a *api) handleReleaseAll(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.ctrl.ReleaseAll(a.sync())
	writeJSON(w, map[string]any{"ok": true, "released": n})
}

func (a *api) handleKnobs(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, a.ctrl.Knobs().List())
	case http.MethodPost:
		var req map[string]float64
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		knobs := a.ctrl.Knobs()
		for name := range req {
			if _, ok := knobs.Get(name); !ok {
				http.Error(w, "unknown knob "+strconv.Quote(name), http.StatusBadRequest)
				return
			}
		}
		a.sync()
		for name, v := range req {
			knobs.Set(name, v)
		}
		a.push()
		writeJSON(w, knobs.List())
	default:
		http.Error(w, "GET or POST required", http.StatusMethodNotAllowed)
	}
}

// push sends the panel to the engine: volume, then every held note retuned.
func (a *api) push() {
	a.ctrl.SetVolume(float64(a.ctrl.Knobs().Volume()))
	a.ctrl.Retune()
}

func (a *api) handleKnobsReset(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sync()
	a.ctrl.Knobs().Reset()
	a.push()
	writeJSON(w, a.ctrl.Knobs().List())
}

func (a *api) handlePreset(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, preset.ToFile(a.ctrl.Knobs().Preset()))
	case http.MethodPost:
		var f preset.File
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			http.Error(w, "invalid preset", http.StatusBadRequest)
			return
		}
		p := a.ctrl.Knobs().Preset()
		if err := preset.ApplyFile(p, &f); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.sync()
		a.ctrl.Knobs().Apply(p)
		a.push()
		writeJSON(w, preset.ToFile(a.ctrl.Knobs().Preset()))
	default:
		http.Error(w, "GET or POST required", http.StatusMethodNotAllowed)
	}
}

func (a *api) handlePresetSave(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.presetPath == "" {
		http.Error(w, "no preset path configured", http.StatusConflict)
		return
	}
	if err := preset.SaveJSON(a.presetPath, a.ctrl.Knobs().Preset()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "path": a.presetPath})
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	uptime := a.sync()
	mirror := a.ctrl.Mirror()
	peak, rms := a.scope.Levels()
	writeJSON(w, map[string]any{
		"uptime":         uptime.Seconds(),
		"sample_rate":    a.sampleRate,
		"sample_count":   mirror.SampleCount(),
		"voices":         mirror.VoiceCount(),
		"held":           a.ctrl.Held(),
		"output_gain":    mirror.OutputGain(),
		"peak_db":        dsp.LinToDB(peak),
		"rms_db":         dsp.LinToDB(rms),
		"queued":         a.stats.Queued(),
		"dropped":        a.ctrl.Dropped() + a.stats.QueueDropped(),
		"http_listeners": a.stats.Listeners(),
		"webrtc_peers":   a.stats.Peers(),
	})
}

func (a *api) handleSpectrum(w http.ResponseWriter, r *http.Request) {
	width := 64
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1024 {
			http.Error(w, "width must be 1-1024", http.StatusBadRequest)
			return
		}
		width = n
	}
	floor := -96.0
	if v := r.URL.Query().Get("floor"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f >= 0 {
			http.Error(w, "floor must be a negative dB value", http.StatusBadRequest)
			return
		}
		floor = f
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sync()
	spec := a.analyzer.Analyze(a.scope.Snapshot())
	writeJSON(w, map[string]any{
		"bin_hz":  spec.BinHz,
		"peak_hz": spec.PeakFrequency(),
		"columns": spec.Columns(width, floor),
		"bands":   spec.Bands(analysis.DefaultBands),
	})
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	var since time.Duration
	if v := r.URL.Query().Get("since"); v != "" {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "since must be seconds", http.StatusBadRequest)
			return
		}
		since = time.Duration(s * float64(time.Second))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.sync()
	writeJSON(w, map[string]any{
		"now":    now,
		"held":   a.ctrl.Held(),
		"events": a.ctrl.History(since),
	})
}

// engineStats reads the counters that are safe to share with the audio
// goroutine.
type engineStats struct {
	queue   *synth.CommandQueue
	peers   func() int
	listens func() int
}

func (s engineStats) Queued() int          { return s.queue.Len() }
func (s engineStats) QueueDropped() uint64 { return s.queue.Dropped() }
func (s engineStats) Listeners() int       { return s.listens() }
func (s engineStats) Peers() int           { return s.peers() }
