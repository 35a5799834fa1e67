package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-additive/analysis"
	"github.com/cwbudde/algo-additive/keyboard"
	"github.com/cwbudde/algo-additive/preset"
	"github.com/cwbudde/mayfly"
)

type fitConfig struct {
	reference   []float32
	sampleRate  int
	note        int
	hold        float64
	base        *keyboard.Knobs
	defs        []knobDef
	start       candidate
	variant     string
	pop         int
	roundEvals  int
	maxEvals    int
	timeBudget  time.Duration
	workers     int
	seed        int64
	topK        int
	reportEvery int
}

type topCandidate struct {
	Eval       int                `json:"eval"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Knobs      map[string]float64 `json:"knobs"`
}

type fitResult struct {
	best        candidate
	bestMetrics analysis.Metrics
	evals       int
	elapsed     time.Duration
	top         []topCandidate
}

type fitState struct {
	mu          sync.Mutex
	best        candidate
	bestMetrics analysis.Metrics
	top         []topCandidate
}

// evaluate renders the note with c applied and scores it against the
// reference.
func evaluate(cfg *fitConfig, c candidate) analysis.Metrics {
	knobs := applyCandidate(cfg.base, cfg.defs, c)
	p := knobs.Preset()
	maxSeconds := float64(len(cfg.reference))/float64(cfg.sampleRate) + 1
	out := preset.RenderNote(p, cfg.note, keyboard.NoteFrequency(cfg.note), cfg.hold, maxSeconds, cfg.sampleRate)
	return analysis.Compare(cfg.reference, out, cfg.sampleRate)
}

// runFit runs independent Mayfly rounds on cfg.workers goroutines until the
// evaluation or time budget is spent. Each worker renders into its own
// engine, so evaluations share nothing but the best-so-far state.
func runFit(cfg *fitConfig) (*fitResult, error) {
	started := time.Now()
	deadline := started.Add(cfg.timeBudget)

	state := &fitState{best: cfg.start, bestMetrics: evaluate(cfg, cfg.start)}
	state.top = updateTopCandidates(nil, cfg.topK, 0, state.bestMetrics, cfg.defs, cfg.start)
	fmt.Printf("start score=%.4f similarity=%.2f%%\n", state.bestMetrics.Score, state.bestMetrics.Similarity*100)

	var evals int64
	var wg sync.WaitGroup
	errs := make(chan error, cfg.workers)
	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for round := 0; ; round++ {
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 || time.Now().After(deadline) {
					return
				}
				iters := max(1, min(cfg.roundEvals, remaining)/(2*cfg.pop))
				mcfg, err := newMayflyConfig(cfg.variant, cfg.pop, len(cfg.defs), iters)
				if err != nil {
					errs <- err
					return
				}
				mcfg.Rand = rand.New(rand.NewSource(cfg.seed + int64(worker)*104729 + int64(round)*7919))
				mcfg.ObjectiveFunc = func(pos []float64) float64 {
					if time.Now().After(deadline) {
						return currentBestScore(state) + 1
					}
					evalNum, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return currentBestScore(state) + 1
					}
					c := decode(cfg.defs, pos)
					m := evaluate(cfg, c)

					state.mu.Lock()
					state.top = updateTopCandidates(state.top, cfg.topK, int(evalNum), m, cfg.defs, c)
					if m.Score < state.bestMetrics.Score {
						state.best = c
						state.bestMetrics = m
						fmt.Printf("eval %d: best score=%.4f similarity=%.2f%%\n", evalNum, m.Score, m.Similarity*100)
					} else if evalNum%int64(cfg.reportEvery) == 0 {
						fmt.Printf("eval %d: score=%.4f best=%.4f\n", evalNum, m.Score, state.bestMetrics.Score)
					}
					state.mu.Unlock()
					return m.Score
				}
				if _, err := runMayfly(mcfg); err != nil {
					fmt.Fprintf(os.Stderr, "worker %d round %d failed: %v\n", worker, round, err)
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	return &fitResult{
		best:        state.best,
		bestMetrics: state.bestMetrics,
		evals:       int(atomic.LoadInt64(&evals)),
		elapsed:     time.Since(started),
		top:         state.top,
	}, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0
	cfg.UpperBound = 1
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func currentBestScore(state *fitState) float64 {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.bestMetrics.Score
}

// updateTopCandidates keeps the topK lowest scores, dropping candidates with
// identical knob values.
func updateTopCandidates(top []topCandidate, topK int, eval int, m analysis.Metrics, defs []knobDef, c candidate) []topCandidate {
	knobs := candidateKnobs(defs, c)
	for _, t := range top {
		if sameKnobs(t.Knobs, knobs) {
			return top
		}
	}
	top = append(top, topCandidate{Eval: eval, Score: m.Score, Similarity: m.Similarity, Knobs: knobs})
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score < top[j].Score })
	if len(top) > topK {
		top = top[:topK]
	}
	return top
}

func sameKnobs(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
