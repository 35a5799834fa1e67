package synth

import (
	"math"
	"testing"
)

func TestMixerPureSineZeroCrossings(t *testing.T) {
	const f = 110.0
	m := NewMixer(testSampleRate, 4)
	m.ApplyCommand(PlayHold(1, pureSine(f)))

	out := render(m, 2000)
	if p := peakAbs(out); p < 0.99 || p > 1.0 {
		t.Fatalf("expected unit amplitude sine, peak=%f", p)
	}

	// Sample i is tick i+1, so the phase there is (i+1)*f/sr.
	halfPeriod := float64(testSampleRate) / (2 * f)
	crossings := zeroCrossings(out)
	if len(crossings) < 8 {
		t.Fatalf("expected at least 8 zero crossings in 2000 samples, got %d", len(crossings))
	}
	for k, idx := range crossings {
		want := float64(k+1)*halfPeriod - 1
		if math.Abs(float64(idx)-want) > 1 {
			t.Fatalf("crossing %d at sample %d, want %.2f +/- 1", k, idx, want)
		}
	}
}

func TestMixerRemovesVoiceExactlyAfterRelease(t *testing.T) {
	d := pureSine(220)
	d.Release = 0.01
	releaseSamples := int(secondsToSamples(d.Release, testSampleRate))

	m := NewMixer(testSampleRate, 4)
	m.ApplyCommand(PlayHold(2, d))
	m.ApplyCommand(Release(2))
	if m.VoiceCount() != 1 {
		t.Fatalf("expected 1 voice after PlayHold+Release, got %d", m.VoiceCount())
	}

	transitions := 0
	removedAt := -1
	prev := m.VoiceCount()
	for tick := 1; tick <= releaseSamples+100; tick++ {
		m.Tick()
		cur := m.VoiceCount()
		if cur != prev {
			transitions++
			removedAt = tick
		}
		prev = cur
	}
	if transitions != 1 {
		t.Fatalf("expected exactly one voice-count transition, got %d", transitions)
	}
	if removedAt != releaseSamples {
		t.Fatalf("voice removed at tick %d, want %d", removedAt, releaseSamples)
	}
}

func TestMixerReleaseIsIdempotent(t *testing.T) {
	d := pureSine(220)
	d.Release = 1
	m := NewMixer(testSampleRate, 4)
	m.ApplyCommand(PlayHold(7, d))
	render(m, 10)
	m.ApplyCommand(Release(7))
	v, ok := m.Voice(7)
	if !ok {
		t.Fatalf("voice 7 missing")
	}
	first, released := v.ReleaseSample()
	if !released || first != 10 {
		t.Fatalf("release sample: got=%d released=%v want=10", first, released)
	}

	render(m, 5)
	m.ApplyCommand(Release(7))
	second, _ := v.ReleaseSample()
	if second != first {
		t.Fatalf("second release moved release sample: %d -> %d", first, second)
	}
}

func TestMixerReleaseUnknownIDIsNoop(t *testing.T) {
	m := NewMixer(testSampleRate, 4)
	m.ApplyCommand(PlayHold(1, pureSine(220)))
	m.ApplyCommand(Release(99))
	v, _ := m.Voice(1)
	if v.Released() {
		t.Fatalf("release of unknown id touched voice 1")
	}
	if m.VoiceCount() != 1 {
		t.Fatalf("voice count changed: %d", m.VoiceCount())
	}
}

func TestMixerRetuneKeepsAgeAndPhases(t *testing.T) {
	d1 := NewDefaultDescriptor(220)
	d1.DetuneCents = 12
	m := NewMixer(testSampleRate, 4)
	m.ApplyCommand(PlayHold(5, d1))
	render(m, 100)

	v, _ := m.Voice(5)
	age := v.Age()
	phases := append([]float32(nil), v.phases...)

	d2 := d1
	d2.Fundamental = 330
	d2.SustainLevel = 0.9
	m.ApplyCommand(PlayHold(5, d2))

	if m.VoiceCount() != 1 {
		t.Fatalf("retune must not add a voice, count=%d", m.VoiceCount())
	}
	if v.Age() != age {
		t.Fatalf("retune reset age: %d -> %d", age, v.Age())
	}
	for i := range phases {
		if v.phases[i] != phases[i] {
			t.Fatalf("retune changed phase %d: %f -> %f", i, phases[i], v.phases[i])
		}
	}
	if v.Descriptor().Fundamental != 330 || v.Descriptor().SustainLevel != 0.9 {
		t.Fatalf("retune did not adopt new descriptor: %+v", v.Descriptor())
	}
	wantInc := float32(330.0 / testSampleRate)
	if !approxEqual(v.incs[0], wantInc, 1e-9) {
		t.Fatalf("phase increment after retune: got=%g want=%g", v.incs[0], wantInc)
	}
}

func TestMixerRetuneReprovisionsBank(t *testing.T) {
	d := NewDefaultDescriptor(110)
	d.Harmonics = 2
	d.UnisonVoices = 2
	m := NewMixer(testSampleRate, 4)
	m.ApplyCommand(PlayHold(1, d))
	render(m, 37)

	v, _ := m.Voice(1)
	// layout [u][h]: keep (0,0), (0,1), (1,0), (1,1)
	before := append([]float32(nil), v.phases...)

	d.Harmonics = 3
	d.UnisonVoices = 1
	m.ApplyCommand(PlayHold(1, d))
	if len(v.phases) != 3 || len(v.incs) != 3 || len(v.gains) != 3 {
		t.Fatalf("bank not re-provisioned: phases=%d incs=%d gains=%d", len(v.phases), len(v.incs), len(v.gains))
	}
	if v.phases[0] != before[0] || v.phases[1] != before[1] || v.phases[2] != 0 {
		t.Fatalf("surviving partials must keep phase: before=%v after=%v", before, v.phases)
	}
}

func TestMixerOutputAlwaysClamped(t *testing.T) {
	d := NewDefaultDescriptor(55)
	d.Harmonics = 12
	d.UnisonVoices = 4
	d.RolloffExponent = 0
	d.PreGainDB = 60
	d.OutputGainDB = 40
	d.Attack = 0

	m := NewMixer(testSampleRate, 16)
	for id := uint64(1); id <= 12; id++ {
		d.Fundamental = 55 * float32(id)
		m.ApplyCommand(PlayHold(id, d))
	}
	m.ApplyCommand(SetOutputGain(1000))
	for i, s := range render(m, 4000) {
		if s > 1 || s < -1 || math.IsNaN(float64(s)) {
			t.Fatalf("sample %d out of range: %f", i, s)
		}
	}

	clip := float32(-6)
	d.HardClipDB = &clip
	m.ApplyCommand(PlayHold(1, d))
	ceiling := float64(DBToLinear(clip))
	if p := peakAbs(render(m, 4000)); p > ceiling+1e-6 {
		t.Fatalf("hard clip exceeded: peak=%f ceiling=%f", p, ceiling)
	}
}

func TestMixerSetOutputGainAppliesOnNextTick(t *testing.T) {
	m := NewMixer(testSampleRate, 4)
	m.ApplyCommand(PlayHold(1, pureSine(440)))
	render(m, 10)
	m.ApplyCommand(SetOutputGain(0))
	if s := m.Tick(); s != 0 {
		t.Fatalf("expected silence after gain 0, got %f", s)
	}
	m.ApplyCommand(SetOutputGain(float32(math.NaN())))
	if m.OutputGain() != 0 {
		t.Fatalf("non-finite gain must be ignored, got %f", m.OutputGain())
	}
}

func TestMixerSanitizesMalformedDescriptor(t *testing.T) {
	m := NewMixer(testSampleRate, 4)
	bad := SoundDescriptor{
		Fundamental:  float32(math.NaN()),
		Harmonics:    0,
		UnisonVoices: 0,
		Attack:       -1,
		SustainLevel: 3,
	}
	m.ApplyCommand(PlayHold(1, bad))
	for i, s := range render(m, 256) {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			t.Fatalf("non-finite output at %d", i)
		}
	}
	v, _ := m.Voice(1)
	if len(v.phases) != 1 {
		t.Fatalf("expected a 1x1 bank, got %d partials", len(v.phases))
	}
}

func TestMixerResetDropsVoicesAndReusesThem(t *testing.T) {
	m := NewMixer(testSampleRate, 4)
	for id := uint64(1); id <= 3; id++ {
		m.ApplyCommand(PlayHold(id, pureSine(220)))
	}
	render(m, 10)
	count := m.SampleCount()
	m.Reset()
	if m.VoiceCount() != 0 {
		t.Fatalf("reset left %d voices", m.VoiceCount())
	}
	if m.SampleCount() != count {
		t.Fatalf("reset must not rewind the sample counter")
	}
	if s := m.Tick(); s != 0 {
		t.Fatalf("expected silence after reset, got %f", s)
	}

	m.ApplyCommand(PlayHold(9, pureSine(220)))
	v, _ := m.Voice(9)
	if v.Age() != 0 || v.BirthSample() != m.SampleCount() || v.Released() {
		t.Fatalf("recycled voice not re-armed: age=%d birth=%d released=%v", v.Age(), v.BirthSample(), v.Released())
	}
	for i, p := range v.phases {
		if p != 0 {
			t.Fatalf("recycled voice phase %d not zeroed: %f", i, p)
		}
	}
}

func TestMixerTickDoesNotAllocate(t *testing.T) {
	m := NewMixer(testSampleRate, 8)
	d := NewDefaultDescriptor(110)
	d.Harmonics = 6
	d.UnisonVoices = 3
	for id := uint64(1); id <= 6; id++ {
		m.ApplyCommand(PlayHold(id, d))
	}
	m.ApplyCommand(Release(3))
	allocs := testing.AllocsPerRun(200, func() {
		m.Tick()
	})
	if allocs != 0 {
		t.Fatalf("Tick allocated %.1f times per run", allocs)
	}
}

func BenchmarkMixerTick(b *testing.B) {
	m := NewMixer(testSampleRate, 16)
	d := NewDefaultDescriptor(110)
	d.Harmonics = 8
	d.UnisonVoices = 3
	d.DetuneCents = 7
	for id := uint64(1); id <= 16; id++ {
		d.Fundamental = 110 * float32(id)
		m.ApplyCommand(PlayHold(id, d))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Tick()
	}
}

func TestMixerRetuneWithHardClipDoesNotAllocate(t *testing.T) {
	m := NewMixer(testSampleRate, 4)
	d := NewDefaultDescriptor(220)
	for _, db := range []float32{-3, 6, float32(math.NaN())} {
		clip := db
		d.HardClipDB = &clip
		cmd := PlayHold(1, d)
		m.ApplyCommand(cmd)
		render(m, 16)
		allocs := testing.AllocsPerRun(100, func() {
			m.ApplyCommand(cmd)
			m.Tick()
		})
		if allocs != 0 {
			t.Fatalf("clip %v: %v allocations per retune", db, allocs)
		}
	}
	if m.Dynamics().Ceiling != 1 {
		t.Fatalf("non-finite clip must fall back to unity, ceiling=%f", m.Dynamics().Ceiling)
	}
}

func TestMixerSkipMatchesTicking(t *testing.T) {
	ticked := NewMixer(testSampleRate, 4)
	skipped := NewMixer(testSampleRate, 4)
	d := NewDefaultDescriptor(330)
	d.Release = 0.01
	for _, m := range []*Mixer{ticked, skipped} {
		m.ApplyCommand(PlayHold(1, pureSine(220)))
		m.ApplyCommand(PlayHold(2, d))
		m.ApplyCommand(Release(2))
	}

	render(ticked, 5000)
	skipped.Skip(5000)
	if skipped.SampleCount() != ticked.SampleCount() || skipped.VoiceCount() != ticked.VoiceCount() {
		t.Fatalf("state differs: count %d/%d voices %d/%d",
			skipped.SampleCount(), ticked.SampleCount(), skipped.VoiceCount(), ticked.VoiceCount())
	}
	if skipped.VoiceCount() != 1 {
		t.Fatalf("released voice not collected: %d voices", skipped.VoiceCount())
	}
	a, b := render(ticked, 64), render(skipped, 64)
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 5e-3 {
			t.Fatalf("sample %d: ticked=%f skipped=%f", i, a[i], b[i])
		}
	}

	skipped.Skip(0)
	skipped.Skip(-3)
	if skipped.SampleCount() != ticked.SampleCount() {
		t.Fatalf("non-positive skip moved the clock")
	}
}
