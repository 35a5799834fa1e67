package synth

import "testing"

func TestVoiceGainsFollowRolloffAndUnison(t *testing.T) {
	d := NewDefaultDescriptor(100)
	d.Harmonics = 3
	d.UnisonVoices = 2
	d.RolloffExponent = 2
	d.PreGainDB = 0
	d.DetuneCents = 1200
	v := newVoice(1, d, 0, testSampleRate)

	wantGains := []float32{0.5, 0.125, 0.5 / 9, 0.5, 0.125, 0.5 / 9}
	for i, want := range wantGains {
		if !approxEqual(v.gains[i], want, 1e-6) {
			t.Fatalf("gain %d: got=%f want=%f", i, v.gains[i], want)
		}
	}
	// second unison copy is one octave up
	for hi := 0; hi < 3; hi++ {
		base := v.incs[hi]
		if !approxEqual(v.incs[3+hi], 2*base, 1e-5) {
			t.Fatalf("detuned inc %d: got=%g want=%g", hi, v.incs[3+hi], 2*base)
		}
	}
}

func TestVoicePhasesStayInUnitInterval(t *testing.T) {
	d := NewDefaultDescriptor(5000)
	d.Harmonics = 4
	v := newVoice(1, d, 0, testSampleRate)
	for i := 0; i < 10000; i++ {
		v.Tick()
		for j, p := range v.phases {
			if p < 0 || p >= 1 {
				t.Fatalf("tick %d: phase %d out of range: %f", i, j, p)
			}
		}
	}
}

func TestVoiceShouldRemoveAfterFullRelease(t *testing.T) {
	d := pureSine(220)
	d.Release = 0.005
	r := secondsToSamples(d.Release, testSampleRate)

	v := newVoice(3, d, 100, testSampleRate)
	for i := 0; i < 50; i++ {
		v.Tick()
	}
	if v.ShouldRemove() {
		t.Fatalf("held voice must never be removed")
	}
	v.release(150)
	if got, _ := v.ReleaseSample(); got != 150 {
		t.Fatalf("release sample: got=%d want=150", got)
	}
	if v.Stage() != StageRelease {
		t.Fatalf("stage after release: %s", v.Stage())
	}
	for i := uint64(1); i < r; i++ {
		v.Tick()
		if v.ShouldRemove() {
			t.Fatalf("removed early after %d release samples", i)
		}
	}
	v.Tick()
	if !v.ShouldRemove() {
		t.Fatalf("voice should be removable after %d release samples", r)
	}
	if v.Stage() != StageDead {
		t.Fatalf("stage at end of release: %s", v.Stage())
	}
}

func TestVoiceReleaseBeforeBirthClampsToBirth(t *testing.T) {
	v := newVoice(1, pureSine(220), 500, testSampleRate)
	v.release(10)
	if got, _ := v.ReleaseSample(); got != 500 {
		t.Fatalf("release sample: got=%d want=500", got)
	}
	if v.releaseAge != 0 {
		t.Fatalf("release age: got=%d want=0", v.releaseAge)
	}
}

func TestVoiceResetReusesStorage(t *testing.T) {
	d := NewDefaultDescriptor(220)
	d.Harmonics = 8
	d.UnisonVoices = 4
	v := newVoice(1, d, 0, testSampleRate)
	v.Tick()
	capBefore := cap(v.phases)

	small := NewDefaultDescriptor(440)
	small.Harmonics = 2
	small.UnisonVoices = 1
	v.reset(2, small, 42, testSampleRate)
	if cap(v.phases) != capBefore {
		t.Fatalf("reset reallocated phases: cap %d -> %d", capBefore, cap(v.phases))
	}
	if v.ID() != 2 || v.BirthSample() != 42 || v.Age() != 0 || len(v.phases) != 2 {
		t.Fatalf("reset state: id=%d birth=%d age=%d partials=%d", v.ID(), v.BirthSample(), v.Age(), len(v.phases))
	}
}
