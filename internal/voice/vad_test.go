package voice

import (
	"testing"
	"time"
)

// fakeClock drives the detector's notion of time one sampling interval
// per observation.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) tick() time.Time {
	c.t = c.t.Add(VADInterval)
	return c.t
}

func newTestDetector() (*Detector, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	d := NewDetector(VADThreshold, VADHangTime)
	d.now = clock.tick
	return d, clock
}

func TestDetectorStartsOnThreshold(t *testing.T) {
	d, _ := newTestDetector()

	if speaking, changed := d.Observe(0.05); speaking || changed {
		t.Errorf("Observe(quiet) = (%v, %v), want silent", speaking, changed)
	}
	speaking, changed := d.Observe(0.3)
	if !speaking || !changed {
		t.Errorf("Observe(loud) = (%v, %v), want speaking transition", speaking, changed)
	}

	// Staying loud reports no further transitions.
	if _, changed := d.Observe(0.5); changed {
		t.Error("second loud sample reported a transition")
	}
}

func TestDetectorHangTime(t *testing.T) {
	d, _ := newTestDetector()
	d.Observe(0.3)

	// A dip shorter than the hang time keeps the speaking state: four
	// quiet samples cover 400ms, still inside the 500ms hang.
	for i := 0; i < 4; i++ {
		if speaking, changed := d.Observe(0.0); !speaking || changed {
			t.Fatalf("sample %d: (%v, %v), want still speaking", i, speaking, changed)
		}
	}

	// The fifth quiet sample crosses the hang time.
	speaking, changed := d.Observe(0.0)
	if speaking || !changed {
		t.Errorf("after hang time: (%v, %v), want silence transition", speaking, changed)
	}
}

func TestDetectorDipResetOnSpeech(t *testing.T) {
	d, _ := newTestDetector()
	d.Observe(0.3)

	// Quiet, then loud again: the hang timer restarts.
	d.Observe(0.0)
	d.Observe(0.0)
	d.Observe(0.3)

	for i := 0; i < 4; i++ {
		if speaking, _ := d.Observe(0.0); !speaking {
			t.Fatalf("sample %d ended speech before the full hang time", i)
		}
	}
	if speaking, _ := d.Observe(0.0); speaking {
		t.Error("speech never ended after the hang time")
	}
}

func TestDetectorExactThreshold(t *testing.T) {
	d, _ := newTestDetector()
	if speaking, _ := d.Observe(VADThreshold); !speaking {
		t.Error("a level exactly at the threshold counts as speech")
	}
}
