package voice

import "time"

// Voice activity detection parameters. Levels are sampled on a fixed
// cadence; speech is declared as soon as the averaged level crosses the
// threshold, and ends only after the level has stayed below it for the
// full hang time, which keeps the indicator from flickering between
// words.
const (
	VADInterval  = 100 * time.Millisecond
	VADHangTime  = 500 * time.Millisecond
	VADThreshold = 0.12
)

// Detector is the speaking/silence classifier. It is pure state: the
// caller samples the capture level every VADInterval and feeds the
// average to Observe. Not safe for concurrent use.
type Detector struct {
	threshold float64
	hang      time.Duration

	speaking  bool
	lastAbove time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// NewDetector creates a detector with the given threshold and hang time.
func NewDetector(threshold float64, hang time.Duration) *Detector {
	return &Detector{
		threshold: threshold,
		hang:      hang,
		now:       time.Now,
	}
}

// Speaking reports the current classification.
func (d *Detector) Speaking() bool {
	return d.speaking
}

// Observe feeds one averaged level sample. It returns the new
// classification and whether it changed with this sample.
func (d *Detector) Observe(level float64) (speaking, changed bool) {
	now := d.now()

	if level >= d.threshold {
		d.lastAbove = now
		if !d.speaking {
			d.speaking = true
			return true, true
		}
		return true, false
	}

	if d.speaking && now.Sub(d.lastAbove) >= d.hang {
		d.speaking = false
		return false, true
	}
	return d.speaking, false
}
