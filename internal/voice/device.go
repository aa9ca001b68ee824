package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

var (
	// ErrMicUnavailable covers both permission denial and a missing
	// device. Voice features are disabled; the rest of the session
	// continues.
	ErrMicUnavailable = errors.New("microphone unavailable")

	// ErrControllerClosed is returned from operations on a closed
	// controller.
	ErrControllerClosed = errors.New("voice controller closed")
)

// Frame is one encoded audio packet from the capture device.
type Frame struct {
	// Data is an Opus packet ready for the outgoing track.
	Data []byte

	// Duration is the packet's playback duration.
	Duration time.Duration

	// Level is a linear loudness estimate in [0, 1], used for voice
	// activity detection.
	Level float64
}

// CaptureOptions mirror the processing constraints requested from the
// platform capture pipeline. Capture is always mono.
type CaptureOptions struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultCaptureOptions enables the full processing chain.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Device is the capture capability boundary. The platform microphone
// lives behind it; the controller owns the returned frame stream and is
// the only component allowed to stop it.
type Device interface {
	// Start opens the device and begins producing frames. The channel
	// closes when the device stops or the context is cancelled.
	Start(ctx context.Context) (<-chan Frame, error)

	// Stop releases the device. Idempotent.
	Stop() error
}

// oggPageDuration is the packet cadence of the Opus streams we produce.
const oggPageDuration = 20 * time.Millisecond

// levelScale maps Opus packet sizes onto a [0, 1] loudness estimate. A
// VBR voice encoder emits small packets for silence and larger ones for
// speech, so packet size is a workable proxy when the raw PCM is not
// available on this side of the capture boundary.
const levelScale = 300.0

// OggDevice streams a prerecorded Ogg Opus file as if it were a live
// microphone, looping at EOF. It stands in for hardware capture in the
// terminal client and in tests.
type OggDevice struct {
	path string
	opts CaptureOptions

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

// NewOggDevice validates the file and prepares a device around it.
func NewOggDevice(path string, opts CaptureOptions) (*OggDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMicUnavailable, err)
	}
	defer f.Close()

	if _, _, err := oggreader.NewWith(f); err != nil {
		return nil, fmt.Errorf("%w: not an ogg opus file: %v", ErrMicUnavailable, err)
	}

	return &OggDevice{path: path, opts: opts}, nil
}

func (d *OggDevice) Start(ctx context.Context) (<-chan Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return nil, ErrMicUnavailable
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	frames := make(chan Frame)
	go d.stream(ctx, frames)
	return frames, nil
}

func (d *OggDevice) stream(ctx context.Context, frames chan<- Frame) {
	defer close(frames)

	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()

	var (
		file *os.File
		ogg  *oggreader.OggReader
	)
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	reopen := func() bool {
		if file != nil {
			file.Close()
		}
		var err error
		file, err = os.Open(d.path)
		if err != nil {
			return false
		}
		ogg, _, err = oggreader.NewWith(file)
		return err == nil
	}

	if !reopen() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		page, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if !reopen() {
				return
			}
			continue
		}
		if err != nil {
			return
		}

		level := float64(len(page)) / levelScale
		if level > 1 {
			level = 1
		}

		select {
		case frames <- Frame{Data: page, Duration: oggPageDuration, Level: level}:
		case <-ctx.Done():
			return
		}
	}
}

func (d *OggDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return nil
	}
	d.stopped = true
	if d.cancel != nil {
		d.cancel()
	}
	return nil
}
