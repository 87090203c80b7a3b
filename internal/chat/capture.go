package chat

import (
	"errors"
	"sync"
	"time"
)

// SilenceTimeout is the inactivity window after the last transcript update
// before capture auto-stops (barge-in-free end of turn).
const SilenceTimeout = 3000 * time.Millisecond

// ErrCapabilityUnavailable is returned by Start when no speech-recognition
// source is attached. The caller must surface it to the user; capture never
// degrades to a silent no-op.
var ErrCapabilityUnavailable = errors.New("speech recognition unavailable")

// EndReason says why a capture session ended.
type EndReason int

const (
	EndStopped EndReason = iota // explicit stop
	EndSilence                  // silence timeout fired
	EndError                    // underlying engine ended or errored
)

// Capture wraps a continuous speech-recognition stream. The recognition
// engine itself runs in the browser; the client streams the full accumulated
// utterance text (not deltas) to this adapter, which owns the silence policy
// and the recording/waveform flags.
//
// A resettable timer is armed on every transcript update; if no update
// arrives within SilenceTimeout, capture stops automatically.
type Capture struct {
	mu         sync.Mutex
	available  bool
	active     bool
	waveform   bool
	transcript string
	timeout    time.Duration
	silence    *time.Timer

	// onEnd receives the accumulated transcript whenever capture ends,
	// whatever the reason. It runs outside the lock.
	onEnd func(transcript string, reason EndReason)
}

func NewCapture(onEnd func(string, EndReason)) *Capture {
	return &Capture{timeout: SilenceTimeout, onEnd: onEnd}
}

// SetAvailable marks whether a recognition source is attached. The WebSocket
// voice bridge toggles this when the browser connects/disconnects.
func (c *Capture) SetAvailable(ok bool) {
	c.mu.Lock()
	c.available = ok
	c.mu.Unlock()
}

// Start begins a capture session. A prior uncompleted session is aborted
// (its transcript discarded) before starting fresh.
func (c *Capture) Start() error {
	c.mu.Lock()
	if !c.available {
		c.mu.Unlock()
		return ErrCapabilityUnavailable
	}
	c.disarmLocked()
	c.transcript = ""
	c.active = true
	c.waveform = true
	c.mu.Unlock()
	return nil
}

// Update records the full accumulated utterance text and rearms the silence
// timer. Updates after capture ended are ignored.
func (c *Capture) Update(text string) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.transcript = text
	c.waveform = true
	if c.silence == nil {
		c.silence = time.AfterFunc(c.timeout, func() { c.end(EndSilence) })
	} else {
		c.silence.Stop()
		c.silence.Reset(c.timeout)
	}
	c.mu.Unlock()
}

// Stop ends capture explicitly.
func (c *Capture) Stop() { c.end(EndStopped) }

// RecognitionEnded signals that the underlying engine stopped on its own
// (idle or error).
func (c *Capture) RecognitionEnded() { c.end(EndError) }

func (c *Capture) end(reason EndReason) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.disarmLocked()
	c.active = false
	c.waveform = false
	text := c.transcript
	c.transcript = ""
	onEnd := c.onEnd
	c.mu.Unlock()
	if onEnd != nil {
		onEnd(text, reason)
	}
}

func (c *Capture) disarmLocked() {
	if c.silence != nil {
		c.silence.Stop()
		c.silence = nil
	}
}

// IsRecording reports whether a capture session is active.
func (c *Capture) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// ShowWaveform reports whether the waveform indicator should be visible.
func (c *Capture) ShowWaveform() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waveform
}

// Transcript returns the current accumulated utterance.
func (c *Capture) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}
