// Package speech reads assistant replies aloud through the platform's
// speech synthesiser. At most one utterance is audible at a time.
package speech

import (
	"log/slog"
	"sync"
)

// DefaultRate is the speaking rate multiplier applied to every utterance.
const DefaultRate = 1.1

// Synthesizer starts and cancels utterances.
type Synthesizer interface {
	// Speak starts speaking text without waiting for it to finish.
	Speak(text string, rate float64) error

	// Cancel stops every pending or in-progress utterance.
	Cancel()
}

// Output gates a Synthesizer behind the user's mute toggle.
type Output struct {
	synth  Synthesizer
	rate   float64
	logger *slog.Logger

	mu    sync.Mutex
	muted bool
}

// NewOutput creates an Output. A nil synth is treated as Silent.
func NewOutput(synth Synthesizer, rate float64, muted bool, logger *slog.Logger) *Output {
	if synth == nil {
		synth = Silent{}
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Output{synth: synth, rate: rate, muted: muted, logger: logger}
}

// Speak replaces whatever is being spoken with text. No-op while muted.
func (o *Output) Speak(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.muted || text == "" {
		return
	}

	o.synth.Cancel()
	if err := o.synth.Speak(text, o.rate); err != nil {
		o.logger.Debug("speech synthesis failed", "error", err)
	}
}

// ToggleMute flips the mute flag, silences any utterance and returns the
// new state.
func (o *Output) ToggleMute() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = !o.muted
	o.synth.Cancel()
	return o.muted
}

// Muted reports the mute flag.
func (o *Output) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// Cancel silences any utterance without touching the mute flag.
func (o *Output) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.synth.Cancel()
}

// Silent is a Synthesizer that never makes a sound.
type Silent struct{}

func (Silent) Speak(string, float64) error { return nil }
func (Silent) Cancel()                     {}
