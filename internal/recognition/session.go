// Package recognition holds the sign-to-text session: the running text built
// from accepted tokens, the undo history and the latest auxiliary signals.
package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/framesampler"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

const clearSequenceTimeout = 5 * time.Second

// Session is the recognition state. It is the framesampler.Worker of the
// recognition loop. Safe for concurrent use.
type Session struct {
	cfg       Config
	client    Recognizer
	overlay   OverlaySink
	clipboard ClipboardSink
	pub       Publisher

	mu       sync.Mutex
	text     string
	history  []string
	signal   Signal
	mode     Mode
	lastSign string
}

// NewSession creates an empty session in static mode. overlay, clipboard and
// pub are optional.
func NewSession(cfg Config, client Recognizer, overlay OverlaySink, clipboard ClipboardSink, pub Publisher) (*Session, error) {
	if client == nil {
		return nil, fmt.Errorf("recognition: recognizer is required")
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence >= 1 {
		return nil, fmt.Errorf("recognition: min confidence must be in [0, 1), got %v", cfg.MinConfidence)
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.HistorySize < 0 {
		return nil, fmt.Errorf("recognition: history size must not be negative")
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = DefaultHistorySize
	}

	return &Session{
		cfg:       cfg,
		client:    client,
		overlay:   overlay,
		clipboard: clipboard,
		pub:       pub,
		mode:      ModeStatic,
	}, nil
}

// Process sends one frame to the service. The returned Apply updates the
// session; the sampler runs it only if the cycle is still current.
func (s *Session) Process(ctx context.Context, frame *framesampler.Frame) (framesampler.Apply, error) {
	res, err := s.client.Recognize(ctx, frame.Data)
	if err != nil {
		return nil, err
	}

	return func() bool {
		s.ApplyResult(res)
		return false
	}, nil
}

// ApplyResult folds one successful response into the session and reports
// whether its sign was appended to the text.
func (s *Session) ApplyResult(res *signclient.RecognizeResult) bool {
	if res == nil {
		return false
	}

	s.mu.Lock()

	s.signal = Signal{
		HandDetected:    res.HandDetected,
		Confidence:      percent(res.Confidence),
		GestureSequence: s.signal.GestureSequence,
	}
	if res.GestureSequence != nil {
		seq := *res.GestureSequence
		s.signal.GestureSequence = &seq
	}

	accepted := s.accepts(res)
	if accepted {
		if s.text == "" {
			s.text = res.Sign
		} else {
			s.text = s.text + " " + res.Sign
		}
		s.lastSign = res.Sign
	}
	snap := s.snapshotLocked()

	s.mu.Unlock()

	if s.overlay != nil && res.HandInfo.HasPoints() {
		s.overlay.Draw(res.HandInfo)
	}

	if accepted {
		slog.Debug("recognition: token accepted",
			"sign", res.Sign,
			"confidence", res.Confidence,
			"text_len", len(snap.Text),
		)
	}

	s.publish(snap)
	return accepted
}

// percent scales a 0-1 confidence to 0-100, clamping out-of-range values.
func percent(confidence float64) float64 {
	switch {
	case math.IsNaN(confidence), confidence <= 0:
		return 0
	case confidence >= 1:
		return 100
	}
	return confidence * 100
}

// accepts applies the token acceptance rule. Caller holds mu.
//
// The equality/suffix check only suppresses a held gesture repeated on
// consecutive ticks; "a b a" is still possible.
func (s *Session) accepts(res *signclient.RecognizeResult) bool {
	if !res.Known() {
		return false
	}
	if res.Confidence <= s.cfg.MinConfidence {
		return false
	}
	if res.Sign == s.text || strings.HasSuffix(s.text, res.Sign) {
		return false
	}
	return true
}

// ClearText moves non-empty text to the front of the history and empties it.
func (s *Session) ClearText() {
	s.mu.Lock()
	if s.text == "" {
		s.mu.Unlock()
		return
	}
	s.history = pushFront(s.history, s.text, s.cfg.HistorySize)
	s.text = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
}

// RestoreFromHistory makes entry the current text and removes exactly one
// matching entry from the history. The current text is replaced, not saved.
func (s *Session) RestoreFromHistory(entry string) error {
	s.mu.Lock()
	history, ok := removeFirst(s.history, entry)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotInHistory, entry)
	}
	s.history = history
	s.text = entry
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

// CopyToClipboard hands the text to the clipboard. Returns false without error
// when there is nothing to copy.
func (s *Session) CopyToClipboard() (bool, error) {
	text := s.Text()
	if text == "" {
		return false, nil
	}
	if s.clipboard == nil {
		return false, ErrNoClipboard
	}
	if err := s.clipboard.WriteText(text); err != nil {
		return false, fmt.Errorf("recognition: copy to clipboard: %w", err)
	}
	return true, nil
}

// SetMode switches detection mode. A change clears the text (with the history
// rule) and resets the server-side gesture sequence; failure of the latter is
// logged only.
func (s *Session) SetMode(ctx context.Context, mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	if s.mode == mode {
		s.mu.Unlock()
		return nil
	}
	s.mode = mode
	s.mu.Unlock()

	s.ClearText()
	s.ResetSequence(ctx)

	slog.Info("recognition: detection mode changed", "mode", mode)
	s.publish(s.Snapshot())
	return nil
}

// ResetSequence asks the service to drop its gesture sequence and clears the
// local gesture progress. Best effort.
func (s *Session) ResetSequence(ctx context.Context) {
	s.mu.Lock()
	s.signal.GestureSequence = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, clearSequenceTimeout)
	defer cancel()

	if err := s.client.ClearSequence(ctx); err != nil {
		slog.Warn("recognition: failed to clear gesture sequence", "error", err)
	}
}

// Text returns the running text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// History returns a copy of the history, most recent first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// Mode returns the detection mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Snapshot returns a copy of the full state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Text:     s.text,
		History:  append([]string{}, s.history...),
		Signal:   s.signal,
		Mode:     s.mode,
		LastSign: s.lastSign,
	}
	if s.signal.GestureSequence != nil {
		seq := *s.signal.GestureSequence
		snap.Signal.GestureSequence = &seq
	}
	return snap
}

func (s *Session) publish(snap Snapshot) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(updatebus.Update{Kind: updatebus.KindRecognition, Payload: snap})
}
