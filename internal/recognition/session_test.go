package recognition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/framesampler"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

type fakeRecognizer struct {
	mu         sync.Mutex
	result     *signclient.RecognizeResult
	err        error
	clearCalls int
	clearErr   error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, jpeg []byte) (*signclient.RecognizeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeRecognizer) ClearSequence(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	return f.clearErr
}

type fakeOverlay struct {
	draws []*signclient.HandInfo
}

func (o *fakeOverlay) Draw(info *signclient.HandInfo) { o.draws = append(o.draws, info) }

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) WriteText(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type recordingPublisher struct {
	updates []updatebus.Update
}

func (p *recordingPublisher) Publish(u updatebus.Update) { p.updates = append(p.updates, u) }

func newTestSession(t *testing.T) (*Session, *fakeRecognizer) {
	t.Helper()
	rec := &fakeRecognizer{}
	s, err := NewSession(Config{}, rec, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	return s, rec
}

func result(sign string, confidence float64) *signclient.RecognizeResult {
	return &signclient.RecognizeResult{Sign: sign, Confidence: confidence, HandDetected: true}
}

func TestNewSession_FailFast(t *testing.T) {
	if _, err := NewSession(Config{}, nil, nil, nil, nil); err == nil {
		t.Error("expected error for nil recognizer")
	}
	if _, err := NewSession(Config{MinConfidence: 1.5}, &fakeRecognizer{}, nil, nil, nil); err == nil {
		t.Error("expected error for min confidence 1.5")
	}
	if _, err := NewSession(Config{HistorySize: -1}, &fakeRecognizer{}, nil, nil, nil); err == nil {
		t.Error("expected error for negative history size")
	}
}

func TestApplyResult_AcceptanceRule(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		sign       string
		confidence float64
		wantText   string
		accepted   bool
	}{
		{"below threshold", "", "hello", 0.42, "", false},
		{"exactly threshold", "", "hello", 0.5, "", false},
		{"first token", "", "hello", 0.91, "hello", true},
		{"duplicate suffix", "hello", "hello", 0.91, "hello", false},
		{"new token", "hello", "world", 0.91, "hello world", true},
		{"held gesture", "hello world", "world", 0.99, "hello world", false},
		{"unknown", "hello", signclient.SignUnknown, 0.99, "hello", false},
		{"empty sign", "hello", "", 0.99, "hello", false},
		{"repetition separated by other token", "a b", "a", 0.9, "a b a", true},
		{"suffix of longer word", "thanks", "s", 0.9, "thanks", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t)
			s.text = tt.text

			got := s.ApplyResult(result(tt.sign, tt.confidence))
			if got != tt.accepted {
				t.Errorf("ApplyResult() = %v, want %v", got, tt.accepted)
			}
			if s.Text() != tt.wantText {
				t.Errorf("Text() = %q, want %q", s.Text(), tt.wantText)
			}
		})
	}
}

// TestApplyResult_NoDoubledTrailingToken feeds the same token many times and
// checks the text never ends with "T T".
func TestApplyResult_NoDoubledTrailingToken(t *testing.T) {
	s, _ := newTestSession(t)
	signs := []string{"hi", "hi", "hi", "there", "there", "hi", "hi"}
	for _, sign := range signs {
		s.ApplyResult(result(sign, 0.9))
	}
	if got := s.Text(); got != "hi there hi" {
		t.Errorf("Text() = %q, want %q", got, "hi there hi")
	}
}

func TestApplyResult_ConfidenceRange(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       float64
	}{
		{"absent", 0, 0},
		{"fraction", 0.5, 50},
		{"full", 1, 100},
		{"above one", 1.5, 100},
		{"negative", -0.25, 0},
		{"not a number", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSession(Config{}, &fakeRecognizer{}, nil, nil, nil)
			if err != nil {
				t.Fatalf("NewSession() failed: %v", err)
			}
			s.ApplyResult(&signclient.RecognizeResult{Sign: signclient.SignUnknown, Confidence: tt.confidence})
			if got := s.Snapshot().Signal.Confidence; got != tt.want {
				t.Errorf("Confidence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyResult_Signals(t *testing.T) {
	overlay := &fakeOverlay{}
	pub := &recordingPublisher{}
	s, err := NewSession(Config{}, &fakeRecognizer{}, overlay, nil, pub)
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}

	s.ApplyResult(&signclient.RecognizeResult{
		Sign:            "hello",
		Confidence:      0.25,
		HandDetected:    true,
		GestureSequence: &signclient.GestureSequence{FrameCount: 4},
		HandInfo: &signclient.HandInfo{
			ThumbTip: &signclient.Point{X: 0.1, Y: 0.1},
			IndexTip: &signclient.Point{X: 0.2, Y: 0.2},
		},
	})

	snap := s.Snapshot()
	if !snap.Signal.HandDetected || snap.Signal.Confidence != 25 {
		t.Errorf("Signal = %+v, want hand detected at 25%%", snap.Signal)
	}
	if snap.Signal.GestureSequence == nil || snap.Signal.GestureSequence.FrameCount != 4 {
		t.Errorf("GestureSequence = %+v", snap.Signal.GestureSequence)
	}
	if len(overlay.draws) != 1 {
		t.Errorf("overlay draws = %d, want 1", len(overlay.draws))
	}
	if len(pub.updates) != 1 || pub.updates[0].Kind != updatebus.KindRecognition {
		t.Errorf("updates = %+v", pub.updates)
	}

	// Next response without gesture data keeps the signal replaced wholesale,
	// except the gesture sequence which is only overwritten when present.
	s.ApplyResult(&signclient.RecognizeResult{Sign: signclient.SignUnknown})
	snap = s.Snapshot()
	if snap.Signal.HandDetected || snap.Signal.Confidence != 0 {
		t.Errorf("Signal = %+v, want reset", snap.Signal)
	}
	if snap.Signal.GestureSequence == nil || snap.Signal.GestureSequence.FrameCount != 4 {
		t.Errorf("GestureSequence = %+v, want kept at 4", snap.Signal.GestureSequence)
	}
	if len(overlay.draws) != 1 {
		t.Errorf("overlay drawn without hand info")
	}
}

func TestClearAndRestore(t *testing.T) {
	s, _ := newTestSession(t)

	s.ClearText()
	if len(s.History()) != 0 {
		t.Fatal("ClearText() on empty text pushed to history")
	}

	for _, text := range []string{"one", "two", "three"} {
		s.text = text
		s.ClearText()
	}

	if got := s.History(); fmt.Sprint(got) != "[three two one]" {
		t.Fatalf("History() = %v, want [three two one]", got)
	}

	if err := s.RestoreFromHistory("two"); err != nil {
		t.Fatalf("RestoreFromHistory() failed: %v", err)
	}
	if s.Text() != "two" {
		t.Errorf("Text() = %q, want two", s.Text())
	}
	if got := s.History(); fmt.Sprint(got) != "[three one]" {
		t.Errorf("History() = %v, want [three one]", got)
	}

	if err := s.RestoreFromHistory("two"); !errors.Is(err, ErrNotInHistory) {
		t.Errorf("second RestoreFromHistory() = %v, want ErrNotInHistory", err)
	}
}

func TestRestore_RemovesExactlyOneDuplicate(t *testing.T) {
	s, _ := newTestSession(t)
	for _, text := range []string{"same", "other", "same"} {
		s.text = text
		s.ClearText()
	}

	if err := s.RestoreFromHistory("same"); err != nil {
		t.Fatalf("RestoreFromHistory() failed: %v", err)
	}
	if got := s.History(); fmt.Sprint(got) != "[other same]" {
		t.Errorf("History() = %v, want [other same]", got)
	}
}

func TestHistoryCapacity(t *testing.T) {
	s, _ := newTestSession(t)
	for i := 1; i <= 11; i++ {
		s.text = fmt.Sprintf("text-%d", i)
		s.ClearText()
	}

	h := s.History()
	if len(h) != DefaultHistorySize {
		t.Fatalf("len(History()) = %d, want %d", len(h), DefaultHistorySize)
	}
	if h[0] != "text-11" || h[len(h)-1] != "text-2" {
		t.Errorf("History() = %v, want text-11..text-2", h)
	}
}

func TestCopyToClipboard(t *testing.T) {
	clip := &fakeClipboard{}
	s, _ := NewSession(Config{}, &fakeRecognizer{}, nil, clip, nil)

	copied, err := s.CopyToClipboard()
	if err != nil || copied {
		t.Errorf("CopyToClipboard() on empty = %v, %v; want false, nil", copied, err)
	}

	s.text = "hello world"
	copied, err = s.CopyToClipboard()
	if err != nil || !copied {
		t.Fatalf("CopyToClipboard() = %v, %v", copied, err)
	}
	if clip.text != "hello world" {
		t.Errorf("clipboard = %q", clip.text)
	}

	clip.err = errors.New("no display")
	if _, err := s.CopyToClipboard(); err == nil {
		t.Error("expected clipboard error")
	}
}

func TestSetMode(t *testing.T) {
	s, rec := newTestSession(t)
	s.text = "hello"

	if err := s.SetMode(context.Background(), ModeStatic); err != nil {
		t.Fatalf("SetMode(static) failed: %v", err)
	}
	if rec.clearCalls != 0 || s.Text() != "hello" {
		t.Error("SetMode to current mode should be a no-op")
	}

	rec.clearErr = errors.New("service down")
	if err := s.SetMode(context.Background(), ModeDynamic); err != nil {
		t.Fatalf("SetMode(dynamic) failed: %v", err)
	}
	if s.Mode() != ModeDynamic {
		t.Errorf("Mode() = %q", s.Mode())
	}
	if s.Text() != "" || fmt.Sprint(s.History()) != "[hello]" {
		t.Errorf("text not cleared to history: text=%q history=%v", s.Text(), s.History())
	}
	if rec.clearCalls != 1 {
		t.Errorf("ClearSequence calls = %d, want 1", rec.clearCalls)
	}

	if err := s.SetMode(context.Background(), Mode("sideways")); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("SetMode(sideways) = %v, want ErrInvalidMode", err)
	}
}

func TestProcess(t *testing.T) {
	s, rec := newTestSession(t)
	rec.result = result("hello", 0.9)

	apply, err := s.Process(context.Background(), &framesampler.Frame{Data: []byte("jpeg")})
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if s.Text() != "" {
		t.Error("Process() mutated state before Apply")
	}
	if stop := apply(); stop {
		t.Error("Apply() requested stop")
	}
	if s.Text() != "hello" {
		t.Errorf("Text() = %q, want hello", s.Text())
	}

	rec.err = errors.New("timeout")
	if _, err := s.Process(context.Background(), &framesampler.Frame{}); err == nil {
		t.Error("Process() expected error")
	}
	if s.Text() != "hello" {
		t.Error("remote error changed text")
	}
}
