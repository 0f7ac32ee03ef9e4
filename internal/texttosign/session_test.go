package texttosign

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
)

type fakeTranslator struct {
	calls  []string
	result *signclient.TranslateResult
	err    error
	block  chan struct{}
}

func (f *fakeTranslator) TranslateText(ctx context.Context, text string) (*signclient.TranslateResult, error) {
	f.calls = append(f.calls, text)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &signclient.TranslateResult{Signs: []signclient.SignToken{{Sign: text}}}, nil
}

func TestTranslate_RejectsBlank(t *testing.T) {
	tr := &fakeTranslator{}
	s, _ := NewSession(Config{}, tr, nil)

	for _, text := range []string{"", "   ", "\t\n"} {
		if _, err := s.Translate(context.Background(), text); !errors.Is(err, ErrEmptyText) {
			t.Errorf("Translate(%q) = %v, want ErrEmptyText", text, err)
		}
	}
	if len(tr.calls) != 0 {
		t.Errorf("network calls = %d, want 0", len(tr.calls))
	}
}

func TestTranslate_GoodMorning(t *testing.T) {
	tr := &fakeTranslator{result: &signclient.TranslateResult{
		Signs: []signclient.SignToken{
			{Sign: "good", ImagePath: "/signs/good.png", MatchType: signclient.MatchExact},
			{Sign: "morning", ImagePath: "/signs/morning.png", MatchType: signclient.MatchStemmed, Original: "mornings"},
		},
	}}
	s, _ := NewSession(Config{}, tr, nil)

	snap, err := s.Translate(context.Background(), "good morning")
	if err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
	if len(snap.Signs) != 2 || snap.Signs[1].Original != "mornings" {
		t.Errorf("Signs = %+v", snap.Signs)
	}
	if len(snap.UnmatchedWords) != 0 {
		t.Errorf("UnmatchedWords = %v", snap.UnmatchedWords)
	}
	if fmt.Sprint(s.Recent()) != "[good morning]" {
		t.Errorf("Recent() = %v", s.Recent())
	}
	if tr.calls[0] != "good morning" {
		t.Errorf("sent %q", tr.calls[0])
	}
}

func TestTranslate_SendsLiteralText(t *testing.T) {
	tr := &fakeTranslator{}
	s, _ := NewSession(Config{}, tr, nil)

	if _, err := s.Translate(context.Background(), "  hello  "); err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
	if tr.calls[0] != "  hello  " {
		t.Errorf("sent %q, want literal text", tr.calls[0])
	}
}

func TestTranslate_FailureKeepsResults(t *testing.T) {
	tr := &fakeTranslator{}
	s, _ := NewSession(Config{}, tr, nil)

	if _, err := s.Translate(context.Background(), "hello"); err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}

	tr.err = &signclient.APIError{Endpoint: "/text-to-sign", StatusCode: 500, Message: "boom"}
	_, err := s.Translate(context.Background(), "world")
	if !signclient.IsAPIError(err) {
		t.Fatalf("Translate() = %v, want APIError", err)
	}

	snap := s.Snapshot()
	if len(snap.Signs) != 1 || snap.Signs[0].Sign != "hello" {
		t.Errorf("Signs = %+v, want previous result kept", snap.Signs)
	}
	if fmt.Sprint(snap.Recent) != "[hello]" {
		t.Errorf("Recent = %v, failed text must not be remembered", snap.Recent)
	}
	if snap.Pending {
		t.Error("Pending = true after failure")
	}
}

func TestRecent_DedupAndCapacity(t *testing.T) {
	s, _ := NewSession(Config{}, &fakeTranslator{}, nil)

	for _, text := range []string{"a", "b", "c", "b", "d", "e", "f", "a"} {
		if _, err := s.Translate(context.Background(), text); err != nil {
			t.Fatalf("Translate(%q) failed: %v", text, err)
		}
	}

	// "b" repeat is not reordered; "a" was evicted by "f" and comes back at front.
	if got := fmt.Sprint(s.Recent()); got != "[a f e d c]" {
		t.Errorf("Recent() = %v, want [a f e d c]", got)
	}
}

func TestClear(t *testing.T) {
	s, _ := NewSession(Config{}, &fakeTranslator{}, nil)
	s.Translate(context.Background(), "hello")

	s.Clear()
	snap := s.Snapshot()
	if snap.Input != "" || len(snap.Signs) != 0 || len(snap.UnmatchedWords) != 0 {
		t.Errorf("Clear() left %+v", snap)
	}
	if len(snap.Recent) != 1 {
		t.Errorf("Clear() touched recent: %v", snap.Recent)
	}
}

func TestTranslate_PendingGuard(t *testing.T) {
	tr := &fakeTranslator{block: make(chan struct{})}
	s, _ := NewSession(Config{}, tr, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Translate(context.Background(), "first")
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !s.Snapshot().Pending {
		if time.Now().After(deadline) {
			t.Fatal("first translation never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.Translate(context.Background(), "second"); !errors.Is(err, ErrPending) {
		t.Errorf("second Translate() = %v, want ErrPending", err)
	}

	close(tr.block)
	if err := <-done; err != nil {
		t.Errorf("first Translate() failed: %v", err)
	}
}
