package framesampler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/framesampler"
)

type fakeSource struct {
	ready   atomic.Bool
	noFrame atomic.Bool
	seq     atomic.Uint64
}

func newFakeSource() *fakeSource {
	s := &fakeSource{}
	s.ready.Store(true)
	return s
}

func (s *fakeSource) Ready() bool { return s.ready.Load() }

func (s *fakeSource) Sample() (*framesampler.Frame, bool) {
	if s.noFrame.Load() {
		return nil, false
	}
	return &framesampler.Frame{
		Seq:       s.seq.Add(1),
		Timestamp: time.Now(),
		Data:      []byte("jpeg"),
	}, true
}

// slowWorker blocks each call for delay and records concurrency.
type slowWorker struct {
	delay     time.Duration
	err       error
	current   atomic.Int32
	maxSeen   atomic.Int32
	calls     atomic.Int32
	applied   atomic.Int32
	stopAfter int32
}

func (w *slowWorker) Process(ctx context.Context, frame *framesampler.Frame) (framesampler.Apply, error) {
	n := w.current.Add(1)
	defer w.current.Add(-1)
	for {
		prev := w.maxSeen.Load()
		if n <= prev || w.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	w.calls.Add(1)

	select {
	case <-time.After(w.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if w.err != nil {
		return nil, w.err
	}
	return func() bool {
		count := w.applied.Add(1)
		return w.stopAfter > 0 && count >= w.stopAfter
	}, nil
}

func TestNew_FailFast(t *testing.T) {
	worker := &slowWorker{}
	src := newFakeSource()

	tests := []struct {
		name   string
		cfg    framesampler.Config
		src    framesampler.Source
		worker framesampler.Worker
	}{
		{"nil source", framesampler.Config{}, nil, worker},
		{"nil worker", framesampler.Config{}, src, nil},
		{"negative interval", framesampler.Config{Interval: -time.Second}, src, worker},
		{"negative timeout", framesampler.Config{CallTimeout: -time.Second}, src, worker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := framesampler.New(tt.cfg, tt.src, tt.worker); err == nil {
				t.Fatal("New() expected error, got nil")
			}
		})
	}
}

// TestSingleFlight validates that a slow remote call causes ticks to be
// dropped instead of overlapping calls.
//
// Scenario:
//  1. Interval 10ms, each call takes 80ms
//  2. Capture for ~300ms
//  3. Assert: never more than one concurrent call, and ticks were dropped
func TestSingleFlight(t *testing.T) {
	worker := &slowWorker{delay: 80 * time.Millisecond}
	s, err := framesampler.New(framesampler.Config{Interval: 10 * time.Millisecond}, newFakeSource(), worker)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	if err := s.StartCapture(); err != nil {
		t.Fatalf("StartCapture() failed: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	s.StopCapture()

	if got := worker.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent calls = %d, want 1", got)
	}

	stats := s.Stats()
	if stats.TicksDroppedBusy == 0 {
		t.Errorf("TicksDroppedBusy = 0, want > 0 (ticks=%d)", stats.Ticks)
	}
	if stats.CyclesIssued == 0 {
		t.Error("CyclesIssued = 0, want > 0")
	}

	t.Logf("✅ ticks=%d issued=%d dropped=%d", stats.Ticks, stats.CyclesIssued, stats.TicksDroppedBusy)
}

// TestStopDiscardsLateResult validates epoch fencing: a call outstanding at
// StopCapture completes, but its result is not applied.
func TestStopDiscardsLateResult(t *testing.T) {
	worker := &slowWorker{delay: 100 * time.Millisecond}
	s, err := framesampler.New(framesampler.Config{Interval: 10 * time.Millisecond}, newFakeSource(), worker)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	if err := s.StartCapture(); err != nil {
		t.Fatalf("StartCapture() failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for !s.IsProcessing() {
		if time.Now().After(deadline) {
			t.Fatal("no call issued within 1s")
		}
		time.Sleep(2 * time.Millisecond)
	}

	s.StopCapture()
	if s.IsCapturing() {
		t.Error("IsCapturing() = true after StopCapture")
	}

	time.Sleep(200 * time.Millisecond)

	if got := worker.applied.Load(); got != 0 {
		t.Errorf("applied = %d after stop, want 0", got)
	}
	if got := s.Stats().StaleDiscarded; got != 1 {
		t.Errorf("StaleDiscarded = %d, want 1", got)
	}
	if s.IsProcessing() {
		t.Error("IsProcessing() = true after call settled")
	}
}

// TestFailureReleasesToken validates that a failing worker does not wedge
// the sampler.
func TestFailureReleasesToken(t *testing.T) {
	worker := &slowWorker{err: errors.New("connection refused")}
	s, err := framesampler.New(framesampler.Config{}, newFakeSource(), worker)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	for i := 0; i < 3; i++ {
		if err := s.CaptureOnce(context.Background()); err == nil || err.Error() != "connection refused" {
			t.Fatalf("CaptureOnce() #%d = %v, want connection refused", i, err)
		}
	}

	stats := s.Stats()
	if stats.Failures != 3 {
		t.Errorf("Failures = %d, want 3", stats.Failures)
	}
	if stats.TicksDroppedBusy != 0 {
		t.Errorf("TicksDroppedBusy = %d, want 0", stats.TicksDroppedBusy)
	}
}

// TestCallTimeout validates a hung call is abandoned after CallTimeout.
func TestCallTimeout(t *testing.T) {
	worker := &slowWorker{delay: time.Hour}
	s, err := framesampler.New(framesampler.Config{CallTimeout: 30 * time.Millisecond}, newFakeSource(), worker)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	err = s.CaptureOnce(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("CaptureOnce() = %v, want deadline exceeded", err)
	}
	if s.IsProcessing() {
		t.Error("IsProcessing() = true after timeout")
	}
}

func TestCaptureOnce_Preconditions(t *testing.T) {
	t.Run("not ready", func(t *testing.T) {
		src := newFakeSource()
		src.ready.Store(false)
		s, _ := framesampler.New(framesampler.Config{}, src, &slowWorker{})
		defer s.Close()

		if err := s.CaptureOnce(context.Background()); !errors.Is(err, framesampler.ErrNotReady) {
			t.Errorf("CaptureOnce() = %v, want ErrNotReady", err)
		}
		if err := s.StartCapture(); !errors.Is(err, framesampler.ErrNotReady) {
			t.Errorf("StartCapture() = %v, want ErrNotReady", err)
		}
	})

	t.Run("no frame", func(t *testing.T) {
		src := newFakeSource()
		src.noFrame.Store(true)
		worker := &slowWorker{}
		s, _ := framesampler.New(framesampler.Config{}, src, worker)
		defer s.Close()

		if err := s.CaptureOnce(context.Background()); !errors.Is(err, framesampler.ErrNoFrame) {
			t.Errorf("CaptureOnce() = %v, want ErrNoFrame", err)
		}
		if worker.calls.Load() != 0 {
			t.Errorf("worker called %d times, want 0", worker.calls.Load())
		}
	})

	t.Run("while capturing", func(t *testing.T) {
		s, _ := framesampler.New(framesampler.Config{Interval: time.Hour}, newFakeSource(), &slowWorker{})
		defer s.Close()

		if err := s.StartCapture(); err != nil {
			t.Fatalf("StartCapture() failed: %v", err)
		}
		if err := s.CaptureOnce(context.Background()); !errors.Is(err, framesampler.ErrCapturing) {
			t.Errorf("CaptureOnce() = %v, want ErrCapturing", err)
		}
	})

	t.Run("busy", func(t *testing.T) {
		worker := &slowWorker{delay: 100 * time.Millisecond}
		s, _ := framesampler.New(framesampler.Config{}, newFakeSource(), worker)
		defer s.Close()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.CaptureOnce(context.Background())
		}()

		deadline := time.Now().Add(time.Second)
		for !s.IsProcessing() {
			if time.Now().After(deadline) {
				t.Fatal("first capture never started")
			}
			time.Sleep(time.Millisecond)
		}

		if err := s.CaptureOnce(context.Background()); !errors.Is(err, framesampler.ErrBusy) {
			t.Errorf("second CaptureOnce() = %v, want ErrBusy", err)
		}
		wg.Wait()

		if got := worker.applied.Load(); got != 1 {
			t.Errorf("applied = %d, want 1", got)
		}
	})
}

// TestApplyCanStopCapture validates that returning true from Apply ends the
// loop without deadlocking.
func TestApplyCanStopCapture(t *testing.T) {
	worker := &slowWorker{stopAfter: 3}
	s, err := framesampler.New(framesampler.Config{Interval: 5 * time.Millisecond}, newFakeSource(), worker)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	if err := s.StartCapture(); err != nil {
		t.Fatalf("StartCapture() failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.IsCapturing() {
		if time.Now().After(deadline) {
			t.Fatal("capture did not stop after target")
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(50 * time.Millisecond)
	if got := worker.applied.Load(); got != 3 {
		t.Errorf("applied = %d, want exactly 3", got)
	}
}

func TestStartCapture_Idempotent(t *testing.T) {
	s, _ := framesampler.New(framesampler.Config{Interval: time.Hour}, newFakeSource(), &slowWorker{})
	defer s.Close()

	for i := 0; i < 3; i++ {
		if err := s.StartCapture(); err != nil {
			t.Fatalf("StartCapture() #%d failed: %v", i, err)
		}
	}
	epoch := s.Epoch()

	s.StopCapture()
	s.StopCapture()
	if got := s.Epoch(); got != epoch+2 {
		t.Errorf("Epoch() = %d, want %d (every stop advances)", got, epoch+2)
	}
}

func TestClose(t *testing.T) {
	s, _ := framesampler.New(framesampler.Config{}, newFakeSource(), &slowWorker{})

	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
	if err := s.StartCapture(); !errors.Is(err, framesampler.ErrClosed) {
		t.Errorf("StartCapture() after Close = %v, want ErrClosed", err)
	}
}
