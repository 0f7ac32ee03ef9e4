package internal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultInterval    = 1 * time.Second
	defaultCallTimeout = 10 * time.Second
	closeTimeout       = 3 * time.Second
)

type sampler struct {
	cfg    Config
	src    Source
	worker Worker

	// --- Single-flight ---

	inflight   chan struct{} // depth-1 token: full while a call is outstanding
	processing atomic.Bool   // true only while the remote call runs

	// --- Loop lifecycle ---

	mu        sync.Mutex         // Protects capturing, loopStop, loopDone
	capturing bool               // True iff a loop goroutine (timer) exists
	loopStop  context.CancelFunc // Cancels the loop goroutine
	loopDone  chan struct{}      // Closed when the loop goroutine exits

	// --- Stale-result fencing ---

	fence sync.RWMutex // Apply holds RLock, StopCapture holds Lock to advance epoch
	epoch atomic.Uint64

	// --- Shutdown ---

	baseCtx    context.Context // Parent of every call context
	baseCancel context.CancelFunc
	cycles     sync.WaitGroup // Tracks outstanding cycle goroutines
	closed     atomic.Bool

	// --- Operational Stats ---

	ticks          atomic.Uint64
	droppedBusy    atomic.Uint64
	noFrame        atomic.Uint64
	issued         atomic.Uint64
	applied        atomic.Uint64
	failures       atomic.Uint64
	staleDiscarded atomic.Uint64
	lastLatency    atomic.Int64
	lastCycleAt    atomic.Int64
}

// NewSampler validates the configuration and returns an idle sampler.
func NewSampler(cfg Config, src Source, worker Worker) (*sampler, error) {
	if src == nil {
		return nil, fmt.Errorf("framesampler: source is required")
	}
	if worker == nil {
		return nil, fmt.Errorf("framesampler: worker is required")
	}
	if cfg.Interval < 0 || cfg.CallTimeout < 0 {
		return nil, fmt.Errorf("framesampler: interval and call timeout must not be negative")
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Name == "" {
		cfg.Name = "sampler"
	}

	s := &sampler{
		cfg:      cfg,
		src:      src,
		worker:   worker,
		inflight: make(chan struct{}, 1),
	}
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())
	return s, nil
}

// StartCapture moves Idle → Capturing. Idempotent while capturing.
func (s *sampler) StartCapture() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.src.Ready() {
		return ErrNotReady
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capturing {
		return nil
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	done := make(chan struct{})
	s.capturing = true
	s.loopStop = cancel
	s.loopDone = done

	epoch := s.epoch.Load()
	go s.loop(ctx, done, epoch)

	slog.Info("framesampler: capture started",
		"sampler", s.cfg.Name,
		"interval", s.cfg.Interval,
		"epoch", epoch,
	)
	return nil
}

// StopCapture moves Capturing → Idle and advances the epoch.
//
// The epoch advances even when already idle, so a single capture still in
// flight is fenced too. Outstanding calls are not cancelled; their results
// are discarded when they settle. After StopCapture returns no result issued
// before it will be applied.
func (s *sampler) StopCapture() {
	s.mu.Lock()
	wasCapturing := s.capturing
	stop, done := s.loopStop, s.loopDone
	s.capturing = false
	s.loopStop, s.loopDone = nil, nil
	s.mu.Unlock()

	if wasCapturing {
		stop()
		<-done
	}

	s.fence.Lock()
	epoch := s.epoch.Add(1)
	s.fence.Unlock()

	if wasCapturing {
		slog.Info("framesampler: capture stopped",
			"sampler", s.cfg.Name,
			"epoch", epoch,
			"processing", s.processing.Load(),
		)
	}
}

// CaptureOnce runs exactly one cycle now, under the same single-flight rule,
// and waits for it to settle (or ctx to end; the call then continues in the
// background and its result is still applied if current).
func (s *sampler) CaptureOnce(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.IsCapturing() {
		return ErrCapturing
	}
	if !s.src.Ready() {
		return ErrNotReady
	}

	epoch := s.epoch.Load()
	frame, err := s.begin()
	if err != nil {
		return err
	}

	result := make(chan error, 1)
	go func() {
		result <- s.run(frame, epoch)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop drives periodic ticks until cancelled.
func (s *sampler) loop(ctx context.Context, done chan struct{}, epoch uint64) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(epoch)
		}
	}
}

// tick attempts one cycle. Never blocks: a busy sampler drops the tick.
func (s *sampler) tick(epoch uint64) {
	s.ticks.Add(1)

	frame, err := s.begin()
	if err != nil {
		return
	}

	go func() {
		_ = s.run(frame, epoch)
	}()
}

// begin takes the in-flight token and a frame. On success the caller owns the
// token and must hand it to run.
func (s *sampler) begin() (*Frame, error) {
	select {
	case s.inflight <- struct{}{}:
	default:
		s.droppedBusy.Add(1)
		slog.Debug("framesampler: call in flight, dropping tick", "sampler", s.cfg.Name)
		return nil, ErrBusy
	}

	frame, ok := s.src.Sample()
	if !ok || frame == nil {
		<-s.inflight
		s.noFrame.Add(1)
		slog.Debug("framesampler: no frame, skipping tick", "sampler", s.cfg.Name)
		return nil, ErrNoFrame
	}

	s.processing.Store(true)
	s.cycles.Add(1)
	s.issued.Add(1)
	return frame, nil
}

// run issues the call for frame and settles the cycle. The in-flight token is
// released unconditionally, after the result (if any) has been applied.
func (s *sampler) run(frame *Frame, epoch uint64) error {
	defer s.cycles.Done()
	defer func() {
		s.processing.Store(false)
		<-s.inflight
	}()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	apply, err := s.worker.Process(ctx, frame)
	latency := time.Since(start)
	s.lastLatency.Store(int64(latency))
	s.lastCycleAt.Store(time.Now().UnixNano())

	if err != nil {
		s.failures.Add(1)
		slog.Warn("framesampler: call failed",
			"sampler", s.cfg.Name,
			"seq", frame.Seq,
			"trace_id", frame.TraceID,
			"latency", latency,
			"error", err,
		)
		return err
	}

	stop, err := s.applyIfCurrent(epoch, apply)
	if err != nil {
		return err
	}

	if stop {
		s.StopCapture()
	}
	return nil
}

func (s *sampler) applyIfCurrent(epoch uint64, apply Apply) (bool, error) {
	s.fence.RLock()
	defer s.fence.RUnlock()

	if s.epoch.Load() != epoch {
		s.staleDiscarded.Add(1)
		slog.Debug("framesampler: discarding stale result",
			"sampler", s.cfg.Name,
			"cycle_epoch", epoch,
			"current_epoch", s.epoch.Load(),
		)
		return false, ErrStale
	}

	s.applied.Add(1)
	if apply == nil {
		return false, nil
	}
	return apply(), nil
}

// IsCapturing reports whether the periodic loop runs.
func (s *sampler) IsCapturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}

// IsProcessing reports whether a call is outstanding.
func (s *sampler) IsProcessing() bool {
	return s.processing.Load()
}

// Epoch returns the current fencing epoch.
func (s *sampler) Epoch() uint64 {
	return s.epoch.Load()
}

// Close stops capture, cancels outstanding calls and waits for them to settle.
// Idempotent.
func (s *sampler) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.StopCapture()
	s.baseCancel()

	done := make(chan struct{})
	go func() {
		s.cycles.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(closeTimeout):
		slog.Warn("framesampler: close timeout exceeded, calls may still be running", "sampler", s.cfg.Name)
		return fmt.Errorf("framesampler: close timeout exceeded")
	}
}
