package framesampler

import (
	"context"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/framesampler/internal"
)

// Frame is re-exported from internal package to avoid import cycles.
// See internal/types.go for full documentation.
type Frame = internal.Frame

// Source is re-exported from internal package.
type Source = internal.Source

// Worker is re-exported from internal package.
type Worker = internal.Worker

// Apply is re-exported from internal package.
type Apply = internal.Apply

// Config is re-exported from internal package.
type Config = internal.Config

// SamplerStats is re-exported from internal package.
type SamplerStats = internal.SamplerStats

// Public errors
var (
	ErrNotReady  = internal.ErrNotReady
	ErrCapturing = internal.ErrCapturing
	ErrBusy      = internal.ErrBusy
	ErrNoFrame   = internal.ErrNoFrame
	ErrStale     = internal.ErrStale
	ErrClosed    = internal.ErrClosed
)

// WorkerFunc adapts an ordinary function to the Worker interface.
type WorkerFunc func(ctx context.Context, frame *Frame) (Apply, error)

// Process calls f(ctx, frame).
func (f WorkerFunc) Process(ctx context.Context, frame *Frame) (Apply, error) {
	return f(ctx, frame)
}

// Sampler is the public interface for periodic single-flight sampling.
//
// Design:
//   - Lifecycle: New() → StartCapture()/CaptureOnce() → StopCapture() → Close()
//   - Thread-safe: all methods safe for concurrent use
//
// Implementation is in internal/sampler.go (hidden from clients).
type Sampler interface {
	// StartCapture begins the fixed-interval loop.
	//
	// Returns ErrNotReady when the source is not ready, ErrClosed after
	// Close. Idempotent while capturing.
	StartCapture() error

	// StopCapture ends the loop and advances the epoch.
	//
	// Outstanding calls are left to settle but their results are discarded.
	// Safe to call when idle. Must not be called from inside an Apply;
	// return true from the Apply instead.
	StopCapture()

	// CaptureOnce runs one cycle and waits for it to settle.
	//
	// Errors:
	//   - ErrCapturing: the loop is running
	//   - ErrNotReady: the source is not ready
	//   - ErrBusy: a call is already outstanding (single-flight)
	//   - ErrNoFrame: the source had no frame
	//   - ErrStale: the result was discarded by a concurrent StopCapture
	//   - any error returned by the Worker (including deadline exceeded)
	CaptureOnce(ctx context.Context) error

	// IsCapturing reports whether the loop runs.
	IsCapturing() bool

	// IsProcessing reports whether a remote call is outstanding.
	IsProcessing() bool

	// Epoch returns the fencing epoch.
	Epoch() uint64

	// Stats returns operational statistics (non-blocking snapshot).
	Stats() SamplerStats

	// Close stops capture, cancels outstanding calls and waits briefly for
	// them to settle. Idempotent.
	Close() error
}

// New creates an idle Sampler.
//
// Zero Interval and CallTimeout take defaults (1s and 10s). Returns an error
// when src or worker is nil.
func New(cfg Config, src Source, worker Worker) (Sampler, error) {
	s, err := internal.NewSampler(cfg, src, worker)
	if err != nil {
		return nil, err
	}
	return s, nil
}
