package internal

import (
	"context"
	"errors"
	"time"
)

// Frame is one encoded still handed from a Source to a Worker.
//
// Immutability contract: the sampler never modifies Data, and workers
// must not either.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Data      []byte
	TraceID   string
}

// Source provides frames for sampling cycles.
type Source interface {
	// Ready reports whether the source can currently produce frames
	// (e.g., the camera is active). Capture cannot start unless it is.
	Ready() bool

	// Sample returns the newest frame without blocking, or false when no
	// frame is available. A false result skips the tick.
	Sample() (*Frame, bool)
}

// Apply is the deferred effect of one successful cycle. It runs only when the
// cycle is still current (no StopCapture since it was issued). Returning true
// ends the capture loop, as StopCapture would.
type Apply func() (stop bool)

// Worker performs the remote call for one frame.
type Worker interface {
	// Process is called with a context bounded by Config.CallTimeout.
	// A nil Apply with a nil error is a successful cycle with no effect.
	Process(ctx context.Context, frame *Frame) (Apply, error)
}

// Config contains sampler settings.
type Config struct {
	// Name identifies the sampler in logs (e.g., "recognition", "training").
	Name string

	// Interval is the fixed tick period (default 1s).
	Interval time.Duration

	// CallTimeout bounds each Worker.Process call (default 10s). Without it a
	// hung call would hold the in-flight marker forever.
	CallTimeout time.Duration
}

// SamplerStats is a snapshot of sampler operational state.
type SamplerStats struct {
	Name string

	// IsCapturing is true while the periodic loop runs.
	IsCapturing bool

	// IsProcessing is true while a remote call is outstanding.
	IsProcessing bool

	// Epoch advances on every StopCapture; cycles issued under an older
	// epoch are discarded when they settle.
	Epoch uint64

	// Ticks counts timer ticks observed by the loop.
	Ticks uint64

	// TicksDroppedBusy counts ticks (and single captures) skipped because a
	// call was already outstanding. This is the single-flight drop counter.
	TicksDroppedBusy uint64

	// TicksNoFrame counts ticks skipped because the source had no frame.
	TicksNoFrame uint64

	// CyclesIssued counts remote calls started.
	CyclesIssued uint64

	// CyclesApplied counts results applied to state.
	CyclesApplied uint64

	// Failures counts remote calls that returned an error (including timeouts).
	Failures uint64

	// StaleDiscarded counts successful results dropped because the epoch moved.
	StaleDiscarded uint64

	// LastLatency is the duration of the most recent settled call.
	LastLatency time.Duration

	// LastCycleAt is when the most recent call settled.
	LastCycleAt time.Time
}

// Internal errors - mapped to public errors in framesampler package
var (
	ErrNotReady  = errors.New("framesampler: source not ready")
	ErrCapturing = errors.New("framesampler: single capture disabled while capturing")
	ErrBusy      = errors.New("framesampler: a call is already in flight")
	ErrNoFrame   = errors.New("framesampler: no frame available")
	ErrStale     = errors.New("framesampler: result discarded, capture was stopped")
	ErrClosed    = errors.New("framesampler: sampler is closed")
)
