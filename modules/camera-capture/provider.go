package cameracapture

import "context"

// CameraProvider defines the contract for camera resource management
//
// Implementations must guarantee:
//   - At most one device handle is held at any time
//   - Acquire() on an active camera is a no-op
//   - Release() is idempotent (safe to call multiple times, or when never acquired)
//   - CaptureFrame() never blocks on the device
//   - Status() and Stats() are thread-safe
type CameraProvider interface {
	// Acquire requests exclusive access to the camera and starts playback.
	//
	// Blocks until the device is playing, the context is cancelled, or the
	// configured start timeout elapses. On failure the session moves to
	// StateError with a descriptive LastError; the caller may retry.
	//
	// Returns ErrUnsupported without touching any device when the platform
	// has no camera capability.
	Acquire(ctx context.Context) error

	// Release stops all device tracks and clears the latest frame.
	//
	// Safe to call when not active. A Release issued while an Acquire is in
	// flight makes that Acquire close its device as soon as it opens.
	Release() error

	// CaptureFrame samples the newest encoded still.
	//
	// Returns (nil, false) when the camera is not active or the surface is not
	// ready (no frame yet, stream ended, or newest frame is stale).
	CaptureFrame() (*Frame, bool)

	// Status returns the current session state.
	Status() Status

	// Stats returns camera telemetry.
	Stats() CameraStats
}

// Device opens camera sources. The GStreamer V4L2 implementation is returned
// by NewV4L2Device; tests substitute their own.
type Device interface {
	// Available reports whether the platform has any camera capability.
	// A non-nil result disables the Manager permanently.
	Available() error

	// Open acquires the device and starts playback.
	Open(ctx context.Context, cfg DeviceConfig) (Source, error)
}

// Source is an open device handle.
type Source interface {
	// Latest returns the newest frame, or false if the surface is not ready.
	Latest() (Frame, bool)

	// Err returns nil while the stream is healthy. After end of stream or a
	// runtime device error it returns an error wrapping ErrStreamEnded.
	Err() error

	// Close stops the device tracks. Must be idempotent.
	Close() error
}
