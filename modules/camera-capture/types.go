package cameracapture

import (
	"fmt"
	"time"
)

// Frame represents a single encoded still sampled from the camera
type Frame struct {
	// Seq is the monotonic sequence number assigned by the pipeline
	Seq uint64
	// Timestamp is when the frame was encoded
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains a JPEG image, horizontally mirrored when Config.Mirror is set
	Data []byte
	// TraceID is a unique identifier for correlating a frame with the remote call it fed
	TraceID string
}

// State is the camera session state. The four values are mutually exclusive,
// so combinations like "active while loading" cannot be represented.
type State int

const (
	// StateIdle means no device is held
	StateIdle State = iota
	// StateAcquiring means a device request is outstanding
	StateAcquiring
	// StateActive means the device is held and frames are flowing
	StateActive
	// StateError means the last acquisition failed or the stream ended; Acquire may be retried
	StateError
)

// String returns a human-readable string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the camera session
type Status struct {
	State State
	// LastError describes the last failed acquisition or ended stream (StateError only)
	LastError string
	// Supported is false when the platform has no camera capability at all.
	// It never flips back to true for the lifetime of the Manager.
	Supported bool
}

// IsActive reports whether a device is held and frames can be captured
func (s Status) IsActive() bool { return s.State == StateActive }

// IsLoading reports whether an acquisition is in progress
func (s Status) IsLoading() bool { return s.State == StateAcquiring }

// CameraStats contains camera telemetry
type CameraStats struct {
	// Acquisitions is the number of successful Acquire calls that opened a device
	Acquisitions uint64
	// FailedAcquisitions counts Acquire calls that ended in StateError
	FailedAcquisitions uint64
	// Captures is the number of CaptureFrame calls that returned a frame
	Captures uint64
	// CaptureMisses is the number of CaptureFrame calls that returned nothing
	CaptureMisses uint64
	// LastFrameAge is the age of the newest frame seen by CaptureFrame
	LastFrameAge time.Duration
	// Errors per device error category (permission, not_found, busy, unsupported, pipeline)
	Errors map[string]uint64
	// Resolution is the configured frame resolution (e.g., "640x480")
	Resolution string
}

// Resolution represents supported capture resolutions
type Resolution int

const (
	// ResVGA represents 640x480 (preferred for recognition)
	ResVGA Resolution = iota
	// Res720p represents 1280x720 resolution (HD)
	Res720p
	// ResQVGA represents 320x240 for constrained hosts
	ResQVGA
)

// Dimensions returns the width and height for the resolution
func (r Resolution) Dimensions() (width, height int) {
	switch r {
	case ResVGA:
		return 640, 480
	case Res720p:
		return 1280, 720
	case ResQVGA:
		return 320, 240
	default:
		// Safe default: VGA
		return 640, 480
	}
}

// String returns a human-readable string representation of the resolution
func (r Resolution) String() string {
	w, h := r.Dimensions()
	return fmt.Sprintf("%dx%d", w, h)
}

// ParseResolution maps "640x480", "vga", "720p" or "qvga" to a Resolution
func ParseResolution(s string) (Resolution, error) {
	switch s {
	case "", "vga", "640x480":
		return ResVGA, nil
	case "720p", "1280x720":
		return Res720p, nil
	case "qvga", "320x240":
		return ResQVGA, nil
	default:
		return ResVGA, fmt.Errorf("camera-capture: invalid resolution %q (must be vga, 720p or qvga)", s)
	}
}

// Config contains configuration for the camera manager
type Config struct {
	// Device is the V4L2 device node (default /dev/video0)
	Device string
	// Resolution is the target capture resolution (default 640x480)
	Resolution Resolution
	// JPEGQuality is the encoder quality 1-100 (default 80)
	JPEGQuality int
	// Mirror flips frames horizontally to match a mirrored preview (default true via DefaultConfig)
	Mirror bool
	// StartTimeout bounds how long Acquire waits for the device to start playing
	StartTimeout time.Duration
	// FrameStaleAfter makes CaptureFrame report "not ready" when the newest frame
	// is older than this (0 disables the check)
	FrameStaleAfter time.Duration
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() Config {
	return Config{
		Device:          "/dev/video0",
		Resolution:      ResVGA,
		JPEGQuality:     80,
		Mirror:          true,
		StartTimeout:    5 * time.Second,
		FrameStaleAfter: 2 * time.Second,
	}
}

// DeviceConfig is what a Device needs to open a camera
type DeviceConfig struct {
	Device       string
	Width        int
	Height       int
	JPEGQuality  int
	Mirror       bool
	StartTimeout time.Duration
}
