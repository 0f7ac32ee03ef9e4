package cameracapture

import (
	"errors"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/camera-capture/internal/v4l2"
)

// Public API errors - device errors re-exported from the pipeline layer
var (
	ErrUnsupported      = v4l2.ErrUnsupported
	ErrDeviceNotFound   = v4l2.ErrDeviceNotFound
	ErrPermissionDenied = v4l2.ErrPermissionDenied
	ErrDeviceBusy       = v4l2.ErrDeviceBusy
	ErrPipeline         = v4l2.ErrPipeline
	ErrStreamEnded      = v4l2.ErrStreamEnded
)

var (
	// ErrAcquireInProgress is returned when Acquire is called while another Acquire is outstanding
	ErrAcquireInProgress = errors.New("camera-capture: acquisition already in progress")
	// ErrReleasedDuringAcquire is returned by an Acquire that lost a race with Release
	ErrReleasedDuringAcquire = errors.New("camera-capture: released during acquisition")
)

// errorCategory names a device error for telemetry counters
func errorCategory(err error) string {
	switch {
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrPermissionDenied):
		return "permission"
	case errors.Is(err, ErrDeviceNotFound):
		return "not_found"
	case errors.Is(err, ErrDeviceBusy):
		return "busy"
	case errors.Is(err, ErrPipeline):
		return "pipeline"
	case errors.Is(err, ErrStreamEnded):
		return "ended"
	default:
		return "unknown"
	}
}

// describe turns a device error into the message shown to the user
func describe(err error) string {
	switch {
	case errors.Is(err, ErrUnsupported):
		return "Camera not supported on this platform."
	case errors.Is(err, ErrPermissionDenied):
		return "Camera permission denied: " + err.Error()
	case errors.Is(err, ErrDeviceNotFound):
		return "No camera found: " + err.Error()
	case errors.Is(err, ErrDeviceBusy):
		return "Camera is in use by another application: " + err.Error()
	case errors.Is(err, ErrStreamEnded):
		return "Camera stopped: " + err.Error()
	default:
		return "Error starting camera: " + err.Error()
	}
}
