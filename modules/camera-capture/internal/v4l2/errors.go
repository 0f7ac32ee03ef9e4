package v4l2

import (
	"errors"
	"os"
	"strings"
	"syscall"

	"github.com/tinyzimmer/go-gst/gst"
)

// Internal errors - mapped to public errors in cameracapture package
var (
	ErrUnsupported      = errors.New("camera not supported on this platform")
	ErrDeviceNotFound   = errors.New("camera device not found")
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceBusy       = errors.New("camera device busy")
	ErrPipeline         = errors.New("camera pipeline failure")
	ErrStreamEnded      = errors.New("camera stream ended")
)

// ErrorCategory represents the classification of device errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryPermission indicates the process may not open the device
	ErrCategoryPermission ErrorCategory = iota
	// ErrCategoryNotFound indicates the device node does not exist
	ErrCategoryNotFound
	// ErrCategoryBusy indicates another process holds the device
	ErrCategoryBusy
	// ErrCategoryNegotiation indicates caps/format negotiation failure
	ErrCategoryNegotiation
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryPermission:
		return "permission"
	case ErrCategoryNotFound:
		return "not_found"
	case ErrCategoryBusy:
		return "busy"
	case ErrCategoryNegotiation:
		return "negotiation"
	default:
		return "unknown"
	}
}

// Sentinel maps a category to the error callers match with errors.Is.
func (e ErrorCategory) Sentinel() error {
	switch e {
	case ErrCategoryPermission:
		return ErrPermissionDenied
	case ErrCategoryNotFound:
		return ErrDeviceNotFound
	case ErrCategoryBusy:
		return ErrDeviceBusy
	default:
		return ErrPipeline
	}
}

// ClassifyGStreamerError categorizes a GStreamer bus error.
// go-gst's GError does not expose Domain(), so we rely on string matching.
func ClassifyGStreamerError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return ClassifyMessage(gerr.Error(), gerr.DebugString())
}

// ClassifyMessage categorizes an error by message heuristics.
//
// Priority: permission > not found > busy > negotiation. v4l2src reports a
// missing node as "Cannot identify device" and a locked one as
// "Device or resource busy".
func ClassifyMessage(errMsg, debugStr string) ErrorCategory {
	combined := strings.ToLower(errMsg + " " + debugStr)

	switch {
	case containsAny(combined, "permission denied", "not permitted", "eacces"):
		return ErrCategoryPermission
	case containsAny(combined, "cannot identify device", "no such file", "no such device", "not found"):
		return ErrCategoryNotFound
	case containsAny(combined, "resource busy", "ebusy", "already in use"):
		return ErrCategoryBusy
	case containsAny(combined, "not negotiated", "not-negotiated", "negotiation", "caps", "format"):
		return ErrCategoryNegotiation
	default:
		return ErrCategoryUnknown
	}
}

// ClassifyOpenError maps an os error from probing the device node.
func ClassifyOpenError(err error) ErrorCategory {
	switch {
	case err == nil:
		return ErrCategoryUnknown
	case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		return ErrCategoryNotFound
	case errors.Is(err, os.ErrPermission):
		return ErrCategoryPermission
	case errors.Is(err, syscall.EBUSY):
		return ErrCategoryBusy
	default:
		return ClassifyMessage(err.Error(), "")
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
